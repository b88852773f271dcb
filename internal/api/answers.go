package api

import (
	"encoding/json"
	"io"
	"net/http"

	"coiportal/internal/answers"
	"coiportal/internal/auth"
	"coiportal/internal/model"

	"github.com/go-chi/chi/v5"
)

type StartAnswerRequest struct {
	User model.UserInfo `json:"user"`
}

type RenderViewRequest struct {
	Form     *answers.FormState `json:"form,omitempty"`
	Validate bool               `json:"validate"`
}

type RouteRequest struct {
	Status  model.DeclarationStatus `json:"status"`
	Comment string                  `json:"comment,omitempty"`
}

type PlanRequest struct {
	Measures []string `json:"measures"`
	Comment  string   `json:"comment,omitempty"`
}

// decodeOptional accepts an empty body as the zero value
func decodeOptional(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == io.EOF {
		return nil
	}
	return err
}

func (d Dependencies) startAnswer(w http.ResponseWriter, r *http.Request) {
	id, ok := declarationID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid declaration id", d.Log)
		return
	}
	var req StartAnswerRequest
	if err := decodeOptional(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	doc, err := d.Answers.Start(r.Context(), auth.GetActor(r.Context()), id, req.User)
	if err != nil {
		writeServiceError(w, err, d.Log)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (d Dependencies) getAnswer(w http.ResponseWriter, r *http.Request) {
	doc, err := d.Answers.Document(r.Context(), auth.GetActor(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, d.Log)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (d Dependencies) getForm(w http.ResponseWriter, r *http.Request) {
	form, err := d.Answers.Form(r.Context(), auth.GetActor(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, d.Log)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (d Dependencies) renderView(w http.ResponseWriter, r *http.Request) {
	var req RenderViewRequest
	if err := decodeOptional(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), d.Log)
		return
	}

	view, err := d.Answers.View(r.Context(), auth.GetActor(r.Context()), chi.URLParam(r, "id"), req.Form, req.Validate)
	if err != nil {
		writeServiceError(w, err, d.Log)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (d Dependencies) decodeForm(w http.ResponseWriter, r *http.Request) (*answers.FormState, bool) {
	var form answers.FormState
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), d.Log)
		return nil, false
	}
	return &form, true
}

func (d Dependencies) saveDraft(w http.ResponseWriter, r *http.Request) {
	form, ok := d.decodeForm(w, r)
	if !ok {
		return
	}
	doc, err := d.Answers.SaveDraft(r.Context(), auth.GetActor(r.Context()), chi.URLParam(r, "id"), form)
	if err != nil {
		writeServiceError(w, err, d.Log)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (d Dependencies) submitAnswer(w http.ResponseWriter, r *http.Request) {
	form, ok := d.decodeForm(w, r)
	if !ok {
		return
	}
	doc, err := d.Answers.Submit(r.Context(), auth.GetActor(r.Context()), chi.URLParam(r, "id"), form)
	if err != nil {
		writeServiceError(w, err, d.Log)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (d Dependencies) answerHistory(w http.ResponseWriter, r *http.Request) {
	changes, err := d.Answers.History(r.Context(), auth.GetActor(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, d.Log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": changes})
}

func (d Dependencies) listMyAnswers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	items, err := d.Answers.ListMine(r.Context(), auth.GetActor(r.Context()), limit, offset)
	if err != nil {
		writeServiceError(w, err, d.Log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items, "limit": limit, "offset": offset})
}

func (d Dependencies) reviewQueue(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	items, err := d.Answers.ListForReview(r.Context(), auth.GetActor(r.Context()), limit, offset)
	if err != nil {
		writeServiceError(w, err, d.Log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items, "limit": limit, "offset": offset})
}

func (d Dependencies) routeAnswer(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}
	doc, err := d.Answers.Route(r.Context(), auth.GetActor(r.Context()), chi.URLParam(r, "id"), req.Status, req.Comment)
	if err != nil {
		writeServiceError(w, err, d.Log)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (d Dependencies) attachPlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}
	doc, err := d.Answers.AttachPlan(r.Context(), auth.GetActor(r.Context()), chi.URLParam(r, "id"), req.Measures, req.Comment)
	if err != nil {
		writeServiceError(w, err, d.Log)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
