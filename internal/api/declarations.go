package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"coiportal/internal/auth"
	"coiportal/internal/model"

	"github.com/go-chi/chi/v5"
)

func declarationID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (d Dependencies) createDeclaration(w http.ResponseWriter, r *http.Request) {
	var decl model.Declaration
	if err := json.NewDecoder(r.Body).Decode(&decl); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	created, err := d.Declarations.CreateDeclaration(r.Context(), auth.GetActor(r.Context()), decl)
	if err != nil {
		writeServiceError(w, err, d.Log)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (d Dependencies) getDeclaration(w http.ResponseWriter, r *http.Request) {
	id, ok := declarationID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid declaration id", d.Log)
		return
	}

	decl, err := d.Declarations.GetDeclaration(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, d.Log)
		return
	}
	writeJSON(w, http.StatusOK, decl)
}

func (d Dependencies) listDeclarations(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	decls, err := d.Declarations.ListDeclarations(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err, d.Log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":  decls,
		"limit":  limit,
		"offset": offset,
	})
}
