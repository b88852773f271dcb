package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coiportal/internal/answers"
	"coiportal/internal/auth"
	"coiportal/internal/model"
	"coiportal/internal/render"
	"coiportal/internal/service"
	"coiportal/internal/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubDeclarations struct {
	created *model.Declaration
}

func (s *stubDeclarations) CreateDeclaration(ctx context.Context, actor model.Actor, d model.Declaration) (*model.Declaration, error) {
	if len(d.Questions) == 0 {
		return nil, fmt.Errorf("%w: no questions", service.ErrInvalidInput)
	}
	d.ID = 7
	s.created = &d
	return &d, nil
}

func (s *stubDeclarations) GetDeclaration(ctx context.Context, id int64) (*model.Declaration, error) {
	if id != 7 {
		return nil, fmt.Errorf("declaration %d: %w", id, service.ErrNotFound)
	}
	return &model.Declaration{ID: 7}, nil
}

func (s *stubDeclarations) ListDeclarations(ctx context.Context, limit, offset int) ([]model.Declaration, error) {
	return []model.Declaration{{ID: 7}}, nil
}

// stubAnswers records the last caller and returns err from every mutating call
type stubAnswers struct {
	err      error
	actor    model.Actor
	form     *answers.FormState
	validate bool
	route    model.DeclarationStatus
}

func (s *stubAnswers) doc(actor model.Actor, id string) (*model.DeclarationAnswer, error) {
	s.actor = actor
	if s.err != nil {
		return nil, s.err
	}
	return &model.DeclarationAnswer{ID: id, Status: model.StatusCreated}, nil
}

func (s *stubAnswers) Start(ctx context.Context, actor model.Actor, declarationID int64, user model.UserInfo) (*model.DeclarationAnswer, error) {
	return s.doc(actor, "01START")
}

func (s *stubAnswers) Document(ctx context.Context, actor model.Actor, id string) (*model.DeclarationAnswer, error) {
	return s.doc(actor, id)
}

func (s *stubAnswers) Form(ctx context.Context, actor model.Actor, id string) (*answers.FormState, error) {
	s.actor = actor
	return &answers.FormState{DeclarationAnswerID: id}, s.err
}

func (s *stubAnswers) View(ctx context.Context, actor model.Actor, id string, form *answers.FormState, validate bool) (*render.View, error) {
	s.actor, s.form, s.validate = actor, form, validate
	if s.err != nil {
		return nil, s.err
	}
	return &render.View{}, nil
}

func (s *stubAnswers) SaveDraft(ctx context.Context, actor model.Actor, id string, form *answers.FormState) (*model.DeclarationAnswer, error) {
	s.form = form
	return s.doc(actor, id)
}

func (s *stubAnswers) Submit(ctx context.Context, actor model.Actor, id string, form *answers.FormState) (*model.DeclarationAnswer, error) {
	s.form = form
	return s.doc(actor, id)
}

func (s *stubAnswers) Route(ctx context.Context, actor model.Actor, id string, to model.DeclarationStatus, comment string) (*model.DeclarationAnswer, error) {
	s.route = to
	return s.doc(actor, id)
}

func (s *stubAnswers) AttachPlan(ctx context.Context, actor model.Actor, id string, measures []string, comment string) (*model.DeclarationAnswer, error) {
	return s.doc(actor, id)
}

func (s *stubAnswers) History(ctx context.Context, actor model.Actor, id string) ([]model.StatusChange, error) {
	return []model.StatusChange{}, s.err
}

func (s *stubAnswers) ListMine(ctx context.Context, actor model.Actor, limit, offset int) ([]service.AnswerSummary, error) {
	s.actor = actor
	return []service.AnswerSummary{}, s.err
}

func (s *stubAnswers) ListForReview(ctx context.Context, actor model.Actor, limit, offset int) ([]service.AnswerSummary, error) {
	s.actor = actor
	return []service.AnswerSummary{}, s.err
}

func setupRouter(t *testing.T) (http.Handler, *stubDeclarations, *stubAnswers) {
	t.Helper()
	decls := &stubDeclarations{}
	ans := &stubAnswers{}
	h := Routes(Dependencies{
		Declarations: decls,
		Answers:      ans,
		Auth:         auth.NewJWTConfig("test-secret", true),
		Log:          zap.NewNop(),
	})
	return h, decls, ans
}

func do(t *testing.T, h http.Handler, method, path, userID string, role model.Role, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
		req.Header.Set("X-Role", string(role))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRoutes_RequiresAuthentication(t *testing.T) {
	h, _, _ := setupRouter(t)

	rec := do(t, h, http.MethodGet, "/answers", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/answers", nil)
	req.Header.Set("Authorization", "Token abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoutes_BearerToken(t *testing.T) {
	h, _, ans := setupRouter(t)
	cfg := auth.NewJWTConfig("test-secret", true)
	token, err := cfg.Issue(model.Actor{ID: "alice", Role: model.RoleUser}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/answers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", ans.actor.ID)
}

func TestRoutes_RoleChecks(t *testing.T) {
	h, _, _ := setupRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		role   model.Role
		body   interface{}
		want   int
	}{
		{"user cannot create declarations", http.MethodPost, "/declarations", model.RoleUser, map[string]interface{}{}, http.StatusForbidden},
		{"manager cannot create declarations", http.MethodPost, "/declarations", model.RoleManager, map[string]interface{}{}, http.StatusForbidden},
		{"user cannot see review queue", http.MethodGet, "/review", model.RoleUser, nil, http.StatusForbidden},
		{"manager sees review queue", http.MethodGet, "/review", model.RoleManager, nil, http.StatusOK},
		{"user cannot route", http.MethodPost, "/answers/01A/status", model.RoleUser, RouteRequest{Status: model.StatusNoConflict}, http.StatusForbidden},
		{"manager routes", http.MethodPost, "/answers/01A/status", model.RoleManager, RouteRequest{Status: model.StatusNoConflict}, http.StatusOK},
		{"manager cannot attach plans", http.MethodPost, "/answers/01A/plan", model.RoleManager, PlanRequest{Measures: []string{"x"}}, http.StatusForbidden},
		{"admin attaches plans", http.MethodPost, "/answers/01A/plan", model.RoleAdmin, PlanRequest{Measures: []string{"x"}}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, "u1", tt.role, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestDeclarationHandlers(t *testing.T) {
	h, decls, _ := setupRouter(t)

	rec := do(t, h, http.MethodGet, "/declarations/7", "alice", model.RoleUser, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/declarations/8", "alice", model.RoleUser, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Code)

	rec = do(t, h, http.MethodGet, "/declarations/abc", "alice", model.RoleUser, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/declarations", "root", model.RoleAdmin, model.Declaration{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", decodeError(t, rec).Code)

	body := model.Declaration{
		Kind:      model.DeclarationKindAdHoc,
		Questions: []model.Question{{QuestionType: model.QuestionTypeAgree}},
	}
	rec = do(t, h, http.MethodPost, "/declarations", "root", model.RoleAdmin, body)
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, decls.created)

	rec = do(t, h, http.MethodGet, "/declarations?limit=5", "alice", model.RoleUser, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var page map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, float64(5), page["limit"])
}

func TestStartAnswer_AcceptsEmptyBody(t *testing.T) {
	h, _, ans := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/declarations/7/answers", nil)
	req.Header.Set("X-User-ID", "alice")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, model.RoleUser, ans.actor.Role)
}

func TestSubmit_ValidationErrors(t *testing.T) {
	h, _, ans := setupRouter(t)
	ans.err = answers.ValidationErrors{
		{Field: "questions[0]", QuestionID: 11, Message: "answer required"},
	}

	form := answers.FormState{DeclarationAnswerID: "01A"}
	rec := do(t, h, http.MethodPost, "/answers/01A/submit", "alice", model.RoleUser, form)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "validation_failed", resp.Code)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, int64(11), resp.Errors[0].QuestionID)
	require.NotNil(t, ans.form)
	assert.Equal(t, "01A", ans.form.DeclarationAnswerID)
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
		code string
	}{
		{fmt.Errorf("x: %w", service.ErrNotFound), http.StatusNotFound, "not_found"},
		{fmt.Errorf("x: %w", service.ErrForbidden), http.StatusForbidden, "forbidden"},
		{fmt.Errorf("x: %w", service.ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
		{fmt.Errorf("x: %w", answers.ErrReadOnly), http.StatusConflict, "read_only"},
		{fmt.Errorf("x: %w", service.ErrPlanRequired), http.StatusConflict, "plan_required"},
		{fmt.Errorf("x: %w", service.ErrInvalidTransition), http.StatusConflict, "invalid_transition"},
		{fmt.Errorf("connection reset"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h, _, ans := setupRouter(t)
			ans.err = tt.err
			rec := do(t, h, http.MethodPut, "/answers/01A/draft", "alice", model.RoleUser, answers.FormState{})
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestRenderView_PassesFormAndFlag(t *testing.T) {
	h, _, ans := setupRouter(t)

	rec := do(t, h, http.MethodPost, "/answers/01A/view", "alice", model.RoleUser, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, ans.form)
	assert.False(t, ans.validate)

	rec = do(t, h, http.MethodPost, "/answers/01A/view", "alice", model.RoleUser,
		map[string]interface{}{"form": map[string]interface{}{"declarationAnswerId": "01A", "questions": []interface{}{}}, "validate": true})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, ans.form)
	assert.True(t, ans.validate)

	rec = do(t, h, http.MethodPost, "/answers/01A/view", "alice", model.RoleUser,
		map[string]interface{}{"form": map[string]interface{}{"questions": []interface{}{map[string]interface{}{"kind": "RATING", "questionId": 1}}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebSocket_RejectsAnonymous(t *testing.T) {
	h := Routes(Dependencies{
		Declarations: &stubDeclarations{},
		Answers:      &stubAnswers{},
		Auth:         auth.NewJWTConfig("test-secret", false),
		Hub:          ws.NewHub(zap.NewNop()),
		Log:          zap.NewNop(),
	})

	rec := do(t, h, http.MethodGet, "/ws", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// dev headers are ignored when disabled
	rec = do(t, h, http.MethodGet, "/ws", "alice", model.RoleUser, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
