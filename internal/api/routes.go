package api

import (
	"context"
	"net/http"

	"coiportal/internal/answers"
	"coiportal/internal/auth"
	"coiportal/internal/model"
	"coiportal/internal/render"
	"coiportal/internal/service"
	"coiportal/internal/ws"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DeclarationAPI is implemented by service.DeclarationService
type DeclarationAPI interface {
	CreateDeclaration(ctx context.Context, actor model.Actor, d model.Declaration) (*model.Declaration, error)
	GetDeclaration(ctx context.Context, id int64) (*model.Declaration, error)
	ListDeclarations(ctx context.Context, limit, offset int) ([]model.Declaration, error)
}

// AnswerAPI is implemented by service.AnswerService
type AnswerAPI interface {
	Start(ctx context.Context, actor model.Actor, declarationID int64, user model.UserInfo) (*model.DeclarationAnswer, error)
	Document(ctx context.Context, actor model.Actor, id string) (*model.DeclarationAnswer, error)
	Form(ctx context.Context, actor model.Actor, id string) (*answers.FormState, error)
	View(ctx context.Context, actor model.Actor, id string, form *answers.FormState, validate bool) (*render.View, error)
	SaveDraft(ctx context.Context, actor model.Actor, id string, form *answers.FormState) (*model.DeclarationAnswer, error)
	Submit(ctx context.Context, actor model.Actor, id string, form *answers.FormState) (*model.DeclarationAnswer, error)
	Route(ctx context.Context, actor model.Actor, id string, to model.DeclarationStatus, comment string) (*model.DeclarationAnswer, error)
	AttachPlan(ctx context.Context, actor model.Actor, id string, measures []string, comment string) (*model.DeclarationAnswer, error)
	History(ctx context.Context, actor model.Actor, id string) ([]model.StatusChange, error)
	ListMine(ctx context.Context, actor model.Actor, limit, offset int) ([]service.AnswerSummary, error)
	ListForReview(ctx context.Context, actor model.Actor, limit, offset int) ([]service.AnswerSummary, error)
}

var (
	_ DeclarationAPI = (*service.DeclarationService)(nil)
	_ AnswerAPI      = (*service.AnswerService)(nil)
)

type Dependencies struct {
	Declarations DeclarationAPI
	Answers      AnswerAPI
	Auth         *auth.JWTConfig
	Hub          *ws.Hub
	Log          *zap.Logger
}

func Routes(d Dependencies) http.Handler {
	r := chi.NewRouter()

	// Add request logging middleware
	r.Use(RequestLogger(d.Log))

	// WebSocket endpoint authenticates during the upgrade
	r.Get("/ws", d.wsHandler)

	r.Group(func(r chi.Router) {
		r.Use(d.Auth.Middleware)

		// Declaration endpoints
		r.Get("/declarations", d.listDeclarations)
		r.Get("/declarations/{id}", d.getDeclaration)
		r.With(auth.RequireRole(model.RoleAdmin)).Post("/declarations", d.createDeclaration)
		r.Post("/declarations/{id}/answers", d.startAnswer)

		// Answer endpoints
		r.Get("/answers", d.listMyAnswers)
		r.Get("/answers/{id}", d.getAnswer)
		r.Get("/answers/{id}/form", d.getForm)
		r.Post("/answers/{id}/view", d.renderView)
		r.Put("/answers/{id}/draft", d.saveDraft)
		r.Post("/answers/{id}/submit", d.submitAnswer)
		r.Get("/answers/{id}/history", d.answerHistory)

		// Review endpoints
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(model.RoleManager, model.RoleAdmin))
			r.Get("/review", d.reviewQueue)
			r.Post("/answers/{id}/status", d.routeAnswer)
		})
		r.With(auth.RequireRole(model.RoleAdmin)).Post("/answers/{id}/plan", d.attachPlan)
	})

	return r
}
