package service

import (
	"context"
	"time"

	"coiportal/internal/db"
	"coiportal/internal/model"
)

// DeclarationStore persists declaration definitions
type DeclarationStore interface {
	NextItemIDs(ctx context.Context, n int) ([]int64, error)
	CreateDeclaration(ctx context.Context, d model.Declaration) (model.Declaration, error)
	GetDeclaration(ctx context.Context, id int64) (model.Declaration, error)
	ListDeclarations(ctx context.Context, limit, offset int) ([]model.Declaration, error)
}

// AnswerStore persists declaration answers and their review trail
type AnswerStore interface {
	CreateAnswer(ctx context.Context, a db.Answer) (db.Answer, error)
	GetAnswer(ctx context.Context, id string) (db.Answer, error)
	ListAnswers(ctx context.Context, f db.AnswerFilter) ([]db.Answer, error)
	SaveDraft(ctx context.Context, id string, sub model.Submission) error
	Submit(ctx context.Context, sub model.Submission, change model.StatusChange) error
	TransitionStatus(ctx context.Context, change model.StatusChange) error
	ListStatusChanges(ctx context.Context, answerID string) ([]model.StatusChange, error)
	AttachPlan(ctx context.Context, plan model.ManagementPlan, change model.StatusChange) error
	GetPlan(ctx context.Context, answerID string) (*model.ManagementPlan, error)
}

type EventBus interface {
	PublishUser(userID string, event map[string]interface{}) error
	PublishReviewers(event map[string]interface{}) error
}

// Archive keeps an immutable snapshot of each submitted payload
type Archive interface {
	Put(ctx context.Context, answerID string, sub model.Submission) (string, error)
}

// JobClient schedules background work
type JobClient interface {
	EnqueueSubmitted(answerID string) error
	ScheduleReminder(answerID string, remindAt time.Time) error
}

var _ DeclarationStore = (*db.Queries)(nil)
var _ AnswerStore = (*db.Queries)(nil)
