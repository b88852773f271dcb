package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coiportal/internal/db"
	"coiportal/internal/model"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeSubmitted = "declaration:submitted"
	TypeRemind    = "declaration:remind"
)

// AnswerReader loads the current state of a declaration answer
type AnswerReader interface {
	GetAnswer(ctx context.Context, id string) (db.Answer, error)
}

// Publisher delivers notifications to users and reviewers
type Publisher interface {
	PublishUser(userID string, event map[string]interface{}) error
	PublishReviewers(event map[string]interface{}) error
}

type JobServer struct {
	server  *asynq.Server
	client  *asynq.Client
	answers AnswerReader
	bus     Publisher
	log     *zap.Logger
}

func NewJobServer(redisAddr string, answers AnswerReader, bus Publisher, log *zap.Logger) (*JobServer, *asynq.Client) {
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	client := asynq.NewClient(redisOpt)

	return &JobServer{
		server:  server,
		client:  client,
		answers: answers,
		bus:     bus,
		log:     log,
	}, client
}

func (js *JobServer) Start() error {
	return js.server.Start(js.Mux())
}

// Mux routes task types to their handlers
func (js *JobServer) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSubmitted, js.handleSubmitted)
	mux.HandleFunc(TypeRemind, js.handleRemind)
	return mux
}

func (js *JobServer) Stop() {
	js.server.Shutdown()
	js.client.Close()
}

// Job handlers

func (js *JobServer) handleSubmitted(ctx context.Context, t *asynq.Task) error {
	answerID := string(t.Payload())

	a, err := js.answers.GetAnswer(ctx, answerID)
	if err != nil {
		return fmt.Errorf("failed to get answer: %w", err)
	}

	// Reviewed or returned before the job ran
	if a.Status != model.StatusSentForApproval {
		return nil
	}

	event := map[string]interface{}{
		"type":          "declaration.awaiting_review",
		"answerId":      answerID,
		"declarationId": a.DeclarationID,
		"userId":        a.User.ID,
		"fullName":      a.User.FullName,
	}
	if a.SubmittedAt != nil {
		event["submittedAt"] = a.SubmittedAt.Format(time.RFC3339)
	}
	_ = js.bus.PublishReviewers(event)

	js.log.Info("Reviewers notified", zap.String("answer_id", answerID))
	return nil
}

func (js *JobServer) handleRemind(ctx context.Context, t *asynq.Task) error {
	answerID := string(t.Payload())

	a, err := js.answers.GetAnswer(ctx, answerID)
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("answer %s: %w", answerID, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("failed to get answer: %w", err)
	}

	// Only remind while the declarant still has to act
	if a.Status != model.StatusCreated {
		return nil
	}

	_ = js.bus.PublishUser(a.User.ID, map[string]interface{}{
		"type":          "declaration.reminder",
		"answerId":      answerID,
		"declarationId": a.DeclarationID,
	})

	js.log.Info("Reminder sent", zap.String("answer_id", answerID), zap.String("user_id", a.User.ID))
	return nil
}

// Schedule jobs

func EnqueueSubmitted(client *asynq.Client, answerID string) error {
	task := asynq.NewTask(TypeSubmitted, []byte(answerID))
	_, err := client.Enqueue(task, asynq.Queue("critical"), asynq.MaxRetry(5))
	return err
}

func ScheduleReminder(client *asynq.Client, answerID string, remindAt time.Time) error {
	if remindAt.Before(time.Now()) {
		return nil // Already past reminder time
	}

	task := asynq.NewTask(TypeRemind, []byte(answerID))
	_, err := client.Enqueue(task,
		asynq.ProcessIn(time.Until(remindAt)),
		asynq.Queue("low"),
		asynq.TaskID("remind:"+answerID),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}
