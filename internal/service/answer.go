package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coiportal/internal/answers"
	"coiportal/internal/db"
	"coiportal/internal/metrics"
	"coiportal/internal/model"
	"coiportal/internal/render"
	"coiportal/internal/schema"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type AnswerService struct {
	decls       DeclarationStore
	store       AnswerStore
	schemaComp  *schema.Compiler
	bus         EventBus
	archive     Archive
	jobClient   JobClient
	log         *zap.Logger
	remindAfter time.Duration
	now         func() time.Time
}

func NewAnswerService(decls DeclarationStore, store AnswerStore, schemaComp *schema.Compiler, bus EventBus, log *zap.Logger) *AnswerService {
	return &AnswerService{
		decls:      decls,
		store:      store,
		schemaComp: schemaComp,
		bus:        bus,
		log:        log,
		now:        time.Now,
	}
}

// SetJobClient sets the job client for scheduling background jobs
func (s *AnswerService) SetJobClient(client JobClient) {
	s.jobClient = client
}

// SetArchive enables snapshotting of submitted payloads
func (s *AnswerService) SetArchive(archive Archive) {
	s.archive = archive
}

// SetReminderDelay schedules a reminder this long after an answer is started
func (s *AnswerService) SetReminderDelay(d time.Duration) {
	s.remindAfter = d
}

// AnswerSummary is a review-queue or listing row
type AnswerSummary struct {
	ID            string                  `json:"id"`
	DeclarationID int64                   `json:"declarationId"`
	User          model.UserInfo          `json:"user"`
	Status        model.DeclarationStatus `json:"status"`
	SubmittedAt   *time.Time              `json:"submittedAt,omitempty"`
	UpdatedAt     time.Time               `json:"updatedAt"`
}

// Start opens a new declaration answer for the actor
func (s *AnswerService) Start(ctx context.Context, actor model.Actor, declarationID int64, user model.UserInfo) (*model.DeclarationAnswer, error) {
	decl, err := s.decls.GetDeclaration(ctx, declarationID)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("declaration %d", declarationID), err)
	}

	user.ID = actor.ID
	row, err := s.store.CreateAnswer(ctx, db.Answer{
		ID:            ulid.Make().String(),
		DeclarationID: decl.ID,
		User:          user,
		Status:        model.StatusCreated,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create answer: %w", err)
	}

	if s.jobClient != nil && s.remindAfter > 0 {
		if err := s.jobClient.ScheduleReminder(row.ID, s.now().Add(s.remindAfter)); err != nil {
			s.log.Warn("Failed to schedule reminder", zap.String("answer_id", row.ID), zap.Error(err))
		}
	}

	s.log.Info("Declaration answer started",
		zap.String("answer_id", row.ID),
		zap.Int64("declaration_id", decl.ID),
		zap.String("user_id", actor.ID))
	return Assemble(decl, row, nil), nil
}

// Document returns the assembled declaration-answer document
func (s *AnswerService) Document(ctx context.Context, actor model.Actor, id string) (*model.DeclarationAnswer, error) {
	row, err := s.store.GetAnswer(ctx, id)
	if err != nil {
		return nil, storeErr("answer "+id, err)
	}
	if row.User.ID != actor.ID && !actor.CanReview() {
		return nil, ErrForbidden
	}
	decl, err := s.decls.GetDeclaration(ctx, row.DeclarationID)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("declaration %d", row.DeclarationID), err)
	}
	plan, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load management plan: %w", err)
	}
	return Assemble(decl, row, plan), nil
}

// Form projects the stored answers into an editable form state
func (s *AnswerService) Form(ctx context.Context, actor model.Actor, id string) (*answers.FormState, error) {
	doc, err := s.Document(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return answers.Project(doc), nil
}

// View renders the document as edited in form; a nil form renders stored
// answers. With validate set, required-field errors are attached.
func (s *AnswerService) View(ctx context.Context, actor model.Actor, id string, form *answers.FormState, validate bool) (*render.View, error) {
	doc, err := s.Document(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if form == nil {
		form = answers.Project(doc)
	}
	var view render.View
	if validate {
		view = render.WithErrors(doc, form, answers.Validate(form, doc))
	} else {
		view = render.Render(doc, form)
	}
	return &view, nil
}

// EditResult is the form state after one edit together with its rendering
type EditResult struct {
	Form *answers.FormState `json:"form"`
	View render.View        `json:"view"`
}

// Edit applies one edit-session operation to form and renders the result.
// A nil form starts from the stored answers. Nothing is persisted.
func (s *AnswerService) Edit(ctx context.Context, actor model.Actor, id string, form *answers.FormState, apply func(*answers.Editor) error) (*EditResult, error) {
	posted := form
	if posted == nil {
		posted = &answers.FormState{DeclarationAnswerID: id}
	}
	doc, err := s.editable(ctx, actor, id, posted)
	if err != nil {
		return nil, err
	}

	e := answers.ResumeEditor(doc, form)
	if err := apply(e); err != nil {
		return nil, fmt.Errorf("edit %s: %w", id, err)
	}
	e.Form().DeclarationAnswerID = id
	return &EditResult{Form: e.Form(), View: render.Render(doc, e.Form())}, nil
}

// editable loads a document the actor owns and may still change
func (s *AnswerService) editable(ctx context.Context, actor model.Actor, id string, form *answers.FormState) (*model.DeclarationAnswer, error) {
	if form == nil {
		return nil, fmt.Errorf("%w: form state is required", ErrInvalidInput)
	}
	if form.DeclarationAnswerID != "" && form.DeclarationAnswerID != id {
		return nil, fmt.Errorf("%w: form state belongs to %s", ErrInvalidInput, form.DeclarationAnswerID)
	}
	doc, err := s.Document(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if doc.User.ID != actor.ID {
		return nil, ErrForbidden
	}
	if !doc.Status.Editable() {
		return nil, fmt.Errorf("answer %s is %s: %w", id, doc.Status, answers.ErrReadOnly)
	}
	return doc, nil
}

func (s *AnswerService) serialize(ctx context.Context, form *answers.FormState, doc *model.DeclarationAnswer) (model.Submission, error) {
	sub, report := answers.SerializeWithReport(form, doc)
	if n := report.Orphans(); n > 0 {
		metrics.OrphanedEntries.Add(float64(n))
		s.log.Warn("Skipped form entries the declaration no longer defines",
			zap.String("answer_id", doc.ID),
			zap.Int64s("option_ids", report.OrphanedOptions),
			zap.Int("sub_answers", report.OrphanedSubAnswers))
	}
	if len(report.UnsupportedKinds) > 0 {
		kinds := make([]string, 0, len(report.UnsupportedKinds))
		for _, k := range report.UnsupportedKinds {
			kinds = append(kinds, string(k))
		}
		s.log.Warn("Skipped questions of unsupported kind",
			zap.String("answer_id", doc.ID), zap.Strings("kinds", kinds))
	}
	if err := s.schemaComp.Validate(ctx, schema.Submission, sub); err != nil {
		return sub, fmt.Errorf("serialized payload rejected: %w", err)
	}
	return sub, nil
}

// SaveDraft stores the current form without validation or status change
func (s *AnswerService) SaveDraft(ctx context.Context, actor model.Actor, id string, form *answers.FormState) (*model.DeclarationAnswer, error) {
	doc, err := s.editable(ctx, actor, id, form)
	if err != nil {
		return nil, err
	}
	sub, err := s.serialize(ctx, form, doc)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveDraft(ctx, id, sub); err != nil {
		return nil, storeErr("save draft "+id, err)
	}
	metrics.Submissions.WithLabelValues(string(model.StatusCreated)).Inc()
	s.log.Debug("Draft saved", zap.String("answer_id", id), zap.Int("entries", len(sub.Answers)))
	return s.Document(ctx, actor, id)
}

// Submit validates the form, stores its payload and sends the answer for
// approval. Required-field failures are returned as answers.ValidationErrors.
func (s *AnswerService) Submit(ctx context.Context, actor model.Actor, id string, form *answers.FormState) (*model.DeclarationAnswer, error) {
	doc, err := s.editable(ctx, actor, id, form)
	if err != nil {
		return nil, err
	}
	if errs := answers.Validate(form, doc); len(errs) > 0 {
		return nil, errs
	}
	sub, err := s.serialize(ctx, form, doc)
	if err != nil {
		return nil, err
	}

	change := model.StatusChange{
		AnswerID:  id,
		From:      doc.Status,
		To:        model.StatusSentForApproval,
		ChangedBy: actor.ID,
		ChangedAt: s.now().UTC(),
	}
	if err := s.store.Submit(ctx, sub, change); err != nil {
		return nil, storeErr("submit "+id, err)
	}
	metrics.Submissions.WithLabelValues(string(change.To)).Inc()

	event := map[string]interface{}{
		"type":     "declaration.submitted",
		"answerId": id,
		"userId":   doc.User.ID,
	}
	if s.archive != nil {
		digest, err := s.archive.Put(ctx, id, sub)
		if err != nil {
			s.log.Error("Failed to archive submission", zap.String("answer_id", id), zap.Error(err))
		} else {
			event["sha256"] = digest
		}
	}
	_ = s.bus.PublishUser(doc.User.ID, event)
	_ = s.bus.PublishReviewers(event)

	if s.jobClient != nil {
		if err := s.jobClient.EnqueueSubmitted(id); err != nil {
			s.log.Warn("Failed to enqueue submission job", zap.String("answer_id", id), zap.Error(err))
		}
	}

	s.log.Info("Declaration submitted",
		zap.String("answer_id", id),
		zap.String("user_id", actor.ID),
		zap.Int("entries", len(sub.Answers)))
	return s.Document(ctx, actor, id)
}

// Route records a reviewer decision on a submitted answer
func (s *AnswerService) Route(ctx context.Context, actor model.Actor, id string, to model.DeclarationStatus, comment string) (*model.DeclarationAnswer, error) {
	if !actor.CanReview() {
		return nil, ErrForbidden
	}
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, to)
	}
	row, err := s.store.GetAnswer(ctx, id)
	if err != nil {
		return nil, storeErr("answer "+id, err)
	}
	if !model.CanTransition(row.Status, to) {
		return nil, fmt.Errorf("%s to %s: %w", row.Status, to, ErrInvalidTransition)
	}
	if to == model.StatusApproved && row.Status.IsConflict() {
		return nil, ErrPlanRequired
	}
	comment = strings.TrimSpace(comment)
	if to == model.StatusCreated && comment == "" {
		return nil, fmt.Errorf("%w: returning a declaration requires a comment", ErrInvalidInput)
	}

	change := model.StatusChange{
		AnswerID:  id,
		From:      row.Status,
		To:        to,
		ChangedBy: actor.ID,
		Comment:   comment,
		ChangedAt: s.now().UTC(),
	}
	if err := s.store.TransitionStatus(ctx, change); err != nil {
		return nil, storeErr("route "+id, err)
	}
	metrics.StatusChanges.WithLabelValues(string(to)).Inc()

	eventType := "declaration.routed"
	if to == model.StatusApproved {
		eventType = "declaration.approved"
	}
	_ = s.bus.PublishUser(row.User.ID, map[string]interface{}{
		"type":     eventType,
		"answerId": id,
		"status":   string(to),
		"comment":  comment,
	})

	s.log.Info("Declaration routed",
		zap.String("answer_id", id),
		zap.String("from", string(row.Status)),
		zap.String("to", string(to)),
		zap.String("reviewer", actor.ID))
	return s.Document(ctx, actor, id)
}

// AttachPlan records the measures for a declared conflict and approves it
func (s *AnswerService) AttachPlan(ctx context.Context, actor model.Actor, id string, measures []string, comment string) (*model.DeclarationAnswer, error) {
	if actor.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	cleaned := make([]string, 0, len(measures))
	for _, m := range measures {
		if m = strings.TrimSpace(m); m != "" {
			cleaned = append(cleaned, m)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("%w: a management plan needs at least one measure", ErrInvalidInput)
	}

	row, err := s.store.GetAnswer(ctx, id)
	if err != nil {
		return nil, storeErr("answer "+id, err)
	}
	if !row.Status.IsConflict() {
		return nil, fmt.Errorf("%s has no conflict to manage: %w", row.Status, ErrInvalidTransition)
	}

	now := s.now().UTC()
	plan := model.ManagementPlan{
		ID:        ulid.Make().String(),
		AnswerID:  id,
		Measures:  cleaned,
		Comment:   strings.TrimSpace(comment),
		CreatedBy: actor.ID,
		CreatedAt: now,
	}
	change := model.StatusChange{
		AnswerID:  id,
		From:      row.Status,
		To:        model.StatusApproved,
		ChangedBy: actor.ID,
		Comment:   plan.Comment,
		ChangedAt: now,
	}
	if err := s.store.AttachPlan(ctx, plan, change); err != nil {
		return nil, storeErr("attach plan to "+id, err)
	}
	metrics.StatusChanges.WithLabelValues(string(model.StatusApproved)).Inc()

	_ = s.bus.PublishUser(row.User.ID, map[string]interface{}{
		"type":     "declaration.approved",
		"answerId": id,
		"planId":   plan.ID,
	})
	s.log.Info("Management plan attached", zap.String("answer_id", id), zap.String("plan_id", plan.ID))
	return s.Document(ctx, actor, id)
}

// History returns the review audit trail of an answer
func (s *AnswerService) History(ctx context.Context, actor model.Actor, id string) ([]model.StatusChange, error) {
	if _, err := s.Document(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.store.ListStatusChanges(ctx, id)
}

// ListMine lists the actor's own declaration answers
func (s *AnswerService) ListMine(ctx context.Context, actor model.Actor, limit, offset int) ([]AnswerSummary, error) {
	if actor.ID == "" {
		return nil, ErrForbidden
	}
	return s.list(ctx, db.AnswerFilter{UserID: actor.ID, Limit: clampLimit(limit), Offset: offset})
}

// ListForReview lists answers awaiting a reviewer or an approval
func (s *AnswerService) ListForReview(ctx context.Context, actor model.Actor, limit, offset int) ([]AnswerSummary, error) {
	if !actor.CanReview() {
		return nil, ErrForbidden
	}
	return s.list(ctx, db.AnswerFilter{
		Statuses: []model.DeclarationStatus{
			model.StatusSentForApproval,
			model.StatusActualConflict,
			model.StatusPerceivedConflict,
			model.StatusNoConflict,
		},
		Limit:  clampLimit(limit),
		Offset: offset,
	})
}

func (s *AnswerService) list(ctx context.Context, f db.AnswerFilter) ([]AnswerSummary, error) {
	rows, err := s.store.ListAnswers(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	out := make([]AnswerSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, AnswerSummary{
			ID:            r.ID,
			DeclarationID: r.DeclarationID,
			User:          r.User,
			Status:        r.Status,
			SubmittedAt:   r.SubmittedAt,
			UpdatedAt:     r.UpdatedAt,
		})
	}
	return out, nil
}

// IsValidation reports whether err carries required-field failures
func IsValidation(err error) (answers.ValidationErrors, bool) {
	var v answers.ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
