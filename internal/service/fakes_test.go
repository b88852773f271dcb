package service

import (
	"context"
	"sync"
	"time"

	"coiportal/internal/db"
	"coiportal/internal/model"
)

// memStore implements DeclarationStore and AnswerStore in memory
type memStore struct {
	mu           sync.Mutex
	nextID       int64
	declarations map[int64]model.Declaration
	answers      map[string]db.Answer
	changes      []model.StatusChange
	plans        map[string]model.ManagementPlan
}

func newMemStore() *memStore {
	return &memStore{
		declarations: map[int64]model.Declaration{},
		answers:      map[string]db.Answer{},
		plans:        map[string]model.ManagementPlan{},
	}
}

func (m *memStore) NextItemIDs(ctx context.Context, n int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, n)
	for i := range ids {
		m.nextID++
		ids[i] = 1000 + m.nextID
	}
	return ids, nil
}

func (m *memStore) CreateDeclaration(ctx context.Context, d model.Declaration) (model.Declaration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = int64(len(m.declarations) + 1)
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	m.declarations[d.ID] = d
	return d, nil
}

func (m *memStore) GetDeclaration(ctx context.Context, id int64) (model.Declaration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.declarations[id]
	if !ok {
		return d, db.ErrNotFound
	}
	return d, nil
}

func (m *memStore) ListDeclarations(ctx context.Context, limit, offset int) ([]model.Declaration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Declaration{}
	for _, d := range m.declarations {
		out = append(out, d)
	}
	return out, nil
}

func (m *memStore) CreateAnswer(ctx context.Context, a db.Answer) (db.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.answers[a.ID] = a
	return a, nil
}

func (m *memStore) GetAnswer(ctx context.Context, id string) (db.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.answers[id]
	if !ok {
		return a, db.ErrNotFound
	}
	return a, nil
}

func (m *memStore) ListAnswers(ctx context.Context, f db.AnswerFilter) ([]db.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []db.Answer{}
	for _, a := range m.answers {
		if f.UserID != "" && a.User.ID != f.UserID {
			continue
		}
		if len(f.Statuses) > 0 && !hasStatus(f.Statuses, a.Status) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func hasStatus(list []model.DeclarationStatus, s model.DeclarationStatus) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func (m *memStore) SaveDraft(ctx context.Context, id string, sub model.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.answers[id]
	if !ok || a.Status != model.StatusCreated {
		return db.ErrStatusConflict
	}
	a.Submission = &sub
	m.answers[id] = a
	return nil
}

func (m *memStore) Submit(ctx context.Context, sub model.Submission, change model.StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.transition(change); err != nil {
		return err
	}
	a := m.answers[change.AnswerID]
	a.Submission = &sub
	at := change.ChangedAt
	a.SubmittedAt = &at
	m.answers[change.AnswerID] = a
	return nil
}

func (m *memStore) TransitionStatus(ctx context.Context, change model.StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transition(change)
}

func (m *memStore) transition(change model.StatusChange) error {
	a, ok := m.answers[change.AnswerID]
	if !ok || a.Status != change.From {
		return db.ErrStatusConflict
	}
	a.Status = change.To
	m.answers[change.AnswerID] = a
	m.changes = append(m.changes, change)
	return nil
}

func (m *memStore) ListStatusChanges(ctx context.Context, answerID string) ([]model.StatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.StatusChange{}
	for _, c := range m.changes {
		if c.AnswerID == answerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) AttachPlan(ctx context.Context, plan model.ManagementPlan, change model.StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.transition(change); err != nil {
		return err
	}
	m.plans[plan.AnswerID] = plan
	return nil
}

func (m *memStore) GetPlan(ctx context.Context, answerID string) (*model.ManagementPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[answerID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// MockEventBus implements EventBus for testing
type MockEventBus struct {
	mu       sync.Mutex
	user     map[string][]map[string]interface{}
	reviewer []map[string]interface{}
}

func (m *MockEventBus) PublishUser(userID string, event map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		m.user = map[string][]map[string]interface{}{}
	}
	m.user[userID] = append(m.user[userID], event)
	return nil
}

func (m *MockEventBus) PublishReviewers(event map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviewer = append(m.reviewer, event)
	return nil
}

type mockJobs struct {
	submitted []string
	reminders map[string]time.Time
}

func (m *mockJobs) EnqueueSubmitted(answerID string) error {
	m.submitted = append(m.submitted, answerID)
	return nil
}

func (m *mockJobs) ScheduleReminder(answerID string, remindAt time.Time) error {
	if m.reminders == nil {
		m.reminders = map[string]time.Time{}
	}
	m.reminders[answerID] = remindAt
	return nil
}

type mockArchive struct {
	puts map[string]model.Submission
}

func (m *mockArchive) Put(ctx context.Context, answerID string, sub model.Submission) (string, error) {
	if m.puts == nil {
		m.puts = map[string]model.Submission{}
	}
	m.puts[answerID] = sub
	return "deadbeef", nil
}
