package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coiportal/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("not found")
	// ErrStatusConflict is returned when a row is no longer in the expected status
	ErrStatusConflict = errors.New("status changed concurrently")
)

// Queries wraps database queries
type Queries struct {
	*pgxpool.Pool
}

// NewQueries creates a new Queries instance
func NewQueries(pool *pgxpool.Pool) *Queries {
	return &Queries{Pool: pool}
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// definition is the JSONB body of a declaration row
type definition struct {
	Title     model.LocalizedText `json:"title"`
	Questions []model.Question    `json:"questions"`
}

// Declaration queries

func (q *Queries) NextItemIDs(ctx context.Context, n int) ([]int64, error) {
	rows, err := q.Pool.Query(ctx,
		"SELECT nextval('declaration_item_ids') FROM generate_series(1, $1)", n)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (q *Queries) CreateDeclaration(ctx context.Context, d model.Declaration) (model.Declaration, error) {
	body, err := json.Marshal(definition{Title: d.Title, Questions: d.Questions})
	if err != nil {
		return model.Declaration{}, fmt.Errorf("failed to encode definition: %w", err)
	}
	err = q.Pool.QueryRow(ctx,
		"INSERT INTO declarations (kind, definition) VALUES ($1, $2) RETURNING id, created_at, updated_at",
		d.Kind, body,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (q *Queries) GetDeclaration(ctx context.Context, id int64) (model.Declaration, error) {
	row := q.Pool.QueryRow(ctx,
		"SELECT id, kind, definition, created_at, updated_at FROM declarations WHERE id = $1", id)
	d, err := scanDeclaration(row)
	return d, notFound(err)
}

func (q *Queries) ListDeclarations(ctx context.Context, limit, offset int) ([]model.Declaration, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT id, kind, definition, created_at, updated_at
		FROM declarations
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	declarations := []model.Declaration{}
	for rows.Next() {
		d, err := scanDeclaration(rows)
		if err != nil {
			return nil, err
		}
		declarations = append(declarations, d)
	}
	return declarations, rows.Err()
}

func scanDeclaration(row pgx.Row) (model.Declaration, error) {
	var d model.Declaration
	var body []byte
	if err := row.Scan(&d.ID, &d.Kind, &body, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return d, err
	}
	var def definition
	if err := json.Unmarshal(body, &def); err != nil {
		return d, fmt.Errorf("failed to decode definition %d: %w", d.ID, err)
	}
	d.Title = def.Title
	d.Questions = def.Questions
	return d, nil
}

// Answer represents a declaration_answers row
type Answer struct {
	ID            string
	DeclarationID int64
	User          model.UserInfo
	Status        model.DeclarationStatus
	Submission    *model.Submission
	SubmittedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AnswerFilter narrows ListAnswers; zero fields match everything
type AnswerFilter struct {
	UserID   string
	Statuses []model.DeclarationStatus
	Limit    int
	Offset   int
}

const answerColumns = `id, declaration_id, user_info, status, submission, submitted_at, created_at, updated_at`

// Answer queries

func (q *Queries) CreateAnswer(ctx context.Context, a Answer) (Answer, error) {
	user, err := json.Marshal(a.User)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to encode user: %w", err)
	}
	row := q.Pool.QueryRow(ctx,
		`INSERT INTO declaration_answers (id, declaration_id, user_id, user_info, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+answerColumns,
		a.ID, a.DeclarationID, a.User.ID, user, a.Status,
	)
	return scanAnswer(row)
}

func (q *Queries) GetAnswer(ctx context.Context, id string) (Answer, error) {
	row := q.Pool.QueryRow(ctx,
		"SELECT "+answerColumns+" FROM declaration_answers WHERE id = $1", id)
	a, err := scanAnswer(row)
	return a, notFound(err)
}

func (q *Queries) ListAnswers(ctx context.Context, f AnswerFilter) ([]Answer, error) {
	statuses := make([]string, 0, len(f.Statuses))
	for _, s := range f.Statuses {
		statuses = append(statuses, string(s))
	}
	rows, err := q.Pool.Query(ctx,
		`SELECT `+answerColumns+`
		FROM declaration_answers
		WHERE ($1 = '' OR user_id = $1)
			AND (cardinality($2::text[]) = 0 OR status = ANY($2))
		ORDER BY updated_at DESC
		LIMIT $3 OFFSET $4`,
		f.UserID, statuses, f.Limit, f.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := []Answer{}
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// SaveDraft stores a submission while the answer is still editable
func (q *Queries) SaveDraft(ctx context.Context, id string, sub model.Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to encode submission: %w", err)
	}
	tag, err := q.Pool.Exec(ctx,
		"UPDATE declaration_answers SET submission = $2, updated_at = NOW() WHERE id = $1 AND status = $3",
		id, body, model.StatusCreated,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

// Submit stores the final submission and moves the answer to review in one transaction
func (q *Queries) Submit(ctx context.Context, sub model.Submission, change model.StatusChange) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to encode submission: %w", err)
	}
	return pgx.BeginFunc(ctx, q.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE declaration_answers
			SET submission = $2, status = $4, submitted_at = $5, updated_at = NOW()
			WHERE id = $1 AND status = $3`,
			change.AnswerID, body, change.From, change.To, change.ChangedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrStatusConflict
		}
		return insertStatusChange(ctx, tx, change)
	})
}

// TransitionStatus applies a review decision if the answer is still in change.From
func (q *Queries) TransitionStatus(ctx context.Context, change model.StatusChange) error {
	return pgx.BeginFunc(ctx, q.Pool, func(tx pgx.Tx) error {
		return transition(ctx, tx, change)
	})
}

func transition(ctx context.Context, tx pgx.Tx, change model.StatusChange) error {
	tag, err := tx.Exec(ctx,
		"UPDATE declaration_answers SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2",
		change.AnswerID, change.From, change.To,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return insertStatusChange(ctx, tx, change)
}

func insertStatusChange(ctx context.Context, tx pgx.Tx, change model.StatusChange) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO status_changes (answer_id, from_status, to_status, changed_by, comment, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		change.AnswerID, change.From, change.To, change.ChangedBy, change.Comment, change.ChangedAt,
	)
	return err
}

func (q *Queries) ListStatusChanges(ctx context.Context, answerID string) ([]model.StatusChange, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT answer_id, from_status, to_status, changed_by, comment, changed_at
		FROM status_changes WHERE answer_id = $1 ORDER BY changed_at, id`,
		answerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []model.StatusChange{}
	for rows.Next() {
		var c model.StatusChange
		if err := rows.Scan(&c.AnswerID, &c.From, &c.To, &c.ChangedBy, &c.Comment, &c.ChangedAt); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// Management plan queries

// AttachPlan records a management plan and approves the answer in one transaction
func (q *Queries) AttachPlan(ctx context.Context, plan model.ManagementPlan, change model.StatusChange) error {
	measures, err := json.Marshal(plan.Measures)
	if err != nil {
		return fmt.Errorf("failed to encode measures: %w", err)
	}
	return pgx.BeginFunc(ctx, q.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO management_plans (id, answer_id, measures, comment, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			plan.ID, plan.AnswerID, measures, plan.Comment, plan.CreatedBy, plan.CreatedAt,
		); err != nil {
			return err
		}
		return transition(ctx, tx, change)
	})
}

// GetPlan returns nil without error when no plan has been attached
func (q *Queries) GetPlan(ctx context.Context, answerID string) (*model.ManagementPlan, error) {
	var p model.ManagementPlan
	var measures []byte
	err := q.Pool.QueryRow(ctx,
		"SELECT id, answer_id, measures, comment, created_by, created_at FROM management_plans WHERE answer_id = $1",
		answerID,
	).Scan(&p.ID, &p.AnswerID, &measures, &p.Comment, &p.CreatedBy, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(measures, &p.Measures); err != nil {
		return nil, fmt.Errorf("failed to decode measures: %w", err)
	}
	return &p, nil
}

func scanAnswer(row pgx.Row) (Answer, error) {
	var a Answer
	var user, submission []byte
	err := row.Scan(&a.ID, &a.DeclarationID, &user, &a.Status, &submission,
		&a.SubmittedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return a, err
	}
	if err := json.Unmarshal(user, &a.User); err != nil {
		return a, fmt.Errorf("failed to decode user of %s: %w", a.ID, err)
	}
	if len(submission) > 0 {
		var sub model.Submission
		if err := json.Unmarshal(submission, &sub); err != nil {
			return a, fmt.Errorf("failed to decode submission of %s: %w", a.ID, err)
		}
		a.Submission = &sub
	}
	return a, nil
}
