package service

import (
	"context"
	"fmt"

	"coiportal/internal/model"
	"coiportal/internal/schema"

	"go.uber.org/zap"
)

type DeclarationService struct {
	store      DeclarationStore
	schemaComp *schema.Compiler
	log        *zap.Logger
}

func NewDeclarationService(store DeclarationStore, schemaComp *schema.Compiler, log *zap.Logger) *DeclarationService {
	return &DeclarationService{store: store, schemaComp: schemaComp, log: log}
}

// CreateDeclaration validates an authored declaration and stores it with
// server-assigned question, option and sub-question IDs.
func (s *DeclarationService) CreateDeclaration(ctx context.Context, actor model.Actor, d model.Declaration) (*model.Declaration, error) {
	if actor.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	if err := s.schemaComp.Validate(ctx, schema.Declaration, d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	ids, err := s.store.NextItemIDs(ctx, countItems(d))
	if err != nil {
		return nil, fmt.Errorf("failed to allocate ids: %w", err)
	}
	assignIDs(&d, ids)

	created, err := s.store.CreateDeclaration(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("failed to create declaration: %w", err)
	}
	s.log.Info("Declaration created",
		zap.Int64("declaration_id", created.ID),
		zap.String("kind", string(created.Kind)),
		zap.Int("questions", len(created.Questions)))
	return &created, nil
}

func (s *DeclarationService) GetDeclaration(ctx context.Context, id int64) (*model.Declaration, error) {
	d, err := s.store.GetDeclaration(ctx, id)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("declaration %d", id), err)
	}
	return &d, nil
}

func (s *DeclarationService) ListDeclarations(ctx context.Context, limit, offset int) ([]model.Declaration, error) {
	return s.store.ListDeclarations(ctx, clampLimit(limit), offset)
}

func countItems(d model.Declaration) int {
	n := 0
	for _, q := range d.Questions {
		n++
		for _, o := range q.Options {
			n += 1 + len(o.AdditionalQuestions)
		}
	}
	return n
}

// assignIDs overwrites client IDs; missing order numbers follow position
func assignIDs(d *model.Declaration, ids []int64) {
	next := 0
	take := func() int64 {
		id := ids[next]
		next++
		return id
	}
	for i := range d.Questions {
		q := &d.Questions[i]
		q.ID = take()
		if q.OrderNumber == 0 {
			q.OrderNumber = i + 1
		}
		for j := range q.Options {
			o := &q.Options[j]
			o.ID = take()
			for k := range o.AdditionalQuestions {
				o.AdditionalQuestions[k].ID = take()
			}
		}
	}
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 50
	}
	return limit
}
