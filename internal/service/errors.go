package service

import (
	"errors"
	"fmt"

	"coiportal/internal/db"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPlanRequired      = errors.New("conflict declarations are approved with a management plan")
)

// storeErr maps store sentinels to service sentinels
func storeErr(what string, err error) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, db.ErrStatusConflict):
		return fmt.Errorf("%s: %w", what, ErrInvalidTransition)
	}
	return fmt.Errorf("%s: %w", what, err)
}
