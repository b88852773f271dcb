package model

import (
	"errors"
	"fmt"
)

// ErrUnsupportedQuestionType is returned for question kinds outside the closed set
var ErrUnsupportedQuestionType = errors.New("unsupported question type")

// QuestionType determines which answer fields are legal for a question
type QuestionType string

const (
	QuestionTypeYesNo     QuestionType = "YES_NO"
	QuestionTypeAgree     QuestionType = "AGREE"
	QuestionTypeOpenEnded QuestionType = "OPEN_ENDED"
)

// ParseQuestionType rejects anything that is not one of the known kinds
func ParseQuestionType(s string) (QuestionType, error) {
	switch QuestionType(s) {
	case QuestionTypeYesNo, QuestionTypeAgree, QuestionTypeOpenEnded:
		return QuestionType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedQuestionType, s)
}

// DeclarationKind distinguishes the yearly initial declaration from ad-hoc ones
type DeclarationKind string

const (
	DeclarationKindInitial DeclarationKind = "INITIAL"
	DeclarationKindAdHoc   DeclarationKind = "AD_HOC"
)

// Role of an authenticated portal user
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// LocalizedText carries the three required locales
type LocalizedText struct {
	EN string `json:"en"`
	RU string `json:"ru"`
	KZ string `json:"kz"`
}

func (t LocalizedText) Validate() error {
	if t.EN == "" || t.RU == "" || t.KZ == "" {
		return fmt.Errorf("text must be provided in en, ru and kz")
	}
	return nil
}

// UserInfo describes the declarant
type UserInfo struct {
	ID         string `json:"id"`
	FullName   string `json:"fullName,omitempty"`
	Email      string `json:"email,omitempty"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
}

// Actor is the authenticated caller of a service operation
type Actor struct {
	ID   string
	Role Role
}

// CanReview reports whether the actor may see and route other users' declarations
func (a Actor) CanReview() bool {
	return a.Role == RoleManager || a.Role == RoleAdmin
}
