package model

import (
	"fmt"
	"time"
)

// Declaration is the administrator-authored questionnaire
type Declaration struct {
	ID        int64           `json:"id"`
	Kind      DeclarationKind `json:"kind"`
	Title     LocalizedText   `json:"title"`
	Questions []Question      `json:"questions"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Question is one item of a declaration
type Question struct {
	ID           int64          `json:"id"`
	OrderNumber  int            `json:"orderNumber"`
	QuestionType QuestionType   `json:"questionType"`
	Description  LocalizedText  `json:"description"`
	Note         *LocalizedText `json:"note,omitempty"`
	IsRequired   bool           `json:"isRequired"`
	Options      []Option       `json:"options"`
}

// Option is one answerable unit inside a question
type Option struct {
	ID                          int64                `json:"id"`
	Description                 LocalizedText        `json:"description"`
	IsConflict                  bool                 `json:"isConflict"`
	MultipleAdditionalAnswers   bool                 `json:"multipleAdditionalAnswers"`
	AdditionalAnswerDescription *LocalizedText       `json:"additionalAnswerDescription,omitempty"`
	AdditionalQuestions         []AdditionalQuestion `json:"additionalQuestions,omitempty"`
}

// HasAdditionalAnswers reports whether the option unlocks follow-up groups
func (o Option) HasAdditionalAnswers() bool {
	return len(o.AdditionalQuestions) > 0
}

// AdditionalQuestion is a sub-question answered once per group
type AdditionalQuestion struct {
	ID          int64         `json:"id"`
	Description LocalizedText `json:"description"`
	IsRequired  bool          `json:"isRequired"`
}

func (d Declaration) Validate() error {
	if d.Kind != DeclarationKindInitial && d.Kind != DeclarationKindAdHoc {
		return fmt.Errorf("invalid declaration kind %q", d.Kind)
	}
	if err := d.Title.Validate(); err != nil {
		return fmt.Errorf("title: %w", err)
	}
	if len(d.Questions) == 0 {
		return fmt.Errorf("declaration must have at least one question")
	}
	for i, q := range d.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}
	return nil
}

// Validate enforces the option cardinality each kind imposes
func (q Question) Validate() error {
	if _, err := ParseQuestionType(string(q.QuestionType)); err != nil {
		return err
	}
	if err := q.Description.Validate(); err != nil {
		return fmt.Errorf("description: %w", err)
	}
	if q.Note != nil {
		if err := q.Note.Validate(); err != nil {
			return fmt.Errorf("note: %w", err)
		}
	}

	n := len(q.Options)
	switch q.QuestionType {
	case QuestionTypeYesNo:
		if n != 2 {
			return fmt.Errorf("%s question needs exactly 2 options, got %d", q.QuestionType, n)
		}
	case QuestionTypeAgree:
		if n != 1 {
			return fmt.Errorf("%s question needs exactly 1 option, got %d", q.QuestionType, n)
		}
	case QuestionTypeOpenEnded:
		if n < 1 {
			return fmt.Errorf("%s question needs at least 1 option", q.QuestionType)
		}
	}

	seen := make(map[int64]bool, n)
	for i, o := range q.Options {
		if o.ID != 0 {
			if seen[o.ID] {
				return fmt.Errorf("duplicate option id %d", o.ID)
			}
			seen[o.ID] = true
		}
		if err := o.Description.Validate(); err != nil {
			return fmt.Errorf("option %d description: %w", i, err)
		}
		for j, aq := range o.AdditionalQuestions {
			if err := aq.Description.Validate(); err != nil {
				return fmt.Errorf("option %d additional question %d: %w", i, j, err)
			}
		}
	}
	return nil
}
