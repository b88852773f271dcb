package answers

import (
	"fmt"
	"strings"

	"coiportal/internal/model"
)

// FieldError is a single required-field failure
type FieldError struct {
	Field      string `json:"field"`
	QuestionID int64  `json:"questionId"`
	OptionID   int64  `json:"optionId,omitempty"`
	Message    string `json:"message"`
}

// ValidationErrors lists every required-field failure of a form. It is
// returned as an error by operations that refuse incomplete forms.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "no validation errors"
	}
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return fmt.Sprintf("%d invalid field(s): %s", len(v), strings.Join(parts, "; "))
}

// Validate checks form state before serialization. Required questions must be
// answered; required sub-questions must be filled in every group of every
// active option. A multi-group option whose groups were all removed is not an
// error.
func Validate(form *FormState, doc *model.DeclarationAnswer) ValidationErrors {
	var errs ValidationErrors
	if doc == nil {
		return errs
	}
	for i := range doc.QuestionsWithAnswers {
		q := &doc.QuestionsWithAnswers[i]
		s, err := StateFor(form, q)
		if err != nil {
			continue
		}
		v := &validator{question: q}
		Match[struct{}](s, v)
		for j := range q.OptionsWithAnswers {
			o := &q.OptionsWithAnswers[j]
			if o.HasAdditionalAnswers() && IsActive(s, o.ID) {
				v.checkGroups(s, o)
			}
		}
		errs = append(errs, v.errs...)
	}
	return errs
}

type validator struct {
	question *model.QuestionWithAnswers
	errs     ValidationErrors
}

func (v *validator) fail(field string, optionID int64, msg string) {
	v.errs = append(v.errs, FieldError{Field: field, QuestionID: v.question.ID, OptionID: optionID, Message: msg})
}

func (v *validator) questionField() string {
	return fmt.Sprintf("questions[%d]", v.question.ID)
}

func (v *validator) VisitYesNo(s *YesNoState) struct{} {
	if !v.question.IsRequired {
		return struct{}{}
	}
	if s.SelectedOptionID == nil {
		v.fail(v.questionField(), 0, "an option must be selected")
		return struct{}{}
	}
	if _, ok := v.question.Option(*s.SelectedOptionID); !ok {
		v.fail(v.questionField(), *s.SelectedOptionID, "selected option no longer exists")
	}
	return struct{}{}
}

func (v *validator) VisitAgree(s *AgreeState) struct{} {
	if v.question.IsRequired && (s.IsAgreed == nil || !*s.IsAgreed) {
		v.fail(v.questionField(), 0, "agreement is required")
	}
	return struct{}{}
}

func (v *validator) VisitOpenEnded(s *OpenEndedState) struct{} {
	if !v.question.IsRequired {
		return struct{}{}
	}
	for _, o := range v.question.OptionsWithAnswers {
		text, _ := s.Answer(o.ID)
		if strings.TrimSpace(text) == "" {
			v.fail(fmt.Sprintf("%s.options[%d]", v.questionField(), o.ID), o.ID, "answer is required")
		}
	}
	return struct{}{}
}

func (v *validator) checkGroups(s QuestionState, o *model.OptionWithAnswer) {
	groups := s.Groups(o.ID)
	prefix := fmt.Sprintf("%s.options[%d]", v.questionField(), o.ID)

	if len(groups) == 0 && !o.MultipleAdditionalAnswers {
		groups = []Group{{}}
	}
	for gi, g := range groups {
		for _, aq := range o.AdditionalAnswers.Questions {
			if !aq.IsRequired {
				continue
			}
			text, _ := g.Get(aq.ID)
			if strings.TrimSpace(text) == "" {
				v.fail(fmt.Sprintf("%s.groups[%d].answers[%d]", prefix, gi, aq.ID), o.ID, "additional answer is required")
			}
		}
	}
}
