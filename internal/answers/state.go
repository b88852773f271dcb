// Package answers holds the editable form state of a declaration answer and the
// two pure transformations around it: projecting a declaration-answer document
// into form state, and serializing edited form state into the flat submission
// payload.
package answers

import (
	"encoding/json"
	"fmt"

	"coiportal/internal/model"
)

// QuestionState is the form state of one question. The set of implementations
// is closed: YesNoState, AgreeState and OpenEndedState.
type QuestionState interface {
	QuestionID() int64
	Kind() model.QuestionType
	// Groups returns the additional-answer groups held for an option
	Groups(optionID int64) []Group
	base() *questionBase
}

// Visitor has one method per question kind. Adding a kind to the closed set
// adds a method here, so every dispatch site stops compiling until it handles it.
type Visitor[R any] interface {
	VisitYesNo(s *YesNoState) R
	VisitAgree(s *AgreeState) R
	VisitOpenEnded(s *OpenEndedState) R
}

// Match dispatches s to the visitor method for its kind
func Match[R any](s QuestionState, v Visitor[R]) R {
	switch s := s.(type) {
	case *YesNoState:
		return v.VisitYesNo(s)
	case *AgreeState:
		return v.VisitAgree(s)
	case *OpenEndedState:
		return v.VisitOpenEnded(s)
	}
	panic(fmt.Sprintf("answers: unhandled question state %T", s))
}

// OptionGroups are the additional-answer groups of one option
type OptionGroups struct {
	OptionID int64   `json:"optionId"`
	Groups   []Group `json:"groups"`
}

// Group is one instance of answers to every sub-question of an option
type Group struct {
	Answers []model.AdditionalAnswer `json:"answers"`
}

// Get returns the answer to a sub-question
func (g Group) Get(subQuestionID int64) (string, bool) {
	for _, a := range g.Answers {
		if a.AdditionalAnswerID == subQuestionID {
			return a.Answer, true
		}
	}
	return "", false
}

// Set stores the answer to a sub-question, appending it if missing
func (g *Group) Set(subQuestionID int64, value string) {
	for i := range g.Answers {
		if g.Answers[i].AdditionalAnswerID == subQuestionID {
			g.Answers[i].Answer = value
			return
		}
	}
	g.Answers = append(g.Answers, model.AdditionalAnswer{AdditionalAnswerID: subQuestionID, Answer: value})
}

func (g Group) clone() Group {
	return Group{Answers: append([]model.AdditionalAnswer{}, g.Answers...)}
}

type questionBase struct {
	ID           int64
	OptionGroups []OptionGroups
}

func (b *questionBase) QuestionID() int64 { return b.ID }

func (b *questionBase) base() *questionBase { return b }

func (b *questionBase) Groups(optionID int64) []Group {
	if og := b.optionGroups(optionID, false); og != nil {
		return og.Groups
	}
	return nil
}

func (b *questionBase) optionGroups(optionID int64, create bool) *OptionGroups {
	for i := range b.OptionGroups {
		if b.OptionGroups[i].OptionID == optionID {
			return &b.OptionGroups[i]
		}
	}
	if !create {
		return nil
	}
	b.OptionGroups = append(b.OptionGroups, OptionGroups{OptionID: optionID, Groups: []Group{}})
	return &b.OptionGroups[len(b.OptionGroups)-1]
}

// YesNoState holds the single selected choice of a YES_NO question
type YesNoState struct {
	questionBase
	SelectedOptionID *int64
}

func (*YesNoState) Kind() model.QuestionType { return model.QuestionTypeYesNo }

// AgreeState holds the agreement flag of an AGREE question
type AgreeState struct {
	questionBase
	IsAgreed *bool
}

func (*AgreeState) Kind() model.QuestionType { return model.QuestionTypeAgree }

// OpenEndedState holds one free-text answer per option
type OpenEndedState struct {
	questionBase
	OpenEndedAnswers []OpenEndedAnswer
}

func (*OpenEndedState) Kind() model.QuestionType { return model.QuestionTypeOpenEnded }

// Answer returns the text entered for an option
func (s *OpenEndedState) Answer(optionID int64) (string, bool) {
	for _, a := range s.OpenEndedAnswers {
		if a.OptionID == optionID {
			return a.Answer, true
		}
	}
	return "", false
}

// OpenEndedAnswer is the free text entered for one option
type OpenEndedAnswer struct {
	OptionID int64  `json:"optionId"`
	Answer   string `json:"answer"`
}

// FormState is the edit-optimized projection of a declaration-answer document
type FormState struct {
	DeclarationAnswerID string
	Questions           []QuestionState
}

// Question returns the state held for a question
func (f *FormState) Question(id int64) (QuestionState, bool) {
	if f == nil {
		return nil, false
	}
	for _, q := range f.Questions {
		if q.QuestionID() == id {
			return q, true
		}
	}
	return nil, false
}

func newState(kind model.QuestionType, questionID int64) (QuestionState, error) {
	b := questionBase{ID: questionID, OptionGroups: []OptionGroups{}}
	switch kind {
	case model.QuestionTypeYesNo:
		return &YesNoState{questionBase: b}, nil
	case model.QuestionTypeAgree:
		return &AgreeState{questionBase: b}, nil
	case model.QuestionTypeOpenEnded:
		return &OpenEndedState{questionBase: b, OpenEndedAnswers: []OpenEndedAnswer{}}, nil
	}
	return nil, fmt.Errorf("%w: %q", model.ErrUnsupportedQuestionType, kind)
}

// StateFor returns the form state for a document question. When the form holds
// nothing for it, or holds state of another kind after a schema edit, an empty
// state of the document's kind is returned. Unknown kinds are an error.
func StateFor(form *FormState, q *model.QuestionWithAnswers) (QuestionState, error) {
	if s, ok := form.Question(q.ID); ok && s.Kind() == q.QuestionType {
		return s, nil
	}
	return newState(q.QuestionType, q.ID)
}

type wireQuestion struct {
	Kind             model.QuestionType `json:"kind"`
	QuestionID       int64              `json:"questionId"`
	SelectedOptionID *int64             `json:"selectedOptionId,omitempty"`
	IsAgreed         *bool              `json:"isAgreed,omitempty"`
	OpenEndedAnswers []OpenEndedAnswer  `json:"openEndedAnswers,omitempty"`
	OptionGroups     []OptionGroups     `json:"optionGroups"`
}

type wireForm struct {
	DeclarationAnswerID string         `json:"declarationAnswerId,omitempty"`
	Questions           []wireQuestion `json:"questions"`
}

type encoder struct{}

func (encoder) VisitYesNo(s *YesNoState) wireQuestion {
	return wireQuestion{Kind: s.Kind(), QuestionID: s.ID, SelectedOptionID: s.SelectedOptionID, OptionGroups: s.OptionGroups}
}

func (encoder) VisitAgree(s *AgreeState) wireQuestion {
	return wireQuestion{Kind: s.Kind(), QuestionID: s.ID, IsAgreed: s.IsAgreed, OptionGroups: s.OptionGroups}
}

func (encoder) VisitOpenEnded(s *OpenEndedState) wireQuestion {
	return wireQuestion{Kind: s.Kind(), QuestionID: s.ID, OpenEndedAnswers: s.OpenEndedAnswers, OptionGroups: s.OptionGroups}
}

func (f FormState) MarshalJSON() ([]byte, error) {
	w := wireForm{DeclarationAnswerID: f.DeclarationAnswerID, Questions: make([]wireQuestion, 0, len(f.Questions))}
	for _, q := range f.Questions {
		wq := Match[wireQuestion](q, encoder{})
		if wq.OptionGroups == nil {
			wq.OptionGroups = []OptionGroups{}
		}
		w.Questions = append(w.Questions, wq)
	}
	return json.Marshal(w)
}

func (f *FormState) UnmarshalJSON(data []byte) error {
	var w wireForm
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	f.DeclarationAnswerID = w.DeclarationAnswerID
	f.Questions = make([]QuestionState, 0, len(w.Questions))
	for _, wq := range w.Questions {
		s, err := newState(wq.Kind, wq.QuestionID)
		if err != nil {
			return fmt.Errorf("question %d: %w", wq.QuestionID, err)
		}
		if wq.OptionGroups != nil {
			s.base().OptionGroups = wq.OptionGroups
		}
		switch s := s.(type) {
		case *YesNoState:
			s.SelectedOptionID = wq.SelectedOptionID
		case *AgreeState:
			s.IsAgreed = wq.IsAgreed
		case *OpenEndedState:
			if wq.OpenEndedAnswers != nil {
				s.OpenEndedAnswers = wq.OpenEndedAnswers
			}
		}
		f.Questions = append(f.Questions, s)
	}
	return nil
}
