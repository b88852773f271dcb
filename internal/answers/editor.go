package answers

import (
	"errors"
	"fmt"

	"coiportal/internal/model"
)

var (
	ErrReadOnly            = errors.New("declaration is read-only")
	ErrSingleGroup         = errors.New("option allows a single additional-answer group")
	ErrUnknownQuestion     = errors.New("unknown question")
	ErrUnknownOption       = errors.New("unknown option")
	ErrUnknownSubQuestion  = errors.New("unknown additional question")
	ErrWrongKind           = errors.New("operation does not apply to question kind")
	ErrNoAdditionalAnswers = errors.New("option has no additional answers")
	ErrNoSuchGroup         = errors.New("no such additional-answer group")
)

// Editor is the handle of one edit session over a declaration-answer document.
// It owns the form state; callers pass it explicitly to whatever needs it.
type Editor struct {
	doc  *model.DeclarationAnswer
	form *FormState
}

// NewEditor starts a session from the document's persisted answers
func NewEditor(doc *model.DeclarationAnswer) *Editor {
	return &Editor{doc: doc, form: Project(doc)}
}

// ResumeEditor continues a session with form state posted back by a client
func ResumeEditor(doc *model.DeclarationAnswer, form *FormState) *Editor {
	if form == nil {
		form = Project(doc)
	}
	return &Editor{doc: doc, form: form}
}

// Form returns the session's current form state
func (e *Editor) Form() *FormState { return e.form }

// Document returns the document the session edits
func (e *Editor) Document() *model.DeclarationAnswer { return e.doc }

// Reset discards unsaved edits and re-projects the document
func (e *Editor) Reset() {
	e.form = Project(e.doc)
}

// Submission serializes the current form state
func (e *Editor) Submission() model.Submission {
	return Serialize(e.form, e.doc)
}

// Validate checks required fields of the current form state
func (e *Editor) Validate() ValidationErrors {
	return Validate(e.form, e.doc)
}

// SelectOption selects one choice of a YES_NO question. Groups of the
// previously selected option stay in form state.
func (e *Editor) SelectOption(questionID, optionID int64) error {
	q, s, err := editable[*YesNoState](e, questionID)
	if err != nil {
		return err
	}
	o, ok := q.Option(optionID)
	if !ok {
		return fmt.Errorf("%w %d in question %d", ErrUnknownOption, optionID, questionID)
	}
	id := o.ID
	s.SelectedOptionID = &id
	ensureSingleGroup(s, o)
	return nil
}

// ClearSelection leaves a YES_NO question unanswered
func (e *Editor) ClearSelection(questionID int64) error {
	_, s, err := editable[*YesNoState](e, questionID)
	if err != nil {
		return err
	}
	s.SelectedOptionID = nil
	return nil
}

func (e *Editor) SetAgreed(questionID int64, agreed bool) error {
	q, s, err := editable[*AgreeState](e, questionID)
	if err != nil {
		return err
	}
	s.IsAgreed = &agreed
	if agreed && len(q.OptionsWithAnswers) > 0 {
		ensureSingleGroup(s, &q.OptionsWithAnswers[0])
	}
	return nil
}

func (e *Editor) SetOpenEndedAnswer(questionID, optionID int64, text string) error {
	q, s, err := editable[*OpenEndedState](e, questionID)
	if err != nil {
		return err
	}
	o, ok := q.Option(optionID)
	if !ok {
		return fmt.Errorf("%w %d in question %d", ErrUnknownOption, optionID, questionID)
	}

	found := false
	for i := range s.OpenEndedAnswers {
		if s.OpenEndedAnswers[i].OptionID == optionID {
			s.OpenEndedAnswers[i].Answer = text
			found = true
			break
		}
	}
	if !found {
		s.OpenEndedAnswers = append(s.OpenEndedAnswers, OpenEndedAnswer{OptionID: optionID, Answer: text})
	}
	if text != "" {
		ensureSingleGroup(s, o)
	}
	return nil
}

// AddGroup appends an empty group and returns its index
func (e *Editor) AddGroup(questionID, optionID int64) (int, error) {
	s, o, err := e.groupOwner(questionID, optionID)
	if err != nil {
		return 0, err
	}
	og := s.base().optionGroups(o.ID, true)
	if !o.MultipleAdditionalAnswers && len(og.Groups) > 0 {
		return 0, fmt.Errorf("%w: option %d", ErrSingleGroup, optionID)
	}
	og.Groups = append(og.Groups, newGroup(o))
	return len(og.Groups) - 1, nil
}

// RemoveGroup deletes a group of a multi-group option. Removing the last one
// is allowed and leaves the option with no additional answers.
func (e *Editor) RemoveGroup(questionID, optionID int64, index int) error {
	s, o, err := e.groupOwner(questionID, optionID)
	if err != nil {
		return err
	}
	if !o.MultipleAdditionalAnswers {
		return fmt.Errorf("%w: option %d", ErrSingleGroup, optionID)
	}
	og := s.base().optionGroups(o.ID, false)
	if og == nil || index < 0 || index >= len(og.Groups) {
		return fmt.Errorf("%w: option %d index %d", ErrNoSuchGroup, optionID, index)
	}
	og.Groups = append(og.Groups[:index], og.Groups[index+1:]...)
	return nil
}

// SetSubAnswer fills one sub-question of a group. A single-group option
// always has its group at index 0, even when the session holds none yet.
func (e *Editor) SetSubAnswer(questionID, optionID int64, index int, subQuestionID int64, text string) error {
	s, o, err := e.groupOwner(questionID, optionID)
	if err != nil {
		return err
	}
	if _, ok := o.SubQuestion(subQuestionID); !ok {
		return fmt.Errorf("%w %d on option %d", ErrUnknownSubQuestion, subQuestionID, optionID)
	}
	if index == 0 {
		ensureSingleGroup(s, o)
	}
	og := s.base().optionGroups(o.ID, false)
	if og == nil || index < 0 || index >= len(og.Groups) {
		return fmt.Errorf("%w: option %d index %d", ErrNoSuchGroup, optionID, index)
	}
	og.Groups[index].Set(subQuestionID, text)
	return nil
}

func (e *Editor) groupOwner(questionID, optionID int64) (QuestionState, *model.OptionWithAnswer, error) {
	q, s, err := editable[QuestionState](e, questionID)
	if err != nil {
		return nil, nil, err
	}
	o, ok := q.Option(optionID)
	if !ok {
		return nil, nil, fmt.Errorf("%w %d in question %d", ErrUnknownOption, optionID, questionID)
	}
	if !o.HasAdditionalAnswers() {
		return nil, nil, fmt.Errorf("%w: option %d", ErrNoAdditionalAnswers, optionID)
	}
	return s, o, nil
}

// editable resolves a question for mutation, creating its form state if the
// session does not hold any yet.
func editable[T QuestionState](e *Editor, questionID int64) (*model.QuestionWithAnswers, T, error) {
	var zero T
	if e.doc == nil || !e.doc.Status.Editable() {
		return nil, zero, ErrReadOnly
	}

	var q *model.QuestionWithAnswers
	for i := range e.doc.QuestionsWithAnswers {
		if e.doc.QuestionsWithAnswers[i].ID == questionID {
			q = &e.doc.QuestionsWithAnswers[i]
			break
		}
	}
	if q == nil {
		return nil, zero, fmt.Errorf("%w %d", ErrUnknownQuestion, questionID)
	}

	s, err := StateFor(e.form, q)
	if err != nil {
		return nil, zero, err
	}
	typed, ok := s.(T)
	if !ok {
		return nil, zero, fmt.Errorf("%w %s", ErrWrongKind, q.QuestionType)
	}
	e.attach(s)
	return q, typed, nil
}

// attach puts s into the form, replacing stale state of another kind
func (e *Editor) attach(s QuestionState) {
	for i, held := range e.form.Questions {
		if held.QuestionID() == s.QuestionID() {
			e.form.Questions[i] = s
			return
		}
	}
	e.form.Questions = append(e.form.Questions, s)
}

// ensureSingleGroup creates the one group a single-group option always shows
func ensureSingleGroup(s QuestionState, o *model.OptionWithAnswer) {
	if !o.HasAdditionalAnswers() || o.MultipleAdditionalAnswers {
		return
	}
	og := s.base().optionGroups(o.ID, true)
	if len(og.Groups) == 0 {
		og.Groups = append(og.Groups, newGroup(o))
	}
}

func newGroup(o *model.OptionWithAnswer) Group {
	g := Group{Answers: make([]model.AdditionalAnswer, 0, len(o.AdditionalAnswers.Questions))}
	for _, aq := range o.AdditionalAnswers.Questions {
		g.Answers = append(g.Answers, model.AdditionalAnswer{AdditionalAnswerID: aq.ID})
	}
	return g
}
