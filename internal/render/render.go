// Package render turns a declaration-answer document and its form state into
// a widget tree. Each question is dispatched to the widget of its kind;
// additional-answer groups are mounted only under active options.
package render

import (
	"fmt"
	"sort"

	"coiportal/internal/answers"
	"coiportal/internal/metrics"
	"coiportal/internal/model"
)

// Render builds the view of doc as edited in form. A nil form renders the
// persisted answers.
func Render(doc *model.DeclarationAnswer, form *answers.FormState) View {
	if form == nil {
		form = answers.Project(doc)
	}
	view := View{Questions: []QuestionView{}}
	if doc == nil {
		return view
	}
	view.DeclarationAnswerID = doc.ID
	view.Status = doc.Status
	view.ReadOnly = !doc.Status.Editable()

	order := make([]int, len(doc.QuestionsWithAnswers))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return doc.QuestionsWithAnswers[order[a]].OrderNumber < doc.QuestionsWithAnswers[order[b]].OrderNumber
	})

	for index, i := range order {
		q := &doc.QuestionsWithAnswers[i]
		qv := QuestionView{
			Index:        index,
			QuestionID:   q.ID,
			OrderNumber:  q.OrderNumber,
			QuestionType: q.QuestionType,
			Description:  q.Description,
			Note:         q.Note,
			IsRequired:   q.IsRequired,
		}

		s, err := answers.StateFor(form, q)
		if err != nil {
			metrics.UnsupportedQuestions.Inc()
			qv.Widget = UnsupportedWidget{
				Type:         WidgetUnsupported,
				QuestionType: string(q.QuestionType),
				Message:      fmt.Sprintf("Unsupported question type: %s", q.QuestionType),
			}
		} else {
			qv.Widget = answers.Match[Widget](s, &widgets{question: q, readOnly: view.ReadOnly})
		}
		view.Questions = append(view.Questions, qv)
	}
	return view
}

// WithErrors renders and attaches validation errors for display
func WithErrors(doc *model.DeclarationAnswer, form *answers.FormState, errs answers.ValidationErrors) View {
	view := Render(doc, form)
	view.Errors = errs
	return view
}

type widgets struct {
	question *model.QuestionWithAnswers
	readOnly bool
}

func (w *widgets) VisitYesNo(s *answers.YesNoState) Widget {
	cw := ChoiceWidget{Type: WidgetChoice, Options: make([]ChoiceOption, 0, len(w.question.OptionsWithAnswers))}
	for i := range w.question.OptionsWithAnswers {
		o := &w.question.OptionsWithAnswers[i]
		selected := answers.IsActive(s, o.ID)
		if selected {
			id := o.ID
			cw.SelectedOptionID = &id
		}
		cw.Options = append(cw.Options, ChoiceOption{
			OptionID:    o.ID,
			Description: o.Description,
			IsConflict:  o.IsConflict,
			Selected:    selected,
			Groups:      w.mount(s, o),
		})
	}
	return cw
}

func (w *widgets) VisitAgree(s *answers.AgreeState) Widget {
	tw := ToggleWidget{Type: WidgetToggle}
	if len(w.question.OptionsWithAnswers) == 0 {
		return tw
	}
	o := &w.question.OptionsWithAnswers[0]
	tw.OptionID = o.ID
	tw.Description = o.Description
	tw.Agreed = answers.IsActive(s, o.ID)
	tw.Groups = w.mount(s, o)
	return tw
}

func (w *widgets) VisitOpenEnded(s *answers.OpenEndedState) Widget {
	tf := TextFieldsWidget{Type: WidgetTextFields, Fields: make([]TextField, 0, len(w.question.OptionsWithAnswers))}
	for i := range w.question.OptionsWithAnswers {
		o := &w.question.OptionsWithAnswers[i]
		value, _ := s.Answer(o.ID)
		tf.Fields = append(tf.Fields, TextField{
			OptionID:    o.ID,
			Description: o.Description,
			Value:       value,
			Groups:      w.mount(s, o),
		})
	}
	return tf
}

// mount returns the group list of an active option with a follow-up
// definition, or nil. Groups of inactive options stay in form state unmounted.
func (w *widgets) mount(s answers.QuestionState, o *model.OptionWithAnswer) *GroupList {
	if !o.HasAdditionalAnswers() || !answers.IsActive(s, o.ID) {
		return nil
	}

	held := s.Groups(o.ID)
	if !o.MultipleAdditionalAnswers {
		switch {
		case len(held) == 0:
			held = []answers.Group{{}}
		case len(held) > 1:
			held = held[:1]
		}
	}

	gl := &GroupList{
		OptionID:     o.ID,
		Description:  o.AdditionalAnswerDescription,
		Multiple:     o.MultipleAdditionalAnswers,
		SubQuestions: o.AdditionalAnswers.Questions,
		Groups:       make([]GroupView, 0, len(held)),
		CanAdd:       o.MultipleAdditionalAnswers && !w.readOnly,
		CanRemove:    o.MultipleAdditionalAnswers && !w.readOnly,
	}
	for gi, g := range held {
		gv := GroupView{Index: gi, Answers: make([]SubAnswerView, 0, len(o.AdditionalAnswers.Questions))}
		for _, aq := range o.AdditionalAnswers.Questions {
			value, _ := g.Get(aq.ID)
			gv.Answers = append(gv.Answers, SubAnswerView{
				AdditionalAnswerID: aq.ID,
				Description:        aq.Description,
				IsRequired:         aq.IsRequired,
				Value:              value,
			})
		}
		gl.Groups = append(gl.Groups, gv)
	}
	return gl
}
