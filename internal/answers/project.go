package answers

import (
	"sort"

	"coiportal/internal/model"
)

// Project converts a declaration-answer document into editable form state.
// A nil document yields an empty question list. Questions of an unknown kind
// are left out; the renderer reports them from the document itself.
func Project(doc *model.DeclarationAnswer) *FormState {
	form := &FormState{Questions: []QuestionState{}}
	if doc == nil {
		return form
	}
	form.DeclarationAnswerID = doc.ID

	for i := range doc.QuestionsWithAnswers {
		q := &doc.QuestionsWithAnswers[i]
		s, err := newState(q.QuestionType, q.ID)
		if err != nil {
			continue
		}
		s.base().OptionGroups = projectGroups(q)

		switch s := s.(type) {
		case *YesNoState:
			for _, o := range q.OptionsWithAnswers {
				if o.IsAnswered != nil && *o.IsAnswered {
					id := o.ID
					s.SelectedOptionID = &id
					break
				}
			}
		case *AgreeState:
			if len(q.OptionsWithAnswers) > 0 && q.OptionsWithAnswers[0].IsAnswered != nil {
				agreed := *q.OptionsWithAnswers[0].IsAnswered
				s.IsAgreed = &agreed
			}
		case *OpenEndedState:
			for _, o := range q.OptionsWithAnswers {
				text := ""
				if o.Answer != nil {
					text = *o.Answer
				}
				s.OpenEndedAnswers = append(s.OpenEndedAnswers, OpenEndedAnswer{OptionID: o.ID, Answer: text})
			}
		}
		form.Questions = append(form.Questions, s)
	}
	return form
}

// projectGroups copies every option's existing groups ordered by orderIndex
func projectGroups(q *model.QuestionWithAnswers) []OptionGroups {
	out := []OptionGroups{}
	for _, o := range q.OptionsWithAnswers {
		if o.AdditionalAnswers == nil {
			continue
		}
		stored := append([]model.AdditionalAnswerGroup{}, o.AdditionalAnswers.Answers...)
		sort.SliceStable(stored, func(i, j int) bool {
			return stored[i].OrderIndex < stored[j].OrderIndex
		})
		og := OptionGroups{OptionID: o.ID, Groups: make([]Group, 0, len(stored))}
		for _, g := range stored {
			og.Groups = append(og.Groups, Group{Answers: g.Answers}.clone())
		}
		out = append(out, og)
	}
	return out
}
