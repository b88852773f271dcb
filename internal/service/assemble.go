package service

import (
	"coiportal/internal/db"
	"coiportal/internal/model"
)

// Assemble folds a stored submission into the declaration it answers,
// producing the document the portal edits and renders. Entries for options
// the declaration no longer defines are dropped.
func Assemble(decl model.Declaration, row db.Answer, plan *model.ManagementPlan) *model.DeclarationAnswer {
	entries := map[int64]model.SubmittedAnswer{}
	if row.Submission != nil {
		for _, e := range row.Submission.Answers {
			entries[e.OptionID] = e
		}
	}

	doc := &model.DeclarationAnswer{
		ID:                   row.ID,
		DeclarationID:        decl.ID,
		DeclarationKind:      decl.Kind,
		User:                 row.User,
		Status:               row.Status,
		QuestionsWithAnswers: make([]model.QuestionWithAnswers, 0, len(decl.Questions)),
		ManagementPlan:       plan,
		SubmittedAt:          row.SubmittedAt,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}

	for _, q := range decl.Questions {
		qa := model.QuestionWithAnswers{
			ID:                 q.ID,
			OrderNumber:        q.OrderNumber,
			QuestionType:       q.QuestionType,
			Description:        q.Description,
			Note:               q.Note,
			IsRequired:         q.IsRequired,
			OptionsWithAnswers: make([]model.OptionWithAnswer, 0, len(q.Options)),
		}
		for _, o := range q.Options {
			oa := model.OptionWithAnswer{
				ID:                          o.ID,
				Description:                 o.Description,
				AdditionalAnswerDescription: o.AdditionalAnswerDescription,
				MultipleAdditionalAnswers:   o.MultipleAdditionalAnswers,
				IsConflict:                  o.IsConflict,
			}
			if o.HasAdditionalAnswers() {
				oa.AdditionalAnswers = &model.AdditionalAnswers{
					Questions: o.AdditionalQuestions,
					Answers:   []model.AdditionalAnswerGroup{},
				}
			}
			if e, ok := entries[o.ID]; ok {
				oa.IsAnswered = e.IsAnswered
				if e.Answer.Set {
					oa.Answer = e.Answer.Value
				}
				if oa.AdditionalAnswers != nil {
					for i, g := range e.AdditionalAnswers {
						oa.AdditionalAnswers.Answers = append(oa.AdditionalAnswers.Answers, model.AdditionalAnswerGroup{
							OrderIndex: i,
							Answers:    append([]model.AdditionalAnswer(nil), g.Answers...),
						})
					}
				}
			}
			qa.OptionsWithAnswers = append(qa.OptionsWithAnswers, oa)
		}
		doc.QuestionsWithAnswers = append(doc.QuestionsWithAnswers, qa)
	}
	return doc
}
