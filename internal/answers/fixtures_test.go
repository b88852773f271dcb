package answers

import (
	"testing"

	"coiportal/internal/model"
)

func text(s string) model.LocalizedText {
	return model.LocalizedText{EN: s, RU: s + " (ru)", KZ: s + " (kz)"}
}

func strPtr(s string) *string { return &s }

// testDocument builds a declaration answer with one question of every kind
// plus one of a kind the portal does not know.
func testDocument() *model.DeclarationAnswer {
	return &model.DeclarationAnswer{
		ID:            "01HZYX",
		DeclarationID: 7,
		User:          model.UserInfo{ID: "user-1", FullName: "Aigerim N."},
		Status:        model.StatusCreated,
		QuestionsWithAnswers: []model.QuestionWithAnswers{
			{
				ID:           1,
				OrderNumber:  1,
				QuestionType: model.QuestionTypeYesNo,
				Description:  text("Do you hold shares in a supplier?"),
				IsRequired:   true,
				OptionsWithAnswers: []model.OptionWithAnswer{
					{
						ID:          10,
						Description: text("Yes"),
						IsConflict:  true,
						IsAnswered:  model.Bool(true),
						AdditionalAnswers: &model.AdditionalAnswers{
							Questions: []model.AdditionalQuestion{
								{ID: 100, Description: text("Company name"), IsRequired: true},
							},
							Answers: []model.AdditionalAnswerGroup{
								{OrderIndex: 0, Answers: []model.AdditionalAnswer{{AdditionalAnswerID: 100, Answer: "Acme"}}},
							},
						},
					},
					{ID: 11, Description: text("No"), IsAnswered: model.Bool(false)},
				},
			},
			{
				ID:           2,
				OrderNumber:  2,
				QuestionType: model.QuestionTypeAgree,
				Description:  text("I confirm the information is accurate"),
				IsRequired:   true,
				OptionsWithAnswers: []model.OptionWithAnswer{
					{ID: 20, Description: text("I agree"), IsAnswered: model.Bool(true)},
				},
			},
			{
				ID:           3,
				OrderNumber:  3,
				QuestionType: model.QuestionTypeOpenEnded,
				Description:  text("Describe related-party relationships"),
				OptionsWithAnswers: []model.OptionWithAnswer{
					{
						ID:                        30,
						Description:               text("Relatives employed"),
						Answer:                    strPtr("brother in procurement"),
						MultipleAdditionalAnswers: true,
						AdditionalAnswers: &model.AdditionalAnswers{
							Questions: []model.AdditionalQuestion{
								{ID: 300, Description: text("Full name"), IsRequired: true},
								{ID: 301, Description: text("Position")},
							},
							Answers: []model.AdditionalAnswerGroup{
								{OrderIndex: 0, Answers: []model.AdditionalAnswer{
									{AdditionalAnswerID: 300, Answer: "Arman"},
									{AdditionalAnswerID: 301, Answer: "buyer"},
								}},
								{OrderIndex: 1, Answers: []model.AdditionalAnswer{
									{AdditionalAnswerID: 300, Answer: "Dana"},
									{AdditionalAnswerID: 301, Answer: ""},
								}},
							},
						},
					},
					{ID: 31, Description: text("Other")},
				},
			},
			{
				ID:           4,
				OrderNumber:  4,
				QuestionType: model.QuestionType("SLIDER"),
				Description:  text("Rate your exposure"),
				OptionsWithAnswers: []model.OptionWithAnswer{
					{ID: 40, Description: text("Scale")},
				},
			},
		},
	}
}

func entryFor(t *testing.T, sub model.Submission, optionID int64) model.SubmittedAnswer {
	t.Helper()
	var found []model.SubmittedAnswer
	for _, a := range sub.Answers {
		if a.OptionID == optionID {
			found = append(found, a)
		}
	}
	if len(found) != 1 {
		t.Fatalf("expected exactly one entry for option %d, got %d", optionID, len(found))
	}
	return found[0]
}
