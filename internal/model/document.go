package model

import "time"

// DeclarationAnswer is the declaration-answer document: a user's answers
// folded into the declaration schema they answer.
type DeclarationAnswer struct {
	ID                   string                `json:"id"`
	DeclarationID        int64                 `json:"declarationId"`
	DeclarationKind      DeclarationKind       `json:"declarationKind,omitempty"`
	User                 UserInfo              `json:"user"`
	Status               DeclarationStatus     `json:"status"`
	QuestionsWithAnswers []QuestionWithAnswers `json:"questionsWithAnswers"`
	ManagementPlan       *ManagementPlan       `json:"managementPlan,omitempty"`
	SubmittedAt          *time.Time            `json:"submittedAt,omitempty"`
	CreatedAt            time.Time             `json:"createdAt"`
	UpdatedAt            time.Time             `json:"updatedAt"`
}

// QuestionWithAnswers mirrors Question with the answering state of its options.
// QuestionType is kept as received so unknown kinds survive decoding.
type QuestionWithAnswers struct {
	ID                 int64              `json:"id"`
	OrderNumber        int                `json:"orderNumber"`
	QuestionType       QuestionType       `json:"questionType"`
	Description        LocalizedText      `json:"description"`
	Note               *LocalizedText     `json:"note,omitempty"`
	IsRequired         bool               `json:"isRequired"`
	OptionsWithAnswers []OptionWithAnswer `json:"optionsWithAnswers"`
}

// Option looks up an option of the question by ID
func (q *QuestionWithAnswers) Option(id int64) (*OptionWithAnswer, bool) {
	for i := range q.OptionsWithAnswers {
		if q.OptionsWithAnswers[i].ID == id {
			return &q.OptionsWithAnswers[i], true
		}
	}
	return nil, false
}

type OptionWithAnswer struct {
	ID                          int64              `json:"id"`
	Description                 LocalizedText      `json:"description"`
	AdditionalAnswerDescription *LocalizedText     `json:"additionalAnswerDescription"`
	MultipleAdditionalAnswers   bool               `json:"multipleAdditionalAnswers"`
	IsConflict                  bool               `json:"isConflict"`
	IsAnswered                  *bool              `json:"isAnswered"`
	Answer                      *string            `json:"answer"`
	AdditionalAnswers           *AdditionalAnswers `json:"additionalAnswers,omitempty"`
}

// HasAdditionalAnswers reports whether the option carries a follow-up definition
func (o *OptionWithAnswer) HasAdditionalAnswers() bool {
	return o.AdditionalAnswers != nil && len(o.AdditionalAnswers.Questions) > 0
}

// SubQuestion looks up an additional question by ID
func (o *OptionWithAnswer) SubQuestion(id int64) (*AdditionalQuestion, bool) {
	if o.AdditionalAnswers == nil {
		return nil, false
	}
	for i := range o.AdditionalAnswers.Questions {
		if o.AdditionalAnswers.Questions[i].ID == id {
			return &o.AdditionalAnswers.Questions[i], true
		}
	}
	return nil, false
}

// AdditionalAnswers holds the follow-up definition and the groups answered so far
type AdditionalAnswers struct {
	Questions []AdditionalQuestion    `json:"questions"`
	Answers   []AdditionalAnswerGroup `json:"answers"`
}

type AdditionalAnswerGroup struct {
	OrderIndex int                `json:"orderIndex"`
	Answers    []AdditionalAnswer `json:"answers"`
}

type AdditionalAnswer struct {
	AdditionalAnswerID int64  `json:"additionalAnswerId"`
	Answer             string `json:"answer"`
}

// ManagementPlan records the measures agreed for a declared conflict
type ManagementPlan struct {
	ID        string    `json:"id"`
	AnswerID  string    `json:"answerId"`
	Measures  []string  `json:"measures"`
	Comment   string    `json:"comment,omitempty"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// StatusChange is one routing decision in the review audit trail
type StatusChange struct {
	AnswerID  string            `json:"answerId"`
	From      DeclarationStatus `json:"from"`
	To        DeclarationStatus `json:"to"`
	ChangedBy string            `json:"changedBy"`
	Comment   string            `json:"comment,omitempty"`
	ChangedAt time.Time         `json:"changedAt"`
}
