package render

import (
	"coiportal/internal/answers"
	"coiportal/internal/model"
)

// View is the renderable description of one declaration-answer edit session
type View struct {
	DeclarationAnswerID string                   `json:"declarationAnswerId"`
	Status              model.DeclarationStatus  `json:"status"`
	ReadOnly            bool                     `json:"readOnly"`
	Questions           []QuestionView           `json:"questions"`
	Errors              answers.ValidationErrors `json:"errors,omitempty"`
}

type QuestionView struct {
	Index        int                  `json:"index"`
	QuestionID   int64                `json:"questionId"`
	OrderNumber  int                  `json:"orderNumber"`
	QuestionType model.QuestionType   `json:"questionType"`
	Description  model.LocalizedText  `json:"description"`
	Note         *model.LocalizedText `json:"note,omitempty"`
	IsRequired   bool                 `json:"isRequired"`
	Widget       Widget               `json:"widget"`
}

// Widget is the kind-specific display strategy of a question
type Widget interface {
	WidgetType() string
}

const (
	WidgetChoice      = "choice"
	WidgetToggle      = "toggle"
	WidgetTextFields  = "text_fields"
	WidgetUnsupported = "unsupported"
)

// ChoiceWidget renders a YES_NO question as a single-selection control
type ChoiceWidget struct {
	Type             string         `json:"type"`
	SelectedOptionID *int64         `json:"selectedOptionId"`
	Options          []ChoiceOption `json:"options"`
}

type ChoiceOption struct {
	OptionID    int64               `json:"optionId"`
	Description model.LocalizedText `json:"description"`
	IsConflict  bool                `json:"isConflict"`
	Selected    bool                `json:"selected"`
	Groups      *GroupList          `json:"groups,omitempty"`
}

// ToggleWidget renders an AGREE question as one agreement switch
type ToggleWidget struct {
	Type        string              `json:"type"`
	OptionID    int64               `json:"optionId"`
	Description model.LocalizedText `json:"description"`
	Agreed      bool                `json:"agreed"`
	Groups      *GroupList          `json:"groups,omitempty"`
}

// TextFieldsWidget renders an OPEN_ENDED question as one text field per option
type TextFieldsWidget struct {
	Type   string      `json:"type"`
	Fields []TextField `json:"fields"`
}

type TextField struct {
	OptionID    int64               `json:"optionId"`
	Description model.LocalizedText `json:"description"`
	Value       string              `json:"value"`
	Groups      *GroupList          `json:"groups,omitempty"`
}

// UnsupportedWidget is the visible placeholder for a kind the portal cannot render
type UnsupportedWidget struct {
	Type         string `json:"type"`
	QuestionType string `json:"questionType"`
	Message      string `json:"message"`
}

func (ChoiceWidget) WidgetType() string      { return WidgetChoice }
func (ToggleWidget) WidgetType() string      { return WidgetToggle }
func (TextFieldsWidget) WidgetType() string  { return WidgetTextFields }
func (UnsupportedWidget) WidgetType() string { return WidgetUnsupported }

// GroupList is the mounted, editable list of additional-answer groups of an option
type GroupList struct {
	OptionID     int64                      `json:"optionId"`
	Description  *model.LocalizedText       `json:"description,omitempty"`
	Multiple     bool                       `json:"multiple"`
	SubQuestions []model.AdditionalQuestion `json:"subQuestions"`
	Groups       []GroupView                `json:"groups"`
	CanAdd       bool                       `json:"canAdd"`
	CanRemove    bool                       `json:"canRemove"`
}

type GroupView struct {
	Index   int             `json:"index"`
	Answers []SubAnswerView `json:"answers"`
}

type SubAnswerView struct {
	AdditionalAnswerID int64               `json:"additionalAnswerId"`
	Description        model.LocalizedText `json:"description"`
	IsRequired         bool                `json:"isRequired"`
	Value              string              `json:"value"`
}
