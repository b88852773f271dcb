package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Submission is the flat payload accepted by the submission endpoint
type Submission struct {
	Answers []SubmittedAnswer `json:"answers"`
}

// SubmittedAnswer is one per-option entry. Which fields are present depends on
// the question kind, so encoding keeps absent fields absent and an explicit
// null answer as null.
type SubmittedAnswer struct {
	OptionID          int64
	IsAnswered        *bool
	Answer            OptionalString
	AdditionalAnswers []SubmittedGroup // nil is omitted, empty is []
}

type SubmittedGroup struct {
	Answers []AdditionalAnswer `json:"answers"`
}

// OptionalString tells an absent field apart from an explicit null
type OptionalString struct {
	Set   bool
	Value *string
}

// Some returns a present string value
func Some(s string) OptionalString {
	return OptionalString{Set: true, Value: &s}
}

// Null returns a present null value
func Null() OptionalString {
	return OptionalString{Set: true}
}

// Bool returns a pointer to b
func Bool(b bool) *bool {
	return &b
}

type wireAnswer struct {
	OptionID          int64             `json:"optionId"`
	IsAnswered        *bool             `json:"isAnswered,omitempty"`
	Answer            json.RawMessage   `json:"answer,omitempty"`
	AdditionalAnswers *[]SubmittedGroup `json:"additionalAnswers,omitempty"`
}

var jsonNull = []byte("null")

func (a SubmittedAnswer) MarshalJSON() ([]byte, error) {
	w := wireAnswer{
		OptionID:   a.OptionID,
		IsAnswered: a.IsAnswered,
	}
	if a.Answer.Set {
		if a.Answer.Value == nil {
			w.Answer = jsonNull
		} else {
			b, err := json.Marshal(*a.Answer.Value)
			if err != nil {
				return nil, err
			}
			w.Answer = b
		}
	}
	if a.AdditionalAnswers != nil {
		groups := a.AdditionalAnswers
		w.AdditionalAnswers = &groups
	}
	return json.Marshal(w)
}

func (a *SubmittedAnswer) UnmarshalJSON(data []byte) error {
	var w wireAnswer
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*a = SubmittedAnswer{
		OptionID:   w.OptionID,
		IsAnswered: w.IsAnswered,
	}
	if len(w.Answer) > 0 {
		if bytes.Equal(w.Answer, jsonNull) {
			a.Answer = Null()
		} else {
			var s string
			if err := json.Unmarshal(w.Answer, &s); err != nil {
				return fmt.Errorf("answer for option %d: %w", w.OptionID, err)
			}
			a.Answer = Some(s)
		}
	}
	if w.AdditionalAnswers != nil {
		a.AdditionalAnswers = *w.AdditionalAnswers
		if a.AdditionalAnswers == nil {
			a.AdditionalAnswers = []SubmittedGroup{}
		}
	}
	return nil
}
