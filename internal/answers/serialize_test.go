package answers

import (
	"encoding/json"
	"testing"

	"coiportal/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialize_RoundTrip(t *testing.T) {
	doc := testDocument()
	sub := Serialize(Project(doc), doc)

	require.Len(t, sub.Answers, 5)

	yes := entryFor(t, sub, 10)
	assert.Equal(t, model.Bool(true), yes.IsAnswered)
	assert.False(t, yes.Answer.Set)
	assert.Equal(t, []model.SubmittedGroup{
		{Answers: []model.AdditionalAnswer{{AdditionalAnswerID: 100, Answer: "Acme"}}},
	}, yes.AdditionalAnswers)

	no := entryFor(t, sub, 11)
	assert.Equal(t, model.Bool(false), no.IsAnswered)
	assert.Nil(t, no.AdditionalAnswers)

	agree := entryFor(t, sub, 20)
	assert.Equal(t, model.Bool(true), agree.IsAnswered)
	assert.Nil(t, agree.AdditionalAnswers)

	open := entryFor(t, sub, 30)
	assert.Nil(t, open.IsAnswered)
	assert.Equal(t, model.Some("brother in procurement"), open.Answer)
	require.Len(t, open.AdditionalAnswers, 2)
	assert.Equal(t, "Dana", open.AdditionalAnswers[1].Answers[0].Answer)

	other := entryFor(t, sub, 31)
	assert.Equal(t, model.Null(), other.Answer)
}

func TestSerialize_WireShape(t *testing.T) {
	doc := testDocument()
	sub := Serialize(Project(doc), doc)

	cases := map[int64]string{
		10: `{"optionId":10,"isAnswered":true,"additionalAnswers":[{"answers":[{"additionalAnswerId":100,"answer":"Acme"}]}]}`,
		11: `{"optionId":11,"isAnswered":false}`,
		20: `{"optionId":20,"isAnswered":true}`,
		31: `{"optionId":31,"answer":null}`,
	}
	for optionID, want := range cases {
		got, err := json.Marshal(entryFor(t, sub, optionID))
		require.NoError(t, err)
		assert.JSONEq(t, want, string(got), "option %d", optionID)
	}
}

func TestSerialize_ExhaustiveWithEmptyForm(t *testing.T) {
	doc := testDocument()
	sub := Serialize(&FormState{}, doc)

	require.Len(t, sub.Answers, 3, "YES_NO and AGREE options are always emitted; OPEN_ENDED follows form state")
	for _, id := range []int64{10, 11, 20} {
		entry := entryFor(t, sub, id)
		assert.Equal(t, model.Bool(false), entry.IsAnswered)
	}
	assert.Nil(t, entryFor(t, sub, 10).AdditionalAnswers)
}

func TestSerialize_ExhaustiveAcrossEdits(t *testing.T) {
	doc := testDocument()
	edits := []func(e *Editor) error{
		func(e *Editor) error { return nil },
		func(e *Editor) error { return e.SelectOption(1, 11) },
		func(e *Editor) error { return e.ClearSelection(1) },
		func(e *Editor) error { return e.SetAgreed(2, false) },
		func(e *Editor) error { return e.SetOpenEndedAnswer(3, 31, "cousin") },
	}

	for i, edit := range edits {
		e := NewEditor(testDocument())
		require.NoError(t, edit(e), "edit %d", i)

		sub := e.Submission()
		for _, q := range doc.QuestionsWithAnswers {
			if q.QuestionType != model.QuestionTypeYesNo && q.QuestionType != model.QuestionTypeAgree {
				continue
			}
			trueCount := 0
			for _, o := range q.OptionsWithAnswers {
				entry := entryFor(t, sub, o.ID)
				require.NotNil(t, entry.IsAnswered)
				if *entry.IsAnswered {
					trueCount++
				}
			}
			assert.LessOrEqual(t, trueCount, 1, "edit %d question %d", i, q.ID)
		}
	}
}

func TestSerialize_SingleSelectionExclusivity(t *testing.T) {
	e := NewEditor(testDocument())
	require.NoError(t, e.SelectOption(1, 11))

	sub := e.Submission()
	assert.Equal(t, model.Bool(true), entryFor(t, sub, 11).IsAnswered)

	previous := entryFor(t, sub, 10)
	assert.Equal(t, model.Bool(false), previous.IsAnswered)
	assert.Nil(t, previous.AdditionalAnswers, "deselected option drops its groups from the payload")

	held, _ := e.Form().Question(1)
	require.Len(t, held.Groups(10), 1, "groups stay in form state")
	assert.Equal(t, "Acme", held.Groups(10)[0].Answers[0].Answer)
}

func TestSerialize_SingleGroupOptionEmitsOneGroup(t *testing.T) {
	doc := testDocument()
	form := Project(doc)
	held, _ := form.Question(1)
	og := held.base().optionGroups(10, false)
	og.Groups = append(og.Groups, Group{Answers: []model.AdditionalAnswer{{AdditionalAnswerID: 100, Answer: "Second"}}})

	entry := entryFor(t, Serialize(form, doc), 10)
	require.Len(t, entry.AdditionalAnswers, 1)
	assert.Equal(t, "Acme", entry.AdditionalAnswers[0].Answers[0].Answer)
}

func TestSerialize_OpenEndedNullCoercion(t *testing.T) {
	e := NewEditor(testDocument())
	require.NoError(t, e.SetOpenEndedAnswer(3, 30, ""))

	entry := entryFor(t, e.Submission(), 30)
	assert.Equal(t, model.Null(), entry.Answer)
	require.Len(t, entry.AdditionalAnswers, 2)

	data, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"answer":null`)
	assert.NotContains(t, string(data), `"answer":""`)
}

func TestSerialize_OrphanTolerance(t *testing.T) {
	doc := testDocument()
	form := Project(doc)

	open := form.Questions[2].(*OpenEndedState)
	open.OpenEndedAnswers = append(open.OpenEndedAnswers, OpenEndedAnswer{OptionID: 999, Answer: "stale"})
	open.Groups(30)[0].Set(777, "stale sub-answer")

	var sub model.Submission
	var report Report
	require.NotPanics(t, func() { sub, report = SerializeWithReport(form, doc) })

	for _, a := range sub.Answers {
		assert.NotEqual(t, int64(999), a.OptionID)
	}
	assert.Equal(t, []int64{999}, report.OrphanedOptions)
	assert.Equal(t, 1, report.OrphanedSubAnswers)
	assert.Equal(t, 2, report.Orphans())
	assert.Equal(t, []model.QuestionType{"SLIDER"}, report.UnsupportedKinds)

	for _, g := range entryFor(t, sub, 30).AdditionalAnswers {
		for _, a := range g.Answers {
			assert.NotEqual(t, int64(777), a.AdditionalAnswerID)
		}
	}
}

func TestSerialize_StaleSelection(t *testing.T) {
	doc := testDocument()
	form := Project(doc)
	stale := int64(999)
	form.Questions[0].(*YesNoState).SelectedOptionID = &stale

	sub := Serialize(form, doc)
	assert.Equal(t, model.Bool(false), entryFor(t, sub, 10).IsAnswered)
	assert.Equal(t, model.Bool(false), entryFor(t, sub, 11).IsAnswered)
}

func TestSerialize_KindMismatchFallsBackToEmptyState(t *testing.T) {
	doc := testDocument()
	form := Project(doc)
	agreed := true
	form.Questions[0] = &AgreeState{questionBase: questionBase{ID: 1}, IsAgreed: &agreed}

	sub := Serialize(form, doc)
	assert.Equal(t, model.Bool(false), entryFor(t, sub, 10).IsAnswered)
	assert.Equal(t, model.Bool(false), entryFor(t, sub, 11).IsAnswered)
}

func TestSerialize_NilDocument(t *testing.T) {
	sub := Serialize(Project(nil), nil)
	assert.NotNil(t, sub.Answers)
	assert.Empty(t, sub.Answers)
}

func TestSubmittedAnswer_DecodePreservesNull(t *testing.T) {
	var sub model.Submission
	payload := `{"answers":[{"optionId":7,"answer":null,"additionalAnswers":[]},{"optionId":8,"isAnswered":true}]}`
	require.NoError(t, json.Unmarshal([]byte(payload), &sub))

	require.Len(t, sub.Answers, 2)
	assert.Equal(t, model.Null(), sub.Answers[0].Answer)
	assert.Equal(t, []model.SubmittedGroup{}, sub.Answers[0].AdditionalAnswers)
	assert.False(t, sub.Answers[1].Answer.Set)
	assert.Nil(t, sub.Answers[1].AdditionalAnswers)
}

func TestSerialize_DropsGroupEmptiedByOrphans(t *testing.T) {
	doc := testDocument()
	form := Project(doc)
	open := form.Questions[2].(*OpenEndedState)
	og := open.optionGroups(30, false)
	og.Groups = append(og.Groups, Group{Answers: []model.AdditionalAnswer{{AdditionalAnswerID: 777, Answer: "stale"}}})
	og.Groups = append(og.Groups, Group{Answers: []model.AdditionalAnswer{}})

	sub, report := SerializeWithReport(form, doc)
	groups := entryFor(t, sub, 30).AdditionalAnswers
	require.Len(t, groups, 3, "two stored groups plus the empty one")
	assert.Empty(t, groups[2].Answers)
	assert.Equal(t, 1, report.OrphanedSubAnswers)
}
