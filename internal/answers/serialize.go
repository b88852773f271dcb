package answers

import "coiportal/internal/model"

// Report lists what the serializer dropped because the document no longer
// knows about it.
type Report struct {
	OrphanedOptions    []int64
	OrphanedSubAnswers int
	UnsupportedKinds   []model.QuestionType
}

// Orphans is the total number of entries skipped for schema mismatch
func (r Report) Orphans() int {
	return len(r.OrphanedOptions) + r.OrphanedSubAnswers
}

// Serialize converts edited form state into the submission payload
func Serialize(form *FormState, doc *model.DeclarationAnswer) model.Submission {
	sub, _ := SerializeWithReport(form, doc)
	return sub
}

// SerializeWithReport walks every question of the original document, so that
// each YES_NO and AGREE option gets exactly one entry even when the user never
// touched it. OPEN_ENDED questions emit one entry per option held in form
// state; entries whose option is gone from the document are skipped.
func SerializeWithReport(form *FormState, doc *model.DeclarationAnswer) (model.Submission, Report) {
	sub := model.Submission{Answers: []model.SubmittedAnswer{}}
	var report Report
	if doc == nil {
		return sub, report
	}

	for i := range doc.QuestionsWithAnswers {
		q := &doc.QuestionsWithAnswers[i]
		s, err := StateFor(form, q)
		if err != nil {
			report.UnsupportedKinds = append(report.UnsupportedKinds, q.QuestionType)
			continue
		}
		e := &emitter{question: q, report: &report}
		sub.Answers = append(sub.Answers, Match[[]model.SubmittedAnswer](s, e)...)
	}
	return sub, report
}

type emitter struct {
	question *model.QuestionWithAnswers
	report   *Report
}

func (e *emitter) VisitYesNo(s *YesNoState) []model.SubmittedAnswer {
	out := make([]model.SubmittedAnswer, 0, len(e.question.OptionsWithAnswers))
	for i := range e.question.OptionsWithAnswers {
		o := &e.question.OptionsWithAnswers[i]
		if s.SelectedOptionID != nil && *s.SelectedOptionID == o.ID {
			out = append(out, model.SubmittedAnswer{
				OptionID:          o.ID,
				IsAnswered:        model.Bool(true),
				AdditionalAnswers: e.groups(s, o),
			})
			continue
		}
		out = append(out, model.SubmittedAnswer{OptionID: o.ID, IsAnswered: model.Bool(false)})
	}
	return out
}

func (e *emitter) VisitAgree(s *AgreeState) []model.SubmittedAnswer {
	out := make([]model.SubmittedAnswer, 0, len(e.question.OptionsWithAnswers))
	for i := range e.question.OptionsWithAnswers {
		o := &e.question.OptionsWithAnswers[i]
		if i > 0 {
			// malformed schema; keep the payload exhaustive
			out = append(out, model.SubmittedAnswer{OptionID: o.ID, IsAnswered: model.Bool(false)})
			continue
		}
		agreed := s.IsAgreed != nil && *s.IsAgreed
		out = append(out, model.SubmittedAnswer{
			OptionID:          o.ID,
			IsAnswered:        model.Bool(agreed),
			AdditionalAnswers: e.groups(s, o),
		})
	}
	return out
}

func (e *emitter) VisitOpenEnded(s *OpenEndedState) []model.SubmittedAnswer {
	out := make([]model.SubmittedAnswer, 0, len(s.OpenEndedAnswers))
	emitted := make(map[int64]bool, len(s.OpenEndedAnswers))
	for _, a := range s.OpenEndedAnswers {
		o, ok := e.question.Option(a.OptionID)
		if !ok {
			e.report.OrphanedOptions = append(e.report.OrphanedOptions, a.OptionID)
			continue
		}
		if emitted[o.ID] {
			continue
		}
		emitted[o.ID] = true

		answer := model.Null()
		if a.Answer != "" {
			answer = model.Some(a.Answer)
		}
		out = append(out, model.SubmittedAnswer{
			OptionID:          o.ID,
			Answer:            answer,
			AdditionalAnswers: e.groups(s, o),
		})
	}
	return out
}

// groups returns nil for options without a follow-up definition. Sub-answers
// to sub-questions the definition no longer has are dropped, along with a group
// left with nothing after that. An option that disallows multiple groups never
// emits more than one.
func (e *emitter) groups(s QuestionState, o *model.OptionWithAnswer) []model.SubmittedGroup {
	if o.AdditionalAnswers == nil {
		return nil
	}
	held := s.Groups(o.ID)
	if !o.MultipleAdditionalAnswers && len(held) > 1 {
		held = held[:1]
	}

	out := make([]model.SubmittedGroup, 0, len(held))
	for _, g := range held {
		sg := model.SubmittedGroup{Answers: make([]model.AdditionalAnswer, 0, len(g.Answers))}
		for _, a := range g.Answers {
			if _, ok := o.SubQuestion(a.AdditionalAnswerID); !ok {
				e.report.OrphanedSubAnswers++
				continue
			}
			sg.Answers = append(sg.Answers, a)
		}
		if len(g.Answers) > 0 && len(sg.Answers) == 0 {
			continue
		}
		out = append(out, sg)
	}
	return out
}
