package answers

// IsActive reports whether an option's additional-answer groups belong to the
// answer: the selected choice of a YES_NO question, the agreed option of an
// AGREE question, or an OPEN_ENDED field holding text. An empty string and a
// field that was never filled in are both inactive.
func IsActive(s QuestionState, optionID int64) bool {
	return Match[bool](s, activity(optionID))
}

type activity int64

func (a activity) VisitYesNo(s *YesNoState) bool {
	return s.SelectedOptionID != nil && *s.SelectedOptionID == int64(a)
}

func (a activity) VisitAgree(s *AgreeState) bool {
	return s.IsAgreed != nil && *s.IsAgreed
}

func (a activity) VisitOpenEnded(s *OpenEndedState) bool {
	text, ok := s.Answer(int64(a))
	return ok && text != ""
}
