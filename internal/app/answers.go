package app

import "adaptive-quiz-service/internal/domain"

// NewAnswerSet builds an empty answer set sized to the quiz: one slot per
// question per kind, each initialized to its kind's empty value. Matching
// slots are pre-sized to their question's pair count so recorded pairs line up
// with the question's pairs by position.
func NewAnswerSet(quiz domain.Quiz) domain.AnswerSet {
	matching := make([]domain.MatchingAnswer, len(quiz.Matching))
	for i, q := range quiz.Matching {
		matching[i] = domain.MatchingAnswer{Pairs: make([]domain.MatchingPair, len(q.Pairs))}
	}
	return domain.AnswerSet{
		MultipleChoice: make([]string, len(quiz.MultipleChoice)),
		TrueFalse:      make([]*bool, len(quiz.TrueFalse)),
		FillInTheBlank: make([]string, len(quiz.FillInTheBlank)),
		Matching:       matching,
		ShortAnswer:    make([]string, len(quiz.ShortAnswer)),
	}
}

// Record writes the answer into the slot addressed by the question's kind and
// original-kind index. Slices are pre-sized by NewAnswerSet, so an
// out-of-range index is a programming error and panics like any slice write.
func Record(set *domain.AnswerSet, question domain.TaggedQuestion, answer domain.Answer) {
	switch question.Kind {
	case domain.KindMultipleChoice:
		set.MultipleChoice[question.Index] = answer.Text
	case domain.KindTrueFalse:
		set.TrueFalse[question.Index] = answer.Flag
	case domain.KindFillInBlank:
		set.FillInTheBlank[question.Index] = answer.Text
	case domain.KindMatching:
		set.Matching[question.Index] = domain.MatchingAnswer{Pairs: answer.Pairs}
	case domain.KindShortAnswer:
		set.ShortAnswer[question.Index] = answer.Text
	}
}

// Recorded reads back the answer stored for the question, as an Answer.
func Recorded(set domain.AnswerSet, question domain.TaggedQuestion) domain.Answer {
	switch question.Kind {
	case domain.KindMultipleChoice:
		return domain.Answer{Text: set.MultipleChoice[question.Index]}
	case domain.KindTrueFalse:
		return domain.Answer{Flag: set.TrueFalse[question.Index]}
	case domain.KindFillInBlank:
		return domain.Answer{Text: set.FillInTheBlank[question.Index]}
	case domain.KindMatching:
		return domain.Answer{Pairs: set.Matching[question.Index].Pairs}
	case domain.KindShortAnswer:
		return domain.Answer{Text: set.ShortAnswer[question.Index]}
	}
	return domain.Answer{}
}

// emptyAnswer is the auto-submit value when a timed question expires with no
// draft: unanswered true/false, empty strings, all-empty matching pairs.
func emptyAnswer(question domain.TaggedQuestion) domain.Answer {
	if question.Kind == domain.KindMatching {
		return domain.Answer{Pairs: make([]domain.MatchingPair, len(question.Matching.Pairs))}
	}
	return domain.Answer{}
}
