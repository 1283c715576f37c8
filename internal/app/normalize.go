package app

import (
	"fmt"

	"adaptive-quiz-service/internal/domain"
)

// Flatten merges the quiz's per-kind collections into one presentation
// sequence, grouped in fixed kind order. Each item keeps the index it had in
// its original same-kind collection; the merged position is display order only.
func Flatten(quiz domain.Quiz) []domain.TaggedQuestion {
	out := make([]domain.TaggedQuestion, 0, quiz.Len())
	for i := range quiz.MultipleChoice {
		out = append(out, domain.TaggedQuestion{
			Kind:           domain.KindMultipleChoice,
			UID:            uid(domain.KindMultipleChoice, i),
			Index:          i,
			MultipleChoice: &quiz.MultipleChoice[i],
		})
	}
	for i := range quiz.TrueFalse {
		out = append(out, domain.TaggedQuestion{
			Kind:      domain.KindTrueFalse,
			UID:       uid(domain.KindTrueFalse, i),
			Index:     i,
			TrueFalse: &quiz.TrueFalse[i],
		})
	}
	for i := range quiz.FillInTheBlank {
		out = append(out, domain.TaggedQuestion{
			Kind:           domain.KindFillInBlank,
			UID:            uid(domain.KindFillInBlank, i),
			Index:          i,
			FillInTheBlank: &quiz.FillInTheBlank[i],
		})
	}
	for i := range quiz.Matching {
		out = append(out, domain.TaggedQuestion{
			Kind:     domain.KindMatching,
			UID:      uid(domain.KindMatching, i),
			Index:    i,
			Matching: &quiz.Matching[i],
		})
	}
	for i := range quiz.ShortAnswer {
		out = append(out, domain.TaggedQuestion{
			Kind:        domain.KindShortAnswer,
			UID:         uid(domain.KindShortAnswer, i),
			Index:       i,
			ShortAnswer: &quiz.ShortAnswer[i],
		})
	}
	return out
}

func uid(kind domain.Kind, index int) string {
	return fmt.Sprintf("%s-%d", kind, index)
}
