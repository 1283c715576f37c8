package app

import (
	"strconv"
	"strings"

	"adaptive-quiz-service/internal/domain"
)

// pointsByDifficulty is the fixed award per correct objective answer.
var pointsByDifficulty = map[domain.Difficulty]int{
	domain.DifficultyEasy:   10,
	domain.DifficultyMedium: 15,
	domain.DifficultyHard:   20,
}

// Points returns the award for one correct objective answer at the given
// difficulty. Unknown difficulties fall back to the Medium tier.
func Points(d domain.Difficulty) int {
	if p, ok := pointsByDifficulty[d]; ok {
		return p
	}
	return pointsByDifficulty[domain.DifficultyMedium]
}

// Evaluate grades an objective question against a submitted answer. It is pure
// and deterministic. Matching and short-answer questions are never auto-graded
// and always evaluate to false; callers must not count them toward the score.
func Evaluate(question domain.TaggedQuestion, answer domain.Answer) bool {
	switch question.Kind {
	case domain.KindMultipleChoice:
		return answer.Text == question.MultipleChoice.CorrectAnswer
	case domain.KindTrueFalse:
		if answer.Flag == nil {
			return false
		}
		return strconv.FormatBool(*answer.Flag) == strconv.FormatBool(question.TrueFalse.CorrectAnswer)
	case domain.KindFillInBlank:
		return foldBlank(answer.Text) == foldBlank(question.FillInTheBlank.CorrectAnswer)
	}
	return false
}

// foldBlank normalizes fill-in-the-blank text: grading tolerates case and
// surrounding whitespace.
func foldBlank(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
