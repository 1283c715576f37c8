package ai

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"adaptive-quiz-service/internal/domain"
)

// Source text caps keep prompts inside the model's comfortable context.
const (
	quizSourceCap        = 30000
	explanationSourceCap = 28000
)

const quizSystemPrompt = `You are a multilingual quiz generation assistant. Analyze the provided text, automatically detect its language, and generate a quiz strictly in that same language. Do not translate any part of the quiz.

Respond with pure, valid JSON only, no text outside the JSON, matching this shape:
{
  "multipleChoiceQuestions": [{"question": "...", "options": ["...","...","...","..."], "correctAnswer": "...", "topic": "..."}],
  "trueFalseQuestions": [{"question": "...", "correctAnswer": true, "topic": "..."}],
  "fillInTheBlankQuestions": [{"question": "question with '____' placeholder", "correctAnswer": "...", "topic": "..."}],
  "matchingQuestions": [{"title": "...", "pairs": [{"prompt": "...", "answer": "..."}], "topic": "..."}],
  "shortAnswerQuestions": [{"question": "...", "idealAnswer": "...", "topic": "..."}]
}
Every array must be present, possibly empty. Multiple-choice questions carry exactly 4 options. Each question's "topic" is a one or two-word label.`

const explanationSystemPrompt = `You are a multilingual teaching assistant. Detect the language of the provided text, question, and answers, and write your entire explanation strictly in that same language. Do not translate.`

const analysisSystemPrompt = `You are a multilingual performance analyst. Detect the language of the quiz questions and topics in the history and write your entire analysis strictly in that same language. Do not translate.

Respond with pure, valid JSON only:
{"strengths": ["..."], "weaknesses": ["..."], "recommendations": "..."}
"strengths" and "weaknesses" each list 2-3 topics or concepts; "recommendations" is one concise, encouraging paragraph specific to the weaknesses.`

func buildQuizPrompt(sourceText string, difficulty domain.Difficulty, prior []domain.Quiz, questionCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the following text, generate a comprehensive quiz of %s difficulty with a total of exactly %d questions.\n\n", difficulty, questionCount)
	b.WriteString("Create a good mix of multiple-choice, true/false, fill-in-the-blank, a single matching set (if appropriate for the total), and short-answer questions. ")
	fmt.Fprintf(&b, "The total number of items across all question arrays must equal %d; one matching set counts as 1.\n\n", questionCount)
	b.WriteString("Text:\n---\n")
	b.WriteString(truncate(sourceText, quizSourceCap))
	b.WriteString("\n---\n")
	if asked := priorQuestionTexts(prior); len(asked) > 0 {
		listing, _ := json.Marshal(asked)
		fmt.Fprintf(&b, "\nDo not generate questions conceptually identical to these already-asked questions: %s\n", listing)
	}
	return b.String()
}

// priorQuestionTexts collects every question text from past quizzes, including
// matching pair prompts, for the deduplication clause.
func priorQuestionTexts(prior []domain.Quiz) []string {
	var asked []string
	for _, quiz := range prior {
		for _, q := range quiz.MultipleChoice {
			asked = append(asked, q.Question)
		}
		for _, q := range quiz.TrueFalse {
			asked = append(asked, q.Question)
		}
		for _, q := range quiz.FillInTheBlank {
			asked = append(asked, q.Question)
		}
		for _, q := range quiz.Matching {
			for _, pair := range q.Pairs {
				asked = append(asked, pair.Prompt)
			}
		}
		for _, q := range quiz.ShortAnswer {
			asked = append(asked, q.Question)
		}
	}
	return asked
}

func buildExplanationPrompt(sourceText string, question domain.TaggedQuestion, answer domain.Answer) string {
	var b strings.Builder
	b.WriteString("The user is taking a quiz in the language of the source text below. Explain one quiz answer.\n\n")
	b.WriteString("Source Text:\n---\n")
	b.WriteString(truncate(sourceText, explanationSourceCap))
	b.WriteString("\n---\n\n")
	fmt.Fprintf(&b, "Question: %q\n", question.Prompt())
	fmt.Fprintf(&b, "The correct answer is: %q\n", referenceAnswer(question))
	fmt.Fprintf(&b, "The user answered: %q\n\n", describeAnswer(question.Kind, answer))
	b.WriteString("Write a concise, 2-3 sentence explanation based on the source text. If the user was correct, explain why. If not, explain why the correct answer is right and the user's answer is wrong.")
	return b.String()
}

// referenceAnswer is the gradable answer for objective kinds and the ideal or
// provided matches otherwise.
func referenceAnswer(question domain.TaggedQuestion) string {
	switch question.Kind {
	case domain.KindMultipleChoice:
		return question.MultipleChoice.CorrectAnswer
	case domain.KindTrueFalse:
		return strconv.FormatBool(question.TrueFalse.CorrectAnswer)
	case domain.KindFillInBlank:
		return question.FillInTheBlank.CorrectAnswer
	case domain.KindShortAnswer:
		return question.ShortAnswer.IdealAnswer
	case domain.KindMatching:
		return "the provided matches"
	}
	return ""
}

func describeAnswer(kind domain.Kind, answer domain.Answer) string {
	switch kind {
	case domain.KindTrueFalse:
		if answer.Flag == nil {
			return "no answer"
		}
		return strconv.FormatBool(*answer.Flag)
	case domain.KindMatching:
		parts := make([]string, 0, len(answer.Pairs))
		for _, pair := range answer.Pairs {
			parts = append(parts, pair.Prompt+" -> "+pair.Answer)
		}
		return strings.Join(parts, "; ")
	default:
		return answer.Text
	}
}

func buildAnalysisPrompt(history []domain.HistoryItem) string {
	sanitized := sanitizeHistory(history)
	listing, _ := json.Marshal(sanitized)
	var b strings.Builder
	b.WriteString("Analyze the user's quiz performance history. Answers are in 'userA', correct answers in 'correctA'. Identify strengths and weaknesses from the topics answered right or wrong.\n\n")
	b.WriteString("History:\n---\n")
	b.Write(listing)
	b.WriteString("\n---\n")
	return b.String()
}

type analyzedQuestion struct {
	Question string `json:"q"`
	Topic    string `json:"topic"`
	UserA    string `json:"userA"`
	CorrectA string `json:"correctA"`
}

type analyzedSession struct {
	Difficulty domain.Difficulty  `json:"difficulty"`
	Score      *domain.Score      `json:"score,omitempty"`
	Questions  []analyzedQuestion `json:"questions"`
}

// sanitizeHistory keeps only the objective questions and answers the analyst
// needs, dropping explanations and full quiz bodies.
func sanitizeHistory(history []domain.HistoryItem) []analyzedSession {
	sessions := make([]analyzedSession, 0, len(history))
	for _, item := range history {
		s := analyzedSession{Difficulty: item.Difficulty, Score: item.Score}
		for i, q := range item.Quiz.MultipleChoice {
			s.Questions = append(s.Questions, analyzedQuestion{
				Question: q.Question,
				Topic:    q.Topic,
				UserA:    indexOrEmpty(item.UserAnswers.MultipleChoice, i),
				CorrectA: q.CorrectAnswer,
			})
		}
		for i, q := range item.Quiz.TrueFalse {
			userA := "no answer"
			if i < len(item.UserAnswers.TrueFalse) && item.UserAnswers.TrueFalse[i] != nil {
				userA = strconv.FormatBool(*item.UserAnswers.TrueFalse[i])
			}
			s.Questions = append(s.Questions, analyzedQuestion{
				Question: q.Question,
				Topic:    q.Topic,
				UserA:    userA,
				CorrectA: strconv.FormatBool(q.CorrectAnswer),
			})
		}
		for i, q := range item.Quiz.FillInTheBlank {
			s.Questions = append(s.Questions, analyzedQuestion{
				Question: q.Question,
				Topic:    q.Topic,
				UserA:    indexOrEmpty(item.UserAnswers.FillInTheBlank, i),
				CorrectA: q.CorrectAnswer,
			})
		}
		sessions = append(sessions, s)
	}
	return sessions
}

func indexOrEmpty(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
