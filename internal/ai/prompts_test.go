package ai

import (
	"strings"
	"testing"

	"adaptive-quiz-service/internal/domain"
)

func TestBuildQuizPromptTruncatesSource(t *testing.T) {
	long := strings.Repeat("a", quizSourceCap+500)
	prompt := buildQuizPrompt(long, domain.DifficultyMedium, nil, 10)
	if strings.Contains(prompt, long) {
		t.Fatal("source text must be capped")
	}
	if !strings.Contains(prompt, long[:quizSourceCap]) {
		t.Fatal("the capped prefix must survive")
	}
	if !strings.Contains(prompt, "exactly 10 questions") {
		t.Fatal("question count missing from prompt")
	}
	if strings.Contains(prompt, "already-asked") {
		t.Fatal("no dedup clause without prior quizzes")
	}
}

func TestBuildQuizPromptListsPriorQuestions(t *testing.T) {
	prior := []domain.Quiz{
		{
			MultipleChoice: []domain.MultipleChoiceQuestion{
				{Question: "capital of France", CorrectAnswer: "Paris"},
			},
			Matching: []domain.MatchingQuestion{
				{Title: "match terms", Pairs: []domain.MatchingPair{
					{Prompt: "H2O", Answer: "water"},
				}},
			},
		},
	}
	prompt := buildQuizPrompt("text", domain.DifficultyEasy, prior, 5)
	if !strings.Contains(prompt, "capital of France") {
		t.Fatal("prior question missing from dedup clause")
	}
	if !strings.Contains(prompt, "H2O") {
		t.Fatal("matching pair prompts must join the dedup clause")
	}
}

func TestBuildExplanationPromptPerKind(t *testing.T) {
	no := false
	q := domain.TaggedQuestion{
		Kind:      domain.KindTrueFalse,
		UID:       "tf-0",
		TrueFalse: &domain.TrueFalseQuestion{Question: "sky is green", CorrectAnswer: false},
	}
	prompt := buildExplanationPrompt("source", q, domain.Answer{Flag: &no})
	if !strings.Contains(prompt, `The correct answer is: "false"`) {
		t.Fatalf("reference answer missing: %s", prompt)
	}
	if !strings.Contains(prompt, `The user answered: "false"`) {
		t.Fatalf("user answer missing: %s", prompt)
	}

	unanswered := buildExplanationPrompt("source", q, domain.Answer{})
	if !strings.Contains(unanswered, `"no answer"`) {
		t.Fatal("nil flag must read as no answer")
	}

	matching := domain.TaggedQuestion{
		Kind: domain.KindMatching,
		UID:  "matching-0",
		Matching: &domain.MatchingQuestion{Title: "match", Pairs: []domain.MatchingPair{
			{Prompt: "H2O", Answer: "water"},
		}},
	}
	prompt = buildExplanationPrompt("source", matching, domain.Answer{Pairs: []domain.MatchingPair{
		{Prompt: "H2O", Answer: "salt"},
	}})
	if !strings.Contains(prompt, "H2O -> salt") {
		t.Fatalf("matching answer missing: %s", prompt)
	}
}

func TestSanitizeHistoryKeepsObjectiveKindsOnly(t *testing.T) {
	yes := true
	history := []domain.HistoryItem{
		{
			Difficulty: domain.DifficultyMedium,
			Quiz: domain.Quiz{
				MultipleChoice: []domain.MultipleChoiceQuestion{
					{Question: "mcq", Topic: "Geo", CorrectAnswer: "a"},
				},
				TrueFalse: []domain.TrueFalseQuestion{
					{Question: "tf", Topic: "Sci", CorrectAnswer: true},
				},
				ShortAnswer: []domain.ShortAnswerQuestion{
					{Question: "sa", IdealAnswer: "long prose"},
				},
			},
			UserAnswers: domain.AnswerSet{
				MultipleChoice: []string{"b"},
				TrueFalse:      []*bool{&yes},
			},
			Explanations: map[string]string{"mcq-0": "secret"},
		},
	}

	sessions := sanitizeHistory(history)
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if len(sessions[0].Questions) != 2 {
		t.Fatalf("expected mcq and tf only, got %d questions", len(sessions[0].Questions))
	}
	if sessions[0].Questions[0].UserA != "b" || sessions[0].Questions[0].CorrectA != "a" {
		t.Fatalf("unexpected mcq row: %+v", sessions[0].Questions[0])
	}
	if sessions[0].Questions[1].UserA != "true" {
		t.Fatalf("unexpected tf row: %+v", sessions[0].Questions[1])
	}

	prompt := buildAnalysisPrompt(history)
	if strings.Contains(prompt, "secret") || strings.Contains(prompt, "long prose") {
		t.Fatal("explanations and short answers must not reach the analyst")
	}
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}\n```":     `{"a":1}`,
		`{"a":1}`:                 `{"a":1}`,
	}
	for in, want := range cases {
		if got := strings.TrimSpace(stripFences(in)); got != want {
			t.Fatalf("stripFences(%q) = %q, want %q", in, got, want)
		}
	}
}
