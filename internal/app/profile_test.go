package app_test

import (
	"encoding/json"
	"testing"
	"time"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
)

func TestRankPlayersByCorrectThenPoints(t *testing.T) {
	players := []domain.PlayerState{
		{Name: "Alice", Score: domain.Score{Correct: 1, Total: 3}, Points: 40},
		{Name: "Bob", Score: domain.Score{Correct: 2, Total: 3}, Points: 20},
		{Name: "Cara", Score: domain.Score{Correct: 1, Total: 3}, Points: 10},
	}
	ranked := app.RankPlayers(players)
	if ranked[0].Name != "Bob" {
		t.Fatalf("expected Bob first, got %q", ranked[0].Name)
	}
	if ranked[1].Name != "Alice" || ranked[2].Name != "Cara" {
		t.Fatalf("points should break the tie: %q then %q", ranked[1].Name, ranked[2].Name)
	}
}

func TestAccumulateStatsRegradesObjectiveKinds(t *testing.T) {
	quiz := domain.Quiz{
		MultipleChoice: []domain.MultipleChoiceQuestion{
			{Question: "q0", Options: []string{"a", "b"}, CorrectAnswer: "a"},
			{Question: "q1", Options: []string{"a", "b"}, CorrectAnswer: "b"},
		},
		TrueFalse: []domain.TrueFalseQuestion{
			{Question: "q2", CorrectAnswer: true},
		},
		ShortAnswer: []domain.ShortAnswerQuestion{
			{Question: "q3", IdealAnswer: "whatever"},
		},
	}
	yes := true
	answers := domain.AnswerSet{
		MultipleChoice: []string{"a", "a"},
		TrueFalse:      []*bool{&yes},
		ShortAnswer:    []string{"something"},
	}

	stats := domain.PerformanceStats{}
	app.AccumulateStats(stats, quiz, answers)

	if got := stats[domain.KindMultipleChoice]; got.Correct != 1 || got.Total != 2 {
		t.Fatalf("mcq: expected 1/2, got %+v", got)
	}
	if got := stats[domain.KindTrueFalse]; got.Correct != 1 || got.Total != 1 {
		t.Fatalf("tf: expected 1/1, got %+v", got)
	}
	if _, ok := stats[domain.KindShortAnswer]; ok {
		t.Fatal("short answer must not enter the stats")
	}
}

func TestApplySessionSingleMode(t *testing.T) {
	profile := domain.NewUserProfile()
	score := domain.Score{Correct: 2, Total: 3}
	item := domain.HistoryItem{
		Quiz: domain.Quiz{
			MultipleChoice: []domain.MultipleChoiceQuestion{
				{Question: "q", Options: []string{"a", "b"}, CorrectAnswer: "a"},
			},
		},
		UserAnswers:  domain.AnswerSet{MultipleChoice: []string{"a"}},
		GameMode:     domain.ModeSingle,
		Score:        &score,
		PointsEarned: 30,
	}

	app.ApplySession(&profile, item, 2)
	if len(profile.History) != 1 {
		t.Fatalf("expected 1 history item, got %d", len(profile.History))
	}
	if profile.Points != 30 || profile.LongestStreak != 2 {
		t.Fatalf("expected 30 points and streak 2, got %d and %d", profile.Points, profile.LongestStreak)
	}

	// A worse streak later never lowers the record.
	app.ApplySession(&profile, item, 1)
	if profile.LongestStreak != 2 {
		t.Fatalf("longest streak regressed to %d", profile.LongestStreak)
	}
}

func TestApplySessionMultiplayerOnlyAppendsHistory(t *testing.T) {
	profile := domain.NewUserProfile()
	item := domain.HistoryItem{
		Quiz: domain.Quiz{
			MultipleChoice: []domain.MultipleChoiceQuestion{
				{Question: "q", Options: []string{"a", "b"}, CorrectAnswer: "a"},
			},
		},
		UserAnswers: domain.AnswerSet{MultipleChoice: []string{"a"}},
		GameMode:    domain.ModeMultiplayer,
		MultiplayerResults: []domain.MultiplayerResult{
			{Name: "Alice", Score: domain.Score{Correct: 1, Total: 1}, Points: 15},
		},
	}

	app.ApplySession(&profile, item, 5)
	if len(profile.History) != 1 {
		t.Fatalf("expected 1 history item, got %d", len(profile.History))
	}
	if profile.Points != 0 || profile.LongestStreak != 0 || len(profile.Stats) != 0 {
		t.Fatal("multiplayer sessions must not touch single-player aggregates")
	}
}

func TestAnalysisDueEveryThirdSingleSession(t *testing.T) {
	cases := []struct {
		mode       domain.GameMode
		historyLen int
		want       bool
	}{
		{domain.ModeSingle, 0, false},
		{domain.ModeSingle, 1, false},
		{domain.ModeSingle, 3, true},
		{domain.ModeSingle, 6, true},
		{domain.ModeSingle, 7, false},
		{domain.ModeMultiplayer, 3, false},
	}
	for _, c := range cases {
		if got := app.AnalysisDue(c.mode, c.historyLen); got != c.want {
			t.Fatalf("%s len=%d: expected %v, got %v", c.mode, c.historyLen, c.want, got)
		}
	}
}

func TestBuildHistoryItem(t *testing.T) {
	s := mustSession(t, app.SessionConfig{
		ID:          "s1",
		Quiz:        objectiveQuiz(),
		SourceName:  "notes.pdf",
		Difficulty:  domain.DifficultyMedium,
		PlayerNames: []string{"Learner"},
	})
	if _, err := s.Submit(domain.Answer{Text: "Paris"}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	s.AttachExplanation("mcq-0", "because Paris")

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	item := app.BuildHistoryItem(s, now)
	if item.SourceName != "notes.pdf" || item.Difficulty != domain.DifficultyMedium {
		t.Fatalf("unexpected metadata: %+v", item)
	}
	if !item.Date.Equal(now) {
		t.Fatalf("expected date %v, got %v", now, item.Date)
	}
	if item.Score == nil || item.Score.Correct != 1 {
		t.Fatalf("expected single-mode score, got %+v", item.Score)
	}
	if item.Explanations["mcq-0"] != "because Paris" {
		t.Fatal("explanations must travel with the record")
	}
	if item.MultiplayerResults != nil {
		t.Fatal("single mode must not carry a ranking")
	}
}

func TestExportProfileIsIndentedJSON(t *testing.T) {
	profile := domain.NewUserProfile()
	profile.Points = 45
	data, err := app.ExportProfile(profile)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if decoded["points"] != float64(45) {
		t.Fatalf("expected points 45, got %v", decoded["points"])
	}
	if string(data[0]) != "{" || !json.Valid(data) {
		t.Fatal("unexpected export shape")
	}
}
