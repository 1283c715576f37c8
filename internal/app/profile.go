package app

import (
	"encoding/json"
	"sort"
	"time"

	"adaptive-quiz-service/internal/domain"
)

// analysisEvery is the single-player session cadence for requesting a fresh
// performance analysis: every 3rd completed session.
const analysisEvery = 3

// BuildHistoryItem folds a finished session into the record appended to the
// profile's history. Multiplayer sessions store the first player's answers
// and a ranked result list; single sessions store score and points.
func BuildHistoryItem(s *Session, now time.Time) domain.HistoryItem {
	players := s.Players()
	item := domain.HistoryItem{
		Quiz:         s.Quiz(),
		UserAnswers:  players[0].Answers,
		Explanations: s.Explanations(),
		Date:         now,
		SourceName:   s.SourceName(),
		Difficulty:   s.Difficulty(),
		TimedMode:    s.TimedMode(),
		GameMode:     s.Mode(),
	}
	if s.Mode() == domain.ModeSingle {
		score := players[0].Score
		item.Score = &score
		item.PointsEarned = players[0].Points
	} else {
		item.MultiplayerResults = RankPlayers(players)
	}
	return item
}

// RankPlayers orders players by objective-correct count descending, points
// descending as the tie-breaker.
func RankPlayers(players []domain.PlayerState) []domain.MultiplayerResult {
	results := make([]domain.MultiplayerResult, len(players))
	for i, p := range players {
		results[i] = domain.MultiplayerResult{Name: p.Name, Score: p.Score, Points: p.Points}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score.Correct != results[j].Score.Correct {
			return results[i].Score.Correct > results[j].Score.Correct
		}
		return results[i].Points > results[j].Points
	})
	return results
}

// AccumulateStats re-grades the session's objective questions against the
// recorded answers and folds the per-kind tallies into the profile stats.
func AccumulateStats(stats domain.PerformanceStats, quiz domain.Quiz, answers domain.AnswerSet) {
	for _, question := range Flatten(quiz) {
		if !question.Kind.Objective() {
			continue
		}
		entry := stats[question.Kind]
		entry.Total++
		if Evaluate(question, Recorded(answers, question)) {
			entry.Correct++
		}
		stats[question.Kind] = entry
	}
}

// ApplySession mutates the profile with a finished session: appends the
// history record and, for single mode, accumulates stats, cumulative points,
// and the longest streak. Multiplayer sessions only append history.
func ApplySession(profile *domain.UserProfile, item domain.HistoryItem, maxSessionStreak int) {
	profile.History = append(profile.History, item)
	if item.GameMode != domain.ModeSingle {
		return
	}
	if profile.Stats == nil {
		profile.Stats = domain.PerformanceStats{}
	}
	AccumulateStats(profile.Stats, item.Quiz, item.UserAnswers)
	profile.Points += item.PointsEarned
	if maxSessionStreak > profile.LongestStreak {
		profile.LongestStreak = maxSessionStreak
	}
}

// AnalysisDue reports whether finalizing this session should request a fresh
// performance analysis: single mode, history length divisible by three.
func AnalysisDue(mode domain.GameMode, historyLen int) bool {
	return mode == domain.ModeSingle && historyLen > 0 && historyLen%analysisEvery == 0
}

// ExportProfile serializes the profile as indented JSON, the read-only
// human-diffable document offered for download. There is no import path.
func ExportProfile(profile domain.UserProfile) ([]byte, error) {
	return json.MarshalIndent(profile, "", "  ")
}
