package domain

import "time"

// Kind discriminates the five question variants.
type Kind string

const (
	KindMultipleChoice Kind = "mcq"
	KindTrueFalse      Kind = "tf"
	KindFillInBlank    Kind = "fib"
	KindMatching       Kind = "matching"
	KindShortAnswer    Kind = "sa"
)

// Kinds lists every kind in presentation order.
var Kinds = []Kind{KindMultipleChoice, KindTrueFalse, KindFillInBlank, KindMatching, KindShortAnswer}

// Objective reports whether the kind has a programmatically checkable answer.
func (k Kind) Objective() bool {
	switch k {
	case KindMultipleChoice, KindTrueFalse, KindFillInBlank:
		return true
	}
	return false
}

// Difficulty selects the point value and per-question time limit.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// GameMode distinguishes solo sessions from local round-robin multiplayer.
type GameMode string

const (
	ModeSingle      GameMode = "single"
	ModeMultiplayer GameMode = "multiplayer"
)

// MultipleChoiceQuestion has exactly one correct option string.
type MultipleChoiceQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Topic         string   `json:"topic"`
}

type TrueFalseQuestion struct {
	Question      string `json:"question"`
	CorrectAnswer bool   `json:"correctAnswer"`
	Topic         string `json:"topic"`
}

// FillInTheBlankQuestion carries the blank marker ("____") inside Question.
type FillInTheBlankQuestion struct {
	Question      string `json:"question"`
	CorrectAnswer string `json:"correctAnswer"`
	Topic         string `json:"topic"`
}

type MatchingPair struct {
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
}

type MatchingQuestion struct {
	Title string         `json:"title"`
	Pairs []MatchingPair `json:"pairs"`
	Topic string         `json:"topic"`
}

// ShortAnswerQuestion is reference-only; IdealAnswer is never auto-graded.
type ShortAnswerQuestion struct {
	Question    string `json:"question"`
	IdealAnswer string `json:"idealAnswer"`
	Topic       string `json:"topic"`
}

// Quiz holds one ordered collection per kind. Any collection may be empty.
type Quiz struct {
	MultipleChoice []MultipleChoiceQuestion `json:"multipleChoiceQuestions"`
	TrueFalse      []TrueFalseQuestion      `json:"trueFalseQuestions"`
	FillInTheBlank []FillInTheBlankQuestion `json:"fillInTheBlankQuestions"`
	Matching       []MatchingQuestion       `json:"matchingQuestions"`
	ShortAnswer    []ShortAnswerQuestion    `json:"shortAnswerQuestions"`
}

// Len is the total question count across all kinds.
func (q Quiz) Len() int {
	return len(q.MultipleChoice) + len(q.TrueFalse) + len(q.FillInTheBlank) +
		len(q.Matching) + len(q.ShortAnswer)
}

// TaggedQuestion is one normalized quiz item. Exactly one variant pointer is
// non-nil, matching Kind. UID is "{kind}-{index}" where Index is the question's
// position within its original same-kind collection.
type TaggedQuestion struct {
	Kind  Kind   `json:"kind"`
	UID   string `json:"uid"`
	Index int    `json:"index"`

	MultipleChoice *MultipleChoiceQuestion `json:"multipleChoice,omitempty"`
	TrueFalse      *TrueFalseQuestion      `json:"trueFalse,omitempty"`
	FillInTheBlank *FillInTheBlankQuestion `json:"fillInTheBlank,omitempty"`
	Matching       *MatchingQuestion       `json:"matching,omitempty"`
	ShortAnswer    *ShortAnswerQuestion    `json:"shortAnswer,omitempty"`
}

// Prompt returns the question text (the title for matching sets).
func (t TaggedQuestion) Prompt() string {
	switch t.Kind {
	case KindMultipleChoice:
		return t.MultipleChoice.Question
	case KindTrueFalse:
		return t.TrueFalse.Question
	case KindFillInBlank:
		return t.FillInTheBlank.Question
	case KindMatching:
		return t.Matching.Title
	case KindShortAnswer:
		return t.ShortAnswer.Question
	}
	return ""
}

func (t TaggedQuestion) Topic() string {
	switch t.Kind {
	case KindMultipleChoice:
		return t.MultipleChoice.Topic
	case KindTrueFalse:
		return t.TrueFalse.Topic
	case KindFillInBlank:
		return t.FillInTheBlank.Topic
	case KindMatching:
		return t.Matching.Topic
	case KindShortAnswer:
		return t.ShortAnswer.Topic
	}
	return ""
}

// Answer is a submitted answer for one question. Only the field matching the
// question kind is meaningful; a nil Flag means true/false went unanswered.
type Answer struct {
	Text  string         `json:"text,omitempty"`
	Flag  *bool          `json:"flag,omitempty"`
	Pairs []MatchingPair `json:"pairs,omitempty"`
}

// MatchingAnswer mirrors the pair layout of its matching question.
type MatchingAnswer struct {
	Pairs []MatchingPair `json:"pairs"`
}

// AnswerSet stores one player's answers per kind, indexed identically to the
// quiz's original per-kind collections: AnswerSet[kind][i] answers quiz[kind][i].
type AnswerSet struct {
	MultipleChoice []string         `json:"mcq"`
	TrueFalse      []*bool          `json:"tf"`
	FillInTheBlank []string         `json:"fib"`
	Matching       []MatchingAnswer `json:"matching"`
	ShortAnswer    []string         `json:"sa"`
}

// Score counts objective answers only.
type Score struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// PlayerState is one player's progress through a session. LastAnswer and
// LastCorrect are transient per-question feedback, cleared on question change.
type PlayerState struct {
	Name             string    `json:"name"`
	Answers          AnswerSet `json:"answers"`
	Score            Score     `json:"score"`
	Points           int       `json:"points"`
	Streak           int       `json:"streak"`
	MaxSessionStreak int       `json:"maxSessionStreak"`

	LastAnswer  *Answer `json:"lastAnswer,omitempty"`
	LastCorrect *bool   `json:"lastCorrect,omitempty"`
}

// PerformanceAnalysis is the AI collaborator's periodic verdict on the profile.
type PerformanceAnalysis struct {
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations string   `json:"recommendations"`
}

type KindStats struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// PerformanceStats accumulates objective results per kind across sessions.
type PerformanceStats map[Kind]KindStats

// MultiplayerResult is one row of a ranked multiplayer outcome.
type MultiplayerResult struct {
	Name   string `json:"name"`
	Score  Score  `json:"score"`
	Points int    `json:"points"`
}

// HistoryItem is one completed session as persisted in the profile.
// UserAnswers belongs to the first player in multiplayer sessions.
type HistoryItem struct {
	Quiz         Quiz              `json:"quiz"`
	UserAnswers  AnswerSet         `json:"userAnswers"`
	Explanations map[string]string `json:"explanations"`
	Date         time.Time         `json:"date"`
	SourceName   string            `json:"sourceName"`
	Difficulty   Difficulty        `json:"difficulty"`
	TimedMode    bool              `json:"timedMode"`
	GameMode     GameMode          `json:"gameMode"`

	Score        *Score `json:"score,omitempty"`
	PointsEarned int    `json:"pointsEarned,omitempty"`

	MultiplayerResults []MultiplayerResult `json:"multiplayerResults,omitempty"`
}

// UserProfile is the persisted learner profile. History is append-only.
type UserProfile struct {
	History       []HistoryItem        `json:"quizHistory"`
	Stats         PerformanceStats     `json:"performanceStats"`
	Analysis      *PerformanceAnalysis `json:"analysis"`
	Points        int                  `json:"points"`
	LongestStreak int                  `json:"longestStreak"`
}

// NewUserProfile returns an empty profile ready for its first session.
func NewUserProfile() UserProfile {
	return UserProfile{
		History: []HistoryItem{},
		Stats:   PerformanceStats{},
	}
}
