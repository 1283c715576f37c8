package app

import (
	"context"
	"log"
	"sync"
	"time"

	"adaptive-quiz-service/internal/domain"

	"github.com/google/uuid"
)

// explanationFallback substitutes for a failed explanation fetch; explanation
// failures never fail the session.
const explanationFallback = "Could not generate an explanation at this time."

// Assistant is the generative-AI collaborator. GenerateQuiz failures surface
// to the caller; explanation and analysis failures are tolerated by the
// service and degrade to fallback text / stale analysis.
type Assistant interface {
	GenerateQuiz(ctx context.Context, sourceText string, difficulty domain.Difficulty, prior []domain.Quiz, questionCount int) (domain.Quiz, error)
	GenerateExplanation(ctx context.Context, sourceText string, question domain.TaggedQuestion, answer domain.Answer) (string, error)
	AnalyzePerformance(ctx context.Context, history []domain.HistoryItem) (*domain.PerformanceAnalysis, error)
}

// SessionRepository tracks live sessions (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
}

// ProfileStore persists the learner profile. Both operations are best-effort
// from the service's perspective: failures are logged, never surfaced.
type ProfileStore interface {
	Load(ctx context.Context) (domain.UserProfile, bool, error)
	Save(ctx context.Context, profile domain.UserProfile) error
}

// GameService owns the quiz use cases: session creation, answer submission,
// turn sequencing, and profile finalization. The working profile copy lives
// here with a load-at-startup / save-on-finalize lifecycle.
type GameService struct {
	sessions  SessionRepository
	profiles  ProfileStore
	assistant Assistant
	now       func() time.Time

	mu      sync.RWMutex
	profile domain.UserProfile
}

func NewGameService(sessions SessionRepository, profiles ProfileStore, assistant Assistant) *GameService {
	return &GameService{
		sessions:  sessions,
		profiles:  profiles,
		assistant: assistant,
		now:       time.Now,
		profile:   domain.NewUserProfile(),
	}
}

// NewGameServiceWithClock is test-only for deterministic timestamps.
func NewGameServiceWithClock(sessions SessionRepository, profiles ProfileStore, assistant Assistant, now func() time.Time) *GameService {
	s := NewGameService(sessions, profiles, assistant)
	s.now = now
	return s
}

// LoadProfile pulls the persisted profile into memory. Storage being
// unavailable is not fatal: the service continues with the in-memory profile.
func (g *GameService) LoadProfile(ctx context.Context) {
	profile, ok, err := g.profiles.Load(ctx)
	if err != nil {
		log.Printf("profile load failed, continuing in-memory: %v", err)
		return
	}
	if !ok {
		return
	}
	g.mu.Lock()
	g.profile = profile
	g.mu.Unlock()
}

// Profile returns a snapshot of the working profile.
func (g *GameService) Profile() domain.UserProfile {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.profile
}

// Export serializes the working profile for download.
func (g *GameService) Export() ([]byte, error) {
	return ExportProfile(g.Profile())
}

// CreateSessionParams describes a quiz creation request. An empty PlayerNames
// means single mode with a synthetic player.
type CreateSessionParams struct {
	SourceText    string
	SourceName    string
	Difficulty    domain.Difficulty
	TimedMode     bool
	PlayerNames   []string
	QuestionCount int

	// OnTimeout is handed to the session for timed-mode countdowns.
	OnTimeout func(sessionID string, gen uint64)
}

// CreateSession generates a quiz from the source text, deduplicating against
// every quiz in the profile history, and starts a session on it. Generation
// failure is the one AI failure that surfaces: a session cannot start without
// a quiz.
func (g *GameService) CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error) {
	g.mu.RLock()
	prior := make([]domain.Quiz, 0, len(g.profile.History))
	for _, item := range g.profile.History {
		prior = append(prior, item.Quiz)
	}
	historyLen := len(g.profile.History)
	g.mu.RUnlock()

	quiz, err := g.assistant.GenerateQuiz(ctx, params.SourceText, params.Difficulty, prior, params.QuestionCount)
	if err != nil {
		return nil, err
	}
	if quiz.Len() == 0 {
		return nil, domain.ErrEmptyQuiz
	}

	names := params.PlayerNames
	if len(names) == 0 {
		name := "Player 1"
		if historyLen > 0 {
			name = "Learner"
		}
		names = []string{name}
	}

	session, err := NewSession(SessionConfig{
		ID:          uuid.NewString(),
		Quiz:        quiz,
		SourceText:  params.SourceText,
		SourceName:  params.SourceName,
		Difficulty:  params.Difficulty,
		TimedMode:   params.TimedMode,
		PlayerNames: names,
		OnTimeout:   params.OnTimeout,
	})
	if err != nil {
		return nil, err
	}
	g.sessions.Put(session)
	return session, nil
}

// Session looks up a live session by ID.
func (g *GameService) Session(id string) (*Session, bool) {
	return g.sessions.Get(id)
}

// SubmitAnswer applies a manual submission and, when the question's outcome
// becomes visible, fetches its explanation.
func (g *GameService) SubmitAnswer(ctx context.Context, sessionID string, answer domain.Answer) (SubmitOutcome, error) {
	session, ok := g.sessions.Get(sessionID)
	if !ok {
		return SubmitOutcome{}, domain.ErrSessionNotFound
	}
	outcome, err := session.Submit(answer)
	if err != nil {
		return SubmitOutcome{}, err
	}
	g.revealIfNeeded(ctx, session, outcome)
	return outcome, nil
}

// SetDraft stores the acting player's in-progress answer for timed auto-submit.
func (g *GameService) SetDraft(sessionID string, answer domain.Answer) error {
	session, ok := g.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.SetDraft(answer)
	return nil
}

// AutoSubmit applies an expired countdown. A stale generation token (the
// session moved on, or was quit) is ignored and reported via ok=false.
func (g *GameService) AutoSubmit(ctx context.Context, sessionID string, gen uint64) (SubmitOutcome, bool) {
	session, ok := g.sessions.Get(sessionID)
	if !ok {
		return SubmitOutcome{}, false
	}
	outcome, fired := session.TimerFired(gen)
	if !fired {
		return SubmitOutcome{}, false
	}
	g.revealIfNeeded(ctx, session, outcome)
	return outcome, true
}

func (g *GameService) revealIfNeeded(ctx context.Context, session *Session, outcome SubmitOutcome) {
	if !outcome.NeedsReveal {
		return
	}
	text, err := g.assistant.GenerateExplanation(ctx, session.SourceText(), outcome.Question, outcome.Answer)
	if err != nil {
		log.Printf("explanation fetch failed for %s: %v", outcome.Question.UID, err)
		text = explanationFallback
	}
	session.AttachExplanation(outcome.Question.UID, text)
}

// ReadyForNextTurn acknowledges a multiplayer hand-off.
func (g *GameService) ReadyForNextTurn(sessionID string) (domain.PlayerState, error) {
	session, ok := g.sessions.Get(sessionID)
	if !ok {
		return domain.PlayerState{}, domain.ErrSessionNotFound
	}
	return session.ReadyForNextTurn()
}

// NextOutcome is either the next question or the finalized session report.
type NextOutcome struct {
	Done     bool
	Question domain.TaggedQuestion
	Position int

	// Set when Done: the appended history record and final player states.
	Record  domain.HistoryItem
	Players []domain.PlayerState
	Ranking []domain.MultiplayerResult
}

// NextQuestion advances past a revealed question. On the final question it
// finalizes the session: folds it into the profile, runs the periodic
// analysis policy, persists best-effort, and drops the live session.
func (g *GameService) NextQuestion(ctx context.Context, sessionID string) (NextOutcome, error) {
	session, ok := g.sessions.Get(sessionID)
	if !ok {
		return NextOutcome{}, domain.ErrSessionNotFound
	}
	advance, err := session.AdvanceQuestion()
	if err != nil {
		return NextOutcome{}, err
	}
	if !advance.Done {
		return NextOutcome{Question: advance.Question, Position: advance.Position}, nil
	}

	record := g.finalize(ctx, session)
	players := session.Players()
	out := NextOutcome{Done: true, Record: record, Players: players}
	if session.Mode() == domain.ModeMultiplayer {
		out.Ranking = record.MultiplayerResults
	}
	g.sessions.Delete(sessionID)
	return out, nil
}

func (g *GameService) finalize(ctx context.Context, session *Session) domain.HistoryItem {
	record := BuildHistoryItem(session, g.now())
	players := session.Players()

	g.mu.Lock()
	ApplySession(&g.profile, record, players[0].MaxSessionStreak)
	historyLen := len(g.profile.History)
	history := append([]domain.HistoryItem(nil), g.profile.History...)
	g.mu.Unlock()

	if AnalysisDue(session.Mode(), historyLen) {
		analysis, err := g.assistant.AnalyzePerformance(ctx, history)
		if err != nil || analysis == nil {
			// Keep the previous analysis; finalization never blocks on this.
			log.Printf("performance analysis failed, keeping previous: %v", err)
		} else {
			g.mu.Lock()
			g.profile.Analysis = analysis
			g.mu.Unlock()
		}
	}

	if err := g.profiles.Save(ctx, g.Profile()); err != nil {
		log.Printf("profile save failed, continuing in-memory: %v", err)
	}
	return record
}

// Abandon force-drops a session in any phase without persisting progress.
// Used when the owning connection disappears mid-quiz.
func (g *GameService) Abandon(sessionID string) {
	session, ok := g.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Abandon()
	g.sessions.Delete(sessionID)
}

// Quit abandons a session without persisting any of its progress.
func (g *GameService) Quit(sessionID string) error {
	session, ok := g.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	if err := session.Quit(); err != nil {
		return err
	}
	g.sessions.Delete(sessionID)
	return nil
}
