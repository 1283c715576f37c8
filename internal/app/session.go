package app

import (
	"sync"
	"time"

	"adaptive-quiz-service/internal/domain"
)

// Phase is the session state machine's current state.
type Phase string

const (
	// PhasePlaying accepts an answer from the current player.
	PhasePlaying Phase = "playing"
	// PhaseBetweenTurns waits for the next player's explicit acknowledgment
	// before their turn is revealed (multiplayer only).
	PhaseBetweenTurns Phase = "betweenTurns"
	// PhaseResults shows the current question's outcome to all players.
	PhaseResults Phase = "results"
)

// questionTime is the timed-mode countdown per difficulty.
var questionTime = map[domain.Difficulty]time.Duration{
	domain.DifficultyEasy:   60 * time.Second,
	domain.DifficultyMedium: 45 * time.Second,
	domain.DifficultyHard:   30 * time.Second,
}

// QuestionTime returns the timed-mode countdown for a difficulty.
func QuestionTime(d domain.Difficulty) time.Duration {
	if t, ok := questionTime[d]; ok {
		return t
	}
	return questionTime[domain.DifficultyMedium]
}

// SessionConfig describes one quiz attempt.
type SessionConfig struct {
	ID          string
	Quiz        domain.Quiz
	SourceText  string
	SourceName  string
	Difficulty  domain.Difficulty
	TimedMode   bool
	PlayerNames []string

	// OnTimeout fires from a background timer when the countdown for the
	// current question elapses. The owner must route it back into its event
	// loop and call TimerFired with the same generation token.
	OnTimeout func(sessionID string, gen uint64)
}

// Session is the ephemeral turn/phase controller for one quiz attempt. All
// transitions run under one mutex; the owner is expected to process events
// sequentially, the lock exists so a late timer callback cannot interleave.
type Session struct {
	id         string
	quiz       domain.Quiz
	questions  []domain.TaggedQuestion
	sourceText string
	sourceName string
	difficulty domain.Difficulty
	timedMode  bool
	mode       domain.GameMode

	mu           sync.Mutex
	players      []*domain.PlayerState
	current      int
	turn         int
	phase        Phase
	finished     bool
	explanations map[string]string
	draft        *domain.Answer

	onTimeout    func(sessionID string, gen uint64)
	questionTime func(domain.Difficulty) time.Duration
	timer        *time.Timer
	timerGen     uint64
}

// NewSession builds a session in the playing phase for the first question and,
// in timed mode, arms the first countdown.
func NewSession(cfg SessionConfig) (*Session, error) {
	return newSession(cfg, QuestionTime)
}

// NewSessionWithQuestionTime is test-only for fast timed-mode countdowns.
func NewSessionWithQuestionTime(cfg SessionConfig, qt func(domain.Difficulty) time.Duration) (*Session, error) {
	return newSession(cfg, qt)
}

func newSession(cfg SessionConfig, qt func(domain.Difficulty) time.Duration) (*Session, error) {
	if cfg.Quiz.Len() == 0 {
		return nil, domain.ErrEmptyQuiz
	}
	if len(cfg.PlayerNames) == 0 {
		return nil, domain.ErrNoPlayers
	}

	mode := domain.ModeSingle
	if len(cfg.PlayerNames) > 1 {
		mode = domain.ModeMultiplayer
	}
	players := make([]*domain.PlayerState, len(cfg.PlayerNames))
	for i, name := range cfg.PlayerNames {
		players[i] = &domain.PlayerState{
			Name:    name,
			Answers: NewAnswerSet(cfg.Quiz),
		}
	}

	s := &Session{
		id:           cfg.ID,
		quiz:         cfg.Quiz,
		questions:    Flatten(cfg.Quiz),
		sourceText:   cfg.SourceText,
		sourceName:   cfg.SourceName,
		difficulty:   cfg.Difficulty,
		timedMode:    cfg.TimedMode,
		mode:         mode,
		players:      players,
		phase:        PhasePlaying,
		explanations: make(map[string]string),
		onTimeout:    cfg.OnTimeout,
		questionTime: qt,
	}
	s.mu.Lock()
	s.armTimerLocked()
	s.mu.Unlock()
	return s, nil
}

func (s *Session) ID() string                   { return s.id }
func (s *Session) Quiz() domain.Quiz            { return s.quiz }
func (s *Session) SourceText() string           { return s.sourceText }
func (s *Session) SourceName() string           { return s.sourceName }
func (s *Session) Difficulty() domain.Difficulty { return s.difficulty }
func (s *Session) TimedMode() bool              { return s.timedMode }
func (s *Session) Mode() domain.GameMode        { return s.mode }

// Questions returns the normalized presentation sequence.
func (s *Session) Questions() []domain.TaggedQuestion { return s.questions }

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// CurrentQuestion returns the active question and its merged-sequence position.
func (s *Session) CurrentQuestion() (domain.TaggedQuestion, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions[s.current], s.current
}

// CurrentPlayer returns a snapshot of the acting player's state.
func (s *Session) CurrentPlayer() domain.PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.players[s.turn]
}

// Players returns snapshots of every player's state in configured order.
func (s *Session) Players() []domain.PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PlayerState, len(s.players))
	for i, p := range s.players {
		out[i] = *p
	}
	return out
}

// Explanations returns the per-uid explanation map accumulated so far.
func (s *Session) Explanations() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.explanations))
	for k, v := range s.explanations {
		out[k] = v
	}
	return out
}

// SubmitOutcome reports the effect of one answer submission.
type SubmitOutcome struct {
	Question   domain.TaggedQuestion
	PlayerName string
	Answer     domain.Answer
	Objective  bool
	Correct    bool
	Awarded    int
	Streak     int
	Phase      Phase
	// NeedsReveal is set when all players have answered and the owner should
	// fetch an explanation before presenting results.
	NeedsReveal bool
	// NextPlayer names whose acknowledgment is pending in betweenTurns.
	NextPlayer string
}

// Submit records the acting player's answer for the current question. Valid
// only in the playing phase.
func (s *Session) Submit(answer domain.Answer) (SubmitOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitLocked(answer)
}

func (s *Session) submitLocked(answer domain.Answer) (SubmitOutcome, error) {
	if s.finished {
		return SubmitOutcome{}, domain.ErrSessionFinished
	}
	if s.phase != PhasePlaying {
		return SubmitOutcome{}, domain.ErrInvalidPhase
	}

	s.cancelTimerLocked()
	s.draft = nil

	question := s.questions[s.current]
	player := s.players[s.turn]
	Record(&player.Answers, question, answer)

	objective := question.Kind.Objective()
	correct := false
	awarded := 0
	if objective {
		correct = Evaluate(question, answer)
		player.Score.Total++
		if correct {
			player.Score.Correct++
			awarded = Points(s.difficulty)
			player.Points += awarded
			player.Streak++
			if player.Streak > player.MaxSessionStreak {
				player.MaxSessionStreak = player.Streak
			}
		} else {
			player.Streak = 0
		}
	}
	ans := answer
	player.LastAnswer = &ans
	flag := correct
	player.LastCorrect = &flag

	outcome := SubmitOutcome{
		Question:   question,
		PlayerName: player.Name,
		Answer:     answer,
		Objective:  objective,
		Correct:    correct,
		Awarded:    awarded,
		Streak:     player.Streak,
	}

	if s.mode == domain.ModeMultiplayer && s.turn < len(s.players)-1 {
		// Remaining players still have to answer; hold the reveal.
		s.phase = PhaseBetweenTurns
		outcome.Phase = PhaseBetweenTurns
		outcome.NextPlayer = s.players[s.turn+1].Name
		return outcome, nil
	}

	s.phase = PhaseResults
	outcome.Phase = PhaseResults
	outcome.NeedsReveal = true
	return outcome, nil
}

// ReadyForNextTurn acknowledges the hand-off in betweenTurns: the next player
// becomes the acting player and the question returns to playing. Any draft
// left by the previous player is discarded.
func (s *Session) ReadyForNextTurn() (domain.PlayerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return domain.PlayerState{}, domain.ErrSessionFinished
	}
	if s.phase != PhaseBetweenTurns {
		return domain.PlayerState{}, domain.ErrInvalidPhase
	}
	s.turn++
	s.phase = PhasePlaying
	s.draft = nil
	s.armTimerLocked()
	return *s.players[s.turn], nil
}

// AdvanceOutcome reports whether the session moved to another question or ran
// out of questions and must be finalized by the owner.
type AdvanceOutcome struct {
	Done     bool
	Question domain.TaggedQuestion
	Position int
}

// AdvanceQuestion moves from results to the next question's playing phase,
// resetting the turn order and per-player transient feedback. On the final
// question it marks the session finished instead.
func (s *Session) AdvanceQuestion() (AdvanceOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return AdvanceOutcome{}, domain.ErrSessionFinished
	}
	if s.phase != PhaseResults {
		return AdvanceOutcome{}, domain.ErrInvalidPhase
	}

	if s.current >= len(s.questions)-1 {
		s.finished = true
		s.cancelTimerLocked()
		return AdvanceOutcome{Done: true}, nil
	}

	s.current++
	s.turn = 0
	s.phase = PhasePlaying
	s.draft = nil
	for _, p := range s.players {
		p.LastAnswer = nil
		p.LastCorrect = nil
	}
	s.armTimerLocked()
	return AdvanceOutcome{Question: s.questions[s.current], Position: s.current}, nil
}

// Quit abandons the session. Valid in playing or results; the explicit user
// confirmation is the transport's job.
func (s *Session) Quit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return domain.ErrSessionFinished
	}
	if s.phase != PhasePlaying && s.phase != PhaseResults {
		return domain.ErrInvalidPhase
	}
	s.finished = true
	s.cancelTimerLocked()
	return nil
}

// Abandon force-finishes the session regardless of phase. Used when the
// owning connection disappears and no confirmation can be asked for.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.finished = true
	s.cancelTimerLocked()
}

// Finished reports whether the session has been finalized or abandoned.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// AttachExplanation stores the explanation for a question by uid.
func (s *Session) AttachExplanation(uid, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.explanations[uid] = text
}

// SetDraft remembers the acting player's in-progress answer so a timed-mode
// expiry submits what they had typed rather than an empty value. Ignored
// outside the playing phase.
func (s *Session) SetDraft(answer domain.Answer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished || s.phase != PhasePlaying {
		return
	}
	ans := answer
	s.draft = &ans
}

// TimerFired performs the auto-submit for an expired countdown. The generation
// token makes stale timers harmless: if the session has moved to another
// question, phase, or player since the timer was armed, the expiry is ignored.
func (s *Session) TimerFired(gen uint64) (SubmitOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished || s.phase != PhasePlaying || gen != s.timerGen {
		return SubmitOutcome{}, false
	}
	answer := emptyAnswer(s.questions[s.current])
	if s.draft != nil {
		answer = *s.draft
	}
	outcome, err := s.submitLocked(answer)
	if err != nil {
		return SubmitOutcome{}, false
	}
	return outcome, true
}

// armTimerLocked starts a fresh countdown for the current question. Each arm
// bumps the generation so an already-fired callback from a previous countdown
// cannot submit against the wrong question.
func (s *Session) armTimerLocked() {
	s.timerGen++
	if !s.timedMode || s.onTimeout == nil {
		return
	}
	gen := s.timerGen
	d := s.questionTime(s.difficulty)
	s.timer = time.AfterFunc(d, func() {
		s.onTimeout(s.id, gen)
	})
}

func (s *Session) cancelTimerLocked() {
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
