package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no live session matches the given ID.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrInvalidPhase is returned when a transition is attempted outside the
	// phase it is defined for.
	ErrInvalidPhase = errors.New("transition not valid in current phase")
	// ErrSessionFinished is returned when acting on an already finalized session.
	ErrSessionFinished = errors.New("quiz session already finished")
	// ErrEmptyQuiz indicates generation produced a quiz with no questions.
	ErrEmptyQuiz = errors.New("generated quiz contains no questions")
	// ErrNoPlayers indicates a session was requested without any players.
	ErrNoPlayers = errors.New("session requires at least one player")
)
