package polls

import "errors"

// Expected operation outcomes. The realtime dispatcher maps these to the
// client-facing protocol messages; anything else is a store failure.
var (
	ErrPollInProgress   = errors.New("another poll is still active")
	ErrPollNotFound     = errors.New("poll not found")
	ErrPollNotActive    = errors.New("poll is not active")
	ErrChoiceOutOfRange = errors.New("choice index out of range")
	ErrEmptyQuestion    = errors.New("question must not be empty")
	ErrTooFewChoices    = errors.New("poll needs at least two choices")
	ErrEmptyChoice      = errors.New("choice text must not be empty")
	ErrBadTimeLimit     = errors.New("time limit must be positive")
)
