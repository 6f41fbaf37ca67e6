package session

import "errors"

// Sentinel kinds for session errors.
var (
	ErrAlreadyRunning = errors.New("session already running")
	ErrNoCompetitions = errors.New("no competitions provided")
	ErrSessionExists  = errors.New("session already exists")
)
