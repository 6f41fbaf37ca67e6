package service

import "errors"

// Service lifecycle and session errors.
var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("service already started")

	// ErrNotStarted is returned when an operation needs a started service.
	ErrNotStarted = errors.New("service not started")

	// ErrSessionRunning is returned when starting a session whose run
	// loop is already in progress.
	ErrSessionRunning = errors.New("session already running")
)
