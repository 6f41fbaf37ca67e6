package config

import "errors"

// Errors reported by configuration loading, matchable with errors.Is.
var (
	// ErrLoadConfig wraps failures reading or parsing a config source.
	ErrLoadConfig = errors.New("load config failed")

	// ErrInvalidConfig marks a loaded configuration that fails validation.
	ErrInvalidConfig = errors.New("invalid config")
)
