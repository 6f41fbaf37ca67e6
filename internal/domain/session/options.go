package session

import (
	"time"

	"github.com/okian/encore/pkg/logger"
)

// Option applies a configuration option to a Session.
type Option func(*Session)

// WithScoreTimeout sets how long the score phase waits for each judge.
func WithScoreTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.scoreTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the session.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}
