// Package repository persists competition definitions and judge scores.
package repository

import "time"

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithSaveRetries sets how many times a failed score save is retried.
func WithSaveRetries(n uint64) Option {
	return func(s *SQLiteStore) {
		s.saveRetries = n
	}
}

// WithSaveRetryInterval sets the initial backoff interval between retries.
func WithSaveRetryInterval(d time.Duration) Option {
	return func(s *SQLiteStore) {
		if d > 0 {
			s.saveInterval = d
		}
	}
}
