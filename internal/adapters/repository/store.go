// Package repository persists competition definitions and judge scores.
package repository

import (
	"context"

	"github.com/okian/encore/internal/domain/model"
)

// Store provides read access to competition definitions and write access to
// judge scores.
type Store interface {
	// SessionCompetitions returns the competitions of a show session in
	// running order, rubrics included. Returns ErrNotFound when the
	// session has no competitions.
	SessionCompetitions(ctx context.Context, sessionID int) ([]model.Competition, error)

	// SaveScore persists one judge submission, one row per criterion.
	SaveScore(ctx context.Context, sub model.ScoreSubmission) error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the backing store.
	Close() error
}

// NopStore is the store used when no database is configured: score saves
// succeed without persisting and no competition definitions exist.
type NopStore struct{}

// SessionCompetitions always reports ErrNotFound.
func (NopStore) SessionCompetitions(_ context.Context, _ int) ([]model.Competition, error) {
	return nil, ErrNotFound
}

// SaveScore discards the submission.
func (NopStore) SaveScore(_ context.Context, _ model.ScoreSubmission) error { return nil }

// Ping always succeeds.
func (NopStore) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (NopStore) Close() error { return nil }
