// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/encore/internal/adapters/http/stream"
	"github.com/okian/encore/internal/adapters/repository"
	"github.com/okian/encore/internal/domain/pool"
	"github.com/okian/encore/internal/domain/rendezvous"
	"github.com/okian/encore/internal/domain/session"
	"github.com/okian/encore/pkg/logger"
	"github.com/okian/encore/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultScoreTimeout    = 30 * time.Second
	defaultClientQueueSize = 64
)

// Service owns the process-wide registries — client pool, rendezvous
// table, session directory — and the persistence store, and exposes the
// operations the HTTP boundary calls into.
type Service struct {
	pool       *pool.Pool
	rendezvous *rendezvous.Registry
	directory  *session.Directory
	store      repository.Store

	permanentClients []string
	scoreTimeout     time.Duration
	clientQueueSize  int

	connected atomic.Int64

	mu      sync.Mutex
	started bool
	runCtx  context.Context
	cancel  context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence store used for session lookups and scores.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithScoreTimeout sets the per-judge scoring window.
func WithScoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.scoreTimeout = d
		}
	}
}

// WithPermanentClients sets the roster ids every session claims up front.
func WithPermanentClients(ids []string) Option {
	return func(s *Service) {
		if len(ids) > 0 {
			s.permanentClients = ids
		}
	}
}

// WithClientQueueSize sets the outbound frame queue capacity per client.
func WithClientQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.clientQueueSize = n
		}
	}
}

// WithLogger sets the logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates the service with configuration options.
func New(opts ...Option) *Service {
	s := &Service{
		store:            repository.NopStore{},
		permanentClients: []string{"dj0", "sb10"},
		scoreTimeout:     defaultScoreTimeout,
		clientQueueSize:  defaultClientQueueSize,
		logger:           logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pool = pool.New()
	s.rendezvous = rendezvous.New(rendezvous.WithLogger(s.logger.Named("rendezvous")))
	s.directory = session.NewDirectory()
	return s
}

// Start prepares the service for traffic. Sessions started later run under
// the context established here so Stop can cancel them.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.started = true
	s.logger.Info(ctx, "service started")
	return nil
}

// Stop cancels in-flight session run loops and drops pending rendezvous
// waiters. The store is closed by the owner that opened it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	s.cancel()
	dropped := s.rendezvous.ClearAll()
	s.logger.Info(context.Background(), "service stopped", logger.Int("dropped_waiters", dropped))
}

// StartSession loads the session's competitions and launches its run loop.
// Starting a session that is already running reports ErrSessionRunning; a
// registered-but-idle session under the same id is stale and is replaced.
func (s *Service) StartSession(ctx context.Context, id int) error {
	competitions, err := s.store.SessionCompetitions(ctx, id)
	if err != nil {
		return fmt.Errorf("start session %d: %w", id, err)
	}

	deps := session.Deps{
		Pool:       s.pool,
		Rendezvous: s.rendezvous,
		SaveScore:  s.store.SaveScore,
	}
	opts := []session.Option{
		session.WithScoreTimeout(s.scoreTimeout),
		session.WithLogger(s.logger.Named("session")),
	}

	sess, err := s.directory.Create(id, deps, opts...)
	if err != nil {
		existing, ok := s.directory.Get(id)
		if ok && existing.IsRunning() {
			return fmt.Errorf("session %d: %w", id, ErrSessionRunning)
		}
		if ok {
			// Stale registration: the previous run loop ended without
			// cleaning up its directory entry. Replace it.
			s.logger.Warn(ctx, "replacing stale session", logger.Int("session_id", id))
			s.directory.Delete(id)
			sess, err = s.directory.Create(id, deps, opts...)
		}
		if err != nil {
			return fmt.Errorf("start session %d: %w", id, err)
		}
	}

	s.mu.Lock()
	runCtx := s.runCtx
	started := s.started
	s.mu.Unlock()
	if !started {
		s.directory.Delete(id)
		return ErrNotStarted
	}

	go func() {
		defer s.directory.Delete(id)
		if err := sess.Run(runCtx, competitions, s.permanentClients); err != nil {
			s.logger.Error(runCtx, "session run failed",
				logger.Int("session_id", id),
				logger.Error(err),
			)
			return
		}
		s.logger.Info(runCtx, "session run completed", logger.Int("session_id", id))
	}()

	return nil
}

// Resolve maps a wire tag plus raw payload onto the rendezvous registry.
// Returns false when no waiter is pending on the tag.
func (s *Service) Resolve(_ context.Context, tag string, payload json.RawMessage) (bool, error) {
	parsed, err := rendezvous.ParseTag(tag)
	if err != nil {
		return false, err
	}
	decoded, err := parsed.DecodePayload(payload)
	if err != nil {
		return false, err
	}
	return s.rendezvous.Resolve(parsed, decoded), nil
}

// AttachClient registers a freshly connected stream client: with the
// owning session when one holds a roster slot for the id, otherwise in the
// unassigned pool.
func (s *Service) AttachClient(ctx context.Context, clientID string) *stream.Client {
	c := stream.NewClient(clientID, stream.WithQueueCapacity(s.clientQueueSize))

	// The owning session's slot can vanish between the lookup and the
	// connect (teardown, competition handoff); the pool keeps the client
	// reachable either way.
	if sess, ok := s.directory.FindOwnerOf(clientID); !ok || !sess.ConnectClient(ctx, c) {
		s.logger.Info(ctx, "client unassigned, adding to pool", logger.String("client_id", clientID))
		s.pool.Put(c)
	}

	metrics.UpdateConnectedClients(int(s.connected.Add(1)))
	return c
}

// DetachClient marks a closed stream disconnected: the owning session
// keeps the empty slot for reconnects; a pooled client is dropped outright.
func (s *Service) DetachClient(ctx context.Context, c *stream.Client) {
	c.Close()

	if sess, ok := s.directory.FindOwnerOf(c.ID()); ok {
		sess.DisconnectHandle(c)
	}

	// Only drop the pool entry when it is still this connection; a
	// reconnect may already have replaced it.
	if current, ok := s.pool.Get(c.ID()); ok {
		if sc, ok := current.(*stream.Client); ok && sc.ConnID() == c.ConnID() {
			s.pool.Remove(c.ID())
		}
	}

	metrics.UpdateConnectedClients(int(s.connected.Add(-1)))
	s.logger.Info(ctx, "client detached", logger.String("client_id", c.ID()))
}

// Ping verifies the persistence store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Stats returns a point-in-time snapshot of coordinator state.
func (s *Service) Stats(_ context.Context) map[string]any {
	running := s.directory.Running()
	runningIDs := make([]int, 0, len(running))
	for _, sess := range running {
		runningIDs = append(runningIDs, sess.ID())
	}
	return map[string]any{
		"sessions":         s.directory.Len(),
		"running_sessions": runningIDs,
		"pool_size":        s.pool.Len(),
		"pending_tags":     s.rendezvous.PendingTags(),
		"connected":        s.connected.Load(),
	}
}

// PermanentClients returns the configured permanent roster ids.
func (s *Service) PermanentClients() []string {
	return s.permanentClients
}

// Directory exposes the session directory for test support.
func (s *Service) Directory() *session.Directory { return s.directory }

// Pool exposes the unassigned-client pool for test support.
func (s *Service) Pool() *pool.Pool { return s.pool }

// Rendezvous exposes the tag registry for test support.
func (s *Service) Rendezvous() *rendezvous.Registry { return s.rendezvous }
