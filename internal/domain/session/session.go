// Package session drives one competition event end to end: a roster of
// named client slots, a phase machine per competitor, and a run loop that
// rendezvouses with director and judge actions arriving over the boundary
// layer.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/encore/internal/domain/model"
	"github.com/okian/encore/internal/domain/pool"
	"github.com/okian/encore/internal/domain/rendezvous"
	"github.com/okian/encore/pkg/logger"
	"github.com/okian/encore/pkg/metrics"
)

// Default session configuration constants.
const (
	defaultScoreTimeout = 30 * time.Second
)

// Phase is the session's position in the per-competitor cycle.
type Phase string

// Session phases.
const (
	PhaseIdle       Phase = "idle"
	PhasePerforming Phase = "performing"
	PhaseScoring    Phase = "scoring"
)

// SaveScoreFunc persists one judge submission. Failures are logged and
// never block the run loop.
type SaveScoreFunc func(ctx context.Context, sub model.ScoreSubmission) error

// Deps are the collaborators a session needs: the unassigned-client pool it
// borrows from, the rendezvous registry it suspends on, and the score
// persistence hook.
type Deps struct {
	Pool       *pool.Pool
	Rendezvous *rendezvous.Registry
	SaveScore  SaveScoreFunc
}

// Session owns a roster of client slots and runs the phase state machine
// for a sequence of competitions. A slot with a nil handle is registered
// but currently disconnected; slot existence and connectedness are distinct.
type Session struct {
	id   int
	deps Deps

	scoreTimeout time.Duration
	logger       logger.Logger

	mu        sync.Mutex
	roster    map[string]pool.Client
	running   bool
	phase     Phase
	current   *model.Competition
	position  int
	submitted map[string]struct{} // "competitionId:position:judgeId"
}

func newSession(id int, deps Deps, opts ...Option) *Session {
	s := &Session{
		id:           id,
		deps:         deps,
		scoreTimeout: defaultScoreTimeout,
		logger:       logger.Get().Named("session"),
		roster:       make(map[string]pool.Client),
		phase:        PhaseIdle,
		position:     -1,
		submitted:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() int { return s.id }

// IsRunning reports whether the run loop is active.
func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// CurrentPhase returns the session's current phase.
func (s *Session) CurrentPhase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// HasSlot reports whether a slot exists for id, connected or not.
func (s *Session) HasSlot(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.roster[id]
	return ok
}

// ConnectClient assigns the handle into an existing slot for its id,
// resolves the client's required tag, re-broadcasts roster status and, when
// the session is mid-phase, runs reconnect recovery for the client. A
// client with no registered slot is not part of this session and is left
// untouched.
func (s *Session) ConnectClient(ctx context.Context, c pool.Client) bool {
	s.mu.Lock()
	if _, ok := s.roster[c.ID()]; !ok {
		s.mu.Unlock()
		s.logger.Warn(ctx, "client has no registered slot",
			logger.Int("session_id", s.id),
			logger.String("client_id", c.ID()),
		)
		return false
	}
	s.roster[c.ID()] = c
	s.mu.Unlock()

	// Wake any code waiting for this client.
	s.deps.Rendezvous.Resolve(rendezvous.RequiredTag{ClientID: c.ID()}, nil)

	s.broadcastClientStatus()
	s.recoverClient(ctx, c)
	return true
}

// recoverClient resends phase state to a client that reconnected while the
// session is mid-phase. State is reconstructed from the session's current
// fields, not replayed from a message log.
func (s *Session) recoverClient(ctx context.Context, c pool.Client) {
	s.mu.Lock()
	phase := s.phase
	current := s.current
	position := s.position
	s.mu.Unlock()

	if phase == PhaseIdle || current == nil {
		return
	}

	role, num, err := model.ParseClientID(c.ID())
	if err != nil {
		return
	}

	switch {
	case role == model.RoleDJ && phase == PhasePerforming:
		s.sendTo(c, EventPerformanceRecovery, mustJSON(PerformanceRecovery{
			CompetitionID: current.ID,
			Position:      position,
		}))
	case role == model.RoleJudge && phase == PhaseScoring:
		key := submissionKey(current.ID, position, num)
		s.mu.Lock()
		_, done := s.submitted[key]
		s.mu.Unlock()
		if done {
			s.logger.Debug(ctx, "judge already submitted, no recovery needed",
				logger.String("client_id", c.ID()),
			)
			return
		}
		s.logger.Info(ctx, "resending enable_scoring to reconnected judge",
			logger.String("client_id", c.ID()),
		)
		s.sendTo(c, EventEnableScoring, mustJSON(EnableScoring{
			CompetitionID: current.ID,
			Position:      position,
		}))
	}
}

// DisconnectClient marks the slot for id as disconnected. The slot itself
// is retained so the client can reconnect into it.
func (s *Session) DisconnectClient(id string) {
	s.mu.Lock()
	_, ok := s.roster[id]
	if ok {
		s.roster[id] = nil
	}
	s.mu.Unlock()

	if ok {
		s.broadcastClientStatus()
	}
}

// DisconnectHandle marks the slot for the handle's id disconnected only
// while the slot still holds this exact handle. A reconnect may already
// have replaced it, in which case the replacement stays live and the stale
// handle's disconnect is ignored.
func (s *Session) DisconnectHandle(c pool.Client) {
	s.mu.Lock()
	cur, ok := s.roster[c.ID()]
	cleared := ok && cur == c
	if cleared {
		s.roster[c.ID()] = nil
	}
	s.mu.Unlock()

	if cleared {
		s.broadcastClientStatus()
	}
}

// RemoveClient deletes the slot entirely. Used only when a client is
// permanently no longer relevant; mid-competition use DisconnectClient.
func (s *Session) RemoveClient(id string) {
	s.mu.Lock()
	delete(s.roster, id)
	s.mu.Unlock()
	s.broadcastClientStatus()
}

// RegisterPermanentClients ensures a slot exists for each id, claiming
// already-connected clients out of the pool.
func (s *Session) RegisterPermanentClients(ctx context.Context, ids []string) {
	s.registerSlots(ctx, ids)
}

// RegisterRequiredClients ensures a slot exists for each of the
// competition's judges, claiming already-connected clients out of the pool.
func (s *Session) RegisterRequiredClients(ctx context.Context, competition model.Competition) {
	s.registerSlots(ctx, competition.JudgeClientIDs())
}

func (s *Session) registerSlots(ctx context.Context, ids []string) {
	var claimed []string

	s.mu.Lock()
	for _, id := range ids {
		if _, ok := s.roster[id]; ok {
			continue
		}
		// Claim from the pool when already connected; the delete and
		// insert happen before anyone can observe the client in both.
		if c, ok := s.deps.Pool.Take(id); ok {
			s.roster[id] = c
			claimed = append(claimed, id)
			continue
		}
		s.roster[id] = nil
	}
	s.mu.Unlock()

	for _, id := range claimed {
		s.logger.Info(ctx, "claimed pooled client",
			logger.Int("session_id", s.id),
			logger.String("client_id", id),
		)
		s.deps.Rendezvous.Resolve(rendezvous.RequiredTag{ClientID: id}, nil)
	}

	s.broadcastClientStatus()
}

// ClearUnneededClients returns connected clients that the next competition
// does not require to the pool and drops their slots. Permanent clients are
// always retained; with no next competition everything non-permanent goes
// back.
func (s *Session) ClearUnneededClients(ctx context.Context, next *model.Competition, permanentIDs []string) {
	retain := make(map[string]struct{}, len(permanentIDs))
	for _, id := range permanentIDs {
		retain[id] = struct{}{}
	}
	if next != nil {
		for _, id := range next.JudgeClientIDs() {
			retain[id] = struct{}{}
		}
	}

	var returned []string

	s.mu.Lock()
	for id, c := range s.roster {
		if _, keep := retain[id]; keep {
			continue
		}
		if c != nil {
			s.deps.Pool.Put(c)
			returned = append(returned, id)
		}
		delete(s.roster, id)
	}
	s.mu.Unlock()

	for _, id := range returned {
		s.logger.Info(ctx, "returned client to pool",
			logger.Int("session_id", s.id),
			logger.String("client_id", id),
		)
	}
}

// Require suspends until every named slot holds a live handle. The waits
// run concurrently and are unbounded; the show is human-paced.
func (s *Session) Require(ctx context.Context, ids []string) error {
	s.mu.Lock()
	var missing []string
	for _, id := range ids {
		if s.roster[id] == nil {
			missing = append(missing, id)
		}
	}
	s.mu.Unlock()

	return s.awaitClients(ctx, missing)
}

// RequireAllClients suspends until every registered slot holds a live
// handle.
func (s *Session) RequireAllClients(ctx context.Context) error {
	s.mu.Lock()
	var missing []string
	for id, c := range s.roster {
		if c == nil {
			missing = append(missing, id)
		}
	}
	s.mu.Unlock()

	return s.awaitClients(ctx, missing)
}

func (s *Session) awaitClients(ctx context.Context, missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	s.logger.Info(ctx, "waiting for clients", logger.Strings("missing", missing))

	var wg sync.WaitGroup
	errs := make([]error, len(missing))
	for i, id := range missing {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, err := s.deps.Rendezvous.WaitFor(ctx, rendezvous.RequiredTag{ClientID: id}, 0)
			errs[i] = err
		}(i, id)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("waiting for clients: %w", err)
		}
	}
	s.logger.Info(ctx, "all awaited clients connected", logger.Strings("clients", missing))
	return nil
}

// ConnectedIDs returns the ids of slots currently holding a live handle.
func (s *Session) ConnectedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.roster))
	for id, c := range s.roster {
		if c != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Broadcast serializes data and pushes it to every connected slot. A send
// failure marks that slot disconnected and the broadcast continues.
func (s *Session) Broadcast(event string, data []byte) {
	s.mu.Lock()
	targets := make(map[string]pool.Client, len(s.roster))
	for id, c := range s.roster {
		if c != nil {
			targets[id] = c
		}
	}
	s.mu.Unlock()

	metrics.RecordBroadcast()

	for id, c := range targets {
		if err := c.Send(event, data); err != nil {
			metrics.RecordSendFailure()
			s.logger.Warn(context.Background(), "send failed, marking client disconnected",
				logger.String("client_id", id),
				logger.Error(err),
			)
			s.mu.Lock()
			if _, ok := s.roster[id]; ok {
				s.roster[id] = nil
			}
			s.mu.Unlock()
		}
	}
}

func (s *Session) broadcastClientStatus() {
	s.Broadcast(EventClientStatus, mustJSON(ClientStatus{ConnectedClients: s.ConnectedIDs()}))
}

// sendTo unicasts to one client; a failure marks the slot disconnected.
func (s *Session) sendTo(c pool.Client, event string, data []byte) {
	if err := c.Send(event, data); err != nil {
		metrics.RecordSendFailure()
		s.logger.Warn(context.Background(), "send failed, marking client disconnected",
			logger.String("client_id", c.ID()),
			logger.Error(err),
		)
		s.mu.Lock()
		if _, ok := s.roster[c.ID()]; ok {
			s.roster[c.ID()] = nil
		}
		s.mu.Unlock()
	}
}

func submissionKey(competitionID, position, judgeID int) string {
	return fmt.Sprintf("%d:%d:%d", competitionID, position, judgeID)
}
