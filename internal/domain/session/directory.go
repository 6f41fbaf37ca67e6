package session

import (
	"fmt"
	"sync"

	"github.com/okian/encore/pkg/metrics"
)

// Directory is the process-wide registry of active sessions, keyed by
// session id. It is the join point the transport layer uses to route an
// inbound client to the owning session or, failing that, to the pool.
type Directory struct {
	mu       sync.RWMutex
	sessions map[int]*Session
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{sessions: make(map[int]*Session)}
}

// Create registers a new session under id. Fails when the id is already
// registered; stale-session recovery is the caller's concern.
func (d *Directory) Create(id int, deps Deps, opts ...Option) (*Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.sessions[id]; exists {
		return nil, fmt.Errorf("session %d: %w", id, ErrSessionExists)
	}
	s := newSession(id, deps, opts...)
	d.sessions[id] = s
	metrics.UpdateActiveSessions(len(d.sessions))
	return s, nil
}

// Get returns the session registered under id.
func (d *Directory) Get(id int) (*Session, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.sessions[id]
	return s, ok
}

// Delete removes the session registered under id. It does not stop an
// in-flight run loop; it only removes discoverability.
func (d *Directory) Delete(id int) {
	d.mu.Lock()
	delete(d.sessions, id)
	metrics.UpdateActiveSessions(len(d.sessions))
	d.mu.Unlock()
}

// FindOwnerOf scans active sessions for one holding a roster slot for
// clientID. Slot existence counts, not connectedness.
func (d *Directory) FindOwnerOf(clientID string) (*Session, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, s := range d.sessions {
		if s.HasSlot(clientID) {
			return s, true
		}
	}
	return nil, false
}

// Running returns the sessions whose run loop is active.
func (d *Directory) Running() []*Session {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var running []*Session
	for _, s := range d.sessions {
		if s.IsRunning() {
			running = append(running, s)
		}
	}
	return running
}

// Len returns the number of registered sessions.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}

// ClearAll drops every registered session. Test support only.
func (d *Directory) ClearAll() {
	d.mu.Lock()
	d.sessions = make(map[int]*Session)
	metrics.UpdateActiveSessions(0)
	d.mu.Unlock()
}
