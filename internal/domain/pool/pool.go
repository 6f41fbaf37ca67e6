// Package pool holds clients that are connected but not yet claimed by any
// session.
//
// A client id is never present in the pool and a session roster at the same
// time: sessions Take clients out of the pool when claiming them and Put
// them back at competition boundaries or teardown.
package pool

import (
	"sync"

	"github.com/okian/encore/pkg/metrics"
)

// Client is the send-handle the coordinator holds for one connected client.
// Send failures are treated as disconnection by callers, never propagated.
type Client interface {
	ID() string
	Send(event string, data []byte) error
}

// Pool is a mutex-guarded map of unassigned clients keyed by client id.
type Pool struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// New creates an empty pool.
func New() *Pool {
	return &Pool{clients: make(map[string]Client)}
}

// Put stores client under its id, replacing any previous handle.
func (p *Pool) Put(c Client) {
	p.mu.Lock()
	p.clients[c.ID()] = c
	p.mu.Unlock()
	metrics.UpdatePoolSize(p.Len())
}

// Get returns the client for id without removing it.
func (p *Pool) Get(id string) (Client, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.clients[id]
	return c, ok
}

// Take removes and returns the client for id. The lookup and delete happen
// under one lock so a client cannot be claimed twice.
func (p *Pool) Take(id string) (Client, bool) {
	p.mu.Lock()
	c, ok := p.clients[id]
	if ok {
		delete(p.clients, id)
	}
	p.mu.Unlock()
	if ok {
		metrics.UpdatePoolSize(p.Len())
	}
	return c, ok
}

// Remove drops the client for id if present.
func (p *Pool) Remove(id string) {
	p.mu.Lock()
	delete(p.clients, id)
	p.mu.Unlock()
	metrics.UpdatePoolSize(p.Len())
}

// IDs returns the ids of all pooled clients.
func (p *Pool) IDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.clients))
	for id := range p.clients {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of pooled clients.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients)
}
