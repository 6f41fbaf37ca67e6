// Package rendezvous suspends callers on string-keyed tags until an
// external event resolves them.
//
// A tag is a single-shot, single-waiter rendezvous point, not a topic:
// exactly one waiter may be pending per tag, and the first resolution
// consumes it. This is the sole mechanism by which a session's sequential
// run loop waits for a human to do something, with an optional SLA.
package rendezvous

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/encore/pkg/logger"
	"github.com/okian/encore/pkg/metrics"
)

// Registry maps pending tags to their waiters.
type Registry struct {
	mu      sync.Mutex
	waiters map[string]chan any
	logger  logger.Logger
}

// New creates an empty registry with configuration options.
func New(opts ...Option) *Registry {
	r := &Registry{
		waiters: make(map[string]chan any),
		logger:  logger.Get().Named("rendezvous"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WaitFor registers a waiter for tag and blocks until the tag is resolved,
// the timeout elapses (when timeout > 0), or ctx is canceled. A second
// WaitFor on a still-pending tag fails with ErrDuplicateWaiter.
//
// The tag is always removed from the registry before WaitFor returns.
func (r *Registry) WaitFor(ctx context.Context, tag Tag, timeout time.Duration) (any, error) {
	key := tag.String()

	ch := make(chan any, 1)
	r.mu.Lock()
	if _, exists := r.waiters[key]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateWaiter, key)
	}
	r.waiters[key] = ch
	r.mu.Unlock()
	metrics.UpdatePendingTags(r.count())

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case payload := <-ch:
		metrics.UpdatePendingTags(r.count())
		return payload, nil
	case <-timer:
		if payload, ok := r.abandon(key, ch); ok {
			// Resolution raced the timer; the payload wins.
			return payload, nil
		}
		metrics.RecordTagTimeout()
		return nil, fmt.Errorf("%w: %s", ErrTimeout, key)
	case <-ctx.Done():
		if payload, ok := r.abandon(key, ch); ok {
			return payload, nil
		}
		return nil, fmt.Errorf("waiting for tag %s: %w", key, ctx.Err())
	}
}

// abandon removes the waiter for key on the timeout/cancel path. When a
// resolution already consumed the registration, the buffered payload is
// returned instead so it is not lost.
func (r *Registry) abandon(key string, ch chan any) (any, bool) {
	r.mu.Lock()
	_, present := r.waiters[key]
	if present {
		delete(r.waiters, key)
	}
	r.mu.Unlock()
	metrics.UpdatePendingTags(r.count())

	if !present {
		select {
		case payload := <-ch:
			return payload, true
		default:
		}
	}
	return nil, false
}

// Resolve wakes the waiter pending on tag with payload. Resolving a tag
// nobody waits on is logged and otherwise a no-op; callers that order
// correctly never hit that path.
func (r *Registry) Resolve(tag Tag, payload any) bool {
	key := tag.String()

	r.mu.Lock()
	ch, ok := r.waiters[key]
	if ok {
		delete(r.waiters, key)
	}
	r.mu.Unlock()

	if !ok {
		r.logger.Warn(context.Background(), "no waiter for tag", logger.String("tag", key))
		return false
	}

	ch <- payload // buffered; never blocks
	metrics.RecordTagResolution()
	metrics.UpdatePendingTags(r.count())
	return true
}

// HasWaiter reports whether a waiter is pending on tag.
func (r *Registry) HasWaiter(tag Tag) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.waiters[tag.String()]
	return ok
}

// PendingTags returns the wire form of every pending tag.
func (r *Registry) PendingTags() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	tags := make([]string, 0, len(r.waiters))
	for key := range r.waiters {
		tags = append(tags, key)
	}
	return tags
}

// ClearAll forcibly drops every pending waiter and returns how many were
// dropped. Abandoned WaitFor calls only return once their context is
// canceled or their timeout fires; use at shutdown and test boundaries only.
func (r *Registry) ClearAll() int {
	r.mu.Lock()
	n := len(r.waiters)
	r.waiters = make(map[string]chan any)
	r.mu.Unlock()

	if n > 0 {
		r.logger.Warn(context.Background(), "cleared pending waiters", logger.Int("count", n))
	}
	metrics.UpdatePendingTags(0)
	return n
}

func (r *Registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}
