// Package stream turns an HTTP response into a push-stream client handle.
//
// Each connection owns a bounded outbound frame queue drained by a writer
// loop; the queue side is the send-handle the session core sees, so a slow
// or dead consumer shows up as a send error instead of blocking the show.
package stream

import (
	"sync"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 64
)

// Frame is one server-sent event: a named event plus its JSON data. A
// frame with an empty Event is emitted as a bare comment keepalive.
type Frame struct {
	Event string
	Data  []byte
}

// FrameQueue provides non-blocking enqueue and channel-based dequeue of
// outbound frames for one connection.
type FrameQueue struct {
	frames chan Frame

	mu     sync.RWMutex
	closed bool
}

// NewFrameQueue creates a frame queue with configuration options.
func NewFrameQueue(opts ...queueOption) *FrameQueue {
	capacity := defaultQueueCapacity
	for _, opt := range opts {
		capacity = opt(capacity)
	}
	return &FrameQueue{frames: make(chan Frame, capacity)}
}

type queueOption func(capacity int) int

// WithQueueCapacity sets the maximum number of frames buffered per client.
func WithQueueCapacity(n int) queueOption { //nolint:revive // option type is intentionally unexported
	return func(capacity int) int {
		if n > 0 {
			return n
		}
		return capacity
	}
}

// Enqueue adds a frame without blocking. Returns false when the queue is
// full or closed; callers treat that as a dead client.
func (q *FrameQueue) Enqueue(f Frame) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}
	select {
	case q.frames <- f:
		return true
	default:
		return false
	}
}

// Dequeue returns the channel the writer loop drains. Closed when the
// queue closes.
func (q *FrameQueue) Dequeue() <-chan Frame {
	return q.frames
}

// Close stops the queue. Safe to call more than once.
func (q *FrameQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.frames)
}

// IsClosed reports whether the queue has been closed.
func (q *FrameQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
