package stream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/okian/encore/pkg/logger"
)

// Default writer configuration constants.
const (
	defaultPingInterval = 30 * time.Second
)

// Client is the send-handle for one connected push-stream consumer. It
// satisfies the pool.Client contract: enqueue one frame, never block.
type Client struct {
	id     string
	connID string
	queue  *FrameQueue
}

// NewClient creates a client handle backed by its own frame queue. The
// connection id distinguishes successive streams from the same client id
// in logs.
func NewClient(id string, opts ...queueOption) *Client {
	return &Client{
		id:     id,
		connID: uuid.NewString(),
		queue:  NewFrameQueue(opts...),
	}
}

// ID returns the client id ("dj0", "judge2", ...).
func (c *Client) ID() string { return c.id }

// ConnID returns the per-connection identifier.
func (c *Client) ConnID() string { return c.connID }

// Send enqueues one frame for the writer loop. A full or closed queue is a
// send failure; the caller marks the slot disconnected.
func (c *Client) Send(event string, data []byte) error {
	if !c.queue.Enqueue(Frame{Event: event, Data: data}) {
		return fmt.Errorf("client %s (conn %s): %w", c.id, c.connID, ErrQueueFull)
	}
	return nil
}

// Close stops the client's frame queue, ending its writer loop.
func (c *Client) Close() {
	c.queue.Close()
}

// Writer drains a client's frame queue onto an HTTP response as
// server-sent events, with a comment ping keepalive. It returns when ctx
// is done, the queue closes, or a write fails.
type Writer struct {
	client       *Client
	pingInterval time.Duration
	logger       logger.Logger
}

// NewWriter creates a writer loop for client.
func NewWriter(client *Client, opts ...WriterOption) *Writer {
	w := &Writer{
		client:       client,
		pingInterval: defaultPingInterval,
		logger:       logger.Get().Named("stream"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run serves the stream until the connection ends. The error reports why
// the stream stopped; a canceled context is a normal disconnect and
// returns nil.
func (w *Writer) Run(ctx context.Context, rw http.ResponseWriter) error {
	flusher, ok := rw.(http.Flusher)
	if !ok {
		return ErrStreamingUnsupported
	}

	rw.Header().Set("Content-Type", "text/event-stream")
	rw.Header().Set("Cache-Control", "no-cache")
	rw.Header().Set("Connection", "keep-alive")
	rw.WriteHeader(http.StatusOK)
	flusher.Flush()

	w.logger.Debug(ctx, "stream open",
		logger.String("client_id", w.client.id),
		logger.String("conn_id", w.client.connID),
	)

	ticker := time.NewTicker(w.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(rw, ": ping\n\n"); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
			flusher.Flush()
		case frame, ok := <-w.client.queue.Dequeue():
			if !ok {
				return nil
			}
			if err := writeFrame(rw, frame); err != nil {
				return fmt.Errorf("write failed: %w", err)
			}
			flusher.Flush()
		}
	}
}

func writeFrame(rw http.ResponseWriter, f Frame) error {
	if f.Event == "" {
		_, err := fmt.Fprint(rw, ": ping\n\n")
		return err
	}
	_, err := fmt.Fprintf(rw, "event: %s\ndata: %s\n\n", f.Event, f.Data)
	return err
}

// WriterOption applies a configuration option to the Writer.
type WriterOption func(*Writer)

// WithPingInterval sets the keepalive cadence.
func WithPingInterval(d time.Duration) WriterOption {
	return func(w *Writer) {
		if d > 0 {
			w.pingInterval = d
		}
	}
}

// WithWriterLogger sets a custom logger for the writer.
func WithWriterLogger(l logger.Logger) WriterOption {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}
