package stream

import (
	"testing"
)

func TestFrameQueue_BasicOperations(t *testing.T) {
	q := NewFrameQueue(WithQueueCapacity(2))

	// Test enqueue
	if !q.Enqueue(Frame{Event: "client_status", Data: []byte(`{}`)}) {
		t.Error("expected enqueue to succeed")
	}

	// Test dequeue
	frame := <-q.Dequeue()
	if frame.Event != "client_status" {
		t.Errorf("expected client_status, got %v", frame.Event)
	}
}

func TestFrameQueue_Capacity(t *testing.T) {
	q := NewFrameQueue(WithQueueCapacity(2))

	if !q.Enqueue(Frame{Event: "a"}) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(Frame{Event: "b"}) {
		t.Error("expected enqueue to succeed")
	}

	// Try to enqueue when full
	if q.Enqueue(Frame{Event: "c"}) {
		t.Error("expected enqueue to fail when full")
	}

	// Drain one slot and retry
	<-q.Dequeue()
	if !q.Enqueue(Frame{Event: "c"}) {
		t.Error("expected enqueue to succeed after dequeue")
	}
}

func TestFrameQueue_Close(t *testing.T) {
	q := NewFrameQueue()

	if q.IsClosed() {
		t.Error("expected new queue to be open")
	}

	q.Close()

	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}
	if q.Enqueue(Frame{Event: "late"}) {
		t.Error("expected enqueue to fail on closed queue")
	}

	// Dequeue channel must be closed
	if _, ok := <-q.Dequeue(); ok {
		t.Error("expected dequeue channel to be closed")
	}

	// Double close must not panic
	q.Close()
}

func TestClient_SendAndClose(t *testing.T) {
	c := NewClient("judge1", WithQueueCapacity(1))

	if c.ID() != "judge1" {
		t.Errorf("expected judge1, got %v", c.ID())
	}
	if c.ConnID() == "" {
		t.Error("expected a connection id")
	}

	if err := c.Send("enable_scoring", []byte(`{}`)); err != nil {
		t.Errorf("expected send to succeed, got %v", err)
	}

	// Queue full
	if err := c.Send("score_update", []byte(`{}`)); err == nil {
		t.Error("expected send to fail when queue is full")
	}

	c.Close()
	if err := c.Send("score_update", []byte(`{}`)); err == nil {
		t.Error("expected send to fail after close")
	}
}

func TestClient_DistinctConnIDs(t *testing.T) {
	a := NewClient("dj0")
	b := NewClient("dj0")
	if a.ConnID() == b.ConnID() {
		t.Error("expected successive connections to get distinct conn ids")
	}
}
