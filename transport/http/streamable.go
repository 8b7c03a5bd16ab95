package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

const eventQueueSize = 64

type eventFrame struct {
	id    uint64
	event string
	data  json.RawMessage
}

// EventStream writes editor events to one SSE client. Events are queued by
// Enqueue and written by Pump on the request goroutine.
type EventStream struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	queue   chan eventFrame
	mu      sync.Mutex
	closed  bool
	onClose func()
	once    sync.Once
	dropped int
}

// NewEventStream creates a stream writing to w.
func NewEventStream(w http.ResponseWriter, f http.Flusher, onClose ...func()) *EventStream {
	var closeHook func()
	if len(onClose) > 0 {
		closeHook = onClose[0]
	}
	return &EventStream{
		writer:  w,
		flusher: f,
		queue:   make(chan eventFrame, eventQueueSize),
		onClose: closeHook,
	}
}

// Enqueue queues one event without blocking. It reports false when the
// stream is closed or its queue is full.
func (t *EventStream) Enqueue(id uint64, event string, data json.RawMessage) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false
	}
	select {
	case t.queue <- eventFrame{id: id, event: event, data: data}:
		return true
	default:
		t.dropped++
		return false
	}
}

// SendSSE writes one event frame.
func (t *EventStream) SendSSE(id uint64, event string, data json.RawMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("stream is closed")
	}

	frame := fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", id, event, string(data))
	if err := t.writeLocked(frame); err != nil {
		return fmt.Errorf("failed to write SSE message: %w", err)
	}
	return nil
}

// SendComment writes one SSE comment frame (":" prefixed lines).
func (t *EventStream) SendComment(comment string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("stream is closed")
	}

	comment = strings.ReplaceAll(comment, "\r\n", "\n")
	comment = strings.ReplaceAll(comment, "\r", "\n")
	comment = strings.ReplaceAll(comment, "\n", "\n: ")
	frame := fmt.Sprintf(": %s\n\n", comment)
	if err := t.writeLocked(frame); err != nil {
		return fmt.Errorf("failed to write SSE comment: %w", err)
	}
	return nil
}

func (t *EventStream) writeLocked(payload string) error {
	_, err := t.writer.Write([]byte(payload))
	if err != nil {
		return err
	}
	t.flusher.Flush()
	return nil
}

// Pump writes queued events until ctx is done or a write fails. A comment
// is sent every keepAlive while idle.
func (t *EventStream) Pump(ctx context.Context, keepAlive time.Duration) error {
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-t.queue:
			if err := t.SendSSE(f.id, f.event, f.data); err != nil {
				return err
			}
		case <-ticker.C:
			if err := t.SendComment("keep-alive"); err != nil {
				return err
			}
		}
	}
}

// Dropped returns how many events were discarded on a full queue.
func (t *EventStream) Dropped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Close closes the stream.
func (t *EventStream) Close() error {
	t.mu.Lock()
	wasOpen := !t.closed
	if wasOpen {
		t.closed = true
	}
	t.mu.Unlock()

	if wasOpen && t.onClose != nil {
		t.once.Do(t.onClose)
	}
	return nil
}

// IsClosed returns true if the stream is closed
func (t *EventStream) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
