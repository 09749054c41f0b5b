package sse

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// inboxSize bounds how many submitted messages may wait for dispatch on one
// session before POSTs start blocking.
const inboxSize = 64

// lockedWriteFlusher wraps an io.Writer + http.Flusher with a mutex and an optional context.
// It serializes concurrent writes/flushes and avoids writing after ctx is canceled.
type lockedWriteFlusher struct {
	io.Writer
	http.Flusher
	mu  sync.Mutex
	ctx context.Context
}

// writeEvent writes one complete event frame and flushes it. Holding the
// lock for the whole frame keeps frames from interleaving.
func (l *lockedWriteFlusher) writeEvent(event string, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctx != nil && l.ctx.Err() != nil {
		return l.ctx.Err()
	}
	if _, err := fmt.Fprintf(l.Writer, "event: %s\ndata: ", event); err != nil {
		return fmt.Errorf("failed to write SSE event header: %w", err)
	}
	if _, err := l.Writer.Write(data); err != nil {
		return fmt.Errorf("failed to write SSE payload: %w", err)
	}
	if _, err := io.WriteString(l.Writer, "\n\n"); err != nil {
		return fmt.Errorf("failed to write SSE frame terminator: %w", err)
	}
	l.Flusher.Flush()
	return nil
}

// writeComment writes an SSE comment line, which clients ignore.
func (l *lockedWriteFlusher) writeComment(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctx != nil && l.ctx.Err() != nil {
		return l.ctx.Err()
	}
	if _, err := fmt.Fprintf(l.Writer, ": %s\n\n", text); err != nil {
		return fmt.Errorf("failed to write SSE comment: %w", err)
	}
	l.Flusher.Flush()
	return nil
}

// session is one open event stream.
type session struct {
	id        string
	createdAt time.Time
	wf        *lockedWriteFlusher
	inbox     chan []byte

	ctx    context.Context
	cancel context.CancelFunc
}

func newSession(ctx context.Context, id string, w io.Writer, f http.Flusher) *session {
	ctx, cancel := context.WithCancel(ctx)
	return &session{
		id:        id,
		createdAt: time.Now(),
		wf:        &lockedWriteFlusher{Writer: w, Flusher: f, ctx: ctx},
		inbox:     make(chan []byte, inboxSize),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// enqueue hands msg to the goroutine serving the stream. It fails once the
// session is closed or ctx ends first.
func (s *session) enqueue(ctx context.Context, msg []byte) error {
	if s.closed() {
		return errSessionClosed
	}
	select {
	case s.inbox <- msg:
		return nil
	case <-s.ctx.Done():
		return errSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close ends the stream. Safe to call more than once.
func (s *session) close() {
	s.cancel()
}

// closed reports whether the stream has ended.
func (s *session) closed() bool {
	return s.ctx.Err() != nil
}
