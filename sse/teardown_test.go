package sse

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ggoodman/mcp-api-catalog/catalog"
	"github.com/ggoodman/mcp-api-catalog/internal/jsonrpc"
	"github.com/ggoodman/mcp-api-catalog/rpc"
	"github.com/ggoodman/mcp-api-catalog/sessions"
	"github.com/ggoodman/mcp-api-catalog/sessions/memoryhost"
)

var errBrokenPipe = errors.New("broken pipe")

// brokenWriter is a ResponseWriter whose writes start failing at the
// failAt'th call. Every frame takes three writes.
type brokenWriter struct {
	header http.Header
	failAt int
	writes int
}

func (w *brokenWriter) Header() http.Header { return w.header }
func (w *brokenWriter) WriteHeader(int)     {}
func (w *brokenWriter) Flush()              {}

func (w *brokenWriter) Write(p []byte) (int, error) {
	w.writes++
	if w.writes >= w.failAt {
		return 0, errBrokenPipe
	}
	return len(p), nil
}

// capturingHost reports the id of every registered session.
type capturingHost struct {
	sessions.Host
	registered chan string
}

func (c *capturingHost) Register(ctx context.Context, id string, fn sessions.MessageHandlerFunction) error {
	if err := c.Host.Register(ctx, id, fn); err != nil {
		return err
	}
	c.registered <- id
	return nil
}

func newBrokenStream(t *testing.T, failAt int) (*Handler, *memoryhost.Host, *brokenWriter, string, <-chan struct{}) {
	t.Helper()
	mem := memoryhost.New()
	host := &capturingHost{Host: mem, registered: make(chan string, 1)}
	h := New(rpc.New(rpc.Fixed(catalog.New())), WithHost(host))

	w := &brokenWriter{header: http.Header{}, failAt: failAt}
	r := httptest.NewRequest(http.MethodGet, "/sse", nil)
	r.Header.Set("Accept", "text/event-stream")

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(w, r)
	}()

	var id string
	select {
	case id = <-host.registered:
	case <-time.After(2 * time.Second):
		t.Fatal("session was never registered")
	}
	return h, mem, w, id, done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream handler did not return after a failed write")
	}
}

// expectGone checks that id is unreachable through every lookup.
func expectGone(t *testing.T, h *Handler, mem *memoryhost.Host, id string) {
	t.Helper()
	if n := h.SessionCount(); n != 0 {
		t.Fatalf("SessionCount = %d, want 0", n)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/message?sessionId="+id, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("POST status = %d, want 404", rec.Code)
	}
	var resp jsonrpc.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	if resp.Error == nil || resp.Error.Code != jsonrpc.ErrorCodeInvalidRequest {
		t.Fatalf("body = %s", rec.Body.String())
	}

	if err := mem.Publish(t.Context(), id, []byte(`{}`)); !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("host still routes the session: %v", err)
	}
}

func TestOpen_EndpointWriteFailureTearsDown(t *testing.T) {
	h, mem, w, id, done := newBrokenStream(t, 1)
	waitDone(t, done)
	expectGone(t, h, mem, id)
	if w.writes != 1 {
		t.Fatalf("writes after the failure: got %d attempts, want 1", w.writes)
	}
}

func TestPush_WriteFailureTearsDown(t *testing.T) {
	// The endpoint frame succeeds; the first response frame fails.
	h, mem, w, id, done := newBrokenStream(t, 4)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/message?sessionId="+id, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST status = %d, want 202", rec.Code)
	}

	waitDone(t, done)
	expectGone(t, h, mem, id)
	if w.writes != 4 {
		t.Fatalf("writes continued after the failure: %d attempts, want 4", w.writes)
	}
}

func TestEnqueue_AfterCloseIsRefused(t *testing.T) {
	w := &brokenWriter{header: http.Header{}, failAt: 1}
	s := newSession(t.Context(), "s1", w, w)
	if err := s.enqueue(t.Context(), []byte(`{}`)); err != nil {
		t.Fatalf("enqueue on an open session: %v", err)
	}

	s.close()
	if !s.closed() {
		t.Fatal("closed() = false after close")
	}
	if err := s.enqueue(t.Context(), []byte(`{}`)); !errors.Is(err, errSessionClosed) {
		t.Fatalf("enqueue after close = %v, want errSessionClosed", err)
	}
}
