// Package sessionhosttest holds a conformance suite that every
// sessions.Host implementation must pass.
package sessionhosttest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ggoodman/mcp-api-catalog/sessions"
)

// HostFactory creates two hosts sharing one backend, as two nodes of a
// deployment would. Implementations without a shared backend may return the
// same host twice.
type HostFactory func(t *testing.T) (a, b sessions.Host)

// RunSessionHostTests runs the complete Host test suite against the provided factory.
func RunSessionHostTests(t *testing.T, factory HostFactory) {
	t.Run("Publish_ReachesRegisteredHandler", func(t *testing.T) { testPublishReachesHandler(t, factory) })
	t.Run("Publish_UnknownSession", func(t *testing.T) { testPublishUnknownSession(t, factory) })
	t.Run("Publish_OrderPreserved", func(t *testing.T) { testOrderPreserved(t, factory) })
	t.Run("Publish_IsolationBetweenSessions", func(t *testing.T) { testSessionIsolation(t, factory) })
	t.Run("Publish_CrossNode", func(t *testing.T) { testCrossNode(t, factory) })
	t.Run("Register_Duplicate", func(t *testing.T) { testDuplicateRegister(t, factory) })
	t.Run("Deregister_StopsDelivery", func(t *testing.T) { testDeregisterStopsDelivery(t, factory) })
	t.Run("Close_DeregistersAll", func(t *testing.T) { testCloseDeregistersAll(t, factory) })
}

func collector(buf int) (chan []byte, sessions.MessageHandlerFunction) {
	ch := make(chan []byte, buf)
	return ch, func(ctx context.Context, msg []byte) error {
		ch <- append([]byte(nil), msg...)
		return nil
	}
}

func recv(t *testing.T, ch <-chan []byte) string {
	t.Helper()
	select {
	case msg := <-ch:
		return string(msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return ""
	}
}

func testPublishReachesHandler(t *testing.T, factory HostFactory) {
	h, _ := factory(t)
	ctx := t.Context()

	ch, handler := collector(1)
	if err := h.Register(ctx, "sess-1", handler); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := h.Publish(ctx, "sess-1", []byte(`{"jsonrpc":"2.0","method":"ping","id":1}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := recv(t, ch); got != `{"jsonrpc":"2.0","method":"ping","id":1}` {
		t.Fatalf("unexpected message %q", got)
	}
}

func testPublishUnknownSession(t *testing.T, factory HostFactory) {
	h, _ := factory(t)
	err := h.Publish(t.Context(), "does-not-exist", []byte(`{}`))
	if !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func testOrderPreserved(t *testing.T, factory HostFactory) {
	h, _ := factory(t)
	ctx := t.Context()

	const n = 25
	ch, handler := collector(n)
	if err := h.Register(ctx, "sess-order", handler); err != nil {
		t.Fatalf("register: %v", err)
	}
	for i := range n {
		if err := h.Publish(ctx, "sess-order", []byte(fmt.Sprintf("m%d", i))); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	for i := range n {
		if got, want := recv(t, ch), fmt.Sprintf("m%d", i); got != want {
			t.Fatalf("message %d = %q, want %q", i, got, want)
		}
	}
}

func testSessionIsolation(t *testing.T, factory HostFactory) {
	h, _ := factory(t)
	ctx := t.Context()

	chA, handlerA := collector(2)
	chB, handlerB := collector(2)
	if err := h.Register(ctx, "sess-a", handlerA); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := h.Register(ctx, "sess-b", handlerB); err != nil {
		t.Fatalf("register b: %v", err)
	}
	if err := h.Publish(ctx, "sess-b", []byte("for-b")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := recv(t, chB); got != "for-b" {
		t.Fatalf("b got %q", got)
	}
	select {
	case msg := <-chA:
		t.Fatalf("a received a message meant for b: %q", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func testCrossNode(t *testing.T, factory HostFactory) {
	a, b := factory(t)
	ctx := t.Context()

	ch, handler := collector(1)
	if err := a.Register(ctx, "sess-x", handler); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := b.Publish(ctx, "sess-x", []byte("hello")); err != nil {
		t.Fatalf("publish from peer: %v", err)
	}
	if got := recv(t, ch); got != "hello" {
		t.Fatalf("got %q", got)
	}
}

func testDuplicateRegister(t *testing.T, factory HostFactory) {
	h, _ := factory(t)
	ctx := t.Context()

	_, handler := collector(1)
	if err := h.Register(ctx, "sess-dup", handler); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := h.Register(ctx, "sess-dup", handler); !errors.Is(err, sessions.ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}
}

func testDeregisterStopsDelivery(t *testing.T, factory HostFactory) {
	h, _ := factory(t)
	ctx := t.Context()

	_, handler := collector(1)
	if err := h.Register(ctx, "sess-gone", handler); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := h.Deregister(ctx, "sess-gone"); err != nil {
		t.Fatalf("deregister: %v", err)
	}
	if err := h.Publish(ctx, "sess-gone", []byte("late")); !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after deregister, got %v", err)
	}
	if err := h.Deregister(ctx, "sess-gone"); err != nil {
		t.Fatalf("second deregister: %v", err)
	}
	// The id may be reused once released.
	if err := h.Register(ctx, "sess-gone", handler); err != nil {
		t.Fatalf("re-register: %v", err)
	}
}

func testCloseDeregistersAll(t *testing.T, factory HostFactory) {
	a, b := factory(t)
	ctx := t.Context()

	_, handler := collector(1)
	for _, id := range []string{"sess-c1", "sess-c2"} {
		if err := a.Register(ctx, id, handler); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	for _, id := range []string{"sess-c1", "sess-c2"} {
		if err := b.Publish(ctx, id, []byte("x")); !errors.Is(err, sessions.ErrSessionNotFound) {
			t.Fatalf("%s still routable after close: %v", id, err)
		}
	}
}
