package redishost

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ggoodman/mcp-api-catalog/sessions"
	"github.com/ggoodman/mcp-api-catalog/sessions/sessionhosttest"
)

func newClient(t *testing.T, mr *miniredis.Miniredis) *redis.Client {
	t.Helper()
	cl := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cl.Close() })
	return cl
}

func TestRedisSessionHost(t *testing.T) {
	sessionhosttest.RunSessionHostTests(t, func(t *testing.T) (sessions.Host, sessions.Host) {
		mr := miniredis.RunT(t)
		cfg := Config{KeyPrefix: "test:"}
		a := NewWithClient(newClient(t, mr), cfg, WithNodeID("node-a"))
		b := NewWithClient(newClient(t, mr), cfg, WithNodeID("node-b"))
		t.Cleanup(func() {
			_ = a.Close()
			_ = b.Close()
		})
		return a, b
	})
}

func TestRegister_WritesPresence(t *testing.T) {
	mr := miniredis.RunT(t)
	h := NewWithClient(newClient(t, mr), Config{KeyPrefix: "p:"}, WithNodeID("node-1"))
	t.Cleanup(func() { _ = h.Close() })

	err := h.Register(t.Context(), "abc", func(ctx context.Context, msg []byte) error { return nil })
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	got, err := mr.Get("p:session:abc")
	if err != nil {
		t.Fatalf("presence key: %v", err)
	}
	if got != "node-1" {
		t.Fatalf("presence = %q", got)
	}
	if ttl := mr.TTL("p:session:abc"); ttl <= 0 {
		t.Fatalf("presence key must expire, ttl = %v", ttl)
	}

	if err := h.Deregister(t.Context(), "abc"); err != nil {
		t.Fatalf("deregister: %v", err)
	}
	if mr.Exists("p:session:abc") {
		t.Fatalf("presence key left behind")
	}
}

func TestPublish_StalePresence(t *testing.T) {
	mr := miniredis.RunT(t)
	h := NewWithClient(newClient(t, mr), Config{})
	t.Cleanup(func() { _ = h.Close() })

	// A key left by a node that died without cleaning up.
	if err := mr.Set("apicatalog:sessions:session:ghost", "dead-node"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := h.Publish(t.Context(), "ghost", []byte("x")); !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
