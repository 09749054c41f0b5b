package memoryhost

import (
	"context"
	"fmt"
	"sync"

	"github.com/ggoodman/mcp-api-catalog/sessions"
)

// Host is an in-memory implementation of sessions.Host.
type Host struct {
	mu       sync.RWMutex
	sessions map[string]*sessionData
}

type sessionData struct {
	// mu serializes delivery so a handler never runs concurrently with
	// itself.
	mu      sync.Mutex
	handler sessions.MessageHandlerFunction
	closed  bool
}

func New() *Host {
	return &Host{sessions: make(map[string]*sessionData)}
}

func (h *Host) Register(ctx context.Context, sessionID string, handler sessions.MessageHandlerFunction) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[sessionID]; ok {
		return fmt.Errorf("%w: %s", sessions.ErrSessionExists, sessionID)
	}
	h.sessions[sessionID] = &sessionData{handler: handler}
	return nil
}

func (h *Host) Deregister(ctx context.Context, sessionID string) error {
	h.mu.Lock()
	sd, ok := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.mu.Unlock()
	if ok {
		sd.close()
	}
	return nil
}

func (h *Host) Publish(ctx context.Context, sessionID string, msg []byte) error {
	h.mu.RLock()
	sd, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", sessions.ErrSessionNotFound, sessionID)
	}

	sd.mu.Lock()
	defer sd.mu.Unlock()
	// Lost a race with Deregister.
	if sd.closed {
		return fmt.Errorf("%w: %s", sessions.ErrSessionNotFound, sessionID)
	}
	return sd.handler(ctx, append([]byte(nil), msg...))
}

func (h *Host) Close() error {
	h.mu.Lock()
	all := h.sessions
	h.sessions = make(map[string]*sessionData)
	h.mu.Unlock()
	for _, sd := range all {
		sd.close()
	}
	return nil
}

func (sd *sessionData) close() {
	sd.mu.Lock()
	sd.closed = true
	sd.mu.Unlock()
}

// Ensure interface compliance
var _ sessions.Host = (*Host)(nil)
