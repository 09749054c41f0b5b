package sessions

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned by Publish when no node has the session
// registered.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExists is returned by Register when the id is already taken.
var ErrSessionExists = errors.New("session already registered")

// MessageHandlerFunction receives raw messages published for a session.
// Delivery for one session is sequential.
type MessageHandlerFunction func(ctx context.Context, msg []byte) error

// Host routes raw messages to the node that registered a session.
// Implementations MUST be safe for concurrent use.
type Host interface {
	// Register makes sessionID routable. Messages published for it are
	// passed to handler until Deregister is called or the host is closed.
	// Register returns only once a subsequent Publish is guaranteed to reach
	// handler.
	Register(ctx context.Context, sessionID string, handler MessageHandlerFunction) error
	// Deregister stops routing to sessionID. Unknown ids are ignored.
	Deregister(ctx context.Context, sessionID string) error
	// Publish delivers msg to the handler registered for sessionID, on
	// whichever node that is.
	Publish(ctx context.Context, sessionID string, msg []byte) error
	// Close deregisters every session registered through this host.
	Close() error
}
