// Package sessions defines the bus that lets any node of a catalog
// deployment route a submitted message to the node holding the session's
// open event stream.
//
// Layers & Roles
//
//	Transport (sse) -> owns streams and the local session table
//	Host            -> cross-node routing of raw inbound messages by session id
//
// A transport registers every session it opens. When a POST arrives for a
// session id that is not in its local table it publishes the raw message to
// the Host, which delivers it to whichever node registered that id, or
// reports ErrSessionNotFound.
//
// Implementations
//
//	memoryhost : in-process reference used for tests and single-node servers
//	redishost  : Redis pub/sub with a presence key per session, for scale-out
package sessions
