// Package sse implements the MCP Server-Sent Events transport for the
// catalog. It mounts as a standard net/http handler with two routes:
//
//	GET  {ssePath}                       opens a session stream
//	POST {messagePath}?sessionId={id}    submits one JSON-RPC message
//
// The first event on every stream is "endpoint", whose data is the URL the
// client must POST to. Responses are pushed back on the stream as "message"
// events; the POST itself is answered with 202 Accepted.
//
// # Sessions
//
// Open sessions live in a concurrent table keyed by a random id. A session
// is removed when its stream ends (client disconnect, write failure, failed
// keep-alive) or when Shutdown closes every stream at once. Messages of one
// session are dispatched in arrival order by the goroutine serving its
// stream; different sessions proceed independently.
//
// # Multiple nodes
//
// When a sessions.Host is configured every session is registered with it,
// and a POST for an id this node does not hold is published to the host so
// the owning node can dispatch it and write to its stream.
//
// Construction
//
//	h := sse.New(dispatcher,
//	    sse.WithLogger(logger),
//	    sse.WithHost(redisHost),
//	    sse.WithKeepAlive(30*time.Second),
//	)
//	mux.Handle("/", h)
package sse
