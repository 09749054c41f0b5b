// Package memoryhost provides an in-process sessions.Host. Every transport
// sharing one Host sees the same session table, which is enough for tests
// and single-node servers. Nothing survives process exit.
//
// Characteristics
//
//	Horizontal scale  : no (process local)
//	Ordering          : per session, in Publish call order
//	Delivery          : synchronous, on the publishing goroutine
//
// Example:
//
//	host := memoryhost.New()
//	handler := sse.NewHandler(dispatcher, sse.WithHost(host))
//
// For multi-node deployments use redishost.
package memoryhost
