// Package redishost implements sessions.Host on Redis so that several
// catalog nodes behind one load balancer can route a submitted message to
// whichever node holds the session's event stream.
//
// Design Notes
//   - Presence: SET NX with a TTL at {prefix}session:{id}, value = node id,
//     refreshed while the session lives
//   - Delivery: PUBLISH on {prefix}inbox:{id}; the owning node holds the
//     only subscription, so zero receivers means the session is gone
//   - Ordering: one subscription per session, handler invoked sequentially
//
// Trade-offs
//
//	Pros: no sticky sessions needed, nothing persisted beyond presence keys
//	Cons: pub/sub is fire-and-forget; a message in flight when the owner
//	      dies is lost (the client's stream is gone with it anyway)
//
// Example:
//
//	host, err := redishost.New(ctx, redishost.Config{RedisAddr: "localhost:6379"})
//	if err != nil { return err }
//	defer host.Close()
package redishost
