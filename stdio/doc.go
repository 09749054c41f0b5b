// Package stdio serves the catalog to a single client over a pair of byte
// streams, usually the process's stdin and stdout. It is intended for
// launching the catalog as a subprocess of a local MCP client, where piping
// JSON is simpler than running an HTTP server.
//
// Characteristics
//
//	Connection model : 1 process <-> 1 client
//	Sessions         : exactly one, implicit; no session host
//	Framing          : newline-delimited JSON-RPC
//
// Messages are processed one at a time in arrival order, so responses are
// written in the order their requests were read. Notifications produce no
// output.
//
// Example:
//
//	d := rpc.New(store)
//	h := stdio.NewHandler(d)
//	if err := h.Serve(ctx); err != nil { log.Fatal(err) }
package stdio
