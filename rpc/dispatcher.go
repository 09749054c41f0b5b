// Package rpc dispatches JSON-RPC requests against the endpoint catalog.
//
// The Dispatcher understands the MCP handshake (initialize, ping,
// tools/list, tools/call) and also accepts each catalog tool as a direct
// method, so getApiCount may be called either through tools/call or as a
// method of its own. Tool calls return a CallToolResult; direct calls
// return the bare tool result.
//
// Dispatch is synchronous and read-only. It never returns a Go error:
// every failure becomes a JSON-RPC error response, and notifications
// produce no response at all.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ggoodman/mcp-api-catalog/catalog"
	"github.com/ggoodman/mcp-api-catalog/internal/jsonrpc"
	"github.com/ggoodman/mcp-api-catalog/internal/logctx"
	"github.com/ggoodman/mcp-api-catalog/mcp"
	"github.com/ggoodman/mcp-api-catalog/metrics"
)

// CatalogSource returns the catalog to answer from. *catalog.Store
// satisfies it.
type CatalogSource interface {
	Current() *catalog.Catalog
}

// Fixed returns a CatalogSource that always serves c.
func Fixed(c *catalog.Catalog) CatalogSource {
	return fixed{c}
}

type fixed struct{ c *catalog.Catalog }

func (f fixed) Current() *catalog.Catalog { return f.c }

// Dispatcher answers JSON-RPC requests. It is safe for concurrent use.
type Dispatcher struct {
	source       CatalogSource
	info         mcp.ImplementationInfo
	instructions string
	tools        []tool
	byName       map[string]*tool
	log          *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithServerInfo sets the name and version reported by initialize.
func WithServerInfo(name, version string) Option {
	return func(d *Dispatcher) {
		d.info.Name = name
		d.info.Version = version
	}
}

// WithInstructions sets the optional instructions reported by initialize.
func WithInstructions(s string) Option {
	return func(d *Dispatcher) { d.instructions = s }
}

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// New returns a Dispatcher answering from source.
func New(source CatalogSource, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		source: source,
		info:   mcp.ImplementationInfo{Name: "api-catalog", Version: "dev"},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d.log = logctx.Wrap(d.log)

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	d.tools = defaultTools(v)
	d.byName = make(map[string]*tool, len(d.tools))
	for i := range d.tools {
		d.byName[d.tools[i].def.Name] = &d.tools[i]
	}
	return d
}

// Tools returns the advertised tool definitions.
func (d *Dispatcher) Tools() []mcp.Tool {
	out := make([]mcp.Tool, len(d.tools))
	for i, t := range d.tools {
		out[i] = t.def
	}
	return out
}

// Call runs the named tool directly with args, which are encoded to JSON
// first. A non-nil error is always a *jsonrpc.Error.
func (d *Dispatcher) Call(ctx context.Context, name string, args any) (any, error) {
	t, ok := d.byName[name]
	if !ok {
		return nil, jsonrpc.Errorf(jsonrpc.ErrorCodeMethodNotFound, "Unknown tool: %s", name)
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, jsonrpc.Errorf(jsonrpc.ErrorCodeInvalidParams, "invalid arguments: %v", err)
	}
	ctx = logctx.WithToolCallData(ctx, &logctx.ToolCallData{ToolName: name})
	start := time.Now()
	out, err := t.call(ctx, d.catalog(), raw)
	metrics.ObserveRPC(name, err == nil, time.Since(start))
	if err != nil {
		return nil, toError(err)
	}
	return out, nil
}

// Ignored reports whether method is acknowledged without any response:
// notifications and the reserved rpc. and $/ namespaces.
func Ignored(method string) bool {
	return strings.HasPrefix(method, mcp.NotificationPrefix) ||
		strings.HasPrefix(method, mcp.RPCReservedPrefix) ||
		strings.HasPrefix(method, mcp.ExtensionPrefix)
}

// HandleMessage decodes one raw message and dispatches it. It returns nil
// when nothing must be sent back.
func (d *Dispatcher) HandleMessage(ctx context.Context, raw []byte) *jsonrpc.Response {
	if !json.Valid(raw) {
		d.log.WarnContext(ctx, "rpc.inbound.parse_err")
		return jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeParseError, "", nil)
	}
	var msg jsonrpc.AnyMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.log.WarnContext(ctx, "rpc.inbound.invalid", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(idOf(raw), jsonrpc.ErrorCodeInvalidRequest, err.Error(), nil)
	}
	req := msg.AsRequest()
	if req == nil {
		// Responses from the client are not expected; drop them.
		d.log.DebugContext(ctx, "rpc.inbound.response_ignored")
		return nil
	}
	return d.Dispatch(ctx, req)
}

// idOf extracts the id of a message that failed validation, so the error
// can still be correlated.
func idOf(raw []byte) *jsonrpc.RequestID {
	var head struct {
		ID *jsonrpc.RequestID `json:"id"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil
	}
	return head.ID
}

// Dispatch answers req. It returns nil for notifications and ignored
// methods.
func (d *Dispatcher) Dispatch(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	notification := req.ID.IsNil()
	msgType := "request"
	if notification {
		msgType = "notification"
	}
	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{
		Method: req.Method,
		ID:     req.ID.String(),
		Type:   msgType,
	})

	if Ignored(req.Method) {
		d.log.DebugContext(ctx, "rpc.inbound.ignored")
		return nil
	}

	start := time.Now()
	result, err := d.invoke(ctx, req)
	metrics.ObserveRPC(d.metricLabel(req.Method), err == nil, time.Since(start))

	if notification {
		if err != nil {
			d.log.DebugContext(ctx, "rpc.inbound.notification_err", slog.String("err", err.Error()))
		}
		return nil
	}
	if err != nil {
		rpcErr := toError(err)
		d.log.InfoContext(ctx, "rpc.inbound.err",
			slog.Int("code", int(rpcErr.Code)),
			slog.String("err", rpcErr.Message),
		)
		return jsonrpc.NewErrorResponse(req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	}

	resp, err := jsonrpc.NewResultResponse(req.ID, result)
	if err != nil {
		d.log.ErrorContext(ctx, "rpc.outbound.marshal_err", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error: "+err.Error(), nil)
	}
	d.log.DebugContext(ctx, "rpc.inbound.ok", slog.Duration("took", time.Since(start)))
	return resp
}

func (d *Dispatcher) metricLabel(method string) string {
	switch mcp.Method(method) {
	case mcp.InitializeMethod, mcp.PingMethod, mcp.ToolsListMethod, mcp.ToolsCallMethod:
		return method
	}
	if _, ok := d.byName[method]; ok {
		return method
	}
	return "unknown"
}

// invoke runs the handler for req, converting panics into internal errors.
func (d *Dispatcher) invoke(ctx context.Context, req *jsonrpc.Request) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			d.log.ErrorContext(ctx, "rpc.inbound.panic", slog.Any("panic", rec))
			result, err = nil, jsonrpc.Errorf(jsonrpc.ErrorCodeInternalError, "internal error: %v", rec)
		}
	}()

	switch mcp.Method(req.Method) {
	case mcp.InitializeMethod:
		return d.initialize(req.Params)
	case mcp.PingMethod:
		return mcp.EmptyResult{}, nil
	case mcp.ToolsListMethod:
		return mcp.ListToolsResult{Tools: d.Tools()}, nil
	case mcp.ToolsCallMethod:
		return d.callTool(ctx, req.Params)
	}
	if t, ok := d.byName[req.Method]; ok {
		ctx = logctx.WithToolCallData(ctx, &logctx.ToolCallData{ToolName: t.def.Name})
		return t.call(ctx, d.catalog(), req.Params)
	}
	return nil, jsonrpc.Errorf(jsonrpc.ErrorCodeMethodNotFound, "Method not found: %s", req.Method)
}

func (d *Dispatcher) catalog() *catalog.Catalog {
	if d.source == nil {
		return catalog.New()
	}
	if c := d.source.Current(); c != nil {
		return c
	}
	return catalog.New()
}

func (d *Dispatcher) initialize(params json.RawMessage) (*mcp.InitializeResult, error) {
	var req mcp.InitializeRequest
	if len(params) > 0 {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, jsonrpc.Errorf(jsonrpc.ErrorCodeInvalidParams, "invalid initialize params: %v", err)
		}
	}
	return &mcp.InitializeResult{
		ProtocolVersion: mcp.NegotiateProtocolVersion(req.ProtocolVersion),
		Capabilities: mcp.ServerCapabilities{
			Tools: &mcp.ToolsCapability{ListChanged: false},
		},
		ServerInfo:   d.info,
		Instructions: d.instructions,
	}, nil
}

func (d *Dispatcher) callTool(ctx context.Context, params json.RawMessage) (*mcp.CallToolResult, error) {
	var req mcp.CallToolRequestReceived
	if len(params) > 0 {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, jsonrpc.Errorf(jsonrpc.ErrorCodeInvalidParams, "invalid tools/call params: %v", err)
		}
	}
	if req.Name == "" {
		return nil, jsonrpc.Errorf(jsonrpc.ErrorCodeInvalidParams, "tools/call requires a tool name")
	}
	t, ok := d.byName[req.Name]
	if !ok {
		return nil, jsonrpc.Errorf(jsonrpc.ErrorCodeMethodNotFound, "Unknown tool: %s", req.Name)
	}
	ctx = logctx.WithToolCallData(ctx, &logctx.ToolCallData{ToolName: t.def.Name})

	out, err := t.call(ctx, d.catalog(), req.Arguments)
	if err != nil {
		return nil, err
	}
	text, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", req.Name, err)
	}
	return &mcp.CallToolResult{
		Content:           []mcp.ContentBlock{{Type: mcp.ContentTypeText, Text: string(text)}},
		StructuredContent: out,
	}, nil
}
