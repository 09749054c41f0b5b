package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/google/uuid"

	"github.com/ggoodman/mcp-api-catalog/internal/jsonrpc"
	"github.com/ggoodman/mcp-api-catalog/internal/logctx"
	"github.com/ggoodman/mcp-api-catalog/metrics"
	"github.com/ggoodman/mcp-api-catalog/sessions"
)

var (
	_ http.Handler = (*Handler)(nil)
)

var (
	// ErrSessionNotFound is reported when a message names a session that no
	// node holds.
	ErrSessionNotFound = errors.New("session not found")
	// ErrShuttingDown is returned for new streams once Shutdown has begun.
	ErrShuttingDown = errors.New("transport shutting down")

	errSessionClosed = errors.New("session closed")
)

var (
	jsonMediaType         = contenttype.NewMediaType("application/json")
	eventStreamMediaType  = contenttype.NewMediaType("text/event-stream")
	eventStreamMediaTypes = []contenttype.MediaType{eventStreamMediaType}
)

const (
	sessionIDParam = "sessionId"

	eventEndpoint = "endpoint"
	eventMessage  = "message"

	// maxMessageBytes caps a single submitted message.
	maxMessageBytes = 4 << 20
)

// Dispatcher turns one raw inbound message into the response to push, or
// nil when nothing is sent back. *rpc.Dispatcher satisfies it.
type Dispatcher interface {
	HandleMessage(ctx context.Context, raw []byte) *jsonrpc.Response
}

// writeJSONError emits a minimal JSON body for HTTP-layer rejections that
// happen before any JSON-RPC exchange. Shape:
// {"error":{"code":<httpStatus>,"message":"<reason>"}}
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": status, "message": msg}})
}

// writeRPCError answers the POST itself with a JSON-RPC error object, used
// when there is no stream to push it on.
func writeRPCError(w http.ResponseWriter, status int, code jsonrpc.ErrorCode, msg string) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(jsonrpc.NewErrorResponse(nil, code, msg, nil))
}

// Option configures the Handler.
type Option func(*Handler)

// WithSSEPath sets the path that opens a stream. Default "/sse".
func WithSSEPath(p string) Option {
	return func(h *Handler) { h.ssePath = p }
}

// WithMessagePath sets the path messages are POSTed to. Default "/message".
func WithMessagePath(p string) Option {
	return func(h *Handler) { h.messagePath = p }
}

// WithKeepAlive sets the interval of keep-alive comments on idle streams.
// Zero disables them.
func WithKeepAlive(d time.Duration) Option {
	return func(h *Handler) { h.keepAlive = d }
}

// WithLogger sets the slog logger used by the handler. If not provided, logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// WithHost routes messages for sessions held by other nodes through host.
func WithHost(host sessions.Host) Option {
	return func(h *Handler) { h.host = host }
}

// WithNodeID names this node in logs. Defaults to the hostname.
func WithNodeID(id string) Option {
	return func(h *Handler) { h.node = id }
}

// Handler implements the MCP SSE transport.
type Handler struct {
	mux         *http.ServeMux
	log         *slog.Logger
	rpc         Dispatcher
	host        sessions.Host
	ssePath     string
	messagePath string
	keepAlive   time.Duration
	node        string

	sessions     sync.Map // id -> *session
	streams      sync.WaitGroup
	shuttingDown atomic.Bool
}

// New constructs a Handler dispatching every message to d.
func New(d Dispatcher, opts ...Option) *Handler {
	h := &Handler{
		rpc:         d,
		ssePath:     "/sse",
		messagePath: "/message",
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h.log = logctx.Wrap(h.log)
	if h.node == "" {
		h.node, _ = os.Hostname()
	}

	mux := http.NewServeMux()
	mux.HandleFunc(fmt.Sprintf("GET %s", h.ssePath), h.handleGetSSE)
	mux.HandleFunc(fmt.Sprintf("POST %s", h.messagePath), h.handlePostMessage)
	h.mux = mux
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r.WithContext(logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  uuid.NewString(),
		Method:     r.Method,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
	})))
}

// SessionCount returns the number of sessions open on this node.
func (h *Handler) SessionCount() int {
	n := 0
	h.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// endpointURL is the submission address announced to a new session.
func (h *Handler) endpointURL(id string) string {
	return h.messagePath + "?" + url.Values{sessionIDParam: {id}}.Encode()
}

// handleGetSSE opens a session and serves its stream until the client goes
// away, a write fails, or the handler shuts down. The session is stored and
// registered with the host before the endpoint event announces its id.
func (h *Handler) handleGetSSE(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	if h.shuttingDown.Load() {
		writeJSONError(w, http.StatusServiceUnavailable, ErrShuttingDown.Error())
		h.log.InfoContext(ctx, "sse.open.shutting_down")
		return
	}

	if _, _, err := contenttype.GetAcceptableMediaType(r, eventStreamMediaTypes); err != nil {
		writeJSONError(w, http.StatusNotAcceptable, "client must accept text/event-stream")
		h.log.WarnContext(ctx, "http.get.unsupported_media_type")
		return
	}

	f, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		h.log.ErrorContext(ctx, "sse.flusher.missing")
		return
	}

	s := newSession(ctx, uuid.NewString(), w, f)
	defer s.close()
	ctx = logctx.WithSessionData(s.ctx, &logctx.SessionData{SessionID: s.id, Node: h.node})

	// The session must be routable before the client learns its id.
	h.sessions.Store(s.id, s)
	if h.host != nil {
		if err := h.host.Register(ctx, s.id, h.deliverForwarded(s)); err != nil {
			h.sessions.Delete(s.id)
			writeJSONError(w, http.StatusServiceUnavailable, "failed to register session")
			h.log.ErrorContext(ctx, "session.register.fail", slog.String("err", err.Error()))
			return
		}
	}
	h.streams.Add(1)
	defer h.streams.Done()
	metrics.SessionOpened()
	defer h.teardown(ctx, s, start)

	w.Header().Set("Content-Type", eventStreamMediaType.String())
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := s.wf.writeEvent(eventEndpoint, []byte(h.endpointURL(s.id))); err != nil {
		h.log.WarnContext(ctx, "sse.endpoint.write.fail", slog.String("err", err.Error()))
		return
	}
	h.log.InfoContext(ctx, "sse.stream.start")

	// A shutdown racing with the open may have missed this session.
	if h.shuttingDown.Load() {
		return
	}

	var keepAlive <-chan time.Time
	if h.keepAlive > 0 {
		t := time.NewTicker(h.keepAlive)
		defer t.Stop()
		keepAlive = t.C
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.inbox:
			if err := h.process(ctx, s, msg); err != nil {
				h.log.WarnContext(ctx, "sse.write.fail", slog.String("err", err.Error()))
				return
			}
		case <-keepAlive:
			if err := s.wf.writeComment("ping"); err != nil {
				h.log.InfoContext(ctx, "sse.keepalive.fail", slog.String("err", err.Error()))
				return
			}
		}
	}
}

// teardown removes s from every lookup. After it returns no message can be
// routed to s.
func (h *Handler) teardown(ctx context.Context, s *session, start time.Time) {
	s.close()
	h.sessions.CompareAndDelete(s.id, s)
	if h.host != nil {
		if err := h.host.Deregister(context.WithoutCancel(ctx), s.id); err != nil {
			h.log.WarnContext(ctx, "session.deregister.fail", slog.String("err", err.Error()))
		}
	}
	metrics.SessionClosed()
	h.log.InfoContext(ctx, "sse.stream.end", slog.Duration("dur", time.Since(start)))
}

// process dispatches one message and pushes the response, if any. The
// returned error is a stream write failure.
func (h *Handler) process(ctx context.Context, s *session, msg []byte) error {
	resp := h.rpc.HandleMessage(ctx, msg)
	if resp == nil {
		return nil
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		h.log.ErrorContext(ctx, "sse.message.encode.fail", slog.String("err", err.Error()))
		resp = jsonrpc.NewErrorResponse(resp.ID, jsonrpc.ErrorCodeInternalError, "internal error: "+err.Error(), nil)
		if payload, err = json.Marshal(resp); err != nil {
			return nil
		}
	}
	if err := s.wf.writeEvent(eventMessage, payload); err != nil {
		return err
	}
	h.log.DebugContext(ctx, "sse.message.deliver")
	return nil
}

// deliverForwarded receives messages other nodes published for s.
func (h *Handler) deliverForwarded(s *session) sessions.MessageHandlerFunction {
	return func(ctx context.Context, msg []byte) error {
		if err := s.enqueue(ctx, msg); err != nil {
			return err
		}
		metrics.MessageForwarded("in")
		return nil
	}
}

// handlePostMessage accepts one JSON-RPC message for an open session.
func (h *Handler) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	id := r.URL.Query().Get(sessionIDParam)
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "missing sessionId query parameter")
		h.log.WarnContext(ctx, "session.id.missing")
		return
	}
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{SessionID: id, Node: h.node})

	if r.Header.Get("Content-Type") != "" {
		ctype, err := contenttype.GetMediaType(r)
		if err != nil || !ctype.Matches(jsonMediaType) {
			writeJSONError(w, http.StatusUnsupportedMediaType, "content-type must be application/json")
			h.log.WarnContext(ctx, "content_type.unsupported")
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err != nil {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "message too large")
		h.log.WarnContext(ctx, "http.post.body.fail", slog.String("err", err.Error()))
		return
	}

	v, local := h.sessions.Load(id)
	if !local {
		h.forward(ctx, w, id, body)
		return
	}
	s := v.(*session)

	if !json.Valid(body) {
		// Report the parse error on the stream as well as to the caller.
		resp := jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeParseError, "", nil)
		if payload, err := json.Marshal(resp); err == nil {
			if err := s.wf.writeEvent(eventMessage, payload); err != nil {
				h.log.DebugContext(ctx, "sse.parse_error.write.fail", slog.String("err", err.Error()))
			}
		}
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		h.log.WarnContext(ctx, "json.decode.fail")
		return
	}

	if err := s.enqueue(ctx, body); err != nil {
		writeRPCError(w, http.StatusNotFound, jsonrpc.ErrorCodeInvalidRequest, fmt.Sprintf("%s: %s", ErrSessionNotFound, id))
		h.log.InfoContext(ctx, "session.enqueue.miss", slog.String("err", err.Error()))
		return
	}
	w.WriteHeader(http.StatusAccepted)
	h.log.InfoContext(ctx, "http.post.ok", slog.Duration("dur", time.Since(start)))
}

// forward hands a message for a session this node does not hold to the
// session host.
func (h *Handler) forward(ctx context.Context, w http.ResponseWriter, id string, body []byte) {
	if h.host == nil {
		writeRPCError(w, http.StatusNotFound, jsonrpc.ErrorCodeInvalidRequest, fmt.Sprintf("%s: %s", ErrSessionNotFound, id))
		h.log.InfoContext(ctx, "session.load.miss")
		return
	}
	if !json.Valid(body) {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		h.log.WarnContext(ctx, "json.decode.fail")
		return
	}
	if err := h.host.Publish(ctx, id, body); err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			writeRPCError(w, http.StatusNotFound, jsonrpc.ErrorCodeInvalidRequest, fmt.Sprintf("%s: %s", ErrSessionNotFound, id))
			h.log.InfoContext(ctx, "session.load.miss")
			return
		}
		writeJSONError(w, http.StatusBadGateway, "failed to route message")
		h.log.ErrorContext(ctx, "session.forward.fail", slog.String("err", err.Error()))
		return
	}
	metrics.MessageForwarded("out")
	w.WriteHeader(http.StatusAccepted)
	h.log.InfoContext(ctx, "http.post.forwarded")
}

// Shutdown closes every open session, clears the table and waits for the
// streams to finish or ctx to end. New streams are refused afterwards.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.shuttingDown.Store(true)
	h.sessions.Range(func(key, value any) bool {
		value.(*session).close()
		h.sessions.Delete(key)
		return true
	})

	done := make(chan struct{})
	go func() {
		h.streams.Wait()
		close(done)
	}()
	select {
	case <-done:
		h.log.InfoContext(ctx, "sse.shutdown.ok")
		return nil
	case <-ctx.Done():
		h.log.WarnContext(ctx, "sse.shutdown.timeout")
		return ctx.Err()
	}
}
