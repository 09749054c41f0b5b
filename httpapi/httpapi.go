// Package httpapi mirrors the catalog tools as plain JSON over HTTP for
// browsers and scripts that do not speak JSON-RPC.
//
//	GET /healthz              liveness plus catalog size
//	GET /apis                 searchApis (category, method, keyword)
//	GET /apis/detail          getApiDetail (url, method)
//	GET /apis/categories      distinct categories in catalog order
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"

	"github.com/ggoodman/mcp-api-catalog/catalog"
	"github.com/ggoodman/mcp-api-catalog/internal/jsonrpc"
	"github.com/ggoodman/mcp-api-catalog/internal/logctx"
	"github.com/ggoodman/mcp-api-catalog/rpc"
)

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

type detailQuery struct {
	URL    string `schema:"url"`
	Method string `schema:"method"`
}

// Health is the /healthz payload.
type Health struct {
	Status    string `json:"status"`
	Endpoints int    `json:"endpoints"`
	Sessions  *int   `json:"sessions,omitempty"`
}

// Option configures the Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// WithSessionCount reports open sessions on /healthz.
func WithSessionCount(fn func() int) Option {
	return func(h *Handler) { h.sessions = fn }
}

// Handler serves the REST mirror.
type Handler struct {
	mux      *http.ServeMux
	rpc      *rpc.Dispatcher
	source   rpc.CatalogSource
	sessions func() int
	log      *slog.Logger
}

// New returns a Handler answering through d from source.
func New(d *rpc.Dispatcher, source rpc.CatalogSource, opts ...Option) *Handler {
	h := &Handler{rpc: d, source: source}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h.log = logctx.Wrap(h.log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /apis", h.handleSearch)
	mux.HandleFunc("GET /apis/detail", h.handleDetail)
	mux.HandleFunc("GET /apis/categories", h.handleCategories)
	h.mux = mux
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	out := Health{Status: "ok", Endpoints: h.source.Current().Len()}
	if h.sessions != nil {
		n := h.sessions()
		out.Sessions = &n
	}
	h.writeJSON(w, r, http.StatusOK, out)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var f catalog.Filter
	if err := queryDecoder.Decode(&f, r.URL.Query()); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	out, err := h.rpc.Call(r.Context(), rpc.ToolSearchAPIs, rpc.SearchAPIsArgs{
		Keyword:  f.Keyword,
		Category: f.Category,
		Method:   f.Method,
	})
	if err != nil {
		h.writeRPCError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, out)
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	var q detailQuery
	if err := queryDecoder.Decode(&q, r.URL.Query()); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	out, err := h.rpc.Call(r.Context(), rpc.ToolGetAPIDetail, rpc.GetAPIDetailArgs{URL: q.URL, Method: q.Method})
	if err != nil {
		h.writeRPCError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, out)
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]any{"categories": h.source.Current().Categories()})
}

// writeRPCError maps a tool failure onto an HTTP status.
func (h *Handler) writeRPCError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var rpcErr *jsonrpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case jsonrpc.ErrorCodeNotFound:
			status = http.StatusNotFound
		case jsonrpc.ErrorCodeInvalidParams:
			status = http.StatusBadRequest
		}
	}
	h.writeError(w, r, status, err.Error())
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.log.InfoContext(r.Context(), "httpapi.request.err", slog.Int("status", status), slog.String("err", msg))
	h.writeJSON(w, r, status, map[string]any{"error": map[string]any{"code": status, "message": msg}})
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WarnContext(r.Context(), "httpapi.write.fail", slog.String("err", err.Error()))
	}
}
