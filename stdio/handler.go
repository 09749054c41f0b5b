package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/ggoodman/mcp-api-catalog/internal/jsonrpc"
	"github.com/ggoodman/mcp-api-catalog/internal/logctx"
	"github.com/ggoodman/mcp-api-catalog/metrics"
)

const defaultMaxMessage = 4 << 20

// Dispatcher processes one raw JSON-RPC message. A nil response means
// nothing is written back.
type Dispatcher interface {
	HandleMessage(ctx context.Context, raw []byte) *jsonrpc.Response
}

// Handler is a single-connection transport that reads newline-delimited
// JSON-RPC messages from an io.Reader and writes responses to an
// io.Writer. By default it uses os.Stdin and os.Stdout.
type Handler struct {
	d          Dispatcher
	r          io.Reader
	w          io.Writer
	l          *slog.Logger
	maxMessage int
}

// NewHandler constructs a stdio Handler with defaults and applies options.
func NewHandler(d Dispatcher, opts ...Option) *Handler {
	h := &Handler{
		d:          d,
		r:          os.Stdin,
		w:          os.Stdout,
		l:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxMessage: defaultMaxMessage,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.l = logctx.Wrap(h.l)
	return h
}

type line struct {
	data []byte
	err  error
}

// Serve runs the event loop until EOF on the reader or ctx is canceled. EOF
// is a clean shutdown and returns nil. It is safe to call at most once per
// Handler.
func (h *Handler) Serve(ctx context.Context) error {
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{SessionID: uuid.NewString(), Node: "stdio"})

	metrics.SessionOpened()
	defer metrics.SessionClosed()

	lines := make(chan line)
	go h.read(ctx, lines)

	h.l.InfoContext(ctx, "stdio.serve.start")
	for {
		select {
		case <-ctx.Done():
			h.l.InfoContext(ctx, "stdio.serve.stop", slog.String("reason", ctx.Err().Error()))
			return ctx.Err()
		case ln, ok := <-lines:
			if !ok {
				h.l.InfoContext(ctx, "stdio.serve.eof")
				return nil
			}
			if ln.err != nil {
				return fmt.Errorf("read message: %w", ln.err)
			}
			if err := h.process(ctx, ln.data); err != nil {
				return err
			}
		}
	}
}

// read forwards each non-blank line to out and closes it at EOF. Lines are
// copied because the scanner reuses its buffer.
func (h *Handler) read(ctx context.Context, out chan<- line) {
	defer close(out)

	sc := bufio.NewScanner(h.r)
	sc.Buffer(make([]byte, 0, min(64*1024, h.maxMessage)), h.maxMessage)
	for sc.Scan() {
		data := bytes.TrimSpace(sc.Bytes())
		if len(data) == 0 {
			continue
		}
		select {
		case out <- line{data: bytes.Clone(data)}:
		case <-ctx.Done():
			return
		}
	}
	if err := sc.Err(); err != nil {
		select {
		case out <- line{err: err}:
		case <-ctx.Done():
		}
	}
}

func (h *Handler) process(ctx context.Context, msg []byte) error {
	res := h.d.HandleMessage(ctx, msg)
	if res == nil {
		return nil
	}
	b, err := json.Marshal(res)
	if err != nil {
		h.l.ErrorContext(ctx, "stdio.marshal.err", slog.String("err", err.Error()))
		return nil
	}
	b = append(b, '\n')
	if _, err := h.w.Write(b); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
