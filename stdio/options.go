package stdio

import (
	"io"
	"log/slog"
)

// Option customizes a Handler.
type Option func(*Handler)

// WithIO replaces stdin and stdout. A nil argument keeps the default for
// that side.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(h *Handler) {
		if r != nil {
			h.r = r
		}
		if w != nil {
			h.w = w
		}
	}
}

// WithLogger sets the logger. It must not write to the output stream.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.l = l
		}
	}
}

// WithMaxMessageSize bounds one inbound line, in bytes. Longer lines stop
// Serve with an error.
func WithMaxMessageSize(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxMessage = n
		}
	}
}
