package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
)

// Handler is a JSON slog handler that stamps records with the request id and
// the trace id carried by the context.
type Handler struct {
	slog.Handler
}

// NewHandler creates a Handler writing to stdout. Nil opts log at info level.
func NewHandler(opts *slog.HandlerOptions) *Handler {
	return NewHandlerWithWriter(os.Stdout, opts)
}

// NewHandlerWithWriter creates a Handler writing to w.
func NewHandlerWithWriter(w io.Writer, opts *slog.HandlerOptions) *Handler {
	return &Handler{Handler: slog.NewJSONHandler(w, opts)}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		r.AddAttrs(slog.String("request_id", reqID))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", sc.TraceID().String()))
	}

	return h.Handler.Handle(ctx, r)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{Handler: h.Handler.WithGroup(name)}
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(lvl string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
