package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

const (
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorReset  = "\x1b[0m"
)

// New builds the process logger.
// Kubernetes, prod and dev get a JSON handler at info level; anything else
// gets a coloured text handler at debug level. Both add trace_id/span_id when
// the record's context carries an OTel span.
func New(env string) *slog.Logger {
	return slog.New(newTraceContextHandler(newHandler(os.Stdout, env)))
}

func NewWithServiceContext(serviceName, version, env string) *slog.Logger {
	return New(env).With(
		slog.String("service", serviceName),
		slog.String("version", version),
		slog.String("environment", env),
	)
}

// NewDiscard returns a logger that drops every record. Used by tests.
func NewDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHandler(w io.Writer, env string) slog.Handler {
	_, inK8s := os.LookupEnv("KUBERNETES_SERVICE_HOST")
	if inK8s || env == "prod" || env == "dev" {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: true,
		})
	}
	return newColorTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
}

// colorTextHandler colours the message of WARN and ERROR records.
type colorTextHandler struct {
	handler slog.Handler
}

func newColorTextHandler(w io.Writer, opts *slog.HandlerOptions) *colorTextHandler {
	return &colorTextHandler{
		handler: slog.NewTextHandler(w, opts),
	}
}

func (h *colorTextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *colorTextHandler) Handle(ctx context.Context, r slog.Record) error {
	var color string
	switch {
	case r.Level >= slog.LevelError:
		color = colorRed
	case r.Level >= slog.LevelWarn:
		color = colorYellow
	default:
		return h.handler.Handle(ctx, r)
	}

	colored := slog.NewRecord(r.Time, r.Level, fmt.Sprintf("%s%s%s", color, r.Message, colorReset), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		colored.AddAttrs(a)
		return true
	})
	return h.handler.Handle(ctx, colored)
}

func (h *colorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &colorTextHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *colorTextHandler) WithGroup(name string) slog.Handler {
	return &colorTextHandler{handler: h.handler.WithGroup(name)}
}

// traceContextHandler adds trace_id and span_id from the OTel span context.
type traceContextHandler struct {
	handler slog.Handler
}

func newTraceContextHandler(h slog.Handler) *traceContextHandler {
	return &traceContextHandler{handler: h}
}

func (h *traceContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *traceContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}
	return h.handler.Handle(ctx, r)
}

func (h *traceContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceContextHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *traceContextHandler) WithGroup(name string) slog.Handler {
	return &traceContextHandler{handler: h.handler.WithGroup(name)}
}
