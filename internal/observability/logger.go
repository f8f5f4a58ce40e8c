package observability

import (
	"context"
	"io"
	"log/slog"

	"github.com/salesquery/salesquery/internal/config"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// NewLogger builds the service logger. Records logged with a request context
// carry that request's trace_id.
func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	options := &slog.HandlerOptions{Level: cfg.Observability.LogLevel}
	var handler slog.Handler = slog.NewTextHandler(writer, options)
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, options)
	}
	return slog.New(traceHandler{handler}).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
	)
}

type traceHandler struct {
	slog.Handler
}

func (h traceHandler) Handle(ctx context.Context, record slog.Record) error {
	if traceID := TraceIDFromContext(ctx); traceID != "" && !hasAttr(record, string(traceIDKey)) {
		record = record.Clone()
		record.AddAttrs(slog.String(string(traceIDKey), traceID))
	}
	return h.Handler.Handle(ctx, record)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{h.Handler.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{h.Handler.WithGroup(name)}
}

func hasAttr(record slog.Record, key string) bool {
	found := false
	record.Attrs(func(attr slog.Attr) bool {
		found = attr.Key == key
		return !found
	})
	return found
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(traceIDKey).(string)
	return value
}
