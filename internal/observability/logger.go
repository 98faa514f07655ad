package observability

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tabletalk/tabletalk/internal/config"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// NewLogger builds the process logger. The "console" format renders slog's
// JSON records through zerolog's console writer for local development.
func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	opts := &slog.HandlerOptions{Level: cfg.Observability.LogLevel}

	var handler slog.Handler
	switch cfg.Observability.LogFormat {
	case "text":
		handler = slog.NewTextHandler(writer, opts)
	case "console":
		handler = slog.NewJSONHandler(newConsoleWriter(writer), opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}
	return slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
	)
}

func newConsoleWriter(out io.Writer) io.Writer {
	return zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = out
		w.NoColor = true
		w.TimeFormat = time.RFC3339
		w.FormatPrepare = slogToZerologFields
	})
}

// slogToZerologFields maps slog's record keys onto the field names the
// console writer expects.
func slogToZerologFields(evt map[string]any) error {
	if msg, ok := evt[slog.MessageKey]; ok {
		evt[zerolog.MessageFieldName] = msg
		delete(evt, slog.MessageKey)
	}
	if level, ok := evt[slog.LevelKey].(string); ok {
		evt[zerolog.LevelFieldName] = strings.ToLower(level)
	}
	if ts, ok := evt[slog.TimeKey]; ok && slog.TimeKey != zerolog.TimestampFieldName {
		evt[zerolog.TimestampFieldName] = ts
		delete(evt, slog.TimeKey)
	}
	return nil
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	value, ok := ctx.Value(traceIDKey).(string)
	if !ok {
		return ""
	}
	return value
}
