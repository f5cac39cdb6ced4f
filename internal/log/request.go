package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type ctxKey struct{}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request-scoped logger, or the default logger
// tagged "unknown" outside a traced request.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return logger
	}
	return Wrap(slog.Default(), "unknown")
}

// RequestLogger writes the start and completion lines of an HTTP request.
type RequestLogger struct {
	logger *Logger
}

func NewRequestLogger(logger *Logger) RequestLogger {
	return RequestLogger{logger: logger}
}

// Started logs at debug level.
func (rl RequestLogger) Started(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP)
	rl.logger.DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// Finished logs client errors as warnings and server errors as errors.
func (rl RequestLogger) Finished(ctx context.Context, r *http.Request, status int, elapsed time.Duration, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(status, elapsed.Milliseconds(), status < 400).
		WithClientIP(clientIP)
	rl.logger.Log(ctx, levelForStatus(status), "HTTP request completed", fields.ToSlice()...)
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
