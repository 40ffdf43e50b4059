package log

import (
	"context"
	"log/slog"
	"net/http"

	"fintrack/internal/core"
)

type contextKey string

const loggerContextKey contextKey = "logger"

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext returns the request logger, or one over slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: ComponentApp}
}

// Middleware puts logger into every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// RequestIDMiddleware enriches the context logger with the request id.
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := FromContext(r.Context()).With(FieldRequestID, extractRequestID(r))
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// LogHTTPEnd logs a finished request at a level chosen by its status.
func LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()).
		WithHTTPResponse(statusCode, durationMs).
		WithClientIP(clientIP)

	FromContext(ctx).WithComponent(ComponentHTTP).LogContext(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogMetricFailure records one analytic that could not be computed.
func LogMetricFailure(ctx context.Context, req core.Request, metric string, err error) {
	fields := NewFields().WithRequest(req).WithMetric(metric).WithOperation(OpCompute).WithError(err)
	FromContext(ctx).WithComponent(ComponentAnalytics).ErrorContext(ctx, "Metric computation failed", fields.ToSlice()...)
}
