// Package trace tags each request with an id and logs its completion.
package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// RequestIDHeader carries the id in both directions.
	RequestIDHeader = "X-Request-ID"

	maxIncomingIDLength = 64
)

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string
	metrics   *Metrics
}

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests  int64
	ServerErrors   int64
	LastDurationUs int64
}

// NewMiddleware creates a new trace middleware
func NewMiddleware(extractIP func(*http.Request) string) *Middleware {
	return &Middleware{
		extractIP: extractIP,
		metrics:   &Metrics{},
	}
}

// Middleware assigns a request id, exposes it to handlers and the response,
// and logs the finished request.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := incomingRequestID(r)
		if requestID == "" {
			requestID = GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		logger := log.FromContext(ctx).With(log.FieldRequestID, requestID)
		ctx = log.NewContext(ctx, logger)
		r = r.WithContext(ctx)

		atomic.AddInt64(&m.metrics.TotalRequests, 1)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		atomic.StoreInt64(&m.metrics.LastDurationUs, duration.Microseconds())
		if rw.statusCode >= 500 {
			atomic.AddInt64(&m.metrics.ServerErrors, 1)
		}

		log.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)
	})
}

// incomingRequestID accepts a caller supplied id when it is a sane token.
func incomingRequestID(r *http.Request) string {
	id := r.Header.Get(RequestIDHeader)
	if id == "" || len(id) > maxIncomingIDLength {
		return ""
	}
	for _, c := range id {
		if !(c == '-' || c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return ""
		}
	}
	return id
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetMetrics returns current metrics
func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:  atomic.LoadInt64(&m.metrics.TotalRequests),
		ServerErrors:   atomic.LoadInt64(&m.metrics.ServerErrors),
		LastDurationUs: atomic.LoadInt64(&m.metrics.LastDurationUs),
	}
}
