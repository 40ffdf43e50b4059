package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

const unavailableMessage = "analytics temporarily unavailable"

// handleMetric serves one analytic as JSON.
func handleMetric[T any](s *Server, metric string, compute func(context.Context, core.Request) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseRequest(r, s.now())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()

		result, err := compute(ctx, req)
		if err != nil {
			s.writeComputeError(ctx, w, req, metric, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// handleDashboard serves all analytics at once. Identical concurrent
// requests share one computation.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := fmt.Sprintf("%d|%s|%s", req.UserID, req.Range.From, req.Range.To)
	ch := s.dashboards.DoChan(key, func() (any, error) {
		// detached so one caller going away does not fail the others
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.requestTimeout)
		defer cancel()
		return s.analyzer.Dashboard(ctx, req)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			s.writeComputeError(r.Context(), w, req, "dashboard", res.Err)
			return
		}
		writeJSON(w, http.StatusOK, res.Val.(*services.Dashboard))
	case <-r.Context().Done():
		// client is gone; nothing useful can be written
	}
}

func (s *Server) writeComputeError(ctx context.Context, w http.ResponseWriter, req core.Request, metric string, err error) {
	status := statusFor(err)
	if status == http.StatusBadRequest {
		writeError(w, status, err.Error())
		return
	}

	log.LogMetricFailure(ctx, req, metric, err)
	if status == http.StatusServiceUnavailable {
		writeError(w, status, unavailableMessage)
		return
	}
	writeError(w, status, "internal server error")
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidUser), errors.Is(err, core.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleHealth is the liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady reports ready only when the store answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := map[string]string{"store": "ok"}
	status, code := "ready", http.StatusOK
	switch {
	case s.store == nil:
		checks["store"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	default:
		if err := s.store.Ping(ctx); err != nil {
			log.FromContext(ctx).WithComponent(log.ComponentStorage).WarnContext(ctx, "Readiness check failed", log.FieldError, err.Error())
			checks["store"] = "unavailable"
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}
