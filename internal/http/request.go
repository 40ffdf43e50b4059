package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

const userIDHeader = "X-User-ID"

// parseRequest builds the analytics request from the caller's user id and
// the range parameters. A bad range falls back to the default window; a
// bad user id is an error.
func parseRequest(r *http.Request, now time.Time) (core.Request, error) {
	raw := strings.TrimSpace(r.Header.Get(userIDHeader))
	if raw == "" {
		raw = strings.TrimSpace(r.URL.Query().Get("user_id"))
	}
	if raw == "" {
		return core.Request{}, fmt.Errorf("missing user id: %w", core.ErrInvalidUser)
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return core.Request{}, core.ErrInvalidUser
	}

	q := r.URL.Query()
	name := q.Get("range")
	if name == "" {
		name = q.Get("preset")
	}
	rng, preset := core.ResolveRange(now, name, q.Get("start_date"), q.Get("end_date"))
	return core.Request{UserID: userID, Range: rng, Preset: preset}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
