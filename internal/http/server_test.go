package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

var testNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, analyzer Analyzer, store Pinger) *Server {
	t.Helper()
	srv := NewServer(Options{
		Addr:               ":0",
		Analyzer:           analyzer,
		Store:              store,
		AllowedOrigins:     []string{"http://localhost:3000"},
		RateLimitPerMinute: 100,
		Now:                func() time.Time { return testNow },
	})
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		header  string
		wantErr bool
		user    int64
		rng     core.DateRange
		preset  core.RangePreset
	}{
		{
			name:   "header wins and default preset",
			target: "/?user_id=9",
			header: "7",
			user:   7,
			rng:    core.DateRange{From: core.NewDate(2024, 4, 1), To: core.NewDate(2025, 3, 15)},
			preset: core.Range12Months,
		},
		{
			name:   "query user and preset",
			target: "/?user_id=3&preset=3_months",
			user:   3,
			rng:    core.DateRange{From: core.NewDate(2025, 1, 1), To: core.NewDate(2025, 3, 15)},
			preset: core.Range3Months,
		},
		{
			name:   "range parameter wins over preset alias",
			target: "/?user_id=3&range=6_months&preset=3_months",
			user:   3,
			rng:    core.DateRange{From: core.NewDate(2024, 10, 1), To: core.NewDate(2025, 3, 15)},
			preset: core.Range6Months,
		},
		{
			name:   "unbounded explicit dates fall back",
			target: "/?user_id=3&start_date=0001-01-01&end_date=9999-12-31",
			user:   3,
			rng:    core.DateRange{From: core.NewDate(2024, 4, 1), To: core.NewDate(2025, 3, 15)},
			preset: core.Range12Months,
		},
		{
			name:   "explicit dates",
			target: "/?user_id=3&start_date=2025-01-01&end_date=2025-01-31",
			user:   3,
			rng:    core.DateRange{From: core.NewDate(2025, 1, 1), To: core.NewDate(2025, 1, 31)},
		},
		{
			name:   "inverted dates fall back",
			target: "/?user_id=3&start_date=2025-02-01&end_date=2025-01-01&preset=bogus",
			user:   3,
			rng:    core.DateRange{From: core.NewDate(2024, 4, 1), To: core.NewDate(2025, 3, 15)},
			preset: core.Range12Months,
		},
		{name: "missing user", target: "/", wantErr: true},
		{name: "zero user", target: "/?user_id=0", wantErr: true},
		{name: "negative user", target: "/", header: "-4", wantErr: true},
		{name: "non numeric user", target: "/?user_id=abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				r.Header.Set(userIDHeader, tt.header)
			}
			req, err := parseRequest(r, testNow)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrInvalidUser)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.user, req.UserID)
			assert.Equal(t, tt.rng, req.Range)
			assert.Equal(t, tt.preset, req.Preset)
		})
	}
}

func TestMetricEndpoints(t *testing.T) {
	ctrl := gomock.NewController(t)
	analyzer := NewMockAnalyzer(ctrl)
	srv := newTestServer(t, analyzer, nil)

	want := core.Request{
		UserID: 5,
		Range:  core.DateRange{From: core.NewDate(2024, 10, 1), To: core.NewDate(2025, 3, 15)},
		Preset: core.Range6Months,
	}
	analyzer.EXPECT().Health(gomock.Any(), want).Return(&analytics.HealthScore{Overall: 82, Grade: analytics.GradeExcellent}, nil)
	analyzer.EXPECT().Categories(gomock.Any(), want).Return(&analytics.CategoryAnalysis{}, nil)
	analyzer.EXPECT().Distribution(gomock.Any(), want).Return(&analytics.Distribution{}, nil)
	analyzer.EXPECT().Trends(gomock.Any(), want).Return(&analytics.SpendingTrends{}, nil)
	analyzer.EXPECT().Goals(gomock.Any(), want).Return(&analytics.GoalProgress{}, nil)

	for _, metric := range []string{"health", "categories", "distribution", "trends", "goals"} {
		t.Run(metric, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/"+metric+"?preset=6_months", nil)
			req.Header.Set(userIDHeader, "5")
			rec := serve(srv, req)

			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
			if metric == "health" {
				assert.Equal(t, 82.0, decode(t, rec)["overall_score"])
			}
		})
	}
}

func TestMetricEndpoint_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"store unavailable", fmt.Errorf("begin snapshot: %w", storage.ErrUnavailable), http.StatusServiceUnavailable, unavailableMessage},
		{"timeout", context.DeadlineExceeded, http.StatusServiceUnavailable, unavailableMessage},
		{"invalid range", core.ErrInvalidRange, http.StatusBadRequest, core.ErrInvalidRange.Error()},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			analyzer := NewMockAnalyzer(ctrl)
			analyzer.EXPECT().Trends(gomock.Any(), gomock.Any()).Return(nil, tt.err)
			srv := newTestServer(t, analyzer, nil)

			rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/trends?user_id=1", nil))
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.message, decode(t, rec)["error"])
		})
	}
}

func TestMetricEndpoint_BadUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	srv := newTestServer(t, NewMockAnalyzer(ctrl), nil)

	for _, target := range []string{
		"/api/v1/analytics/health",
		"/api/v1/analytics/dashboard?user_id=-1",
	} {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	srv := newTestServer(t, NewMockAnalyzer(ctrl), nil)

	rec := serve(srv, httptest.NewRequest(http.MethodPost, "/api/v1/analytics/health?user_id=1", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDashboardEndpoint_PartialFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	analyzer := NewMockAnalyzer(ctrl)
	analyzer.EXPECT().Dashboard(gomock.Any(), gomock.Any()).Return(&services.Dashboard{
		Health:       services.MetricResult[analytics.HealthScore]{Data: &analytics.HealthScore{Overall: 64}},
		Categories:   services.MetricResult[analytics.CategoryAnalysis]{Data: &analytics.CategoryAnalysis{}},
		Distribution: services.MetricResult[analytics.Distribution]{Data: &analytics.Distribution{}},
		Trends:       services.MetricResult[analytics.SpendingTrends]{Data: &analytics.SpendingTrends{}},
		Goals:        services.MetricResult[analytics.GoalProgress]{Err: "goals unavailable"},
	}, nil)
	srv := newTestServer(t, analyzer, nil)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/dashboard?user_id=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, map[string]any{"error": "goals unavailable"}, body["goals"])
	assert.Equal(t, 64.0, body["health"].(map[string]any)["overall_score"])
}

func TestDashboardEndpoint_SharesInFlightComputation(t *testing.T) {
	ctrl := gomock.NewController(t)
	analyzer := NewMockAnalyzer(ctrl)

	release := make(chan struct{})
	analyzer.EXPECT().Dashboard(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, core.Request) (*services.Dashboard, error) {
			<-release
			return &services.Dashboard{}, nil
		}).
		MinTimes(1).MaxTimes(2)
	srv := newTestServer(t, analyzer, nil)

	const callers = 5
	var wg sync.WaitGroup
	codes := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/dashboard?user_id=1", nil)).Code
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
}

func TestProbes(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockPinger(ctrl)
	srv := newTestServer(t, NewMockAnalyzer(ctrl), store)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	store.EXPECT().Ping(gomock.Any()).Return(nil)
	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	store.EXPECT().Ping(gomock.Any()).Return(storage.ErrUnavailable)
	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", decode(t, rec)["status"])
}

func TestReadyWithoutStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	srv := newTestServer(t, NewMockAnalyzer(ctrl), nil)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORS(t *testing.T) {
	ctrl := gomock.NewController(t)
	srv := newTestServer(t, NewMockAnalyzer(ctrl), nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/analytics/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", userIDHeader)
	rec := serve(srv, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/analytics/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec = serve(srv, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	analyzer := NewMockAnalyzer(ctrl)
	analyzer.EXPECT().Goals(gomock.Any(), gomock.Any()).Return(&analytics.GoalProgress{}, nil).Times(2)

	srv := NewServer(Options{Analyzer: analyzer, RateLimitPerMinute: 2, Now: func() time.Time { return testNow }})
	defer srv.Shutdown(context.Background())

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/goals?user_id=1", nil))
		assert.Equal(t, want, rec.Code, "request %d", i+1)
	}

	// health endpoints are not limited
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEndToEnd_MemoryStore(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	defer store.Close()

	salary, err := store.CreateCategory(ctx, core.Category{UserID: 1, Name: "Salary", Type: core.Income})
	require.NoError(t, err)
	rent, err := store.CreateCategory(ctx, core.Category{UserID: 1, Name: "Rent", Type: core.Expense, BudgetLimit: decimal.NewFromInt(1000)})
	require.NoError(t, err)
	for _, tx := range []core.Transaction{
		{UserID: 1, CategoryID: salary, Amount: decimal.NewFromInt(4000), Date: core.NewDate(2025, 3, 1)},
		{UserID: 1, CategoryID: rent, Amount: decimal.NewFromInt(900), Date: core.NewDate(2025, 3, 2)},
	} {
		_, err := store.CreateTransaction(ctx, tx)
		require.NoError(t, err)
	}

	svc := services.NewAnalyticsService(store).WithClock(func() time.Time { return testNow })
	srv := newTestServer(t, svc, store)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/dashboard?user_id=1&preset=3_months", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	for _, key := range []string{"health", "categories", "distribution", "trends", "goals"} {
		slot, ok := body[key].(map[string]any)
		require.True(t, ok, key)
		assert.NotContains(t, slot, "error", key)
	}

	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, store.Close())
	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/health?user_id=1", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, unavailableMessage, decode(t, rec)["error"])
}
