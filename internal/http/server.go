package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"
	"golang.org/x/sync/singleflight"

	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
)

const (
	defaultRequestTimeout = 7 * time.Second
	readyTimeout          = 2 * time.Second
)

// Options configures NewServer.
type Options struct {
	Addr               string
	Analyzer           Analyzer
	Store              Pinger
	AllowedOrigins     []string
	RateLimitPerMinute int
	Logger             *log.Logger

	// RequestTimeout bounds each analytics computation; 7s when zero.
	RequestTimeout time.Duration
	// Now is the clock presets are resolved against.
	Now func() time.Time
}

type Server struct {
	http.Server
	analyzer       Analyzer
	store          Pinger
	requestTimeout time.Duration
	now            func() time.Time
	startedAt      time.Time

	rateLimiter     *ratelimit.Limiter
	detector        *security.Detector
	traceMiddleware *trace.Middleware

	// dashboards collapses identical dashboard requests in flight
	dashboards singleflight.Group

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}

	detector := security.NewDetector()
	s := &Server{
		analyzer:        opts.Analyzer,
		store:           opts.Store,
		requestTimeout:  opts.RequestTimeout,
		now:             opts.Now,
		startedAt:       time.Now(),
		rateLimiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:        detector,
		traceMiddleware: trace.NewMiddleware(detector.ExtractClientIP),
	}

	api := http.NewServeMux()
	api.HandleFunc("GET /api/v1/analytics/health", handleMetric(s, "health", s.analyzer.Health))
	api.HandleFunc("GET /api/v1/analytics/categories", handleMetric(s, "categories", s.analyzer.Categories))
	api.HandleFunc("GET /api/v1/analytics/distribution", handleMetric(s, "distribution", s.analyzer.Distribution))
	api.HandleFunc("GET /api/v1/analytics/trends", handleMetric(s, "trends", s.analyzer.Trends))
	api.HandleFunc("GET /api/v1/analytics/goals", handleMetric(s, "goals", s.analyzer.Goals))
	api.HandleFunc("GET /api/v1/analytics/dashboard", s.handleDashboard)

	limited := s.rateLimiter.Middleware(detector.ExtractClientIP, s.onRateLimit)(api)

	mux := http.NewServeMux()
	mux.Handle("/api/", limited)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	c := cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", userIDHeader, trace.RequestIDHeader},
		ExposedHeaders: []string{trace.RequestIDHeader, "Retry-After"},
		MaxAge:         300,
	})

	var handler http.Handler = mux
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = log.Middleware(opts.Logger.WithComponent(log.ComponentHTTP))(handler)
	handler = c.Handler(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      opts.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
}
