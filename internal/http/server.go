package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"salesdash/internal/log"
	"salesdash/internal/middleware/ratelimit"
	"salesdash/internal/middleware/security"
	"salesdash/internal/middleware/trace"
	"salesdash/internal/services"
)

// Publisher fans a refresh out to other replicas.
type Publisher interface {
	PublishRefresh(ctx context.Context, reason string) error
}

// Deps are the collaborators of the HTTP host. Publisher may be nil.
type Deps struct {
	Dashboard *services.DashboardService
	Auth      *services.AuthService
	Publisher Publisher
	Logger    *log.Logger
	AuthRate  ratelimit.Config
}

type Server struct {
	http.Server
	dashboard *services.DashboardService
	auth      *services.AuthService
	publisher Publisher
	logger    *log.Logger

	detector    *security.Detector
	tracer      *trace.Middleware
	authLimiter *ratelimit.Limiter

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		dashboard:   deps.Dashboard,
		auth:        deps.Auth,
		publisher:   deps.Publisher,
		logger:      logger,
		detector:    security.NewDetector(logger),
		authLimiter: ratelimit.NewLimiter(deps.AuthRate),
		started:     time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	limited := s.authLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "too many attempts, try again later").Write(w)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /api/filters", s.handleFilters)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/targets", s.handleTargets)
	mux.HandleFunc("GET /api/drr", s.handleDRR)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.Handle("POST /api/login", limited(http.HandlerFunc(s.handleLogin)))
	mux.Handle("POST /api/password", limited(http.HandlerFunc(s.handleChangePassword)))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var h http.Handler = mux
	h = log.Middleware(logger, trace.RequestID)(h)
	h = s.tracer.Middleware(h)
	h = headers.Middleware(h)
	h = s.detector.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and the limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.authLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
