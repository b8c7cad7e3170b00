package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"salesdash/internal/log"
	"salesdash/internal/services"
	"salesdash/internal/users"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	}).Write(w)
}

// handleReady reports whether the last dataset load succeeded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	st := s.dashboard.Status()
	checks := map[string]any{"dataset": "ok"}
	status, code := "ready", http.StatusOK
	switch {
	case st.LastErr != nil:
		checks["dataset"] = fmt.Sprintf("failed: %v", st.LastErr)
		status, code = "not_ready", http.StatusServiceUnavailable
	case st.Loaded.IsZero():
		checks["dataset"] = "not_loaded"
	}
	NewJSONResponse().Status(code).Data(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides request and security counters in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	sec := s.detector.GetMetrics()
	rl := s.authLimiter.GetMetrics()
	tr := s.tracer.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", tr.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", tr.ServerErrors)
	metric("rate_limit_hits_total", "counter", "Login attempts rejected by the rate limiter", rl.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rl.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", sec.SuspiciousRequests)
	metric("blocked_requests_total", "counter", "Requests blocked by method", sec.BlockedRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.started).Seconds()))
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(FilterOptionsResponse(s.dashboard.FilterOptions(r.Context()))).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view := s.dashboard.Dashboard(r.Context(), parseFilters(r))
	NewJSONResponse().Data(DashboardResponse(view)).Write(w)
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	view := s.dashboard.TargetVsAchievement(r.Context(), parseFilters(r))
	NewJSONResponse().Data(TargetResponse(view)).Write(w)
}

func (s *Server) handleDRR(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateParam(r, "from")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	view, err := s.dashboard.DRRSummary(r.Context(), from, to, parseFilters(r))
	if err != nil {
		if errors.Is(err, services.ErrInvalidRange) {
			BadRequestError(err.Error()).Write(w)
			return
		}
		log.FromContext(r.Context()).ErrorContext(r.Context(), "DRR summary failed", log.FieldError, err)
		InternalServerError("could not compute daily run rate").Write(w)
		return
	}
	NewJSONResponse().Data(DRRResponse(view)).Write(w)
}

// handleRefresh drops the cached dataset and, when a publisher is
// configured, tells the other replicas to do the same.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	s.dashboard.Refresh(ctx)

	published := false
	if s.publisher != nil {
		if err := s.publisher.PublishRefresh(ctx, "manual refresh"); err != nil {
			logger.WarnContext(ctx, "Refresh broadcast failed",
				log.FieldOperation, log.OpPublish,
				log.FieldError, err)
		} else {
			published = true
		}
	}
	NewJSONResponse().Data(map[string]any{
		"refreshed": true,
		"published": published,
	}).Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	u, err := s.auth.Login(r.Context(), p.Get("username"), p.GetSecret("password"))
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	NewJSONResponse().Data(map[string]any{
		"username": u.Name,
		"access":   u.Access,
	}).Write(w)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	err := s.auth.ChangePassword(r.Context(),
		p.Get("username"),
		p.GetSecret("current_password"),
		p.GetSecret("new_password"),
		p.GetSecret("confirm_password"))
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	NewJSONResponse().Data(map[string]any{"updated": true}).Write(w)
}

func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, users.ErrInvalidCredentials), errors.Is(err, users.ErrUserNotFound):
		UnauthorizedError(users.ErrInvalidCredentials.Error()).Write(w)
	case errors.Is(err, services.ErrPasswordMismatch), errors.Is(err, services.ErrEmptyPassword):
		BadRequestError(err.Error()).Write(w)
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Credential store failure", log.FieldError, err)
		InternalServerError("credential store unavailable").Write(w)
	}
}
