package http

import (
	"context"
	"net/http"
	"time"
)

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{
		"status": "ok",
		"uptime": s.now().Sub(s.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks the document store and reports cache and limiter state.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status, code := "ready", http.StatusOK
	checks := map[string]any{}

	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			checks["store"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	} else {
		checks["store"] = "ok"
	}
	if s.ledger == nil {
		checks["ledger"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	checks["cache"] = map[string]int{"report_entries": s.reports.Size()}
	checks["rate_limiter"] = s.limiter.GetMetrics()
	checks["requests"] = s.tracer.GetMetrics()
	checks["suspicious_requests"] = s.detector.GetMetrics().SuspiciousRequests

	NewResponse().Status(code).JSON(map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}
