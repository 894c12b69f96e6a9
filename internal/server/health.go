package server

import (
	"context"
	"net/http"
	"time"
)

const defaultModelCheckTimeout = 10 * time.Second

// healthHandler reports liveness only. Model availability is on /stats.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "OK",
		"message": "AI service running",
		"version": s.Version,
	}
	if s.Certificates != nil {
		response["certificates"] = s.Certificates.Status()
	}
	s.writeJSON(w, http.StatusOK, response)
}

// platformMetricsHandler reports usage totals across every caller.
func (s *Server) platformMetricsHandler(w http.ResponseWriter, r *http.Request) {
	var resumes, questions int64
	if s.history != nil {
		var err error
		if resumes, err = s.history.CountResume(r.Context()); err == nil {
			questions, err = s.history.CountQuestions(r.Context())
		}
		if err != nil {
			s.Logger.LogError(err, "Failed to fetch platform metrics")
			s.writeError(w, "Failed to fetch metrics", http.StatusInternalServerError)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{
		"resumesAnalyzed":    resumes,
		"questionsGenerated": questions,
	})
}

// statsHandler exposes model, breaker, limiter and history state.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"service": "resumerag",
		"version": s.Version,
		"limits": map[string]any{
			"max_file_size_bytes": s.MaxFileSize,
			"max_body_bytes":      s.maxBodySize(),
		},
	}

	if s.models != nil {
		timeout := s.AppConfig.Observability.HealthCheck.AIModelCheckTimeout
		if timeout <= 0 {
			timeout = defaultModelCheckTimeout
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		stats["ai"] = s.models.Stats()
		stats["ai_models"] = s.models.ModelInfo(ctx)
	}

	if s.RateLimiter != nil {
		stats["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		stats["rate_limiting"] = map[string]any{"enabled": false}
	}

	historyStats := map[string]any{"enabled": s.history != nil}
	if s.history != nil {
		historyStats["backend"] = s.history.Name()
		historyStats["limit"] = s.historyLimit(r)
	}
	stats["history"] = historyStats

	if s.Certificates != nil {
		stats["certificates"] = s.Certificates.Status()
	}
	if s.vaultPoller != nil {
		stats["vault_tls"] = s.vaultPoller.Status()
	}

	s.writeJSON(w, http.StatusOK, stats)
}
