package server

import (
	"context"
	"net/http"
	"strings"

	"resumerag/internal/evaluator"
)

type contextKey int

const userContextKey contextKey = iota

// Handler returns the instrumented route tree.
func (s *Server) Handler() http.Handler {
	return s.om.HTTPMiddleware()(s.setupRoutes())
}

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return s.rateLimitMiddleware(s.authMiddleware(s.requestSizeLimitMiddleware(h)))
	}

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)
	mux.HandleFunc("GET /metrics/platform", s.platformMetricsHandler)

	mux.HandleFunc("POST /resume/analyze", protected(s.analyzeHandler))
	mux.HandleFunc("POST /interview/generate", protected(s.questionsHandler))
	mux.HandleFunc("POST /answer-feedback", protected(s.feedbackHandler))
	mux.HandleFunc("POST /ideal-answer", protected(s.idealAnswerHandler))
	mux.HandleFunc("POST /ask", protected(s.askHandler))

	mux.HandleFunc("GET /history/resume", protected(s.resumeHistoryHandler))
	mux.HandleFunc("GET /history/interview", protected(s.interviewHistoryHandler))

	return mux
}

// authMiddleware checks the API key and records the caller's masked key as
// the request's user. Without configured keys every caller is anonymous.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.APIKeys) == 0 {
			next(w, r.WithContext(withUser(r.Context(), evaluator.AnonymousUser)))
			return
		}

		apiKey := apiKeyFromRequest(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			s.writeError(w, "Missing API key", http.StatusUnauthorized)
			return
		}

		if !s.APIKeys[apiKey] {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			s.writeError(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key_prefix", maskAPIKey(apiKey))

		next(w, r.WithContext(withUser(r.Context(), maskAPIKey(apiKey))))
	}
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	limit := s.maxBodySize()
	return func(w http.ResponseWriter, r *http.Request) {
		if limit > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next(w, r)
	}
}

// apiKeyFromRequest reads X-API-Key, falling back to a Bearer token.
func apiKeyFromRequest(r *http.Request) string {
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		return apiKey
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}

func withUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// userFromContext returns the identity set by authMiddleware.
func userFromContext(ctx context.Context) string {
	if user, ok := ctx.Value(userContextKey).(string); ok && user != "" {
		return user
	}
	return evaluator.AnonymousUser
}
