package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"resumerag/internal/errors"
	"resumerag/internal/evaluator"
	"resumerag/internal/history"
	"resumerag/internal/ingest"
)

type capabilityFunc func(ctx context.Context, req evaluator.Request) (any, error)

func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	s.serveCapability(w, r, "analyze", func(ctx context.Context, req evaluator.Request) (any, error) {
		return s.evaluator.AnalyzeResume(ctx, req)
	})
}

func (s *Server) questionsHandler(w http.ResponseWriter, r *http.Request) {
	s.serveCapability(w, r, "questions", func(ctx context.Context, req evaluator.Request) (any, error) {
		return s.evaluator.GenerateQuestions(ctx, req)
	})
}

func (s *Server) feedbackHandler(w http.ResponseWriter, r *http.Request) {
	s.serveCapability(w, r, "feedback", func(ctx context.Context, req evaluator.Request) (any, error) {
		return s.evaluator.AnswerFeedback(ctx, req)
	})
}

func (s *Server) idealAnswerHandler(w http.ResponseWriter, r *http.Request) {
	s.serveCapability(w, r, "ideal_answer", func(ctx context.Context, req evaluator.Request) (any, error) {
		return s.evaluator.IdealAnswer(ctx, req)
	})
}

func (s *Server) askHandler(w http.ResponseWriter, r *http.Request) {
	s.serveCapability(w, r, "ask", func(ctx context.Context, req evaluator.Request) (any, error) {
		return s.evaluator.Ask(ctx, req)
	})
}

// serveCapability parses the request into a per-request temp directory,
// runs fn and writes its result. Uploads are removed before returning.
func (s *Server) serveCapability(w http.ResponseWriter, r *http.Request, name string, fn capabilityFunc) {
	ctx, span := s.tracer.Start(r.Context(), "api."+name)
	defer span.End()
	r = r.WithContext(ctx)

	tmp, err := ingest.NewRequestDir(s.TempDir)
	if err != nil {
		s.writeFailure(w, r, span, err)
		return
	}
	defer func() {
		if err := tmp.Cleanup(); err != nil {
			s.Logger.Warn("Failed to remove request uploads", "dir", tmp.Dir(), "error", err.Error())
		}
	}()

	req, err := s.parseCapabilityRequest(r, tmp)
	if err != nil {
		s.writeFailure(w, r, span, err)
		return
	}

	span.SetAttributes(
		attribute.String("operation", name),
		attribute.Int("request.resume_length", len(req.Resume.Text)),
		attribute.Int("request.job_length", len(req.JobDescription.Text)),
		attribute.String("request.resume_source", req.Resume.Source),
	)

	result, err := fn(ctx, req)
	if err != nil {
		s.writeFailure(w, r, span, err)
		return
	}

	span.SetAttributes(attribute.Bool("success", true))
	s.writeJSON(w, http.StatusOK, result)
}

// historyUser returns the caller whose records may be listed. Anonymous
// callers share one identity, so their history is never exposed.
func (s *Server) historyUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := userFromContext(r.Context())
	if user == evaluator.AnonymousUser {
		s.writeError(w, "History requires an API key", http.StatusUnauthorized)
		return "", false
	}
	return user, true
}

func (s *Server) resumeHistoryHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := s.historyUser(w, r)
	if !ok {
		return
	}
	if s.history == nil {
		s.writeJSON(w, http.StatusOK, []any{})
		return
	}
	records, err := s.history.ListResume(r.Context(), user, s.historyLimit(r))
	if err != nil {
		s.writeFailure(w, r, trace.SpanFromContext(r.Context()), err)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) interviewHistoryHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := s.historyUser(w, r)
	if !ok {
		return
	}
	if s.history == nil {
		s.writeJSON(w, http.StatusOK, []any{})
		return
	}
	records, err := s.history.ListInterview(r.Context(), user, s.historyLimit(r))
	if err != nil {
		s.writeFailure(w, r, trace.SpanFromContext(r.Context()), err)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

// historyLimit reads ?limit=, falling back to the configured page size.
func (s *Server) historyLimit(r *http.Request) int {
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		return n
	}
	if s.AppConfig.History.Limit > 0 {
		return s.AppConfig.History.Limit
	}
	return history.DefaultLimit
}

// writeFailure maps err to a status and the client-facing message.
// Invalid model output also carries the raw text.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, span trace.Span, err error) {
	status := errors.HTTPStatus(err)

	span.RecordError(err)
	errType := "internal"
	if appErr, ok := errors.AsAppError(err); ok {
		errType = string(appErr.Type)
	}
	span.SetAttributes(attribute.String("error.type", errType))

	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, err.Error())
		s.Logger.LogError(err, "Request failed", "endpoint", r.URL.Path)
	} else {
		s.Logger.Debug("Request rejected", "endpoint", r.URL.Path, "error", err.Error())
	}

	resp := ErrorResponse{Error: evaluator.FailureMessage(err)}
	if raw, ok := evaluator.RawOutput(err); ok {
		resp.RawOutput = &raw
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) writeError(w http.ResponseWriter, message string, status int) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Warn("Failed to encode response", "status", status, "error", err)
	}
}
