package server

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"resumerag/internal/ai"
	"resumerag/internal/config"
	"resumerag/internal/errors"
	"resumerag/internal/evaluator"
	"resumerag/internal/history"
	"resumerag/internal/observability"
	"resumerag/internal/types"
)

// Evaluator is the capability surface the handlers call.
type Evaluator interface {
	AnalyzeResume(ctx context.Context, req evaluator.Request) (*types.AnalysisResult, error)
	GenerateQuestions(ctx context.Context, req evaluator.Request) ([]types.InterviewQuestion, error)
	AnswerFeedback(ctx context.Context, req evaluator.Request) (*types.FeedbackResult, error)
	IdealAnswer(ctx context.Context, req evaluator.Request) (*types.IdealAnswer, error)
	Ask(ctx context.Context, req evaluator.Request) (*types.AskResult, error)
}

// ModelReporter exposes model availability and breaker state for /health
// and /stats.
type ModelReporter interface {
	ModelInfo(ctx context.Context) map[string]*ai.ModelInfo
	Stats() map[string]any
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	// RawOutput is set, possibly to "", when the model's answer was not
	// valid JSON.
	RawOutput *string `json:"raw_output,omitempty"`
}

// Options carries everything New needs. History and Models may be nil.
type Options struct {
	Config        *config.Config
	Version       string
	Evaluator     Evaluator
	Models        ModelReporter
	History       history.Store
	Observability *observability.ObservabilityManager
	// Vault, when set, is polled for rotated TLS material.
	Vault  SecretReader
	Logger *errors.Logger
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	AppConfig *config.Config
	TLSConfig config.TLSConfig

	evaluator Evaluator
	models    ModelReporter
	history   history.Store

	om      *observability.ObservabilityManager
	metrics *observability.Metrics
	tracer  trace.Tracer

	// API Authentication
	APIKeys map[string]bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// MaxFileSize bounds each uploaded file; the whole body may hold two
	// files plus form overhead.
	MaxFileSize int64
	TempDir     string

	RateLimit   config.RateLimitConfig
	RateLimiter *LimiterManager

	Certificates *CertReloader
	vault        SecretReader
	vaultPoller  *VaultPoller

	Logger *errors.Logger
}

// New creates a Server from opts.
func New(opts Options) *Server {
	cfg := opts.Config

	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.Server.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *LimiterManager
	if cfg.Server.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.Server.RateLimit.RequestsPerMin,
			cfg.Server.RateLimit.BurstCapacity,
			opts.Logger,
		)
	}

	return &Server{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		Version:      opts.Version,
		AppConfig:    cfg,
		TLSConfig:    cfg.Server.TLS,
		evaluator:    opts.Evaluator,
		models:       opts.Models,
		history:      opts.History,
		om:           opts.Observability,
		metrics:      opts.Observability.Metrics(),
		tracer:       opts.Observability.Tracer("resumerag.api"),
		APIKeys:      apiKeyMap,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		MaxFileSize:  cfg.App.MaxFileSize,
		TempDir:      cfg.Server.TempDir,
		RateLimit:    cfg.Server.RateLimit,
		RateLimiter:  rateLimiter,
		vault:        opts.Vault,
		Logger:       opts.Logger,
	}
}

// maxBodySize is the request body cap derived from MaxFileSize.
func (s *Server) maxBodySize() int64 {
	if s.MaxFileSize <= 0 {
		return 0
	}
	return 2*s.MaxFileSize + 1<<20
}
