package ai

import (
	"context"
	"fmt"
	"time"

	"resumerag/internal/config"
	"resumerag/internal/errors"
	"resumerag/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

// GeminiProvider implements Provider for Google Gemini
type GeminiProvider struct {
	client         *genai.Client
	config         config.ResolvedAIConfig
	circuitBreaker *CircuitBreaker[*genai.GenerateContentResponse]
	modelBreaker   *CircuitBreaker[*genai.Model]
	retry          retryPolicy
	modelTimeout   time.Duration
	logger         *errors.Logger
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini provider for one operation.
func NewGeminiProvider(ctx context.Context, cfg config.ResolvedAIConfig, modelTimeout time.Duration, logger *errors.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			fmt.Sprintf("Gemini API key is required for %s", cfg.Operation), nil)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to create Gemini client", err)
	}

	// Model lookups get a lenient breaker of their own so a flaky metadata
	// endpoint never opens the generation breaker.
	modelCfg := cfg.CircuitBreaker
	modelCfg.MinRequests = 5
	modelCfg.FailureThreshold = 0.8

	return &GeminiProvider{
		client:         client,
		config:         cfg,
		circuitBreaker: NewCircuitBreaker[*genai.GenerateContentResponse](breakerName(cfg.Operation), cfg.CircuitBreaker, logger),
		modelBreaker:   NewCircuitBreaker[*genai.Model](breakerName(cfg.Operation)+"-model", modelCfg, logger),
		retry:          retryPolicy{maxRetries: cfg.MaxRetries, logger: logger},
		modelTimeout:   modelTimeout,
		logger:         logger,
	}, nil
}

// Complete sends one prompt to Gemini.
func (g *GeminiProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	tracer := otel.Tracer("resumerag.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+string(req.Operation))
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(g.config.Temperature)),
		attribute.Int("input.prompt_length", len(req.User)),
	)

	temperature := g.config.Temperature
	genaiConfig := &genai.GenerateContentConfig{Temperature: &temperature}
	if req.System != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	callCtx, cancel := withOptionalTimeout(ctx, g.config.Timeout)
	defer cancel()

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return withRetry(callCtx, g.retry, string(req.Operation), func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(callCtx, g.config.Model, genai.Text(req.User), genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to generate content for "+string(req.Operation), err)
	}

	completion := &Completion{
		Text:  result.Text(),
		Model: g.config.Model,
		Usage: extractTokenUsage(result),
	}
	if completion.Usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", completion.Usage.InputTokens),
			attribute.Int64("ai.tokens.output", completion.Usage.OutputTokens),
			attribute.Int64("ai.tokens.total", completion.Usage.TotalTokens),
		)
	}
	span.SetAttributes(attribute.Bool("success", true))
	return completion, nil
}

// ModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) ModelInfo(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Name: g.config.Model, Provider: "gemini"}

	checkCtx, cancel := withOptionalTimeout(ctx, g.modelTimeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", "gemini",
			"error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version
	return info
}

// Stats returns circuit breaker statistics
func (g *GeminiProvider) Stats() map[string]any {
	return map[string]any{
		"ai_operations":    g.circuitBreaker.Stats(),
		"model_operations": g.modelBreaker.Stats(),
		"overall_healthy":  g.circuitBreaker.IsHealthy() && g.modelBreaker.IsHealthy(),
	}
}

// Close is a no-op; the genai client holds no resources for unary calls.
func (g *GeminiProvider) Close() error {
	return nil
}

func extractTokenUsage(result *genai.GenerateContentResponse) *observability.TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &observability.TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
