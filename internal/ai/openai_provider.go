package ai

import (
	"context"
	"fmt"
	"time"

	"resumerag/internal/config"
	"resumerag/internal/errors"
	"resumerag/internal/observability"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// GroqDefaultModel is used when the openai provider is configured
// without a model.
const GroqDefaultModel = "llama-3.3-70b-versatile"

// OpenAIProvider implements Provider for OpenAI-compatible chat APIs
// such as Groq.
type OpenAIProvider struct {
	client         openai.Client
	config         config.ResolvedAIConfig
	circuitBreaker *CircuitBreaker[*openai.ChatCompletion]
	modelBreaker   *CircuitBreaker[*openai.Model]
	retry          retryPolicy
	modelTimeout   time.Duration
	logger         *errors.Logger
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates an OpenAI-compatible provider for one operation.
func NewOpenAIProvider(cfg config.ResolvedAIConfig, modelTimeout time.Duration, logger *errors.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			fmt.Sprintf("OpenAI API key is required for %s", cfg.Operation), nil)
	}
	if cfg.Model == "" {
		cfg.Model = GroqDefaultModel
	}

	// The SDK has its own retry loop; ours handles backoff so the breaker
	// sees one outcome per request.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	modelCfg := cfg.CircuitBreaker
	modelCfg.MinRequests = 5
	modelCfg.FailureThreshold = 0.8

	return &OpenAIProvider{
		client:         openai.NewClient(opts...),
		config:         cfg,
		circuitBreaker: NewCircuitBreaker[*openai.ChatCompletion](breakerName(cfg.Operation), cfg.CircuitBreaker, logger),
		modelBreaker:   NewCircuitBreaker[*openai.Model](breakerName(cfg.Operation)+"-model", modelCfg, logger),
		retry:          retryPolicy{maxRetries: cfg.MaxRetries, logger: logger},
		modelTimeout:   modelTimeout,
		logger:         logger,
	}, nil
}

// Complete sends a system and a user message and returns the first choice.
func (o *OpenAIProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	tracer := otel.Tracer("resumerag.ai.openai")
	ctx, span := tracer.Start(ctx, "openai."+string(req.Operation))
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", o.config.Model),
		attribute.Float64("ai.temperature", float64(o.config.Temperature)),
		attribute.Int("input.prompt_length", len(req.User)),
	)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.User))

	params := openai.ChatCompletionNewParams{
		Model:       o.config.Model,
		Messages:    messages,
		Temperature: openai.Float(float64(o.config.Temperature)),
	}

	callCtx, cancel := withOptionalTimeout(ctx, o.config.Timeout)
	defer cancel()

	result, err := o.circuitBreaker.Execute(func() (*openai.ChatCompletion, error) {
		return withRetry(callCtx, o.retry, string(req.Operation), func() (*openai.ChatCompletion, error) {
			return o.client.Chat.Completions.New(callCtx, params)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to generate content for "+string(req.Operation), err)
	}
	if len(result.Choices) == 0 {
		span.SetAttributes(attribute.Bool("success", false))
		return nil, errors.NewAIError(errors.ErrCodeInvalidModelOutput,
			"Model returned no choices for "+string(req.Operation), nil)
	}

	usage := &observability.TokenUsage{
		InputTokens:  result.Usage.PromptTokens,
		OutputTokens: result.Usage.CompletionTokens,
		TotalTokens:  result.Usage.TotalTokens,
	}
	span.SetAttributes(
		attribute.Int64("ai.tokens.input", usage.InputTokens),
		attribute.Int64("ai.tokens.output", usage.OutputTokens),
		attribute.Int64("ai.tokens.total", usage.TotalTokens),
		attribute.Bool("success", true),
	)

	model := result.Model
	if model == "" {
		model = o.config.Model
	}
	return &Completion{Text: result.Choices[0].Message.Content, Model: model, Usage: usage}, nil
}

// ModelInfo looks the configured model up in the provider's model list.
func (o *OpenAIProvider) ModelInfo(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Name: o.config.Model, Provider: "openai"}

	checkCtx, cancel := withOptionalTimeout(ctx, o.modelTimeout)
	defer cancel()

	model, err := o.modelBreaker.Execute(func() (*openai.Model, error) {
		return o.client.Models.Get(checkCtx, o.config.Model)
	})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		o.logger.Warn("Model availability check failed",
			"model", o.config.Model,
			"provider", "openai",
			"error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.ID
	info.Version = model.OwnedBy
	return info
}

// Stats returns circuit breaker statistics
func (o *OpenAIProvider) Stats() map[string]any {
	return map[string]any{
		"ai_operations":    o.circuitBreaker.Stats(),
		"model_operations": o.modelBreaker.Stats(),
		"overall_healthy":  o.circuitBreaker.IsHealthy() && o.modelBreaker.IsHealthy(),
	}
}

func (o *OpenAIProvider) Close() error {
	return nil
}
