package ai

import (
	"context"
	"fmt"
	"time"

	"resumerag/internal/config"
	"resumerag/internal/errors"
	"resumerag/internal/observability"
)

// Service renders prompts and routes each operation to its provider.
type Service struct {
	providers map[config.Operation]Provider
	prompts   *config.PromptStore
	metrics   *observability.Metrics
	logger    *errors.Logger
}

// NewService creates one provider per operation from cfg.
func NewService(ctx context.Context, cfg *config.Config, prompts *config.PromptStore, metrics *observability.Metrics, logger *errors.Logger) (*Service, error) {
	providers := make(map[config.Operation]Provider, len(config.Operations))
	for _, op := range config.Operations {
		resolved, err := cfg.AIConfigFor(op)
		if err != nil {
			return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid AI configuration", err)
		}

		logger.Debug("Initializing AI provider",
			"operation", op,
			"provider", resolved.Provider,
			"model", resolved.Model,
			"temperature", resolved.Temperature,
			"timeout", resolved.Timeout,
			"max_retries", resolved.MaxRetries,
			"circuit_breaker", resolved.CircuitBreaker.Enabled)

		provider, err := NewProvider(ctx, resolved, cfg.Observability.HealthCheck.AIModelCheckTimeout, logger)
		if err != nil {
			return nil, err
		}
		providers[op] = provider
	}

	return NewServiceWithProviders(providers, prompts, metrics, logger), nil
}

// NewProvider builds the provider named in cfg.
func NewProvider(ctx context.Context, cfg config.ResolvedAIConfig, modelTimeout time.Duration, logger *errors.Logger) (Provider, error) {
	var (
		provider Provider
		err      error
	)
	switch cfg.Provider {
	case "gemini":
		provider, err = NewGeminiProvider(ctx, cfg, modelTimeout, logger)
	case "openai":
		provider, err = NewOpenAIProvider(cfg, modelTimeout, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// NewServiceWithProviders wires pre-built providers. Operations without a
// provider fail at call time.
func NewServiceWithProviders(providers map[config.Operation]Provider, prompts *config.PromptStore, metrics *observability.Metrics, logger *errors.Logger) *Service {
	return &Service{
		providers: providers,
		prompts:   prompts,
		metrics:   metrics,
		logger:    logger,
	}
}

// Generate renders the prompt for op and returns the model's raw text.
func (s *Service) Generate(ctx context.Context, op config.Operation, data PromptData) (*Completion, error) {
	provider, ok := s.providers[op]
	if !ok {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("no AI provider configured for %s", op), nil)
	}

	req, err := RenderPrompt(op, s.prompts, data)
	if err != nil {
		return nil, err
	}

	var completion *Completion
	err = s.metrics.TrackAIOperationWithTokens(ctx, string(op), func(ctx context.Context) *observability.AIOperationResult {
		c, err := provider.Complete(ctx, req)
		if err != nil {
			return &observability.AIOperationResult{Error: err}
		}
		completion = c
		return &observability.AIOperationResult{TokenUsage: c.Usage}
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("AI operation completed",
		"operation", op,
		"model", completion.Model,
		"response_length", len(completion.Text))
	return completion, nil
}

// ModelInfo reports model availability per operation.
func (s *Service) ModelInfo(ctx context.Context) map[string]*ModelInfo {
	infos := make(map[string]*ModelInfo, len(s.providers))
	for op, p := range s.providers {
		infos[string(op)] = p.ModelInfo(ctx)
	}
	return infos
}

// Stats returns circuit breaker statistics per operation.
func (s *Service) Stats() map[string]any {
	stats := make(map[string]any, len(s.providers))
	for op, p := range s.providers {
		stats[string(op)] = p.Stats()
	}
	return stats
}

// Close releases every provider.
func (s *Service) Close() error {
	var firstErr error
	for _, p := range s.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
