package config

import (
	"fmt"
	"time"
)

// Operation names one LLM-backed capability. The string value is also the
// config key under "ai." and the metric/span label.
type Operation string

const (
	OpAnalysis    Operation = "analysis"
	OpQuestions   Operation = "questions"
	OpFeedback    Operation = "feedback"
	OpIdealAnswer Operation = "idealAnswer"
	OpAsk         Operation = "ask"
)

// Operations lists every capability in a stable order.
var Operations = []Operation{OpAnalysis, OpQuestions, OpFeedback, OpIdealAnswer, OpAsk}

// ResolvedAIConfig is an OperationAIConfig with every fallback applied.
type ResolvedAIConfig struct {
	Operation      Operation
	Provider       string
	Model          string
	BaseURL        string
	Timeout        time.Duration
	APIKey         string
	MaxRetries     int
	Temperature    float32
	CircuitBreaker CircuitBreakerConfig
}

func (c *Config) operationBlock(op Operation) (OperationAIConfig, error) {
	switch op {
	case OpAnalysis:
		return c.AI.Analysis, nil
	case OpQuestions:
		return c.AI.Questions, nil
	case OpFeedback:
		return c.AI.Feedback, nil
	case OpIdealAnswer:
		return c.AI.IdealAnswer, nil
	case OpAsk:
		return c.AI.Ask, nil
	default:
		return OperationAIConfig{}, fmt.Errorf("unknown operation: %s", op)
	}
}

// AIConfigFor returns the AI configuration for op with global fallbacks.
func (c *Config) AIConfigFor(op Operation) (ResolvedAIConfig, error) {
	block, err := c.operationBlock(op)
	if err != nil {
		return ResolvedAIConfig{}, err
	}

	resolved := ResolvedAIConfig{
		Operation:      op,
		Provider:       firstNonEmpty(block.Provider, c.AI.Provider),
		Model:          firstNonEmpty(block.Model, c.AI.Model),
		BaseURL:        firstNonEmpty(block.BaseURL, c.AI.BaseURL),
		APIKey:         firstNonEmpty(block.APIKey, c.AI.APIKey),
		Timeout:        c.AI.Timeout,
		MaxRetries:     c.AI.MaxRetries,
		Temperature:    c.AI.Temperature,
		CircuitBreaker: block.CircuitBreaker,
	}
	if block.Timeout != nil {
		resolved.Timeout = *block.Timeout
	}
	if block.MaxRetries != nil {
		resolved.MaxRetries = *block.MaxRetries
	}
	if block.Temperature != nil {
		resolved.Temperature = *block.Temperature
	}
	return resolved, nil
}

func (c *Config) validateAI() error {
	switch c.AI.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("invalid ai provider: %s (must be 'gemini' or 'openai')", c.AI.Provider)
	}

	for _, op := range Operations {
		resolved, err := c.AIConfigFor(op)
		if err != nil {
			return err
		}
		if resolved.APIKey == "" {
			return fmt.Errorf("AI API key is required for %s (set RESUMERAG_AI_APIKEY)", op)
		}
		if resolved.Timeout <= 0 {
			return fmt.Errorf("AI timeout for %s must be positive", op)
		}
		if resolved.MaxRetries < 0 {
			return fmt.Errorf("AI maxRetries for %s cannot be negative", op)
		}
		if cb := resolved.CircuitBreaker; cb.Enabled && (cb.FailureThreshold <= 0 || cb.FailureThreshold > 1) {
			return fmt.Errorf("circuit breaker failureThreshold for %s must be in (0, 1]", op)
		}
	}
	return nil
}

func (c *Config) validateEmbedding() error {
	switch c.Embedding.Provider {
	case "hash":
		if c.Embedding.Dimension <= 0 {
			return fmt.Errorf("embedding dimension must be positive")
		}
	case "gemini", "openai":
		fromVault := c.Vault.Enabled && c.Vault.Secrets.EmbeddingKey != ""
		if c.Embedding.APIKey == "" && !fromVault {
			return fmt.Errorf("embedding API key is required for provider %s (set RESUMERAG_EMBEDDING_APIKEY)", c.Embedding.Provider)
		}
	default:
		return fmt.Errorf("invalid embedding provider: %s (must be 'gemini', 'openai', or 'hash')", c.Embedding.Provider)
	}
	if c.Embedding.Concurrency <= 0 {
		return fmt.Errorf("embedding concurrency must be positive")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
