package ai

import (
	"context"

	"resumerag/internal/config"
	"resumerag/internal/observability"
)

// Request is one chat completion: a system instruction and a fully
// rendered user prompt.
type Request struct {
	Operation config.Operation
	System    string
	User      string
}

// Completion is the raw text a model returned. Usage is nil when the
// provider does not report token counts.
type Completion struct {
	Text  string
	Model string
	Usage *observability.TokenUsage
}

// Provider is a hosted chat model bound to one operation's settings.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
	ModelInfo(ctx context.Context) *ModelInfo
	Stats() map[string]any
	Close() error
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
