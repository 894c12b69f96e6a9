package ai

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"resumerag/internal/config"
	"resumerag/internal/errors"
	"resumerag/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu       sync.Mutex
	requests []Request
	text     string
	err      error
	closed   bool
}

func (f *fakeProvider) Complete(_ context.Context, req Request) (*Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &Completion{
		Text:  f.text,
		Model: "fake-model",
		Usage: &observability.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
	}, nil
}

func (f *fakeProvider) ModelInfo(context.Context) *ModelInfo {
	return &ModelInfo{Name: "fake-model", Provider: "fake", Available: true}
}

func (f *fakeProvider) Stats() map[string]any {
	return map[string]any{"overall_healthy": true}
}

func (f *fakeProvider) Close() error {
	f.closed = true
	return nil
}

func testLogger() *errors.Logger {
	return errors.NewLoggerWithWriter(io.Discard, slog.LevelDebug)
}

func TestServiceGenerateRoutesByOperation(t *testing.T) {
	analysis := &fakeProvider{text: `{"resume_summary":"ok"}`}
	ask := &fakeProvider{text: "plain answer"}
	svc := NewServiceWithProviders(map[config.Operation]Provider{
		config.OpAnalysis: analysis,
		config.OpAsk:      ask,
	}, nil, nil, testLogger())

	got, err := svc.Generate(context.Background(), config.OpAsk, PromptData{Question: "What databases?"})
	require.NoError(t, err)
	assert.Equal(t, "plain answer", got.Text)
	assert.Equal(t, int64(15), got.Usage.TotalTokens)

	require.Len(t, ask.requests, 1)
	assert.Empty(t, analysis.requests)
	assert.Equal(t, config.OpAsk, ask.requests[0].Operation)
	assert.Contains(t, ask.requests[0].User, "What databases?")
	assert.Equal(t, DefaultPrompts[config.OpAsk].System, ask.requests[0].System)
}

func TestServiceGenerateMissingProvider(t *testing.T) {
	svc := NewServiceWithProviders(map[config.Operation]Provider{}, nil, nil, testLogger())

	_, err := svc.Generate(context.Background(), config.OpFeedback, PromptData{})
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidConfig, appErr.Code)
}

func TestServiceGeneratePropagatesProviderError(t *testing.T) {
	failure := errors.NewAIError(errors.ErrCodeAIServiceFailed, "upstream down", nil)
	svc := NewServiceWithProviders(map[config.Operation]Provider{
		config.OpIdealAnswer: &fakeProvider{err: failure},
	}, nil, nil, testLogger())

	_, err := svc.Generate(context.Background(), config.OpIdealAnswer, PromptData{Question: "q"})
	assert.Equal(t, failure, err)
}

func TestServiceModelInfoStatsAndClose(t *testing.T) {
	p := &fakeProvider{}
	svc := NewServiceWithProviders(map[config.Operation]Provider{config.OpQuestions: p}, nil, nil, testLogger())

	info := svc.ModelInfo(context.Background())
	require.Contains(t, info, "questions")
	assert.True(t, info["questions"].Available)

	stats := svc.Stats()
	assert.Equal(t, map[string]any{"overall_healthy": true}, stats["questions"])

	require.NoError(t, svc.Close())
	assert.True(t, p.closed)
}

func TestNewProviderRejectsUnknownAndMissingKey(t *testing.T) {
	_, err := NewProvider(context.Background(), config.ResolvedAIConfig{Operation: config.OpAsk, Provider: "claude"}, 0, testLogger())
	require.Error(t, err)

	_, err = NewProvider(context.Background(), config.ResolvedAIConfig{Operation: config.OpAsk, Provider: "openai"}, 0, testLogger())
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeMissingAPIKey, appErr.Code)

	p, err := NewProvider(context.Background(), config.ResolvedAIConfig{Operation: config.OpAsk, Provider: "openai", APIKey: "k"}, 0, testLogger())
	require.NoError(t, err)
	assert.Equal(t, GroqDefaultModel, p.(*OpenAIProvider).config.Model)
	assert.Equal(t, map[string]any{"enabled": false}, p.Stats()["ai_operations"])
}
