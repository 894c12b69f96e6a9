// Package rag chunks documents, embeds the chunks and retrieves the
// passages closest to a query.
package rag

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"google.golang.org/genai"

	openai "github.com/sashabaranov/go-openai"

	"resumerag/internal/config"
	"resumerag/internal/errors"
)

// Embedder maps texts to fixed-length vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Name() string
}

type queryKey struct{}

// WithQuery marks embeddings requested under ctx as search queries rather
// than stored passages. Asymmetric models embed the two differently.
func WithQuery(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryKey{}, true)
}

// IsQuery reports whether ctx was marked by WithQuery.
func IsQuery(ctx context.Context) bool {
	q, _ := ctx.Value(queryKey{}).(bool)
	return q
}

// NewEmbedder builds the embedder selected by cfg.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "hash":
		return NewHashEmbedder(cfg.Dimension), nil
	case "gemini":
		e, err := NewGeminiEmbedder(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return e, nil
	case "openai":
		return NewOpenAIEmbedder(cfg), nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unsupported embedding provider: %s", cfg.Provider), nil)
	}
}

// HashEmbedder is a deterministic feature-hashing embedder. It needs no
// network and keeps lexical overlap meaningful, which is enough for local
// runs and tests.
type HashEmbedder struct {
	dimension int
}

func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &HashEmbedder{dimension: dimension}
}

func (e *HashEmbedder) Name() string   { return fmt.Sprintf("hash-%d", e.dimension) }
func (e *HashEmbedder) Dimension() int { return e.dimension }

func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *HashEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dimension)
	for _, token := range tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum64()
		sign := float32(1)
		if sum>>63 == 1 {
			sign = -1
		}
		v[sum%uint64(e.dimension)] += sign
	}
	return normalizeVector(v)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}

// GeminiEmbedder calls the Gemini embedding endpoint.
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
}

func NewGeminiEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey, "gemini embedding requires an API key", nil)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeEmbeddingFailed, "failed to create gemini client", err)
	}
	return &GeminiEmbedder{client: client, model: cfg.Model, dimension: cfg.Dimension}, nil
}

func (e *GeminiEmbedder) Name() string   { return "gemini:" + e.model }
func (e *GeminiEmbedder) Dimension() int { return e.dimension }

func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	cfg := &genai.EmbedContentConfig{TaskType: geminiTaskType(ctx)}
	if e.dimension > 0 {
		dim := int32(e.dimension)
		cfg.OutputDimensionality = &dim
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, cfg)
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeEmbeddingFailed, "gemini embedding request failed", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, errors.NewAIError(errors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings)), nil)
	}

	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		out[i] = normalizeVector(emb.Values)
	}
	return out, nil
}

func geminiTaskType(ctx context.Context) string {
	if IsQuery(ctx) {
		return "RETRIEVAL_QUERY"
	}
	return "RETRIEVAL_DOCUMENT"
}

// OpenAIEmbedder calls any OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
}

func NewOpenAIEmbedder(cfg config.EmbeddingConfig) *OpenAIEmbedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		dimension: cfg.Dimension,
	}
}

func (e *OpenAIEmbedder) Name() string   { return "openai:" + e.model }
func (e *OpenAIEmbedder) Dimension() int { return e.dimension }

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeEmbeddingFailed, "embedding request failed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.NewAIError(errors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Data)), nil)
	}

	out := make([][]float32, len(texts))
	for i, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(out) {
			idx = i
		}
		out[idx] = normalizeVector(d.Embedding)
	}
	return out, nil
}

// normalizeVector scales v to unit length in place. Zero vectors are
// returned unchanged.
func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
