package rag

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumerag/internal/config"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestHashEmbedder(t *testing.T) {
	e := NewHashEmbedder(0)
	assert.Equal(t, 384, e.Dimension())
	assert.Equal(t, "hash-384", e.Name())

	vecs, err := e.Embed(context.Background(), []string{
		"Golang developer with Kubernetes",
		"golang kubernetes",
		"pastry chef baking bread",
		"",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 4)

	for _, v := range vecs[:3] {
		assert.Len(t, v, 384)
		assert.InDelta(t, 1.0, norm(v), 1e-5)
	}
	assert.Zero(t, norm(vecs[3]))

	again, err := e.Embed(context.Background(), []string{"Golang developer with Kubernetes"})
	require.NoError(t, err)
	assert.Equal(t, vecs[0], again[0])

	assert.Greater(t, cosine(vecs[0], vecs[1]), cosine(vecs[0], vecs[2]))
}

func TestHashEmbedderHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashEmbedder(8).Embed(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEmbedder(t *testing.T) {
	e, err := NewEmbedder(context.Background(), config.EmbeddingConfig{Provider: "hash", Dimension: 16})
	require.NoError(t, err)
	assert.Equal(t, 16, e.Dimension())

	e, err = NewEmbedder(context.Background(), config.EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small", Dimension: 1536})
	require.NoError(t, err)
	assert.Equal(t, "openai:text-embedding-3-small", e.Name())

	_, err = NewEmbedder(context.Background(), config.EmbeddingConfig{Provider: "gemini"})
	assert.Error(t, err)

	_, err = NewEmbedder(context.Background(), config.EmbeddingConfig{Provider: "word2vec"})
	assert.Error(t, err)
}

// lengthEmbedder encodes each text as its length so order can be checked.
type lengthEmbedder struct {
	calls   atomic.Int32
	mu      sync.Mutex
	batches []int
	queries []string
	failOn  string
}

func (e *lengthEmbedder) Name() string   { return "length" }
func (e *lengthEmbedder) Dimension() int { return 1 }

func (e *lengthEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	e.mu.Lock()
	e.batches = append(e.batches, len(texts))
	if IsQuery(ctx) {
		e.queries = append(e.queries, texts...)
	}
	e.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if e.failOn != "" && strings.Contains(text, e.failOn) {
			return nil, fmt.Errorf("cannot embed %q", text)
		}
		out[i] = []float32{float32(len(text))}
	}
	return out, nil
}

func TestBatchEmbedderKeepsOrder(t *testing.T) {
	inner := &lengthEmbedder{}
	b, err := NewBatchEmbedder(inner, 4, 32, nil)
	require.NoError(t, err)
	defer b.Release()

	texts := make([]string, 70)
	for i := range texts {
		texts[i] = strings.Repeat("x", i+1)
	}

	vecs, err := b.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 70)
	for i, v := range vecs {
		assert.Equal(t, float32(i+1), v[0])
	}
	assert.Equal(t, int32(3), inner.calls.Load())
	assert.ElementsMatch(t, []int{32, 32, 6}, inner.batches)
}

func TestBatchEmbedderSmallInputIsOneCall(t *testing.T) {
	inner := &lengthEmbedder{}
	b, err := NewBatchEmbedder(inner, 2, 0, nil)
	require.NoError(t, err)
	defer b.Release()

	_, err = b.Embed(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, "length", b.Name())
	assert.Equal(t, 1, b.Dimension())
}

func TestBatchEmbedderPropagatesErrors(t *testing.T) {
	inner := &lengthEmbedder{failOn: "bad"}
	b, err := NewBatchEmbedder(inner, 2, 2, nil)
	require.NoError(t, err)
	defer b.Release()

	_, err = b.Embed(context.Background(), []string{"ok", "fine", "bad one", "good"})
	assert.ErrorContains(t, err, "bad one")
}

type mapCache struct {
	mu      sync.Mutex
	data    map[string][]float32
	getErr  error
	setErr  error
	gets    int
	lastTTL time.Duration
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string][]float32)} }

func (c *mapCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(ctx context.Context, key string, v []float32, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.data[key] = v
	c.lastTTL = ttl
	return nil
}

func TestCachedEmbedderServesRepeats(t *testing.T) {
	inner := &lengthEmbedder{}
	cache := newMapCache()
	e := NewCachedEmbedder(inner, cache, time.Hour, "test:", nil)

	first, err := e.Embed(context.Background(), []string{"a", "bbb"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Len(t, cache.data, 2)
	assert.Equal(t, time.Hour, cache.lastTTL)

	second, err := e.Embed(context.Background(), []string{"bbb", "cc", "a"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, []int{2, 1}, inner.batches)
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, []float32{2}, second[1])
	assert.Equal(t, first[0], second[2])

	ctx := context.Background()
	assert.True(t, strings.HasPrefix(e.Key(ctx, "a"), "test:"))
	assert.NotEqual(t, e.Key(ctx, "a"), e.Key(ctx, "b"))
	assert.NotEqual(t, e.Key(ctx, "a"), e.Key(WithQuery(ctx), "a"))
}

func TestGeminiTaskType(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "RETRIEVAL_DOCUMENT", geminiTaskType(ctx))
	assert.Equal(t, "RETRIEVAL_QUERY", geminiTaskType(WithQuery(ctx)))
	assert.False(t, IsQuery(ctx))
}

func TestCachedEmbedderFallsThroughOnCacheErrors(t *testing.T) {
	inner := &lengthEmbedder{}
	cache := newMapCache()
	cache.getErr = fmt.Errorf("connection refused")
	cache.setErr = fmt.Errorf("connection refused")
	e := NewCachedEmbedder(inner, cache, time.Minute, "", nil)

	vecs, err := e.Embed(context.Background(), []string{"abcd"})
	require.NoError(t, err)
	assert.Equal(t, []float32{4}, vecs[0])
}
