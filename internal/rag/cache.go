package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"resumerag/internal/config"
	"resumerag/internal/errors"
)

// VectorCache stores embeddings by key. A miss is (nil, false, nil).
type VectorCache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vector []float32, ttl time.Duration) error
}

// RedisCache keeps vectors in Redis as JSON arrays.
type RedisCache struct {
	client *goredis.Client
}

// NewRedisCache connects to the configured Redis and pings it.
func NewRedisCache(ctx context.Context, cfg config.CacheConfig) (*RedisCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "failed to connect to redis", err).
			WithContext("addr", cfg.Addr)
	}
	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if stderrors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var v []float32
	if err := json.Unmarshal(data, &v); err != nil {
		_ = c.client.Del(ctx, key).Err()
		return nil, false, err
	}
	return v, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, vector []float32, ttl time.Duration) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// CachedEmbedder serves repeated texts from a VectorCache. Cache failures
// are logged and fall through to the wrapped embedder.
type CachedEmbedder struct {
	inner  Embedder
	cache  VectorCache
	ttl    time.Duration
	prefix string
	logger *errors.Logger
}

func NewCachedEmbedder(inner Embedder, cache VectorCache, ttl time.Duration, prefix string, logger *errors.Logger) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache, ttl: ttl, prefix: prefix, logger: logger}
}

func (c *CachedEmbedder) Name() string   { return c.inner.Name() }
func (c *CachedEmbedder) Dimension() int { return c.inner.Dimension() }

// Key returns the cache key for text under this embedder's model.
// Query embeddings are keyed apart from passage embeddings.
func (c *CachedEmbedder) Key(ctx context.Context, text string) string {
	name := c.inner.Name()
	if IsQuery(ctx) {
		name += ":query"
	}
	sum := sha256.Sum256([]byte(name + "\x00" + text))
	return c.prefix + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var (
		missing []string
		missIdx []int
	)

	for i, text := range texts {
		v, ok, err := c.cache.Get(ctx, c.Key(ctx, text))
		if err != nil {
			c.warn("Embedding cache read failed", err)
		}
		if ok && len(v) > 0 {
			out[i] = v
			continue
		}
		missing = append(missing, text)
		missIdx = append(missIdx, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, errors.NewAIError(errors.ErrCodeEmbeddingFailed, "embedder returned a short batch", nil)
	}
	for j, v := range vectors {
		out[missIdx[j]] = v
		if err := c.cache.Set(ctx, c.Key(ctx, missing[j]), v, c.ttl); err != nil {
			c.warn("Embedding cache write failed", err)
		}
	}
	return out, nil
}

func (c *CachedEmbedder) warn(msg string, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, "error", err.Error())
	}
}
