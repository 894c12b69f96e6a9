package rag

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"resumerag/internal/errors"
)

// DefaultBatchSize bounds how many texts go into one embedding call.
const DefaultBatchSize = 32

// BatchEmbedder splits large inputs into batches and embeds them
// concurrently on a bounded goroutine pool. Results keep input order.
type BatchEmbedder struct {
	inner     Embedder
	pool      *ants.Pool
	batchSize int
}

// NewBatchEmbedder wraps inner with a pool of the given capacity. The pool
// is shared by all requests; call Release on shutdown.
func NewBatchEmbedder(inner Embedder, concurrency, batchSize int, logger *errors.Logger) (*BatchEmbedder, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	pool, err := ants.NewPool(concurrency, ants.WithPanicHandler(func(p any) {
		if logger != nil {
			logger.Warn("Embedding worker panic recovered", "panic", fmt.Sprint(p))
		}
	}))
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeEmbeddingFailed, "failed to create embedding pool", err)
	}
	return &BatchEmbedder{inner: inner, pool: pool, batchSize: batchSize}, nil
}

func (b *BatchEmbedder) Name() string   { return b.inner.Name() }
func (b *BatchEmbedder) Dimension() int { return b.inner.Dimension() }

// Running reports the number of busy workers.
func (b *BatchEmbedder) Running() int { return b.pool.Running() }

func (b *BatchEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) <= b.batchSize {
		return b.inner.Embed(ctx, texts)
	}

	out := make([][]float32, len(texts))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for start := 0; start < len(texts); start += b.batchSize {
		end := min(start+b.batchSize, len(texts))
		wg.Add(1)
		err := b.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				setErr(ctx.Err())
				return
			}
			vectors, err := b.inner.Embed(ctx, texts[start:end])
			if err != nil {
				setErr(err)
				return
			}
			if len(vectors) != end-start {
				setErr(errors.NewAIError(errors.ErrCodeEmbeddingFailed,
					fmt.Sprintf("batch returned %d vectors for %d texts", len(vectors), end-start), nil))
				return
			}
			copy(out[start:end], vectors)
		})
		if err != nil {
			wg.Done()
			setErr(errors.NewInternalError(errors.ErrCodeEmbeddingFailed, "failed to schedule embedding batch", err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// Release stops the pool's workers.
func (b *BatchEmbedder) Release() {
	b.pool.Release()
}
