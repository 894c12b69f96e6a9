package cli

import (
	"context"
	"fmt"
	"slices"
	"time"

	"resumerag/internal/ai"
	"resumerag/internal/config"
	"resumerag/internal/errors"
	"resumerag/internal/evaluator"
	"resumerag/internal/history"
	"resumerag/internal/observability"
	"resumerag/internal/rag"
)

const closeTimeout = 10 * time.Second

// runtime is the dependency graph shared by serve, worker and the one-shot
// commands.
type runtime struct {
	om        *observability.ObservabilityManager
	prompts   *config.PromptStore
	ai        *ai.Service
	history   history.Store
	evaluator *evaluator.Evaluator

	closers []func(context.Context) error
	logger  *errors.Logger
}

// newRuntime applies Vault secrets to cfg and builds every component.
// watchPrompts enables hot reload of prompt files for long-running modes.
func newRuntime(ctx context.Context, cfg *config.Config, logger *errors.Logger, watchPrompts bool) (*runtime, error) {
	rt := &runtime{logger: logger}
	if err := rt.build(ctx, cfg, watchPrompts); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) build(ctx context.Context, cfg *config.Config, watchPrompts bool) (err error) {
	logger := rt.logger

	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		return err
	}

	rt.om, err = observability.NewObservabilityManager(observability.FromConfig(cfg, Version))
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	rt.onClose(rt.om.Shutdown)
	metrics := rt.om.Metrics()

	rt.prompts, err = config.NewPromptStore(cfg.AI.Prompts, logger)
	if err != nil {
		return err
	}
	rt.onClose(func(context.Context) error { return rt.prompts.Close() })
	if watchPrompts {
		if err := rt.prompts.Watch(); err != nil {
			return fmt.Errorf("failed to watch prompt files: %w", err)
		}
	}

	embedder, err := rt.newEmbedder(ctx, cfg, logger)
	if err != nil {
		return err
	}
	retriever := rag.NewRetriever(rag.NewSplitter(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap), embedder, cfg.RAG.TopK, metrics)

	rt.ai, err = ai.NewService(ctx, cfg, rt.prompts, metrics, logger)
	if err != nil {
		return err
	}
	rt.onClose(func(context.Context) error { return rt.ai.Close() })

	rt.history, err = history.New(ctx, cfg.History, logger)
	if err != nil {
		return err
	}
	if rt.history != nil {
		rt.onClose(rt.history.Close)
	}

	rt.evaluator = evaluator.New(retriever, rt.ai, rt.history, metrics, logger)

	logger.Info("Runtime initialized",
		"embedder", embedder.Name(),
		"chunk_size", cfg.RAG.ChunkSize,
		"top_k", cfg.RAG.TopK,
		"history", cfg.History.Driver,
		"cache", cfg.Cache.Enabled)
	return nil
}

// newEmbedder stacks the provider embedder, the batching pool and, when
// enabled, the Redis vector cache.
func (rt *runtime) newEmbedder(ctx context.Context, cfg *config.Config, logger *errors.Logger) (rag.Embedder, error) {
	base, err := rag.NewEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return nil, err
	}

	batch, err := rag.NewBatchEmbedder(base, cfg.Embedding.Concurrency, 0, logger)
	if err != nil {
		return nil, err
	}
	rt.onClose(func(context.Context) error {
		batch.Release()
		return nil
	})

	if !cfg.Cache.Enabled {
		return batch, nil
	}

	cache, err := rag.NewRedisCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	rt.onClose(func(context.Context) error { return cache.Close() })
	return rag.NewCachedEmbedder(batch, cache, cfg.Cache.TTL, cfg.Cache.KeyPrefix, logger), nil
}

func (rt *runtime) onClose(fn func(context.Context) error) {
	rt.closers = append(rt.closers, fn)
}

// Close releases components in reverse order of construction.
func (rt *runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	for _, fn := range slices.Backward(rt.closers) {
		if err := fn(ctx); err != nil {
			rt.logger.LogError(err, "Failed to release component")
		}
	}
	rt.closers = nil
}
