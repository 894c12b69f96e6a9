package rag

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"resumerag/internal/errors"
	"resumerag/internal/observability"
	"resumerag/internal/types"
)

// DefaultTopK is how many chunks feed a prompt per document.
const DefaultTopK = 10

// Retriever builds a throwaway index per document and pulls the chunks
// closest to a query.
type Retriever struct {
	splitter *Splitter
	embedder Embedder
	topK     int
	metrics  *observability.Metrics
}

// NewRetriever wires a splitter and embedder. topK <= 0 uses DefaultTopK.
// metrics may be nil.
func NewRetriever(splitter *Splitter, embedder Embedder, topK int, metrics *observability.Metrics) *Retriever {
	if splitter == nil {
		splitter = NewSplitter(DefaultChunkSize, DefaultChunkOverlap)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{splitter: splitter, embedder: embedder, topK: topK, metrics: metrics}
}

// Retrieve chunks doc, embeds the chunks and the query, and returns the
// top-k chunks by cosine similarity with their texts joined by spaces.
// There is no threshold, dedup or re-ranking.
func (r *Retriever) Retrieve(ctx context.Context, doc types.Document, query string) (types.RetrievalResult, error) {
	ctx, span := otel.Tracer("resumerag.rag").Start(ctx, "rag.retrieve")
	defer span.End()
	span.SetAttributes(
		attribute.String("rag.source", doc.Source),
		attribute.String("rag.embedder", r.embedder.Name()),
		attribute.Int("rag.top_k", r.topK),
	)

	start := time.Now()
	chunks := r.splitter.Split(doc.Text)
	result, err := r.retrieve(ctx, chunks, query)
	r.metrics.RecordRetrieval(ctx, len(chunks), time.Since(start), err)

	span.SetAttributes(
		attribute.Int("rag.chunks", len(chunks)),
		attribute.Int("rag.hits", len(result.Hits)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return types.RetrievalResult{}, errors.NewProcessingError(errors.ErrCodeRetrievalFailed, "retrieval failed", err).
			WithContext("source", doc.Source)
	}
	return result, nil
}

func (r *Retriever) retrieve(ctx context.Context, chunks []string, query string) (types.RetrievalResult, error) {
	result := types.RetrievalResult{Query: query}
	if len(chunks) == 0 {
		return result, nil
	}

	vectors, err := r.embedder.Embed(ctx, chunks)
	if err != nil {
		return result, err
	}
	index := NewVectorIndex(0)
	if err := index.Add(chunks, vectors); err != nil {
		return result, err
	}

	queryVectors, err := r.embedder.Embed(WithQuery(ctx), []string{query})
	if err != nil {
		return result, err
	}
	if len(queryVectors) != 1 {
		return result, errors.NewAIError(errors.ErrCodeEmbeddingFailed, "query embedding missing", nil)
	}

	hits, err := index.Search(queryVectors[0], r.topK)
	if err != nil {
		return result, err
	}
	result.Hits = hits
	result.Context = JoinContext(hits)
	return result, nil
}

// JoinContext concatenates hit texts with single spaces, best first.
func JoinContext(hits []types.SearchResult) string {
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Chunk.Text
	}
	return strings.Join(texts, " ")
}
