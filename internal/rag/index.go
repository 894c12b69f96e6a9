package rag

import (
	"fmt"
	"math"
	"sort"

	"resumerag/internal/errors"
	"resumerag/internal/types"
)

// VectorIndex is a flat in-memory index searched by cosine similarity.
// It is built for one document and thrown away.
type VectorIndex struct {
	dimension int
	chunks    []types.Chunk
}

// NewVectorIndex returns an index for vectors of the given dimension. A
// dimension of zero is taken from the first vector added.
func NewVectorIndex(dimension int) *VectorIndex {
	return &VectorIndex{dimension: dimension}
}

// Add appends texts with their vectors.
func (ix *VectorIndex) Add(texts []string, vectors [][]float32) error {
	if len(texts) != len(vectors) {
		return errors.NewInternalError(errors.ErrCodeRetrievalFailed,
			fmt.Sprintf("got %d vectors for %d chunks", len(vectors), len(texts)), nil)
	}
	for i, v := range vectors {
		if ix.dimension == 0 {
			ix.dimension = len(v)
		}
		if len(v) != ix.dimension {
			return errors.NewInternalError(errors.ErrCodeRetrievalFailed,
				fmt.Sprintf("vector %d has dimension %d, index expects %d", i, len(v), ix.dimension), nil)
		}
		ix.chunks = append(ix.chunks, types.Chunk{Index: len(ix.chunks), Text: texts[i], Vector: v})
	}
	return nil
}

func (ix *VectorIndex) Len() int { return len(ix.chunks) }

// Search returns up to k chunks ordered by descending similarity. Equal
// scores keep insertion order.
func (ix *VectorIndex) Search(query []float32, k int) ([]types.SearchResult, error) {
	if k <= 0 || len(ix.chunks) == 0 {
		return nil, nil
	}
	if len(query) != ix.dimension {
		return nil, errors.NewInternalError(errors.ErrCodeRetrievalFailed,
			fmt.Sprintf("query has dimension %d, index expects %d", len(query), ix.dimension), nil)
	}

	results := make([]types.SearchResult, len(ix.chunks))
	for i, c := range ix.chunks {
		results[i] = types.SearchResult{Chunk: c, Score: cosine(query, c.Vector)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
