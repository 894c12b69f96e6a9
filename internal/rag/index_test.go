package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorIndexSearch(t *testing.T) {
	ix := NewVectorIndex(2)
	require.NoError(t, ix.Add(
		[]string{"a", "b", "c"},
		[][]float32{{1, 0}, {0, 1}, {2, 0}},
	))
	assert.Equal(t, 3, ix.Len())

	hits, err := ix.Search([]float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	// a and c tie on cosine similarity and keep insertion order.
	assert.Equal(t, "a", hits[0].Chunk.Text)
	assert.Equal(t, "c", hits[1].Chunk.Text)
	assert.Equal(t, "b", hits[2].Chunk.Text)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.InDelta(t, 0.0, hits[2].Score, 1e-6)

	hits, err = ix.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestVectorIndexRejectsBadDimensions(t *testing.T) {
	ix := NewVectorIndex(0)
	require.NoError(t, ix.Add([]string{"a"}, [][]float32{{1, 0, 0}}))
	assert.Error(t, ix.Add([]string{"b"}, [][]float32{{1, 0}}))
	assert.Error(t, ix.Add([]string{"c", "d"}, [][]float32{{1, 0, 0}}))

	_, err := ix.Search([]float32{1, 0}, 1)
	assert.Error(t, err)
}

func TestVectorIndexEmpty(t *testing.T) {
	hits, err := NewVectorIndex(3).Search([]float32{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
