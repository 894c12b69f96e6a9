package rag

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortText(t *testing.T) {
	s := NewSplitter(DefaultChunkSize, DefaultChunkOverlap)
	assert.Equal(t, []string{"hello world"}, s.Split("hello world"))
}

func TestSplitPrefersParagraphs(t *testing.T) {
	s := NewSplitter(12, 0)
	assert.Equal(t, []string{"para one.", "para two."}, s.Split("para one.\n\npara two."))
}

func TestSplitKeepsSeparatorWithFollowingPiece(t *testing.T) {
	assert.Equal(t, []string{"a", "\n\nb", "\n\nc"}, splitKeepingSeparator("a\n\nb\n\nc", "\n\n"))
	assert.Equal(t, []string{"\nx", "\n"}, splitKeepingSeparator("\nx\n", "\n"))
	assert.Equal(t, []string{"a", "b"}, splitKeepingSeparator("ab", ""))

	s := NewSplitter(20, 0)
	assert.Equal(t, []string{"Skills:\nGo\nRedis", "Projects:\nPayments"},
		s.Split("Skills:\nGo\nRedis\n\nProjects:\nPayments"))
}

func TestSplitRespectsSizeAndCarriesOverlap(t *testing.T) {
	words := make([]string, 300)
	for i := range words {
		words[i] = fmt.Sprintf("w%03d", i)
	}
	s := NewSplitter(50, 10)
	chunks := s.Split(strings.Join(words, " "))
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 50, "chunk %d", i)
		if i == 0 {
			continue
		}
		prev := strings.Fields(chunks[i-1])
		tail := prev[len(prev)-2:]
		assert.True(t, strings.HasPrefix(c, strings.Join(tail, " ")),
			"chunk %d should start with the tail of chunk %d", i, i-1)
	}
	assert.True(t, strings.HasPrefix(chunks[0], "w000"))
	assert.True(t, strings.HasSuffix(chunks[len(chunks)-1], "w299"))
}

func TestSplitCountsRunes(t *testing.T) {
	s := NewSplitter(10, 0)
	chunks := s.Split(strings.Repeat("é", 30))
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Equal(t, 10, utf8.RuneCountInString(c))
		assert.Equal(t, 20, len(c))
	}
}

func TestSplitDropsWhitespace(t *testing.T) {
	s := NewSplitter(DefaultChunkSize, DefaultChunkOverlap)
	assert.Empty(t, s.Split("   \n\n  "))
	assert.Empty(t, s.Split(""))
}

func TestNewSplitterSanitizes(t *testing.T) {
	s := NewSplitter(0, -1)
	assert.Equal(t, DefaultChunkSize, s.chunkSize)
	assert.Equal(t, 0, s.chunkOverlap)

	s = NewSplitter(10, 10)
	assert.Equal(t, 0, s.chunkOverlap)
}
