package rag

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// DefaultSeparators go from paragraphs down to single characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter is a recursive character splitter. Lengths are counted in runes.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewSplitter returns a splitter with the default separators. Non-positive
// sizes fall back to the defaults and an overlap that does not fit inside
// a chunk is dropped.
func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   DefaultSeparators,
	}
}

// Split breaks text into chunks of at most the chunk size, carrying up to
// the overlap from the end of each chunk into the next. Whitespace-only
// chunks are dropped.
func (s *Splitter) Split(text string) []string {
	var out []string
	for _, chunk := range s.split(text, s.separators) {
		if strings.TrimSpace(chunk) != "" {
			out = append(out, chunk)
		}
	}
	return out
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var next []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	splits := splitKeepingSeparator(text, separator)

	var chunks, good []string
	for _, piece := range splits {
		if runeLen(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.merge(good, "")...)
			good = nil
		}
		if len(next) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, next)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good, "")...)
	}
	return chunks
}

// splitKeepingSeparator splits text on separator and attaches each
// separator to the piece that follows it, so merged chunks keep the
// original line and paragraph breaks.
func splitKeepingSeparator(text, separator string) []string {
	if separator == "" {
		return strings.Split(text, "")
	}
	parts := strings.Split(text, separator)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, separator+p)
	}
	return out
}

// merge packs pieces greedily into chunks. When a chunk is emitted the
// leading pieces are dropped until what remains fits in the overlap, and
// that remainder starts the next chunk.
func (s *Splitter) merge(pieces []string, separator string) []string {
	sepLen := runeLen(separator)

	var chunks, current []string
	total := 0
	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n+sepLen*len(current) > s.chunkSize && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, separator)); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for len(current) > 0 && (joinedLen(total, len(current), sepLen) > s.chunkOverlap ||
				total+n+sepLen*len(current) > s.chunkSize) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}
	if chunk := strings.TrimSpace(strings.Join(current, separator)); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

func joinedLen(total, pieces, sepLen int) int {
	if pieces == 0 {
		return 0
	}
	return total + sepLen*(pieces-1)
}
