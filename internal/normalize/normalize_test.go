package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n[1, 2]\n```  ", `[1, 2]`},
		{"uppercase fence", "```JSON {\"a\":1}```", `{"a":1}`},
		{"smart quotes", "{“a”: “it’s”}", `{"a": "it's"}`},
		{"dashes", `{"range": "2019–2021 — now"}`, `{"range": "2019-2021 - now"}`},
		{"control characters", "{\"a\":\t\"b\"\r\n}\x7f", `{"a":"b"}`},
		{"no change", `{"a":1}`, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestParseRecoversFencedObjectWithSmartQuotes(t *testing.T) {
	raw := "```json\n{“name”: “Ada”, “skills”: [“Go”, “SQL”], “score”: 9}\n```"

	v, ok := Parse(raw)
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"name":   "Ada",
		"skills": []any{"Go", "SQL"},
		"score":  float64(9),
	}, v)
}

func TestParseFallsBackToBracketedSpan(t *testing.T) {
	v, ok := Parse(`Sure! Here are your questions: [{"question": "Why Go?"}] Good luck.`)
	require.True(t, ok)
	assert.Equal(t, []any{map[string]any{"question": "Why Go?"}}, v)

	v, ok = Parse(`Result follows {"ok": true}`)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"ok": true}, v)
}

func TestParseFailure(t *testing.T) {
	for _, raw := range []string{"", "I cannot help with that.", `{"unterminated": `, "{a} and {b}"} {
		v, ok := Parse(raw)
		assert.False(t, ok, raw)
		assert.Nil(t, v)
	}
}

// The greedy span swallows everything between the first opening bracket
// and the last closing one.
func TestParseGreedySpanMisfires(t *testing.T) {
	_, ok := Parse(`Use {"a": 1} or maybe {"b": 2}`)
	assert.False(t, ok)
}

type feedback struct {
	Score    int      `json:"score_out_of_10"`
	Strength []string `json:"strengths"`
}

func TestDecode(t *testing.T) {
	got, err := Decode[feedback]("```json\n{\"score_out_of_10\": 7, \"strengths\": [\"clear\"]}\n```")
	require.NoError(t, err)
	assert.Equal(t, feedback{Score: 7, Strength: []string{"clear"}}, got)

	got, err = Decode[feedback](`Here you go: {"score_out_of_10": 4}`)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Score)
}

func TestDecodeInvalidJSONCarriesRawOutput(t *testing.T) {
	raw := "The candidate did well overall."
	_, err := Decode[feedback](raw)
	require.Error(t, err)

	var invalid *InvalidJSONError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, raw, invalid.Raw)

	_, err = Decode[[]feedback](`{"score_out_of_10": 4}`)
	require.True(t, errors.As(err, &invalid))
}
