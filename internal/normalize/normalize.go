// Package normalize turns raw chat-model output into JSON.
//
// The repair is best effort. The bracket fallback is greedy and spans from
// the first opening bracket to the last closing one, so brackets inside
// string values or trailing prose containing brackets can defeat it.
// Callers treat a failed parse as a normal outcome and surface the raw text.
package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	leadingFence  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	trailingFence = regexp.MustCompile("```\\s*$")
	controlChars  = regexp.MustCompile(`[\x00-\x1F\x7F]`)
	bracketedSpan = regexp.MustCompile(`(?s)(\[.*\]|\{.*\})`)

	punctuation = strings.NewReplacer(
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
		"–", "-", "—", "-",
	)
)

// Clean strips markdown fences, maps typographic quotes and dashes to
// ASCII and removes control characters. Newlines are control characters
// too, which is harmless for JSON outside of string values.
func Clean(raw string) string {
	text := leadingFence.ReplaceAllString(strings.TrimSpace(raw), "")
	text = trailingFence.ReplaceAllString(text, "")
	text = punctuation.Replace(text)
	return controlChars.ReplaceAllString(text, "")
}

// Parse cleans raw and decodes it. When the whole text is not JSON it
// retries on the widest bracketed span. ok is false when neither works.
func Parse(raw string) (any, bool) {
	data, ok := extract(raw)
	if !ok {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	return v, true
}

// InvalidJSONError reports model output that could not be decoded.
type InvalidJSONError struct {
	Raw   string
	Cause error
}

func (e *InvalidJSONError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid JSON in model output: %v", e.Cause)
	}
	return "invalid JSON in model output"
}

func (e *InvalidJSONError) Unwrap() error { return e.Cause }

// Decode cleans raw and decodes it into T, using the same bracket
// fallback as Parse. Failures are *InvalidJSONError carrying raw.
func Decode[T any](raw string) (T, error) {
	var out T
	cleaned := Clean(raw)

	err := json.Unmarshal([]byte(cleaned), &out)
	if err == nil {
		return out, nil
	}

	match := bracketedSpan.FindString(cleaned)
	if match == "" {
		return out, &InvalidJSONError{Raw: raw, Cause: err}
	}
	var fallback T
	if ferr := json.Unmarshal([]byte(match), &fallback); ferr != nil {
		return out, &InvalidJSONError{Raw: raw, Cause: ferr}
	}
	return fallback, nil
}

func extract(raw string) ([]byte, bool) {
	cleaned := Clean(raw)
	if json.Valid([]byte(cleaned)) {
		return []byte(cleaned), true
	}
	match := bracketedSpan.FindString(cleaned)
	if match == "" || !json.Valid([]byte(match)) {
		return nil, false
	}
	return []byte(match), true
}
