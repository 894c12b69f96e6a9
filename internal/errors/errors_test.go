package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := NewProcessingError(ErrCodeRetrievalFailed, "retrieval failed", cause)

	assert.Equal(t, "RETRIEVAL_FAILED: retrieval failed (caused by: boom)", err.Error())
	assert.ErrorIs(t, err, cause)

	plain := NewValidationError(ErrCodeMissingInput, "Missing resume file or text", nil)
	assert.Equal(t, "MISSING_INPUT: Missing resume file or text", plain.Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", NewValidationError(ErrCodeMissingInput, "missing", nil), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("outer: %w", NewValidationError(ErrCodeUnsupportedFileType, "pdf only", nil)), http.StatusBadRequest},
		{"processing", NewProcessingError(ErrCodeRetrievalFailed, "x", nil), http.StatusInternalServerError},
		{"ai", NewAIError(ErrCodeAIServiceFailed, "x", nil), http.StatusInternalServerError},
		{"plain", fmt.Errorf("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestLogErrorIncludesAppErrorFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelDebug)

	err := NewAIError(ErrCodeAIServiceFailed, "model unavailable", fmt.Errorf("503")).
		WithContext("operation", "analysis")
	logger.LogError(err, "request failed", "request_id", "abc")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "request failed", record["msg"])
	assert.Equal(t, "ai", record["error_type"])
	assert.Equal(t, ErrCodeAIServiceFailed, record["error_code"])
	assert.Equal(t, "503", record["error_cause"])
	assert.Equal(t, "analysis", record["operation"])
	assert.Equal(t, "abc", record["request_id"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("verbose")
	assert.Error(t, err)

	logger, err := New("warn")
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
