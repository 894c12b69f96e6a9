package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptStoreResolution(t *testing.T) {
	dir := t.TempDir()
	systemFile := filepath.Join(dir, "analysis.system.md")
	require.NoError(t, os.WriteFile(systemFile, []byte("  file system prompt \n"), 0600))

	cfg := PromptConfig{
		Analysis: PromptOverride{
			SystemFile: systemFile,
			System:     "ignored because the file wins",
			User:       "inline user prompt",
		},
	}

	store, err := NewPromptStore(cfg, newMockLogger())
	require.NoError(t, err)

	analysis := store.Get(OpAnalysis)
	assert.Equal(t, "file system prompt", analysis.System)
	assert.Equal(t, "file", analysis.SystemSource)
	assert.Equal(t, "inline user prompt", analysis.User)
	assert.Equal(t, "config", analysis.UserSource)

	ask := store.Get(OpAsk)
	assert.Empty(t, ask.System)
	assert.Equal(t, "default", ask.SystemSource)
}

func TestPromptStoreReloadKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	userFile := filepath.Join(dir, "feedback.user.md")
	require.NoError(t, os.WriteFile(userFile, []byte("first"), 0600))

	store, err := NewPromptStore(PromptConfig{Feedback: PromptOverride{UserFile: userFile}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "first", store.Get(OpFeedback).User)

	require.NoError(t, os.WriteFile(userFile, []byte("second"), 0600))
	require.NoError(t, store.Reload())
	assert.Equal(t, "second", store.Get(OpFeedback).User)

	require.NoError(t, os.WriteFile(userFile, []byte("   "), 0600))
	assert.Error(t, store.Reload())
	assert.Equal(t, "second", store.Get(OpFeedback).User)
}

func TestPromptConfigValidateFiles(t *testing.T) {
	dir := t.TempDir()

	missing := PromptConfig{Questions: PromptOverride{UserFile: filepath.Join(dir, "nope.md")}}
	assert.Error(t, missing.validateFiles())

	isDir := PromptConfig{Questions: PromptOverride{SystemFile: dir}}
	assert.Error(t, isDir.validateFiles())

	assert.NoError(t, PromptConfig{}.validateFiles())
}

func TestNilPromptStoreFallsBackToDefaults(t *testing.T) {
	var store *PromptStore
	p := store.Get(OpIdealAnswer)
	assert.Equal(t, "default", p.SystemSource)
	assert.Empty(t, p.User)
}
