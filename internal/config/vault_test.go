package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"resumerag/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockLogger() *errors.Logger {
	logger, _ := errors.New("debug")
	return logger
}

type fakeSecrets map[string]*VaultSecret

func (f fakeSecrets) GetSecretV2(path string) (*VaultSecret, error) {
	if s, ok := f[path]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("secret not found at path: %s", path)
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{name: "int64 value", input: int64(42), expected: 42},
		{name: "float64 value", input: float64(7), expected: 7},
		{name: "string value", input: "3", expected: 3},
		{name: "invalid string value", input: "three", expectError: true},
		{name: "missing", input: nil, expectError: true},
		{name: "unsupported type", input: []string{"1"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, "secret/data/x")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseKVv2(t *testing.T) {
	secret, err := parseKVv2(map[string]any{
		"data":     map[string]any{"api_key": "k"},
		"metadata": map[string]any{"version": float64(4)},
	}, "secret/data/llm")
	require.NoError(t, err)
	assert.Equal(t, int64(4), secret.Version)
	assert.Equal(t, "k", secret.Data["api_key"])

	_, err = parseKVv2(map[string]any{"api_key": "k"}, "secret/llm")
	assert.ErrorContains(t, err, "missing 'data' field")

	_, err = parseKVv2(map[string]any{"data": map[string]any{}}, "secret/llm")
	assert.ErrorContains(t, err, "missing 'metadata' field")
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{
		AI: AIConfig{
			Questions: OperationAIConfig{APIKey: "explicit-questions-key"},
		},
		Server: ServerConfig{TLS: TLSConfig{Mode: "server", CertFile: "/etc/cert.pem"}},
		Vault: VaultConfig{Secrets: VaultSecrets{
			APIKeys:      "secret/data/api",
			LLMKey:       "secret/data/llm",
			EmbeddingKey: "secret/data/emb",
			TLSCerts:     "secret/data/tls",
		}},
	}
	secrets := fakeSecrets{
		"secret/data/api": {Data: map[string]any{"keys": "a, b ,,c"}},
		"secret/data/llm": {Data: map[string]any{"api_key": "llm-key"}},
		"secret/data/emb": {Data: map[string]any{"api_key": "emb-key"}},
		"secret/data/tls": {Data: map[string]any{"cert": "CERT", "key": "KEY"}},
	}

	require.NoError(t, applySecrets(secrets, cfg, newMockLogger()))

	assert.Equal(t, []string{"a", "b", "c"}, cfg.Server.APIKeys)
	assert.Equal(t, "llm-key", cfg.AI.APIKey)
	assert.Equal(t, "llm-key", cfg.AI.Analysis.APIKey)
	assert.Equal(t, "explicit-questions-key", cfg.AI.Questions.APIKey)
	assert.Equal(t, "emb-key", cfg.Embedding.APIKey)
	assert.Equal(t, "CERT", cfg.Server.TLS.CertContent)
	assert.Empty(t, cfg.Server.TLS.CertFile)
	assert.Equal(t, "KEY", cfg.Server.TLS.KeyContent)
	assert.Empty(t, cfg.Server.TLS.CAContent)
}

func TestApplySecretsErrors(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{LLMKey: "secret/data/none"}}}
		assert.Error(t, applySecrets(fakeSecrets{}, cfg, nil))
	})

	t.Run("empty api key", func(t *testing.T) {
		cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{LLMKey: "secret/data/llm"}}}
		secrets := fakeSecrets{"secret/data/llm": {Data: map[string]any{"api_key": ""}}}
		assert.ErrorContains(t, applySecrets(secrets, cfg, nil), "empty api_key")
	})

	t.Run("non-string keys field", func(t *testing.T) {
		cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{APIKeys: "secret/data/api"}}}
		secrets := fakeSecrets{"secret/data/api": {Data: map[string]any{"keys": 12}}}
		assert.ErrorContains(t, applySecrets(secrets, cfg, nil), "is not a string")
	})
}

func TestResolveVaultToken(t *testing.T) {
	token, err := resolveVaultToken(VaultConfig{Token: "direct-token"})
	require.NoError(t, err)
	assert.Equal(t, "direct-token", token)

	tokenFile := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("file-token\n"), 0600))
	token, err = resolveVaultToken(VaultConfig{TokenFile: tokenFile})
	require.NoError(t, err)
	assert.Equal(t, "file-token", token)

	_, err = resolveVaultToken(VaultConfig{TokenFile: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)

	_, err = resolveVaultToken(VaultConfig{})
	assert.Error(t, err)
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{Vault: VaultConfig{Enabled: false}}
	assert.NoError(t, ApplyVaultSecrets(cfg, newMockLogger()))
}

func TestNilVaultClient(t *testing.T) {
	var vc *VaultClient
	_, err := vc.GetSecretV2("secret/data/x")
	assert.Error(t, err)
}
