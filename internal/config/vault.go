package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"resumerag/internal/errors"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool         `mapstructure:"enabled"`
	Address   string       `mapstructure:"address"`
	Token     string       `mapstructure:"token"`
	TokenFile string       `mapstructure:"tokenFile"`
	Namespace string       `mapstructure:"namespace"`
	Secrets   VaultSecrets `mapstructure:"secrets"`

	// TLSPollInterval re-reads Secrets.TLSCerts and reloads the serving
	// certificate when its version changes. Zero disables polling.
	TLSPollInterval time.Duration `mapstructure:"tlsPollInterval"`
}

// VaultSecrets holds KVv2 paths. Empty paths are skipped.
type VaultSecrets struct {
	// APIKeys is a single "keys" field holding comma-separated values.
	APIKeys      string `mapstructure:"apiKeys"`
	LLMKey       string `mapstructure:"llmKey"`       // field "api_key"
	EmbeddingKey string `mapstructure:"embeddingKey"` // field "api_key"
	TLSCerts     string `mapstructure:"tlsCerts"`     // fields cert, key, ca
}

// VaultSecret is one KVv2 secret version.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	logger *errors.Logger
}

// NewVaultClient connects to Vault. It returns nil, nil when Vault is
// disabled.
func NewVaultClient(cfg VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	apiCfg := api.DefaultConfig()
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	token, err := resolveVaultToken(cfg)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	if logger != nil {
		logger.Info("Connected to Vault",
			"address", apiCfg.Address,
			"version", health.Version,
			"sealed", health.Sealed)
	}

	return &VaultClient{client: client, logger: logger}, nil
}

func resolveVaultToken(cfg VaultConfig) (string, error) {
	token := cfg.Token
	if token == "" && cfg.TokenFile != "" {
		raw, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// GetSecretV2 reads a KVv2 secret.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}
	return parseKVv2(secret.Data, path)
}

func parseKVv2(raw map[string]any, path string) (*VaultSecret, error) {
	data, ok := raw["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	metadata, ok := raw["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	version, err := parseVersionValue(metadata["version"], path)
	if err != nil {
		return nil, err
	}
	return &VaultSecret{Data: data, Version: version}, nil
}

func parseVersionValue(versionRaw any, path string) (int64, error) {
	switch v := versionRaw.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	case nil:
		return 0, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, versionRaw)
	}
}

// GetStringSecret reads one string field of a KVv2 secret.
func (vc *VaultClient) GetStringSecret(path, key string) (string, error) {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	return stringField(secret, path, key)
}

func stringField(secret *VaultSecret, path, key string) (string, error) {
	value, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}
	return s, nil
}

// ApplyVaultSecrets loads configured secrets from Vault into cfg.
func ApplyVaultSecrets(cfg *Config, logger *errors.Logger) error {
	if !cfg.Vault.Enabled {
		return nil
	}
	client, err := NewVaultClient(cfg.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	return applySecrets(client, cfg, logger)
}

// secretReader is the slice of VaultClient the loaders need.
type secretReader interface {
	GetSecretV2(path string) (*VaultSecret, error)
}

func applySecrets(client secretReader, cfg *Config, logger *errors.Logger) error {
	paths := cfg.Vault.Secrets

	if paths.APIKeys != "" {
		secret, err := client.GetSecretV2(paths.APIKeys)
		if err != nil {
			return fmt.Errorf("failed to load API keys from vault: %w", err)
		}
		raw, err := stringField(secret, paths.APIKeys, "keys")
		if err != nil {
			return err
		}
		if keys := splitCSV(raw); len(keys) > 0 {
			cfg.Server.APIKeys = keys
			if logger != nil {
				logger.Info("API keys loaded from Vault", "count", len(keys))
			}
		}
	}

	if paths.LLMKey != "" {
		key, err := readAPIKey(client, paths.LLMKey)
		if err != nil {
			return fmt.Errorf("failed to load LLM API key from vault: %w", err)
		}
		applyLLMKey(cfg, key)
	}

	if paths.EmbeddingKey != "" {
		key, err := readAPIKey(client, paths.EmbeddingKey)
		if err != nil {
			return fmt.Errorf("failed to load embedding API key from vault: %w", err)
		}
		cfg.Embedding.APIKey = key
	}

	if paths.TLSCerts != "" {
		secret, err := client.GetSecretV2(paths.TLSCerts)
		if err != nil {
			return fmt.Errorf("failed to load TLS certificates from vault: %w", err)
		}
		loaded := applyTLSContent(&cfg.Server.TLS, secret)
		if logger != nil {
			logger.Info("TLS material loaded from Vault", "fields_loaded", loaded)
		}
	}

	return nil
}

func readAPIKey(client secretReader, path string) (string, error) {
	secret, err := client.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	key, err := stringField(secret, path, "api_key")
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("empty api_key in secret %s", path)
	}
	return key, nil
}

// applyLLMKey sets the global key and every per-operation key that was
// not configured explicitly.
func applyLLMKey(cfg *Config, key string) {
	cfg.AI.APIKey = key
	for _, block := range []*OperationAIConfig{&cfg.AI.Analysis, &cfg.AI.Questions, &cfg.AI.Feedback, &cfg.AI.IdealAnswer, &cfg.AI.Ask} {
		if block.APIKey == "" {
			block.APIKey = key
		}
	}
}

// applyTLSContent copies PEM content and clears the matching file path so
// validation does not see two sources.
func applyTLSContent(tls *TLSConfig, secret *VaultSecret) int {
	loaded := 0
	fields := []struct {
		key     string
		content *string
		file    *string
	}{
		{"cert", &tls.CertContent, &tls.CertFile},
		{"key", &tls.KeyContent, &tls.KeyFile},
		{"ca", &tls.CAContent, &tls.CAFile},
	}
	for _, f := range fields {
		if v, ok := secret.Data[f.key].(string); ok && v != "" {
			*f.content = v
			*f.file = ""
			loaded++
		}
	}
	return loaded
}
