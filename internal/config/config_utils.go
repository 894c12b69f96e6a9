package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

func (c *Config) applyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("RESUMERAG_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitCSV(apiKeysEnv)
		}
	}

	// GROQ_API_KEY is what most existing deployments already export.
	if c.AI.APIKey == "" {
		if key := os.Getenv("GROQ_API_KEY"); key != "" && c.AI.Provider == "openai" {
			c.AI.APIKey = key
		} else if key := os.Getenv("GEMINI_API_KEY"); key != "" && c.AI.Provider == "gemini" {
			c.AI.APIKey = key
		}
	}

	if c.Embedding.APIKey == "" && c.Embedding.Provider == c.AI.Provider && c.Embedding.BaseURL == "" {
		c.Embedding.APIKey = c.AI.APIKey
	}
	if c.Embedding.APIKey == "" && c.Embedding.Provider == "gemini" {
		c.Embedding.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}

	if c.Observability.ServiceInstance == "" {
		if hostname, err := os.Hostname(); err == nil {
			c.Observability.ServiceInstance = fmt.Sprintf("%s-%s", c.Observability.ServiceName, hostname)
		} else {
			c.Observability.ServiceInstance = fmt.Sprintf("%s-1", c.Observability.ServiceName)
		}
	}

	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")
	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"RESUMERAG_AI_APIKEY",
		"RESUMERAG_AI_PROVIDER",
		"RESUMERAG_AI_MODEL",
		"RESUMERAG_EMBEDDING_PROVIDER",
		"RESUMERAG_EMBEDDING_APIKEY",
		"RESUMERAG_SERVER_PORT",
		"RESUMERAG_HISTORY_DRIVER",
		"RESUMERAG_VAULT_ENABLED",
		"GROQ_API_KEY",
		"GEMINI_API_KEY",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}
		if strings.Contains(strings.ToLower(envVar), "key") {
			log.Printf("[CONFIG]   %s=***MASKED***", envVar)
		} else {
			log.Printf("[CONFIG]   %s=%s", envVar, value)
		}
		hasEnvVars = true
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Printf("[CONFIG] AI: provider=%s model=%s key=%s", c.AI.Provider, c.AI.Model, configuredOrNot(c.AI.APIKey))
	log.Printf("[CONFIG] Embedding: provider=%s model=%s key=%s", c.Embedding.Provider, c.Embedding.Model, configuredOrNot(c.Embedding.APIKey))
	log.Printf("[CONFIG] RAG: chunkSize=%d overlap=%d topK=%d", c.RAG.ChunkSize, c.RAG.ChunkOverlap, c.RAG.TopK)
	log.Printf("[CONFIG] Server: %s:%s tls=%s", c.Server.Host, c.Server.Port, c.Server.TLS.Mode)
	log.Printf("[CONFIG] History driver: %s", c.History.Driver)
	log.Printf("[CONFIG] Vault enabled: %t, observability enabled: %t", c.Vault.Enabled, c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}

func configuredOrNot(secret string) string {
	if secret == "" {
		return "***NOT SET***"
	}
	return "***CONFIGURED***"
}

func splitCSV(value string) []string {
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
