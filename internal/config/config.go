package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
// Secret precedence: Vault, then the config file, then RESUMERAG_* env
// vars, then defaults.
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	RAG           RAGConfig           `mapstructure:"rag"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	History       HistoryConfig       `mapstructure:"history"`
	Queue         QueueConfig         `mapstructure:"queue"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AIConfig holds the chat model configuration. Global values act as
// fallbacks for the per-operation blocks.
type AIConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"baseURL"`
	Timeout     time.Duration `mapstructure:"timeout"`
	APIKey      string        `mapstructure:"apiKey"`
	MaxRetries  int           `mapstructure:"maxRetries"`
	Temperature float32       `mapstructure:"temperature"`
	Prompts     PromptConfig  `mapstructure:"prompts"`

	Analysis    OperationAIConfig `mapstructure:"analysis"`
	Questions   OperationAIConfig `mapstructure:"questions"`
	Feedback    OperationAIConfig `mapstructure:"feedback"`
	IdealAnswer OperationAIConfig `mapstructure:"idealAnswer"`
	Ask         OperationAIConfig `mapstructure:"ask"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // allowed while half-open
	Interval         time.Duration `mapstructure:"interval"`         // count reset period while closed
	Timeout          time.Duration `mapstructure:"timeout"`          // open -> half-open
	MinRequests      uint32        `mapstructure:"minRequests"`      // before the ratio is considered
	FailureThreshold float64       `mapstructure:"failureThreshold"` // 0.0-1.0
}

// OperationAIConfig holds AI configuration for one capability. Pointer
// fields distinguish "unset" from zero so the global value can apply.
type OperationAIConfig struct {
	Provider       string               `mapstructure:"provider"`
	Model          string               `mapstructure:"model"`
	BaseURL        string               `mapstructure:"baseURL"`
	Timeout        *time.Duration       `mapstructure:"timeout"`
	APIKey         string               `mapstructure:"apiKey"`
	MaxRetries     *int                 `mapstructure:"maxRetries"`
	Temperature    *float32             `mapstructure:"temperature"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// EmbeddingConfig selects and tunes the embedding backend.
type EmbeddingConfig struct {
	Provider    string        `mapstructure:"provider"` // gemini, openai, hash
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"baseURL"`
	APIKey      string        `mapstructure:"apiKey"`
	Dimension   int           `mapstructure:"dimension"`
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// RAGConfig controls chunking and retrieval.
type RAGConfig struct {
	ChunkSize    int `mapstructure:"chunkSize"`
	ChunkOverlap int `mapstructure:"chunkOverlap"`
	TopK         int `mapstructure:"topK"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`
	TempDir      string        `mapstructure:"tempDir"`

	TLS       TLSConfig       `mapstructure:"tls"`
	APIKeys   []string        `mapstructure:"apiKeys"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds TLS/mTLS configuration. Content fields are filled from
// Vault; file fields are watched for rotation when WatchFiles is set.
type TLSConfig struct {
	Mode     string `mapstructure:"mode"` // disabled, server, mutual
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	CAFile   string `mapstructure:"caFile"`

	CertContent string `mapstructure:"certContent"`
	KeyContent  string `mapstructure:"keyContent"`
	CAContent   string `mapstructure:"caContent"`

	MinVersion       string        `mapstructure:"minVersion"`       // 1.2 or 1.3
	ClientAuthPolicy string        `mapstructure:"clientAuthPolicy"` // require, request, verify
	WatchFiles       bool          `mapstructure:"watchFiles"`
	DebounceDelay    time.Duration `mapstructure:"debounceDelay"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	RequestsPerMin int  `mapstructure:"requestsPerMin"`
	BurstCapacity  int  `mapstructure:"burstCapacity"`
	ByIP           bool `mapstructure:"byIP"`
	ByAPIKey       bool `mapstructure:"byAPIKey"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// HistoryConfig selects where analysis and interview history is kept.
type HistoryConfig struct {
	Driver   string        `mapstructure:"driver"` // none, memory, mongo, postgres
	URI      string        `mapstructure:"uri"`
	Database string        `mapstructure:"database"`
	Limit    int           `mapstructure:"limit"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// QueueConfig configures the AMQP worker.
type QueueConfig struct {
	URL            string `mapstructure:"url"`
	JobQueue       string `mapstructure:"jobQueue"`
	UpdateExchange string `mapstructure:"updateExchange"`
	Workers        int    `mapstructure:"workers"`
	Prefetch       int    `mapstructure:"prefetch"`
}

// StorageConfig points the worker at the S3-compatible bucket holding
// uploaded documents.
type StorageConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"accessKeyID"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
	MaxAttempts     int    `mapstructure:"maxAttempts"`
}

// CacheConfig configures the Redis embedding cache.
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"keyPrefix"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool              `mapstructure:"enabled"`
	ServiceName     string            `mapstructure:"serviceName"`
	ServiceVersion  string            `mapstructure:"serviceVersion"`
	ServiceInstance string            `mapstructure:"serviceInstance"`
	ConsoleOutput   bool              `mapstructure:"consoleOutput"`
	PrettyPrint     bool              `mapstructure:"prettyPrint"`
	SampleRate      float64           `mapstructure:"sampleRate"`
	MetricsInterval time.Duration     `mapstructure:"metricsInterval"`
	Prometheus      PrometheusConfig  `mapstructure:"prometheus"`
	OTLP            OTLPConfig        `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig `mapstructure:"healthCheck"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	AIModelCheckTimeout time.Duration `mapstructure:"aiModelCheckTimeout"`
}

// LoadConfig loads configuration from defaults, the first config.yaml
// found on the search path, and RESUMERAG_* environment variables.
func LoadConfig() (*Config, error) {
	return load("")
}

// LoadConfigFile is LoadConfig with an explicit config file path.
func LoadConfigFile(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RESUMERAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/resumerag/")
		v.AddConfigPath("$HOME/.resumerag")
		v.AddConfigPath(".")
	}

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.AI.Prompts.validateFiles(); err != nil {
		return nil, fmt.Errorf("prompt file validation failed: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.validateAI(); err != nil {
		return err
	}

	if err := c.validateEmbedding(); err != nil {
		return err
	}

	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag chunkSize must be positive")
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag chunkOverlap must be in [0, chunkSize)")
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("rag topK must be positive")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	switch c.History.Driver {
	case "", "none", "memory":
	case "mongo", "postgres":
		if c.History.URI == "" {
			return fmt.Errorf("history uri is required for driver %s", c.History.Driver)
		}
	default:
		return fmt.Errorf("invalid history driver: %s (must be 'none', 'memory', 'mongo', or 'postgres')", c.History.Driver)
	}

	if err := c.Server.TLS.Validate(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}
