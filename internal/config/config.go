package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloo-solutions/docingest/internal/domain"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "DOCINGEST"

// Embedding providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Row sinks
const (
	SinkPostgres = "postgres"
	SinkSQLite   = "sqlite"
)

// Cache backends
const (
	CacheFile = "file"
	CacheS3   = "s3"
)

type Config struct {
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	Sink        string `envconfig:"SINK" default:"postgres"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"./data/docingest.db"`

	EmbeddingProvider      string  `envconfig:"EMBEDDING_PROVIDER" default:"openai"`
	EmbeddingModel         string  `envconfig:"EMBEDDING_MODEL"`
	EmbeddingDimension     int     `envconfig:"EMBEDDING_DIMENSION" default:"1536"`
	EmbedMaxAttempts       int     `envconfig:"EMBED_MAX_ATTEMPTS" default:"1"`
	EmbedRequestsPerSecond float64 `envconfig:"EMBED_REQUESTS_PER_SECOND" default:"0"`
	OpenAIAPIKey           string  `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL          string  `envconfig:"OPENAI_BASE_URL"`
	GeminiAPIKey           string  `envconfig:"GEMINI_API_KEY"`

	Folder         string `envconfig:"FOLDER" default:"gama"`
	DataDir        string `envconfig:"DATA_DIR" default:"./data"`
	MaxTokens      int    `envconfig:"MAX_TOKENS" default:"500"`
	MinTextLength  int    `envconfig:"MIN_TEXT_LENGTH" default:"100"`
	OverflowPolicy string `envconfig:"OVERFLOW_POLICY" default:"duplicate"`

	CacheBackend string `envconfig:"CACHE_BACKEND" default:"file"`
	CacheDir     string `envconfig:"CACHE_DIR" default:"./processed"`
	S3Endpoint   string `envconfig:"S3_ENDPOINT"`
	S3AccessKey  string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey  string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket     string `envconfig:"S3_BUCKET" default:"docingest-cache"`
	S3Region     string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Prefix     string `envconfig:"S3_PREFIX" default:"processed"`
}

// Load reads .env (if present) and the DOCINGEST_* environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, domain.ConfigError("failed to process config", err)
	}

	cfg.EmbeddingProvider = strings.ToLower(cfg.EmbeddingProvider)
	cfg.Sink = strings.ToLower(cfg.Sink)
	cfg.CacheBackend = strings.ToLower(cfg.CacheBackend)
	cfg.OverflowPolicy = strings.ToLower(cfg.OverflowPolicy)

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks the settings a pipeline run depends on.
func (c *Config) Validate() error {
	var problems []error

	if c.Folder == "" {
		problems = append(problems, errors.New("FOLDER must not be empty"))
	}
	if c.MaxTokens <= 0 {
		problems = append(problems, fmt.Errorf("MAX_TOKENS must be positive, got %d", c.MaxTokens))
	}
	if c.MinTextLength < 0 {
		problems = append(problems, fmt.Errorf("MIN_TEXT_LENGTH must not be negative, got %d", c.MinTextLength))
	}
	if c.EmbeddingDimension <= 0 {
		problems = append(problems, fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", c.EmbeddingDimension))
	}
	if c.EmbedMaxAttempts <= 0 {
		problems = append(problems, fmt.Errorf("EMBED_MAX_ATTEMPTS must be positive, got %d", c.EmbedMaxAttempts))
	}
	if c.EmbedRequestsPerSecond < 0 {
		problems = append(problems, errors.New("EMBED_REQUESTS_PER_SECOND must not be negative"))
	}
	if c.OverflowPolicy != "duplicate" && c.OverflowPolicy != "defer" {
		problems = append(problems, fmt.Errorf("OVERFLOW_POLICY must be duplicate or defer, got %q", c.OverflowPolicy))
	}

	if err := c.ValidateEmbedding(); err != nil {
		problems = append(problems, err)
	}
	if err := c.ValidateSink(); err != nil {
		problems = append(problems, err)
	}

	switch c.CacheBackend {
	case CacheFile:
		if c.CacheDir == "" {
			problems = append(problems, errors.New("CACHE_DIR must not be empty"))
		}
	case CacheS3:
		if !c.HasS3() {
			problems = append(problems, errors.New("CACHE_BACKEND=s3 requires S3_ENDPOINT, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY"))
		}
	default:
		problems = append(problems, fmt.Errorf("CACHE_BACKEND must be file or s3, got %q", c.CacheBackend))
	}

	if len(problems) > 0 {
		return domain.ConfigError("invalid configuration", errors.Join(problems...))
	}
	return nil
}

// ValidateEmbedding checks the provider and its credentials.
func (c *Config) ValidateEmbedding() error {
	switch c.EmbeddingProvider {
	case ProviderOpenAI:
		if !c.HasOpenAI() {
			return domain.ConfigError("OPENAI_API_KEY is required for the openai provider", nil)
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return domain.ConfigError("GEMINI_API_KEY is required for the gemini provider", nil)
		}
	default:
		return domain.ConfigError(fmt.Sprintf("EMBEDDING_PROVIDER must be openai or gemini, got %q", c.EmbeddingProvider), nil)
	}
	return nil
}

// ValidateSink checks the row sink settings.
func (c *Config) ValidateSink() error {
	switch c.Sink {
	case SinkPostgres:
		if c.DatabaseURL == "" {
			return domain.ConfigError("DATABASE_URL is required for the postgres sink", nil)
		}
	case SinkSQLite:
		if c.SQLitePath == "" {
			return domain.ConfigError("SQLITE_PATH is required for the sqlite sink", nil)
		}
	default:
		return domain.ConfigError(fmt.Sprintf("SINK must be postgres or sqlite, got %q", c.Sink), nil)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
