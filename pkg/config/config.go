package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Store backends accepted in store.backend.
const (
	StoreBackendMemory   = "memory"
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"
)

// Config holds all configuration for arqioly.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3480"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	Log      LogConfig      `yaml:"log"`
	Store    StoreConfig    `yaml:"store"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	MCP      MCPConfig      `yaml:"mcp"`
	Events   EventsConfig   `yaml:"events"`
	Export   ExportConfig   `yaml:"export"`

	// SeedDefaults creates the General project, default categories, tags and
	// category system prompts on startup when they are missing.
	SeedDefaults bool `yaml:"seed_defaults" env:"SEED_DEFAULTS" env-default:"true"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"` // json or console
	// File enables a rotated log file in addition to stderr.
	File       string `yaml:"file" env:"LOG_FILE" env-default:""`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB" env-default:"100"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS" env-default:"5"`
	MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS" env-default:"30"`
	Compress   bool   `yaml:"compress" env:"LOG_COMPRESS" env-default:"true"`
}

// StoreConfig selects the key-value backend holding the entity collections.
type StoreConfig struct {
	Backend   string `yaml:"backend" env:"STORE_BACKEND" env-default:"memory"`
	KeyPrefix string `yaml:"key_prefix" env:"STORE_KEY_PREFIX" env-default:"arqioly:"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Addr returns host:port for the Redis client.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host), c.Port)
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"arqioly"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"arqioly"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MaxIdleConns   int32  `yaml:"max_idle_conns" env:"PGMAX_IDLE_CONNS" env-default:"5"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// LLMConfig holds provider credentials. A provider without an API key is
// treated as unavailable and model configs pointing at it fail to execute.
type LLMConfig struct {
	OpenAI         OpenAIConfig    `yaml:"openai"`
	Anthropic      AnthropicConfig `yaml:"anthropic"`
	Azure          AzureConfig     `yaml:"azure"`
	RequestTimeout time.Duration   `yaml:"request_timeout" env:"LLM_REQUEST_TIMEOUT" env-default:"60s"`
	MaxRetries     int             `yaml:"max_retries" env:"LLM_MAX_RETRIES" env-default:"3"`
}

type OpenAIConfig struct {
	BaseURL string `yaml:"base_url" env:"OPENAI_BASE_URL" env-default:""`
	APIKey  string `yaml:"-" env:"OPENAI_API_KEY"`
}

type AnthropicConfig struct {
	BaseURL string `yaml:"base_url" env:"ANTHROPIC_BASE_URL" env-default:""`
	APIKey  string `yaml:"-" env:"ANTHROPIC_API_KEY"`
}

type AzureConfig struct {
	Endpoint   string `yaml:"endpoint" env:"AZURE_OPENAI_ENDPOINT" env-default:""`
	APIVersion string `yaml:"api_version" env:"AZURE_OPENAI_API_VERSION" env-default:"2024-06-01"`
	APIKey     string `yaml:"-" env:"AZURE_OPENAI_API_KEY"`
}

// IsAvailable returns true if the provider has credentials configured.
func (c *OpenAIConfig) IsAvailable() bool { return c.APIKey != "" }

// IsAvailable returns true if the provider has credentials configured.
func (c *AnthropicConfig) IsAvailable() bool { return c.APIKey != "" }

// IsAvailable returns true if both the endpoint and key are configured.
func (c *AzureConfig) IsAvailable() bool { return c.APIKey != "" && c.Endpoint != "" }

// MCPConfig controls the MCP endpoint.
type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"MCP_ENABLED" env-default:"true"`
	// APIKey, when set, is required as a Bearer token on /api/mcp.
	APIKey           string `yaml:"-" env:"MCP_API_KEY"`
	LogRequestBodies bool   `yaml:"log_request_bodies" env:"MCP_LOG_REQUEST_BODIES" env-default:"false"`
}

// EventsConfig controls domain event publishing.
type EventsConfig struct {
	NATSURL       string `yaml:"nats_url" env:"NATS_URL" env-default:""`
	SubjectPrefix string `yaml:"subject_prefix" env:"EVENTS_SUBJECT_PREFIX" env-default:"arqioly"`
}

// ExportConfig controls archiving of full exports to S3-compatible storage.
type ExportConfig struct {
	S3Bucket   string `yaml:"s3_bucket" env:"EXPORT_S3_BUCKET" env-default:""`
	S3Region   string `yaml:"s3_region" env:"EXPORT_S3_REGION" env-default:"us-east-1"`
	S3Endpoint string `yaml:"s3_endpoint" env:"EXPORT_S3_ENDPOINT" env-default:""`
	S3Prefix   string `yaml:"s3_prefix" env:"EXPORT_S3_PREFIX" env-default:"exports/"`
}

// IsAvailable returns true if an export bucket is configured.
func (c *ExportConfig) IsAvailable() bool {
	return c.S3Bucket != ""
}

// Load reads configuration from config.yaml with environment variable overrides.
// When config.yaml does not exist, configuration comes from the environment only.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case StoreBackendMemory, StoreBackendPostgres:
	case StoreBackendRedis:
		if c.Redis.Host == "" {
			return fmt.Errorf("store backend %q requires redis.host", c.Store.Backend)
		}
	default:
		return fmt.Errorf("unknown store backend %q (want memory, redis or postgres)", c.Store.Backend)
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must not be negative")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		ResolveHostForDocker(c.Host), c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// MigrationURL returns a postgres:// URL for golang-migrate.
func (c *DatabaseConfig) MigrationURL() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host), c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}
