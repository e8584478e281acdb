package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"review_gateway/internal/providers"
	"review_gateway/internal/queue"
	"review_gateway/internal/storage"
	"review_gateway/internal/vault"
)

// Queue backends.
const (
	QueueMemory = "memory"
	QueueRedis  = "redis"
)

// Config holds configuration for the gateway.
type Config struct {
	HTTPPort        string        `env:"HTTP_PORT" envDefault:"8080"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	MetricsEnabled  bool          `env:"METRICS_ENABLED" envDefault:"true"`

	// EncryptionKey is 64 hex characters. The vault fails its operations
	// with a configuration error when it is empty.
	EncryptionKey string `env:"ENCRYPTION_KEY"`

	Database  DatabaseConfig
	Redis     RedisConfig
	Queue     QueueConfig
	RateLimit RateLimitConfig
	Provider  ProviderConfig
	Log       LogConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string        `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	URL             string        `env:"DATABASE_URL" envDefault:"file:review_gateway.db?_pragma=busy_timeout(5000)"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"1m"`
	PromptCacheSize int           `env:"PROMPT_CACHE_SIZE" envDefault:"100"`
	PromptCacheTTL  time.Duration `env:"PROMPT_CACHE_TTL" envDefault:"5m"`
}

// RedisConfig holds Redis connection settings. Redis is optional; an empty
// address disables it.
type RedisConfig struct {
	Address  string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
}

// QueueConfig controls the review audit pipeline.
type QueueConfig struct {
	Type         string        `env:"QUEUE_TYPE" envDefault:"memory"`
	BatchSize    int           `env:"AUDIT_BATCH_SIZE" envDefault:"100"`
	BatchTimeout time.Duration `env:"AUDIT_BATCH_TIMEOUT" envDefault:"5s"`
	MaxRetries   int           `env:"AUDIT_MAX_RETRIES" envDefault:"3"`
	RetryBackoff time.Duration `env:"AUDIT_RETRY_BACKOFF" envDefault:"1s"`
}

// RateLimitConfig limits reviews per provider. Zero disables limiting.
type RateLimitConfig struct {
	PerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"0"`
}

// ProviderConfig holds provider call settings and environment credentials
// used to bootstrap an empty registry.
type ProviderConfig struct {
	CallTimeout     time.Duration `env:"PROVIDER_CALL_TIMEOUT" envDefault:"0s"`
	AzureAPIVersion string        `env:"AZURE_OPENAI_API_VERSION" envDefault:"2024-10-21"`

	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	GeminiModel     string `env:"GEMINI_MODEL"`
	AzureAPIKey     string `env:"AZURE_OPENAI_API_KEY"`
	AzureEndpoint   string `env:"AZURE_OPENAI_ENDPOINT"`
	AzureDeployment string `env:"AZURE_OPENAI_DEPLOYMENT"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `env:"ANTHROPIC_MODEL"`
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
	Local  bool   `env:"LOCAL" envDefault:"false"`
}

// Load reads a .env file if present, then parses the environment.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	return Parse()
}

// Parse reads configuration from environment variables only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.EncryptionKey = strings.TrimSpace(cfg.EncryptionKey)
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.Queue.Type = strings.ToLower(strings.TrimSpace(cfg.Queue.Type))
	if cfg.Log.Local {
		cfg.Log.Level = "debug"
		cfg.Log.Format = "console"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	// Values already in the environment win.
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings the gateway cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case storage.DriverSQLite, storage.DriverPostgres:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", storage.DriverSQLite, storage.DriverPostgres, c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch c.Queue.Type {
	case QueueMemory:
	case QueueRedis:
		if c.Redis.Address == "" {
			return fmt.Errorf("REDIS_ADDR is required when QUEUE_TYPE is %q", QueueRedis)
		}
	default:
		return fmt.Errorf("QUEUE_TYPE must be %q or %q, got %q", QueueMemory, QueueRedis, c.Queue.Type)
	}

	if c.EncryptionKey != "" {
		key, err := hex.DecodeString(c.EncryptionKey)
		if err != nil || len(key) != vault.KeySize {
			return fmt.Errorf("ENCRYPTION_KEY must be %d hex characters", vault.KeySize*2)
		}
	}

	if c.RateLimit.PerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.HTTPPort, ":")
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Address != ""
}

// DBConfig converts to the storage settings.
func (c *Config) DBConfig() storage.DBConfig {
	return storage.DBConfig{
		Driver:          c.Database.Driver,
		DSN:             c.Database.URL,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		ConnMaxIdleTime: c.Database.ConnMaxIdleTime,
		PromptCacheSize: c.Database.PromptCacheSize,
		PromptCacheTTL:  c.Database.PromptCacheTTL,
	}
}

// RedisConfig converts to the storage Redis settings.
func (c *Config) RedisConfig() storage.RedisConfig {
	rc := storage.DefaultRedisConfig()
	rc.Address = c.Redis.Address
	rc.Password = c.Redis.Password
	rc.DB = c.Redis.DB
	if c.Redis.PoolSize > 0 {
		rc.PoolSize = c.Redis.PoolSize
	}
	return rc
}

// AuditQueueConfig converts to the queue settings for review audits.
func (c *Config) AuditQueueConfig() *queue.Config {
	qc := queue.DefaultConfig("review-audit")
	qc.BatchSize = c.Queue.BatchSize
	qc.BatchTimeout = c.Queue.BatchTimeout
	qc.MaxRetries = c.Queue.MaxRetries
	qc.RetryBackoff = c.Queue.RetryBackoff
	return qc
}

// ProviderEnv returns the provider credentials found in the environment.
func (c *Config) ProviderEnv() providers.EnvCredentials {
	return providers.EnvCredentials{
		GeminiAPIKey:    c.Provider.GeminiAPIKey,
		GeminiModel:     c.Provider.GeminiModel,
		AzureAPIKey:     c.Provider.AzureAPIKey,
		AzureEndpoint:   c.Provider.AzureEndpoint,
		AzureDeployment: c.Provider.AzureDeployment,
		AnthropicAPIKey: c.Provider.AnthropicAPIKey,
		AnthropicModel:  c.Provider.AnthropicModel,
	}
}
