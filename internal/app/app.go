// Package app builds the gateway's object graph from configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"review_gateway/internal/config"
	"review_gateway/internal/httpapi"
	"review_gateway/internal/logging"
	"review_gateway/internal/metrics"
	"review_gateway/internal/providers"
	"review_gateway/internal/queue"
	"review_gateway/internal/ratelimit"
	"review_gateway/internal/registry"
	"review_gateway/internal/review"
	"review_gateway/internal/storage"
	"review_gateway/internal/vault"
)

// App holds the long-lived services of one gateway process.
type App struct {
	Config    *config.Config
	DB        *storage.DB
	Redis     *redis.Client
	Vault     *vault.Vault
	Providers *storage.ProviderRepository
	Prompts   *storage.PromptRepository
	Registry  *registry.Service
	Factory   *providers.Factory
	Reviews   *review.Service
	Metrics   metrics.Metrics
	Available []providers.Available

	auditWorker *storage.AuditWorker
	cancel      context.CancelFunc
}

// New connects to the backing stores and wires every service. Callers must
// call Close.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.With("app")

	db, err := storage.NewDB(ctx, cfg.DBConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a := &App{Config: cfg, DB: db}

	if cfg.RedisEnabled() {
		a.Redis, err = storage.NewRedisClient(ctx, cfg.RedisConfig())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
	}

	a.Vault, err = vault.NewFromHex(cfg.EncryptionKey)
	if err != nil {
		a.Close()
		return nil, err
	}
	if !a.Vault.Configured() {
		log.Warn("ENCRYPTION_KEY is not set; provider keys cannot be stored or used")
	}

	if cfg.MetricsEnabled {
		a.Metrics = metrics.NewPrometheus()
	} else {
		a.Metrics = metrics.NewNoopMetrics()
	}

	a.Providers = storage.NewProviderRepository(db)
	a.Prompts = storage.NewPromptRepository(db)
	a.Registry = registry.NewService(a.Providers, a.Vault)
	a.Factory = providers.NewFactory(providers.Options{
		CallTimeout:     cfg.Provider.CallTimeout,
		AzureAPIVersion: cfg.Provider.AzureAPIVersion,
		Metrics:         a.Metrics,
	})
	a.Available = providers.AvailableFromEnv(cfg.ProviderEnv())

	q, dlq, err := a.auditQueues()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.auditWorker = storage.NewAuditWorker(q, dlq, storage.NewAuditRepository(db), cfg.AuditQueueConfig())

	var limiter ratelimit.Limiter = ratelimit.NewNoopLimiter()
	if cfg.RateLimit.PerMinute > 0 {
		if a.Redis != nil {
			limiter = ratelimit.NewRedisLimiter(a.Redis, cfg.RateLimit.PerMinute, time.Minute)
		} else {
			log.Warn("RATE_LIMIT_PER_MINUTE is set but Redis is not configured; rate limiting disabled")
		}
	}

	a.Reviews = review.NewService(review.Config{
		Providers: a.Registry,
		Prompts:   a.Prompts,
		Factory:   a.Factory,
		Limiter:   limiter,
		Audits:    a.auditWorker,
		Metrics:   a.Metrics,
	})

	return a, nil
}

func (a *App) auditQueues() (queue.Queue, queue.DeadLetterQueue, error) {
	qc := a.Config.AuditQueueConfig()
	if a.Config.Queue.Type != config.QueueRedis {
		return queue.NewMemoryQueue(qc), queue.NewMemoryDeadLetterQueue(), nil
	}

	q, err := queue.NewRedisQueue(a.Redis, qc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create audit queue: %w", err)
	}
	dlq, err := queue.NewRedisDeadLetterQueue(a.Redis, qc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create audit dead letter queue: %w", err)
	}
	return q, dlq, nil
}

// Start seeds the built-in prompts, bootstraps the registry from the
// environment and starts background workers.
func (a *App) Start(ctx context.Context) error {
	log := logging.With("app")

	n, err := storage.SeedPrompts(ctx, a.Prompts)
	if err != nil {
		return fmt.Errorf("failed to seed prompts: %w", err)
	}
	if n > 0 {
		log.Info("seeded prompts", "count", n)
	}

	if a.Vault.Configured() {
		n, err = a.Registry.Bootstrap(ctx, a.Available)
		if err != nil {
			return fmt.Errorf("failed to bootstrap providers: %w", err)
		}
		if n > 0 {
			log.Info("bootstrapped providers from environment", "count", n)
		}
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.auditWorker.Start(workerCtx)
	return nil
}

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler {
	return httpapi.NewRouter(&httpapi.Dependencies{
		Registry:       a.Registry,
		Reviews:        a.Reviews,
		Prompts:        a.Prompts,
		Metrics:        a.Metrics,
		Available:      a.Available,
		Kinds:          a.Factory,
		Health:         a.Health,
		RequestTimeout: a.Config.RequestTimeout,
	})
}

// Health checks the database and, when configured, Redis.
func (a *App) Health(ctx context.Context) error {
	if err := a.DB.Health(ctx); err != nil {
		return err
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close stops the audit worker and releases connections.
func (a *App) Close() error {
	if a.cancel != nil {
		if err := a.auditWorker.Stop(); err != nil {
			logging.With("app").Warn("audit worker stop failed", "error", err)
		}
		a.cancel()
		a.cancel = nil
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
