package di

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"scl90-gate/internal/access"
	"scl90-gate/internal/access/adapter/persistence/redisstore"
	"scl90-gate/internal/access/config"
	"scl90-gate/internal/access/domain/repository"
	"scl90-gate/internal/shared/eventbus"
	"scl90-gate/internal/shared/logger"
	"scl90-gate/internal/shared/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Container owns the long-lived services of the gate server and their
// shutdown order
type Container struct {
	mu sync.RWMutex

	// Module instances
	AccessModule *access.AccessModule

	// Stores
	Repository    repository.AccessRepository
	Redis         *redis.Client
	ActivityStore *redisstore.ActivityStore

	// Shared services
	Bus     *eventbus.EventBus
	Metrics *metrics.Metrics

	// Configuration
	AccessConfig *config.Config

	// Loggers
	Logger    logger.Logger
	ZapLogger *zap.Logger
}

// NewContainer creates an empty container. Nil loggers fall back to nop
// implementations.
func NewContainer(log logger.Logger, zapLog *zap.Logger) *Container {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Container{Logger: log, ZapLogger: zapLog}
}

// InitializeAccess opens the configured stores and builds the access module
func (c *Container) InitializeAccess(ctx context.Context, cfg *config.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.AccessModule != nil {
		return errors.New("access module already initialized")
	}
	c.AccessConfig = cfg

	m, err := metrics.New(true)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}
	c.Metrics = m
	c.Bus = eventbus.NewEventBus(c.Logger.WithComponent("eventbus"))

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	repo, err := access.OpenRepository(openCtx, cfg, c.Logger.WithComponent("store"))
	if err != nil {
		return err
	}
	c.Repository = repo

	deps := access.Dependencies{
		Repository: repo,
		Bus:        c.Bus,
		Metrics:    c.Metrics,
		Logger:     c.Logger.WithComponent("access"),
	}

	if cfg.RedisEnabled {
		client := redisstore.NewRedisClient(cfg)
		if err := client.Ping(openCtx).Err(); err != nil {
			_ = client.Close()
			_ = repo.Close(context.Background())
			c.Repository = nil
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.Redis = client
		c.ActivityStore = redisstore.NewActivityStore(client, cfg.ActivityStream, cfg.ActivityStreamMaxLen, c.ZapLogger.Named("activity"))
		deps.ActivityStore = c.ActivityStore
	}

	module, err := access.NewAccessModule(cfg, deps)
	if err != nil {
		return fmt.Errorf("failed to create access module: %w", err)
	}
	c.AccessModule = module
	return nil
}

// GetAccessModule returns the access module instance
func (c *Container) GetAccessModule() *access.AccessModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.AccessModule
}

// GetMetrics returns the metrics registry holder
func (c *Container) GetMetrics() *metrics.Metrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Metrics
}

// HealthCheck pings every store the container holds
func (c *Container) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.Repository != nil {
		if err := c.Repository.Ping(ctx); err != nil {
			return fmt.Errorf("access store health check failed: %w", err)
		}
	}
	if c.ActivityStore != nil {
		if err := c.ActivityStore.Ping(ctx); err != nil {
			return fmt.Errorf("redis health check failed: %w", err)
		}
	}
	return nil
}

// Cleanup stops modules before the stores they depend on
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	if c.AccessModule != nil {
		if err := c.AccessModule.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop access module: %w", err))
		}
		c.AccessModule = nil
	}

	// Pending fire-and-forget events still need the stores
	if c.Bus != nil {
		wait := 5 * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			wait = time.Until(deadline)
		}
		if !c.Bus.Drain(wait) {
			c.Logger.Warn("event bus did not drain before shutdown")
		}
	}

	if c.Repository != nil {
		if err := c.Repository.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close access store: %w", err))
		}
		c.Repository = nil
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
		c.Redis = nil
		c.ActivityStore = nil
	}

	return errors.Join(errs...)
}

// Close shuts down all services with a bounded timeout
func (c *Container) Close() error {
	c.Logger.Info("Closing container resources...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Cleanup(ctx); err != nil {
		c.Logger.Warnf("cleanup errors occurred: %v", err)
		return err
	}

	_ = c.ZapLogger.Sync()
	c.Logger.Info("Container resources closed.")
	return nil
}
