package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"

	"github.com/rl1809/obesho/internal/adapter/storage"
	"github.com/rl1809/obesho/internal/config"
	"github.com/rl1809/obesho/internal/core/service"
	"github.com/rl1809/obesho/internal/platform/observability"
	"github.com/rl1809/obesho/internal/port"
)

// Container holds the long-lived resources shared by the servers and CLI commands.
type Container struct {
	cfg *config.Config
	log *zap.Logger

	store *storage.GormAdapter
	rdb   *redis.Client

	orders  *service.OrderComposer
	catalog *service.CatalogService

	traceShutdown func(context.Context) error
}

// NewContainer connects to the store (and Redis when configured) and builds the services.
func NewContainer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	c := &Container{cfg: cfg, log: log}

	traceShutdown, err := observability.SetupTracing(ctx, cfg.OtelEndpoint, config.ServiceName, config.Version)
	if err != nil {
		log.Error("failed to setup OpenTelemetry tracing", zap.Error(err))
	}
	c.traceShutdown = traceShutdown

	if err := c.openStore(ctx); err != nil {
		c.Shutdown(ctx)
		return nil, err
	}

	var cache port.CacheRepository
	if cfg.RedisAddr != "" {
		c.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			PoolSize: 100,
		})
		if err := c.rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis configured but not reachable, idempotency keys disabled",
				zap.String("addr", cfg.RedisAddr), zap.Error(err))
			c.rdb.Close()
			c.rdb = nil
		} else {
			log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
			cache = storage.NewRedisAdapter(c.rdb, cfg.IdempotencyTTL)
		}
	}

	opts := []service.Option{
		service.WithLogger(log.Named("orders")),
		service.WithConflictRetries(cfg.ConflictRetries, 0),
	}
	if cache != nil {
		opts = append(opts, service.WithIdempotency(cache))
	}
	c.orders = service.NewOrderComposer(c.store, service.NewInventoryLedger(c.store), opts...)
	c.catalog = service.NewCatalogService(c.store)
	return c, nil
}

// NewStoreContainer only opens the store, for commands that do not serve traffic.
func NewStoreContainer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	c := &Container{cfg: cfg, log: log}
	if err := c.openStore(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) openStore(ctx context.Context) error {
	db, err := storage.Open(storage.Options{
		Driver:   c.cfg.DBDriver,
		DSN:      c.cfg.DSN(),
		LogLevel: gormLogLevel(c.cfg.GormLog),
	}, c.log)
	if err != nil {
		return fmt.Errorf("failed to connect %s: %w", c.cfg.DBDriver, err)
	}
	c.store = storage.NewGormAdapter(db)

	if err := c.store.Ping(ctx); err != nil {
		c.store.Close()
		c.store = nil
		return fmt.Errorf("failed to ping %s: %w", c.cfg.DBDriver, err)
	}
	c.log.Info("connected to database", zap.String("driver", c.cfg.DBDriver))
	return nil
}

func (c *Container) Store() *storage.GormAdapter      { return c.store }
func (c *Container) Orders() *service.OrderComposer   { return c.orders }
func (c *Container) Catalog() *service.CatalogService { return c.catalog }
func (c *Container) Logger() *zap.Logger              { return c.log }
func (c *Container) Config() *config.Config           { return c.cfg }

// Shutdown closes connections and flushes traces. It is safe on a partially built container.
func (c *Container) Shutdown(ctx context.Context) {
	if c.rdb != nil {
		if err := c.rdb.Close(); err != nil {
			c.log.Error("failed to close redis", zap.Error(err))
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.log.Error("failed to close database", zap.Error(err))
		}
	}
	if c.traceShutdown != nil {
		if err := c.traceShutdown(ctx); err != nil {
			c.log.Error("failed to shutdown OTel tracing", zap.Error(err))
		}
	}
	c.log.Info("connections closed")
}

func gormLogLevel(name string) logger.LogLevel {
	switch strings.ToLower(name) {
	case "off", "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
