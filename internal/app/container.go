// Package app wires the application together: configuration, database,
// caches, event bus, planner and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fieldops/dispatch/adapter/api"
	"github.com/fieldops/dispatch/internal/scheduling/application/planning"
	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/fieldops/dispatch/internal/scheduling/infrastructure/events"
	"github.com/fieldops/dispatch/internal/scheduling/infrastructure/notify"
	"github.com/fieldops/dispatch/internal/scheduling/infrastructure/persistence"
	"github.com/fieldops/dispatch/internal/shared/infrastructure/eventbus"
	"github.com/fieldops/dispatch/internal/shared/infrastructure/migrations"
	"github.com/fieldops/dispatch/pkg/config"
	"github.com/fieldops/dispatch/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics observability.Metrics
	Health  *observability.HealthRegistry

	DB          *pgxpool.Pool
	RedisClient *redis.Client

	WorkRepo      domain.WorkRepository
	EngineerRepo  domain.EngineerRepository
	DirectoryRepo domain.DirectoryRepository
	SessionRepo   domain.SessionRepository

	Bus      *eventbus.Bus
	Consumer *eventbus.RabbitMQConsumer
	Planner  *planning.Service
	Expirer  *planning.Expirer

	Server *api.Server
}

// NewContainer builds the dependency graph from configuration.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger := newLogger(cfg)

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
		Health:  observability.NewHealthRegistry(),
		DB:      pool,
	}
	c.Health.Register("database", observability.DatabaseHealthChecker(pool.Ping))

	// Broker mirror is optional; single-instance deployments run on the
	// in-process bus alone.
	var mirror eventbus.Publisher
	if cfg.RabbitMQEnabled {
		publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("connect event publisher: %w", err)
		}
		mirror = publisher
	} else {
		mirror = eventbus.NewNoopPublisher(logger)
	}
	c.Bus = eventbus.NewBus(mirror, logger)

	if cfg.RabbitMQEnabled {
		consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
			URL:       cfg.RabbitMQURL,
			QueueName: cfg.SyncQueueName,
			Logger:    logger,
		}, c.Bus)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("connect event consumer: %w", err)
		}
		c.Consumer = consumer
	}

	c.WorkRepo = persistence.NewPostgresWorkRepository(pool)
	c.EngineerRepo = persistence.NewPostgresEngineerRepository(pool)
	c.SessionRepo = persistence.NewPostgresSessionRepository(pool)

	directory := domain.DirectoryRepository(persistence.NewPostgresDirectoryRepository(pool))
	if cfg.RedisEnabled {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("parse redis URL: %w", err)
		}
		c.RedisClient = redis.NewClient(opts)
		directory = persistence.NewCachedDirectoryRepository(directory, c.RedisClient, persistence.DirectoryCacheTTL, logger)
		c.Health.Register("cache", observability.CacheHealthChecker(func(ctx context.Context) error {
			return c.RedisClient.Ping(ctx).Err()
		}))
	}
	c.DirectoryRepo = directory

	var notifier planning.Notifier
	if cfg.NotificationWebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.NotificationWebhookURL, logger)
	}

	c.Planner = planning.NewService(
		c.WorkRepo,
		c.EngineerRepo,
		c.DirectoryRepo,
		c.SessionRepo,
		events.NewBusSink(c.Bus),
		notifier,
		logger,
	)

	expirer, err := planning.NewExpirer(c.Planner, cfg.SessionExpiryInterval, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Expirer = expirer

	sink := events.NewBusSink(c.Bus)
	c.Server = api.NewServer(
		api.ServerConfig{
			Addr:        cfg.HTTPAddr,
			ReadTimeout: cfg.ReadTimeout,
			IdleTimeout: cfg.IdleTimeout,
			Metrics:     c.Metrics,
		},
		api.ServerHandlers{
			Auth:      api.NewAuthMiddleware([]byte(cfg.JWTSecret), logger),
			Works:     api.NewWorksHandler(c.WorkRepo, c.EngineerRepo, c.Planner, sink, logger),
			Planning:  api.NewPlanningHandler(c.Planner, logger),
			Directory: api.NewDirectoryHandler(c.DirectoryRepo, sink, logger),
			Engineers: api.NewEngineersHandler(c.EngineerRepo, sink, logger),
			Sync:      api.NewSyncHandler(c.Bus, cfg.SSEKeepalive, logger),
			Health:    c.Health,
		},
		logger,
	)

	return c, nil
}

// Migrate applies the SQL schema.
func (c *Container) Migrate(ctx context.Context) error {
	return migrations.RunPostgresMigrations(ctx, c.DB)
}

// Close releases all held resources.
func (c *Container) Close() {
	if c.Expirer != nil {
		if err := c.Expirer.Stop(); err != nil {
			c.Logger.Warn("error stopping session expirer", "error", err)
		}
	}
	if c.Consumer != nil {
		if err := c.Consumer.Close(); err != nil {
			c.Logger.Warn("error closing event consumer", "error", err)
		}
	}
	if c.Bus != nil {
		if err := c.Bus.Close(); err != nil {
			c.Logger.Warn("error closing event bus", "error", err)
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing redis client", "error", err)
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	logCfg := observability.DefaultLogConfig()
	if cfg.IsProduction() {
		logCfg = observability.ProductionLogConfig()
	}
	logCfg.Level = observability.LogLevel(cfg.LogLevel)
	return observability.NewLogger(logCfg)
}
