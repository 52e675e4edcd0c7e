package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/tasklog/internal/alert"
	"github.com/phrazzld/tasklog/internal/cache"
	"github.com/phrazzld/tasklog/internal/clock"
	"github.com/phrazzld/tasklog/internal/config"
	"github.com/phrazzld/tasklog/internal/importer"
	"github.com/phrazzld/tasklog/internal/metrics"
	"github.com/phrazzld/tasklog/internal/platform/postgres"
	"github.com/phrazzld/tasklog/internal/service"
	"github.com/phrazzld/tasklog/internal/service/auth"
	"github.com/phrazzld/tasklog/internal/snapshot"
	"github.com/phrazzld/tasklog/internal/store"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	clock  clock.Clock

	db         *sql.DB
	cacheStore cache.Store
	readCache  *cache.ReadCache
	metrics    *metrics.Metrics

	taskStore     store.TaskStore
	auditStore    store.AuditStore
	ownerStore    store.OwnerStore
	snapshotStore store.SnapshotStore

	tokens       auth.TokenService
	taskService  *service.TaskService
	importer     *importer.Importer
	queryService *snapshot.QueryService
	engine       *snapshot.Engine
	scheduler    *snapshot.Scheduler
}

// newApplication wires every component on top of an open database. The
// scheduler is created but not started.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		clock:   clock.System(),
		db:      db,
		metrics: metrics.New(),
	}

	var err error
	app.tokens, err = auth.NewTokenService(cfg.Auth, app.clock)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	app.cacheStore = newCacheStore(cfg, app.clock, logger)
	app.readCache = cache.NewReadCache(app.cacheStore, cfg.Cache.TTL,
		cache.WithObserver(app.metrics),
		cache.WithLogger(logger))

	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.auditStore = postgres.NewPostgresAuditStore(db, logger)
	app.ownerStore = postgres.NewPostgresOwnerStore(db, logger)
	app.snapshotStore = postgres.NewPostgresSnapshotStore(db, logger)

	app.taskService, err = service.NewTaskService(
		db,
		app.taskStore,
		service.NewAuditTrail(app.auditStore, app.clock, logger),
		app.readCache,
		app.clock,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	app.importer, err = importer.New(app.taskService, app.ownerStore, app.clock, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create importer: %w", err)
	}

	app.queryService = snapshot.NewQueryService(app.snapshotStore, app.readCache, logger)

	app.engine, err = snapshot.NewEngine(db, app.taskStore, app.snapshotStore, app.readCache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot engine: %w", err)
	}

	app.scheduler = snapshot.NewScheduler(
		app.engine,
		newAlertDispatcher(cfg.Alert, app.metrics, logger),
		app.clock,
		snapshot.SchedulerConfig{
			MaxAttempts: cfg.Scheduler.MaxAttempts,
			RetryDelay:  cfg.Scheduler.RetryDelay,
			RunTimeout:  cfg.Scheduler.RunTimeout,
		},
		logger,
		snapshot.WithObserver(app.metrics),
	)

	logger.Info("Application initialized successfully")
	return app, nil
}

// newCacheStore returns the Redis backend when enabled and an in-process
// store otherwise.
func newCacheStore(cfg *config.Config, clk clock.Clock, logger *slog.Logger) cache.Store {
	if !cfg.Redis.Enabled {
		logger.Warn("Redis disabled, using in-process read cache")
		return cache.NewMemoryStore(clk)
	}
	logger.Info("Using Redis read cache", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	return cache.NewRedisStore(cache.NewRedisClient(cfg.Redis), cfg.Redis.KeyPrefix)
}

// newAlertDispatcher always logs and counts alerts, and posts them to the
// configured webhook when there is one.
func newAlertDispatcher(cfg config.AlertConfig, m *metrics.Metrics, logger *slog.Logger) *alert.Dispatcher {
	d := alert.NewDispatcher(logger,
		alert.NewLogHandler(logger),
		alert.NewMetricsHandler(m),
	)
	if cfg.WebhookURL != "" {
		d.Register(alert.NewWebhookHandler(cfg.WebhookURL, nil, cfg.WebhookTimeout))
	}
	return d
}

// cleanup releases resources that outlive a single command. It is safe to
// call after a partial shutdown.
func (app *application) cleanup(ctx context.Context) error {
	if app.scheduler != nil {
		app.scheduler.Stop()
	}

	var firstErr error
	if app.cacheStore != nil {
		if err := app.cacheStore.Close(); err != nil {
			app.logger.ErrorContext(ctx, "Error closing cache", "error", err)
			firstErr = err
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.ErrorContext(ctx, "Error closing database connection", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	app.logger.InfoContext(ctx, "Application shutdown completed")
	return firstErr
}
