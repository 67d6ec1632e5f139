package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/safar/store-mcp/internal/analytics"
	"github.com/safar/store-mcp/internal/cache"
	"github.com/safar/store-mcp/internal/catalog"
	"github.com/safar/store-mcp/internal/config"
	"github.com/safar/store-mcp/internal/database"
	"github.com/safar/store-mcp/internal/export"
	"github.com/safar/store-mcp/internal/purchase"
	"github.com/safar/store-mcp/internal/recommend"
	"github.com/safar/store-mcp/internal/store"
	"github.com/safar/store-mcp/internal/tools"
	"go.uber.org/zap"
)

// App holds the wired components shared by the HTTP and stdio servers.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Store      store.Store
	Cache      cache.Cache
	Dispatcher *tools.Dispatcher
}

// New opens the configured store and cache and registers every tool.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	c, err := openCache(ctx, cfg, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, Store: st, Cache: c}

	if a.Dispatcher, err = a.buildDispatcher(); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.Store.Driver != config.DriverPostgres {
		logger.Info("using in-memory store")
		return store.NewMemory(), nil
	}

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(ctx, db, database.MigrateUp)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied", zap.Strings("files", applied))
	}

	logger.Info("connected to postgres store")
	return store.NewPostgres(db), nil
}

func openCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cache.Cache, error) {
	if cfg.Redis.URL == "" {
		return cache.Noop{}, nil
	}

	client, err := cache.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return nil, err
	}

	logger.Info("dashboard cache enabled", zap.Duration("ttl", cfg.Redis.DashboardTTL))
	return cache.NewRedisCache(client, &cfg.Redis), nil
}

func (a *App) buildDispatcher() (*tools.Dispatcher, error) {
	inv := cache.NewInvalidator(a.Cache, a.Logger, cache.DashboardKey)

	d := tools.NewDispatcher(a.Logger)
	err := tools.RegisterAll(d, tools.Services{
		Catalog:     catalog.NewService(a.Store, a.Logger, catalog.WithInvalidator(inv)),
		Purchases:   purchase.NewService(a.Store, a.Logger, purchase.WithInvalidator(inv)),
		Recommender: recommend.NewEngine(a.Store, a.Config.Recommendation, a.Logger),
		Analytics:   analytics.NewService(a.Store, a.Logger, analytics.WithCache(a.Cache, a.Config.Redis.DashboardTTL)),
		Exporter:    export.NewExporter(a.Store, a.Config.Export.Dir, a.Logger),
	})
	if err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}

	return d, nil
}

func (a *App) Close() error {
	return errors.Join(a.Cache.Close(), a.Store.Close())
}
