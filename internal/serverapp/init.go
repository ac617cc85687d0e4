package serverapp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rbeccah/airtable/internal/config"
	"github.com/rbeccah/airtable/internal/grid"
	"github.com/rbeccah/airtable/internal/httpapi"
	"github.com/rbeccah/airtable/internal/observability"
	"github.com/rbeccah/airtable/internal/sorting"
	"github.com/rbeccah/airtable/internal/store"
)

// Init initializes all runtime resources. It is idempotent.
func (a *App) Init(ctx context.Context) error {
	a.stateMu.Lock()
	if a.initialized {
		a.stateMu.Unlock()
		return nil
	}
	a.stateMu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	cleanup := cleanupStack{}
	success := false
	defer func() {
		if !success {
			cleanup.run(context.Background(), a.logger)
		}
	}()

	registry, metrics := initMetrics(a.cfg)

	a.logger.Info("connecting to MySQL",
		slog.String("host", a.cfg.Database.Host),
		slog.Int("port", a.cfg.Database.Port),
		slog.String("database", a.cfg.Database.Database),
	)

	db, err := connectDB(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	cleanup.push("database", func(context.Context) error {
		return db.Close()
	})

	st := store.NewFromDB(db)
	resolver := buildResolver(a.cfg, st, metrics)
	engine := buildEngine(st, resolver, metrics)

	handler := buildHandler(a.cfg, a.logger, db, engine, registry, metrics)

	serverAddr := fmt.Sprintf(":%d", a.cfg.Server.Port)
	srv := buildServer(a.cfg, handler, serverAddr)
	cleanup.push("HTTP server", func(shutdownCtx context.Context) error {
		return srv.Shutdown(shutdownCtx)
	})

	a.stateMu.Lock()
	a.registry = registry
	a.metrics = metrics
	a.db = db
	a.store = st
	a.resolver = resolver
	a.engine = engine
	a.handler = handler
	a.serverAddr = serverAddr
	a.srv = srv
	a.cleanup = cleanup
	a.initialized = true
	a.stateMu.Unlock()

	success = true
	return nil
}

func buildResolver(cfg *config.Config, source sorting.CellSource, metrics *observability.Metrics) *sorting.Resolver {
	var opts []sorting.Option
	if cfg.Server.SortCacheEnabled {
		opts = append(opts, sorting.WithCache())
		if metrics != nil {
			opts = append(opts, sorting.WithCacheMetrics(metrics.SortCacheHit, metrics.SortCacheMiss))
		}
	}
	return sorting.NewResolver(source, opts...)
}

func buildEngine(st *store.Store, resolver *sorting.Resolver, metrics *observability.Metrics) *grid.Engine {
	var opts []grid.EngineOption
	if metrics != nil {
		opts = append(opts, grid.WithMetrics(metrics))
	}
	return grid.NewEngine(st, resolver, opts...)
}

var _ httpapi.Grid = (*grid.Engine)(nil)
