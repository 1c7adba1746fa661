package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xkilldash9x/goap-sim/internal/agent"
	"github.com/xkilldash9x/goap-sim/internal/config"
	"github.com/xkilldash9x/goap-sim/internal/engine"
	"github.com/xkilldash9x/goap-sim/internal/observability"
	"github.com/xkilldash9x/goap-sim/internal/store"
)

// runStore is the subset of store.Store the commands use.
type runStore interface {
	engine.Store
	Migrate(ctx context.Context) error
	ListRuns(ctx context.Context, scenario string, limit int) ([]store.RunRecord, error)
	CountEvents(ctx context.Context, runID string) (map[agent.EventType]int, error)
}

// storeProvider creates a run store. Tests inject a mock instead of a live database.
type storeProvider interface {
	// Create returns the store and a cleanup function releasing its resources.
	Create(ctx context.Context, cfg config.Interface) (runStore, func(), error)
}

// defaultStoreProvider connects to PostgreSQL.
type defaultStoreProvider struct{}

// NewStoreProvider creates the production store provider.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

// Create opens a pgx pool from database.url and wraps it in a store.
func (p *defaultStoreProvider) Create(ctx context.Context, cfg config.Interface) (runStore, func(), error) {
	logger := observability.GetLogger()
	if cfg.Database().URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (%s)", config.DatabaseURLEnv)
	}

	pool, err := pgxpool.New(ctx, cfg.Database().URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storeService, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize store service: %w", err)
	}

	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed.")
	}
	return storeService, cleanup, nil
}
