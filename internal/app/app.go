// Package app wires configuration into repositories, caches and services for the commands.
package app

import (
	"context"
	"fmt"

	"github.com/andresuchdata/shelfstock/internal/cache"
	"github.com/andresuchdata/shelfstock/internal/config"
	"github.com/andresuchdata/shelfstock/internal/pipeline"
	"github.com/andresuchdata/shelfstock/internal/repository"
	"github.com/andresuchdata/shelfstock/internal/repository/postgres"
	"github.com/andresuchdata/shelfstock/internal/service"
	"github.com/andresuchdata/shelfstock/internal/storage"
	"github.com/rs/zerolog/log"
)

type App struct {
	Config        *config.Config
	DB            *postgres.DB // nil when the database is disabled
	RunStore      pipeline.RunStore
	Storage       storage.ObjectStorage // nil when object storage is disabled
	StockTargets  *service.StockTargetService
	Replenishment *service.ReplenishmentService
}

// New connects the enabled backends. Without a database, runs are kept in memory.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	replenishmentPolicy, err := cfg.Policy.ReplenishmentPolicy()
	if err != nil {
		return nil, err
	}
	stockTargetPolicy := cfg.Policy.StockTargetPolicy()
	if err := stockTargetPolicy.Validate(); err != nil {
		return nil, err
	}

	var (
		stockTargetRepo   repository.StockTargetRepository   = repository.NewMemoryStockTargetRepository()
		replenishmentRepo repository.ReplenishmentRepository = repository.NewMemoryReplenishmentRepository()
	)

	if cfg.Database.Enabled {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.DB = db
		a.RunStore = pipeline.NewRepository(db.DB)
		stockTargetRepo = postgres.NewStockTargetRepository(db)
		replenishmentRepo = postgres.NewReplenishmentRepository(db)
		log.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.DBName).Msg("Database connected")
	}

	summaryCache, err := cache.NewReplenishmentCache(ctx, cfg.Cache)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init replenishment cache: %w", err)
	}

	if cfg.Storage.Enabled {
		store, err := storage.NewMinioClient(ctx, cfg.Storage)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Storage = store
	}

	a.StockTargets = service.NewStockTargetService(stockTargetRepo, stockTargetPolicy)
	a.Replenishment = service.NewReplenishmentService(replenishmentRepo, summaryCache, replenishmentPolicy)
	return a, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
