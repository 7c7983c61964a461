package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/goran-ethernal/PoolSync/internal/common"
	"github.com/goran-ethernal/PoolSync/internal/db"
	"github.com/goran-ethernal/PoolSync/internal/engine"
	"github.com/goran-ethernal/PoolSync/internal/logger"
	"github.com/goran-ethernal/PoolSync/internal/rpc"
	"github.com/goran-ethernal/PoolSync/internal/store/postgres"
	"github.com/goran-ethernal/PoolSync/internal/store/sqlite"
	isyncer "github.com/goran-ethernal/PoolSync/internal/syncer"
	itypes "github.com/goran-ethernal/PoolSync/internal/types"
	pkgconfig "github.com/goran-ethernal/PoolSync/pkg/config"
	"github.com/goran-ethernal/PoolSync/pkg/fetcher"
	"github.com/goran-ethernal/PoolSync/pkg/store"
)

// app holds the wired components of a sync process.
type app struct {
	client      *rpc.Client
	db          store.PoolDatabase
	maintenance db.Maintenance
	engine      *engine.PoolSync
}

func newApp(ctx context.Context, cfg *pkgconfig.Config) (_ *app, err error) {
	chain := cfg.ParsedChain()
	types := cfg.Sync.ParsedPoolTypes()
	log := logger.NewComponentLoggerFromConfig(common.ComponentPoolSync, cfg.Logging)

	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	log.Info("Connecting to Ethereum node...")
	a.client, err = rpc.NewClient(ctx, cfg.RPC.URL,
		rpc.WithRetry(cfg.RPC.Retry),
		rpc.WithRateLimit(cfg.RPC.RateLimit, cfg.RPC.RateBurst),
		rpc.WithLogger(logger.NewComponentLoggerFromConfig(common.ComponentRPC, cfg.Logging)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client: %w", err)
	}

	fetcherLog := logger.NewComponentLoggerFromConfig(common.ComponentPoolFetcher, cfg.Logging)
	overrides := cfg.Sync.ParsedFactoryOverrides()
	fetchers := make([]fetcher.PoolFetcher, 0, len(types))
	for _, t := range types {
		f, err := fetcher.Create(t, fetcherLog)
		if err != nil {
			return nil, err
		}
		if addr, ok := overrides[t]; ok {
			f = fetcher.WithFactoryAddress(f, addr)
		}
		fetchers = append(fetchers, f)
	}

	gaps := engine.NewGapCollector()
	s, err := isyncer.New(isyncer.Config{
		Chain:              chain,
		Finality:           itypes.BlockFinality(cfg.RPC.Finality),
		FinalizedLag:       cfg.RPC.FinalizedLag,
		AddressChunkSize:   cfg.Sync.AddressChunkSize,
		LiquidityChunkSize: cfg.Sync.LiquidityChunkSize,
		InfoBatchSize:      cfg.Sync.InfoBatchSize,
		MaxConcurrency:     cfg.Sync.MaxConcurrency,
		AddressFilterLimit: cfg.Sync.AddressFilterLimit,
	}, a.client, fetchers,
		logger.NewComponentLoggerFromConfig(common.ComponentSyncer, cfg.Logging),
		isyncer.WithGapHandler(gaps.Handle),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create syncer: %w", err)
	}

	a.db, a.maintenance, err = openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a.engine, err = engine.New(engine.Config{Chain: chain, PoolTypes: types}, s, a.db, log,
		engine.WithGapCollector(gaps))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	return a, nil
}

// openStore opens the configured pool database. Only SQLite carries a maintenance coordinator.
func openStore(ctx context.Context, cfg *pkgconfig.Config) (store.PoolDatabase, db.Maintenance, error) {
	log := logger.NewComponentLoggerFromConfig(common.ComponentPoolStore, cfg.Logging)

	switch cfg.Database.Driver {
	case pkgconfig.DriverPostgres:
		s, err := postgres.New(ctx, cfg.Database.DSN, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		return s, db.NoOpMaintenance{}, nil
	default:
		s, err := sqlite.New(cfg.Database, cfg.Maintenance, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		return s, s.Maintenance(), nil
	}
}

func (a *app) Close() error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.client != nil {
		a.client.Close()
	}
	return errors.Join(errs...)
}
