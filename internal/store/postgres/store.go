package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/goran-ethernal/PoolSync/internal/db"
	"github.com/goran-ethernal/PoolSync/internal/logger"
	"github.com/goran-ethernal/PoolSync/internal/migrations"
	"github.com/goran-ethernal/PoolSync/pkg/pool"
	"github.com/goran-ethernal/PoolSync/pkg/store"
	"github.com/goran-ethernal/PoolSync/pkg/syncer"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

var _ store.PoolDatabase = (*PoolStore)(nil)

const driverName = "postgres"

const upsertPoolSQL = `
INSERT INTO pools (chain, address, pool_type, token0, token1, block_number, last_updated_block, state, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
ON CONFLICT (chain, address) DO UPDATE SET
	token0 = EXCLUDED.token0,
	token1 = EXCLUDED.token1,
	block_number = EXCLUDED.block_number,
	last_updated_block = EXCLUDED.last_updated_block,
	state = EXCLUDED.state,
	updated_at = now()
WHERE pools.pool_type = EXCLUDED.pool_type`

const upsertWatermarkSQL = `
INSERT INTO sync_state (chain, pool_type, last_processed_block, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (chain, pool_type) DO UPDATE SET
	last_processed_block = EXCLUDED.last_processed_block,
	updated_at = now()
WHERE sync_state.last_processed_block <= EXCLUDED.last_processed_block`

const selectPoolSQL = `
SELECT address, pool_type, token0, token1, block_number, last_updated_block, state
FROM pools`

const selectRunSQL = `
SELECT id::text, chain, status, started_at, finished_at, head_block, pool_count, new_pools, gaps, error
FROM sync_runs`

// PoolStore is a Postgres backed store.PoolDatabase.
type PoolStore struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// New connects to dsn and applies migrations.
func New(ctx context.Context, dsn string, log *logger.Logger) (*PoolStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	pgPool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := pgPool.Ping(ctx); err != nil {
		pgPool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pgPool)
	err = migrations.RunPostgres(log, sqlDB)
	sqlDB.Close()
	if err != nil {
		pgPool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PoolStore{pool: pgPool, log: log}, nil
}

func scanPool(row pgx.Row) (*pool.Pool, error) {
	var (
		address, poolType, token0, token1 string
		blockNumber, lastUpdated          int64
		state                             []byte
	)
	if err := row.Scan(&address, &poolType, &token0, &token1, &blockNumber, &lastUpdated, &state); err != nil {
		return nil, err
	}

	p := &pool.Pool{
		Address:          common.HexToAddress(address),
		Type:             pool.PoolType(poolType),
		Token0:           common.HexToAddress(token0),
		Token1:           common.HexToAddress(token1),
		BlockNumber:      uint64(blockNumber),
		LastUpdatedBlock: uint64(lastUpdated),
	}
	if err := p.DecodeState(state); err != nil {
		return nil, fmt.Errorf("failed to decode pool %s: %w", address, err)
	}

	return p, nil
}

func (s *PoolStore) LoadPools(ctx context.Context, chain pool.Chain, types []pool.PoolType) ([]*pool.Pool, error) {
	defer db.StoreOperation(driverName, "load_pools")()

	query := selectPoolSQL + ` WHERE chain = $1`
	args := []any{chain.String()}
	if len(types) > 0 {
		names := make([]string, 0, len(types))
		for _, t := range types {
			names = append(names, t.String())
		}
		query += ` AND pool_type = ANY($2)`
		args = append(args, names)
	}
	query += ` ORDER BY address`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pools: %w", err)
	}
	defer rows.Close()

	var pools []*pool.Pool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		pools = append(pools, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load pools: %w", err)
	}

	s.log.Debugf("loaded %d pools of chain %s", len(pools), chain)

	return pools, nil
}

func (s *PoolStore) SavePools(ctx context.Context, chain pool.Chain, pools []*pool.Pool) error {
	if len(pools) == 0 {
		return nil
	}

	defer db.StoreOperation(driverName, "save_pools")()

	batch := &pgx.Batch{}
	for _, p := range pools {
		if err := p.Validate(); err != nil {
			return err
		}

		state, err := p.EncodeState()
		if err != nil {
			return fmt.Errorf("failed to encode pool %s: %w", p.Address.Hex(), err)
		}

		batch.Queue(upsertPoolSQL,
			chain.String(), p.Address.Hex(), p.Type.String(),
			p.Token0.Hex(), p.Token1.Hex(),
			int64(p.BlockNumber), int64(p.LastUpdatedBlock),
			string(state),
		)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		defer br.Close()

		for _, p := range pools {
			tag, err := br.Exec()
			if err != nil {
				return fmt.Errorf("failed to upsert pool %s: %w", p.Address.Hex(), err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("pool %s (%s): %w", p.Address.Hex(), p.Type, store.ErrPoolTypeConflict)
			}
		}

		return br.Close()
	})
}

func (s *PoolStore) GetPool(ctx context.Context, chain pool.Chain, address common.Address) (*pool.Pool, error) {
	defer db.StoreOperation(driverName, "get_pool")()

	p, err := scanPool(s.pool.QueryRow(ctx,
		selectPoolSQL+` WHERE chain = $1 AND address = $2`, chain.String(), address.Hex()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("pool %s: %w", address.Hex(), store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}

	return p, nil
}

func (s *PoolStore) CountPools(ctx context.Context, chain pool.Chain) (map[pool.PoolType]int, error) {
	defer db.StoreOperation(driverName, "count_pools")()

	rows, err := s.pool.Query(ctx,
		`SELECT pool_type, COUNT(*) FROM pools WHERE chain = $1 GROUP BY pool_type`, chain.String())
	if err != nil {
		return nil, fmt.Errorf("failed to count pools: %w", err)
	}
	defer rows.Close()

	counts := make(map[pool.PoolType]int)
	for rows.Next() {
		var (
			poolType string
			count    int64
		)
		if err := rows.Scan(&poolType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan pool count: %w", err)
		}
		counts[pool.PoolType(poolType)] = int(count)
	}

	return counts, rows.Err()
}

func (s *PoolStore) GetLastProcessedBlock(
	ctx context.Context,
	chain pool.Chain,
	poolType pool.PoolType,
) (uint64, bool, error) {
	defer db.StoreOperation(driverName, "get_watermark")()

	var block int64
	err := s.pool.QueryRow(ctx,
		`SELECT last_processed_block FROM sync_state WHERE chain = $1 AND pool_type = $2`,
		chain.String(), poolType.String(),
	).Scan(&block)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get last processed block: %w", err)
	}

	return uint64(block), true, nil
}

func (s *PoolStore) UpdateLastProcessedBlock(
	ctx context.Context,
	chain pool.Chain,
	poolType pool.PoolType,
	block uint64,
) error {
	defer db.StoreOperation(driverName, "update_watermark")()

	tag, err := s.pool.Exec(ctx, upsertWatermarkSQL, chain.String(), poolType.String(), int64(block))
	if err != nil {
		return fmt.Errorf("failed to update last processed block: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s/%s to %d: %w", chain, poolType, block, store.ErrWatermarkRegression)
	}

	s.log.Debugf("last processed block of %s/%s set to %d", chain, poolType, block)

	return nil
}

func (s *PoolStore) Watermarks(ctx context.Context, chain pool.Chain) (map[pool.PoolType]uint64, error) {
	defer db.StoreOperation(driverName, "watermarks")()

	rows, err := s.pool.Query(ctx,
		`SELECT pool_type, last_processed_block FROM sync_state WHERE chain = $1`, chain.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query watermarks: %w", err)
	}
	defer rows.Close()

	marks := make(map[pool.PoolType]uint64)
	for rows.Next() {
		var (
			poolType string
			block    int64
		)
		if err := rows.Scan(&poolType, &block); err != nil {
			return nil, fmt.Errorf("failed to scan watermark: %w", err)
		}
		marks[pool.PoolType(poolType)] = uint64(block)
	}

	return marks, rows.Err()
}

func (s *PoolStore) RecordGap(ctx context.Context, gap *store.Gap) error {
	defer db.StoreOperation(driverName, "record_gap")()

	if gap.CreatedAt.IsZero() {
		gap.CreatedAt = time.Now().UTC()
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO sync_gaps (chain, pool_type, kind, from_block, to_block, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		gap.Chain.String(), gap.PoolType.String(), string(gap.Kind),
		int64(gap.Range.From), int64(gap.Range.To), gap.Reason, gap.CreatedAt,
	).Scan(&gap.ID)
	if err != nil {
		return fmt.Errorf("failed to record gap: %w", err)
	}

	return nil
}

func (s *PoolStore) UnresolvedGaps(
	ctx context.Context,
	chain pool.Chain,
	poolType pool.PoolType,
	kind syncer.GapKind,
) ([]store.Gap, error) {
	defer db.StoreOperation(driverName, "unresolved_gaps")()

	rows, err := s.pool.Query(ctx, `
		SELECT id, from_block, to_block, reason, created_at
		FROM sync_gaps
		WHERE chain = $1 AND pool_type = $2 AND kind = $3 AND resolved_at IS NULL
		ORDER BY from_block, id`,
		chain.String(), poolType.String(), string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query gaps: %w", err)
	}
	defer rows.Close()

	var gaps []store.Gap
	for rows.Next() {
		var (
			g        = store.Gap{Chain: chain, PoolType: poolType, Kind: kind}
			from, to int64
		)
		if err := rows.Scan(&g.ID, &from, &to, &g.Reason, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan gap: %w", err)
		}
		g.Range = syncer.BlockRange{From: uint64(from), To: uint64(to)}
		g.CreatedAt = g.CreatedAt.UTC()
		gaps = append(gaps, g)
	}

	return gaps, rows.Err()
}

func (s *PoolStore) ResolveGap(ctx context.Context, id int64) error {
	defer db.StoreOperation(driverName, "resolve_gap")()

	tag, err := s.pool.Exec(ctx,
		`UPDATE sync_gaps SET resolved_at = now() WHERE id = $1 AND resolved_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to resolve gap %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("open gap %d: %w", id, store.ErrNotFound)
	}

	return nil
}

func (s *PoolStore) StartRun(ctx context.Context, run *store.SyncRun) error {
	defer db.StoreOperation(driverName, "start_run")()

	id, err := uuid.Parse(run.ID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", run.ID, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO sync_runs (id, chain, status, started_at, finished_at, head_block, pool_count, new_pools, gaps, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, run.Chain.String(), string(run.Status), run.StartedAt, run.FinishedAt,
		int64(run.HeadBlock), run.PoolCount, run.NewPools, run.Gaps, run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to start run %s: %w", run.ID, err)
	}

	return nil
}

func (s *PoolStore) FinishRun(ctx context.Context, run *store.SyncRun) error {
	defer db.StoreOperation(driverName, "finish_run")()

	id, err := uuid.Parse(run.ID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", run.ID, err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE sync_runs
		SET status = $2, finished_at = $3, head_block = $4, pool_count = $5, new_pools = $6, gaps = $7, error = $8
		WHERE id = $1`,
		id, string(run.Status), run.FinishedAt,
		int64(run.HeadBlock), run.PoolCount, run.NewPools, run.Gaps, run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s: %w", run.ID, store.ErrNotFound)
	}

	return nil
}

func (s *PoolStore) LastRun(ctx context.Context, chain pool.Chain) (*store.SyncRun, error) {
	defer db.StoreOperation(driverName, "last_run")()

	var (
		run       store.SyncRun
		chainName string
		status    string
		headBlock int64
	)
	err := s.pool.QueryRow(ctx, selectRunSQL+` WHERE chain = $1 ORDER BY started_at DESC LIMIT 1`, chain.String()).
		Scan(&run.ID, &chainName, &status, &run.StartedAt, &run.FinishedAt,
			&headBlock, &run.PoolCount, &run.NewPools, &run.Gaps, &run.Error)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("last run of %s: %w", chain, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last run: %w", err)
	}

	run.Chain = pool.Chain(chainName)
	run.Status = store.RunStatus(status)
	run.HeadBlock = uint64(headBlock)
	run.StartedAt = run.StartedAt.UTC()
	if run.FinishedAt != nil {
		finished := run.FinishedAt.UTC()
		run.FinishedAt = &finished
	}

	return &run, nil
}

// Close closes the connection pool.
func (s *PoolStore) Close() error {
	s.pool.Close()
	return nil
}
