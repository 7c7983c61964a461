package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/PoolSync/internal/db"
	"github.com/goran-ethernal/PoolSync/internal/logger"
	"github.com/goran-ethernal/PoolSync/internal/migrations"
	"github.com/goran-ethernal/PoolSync/pkg/config"
	"github.com/goran-ethernal/PoolSync/pkg/pool"
	"github.com/goran-ethernal/PoolSync/pkg/store"
	"github.com/goran-ethernal/PoolSync/pkg/syncer"
	"github.com/russross/meddler"
)

// Compile-time check to ensure PoolStore implements store.PoolDatabase interface.
var _ store.PoolDatabase = (*PoolStore)(nil)

const driverName = "sqlite"

const upsertPoolSQL = `
INSERT INTO pools (chain, address, pool_type, token0, token1, block_number, last_updated_block, state, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (chain, address) DO UPDATE SET
	token0 = excluded.token0,
	token1 = excluded.token1,
	block_number = excluded.block_number,
	last_updated_block = excluded.last_updated_block,
	state = excluded.state,
	updated_at = excluded.updated_at
WHERE pools.pool_type = excluded.pool_type`

const upsertWatermarkSQL = `
INSERT INTO sync_state (chain, pool_type, last_processed_block, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (chain, pool_type) DO UPDATE SET
	last_processed_block = excluded.last_processed_block,
	updated_at = excluded.updated_at
WHERE sync_state.last_processed_block <= excluded.last_processed_block`

// PoolStore is a SQLite backed store.PoolDatabase.
type PoolStore struct {
	db          *sql.DB
	maintenance db.Maintenance
	log         *logger.Logger
}

// New opens the database, applies migrations and prepares the maintenance coordinator.
// The coordinator is not started; see Maintenance.
func New(cfg config.DatabaseConfig, maintenanceCfg *config.MaintenanceConfig, log *logger.Logger) (*PoolStore, error) {
	sqlDB, err := db.NewSQLiteDBFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	if err := migrations.RunSQLite(log, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PoolStore{
		db:          sqlDB,
		maintenance: db.NewMaintenanceCoordinator(cfg.Path, sqlDB, maintenanceCfg, log),
		log:         log,
	}, nil
}

// Maintenance returns the coordinator guarding this store.
func (s *PoolStore) Maintenance() db.Maintenance {
	return s.maintenance
}

func (s *PoolStore) LoadPools(ctx context.Context, chain pool.Chain, types []pool.PoolType) ([]*pool.Pool, error) {
	defer s.maintenance.AcquireOperationLock()()
	defer db.StoreOperation(driverName, "load_pools")()

	query := `SELECT * FROM pools WHERE chain = ?`
	args := []interface{}{chain.String()}
	if len(types) > 0 {
		query += ` AND pool_type IN (?` + strings.Repeat(", ?", len(types)-1) + `)`
		for _, t := range types {
			args = append(args, t.String())
		}
	}
	query += ` ORDER BY address`

	sqlRows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pools: %w", err)
	}
	defer sqlRows.Close()

	var rows []*poolRow
	if err := meddler.ScanAll(sqlRows, &rows); err != nil {
		return nil, fmt.Errorf("failed to load pools: %w", err)
	}

	pools := make([]*pool.Pool, 0, len(rows))
	for _, row := range rows {
		p, err := row.toPool()
		if err != nil {
			return nil, fmt.Errorf("failed to decode pool %s: %w", row.Address, err)
		}
		pools = append(pools, p)
	}

	s.log.Debugf("loaded %d pools of chain %s", len(pools), chain)

	return pools, nil
}

func (s *PoolStore) SavePools(ctx context.Context, chain pool.Chain, pools []*pool.Pool) error {
	if len(pools) == 0 {
		return nil
	}

	defer s.maintenance.AcquireOperationLock()()
	defer db.StoreOperation(driverName, "save_pools")()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.log.Errorf("failed to rollback pool save: %v", rbErr)
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, upsertPoolSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare pool upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixNano()
	for _, p := range pools {
		if err = p.Validate(); err != nil {
			return err
		}

		var state []byte
		state, err = p.EncodeState()
		if err != nil {
			return fmt.Errorf("failed to encode pool %s: %w", p.Address.Hex(), err)
		}

		var res sql.Result
		res, err = stmt.ExecContext(ctx,
			chain.String(), p.Address.Hex(), p.Type.String(),
			p.Token0.Hex(), p.Token1.Hex(),
			p.BlockNumber, p.LastUpdatedBlock,
			string(state), now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert pool %s: %w", p.Address.Hex(), err)
		}

		var affected int64
		affected, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read upsert result: %w", err)
		}
		if affected == 0 {
			err = fmt.Errorf("pool %s (%s): %w", p.Address.Hex(), p.Type, store.ErrPoolTypeConflict)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pools: %w", err)
	}

	s.log.Debugf("saved %d pools of chain %s", len(pools), chain)

	return nil
}

func (s *PoolStore) GetPool(ctx context.Context, chain pool.Chain, address common.Address) (*pool.Pool, error) {
	defer s.maintenance.AcquireOperationLock()()
	defer db.StoreOperation(driverName, "get_pool")()

	sqlRows, err := s.db.QueryContext(ctx,
		`SELECT * FROM pools WHERE chain = ? AND address = ?`, chain.String(), address.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to query pool: %w", err)
	}
	defer sqlRows.Close()

	var row poolRow
	if err := meddler.ScanRow(sqlRows, &row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("pool %s: %w", address.Hex(), store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan pool: %w", err)
	}

	return row.toPool()
}

func (s *PoolStore) CountPools(ctx context.Context, chain pool.Chain) (map[pool.PoolType]int, error) {
	defer s.maintenance.AcquireOperationLock()()
	defer db.StoreOperation(driverName, "count_pools")()

	rows, err := s.db.QueryContext(ctx,
		`SELECT pool_type, COUNT(*) FROM pools WHERE chain = ? GROUP BY pool_type`, chain.String())
	if err != nil {
		return nil, fmt.Errorf("failed to count pools: %w", err)
	}
	defer rows.Close()

	counts := make(map[pool.PoolType]int)
	for rows.Next() {
		var (
			poolType string
			count    int
		)
		if err := rows.Scan(&poolType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan pool count: %w", err)
		}
		counts[pool.PoolType(poolType)] = count
	}

	return counts, rows.Err()
}

func (s *PoolStore) GetLastProcessedBlock(
	ctx context.Context,
	chain pool.Chain,
	poolType pool.PoolType,
) (uint64, bool, error) {
	defer s.maintenance.AcquireOperationLock()()
	defer db.StoreOperation(driverName, "get_watermark")()

	var block uint64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_processed_block FROM sync_state WHERE chain = ? AND pool_type = ?`,
		chain.String(), poolType.String(),
	).Scan(&block)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get last processed block: %w", err)
	}

	return block, true, nil
}

func (s *PoolStore) UpdateLastProcessedBlock(
	ctx context.Context,
	chain pool.Chain,
	poolType pool.PoolType,
	block uint64,
) error {
	defer s.maintenance.AcquireOperationLock()()
	defer db.StoreOperation(driverName, "update_watermark")()

	res, err := s.db.ExecContext(ctx, upsertWatermarkSQL,
		chain.String(), poolType.String(), block, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to update last processed block: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read watermark update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s/%s to %d: %w", chain, poolType, block, store.ErrWatermarkRegression)
	}

	s.log.Debugf("last processed block of %s/%s set to %d", chain, poolType, block)

	return nil
}

func (s *PoolStore) Watermarks(ctx context.Context, chain pool.Chain) (map[pool.PoolType]uint64, error) {
	defer s.maintenance.AcquireOperationLock()()
	defer db.StoreOperation(driverName, "watermarks")()

	rows, err := s.db.QueryContext(ctx,
		`SELECT pool_type, last_processed_block FROM sync_state WHERE chain = ?`, chain.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query watermarks: %w", err)
	}
	defer rows.Close()

	marks := make(map[pool.PoolType]uint64)
	for rows.Next() {
		var (
			poolType string
			block    uint64
		)
		if err := rows.Scan(&poolType, &block); err != nil {
			return nil, fmt.Errorf("failed to scan watermark: %w", err)
		}
		marks[pool.PoolType(poolType)] = block
	}

	return marks, rows.Err()
}

func (s *PoolStore) RecordGap(ctx context.Context, gap *store.Gap) error {
	defer s.maintenance.AcquireOperationLock()()
	defer db.StoreOperation(driverName, "record_gap")()

	if gap.CreatedAt.IsZero() {
		gap.CreatedAt = time.Now().UTC()
	}

	row := newGapRow(gap)
	if err := meddler.Insert(s.db, "sync_gaps", row); err != nil {
		return fmt.Errorf("failed to record gap: %w", err)
	}
	gap.ID = row.ID

	return nil
}

func (s *PoolStore) UnresolvedGaps(
	ctx context.Context,
	chain pool.Chain,
	poolType pool.PoolType,
	kind syncer.GapKind,
) ([]store.Gap, error) {
	defer s.maintenance.AcquireOperationLock()()
	defer db.StoreOperation(driverName, "unresolved_gaps")()

	sqlRows, err := s.db.QueryContext(ctx, `
		SELECT * FROM sync_gaps
		WHERE chain = ? AND pool_type = ? AND kind = ? AND resolved_at IS NULL
		ORDER BY from_block, id`,
		chain.String(), poolType.String(), string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query gaps: %w", err)
	}
	defer sqlRows.Close()

	var rows []*gapRow
	if err := meddler.ScanAll(sqlRows, &rows); err != nil {
		return nil, fmt.Errorf("failed to scan gaps: %w", err)
	}

	gaps := make([]store.Gap, 0, len(rows))
	for _, row := range rows {
		gaps = append(gaps, row.toGap())
	}

	return gaps, nil
}

func (s *PoolStore) ResolveGap(ctx context.Context, id int64) error {
	defer s.maintenance.AcquireOperationLock()()
	defer db.StoreOperation(driverName, "resolve_gap")()

	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_gaps SET resolved_at = ? WHERE id = ? AND resolved_at IS NULL`,
		time.Now().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("failed to resolve gap %d: %w", id, err)
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("open gap %d: %w", id, store.ErrNotFound)
	}

	return nil
}

func (s *PoolStore) StartRun(ctx context.Context, run *store.SyncRun) error {
	defer s.maintenance.AcquireOperationLock()()
	defer db.StoreOperation(driverName, "start_run")()

	if err := meddler.Insert(s.db, "sync_runs", newRunRow(run)); err != nil {
		return fmt.Errorf("failed to start run %s: %w", run.ID, err)
	}

	return nil
}

func (s *PoolStore) FinishRun(ctx context.Context, run *store.SyncRun) error {
	defer s.maintenance.AcquireOperationLock()()
	defer db.StoreOperation(driverName, "finish_run")()

	row := newRunRow(run)
	res, err := s.db.ExecContext(ctx, `
		UPDATE sync_runs
		SET status = ?, finished_at = ?, head_block = ?, pool_count = ?, new_pools = ?, gaps = ?, error = ?
		WHERE id = ?`,
		row.Status, row.FinishedAt, row.HeadBlock, row.PoolCount, row.NewPools, row.Gaps, row.Error, row.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, err)
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("run %s: %w", run.ID, store.ErrNotFound)
	}

	return nil
}

func (s *PoolStore) LastRun(ctx context.Context, chain pool.Chain) (*store.SyncRun, error) {
	defer s.maintenance.AcquireOperationLock()()
	defer db.StoreOperation(driverName, "last_run")()

	sqlRows, err := s.db.QueryContext(ctx,
		`SELECT * FROM sync_runs WHERE chain = ? ORDER BY started_at DESC LIMIT 1`, chain.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer sqlRows.Close()

	var row runRow
	if err := meddler.ScanRow(sqlRows, &row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("last run of %s: %w", chain, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	return row.toRun(), nil
}

// Close stops maintenance and closes the database.
func (s *PoolStore) Close() error {
	return errors.Join(s.maintenance.Stop(), s.db.Close())
}
