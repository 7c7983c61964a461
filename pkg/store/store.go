package store

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/PoolSync/pkg/pool"
	"github.com/goran-ethernal/PoolSync/pkg/syncer"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPoolTypeConflict is returned when an address is already stored under another pool type.
	ErrPoolTypeConflict = errors.New("pool address already stored under a different pool type")
	// ErrWatermarkRegression is returned when a watermark update would move it backwards.
	ErrWatermarkRegression = errors.New("last processed block cannot move backwards")
)

// Gap is a persisted range of dropped data.
type Gap struct {
	ID         int64             `json:"id"`
	Chain      pool.Chain        `json:"chain"`
	PoolType   pool.PoolType     `json:"pool_type"`
	Kind       syncer.GapKind    `json:"kind"`
	Range      syncer.BlockRange `json:"range"`
	Reason     string            `json:"reason"`
	CreatedAt  time.Time         `json:"created_at"`
	ResolvedAt *time.Time        `json:"resolved_at,omitempty"`
}

// RunStatus is the lifecycle state of a SyncRun.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// SyncRun records one SyncPools invocation.
type SyncRun struct {
	ID         string     `json:"id"`
	Chain      pool.Chain `json:"chain"`
	Status     RunStatus  `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	HeadBlock  uint64     `json:"head_block"`
	PoolCount  int        `json:"pool_count"`
	NewPools   int        `json:"new_pools"`
	Gaps       int        `json:"gaps"`
	Error      string     `json:"error,omitempty"`
}

// PoolDatabase persists pools, per pool type watermarks, gaps and sync runs.
type PoolDatabase interface {
	// LoadPools returns the stored pools of chain with one of types. Empty types loads all.
	LoadPools(ctx context.Context, chain pool.Chain, types []pool.PoolType) ([]*pool.Pool, error)

	// SavePools upserts pools by (chain, address) in one transaction. It never deletes.
	SavePools(ctx context.Context, chain pool.Chain, pools []*pool.Pool) error

	// GetPool returns a single stored pool or ErrNotFound.
	GetPool(ctx context.Context, chain pool.Chain, address common.Address) (*pool.Pool, error)

	// CountPools returns the number of stored pools per type.
	CountPools(ctx context.Context, chain pool.Chain) (map[pool.PoolType]int, error)

	// GetLastProcessedBlock returns the watermark of a pool type and whether one is stored.
	GetLastProcessedBlock(ctx context.Context, chain pool.Chain, poolType pool.PoolType) (uint64, bool, error)

	// UpdateLastProcessedBlock durably stores the watermark. Lower values are rejected.
	UpdateLastProcessedBlock(ctx context.Context, chain pool.Chain, poolType pool.PoolType, block uint64) error

	// Watermarks returns every stored watermark of chain.
	Watermarks(ctx context.Context, chain pool.Chain) (map[pool.PoolType]uint64, error)

	// RecordGap stores a gap and sets its ID.
	RecordGap(ctx context.Context, gap *Gap) error

	// UnresolvedGaps returns open gaps of a pool type and kind ordered by range start.
	UnresolvedGaps(ctx context.Context, chain pool.Chain, poolType pool.PoolType, kind syncer.GapKind) ([]Gap, error)

	// ResolveGap marks a gap as resolved.
	ResolveGap(ctx context.Context, id int64) error

	// StartRun stores a new run.
	StartRun(ctx context.Context, run *SyncRun) error

	// FinishRun stores the final state of a run.
	FinishRun(ctx context.Context, run *SyncRun) error

	// LastRun returns the most recently started run of chain or ErrNotFound.
	LastRun(ctx context.Context, chain pool.Chain) (*SyncRun, error)

	// Close releases the underlying connections.
	Close() error
}
