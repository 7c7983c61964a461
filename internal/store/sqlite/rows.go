package sqlite

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/PoolSync/pkg/pool"
	"github.com/goran-ethernal/PoolSync/pkg/store"
	"github.com/goran-ethernal/PoolSync/pkg/syncer"
)

type poolRow struct {
	Chain            string         `meddler:"chain"`
	Address          common.Address `meddler:"address,address"`
	PoolType         string         `meddler:"pool_type"`
	Token0           common.Address `meddler:"token0,address"`
	Token1           common.Address `meddler:"token1,address"`
	BlockNumber      uint64         `meddler:"block_number"`
	LastUpdatedBlock uint64         `meddler:"last_updated_block"`
	State            string         `meddler:"state"`
	UpdatedAt        int64          `meddler:"updated_at"`
}

func (r *poolRow) toPool() (*pool.Pool, error) {
	p := &pool.Pool{
		Address:          r.Address,
		Type:             pool.PoolType(r.PoolType),
		Token0:           r.Token0,
		Token1:           r.Token1,
		BlockNumber:      r.BlockNumber,
		LastUpdatedBlock: r.LastUpdatedBlock,
	}
	if err := p.DecodeState([]byte(r.State)); err != nil {
		return nil, err
	}
	return p, nil
}

type gapRow struct {
	ID         int64  `meddler:"id,pk"`
	Chain      string `meddler:"chain"`
	PoolType   string `meddler:"pool_type"`
	Kind       string `meddler:"kind"`
	FromBlock  uint64 `meddler:"from_block"`
	ToBlock    uint64 `meddler:"to_block"`
	Reason     string `meddler:"reason"`
	CreatedAt  int64  `meddler:"created_at"`
	ResolvedAt int64  `meddler:"resolved_at,zeroisnull"`
}

func newGapRow(g *store.Gap) *gapRow {
	return &gapRow{
		Chain:     g.Chain.String(),
		PoolType:  g.PoolType.String(),
		Kind:      string(g.Kind),
		FromBlock: g.Range.From,
		ToBlock:   g.Range.To,
		Reason:    g.Reason,
		CreatedAt: g.CreatedAt.UnixNano(),
	}
}

func (r *gapRow) toGap() store.Gap {
	g := store.Gap{
		ID:        r.ID,
		Chain:     pool.Chain(r.Chain),
		PoolType:  pool.PoolType(r.PoolType),
		Kind:      syncer.GapKind(r.Kind),
		Range:     syncer.BlockRange{From: r.FromBlock, To: r.ToBlock},
		Reason:    r.Reason,
		CreatedAt: time.Unix(0, r.CreatedAt).UTC(),
	}
	if r.ResolvedAt != 0 {
		resolved := time.Unix(0, r.ResolvedAt).UTC()
		g.ResolvedAt = &resolved
	}
	return g
}

type runRow struct {
	ID         string `meddler:"id"`
	Chain      string `meddler:"chain"`
	Status     string `meddler:"status"`
	StartedAt  int64  `meddler:"started_at"`
	FinishedAt int64  `meddler:"finished_at,zeroisnull"`
	HeadBlock  uint64 `meddler:"head_block"`
	PoolCount  int    `meddler:"pool_count"`
	NewPools   int    `meddler:"new_pools"`
	Gaps       int    `meddler:"gaps"`
	Error      string `meddler:"error"`
}

func newRunRow(run *store.SyncRun) *runRow {
	row := &runRow{
		ID:        run.ID,
		Chain:     run.Chain.String(),
		Status:    string(run.Status),
		StartedAt: run.StartedAt.UnixNano(),
		HeadBlock: run.HeadBlock,
		PoolCount: run.PoolCount,
		NewPools:  run.NewPools,
		Gaps:      run.Gaps,
		Error:     run.Error,
	}
	if run.FinishedAt != nil {
		row.FinishedAt = run.FinishedAt.UnixNano()
	}
	return row
}

func (r *runRow) toRun() *store.SyncRun {
	run := &store.SyncRun{
		ID:        r.ID,
		Chain:     pool.Chain(r.Chain),
		Status:    store.RunStatus(r.Status),
		StartedAt: time.Unix(0, r.StartedAt).UTC(),
		HeadBlock: r.HeadBlock,
		PoolCount: r.PoolCount,
		NewPools:  r.NewPools,
		Gaps:      r.Gaps,
		Error:     r.Error,
	}
	if r.FinishedAt != 0 {
		finished := time.Unix(0, r.FinishedAt).UTC()
		run.FinishedAt = &finished
	}
	return run
}
