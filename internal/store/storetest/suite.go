// Package storetest holds behaviour tests shared by every store.PoolDatabase backend.
package storetest

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/PoolSync/pkg/pool"
	"github.com/goran-ethernal/PoolSync/pkg/store"
	"github.com/goran-ethernal/PoolSync/pkg/syncer"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty database. The suite closes it.
type Factory func(t *testing.T) store.PoolDatabase

var (
	addr1 = common.HexToAddress("0x1000000000000000000000000000000000000001")
	addr2 = common.HexToAddress("0x1000000000000000000000000000000000000002")
	addr3 = common.HexToAddress("0x1000000000000000000000000000000000000003")
	tokA  = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	tokB  = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
)

func newOpened(t *testing.T, newDB Factory) store.PoolDatabase {
	t.Helper()

	db := newDB(t)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	return db
}

func v2Pool(addr common.Address, t pool.PoolType, r0, r1 int64) *pool.Pool {
	p := pool.NewV2(addr, t, tokA, tokB)
	p.V2.Reserve0 = big.NewInt(r0)
	p.V2.Reserve1 = big.NewInt(r1)
	p.V2.FeeBps = 30
	p.BlockNumber = 100
	return p
}

// Run executes the suite against the backend built by newDB.
func Run(t *testing.T, newDB Factory) {
	t.Run("SaveAndLoadPools", func(t *testing.T) { testSaveAndLoad(t, newDB) })
	t.Run("UpsertOverwritesState", func(t *testing.T) { testUpsert(t, newDB) })
	t.Run("PoolTypeConflict", func(t *testing.T) { testPoolTypeConflict(t, newDB) })
	t.Run("GetPool", func(t *testing.T) { testGetPool(t, newDB) })
	t.Run("Watermarks", func(t *testing.T) { testWatermarks(t, newDB) })
	t.Run("Gaps", func(t *testing.T) { testGaps(t, newDB) })
	t.Run("Runs", func(t *testing.T) { testRuns(t, newDB) })
}

func testSaveAndLoad(t *testing.T, newDB Factory) {
	ctx := context.Background()
	db := newOpened(t, newDB)

	v3 := pool.NewV3(addr2, pool.UniswapV3, tokA, tokB, 500, 10)
	v3.V3.SqrtPriceX96 = new(big.Int).Lsh(big.NewInt(1), 96)
	v3.V3.Liquidity = big.NewInt(1_000_000)
	v3.V3.Tick = -5
	v3.V3.Ticks[-10] = pool.TickInfo{LiquidityGross: big.NewInt(7), LiquidityNet: big.NewInt(7)}
	v3.V3.Ticks[20] = pool.TickInfo{LiquidityGross: big.NewInt(7), LiquidityNet: big.NewInt(-7)}
	v3.LastUpdatedBlock = 120

	bal := &pool.Pool{
		Address: addr3,
		Type:    pool.BalancerV2Weighted,
		Token0:  tokA,
		Token1:  tokB,
		Balancer: &pool.BalancerState{
			PoolID:   common.HexToHash("0x01"),
			Tokens:   []common.Address{tokA, tokB},
			Balances: []*big.Int{big.NewInt(10), big.NewInt(20)},
			Weights:  []*big.Int{big.NewInt(5e17), big.NewInt(5e17)},
		},
	}

	require.NoError(t, db.SavePools(ctx, pool.Ethereum, []*pool.Pool{v2Pool(addr1, pool.UniswapV2, 1, 2), v3, bal}))
	require.NoError(t, db.SavePools(ctx, pool.Base, []*pool.Pool{v2Pool(addr1, pool.SushiSwapV2, 3, 4)}))

	all, err := db.LoadPools(ctx, pool.Ethereum, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, addr1, all[0].Address)
	require.Equal(t, 0, all[0].V2.Reserve1.Cmp(big.NewInt(2)))
	require.Equal(t, uint32(30), all[0].V2.FeeBps)

	got := all[1]
	require.Equal(t, pool.UniswapV3, got.Type)
	require.Equal(t, uint64(120), got.LastUpdatedBlock)
	require.Equal(t, int32(-5), got.V3.Tick)
	require.Len(t, got.V3.Ticks, 2)
	require.Equal(t, 0, got.V3.Ticks[20].LiquidityNet.Cmp(big.NewInt(-7)))
	require.Equal(t, 0, got.V3.SqrtPriceX96.Cmp(v3.V3.SqrtPriceX96))

	require.NotNil(t, all[2].Balancer)
	require.Equal(t, []common.Address{tokA, tokB}, all[2].Balancer.Tokens)

	v3Only, err := db.LoadPools(ctx, pool.Ethereum, []pool.PoolType{pool.UniswapV3, pool.SushiSwapV3})
	require.NoError(t, err)
	require.Len(t, v3Only, 1)

	base, err := db.LoadPools(ctx, pool.Base, nil)
	require.NoError(t, err)
	require.Len(t, base, 1)
	require.Equal(t, pool.SushiSwapV2, base[0].Type)

	counts, err := db.CountPools(ctx, pool.Ethereum)
	require.NoError(t, err)
	require.Equal(t, map[pool.PoolType]int{
		pool.UniswapV2:          1,
		pool.UniswapV3:          1,
		pool.BalancerV2Weighted: 1,
	}, counts)

	require.NoError(t, db.SavePools(ctx, pool.Ethereum, nil))
}

func testUpsert(t *testing.T, newDB Factory) {
	ctx := context.Background()
	db := newOpened(t, newDB)

	require.NoError(t, db.SavePools(ctx, pool.Ethereum, []*pool.Pool{v2Pool(addr1, pool.UniswapV2, 1, 2)}))

	updated := v2Pool(addr1, pool.UniswapV2, 50, 60)
	updated.LastUpdatedBlock = 140
	require.NoError(t, db.SavePools(ctx, pool.Ethereum, []*pool.Pool{updated}))

	pools, err := db.LoadPools(ctx, pool.Ethereum, nil)
	require.NoError(t, err)
	require.Len(t, pools, 1)
	require.Equal(t, 0, pools[0].V2.Reserve0.Cmp(big.NewInt(50)))
	require.Equal(t, uint64(140), pools[0].LastUpdatedBlock)
}

func testPoolTypeConflict(t *testing.T, newDB Factory) {
	ctx := context.Background()
	db := newOpened(t, newDB)

	require.NoError(t, db.SavePools(ctx, pool.Ethereum, []*pool.Pool{v2Pool(addr1, pool.UniswapV2, 1, 2)}))

	err := db.SavePools(ctx, pool.Ethereum, []*pool.Pool{
		v2Pool(addr2, pool.UniswapV2, 5, 5),
		v2Pool(addr1, pool.SushiSwapV2, 9, 9),
	})
	require.ErrorIs(t, err, store.ErrPoolTypeConflict)

	// the whole batch is rolled back
	pools, err := db.LoadPools(ctx, pool.Ethereum, nil)
	require.NoError(t, err)
	require.Len(t, pools, 1)
	require.Equal(t, pool.UniswapV2, pools[0].Type)
	require.Equal(t, 0, pools[0].V2.Reserve0.Cmp(big.NewInt(1)))
}

func testGetPool(t *testing.T, newDB Factory) {
	ctx := context.Background()
	db := newOpened(t, newDB)

	require.NoError(t, db.SavePools(ctx, pool.Ethereum, []*pool.Pool{v2Pool(addr1, pool.UniswapV2, 1, 2)}))

	p, err := db.GetPool(ctx, pool.Ethereum, addr1)
	require.NoError(t, err)
	require.Equal(t, tokA, p.Token0)

	_, err = db.GetPool(ctx, pool.Ethereum, addr2)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = db.GetPool(ctx, pool.Base, addr1)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testWatermarks(t *testing.T, newDB Factory) {
	ctx := context.Background()
	db := newOpened(t, newDB)

	_, ok, err := db.GetLastProcessedBlock(ctx, pool.Ethereum, pool.UniswapV2)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, db.UpdateLastProcessedBlock(ctx, pool.Ethereum, pool.UniswapV2, 100))
	require.NoError(t, db.UpdateLastProcessedBlock(ctx, pool.Ethereum, pool.UniswapV2, 100))
	require.NoError(t, db.UpdateLastProcessedBlock(ctx, pool.Ethereum, pool.UniswapV3, 80))

	err = db.UpdateLastProcessedBlock(ctx, pool.Ethereum, pool.UniswapV2, 99)
	require.ErrorIs(t, err, store.ErrWatermarkRegression)

	block, ok, err := db.GetLastProcessedBlock(ctx, pool.Ethereum, pool.UniswapV2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(100), block)

	marks, err := db.Watermarks(ctx, pool.Ethereum)
	require.NoError(t, err)
	require.Equal(t, map[pool.PoolType]uint64{pool.UniswapV2: 100, pool.UniswapV3: 80}, marks)

	marks, err = db.Watermarks(ctx, pool.Base)
	require.NoError(t, err)
	require.Empty(t, marks)
}

func testGaps(t *testing.T, newDB Factory) {
	ctx := context.Background()
	db := newOpened(t, newDB)

	late := &store.Gap{
		Chain:    pool.Ethereum,
		PoolType: pool.UniswapV2,
		Kind:     syncer.GapDiscovery,
		Range:    syncer.BlockRange{From: 50, To: 59},
		Reason:   "timeout",
	}
	early := &store.Gap{
		Chain:    pool.Ethereum,
		PoolType: pool.UniswapV2,
		Kind:     syncer.GapDiscovery,
		Range:    syncer.BlockRange{From: 10, To: 19},
	}
	other := &store.Gap{
		Chain:    pool.Ethereum,
		PoolType: pool.UniswapV2,
		Kind:     syncer.GapLiquidity,
		Range:    syncer.BlockRange{From: 0, To: 9},
	}

	for _, g := range []*store.Gap{late, early, other} {
		require.NoError(t, db.RecordGap(ctx, g))
		require.NotZero(t, g.ID)
		require.False(t, g.CreatedAt.IsZero())
	}

	gaps, err := db.UnresolvedGaps(ctx, pool.Ethereum, pool.UniswapV2, syncer.GapDiscovery)
	require.NoError(t, err)
	require.Len(t, gaps, 2)
	require.Equal(t, early.ID, gaps[0].ID)
	require.Equal(t, syncer.BlockRange{From: 50, To: 59}, gaps[1].Range)
	require.Equal(t, "timeout", gaps[1].Reason)
	require.Nil(t, gaps[1].ResolvedAt)

	require.NoError(t, db.ResolveGap(ctx, early.ID))
	require.ErrorIs(t, db.ResolveGap(ctx, early.ID), store.ErrNotFound)

	gaps, err = db.UnresolvedGaps(ctx, pool.Ethereum, pool.UniswapV2, syncer.GapDiscovery)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	require.Equal(t, late.ID, gaps[0].ID)

	gaps, err = db.UnresolvedGaps(ctx, pool.Ethereum, pool.UniswapV3, syncer.GapDiscovery)
	require.NoError(t, err)
	require.Empty(t, gaps)
}

func testRuns(t *testing.T, newDB Factory) {
	ctx := context.Background()
	db := newOpened(t, newDB)

	_, err := db.LastRun(ctx, pool.Ethereum)
	require.ErrorIs(t, err, store.ErrNotFound)

	started := time.Now().UTC().Add(-time.Minute).Truncate(time.Microsecond)
	first := &store.SyncRun{
		ID:        "5f0c7f1e-2d7a-4c55-9a0e-1b7b7c9d0001",
		Chain:     pool.Ethereum,
		Status:    store.RunRunning,
		StartedAt: started,
	}
	second := &store.SyncRun{
		ID:        "5f0c7f1e-2d7a-4c55-9a0e-1b7b7c9d0002",
		Chain:     pool.Ethereum,
		Status:    store.RunRunning,
		StartedAt: started.Add(time.Second),
	}
	require.NoError(t, db.StartRun(ctx, first))
	require.NoError(t, db.StartRun(ctx, second))

	last, err := db.LastRun(ctx, pool.Ethereum)
	require.NoError(t, err)
	require.Equal(t, second.ID, last.ID)
	require.Equal(t, store.RunRunning, last.Status)
	require.Nil(t, last.FinishedAt)

	finished := started.Add(2 * time.Second)
	second.Status = store.RunFailed
	second.FinishedAt = &finished
	second.HeadBlock = 100
	second.PoolCount = 4
	second.NewPools = 3
	second.Gaps = 1
	second.Error = "provider unavailable"
	require.NoError(t, db.FinishRun(ctx, second))

	last, err = db.LastRun(ctx, pool.Ethereum)
	require.NoError(t, err)
	require.Equal(t, store.RunFailed, last.Status)
	require.NotNil(t, last.FinishedAt)
	require.True(t, finished.Equal(*last.FinishedAt))
	require.Equal(t, uint64(100), last.HeadBlock)
	require.Equal(t, 3, last.NewPools)
	require.Equal(t, "provider unavailable", last.Error)

	missing := &store.SyncRun{ID: "5f0c7f1e-2d7a-4c55-9a0e-1b7b7c9d0003", Chain: pool.Ethereum}
	require.ErrorIs(t, db.FinishRun(ctx, missing), store.ErrNotFound)
}
