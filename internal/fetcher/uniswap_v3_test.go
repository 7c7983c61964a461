package fetcher

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	rpcmocks "github.com/goran-ethernal/PoolSync/internal/rpc/mocks"
	"github.com/goran-ethernal/PoolSync/pkg/pool"
	"github.com/goran-ethernal/PoolSync/pkg/rpc"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var v3PoolAddr = common.HexToAddress("0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640")

func mintLog(t *testing.T, block uint64, lower, upper int64, amount int64) types.Log {
	t.Helper()

	event := v3ABI.Events["Mint"]
	return types.Log{
		Address: v3PoolAddr,
		Topics: []common.Hash{
			event.ID,
			common.BytesToHash(tokenA.Bytes()),
			tickTopic(lower),
			tickTopic(upper),
		},
		Data:        eventData(t, event, tokenA, big.NewInt(amount), big.NewInt(1), big.NewInt(1)),
		BlockNumber: block,
	}
}

func burnLog(t *testing.T, block uint64, lower, upper int64, amount int64) types.Log {
	t.Helper()

	event := v3ABI.Events["Burn"]
	return types.Log{
		Address: v3PoolAddr,
		Topics: []common.Hash{
			event.ID,
			common.BytesToHash(tokenA.Bytes()),
			tickTopic(lower),
			tickTopic(upper),
		},
		Data:        eventData(t, event, big.NewInt(amount), big.NewInt(1), big.NewInt(1)),
		BlockNumber: block,
	}
}

func swapLog(t *testing.T, f *V3Fetcher, block uint64, sqrtPrice, liquidity, tick int64) types.Log {
	t.Helper()

	values := []interface{}{
		big.NewInt(-5), big.NewInt(5), big.NewInt(sqrtPrice), big.NewInt(liquidity), big.NewInt(tick),
	}
	if len(f.swap.Inputs.NonIndexed()) > len(values) {
		values = append(values, big.NewInt(0), big.NewInt(0))
	}

	return types.Log{
		Address:     v3PoolAddr,
		Topics:      []common.Hash{f.swap.ID, common.BytesToHash(tokenA.Bytes()), common.BytesToHash(tokenB.Bytes())},
		Data:        eventData(t, f.swap, values...),
		BlockNumber: block,
	}
}

func TestV3Fetcher_LogToAddress(t *testing.T) {
	f := NewV3Fetcher(pool.UniswapV3, uniswapV3Factories, false, testLogger(t))

	log := types.Log{
		Topics: []common.Hash{
			f.CreationEvent(),
			common.BytesToHash(tokenA.Bytes()),
			common.BytesToHash(tokenB.Bytes()),
			common.BigToHash(big.NewInt(500)),
		},
		Data: eventData(t, v3ABI.Events["PoolCreated"], big.NewInt(10), v3PoolAddr),
	}

	addr, err := f.LogToAddress(log)
	require.NoError(t, err)
	require.Equal(t, v3PoolAddr, addr)

	log.Topics = log.Topics[:3]
	_, err = f.LogToAddress(log)
	require.ErrorIs(t, err, ErrUnexpectedLog)
}

func TestV3Fetcher_BuildPools(t *testing.T) {
	ctx := context.Background()
	f := NewV3Fetcher(pool.UniswapV3, uniswapV3Factories, false, testLogger(t))

	sqrtPrice, ok := new(big.Int).SetString("79228162514264337593543950336", 10)
	require.True(t, ok)

	slot0 := output(t, v3ABI, "slot0", sqrtPrice, big.NewInt(-201))
	// real pools return more slot0 fields than the two decoded ones
	slot0.Data = append(slot0.Data, make([]byte, 5*32)...)

	mockRPC := rpcmocks.NewEthClient(t)
	mockRPC.EXPECT().BatchCallContract(ctx, mock.Anything, uint64(200)).
		Return([]rpc.CallResult{
			output(t, v3ABI, "token0", tokenA),
			output(t, v3ABI, "token1", tokenB),
			output(t, v3ABI, "fee", big.NewInt(500)),
			output(t, v3ABI, "tickSpacing", big.NewInt(10)),
			slot0,
			output(t, v3ABI, "liquidity", big.NewInt(123_456)),
		}, nil).Once()

	pools, err := f.BuildPools(ctx, mockRPC, []common.Address{v3PoolAddr}, 200)
	require.NoError(t, err)
	require.Len(t, pools, 1)

	p := pools[0]
	require.NoError(t, p.Validate())
	require.Equal(t, uint64(200), p.BlockNumber)
	require.Equal(t, uint32(500), p.V3.Fee)
	require.Equal(t, int32(10), p.V3.TickSpacing)
	require.Equal(t, int32(-201), p.V3.Tick)
	require.Equal(t, "79228162514264337593543950336", p.V3.SqrtPriceX96.String())
	require.Equal(t, int64(123_456), p.V3.Liquidity.Int64())
	require.Empty(t, p.V3.Ticks)
}

func TestV3Fetcher_ApplyLog(t *testing.T) {
	f := NewV3Fetcher(pool.UniswapV3, uniswapV3Factories, false, testLogger(t))

	newPool := func() *pool.Pool {
		p := pool.NewV3(v3PoolAddr, pool.UniswapV3, tokenA, tokenB, 3000, 60)
		p.BlockNumber = 100
		p.V3.Liquidity = big.NewInt(1_000)
		p.V3.SqrtPriceX96 = big.NewInt(42)
		return p
	}

	t.Run("initial mint only updates ticks", func(t *testing.T) {
		p := newPool()

		require.NoError(t, f.ApplyLog(p, mintLog(t, 50, -60, 60, 500), true))
		require.Equal(t, int64(1_000), p.V3.Liquidity.Int64())
		require.Equal(t, int64(500), p.V3.Ticks[-60].LiquidityGross.Int64())
		require.Equal(t, int64(500), p.V3.Ticks[-60].LiquidityNet.Int64())
		require.Equal(t, int64(500), p.V3.Ticks[60].LiquidityGross.Int64())
		require.Equal(t, int64(-500), p.V3.Ticks[60].LiquidityNet.Int64())
	})

	t.Run("logs up to the snapshot block do not move active liquidity", func(t *testing.T) {
		p := newPool()

		require.NoError(t, f.ApplyLog(p, mintLog(t, 100, -60, 60, 500), false))
		require.Equal(t, int64(1_000), p.V3.Liquidity.Int64())
		require.Len(t, p.V3.Ticks, 2)

		require.NoError(t, f.ApplyLog(p, swapLog(t, f, 100, 7, 7, 7), false))
		require.Equal(t, int64(42), p.V3.SqrtPriceX96.Int64())
	})

	t.Run("live mint and burn in range", func(t *testing.T) {
		p := newPool()

		require.NoError(t, f.ApplyLog(p, mintLog(t, 101, -60, 60, 500), false))
		require.Equal(t, int64(1_500), p.V3.Liquidity.Int64())

		// out of range position leaves active liquidity alone
		require.NoError(t, f.ApplyLog(p, mintLog(t, 101, 120, 180, 300), false))
		require.Equal(t, int64(1_500), p.V3.Liquidity.Int64())

		require.NoError(t, f.ApplyLog(p, burnLog(t, 102, -60, 60, 200), false))
		require.Equal(t, int64(1_300), p.V3.Liquidity.Int64())
		require.Equal(t, int64(300), p.V3.Ticks[-60].LiquidityGross.Int64())
		require.Equal(t, int64(-300), p.V3.Ticks[60].LiquidityNet.Int64())

		require.NoError(t, f.ApplyLog(p, burnLog(t, 103, -60, 60, 300), false))
		require.Equal(t, int64(1_000), p.V3.Liquidity.Int64())
		require.NotContains(t, p.V3.Ticks, int32(-60))
		require.NotContains(t, p.V3.Ticks, int32(60))
		require.Contains(t, p.V3.Ticks, int32(120))
	})

	t.Run("live swap sets price liquidity and tick", func(t *testing.T) {
		p := newPool()

		require.NoError(t, f.ApplyLog(p, swapLog(t, f, 101, 99, 5_000, -30), false))
		require.Equal(t, int64(99), p.V3.SqrtPriceX96.Int64())
		require.Equal(t, int64(5_000), p.V3.Liquidity.Int64())
		require.Equal(t, int32(-30), p.V3.Tick)

		require.NoError(t, f.ApplyLog(p, swapLog(t, f, 150, 1, 1, 1), true))
		require.Equal(t, int32(-30), p.V3.Tick)
	})

	t.Run("rejects foreign logs", func(t *testing.T) {
		p := newPool()
		pancake := NewV3Fetcher(pool.PancakeSwapV3, pancakeSwapV3Factories, true, testLogger(t))

		require.ErrorIs(t, f.ApplyLog(p, swapLog(t, pancake, 101, 1, 1, 1), false), ErrUnexpectedLog)

		v2 := pool.NewV2(v3PoolAddr, pool.UniswapV2, tokenA, tokenB)
		require.ErrorIs(t, f.ApplyLog(v2, mintLog(t, 101, -60, 60, 1), false), pool.ErrStateMismatch)
	})
}

func TestV3Fetcher_PancakeSwap(t *testing.T) {
	uni := NewV3Fetcher(pool.UniswapV3, uniswapV3Factories, false, testLogger(t))
	pancake := NewV3Fetcher(pool.PancakeSwapV3, pancakeSwapV3Factories, true, testLogger(t))

	require.NotEqual(t, uni.swap.ID, pancake.swap.ID)
	require.Contains(t, pancake.LiquidityTopics(), pancake.swap.ID)
	require.NotContains(t, pancake.LiquidityTopics(), uni.swap.ID)

	p := pool.NewV3(v3PoolAddr, pool.PancakeSwapV3, tokenA, tokenB, 2500, 50)
	require.NoError(t, pancake.ApplyLog(p, swapLog(t, pancake, 1, 11, 22, 33), false))
	require.Equal(t, int64(11), p.V3.SqrtPriceX96.Int64())
	require.Equal(t, int64(22), p.V3.Liquidity.Int64())
	require.Equal(t, int32(33), p.V3.Tick)
}
