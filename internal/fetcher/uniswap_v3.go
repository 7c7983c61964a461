package fetcher

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/PoolSync/internal/logger"
	"github.com/goran-ethernal/PoolSync/pkg/fetcher"
	"github.com/goran-ethernal/PoolSync/pkg/pool"
	"github.com/goran-ethernal/PoolSync/pkg/rpc"
)

// Compile-time check to ensure V3Fetcher implements fetcher.PoolFetcher interface.
var _ fetcher.PoolFetcher = (*V3Fetcher)(nil)

func init() {
	fetcher.Register(pool.UniswapV3, func(log *logger.Logger) fetcher.PoolFetcher {
		return NewV3Fetcher(pool.UniswapV3, uniswapV3Factories, false, log)
	})
	fetcher.Register(pool.SushiSwapV3, func(log *logger.Logger) fetcher.PoolFetcher {
		return NewV3Fetcher(pool.SushiSwapV3, sushiSwapV3Factories, false, log)
	})
	fetcher.Register(pool.PancakeSwapV3, func(log *logger.Logger) fetcher.PoolFetcher {
		return NewV3Fetcher(pool.PancakeSwapV3, pancakeSwapV3Factories, true, log)
	})
}

const v3CallsPerPool = 6

// V3Fetcher serves concentrated liquidity pools created through a PoolCreated factory.
type V3Fetcher struct {
	base
	swap abi.Event
}

// NewV3Fetcher creates a fetcher for a V3 family pool type. pancakeSwap selects the
// Swap event layout carrying protocol fees.
func NewV3Fetcher(
	poolType pool.PoolType,
	factories map[pool.Chain]common.Address,
	pancakeSwap bool,
	log *logger.Logger,
) *V3Fetcher {
	loadABIs()

	swap := v3ABI.Events["Swap"]
	if pancakeSwap {
		swap = pancakeV3SwapABI.Events["Swap"]
	}

	return &V3Fetcher{
		base: base{poolType: poolType, factories: factories, log: log},
		swap: swap,
	}
}

func (f *V3Fetcher) CreationEvent() common.Hash {
	return v3ABI.Events["PoolCreated"].ID
}

// LogToAddress reads the pool address from the second data word of PoolCreated.
func (f *V3Fetcher) LogToAddress(log types.Log) (common.Address, error) {
	if len(log.Topics) != 4 || log.Topics[0] != f.CreationEvent() {
		return common.Address{}, fmt.Errorf("%w: not a PoolCreated log", ErrUnexpectedLog)
	}
	if len(log.Data) < 64 {
		return common.Address{}, fmt.Errorf("PoolCreated data too short: %d bytes", len(log.Data))
	}

	return common.BytesToAddress(log.Data[44:64]), nil
}

// BuildPools reads immutables, slot0 and active liquidity of every pool in one batch.
// The tick map is not read from chain; it is rebuilt from Mint and Burn logs.
func (f *V3Fetcher) BuildPools(
	ctx context.Context,
	client rpc.EthClient,
	addrs []common.Address,
	block uint64,
) ([]*pool.Pool, error) {
	calls := make([]ethereum.CallMsg, 0, v3CallsPerPool*len(addrs))
	for _, addr := range addrs {
		calls = append(calls,
			mustPack(v3ABI, addr, "token0"),
			mustPack(v3ABI, addr, "token1"),
			mustPack(v3ABI, addr, "fee"),
			mustPack(v3ABI, addr, "tickSpacing"),
			mustPack(v3ABI, addr, "slot0"),
			mustPack(v3ABI, addr, "liquidity"),
		)
	}

	results, err := client.BatchCallContract(ctx, calls, block)
	if err != nil {
		return nil, fmt.Errorf("batch call %d %s pools: %w", len(addrs), f.poolType, err)
	}
	if len(results) != len(calls) {
		return nil, fmt.Errorf("batch returned %d results for %d calls", len(results), len(calls))
	}

	pools := make([]*pool.Pool, 0, len(addrs))
	for i, addr := range addrs {
		p, err := f.buildPool(addr, results[i*v3CallsPerPool:(i+1)*v3CallsPerPool])
		if err != nil {
			f.log.Debugf("skipping %s pool %s: %v", f.poolType, addr, err)
			continue
		}
		p.BlockNumber = block
		pools = append(pools, p)
	}

	return pools, nil
}

func (f *V3Fetcher) buildPool(addr common.Address, res []rpc.CallResult) (*pool.Pool, error) {
	token0, err := unpackOne[common.Address](v3ABI, "token0", res[0])
	if err != nil {
		return nil, err
	}
	token1, err := unpackOne[common.Address](v3ABI, "token1", res[1])
	if err != nil {
		return nil, err
	}

	feeRaw, err := unpackOne[*big.Int](v3ABI, "fee", res[2])
	if err != nil {
		return nil, err
	}
	fee, err := bigToUint32(feeRaw, "fee")
	if err != nil {
		return nil, err
	}

	spacingRaw, err := unpackOne[*big.Int](v3ABI, "tickSpacing", res[3])
	if err != nil {
		return nil, err
	}
	spacing, err := bigToInt32(spacingRaw, "tickSpacing")
	if err != nil {
		return nil, err
	}

	slot0, err := unpack(v3ABI, "slot0", res[4])
	if err != nil {
		return nil, err
	}
	sqrtPrice, ok := slot0[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("slot0: unexpected sqrtPriceX96 type %T", slot0[0])
	}
	tickRaw, ok := slot0[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("slot0: unexpected tick type %T", slot0[1])
	}
	tick, err := bigToInt32(tickRaw, "tick")
	if err != nil {
		return nil, err
	}

	liquidity, err := unpackOne[*big.Int](v3ABI, "liquidity", res[5])
	if err != nil {
		return nil, err
	}

	p := pool.NewV3(addr, f.poolType, token0, token1, fee, spacing)
	p.V3.SqrtPriceX96 = sqrtPrice
	p.V3.Tick = tick
	p.V3.Liquidity = liquidity

	return p, nil
}

func (f *V3Fetcher) LiquidityTopics() []common.Hash {
	return []common.Hash{
		v3ABI.Events["Mint"].ID,
		v3ABI.Events["Burn"].ID,
		f.swap.ID,
	}
}

// ApplyLog applies Mint, Burn and Swap logs. The tick map is always updated by Mint and Burn.
// Active liquidity and price only move for logs after the block the pool state was read at,
// and never while replaying history for a newly discovered pool.
func (f *V3Fetcher) ApplyLog(p *pool.Pool, log types.Log, isInitial bool) error {
	if p.V3 == nil {
		return fmt.Errorf("pool %s: %w", p.Address, pool.ErrStateMismatch)
	}
	if len(log.Topics) == 0 {
		return fmt.Errorf("%w: log without topics", ErrUnexpectedLog)
	}

	state := p.V3
	if state.Ticks == nil {
		state.Ticks = make(map[int32]pool.TickInfo)
	}
	live := !isInitial && log.BlockNumber > p.BlockNumber

	switch log.Topics[0] {
	case v3ABI.Events["Mint"].ID:
		lower, upper, amount, err := decodePositionChange(v3ABI.Events["Mint"], log, 1)
		if err != nil {
			return err
		}

		updateTick(state, lower, amount, amount)
		updateTick(state, upper, amount, new(big.Int).Neg(amount))
		if live && lower <= state.Tick && state.Tick < upper {
			state.Liquidity = new(big.Int).Add(state.Liquidity, amount)
		}

	case v3ABI.Events["Burn"].ID:
		lower, upper, amount, err := decodePositionChange(v3ABI.Events["Burn"], log, 0)
		if err != nil {
			return err
		}

		negAmount := new(big.Int).Neg(amount)
		updateTick(state, lower, negAmount, negAmount)
		updateTick(state, upper, negAmount, amount)
		if live && lower <= state.Tick && state.Tick < upper {
			state.Liquidity = new(big.Int).Sub(state.Liquidity, amount)
			if state.Liquidity.Sign() < 0 {
				state.Liquidity.SetInt64(0)
			}
		}

	case f.swap.ID:
		if !live {
			return nil
		}

		values, err := f.swap.Inputs.NonIndexed().Unpack(log.Data)
		if err != nil {
			return fmt.Errorf("unpack Swap: %w", err)
		}
		sqrtPrice, ok1 := values[2].(*big.Int)
		liquidity, ok2 := values[3].(*big.Int)
		tickRaw, ok3 := values[4].(*big.Int)
		if !ok1 || !ok2 || !ok3 {
			return fmt.Errorf("swap log: unexpected value types %T, %T, %T", values[2], values[3], values[4])
		}
		tick, err := bigToInt32(tickRaw, "tick")
		if err != nil {
			return err
		}

		state.SqrtPriceX96 = sqrtPrice
		state.Liquidity = liquidity
		state.Tick = tick

	default:
		return fmt.Errorf("%w: topic %s", ErrUnexpectedLog, log.Topics[0])
	}

	return nil
}

// decodePositionChange returns the tick range from the indexed topics and the liquidity
// amount found at amountIdx among the non indexed values.
func decodePositionChange(event abi.Event, log types.Log, amountIdx int) (int32, int32, *big.Int, error) {
	if len(log.Topics) != 4 {
		return 0, 0, nil, fmt.Errorf("%s: expected 4 topics, got %d", event.Name, len(log.Topics))
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}

	amount, ok := values[amountIdx].(*big.Int)
	if !ok {
		return 0, 0, nil, fmt.Errorf("%s: unexpected amount type %T", event.Name, values[amountIdx])
	}

	return topicInt24(log.Topics[2]), topicInt24(log.Topics[3]), amount, nil
}

// updateTick adds the deltas to a tick and removes it once no position references it.
func updateTick(state *pool.V3State, tick int32, grossDelta, netDelta *big.Int) {
	info, ok := state.Ticks[tick]
	if !ok {
		info = pool.TickInfo{LiquidityGross: new(big.Int), LiquidityNet: new(big.Int)}
	}

	gross := new(big.Int).Add(info.LiquidityGross, grossDelta)
	if gross.Sign() <= 0 {
		delete(state.Ticks, tick)
		return
	}

	state.Ticks[tick] = pool.TickInfo{
		LiquidityGross: gross,
		LiquidityNet:   new(big.Int).Add(info.LiquidityNet, netDelta),
	}
}
