package fetcher

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/PoolSync/internal/logger"
	"github.com/goran-ethernal/PoolSync/pkg/fetcher"
	"github.com/goran-ethernal/PoolSync/pkg/pool"
	"github.com/goran-ethernal/PoolSync/pkg/rpc"
)

// Compile-time check to ensure V2Fetcher implements fetcher.PoolFetcher interface.
var _ fetcher.PoolFetcher = (*V2Fetcher)(nil)

func init() {
	registerV2 := func(t pool.PoolType, factories map[pool.Chain]common.Address, feeBps uint32) {
		fetcher.Register(t, func(log *logger.Logger) fetcher.PoolFetcher {
			return NewV2Fetcher(t, factories, feeBps, log)
		})
	}

	registerV2(pool.UniswapV2, uniswapV2Factories, 30)
	registerV2(pool.SushiSwapV2, sushiSwapV2Factories, 30)
	registerV2(pool.PancakeSwapV2, pancakeSwapV2Factories, 25)
}

const v2CallsPerPool = 3

// V2Fetcher serves constant product pools created through a PairCreated factory.
type V2Fetcher struct {
	base
	feeBps uint32
}

// NewV2Fetcher creates a fetcher for a V2 family pool type.
func NewV2Fetcher(
	poolType pool.PoolType,
	factories map[pool.Chain]common.Address,
	feeBps uint32,
	log *logger.Logger,
) *V2Fetcher {
	loadABIs()

	return &V2Fetcher{
		base:   base{poolType: poolType, factories: factories, log: log},
		feeBps: feeBps,
	}
}

func (f *V2Fetcher) CreationEvent() common.Hash {
	return v2ABI.Events["PairCreated"].ID
}

// LogToAddress reads the pair address from the first data word of PairCreated.
func (f *V2Fetcher) LogToAddress(log types.Log) (common.Address, error) {
	if len(log.Topics) != 3 || log.Topics[0] != f.CreationEvent() {
		return common.Address{}, fmt.Errorf("%w: not a PairCreated log", ErrUnexpectedLog)
	}
	if len(log.Data) < 64 {
		return common.Address{}, fmt.Errorf("PairCreated data too short: %d bytes", len(log.Data))
	}

	return common.BytesToAddress(log.Data[12:32]), nil
}

// BuildPools reads token0, token1 and reserves of every pair in one batch.
func (f *V2Fetcher) BuildPools(
	ctx context.Context,
	client rpc.EthClient,
	addrs []common.Address,
	block uint64,
) ([]*pool.Pool, error) {
	calls := make([]ethereum.CallMsg, 0, v2CallsPerPool*len(addrs))
	for _, addr := range addrs {
		calls = append(calls,
			mustPack(v2ABI, addr, "token0"),
			mustPack(v2ABI, addr, "token1"),
			mustPack(v2ABI, addr, "getReserves"),
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
		p, err := f.buildPool(addr, results[i*v2CallsPerPool:(i+1)*v2CallsPerPool])
		if err != nil {
			f.log.Debugf("skipping %s pool %s: %v", f.poolType, addr, err)
			continue
		}
		p.BlockNumber = block
		pools = append(pools, p)
	}

	return pools, nil
}

func (f *V2Fetcher) buildPool(addr common.Address, res []rpc.CallResult) (*pool.Pool, error) {
	token0, err := unpackOne[common.Address](v2ABI, "token0", res[0])
	if err != nil {
		return nil, err
	}
	token1, err := unpackOne[common.Address](v2ABI, "token1", res[1])
	if err != nil {
		return nil, err
	}

	reserves, err := unpack(v2ABI, "getReserves", res[2])
	if err != nil {
		return nil, err
	}
	reserve0, ok0 := reserves[0].(*big.Int)
	reserve1, ok1 := reserves[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, fmt.Errorf("getReserves: unexpected output types %T, %T", reserves[0], reserves[1])
	}

	p := pool.NewV2(addr, f.poolType, token0, token1)
	p.V2.Reserve0 = reserve0
	p.V2.Reserve1 = reserve1
	p.V2.FeeBps = f.feeBps

	return p, nil
}

func (f *V2Fetcher) LiquidityTopics() []common.Hash {
	return []common.Hash{v2ABI.Events["Sync"].ID}
}

// ApplyLog sets the reserves carried by a Sync log. Sync holds absolute values
// so the log is applied regardless of isInitial.
func (f *V2Fetcher) ApplyLog(p *pool.Pool, log types.Log, _ bool) error {
	if p.V2 == nil {
		return fmt.Errorf("pool %s: %w", p.Address, pool.ErrStateMismatch)
	}

	event := v2ABI.Events["Sync"]
	if len(log.Topics) == 0 || log.Topics[0] != event.ID {
		return fmt.Errorf("%w: topic is not Sync", ErrUnexpectedLog)
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return fmt.Errorf("unpack Sync: %w", err)
	}

	reserve0, ok0 := values[0].(*big.Int)
	reserve1, ok1 := values[1].(*big.Int)
	if !ok0 || !ok1 {
		return fmt.Errorf("sync log: unexpected value types %T, %T", values[0], values[1])
	}

	p.V2.Reserve0 = reserve0
	p.V2.Reserve1 = reserve1
	return nil
}
