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

// Compile-time check to ensure BalancerFetcher implements fetcher.PoolFetcher interface.
var _ fetcher.PoolFetcher = (*BalancerFetcher)(nil)

func init() {
	fetcher.Register(pool.BalancerV2Weighted, func(log *logger.Logger) fetcher.PoolFetcher {
		return NewBalancerFetcher(balancerVaults, log)
	})
}

const balancerCallsPerPool = 3

// BalancerFetcher serves Balancer V2 weighted pools registered in the Vault.
// Pools of other Balancer specializations fail getNormalizedWeights and are dropped.
type BalancerFetcher struct {
	base
}

// NewBalancerFetcher creates a fetcher for balancer_v2_weighted pools.
func NewBalancerFetcher(vaults map[pool.Chain]common.Address, log *logger.Logger) *BalancerFetcher {
	loadABIs()

	return &BalancerFetcher{
		base: base{poolType: pool.BalancerV2Weighted, factories: vaults, log: log},
	}
}

func (f *BalancerFetcher) CreationEvent() common.Hash {
	return balancerABI.Events["PoolRegistered"].ID
}

// LogToAddress reads the pool address from the second indexed topic of PoolRegistered.
func (f *BalancerFetcher) LogToAddress(log types.Log) (common.Address, error) {
	if len(log.Topics) != 3 || log.Topics[0] != f.CreationEvent() {
		return common.Address{}, fmt.Errorf("%w: not a PoolRegistered log", ErrUnexpectedLog)
	}

	return common.BytesToAddress(log.Topics[2].Bytes()), nil
}

type balancerPartial struct {
	addr    common.Address
	poolID  common.Hash
	vault   common.Address
	weights []*big.Int
}

// BuildPools reads pool id, vault and weights from each pool, then tokens and balances
// from the vault in a second batch.
func (f *BalancerFetcher) BuildPools(
	ctx context.Context,
	client rpc.EthClient,
	addrs []common.Address,
	block uint64,
) ([]*pool.Pool, error) {
	calls := make([]ethereum.CallMsg, 0, balancerCallsPerPool*len(addrs))
	for _, addr := range addrs {
		calls = append(calls,
			mustPack(balancerABI, addr, "getPoolId"),
			mustPack(balancerABI, addr, "getVault"),
			mustPack(balancerABI, addr, "getNormalizedWeights"),
		)
	}

	results, err := client.BatchCallContract(ctx, calls, block)
	if err != nil {
		return nil, fmt.Errorf("batch call %d %s pools: %w", len(addrs), f.poolType, err)
	}
	if len(results) != len(calls) {
		return nil, fmt.Errorf("batch returned %d results for %d calls", len(results), len(calls))
	}

	partials := make([]balancerPartial, 0, len(addrs))
	for i, addr := range addrs {
		partial, err := f.readPool(addr, results[i*balancerCallsPerPool:(i+1)*balancerCallsPerPool])
		if err != nil {
			f.log.Debugf("skipping %s pool %s: %v", f.poolType, addr, err)
			continue
		}
		partials = append(partials, partial)
	}
	if len(partials) == 0 {
		return nil, nil
	}

	tokenCalls := make([]ethereum.CallMsg, 0, len(partials))
	for _, partial := range partials {
		tokenCalls = append(tokenCalls, mustPack(balancerABI, partial.vault, "getPoolTokens", partial.poolID))
	}

	tokenResults, err := client.BatchCallContract(ctx, tokenCalls, block)
	if err != nil {
		return nil, fmt.Errorf("batch call vault tokens of %d pools: %w", len(partials), err)
	}
	if len(tokenResults) != len(tokenCalls) {
		return nil, fmt.Errorf("batch returned %d results for %d calls", len(tokenResults), len(tokenCalls))
	}

	pools := make([]*pool.Pool, 0, len(partials))
	for i, partial := range partials {
		p, err := f.buildPool(partial, tokenResults[i])
		if err != nil {
			f.log.Debugf("skipping %s pool %s: %v", f.poolType, partial.addr, err)
			continue
		}
		p.BlockNumber = block
		pools = append(pools, p)
	}

	return pools, nil
}

func (f *BalancerFetcher) readPool(addr common.Address, res []rpc.CallResult) (balancerPartial, error) {
	poolID, err := unpackOne[[32]byte](balancerABI, "getPoolId", res[0])
	if err != nil {
		return balancerPartial{}, err
	}
	vault, err := unpackOne[common.Address](balancerABI, "getVault", res[1])
	if err != nil {
		return balancerPartial{}, err
	}
	weights, err := unpackOne[[]*big.Int](balancerABI, "getNormalizedWeights", res[2])
	if err != nil {
		return balancerPartial{}, err
	}

	return balancerPartial{addr: addr, poolID: poolID, vault: vault, weights: weights}, nil
}

func (f *BalancerFetcher) buildPool(partial balancerPartial, res rpc.CallResult) (*pool.Pool, error) {
	values, err := unpack(balancerABI, "getPoolTokens", res)
	if err != nil {
		return nil, err
	}

	tokens, ok1 := values[0].([]common.Address)
	balances, ok2 := values[1].([]*big.Int)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("getPoolTokens: unexpected output types %T, %T", values[0], values[1])
	}
	if len(tokens) < 2 {
		return nil, fmt.Errorf("pool has %d tokens", len(tokens))
	}
	if len(balances) != len(tokens) || len(partial.weights) != len(tokens) {
		return nil, fmt.Errorf("pool has %d tokens, %d balances and %d weights",
			len(tokens), len(balances), len(partial.weights))
	}

	return &pool.Pool{
		Address: partial.addr,
		Type:    f.poolType,
		Token0:  tokens[0],
		Token1:  tokens[1],
		Balancer: &pool.BalancerState{
			PoolID:   partial.poolID,
			Tokens:   tokens,
			Balances: balances,
			Weights:  partial.weights,
		},
	}, nil
}

// LiquidityTopics is empty: balance changes of weighted pools are not interpreted.
func (f *BalancerFetcher) LiquidityTopics() []common.Hash {
	return nil
}

func (f *BalancerFetcher) ApplyLog(*pool.Pool, types.Log, bool) error {
	return ErrLiquidityNotTracked
}
