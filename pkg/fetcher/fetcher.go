package fetcher

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/PoolSync/pkg/pool"
	"github.com/goran-ethernal/PoolSync/pkg/rpc"
)

// PoolFetcher holds the protocol knowledge for one PoolType: where pools are created,
// how to decode a creation log, how to build a pool from on-chain calls and how
// liquidity logs mutate it.
type PoolFetcher interface {
	// PoolType returns the pool type served by this fetcher.
	PoolType() pool.PoolType

	// FactoryAddress returns the contract emitting creation events on chain.
	FactoryAddress(chain pool.Chain) (common.Address, bool)

	// CreationEvent returns the topic0 of the pool creation event.
	CreationEvent() common.Hash

	// LogToAddress extracts the pool address from a creation log.
	LogToAddress(log types.Log) (common.Address, error)

	// BuildPools reads pool metadata and state at block. Pools that fail to build are
	// omitted from the result; the error is reserved for failures of the whole batch.
	BuildPools(ctx context.Context, client rpc.EthClient, addrs []common.Address, block uint64) ([]*pool.Pool, error)

	// LiquidityTopics returns the topic0 values of events that change pool liquidity.
	// It is empty for types whose liquidity events are not interpreted.
	LiquidityTopics() []common.Hash

	// ApplyLog mutates p according to a liquidity log. isInitial marks logs replayed
	// from before the pool's first observation.
	ApplyLog(p *pool.Pool, log types.Log, isInitial bool) error
}

type factoryOverride struct {
	PoolFetcher
	factory common.Address
}

func (f *factoryOverride) FactoryAddress(pool.Chain) (common.Address, bool) {
	return f.factory, true
}

// WithFactoryAddress returns f with its factory address replaced on every chain.
func WithFactoryAddress(f PoolFetcher, factory common.Address) PoolFetcher {
	return &factoryOverride{PoolFetcher: f, factory: factory}
}
