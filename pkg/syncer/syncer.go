package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/PoolSync/pkg/pool"
)

var (
	// ErrProvider wraps failures of the upstream node that abort a sync.
	ErrProvider = errors.New("provider error")
	// ErrUnknownPoolType is returned for a pool type without a configured fetcher.
	ErrUnknownPoolType = errors.New("unknown pool type")
	// ErrChainMismatch is returned when the node serves a different chain than configured.
	ErrChainMismatch = errors.New("rpc endpoint serves a different chain")
	// ErrEndpointNotSet is returned when no rpc endpoint is configured.
	ErrEndpointNotSet = errors.New("rpc endpoint is not set")
	// ErrInvalidEndpoint is returned for an endpoint that is not a usable http(s) or ws(s) url.
	ErrInvalidEndpoint = errors.New("invalid rpc endpoint")
)

// BlockRange is an inclusive range of blocks.
type BlockRange struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

func (r BlockRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.From, r.To)
}

// Contains reports whether other lies entirely inside r.
func (r BlockRange) Contains(other BlockRange) bool {
	return other.From >= r.From && other.To <= r.To && other.From <= other.To
}

// Len returns the number of blocks in the range.
func (r BlockRange) Len() uint64 {
	if r.To < r.From {
		return 0
	}
	return r.To - r.From + 1
}

// Split cuts the range into consecutive chunks of at most size blocks.
func (r BlockRange) Split(size uint64) []BlockRange {
	if r.To < r.From {
		return nil
	}
	if size == 0 {
		return []BlockRange{r}
	}

	chunks := make([]BlockRange, 0, (r.Len()+size-1)/size)
	for start := r.From; ; start += size {
		end := start + size - 1
		if end >= r.To || end < start {
			chunks = append(chunks, BlockRange{From: start, To: r.To})
			return chunks
		}
		chunks = append(chunks, BlockRange{From: start, To: end})
	}
}

// GapKind tells which operation lost data.
type GapKind string

const (
	// GapDiscovery is a creation event range that could not be fetched.
	GapDiscovery GapKind = "discovery"
	// GapLiquidity is a liquidity event range that could not be fetched.
	GapLiquidity GapKind = "liquidity"
	// GapPoolInfo is a batch of pools whose metadata could not be fetched at Range.To.
	GapPoolInfo GapKind = "pool_info"
)

// Gap describes data dropped after retries were exhausted.
type Gap struct {
	PoolType pool.PoolType
	Kind     GapKind
	Range    BlockRange
	Reason   string
}

// GapHandler receives dropped chunks. It is called on the goroutine that invoked
// the syncer operation, after all fetch tasks of that call finished.
type GapHandler func(Gap)

// Syncer is the chain-facing side of pool synchronization.
type Syncer interface {
	// BlockNumber returns the block treated as the chain head.
	BlockNumber(ctx context.Context) (uint64, error)

	// VerifyChain checks that the node serves the configured chain.
	VerifyChain(ctx context.Context) error

	// FetchAddresses returns the addresses of pools of poolType created within [from, to].
	FetchAddresses(ctx context.Context, poolType pool.PoolType, from, to uint64) ([]common.Address, error)

	// PopulatePoolInfo builds pools of poolType at block.
	PopulatePoolInfo(ctx context.Context, poolType pool.PoolType, addrs []common.Address, block uint64) ([]*pool.Pool, error)

	// PopulateLiquidity replays liquidity logs within [from, to] onto pools in block order
	// and returns the addresses of pools that were modified.
	PopulateLiquidity(
		ctx context.Context,
		poolType pool.PoolType,
		pools map[common.Address]*pool.Pool,
		from, to uint64,
		isInitial bool,
	) ([]common.Address, error)
}
