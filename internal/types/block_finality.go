package types

import (
	"context"
	"fmt"

	"github.com/goran-ethernal/PoolSync/pkg/rpc"
)

// BlockFinality represents the finality mode for block confirmation.
type BlockFinality string

const (
	// FinalityFinalized uses the finalized block tag (highest level of finality)
	FinalityFinalized BlockFinality = "finalized"

	// FinalitySafe uses the safe block tag (medium level of finality)
	FinalitySafe BlockFinality = "safe"

	// FinalityLatest uses the latest block tag (no finality guarantees)
	FinalityLatest BlockFinality = "latest"
)

// String returns the string representation of BlockFinality.
func (f BlockFinality) String() string {
	return string(f)
}

// IsValid checks if the BlockFinality value is valid.
func (f BlockFinality) IsValid() bool {
	switch f {
	case FinalityFinalized, FinalitySafe, FinalityLatest:
		return true
	default:
		return false
	}
}

// ParseBlockFinality parses a string into a BlockFinality type.
func ParseBlockFinality(s string) (BlockFinality, error) {
	f := BlockFinality(s)
	if !f.IsValid() {
		return "", fmt.Errorf("invalid block finality: %s (must be one of: finalized, safe, latest)", s)
	}
	return f, nil
}

// HeadBlock resolves the block that counts as the chain head under this finality mode.
// For FinalityLatest the head is lowered by lag blocks, saturating at zero.
func (f BlockFinality) HeadBlock(ctx context.Context, client rpc.EthClient, lag uint64) (uint64, error) {
	switch f {
	case FinalityFinalized, FinalitySafe:
		get := client.GetFinalizedBlockHeader
		if f == FinalitySafe {
			get = client.GetSafeBlockHeader
		}

		header, err := get(ctx)
		if err != nil {
			return 0, fmt.Errorf("get %s block header: %w", f, err)
		}
		return header.Number.Uint64(), nil

	case FinalityLatest:
		head, err := client.BlockNumber(ctx)
		if err != nil {
			return 0, fmt.Errorf("get block number: %w", err)
		}
		if head < lag {
			return 0, nil
		}
		return head - lag, nil

	default:
		return 0, fmt.Errorf("invalid block finality: %s", f)
	}
}
