package pool

import (
	"fmt"
	"sort"

	"github.com/goran-ethernal/PoolSync/internal/common"
)

// PoolType identifies a protocol variant. Each type belongs to exactly one Family.
type PoolType string

const (
	UniswapV2          PoolType = "uniswap_v2"
	SushiSwapV2        PoolType = "sushiswap_v2"
	PancakeSwapV2      PoolType = "pancakeswap_v2"
	UniswapV3          PoolType = "uniswap_v3"
	SushiSwapV3        PoolType = "sushiswap_v3"
	PancakeSwapV3      PoolType = "pancakeswap_v3"
	BalancerV2Weighted PoolType = "balancer_v2_weighted"
)

// Family groups pool types that share a liquidity event model.
type Family int

const (
	// FamilyOther covers pools whose liquidity events are not interpreted.
	FamilyOther Family = iota
	// FamilyV2 pools emit absolute reserve snapshots (Sync).
	FamilyV2
	// FamilyV3 pools emit concentrated liquidity deltas (Mint, Burn, Swap).
	FamilyV3
)

func (f Family) String() string {
	switch f {
	case FamilyV2:
		return "v2"
	case FamilyV3:
		return "v3"
	default:
		return "other"
	}
}

var families = map[PoolType]Family{
	UniswapV2:          FamilyV2,
	SushiSwapV2:        FamilyV2,
	PancakeSwapV2:      FamilyV2,
	UniswapV3:          FamilyV3,
	SushiSwapV3:        FamilyV3,
	PancakeSwapV3:      FamilyV3,
	BalancerV2Weighted: FamilyOther,
}

// Family returns the liquidity model of the pool type.
func (t PoolType) Family() Family {
	return families[t]
}

func (t PoolType) String() string {
	return string(t)
}

// Valid reports whether t is a known pool type.
func (t PoolType) Valid() bool {
	_, ok := families[t]
	return ok
}

// ParsePoolType resolves a pool type by name (case insensitive).
func ParsePoolType(name string) (PoolType, error) {
	t := PoolType(common.ToLowerWithTrim(name))
	if !t.Valid() {
		return "", fmt.Errorf("unknown pool type %q", name)
	}
	return t, nil
}

// AllPoolTypes returns every known pool type ordered by name.
func AllPoolTypes() []PoolType {
	types := make([]PoolType, 0, len(families))
	for t := range families {
		types = append(types, t)
	}
	SortPoolTypes(types)
	return types
}

// SortPoolTypes orders pool types by name in place.
func SortPoolTypes(types []PoolType) {
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
}
