package pool

import (
	"fmt"
	"sort"

	"github.com/goran-ethernal/PoolSync/internal/common"
)

// Chain identifies an EVM network that pools are synchronized on.
type Chain string

const (
	Ethereum Chain = "ethereum"
	Base     Chain = "base"
	Arbitrum Chain = "arbitrum"
	Optimism Chain = "optimism"
	BSC      Chain = "bsc"
	Polygon  Chain = "polygon"
)

var chainIDs = map[Chain]uint64{
	Ethereum: 1,
	Optimism: 10,
	BSC:      56,
	Polygon:  137,
	Base:     8453,
	Arbitrum: 42161,
}

// ChainID returns the EIP-155 chain id, or 0 for an unknown chain.
func (c Chain) ChainID() uint64 {
	return chainIDs[c]
}

func (c Chain) String() string {
	return string(c)
}

// ParseChain resolves a chain by name (case insensitive).
func ParseChain(name string) (Chain, error) {
	c := Chain(common.ToLowerWithTrim(name))
	if _, ok := chainIDs[c]; !ok {
		return "", fmt.Errorf("unknown chain %q", name)
	}
	return c, nil
}

// AllChains returns every supported chain ordered by name.
func AllChains() []Chain {
	chains := make([]Chain, 0, len(chainIDs))
	for c := range chainIDs {
		chains = append(chains, c)
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i] < chains[j] })
	return chains
}
