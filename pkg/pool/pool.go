package pool

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrStateMismatch is returned when a pool carries a payload that does not match its family.
	ErrStateMismatch = errors.New("pool state does not match pool family")
)

// Pool is a liquidity pool record. Exactly one of V2, V3 or Balancer is set,
// selected by the family of Type.
type Pool struct {
	Address common.Address `json:"address"`
	Type    PoolType       `json:"type"`
	Token0  common.Address `json:"token0"`
	Token1  common.Address `json:"token1"`

	// BlockNumber is the block the on-chain snapshot was read at.
	BlockNumber uint64 `json:"block_number"`
	// LastUpdatedBlock is the block of the last liquidity log applied to the pool.
	LastUpdatedBlock uint64 `json:"last_updated_block"`

	V2       *V2State       `json:"v2,omitempty"`
	V3       *V3State       `json:"v3,omitempty"`
	Balancer *BalancerState `json:"balancer,omitempty"`
}

// V2State holds constant product reserves.
type V2State struct {
	Reserve0 *big.Int
	Reserve1 *big.Int
	FeeBps   uint32
}

// TickInfo is the liquidity stored at an initialized tick.
type TickInfo struct {
	LiquidityGross *big.Int
	LiquidityNet   *big.Int
}

// V3State holds concentrated liquidity state.
type V3State struct {
	Fee          uint32
	TickSpacing  int32
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
	Tick         int32
	Ticks        map[int32]TickInfo
}

// BalancerState holds a weighted pool's registration and balances.
type BalancerState struct {
	PoolID   common.Hash
	Tokens   []common.Address
	Balances []*big.Int
	Weights  []*big.Int
}

// NewV2 returns a V2 family pool with zero reserves.
func NewV2(address common.Address, t PoolType, token0, token1 common.Address) *Pool {
	return &Pool{
		Address: address,
		Type:    t,
		Token0:  token0,
		Token1:  token1,
		V2:      &V2State{Reserve0: new(big.Int), Reserve1: new(big.Int)},
	}
}

// NewV3 returns a V3 family pool with an empty tick map.
func NewV3(address common.Address, t PoolType, token0, token1 common.Address, fee uint32, tickSpacing int32) *Pool {
	return &Pool{
		Address: address,
		Type:    t,
		Token0:  token0,
		Token1:  token1,
		V3: &V3State{
			Fee:          fee,
			TickSpacing:  tickSpacing,
			SqrtPriceX96: new(big.Int),
			Liquidity:    new(big.Int),
			Ticks:        make(map[int32]TickInfo),
		},
	}
}

// Family returns the liquidity model of the pool.
func (p *Pool) Family() Family {
	return p.Type.Family()
}

// Touch records that a log at block was applied.
func (p *Pool) Touch(block uint64) {
	if block > p.LastUpdatedBlock {
		p.LastUpdatedBlock = block
	}
}

// Validate checks that the pool type is known and that the payload matches its family.
func (p *Pool) Validate() error {
	if !p.Type.Valid() {
		return fmt.Errorf("pool %s: unknown type %q", p.Address.Hex(), p.Type)
	}

	var ok bool
	switch p.Family() {
	case FamilyV2:
		ok = p.V2 != nil && p.V3 == nil && p.Balancer == nil
	case FamilyV3:
		ok = p.V3 != nil && p.V2 == nil && p.Balancer == nil
	default:
		ok = p.V2 == nil && p.V3 == nil
	}

	if !ok {
		return fmt.Errorf("pool %s (%s): %w", p.Address.Hex(), p.Type, ErrStateMismatch)
	}

	return nil
}

// EncodeState serializes the family payload for storage.
func (p *Pool) EncodeState() ([]byte, error) {
	switch {
	case p.V2 != nil:
		return json.Marshal(p.V2)
	case p.V3 != nil:
		return json.Marshal(p.V3)
	case p.Balancer != nil:
		return json.Marshal(p.Balancer)
	default:
		return []byte("{}"), nil
	}
}

// DecodeState restores the family payload from its stored form.
func (p *Pool) DecodeState(data []byte) error {
	p.V2, p.V3, p.Balancer = nil, nil, nil

	switch p.Family() {
	case FamilyV2:
		p.V2 = &V2State{}
		return json.Unmarshal(data, p.V2)
	case FamilyV3:
		p.V3 = &V3State{}
		return json.Unmarshal(data, p.V3)
	default:
		if p.Type != BalancerV2Weighted || len(data) == 0 || string(data) == "{}" {
			return nil
		}
		p.Balancer = &BalancerState{}
		return json.Unmarshal(data, p.Balancer)
	}
}
