package pool

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ic "github.com/goran-ethernal/PoolSync/internal/common"
)

// Big integers are written as decimal strings so values beyond 2^53 survive
// JSON consumers.

type v2JSON struct {
	Reserve0 string `json:"reserve0"`
	Reserve1 string `json:"reserve1"`
	FeeBps   uint32 `json:"fee_bps,omitempty"`
}

func (s V2State) MarshalJSON() ([]byte, error) {
	return json.Marshal(v2JSON{
		Reserve0: ic.BigString(s.Reserve0),
		Reserve1: ic.BigString(s.Reserve1),
		FeeBps:   s.FeeBps,
	})
}

func (s *V2State) UnmarshalJSON(data []byte) error {
	var w v2JSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	r0, err := ic.ParseBigInt(w.Reserve0)
	if err != nil {
		return fmt.Errorf("reserve0: %w", err)
	}
	r1, err := ic.ParseBigInt(w.Reserve1)
	if err != nil {
		return fmt.Errorf("reserve1: %w", err)
	}

	*s = V2State{Reserve0: r0, Reserve1: r1, FeeBps: w.FeeBps}
	return nil
}

type tickJSON struct {
	LiquidityGross string `json:"liquidity_gross"`
	LiquidityNet   string `json:"liquidity_net"`
}

type v3JSON struct {
	Fee          uint32             `json:"fee"`
	TickSpacing  int32              `json:"tick_spacing"`
	SqrtPriceX96 string             `json:"sqrt_price_x96"`
	Liquidity    string             `json:"liquidity"`
	Tick         int32              `json:"tick"`
	Ticks        map[int32]tickJSON `json:"ticks,omitempty"`
}

func (s V3State) MarshalJSON() ([]byte, error) {
	w := v3JSON{
		Fee:          s.Fee,
		TickSpacing:  s.TickSpacing,
		SqrtPriceX96: ic.BigString(s.SqrtPriceX96),
		Liquidity:    ic.BigString(s.Liquidity),
		Tick:         s.Tick,
	}
	if len(s.Ticks) > 0 {
		w.Ticks = make(map[int32]tickJSON, len(s.Ticks))
		for tick, info := range s.Ticks {
			w.Ticks[tick] = tickJSON{
				LiquidityGross: ic.BigString(info.LiquidityGross),
				LiquidityNet:   ic.BigString(info.LiquidityNet),
			}
		}
	}
	return json.Marshal(w)
}

func (s *V3State) UnmarshalJSON(data []byte) error {
	var w v3JSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	price, err := ic.ParseBigInt(w.SqrtPriceX96)
	if err != nil {
		return fmt.Errorf("sqrt_price_x96: %w", err)
	}
	liquidity, err := ic.ParseBigInt(w.Liquidity)
	if err != nil {
		return fmt.Errorf("liquidity: %w", err)
	}

	ticks := make(map[int32]TickInfo, len(w.Ticks))
	for tick, info := range w.Ticks {
		gross, err := ic.ParseBigInt(info.LiquidityGross)
		if err != nil {
			return fmt.Errorf("tick %d gross: %w", tick, err)
		}
		net, err := ic.ParseBigInt(info.LiquidityNet)
		if err != nil {
			return fmt.Errorf("tick %d net: %w", tick, err)
		}
		ticks[tick] = TickInfo{LiquidityGross: gross, LiquidityNet: net}
	}

	*s = V3State{
		Fee:          w.Fee,
		TickSpacing:  w.TickSpacing,
		SqrtPriceX96: price,
		Liquidity:    liquidity,
		Tick:         w.Tick,
		Ticks:        ticks,
	}
	return nil
}

type balancerJSON struct {
	PoolID   common.Hash      `json:"pool_id"`
	Tokens   []common.Address `json:"tokens"`
	Balances []string         `json:"balances"`
	Weights  []string         `json:"weights"`
}

func (s BalancerState) MarshalJSON() ([]byte, error) {
	w := balancerJSON{
		PoolID:   s.PoolID,
		Tokens:   s.Tokens,
		Balances: make([]string, len(s.Balances)),
		Weights:  make([]string, len(s.Weights)),
	}
	for i, b := range s.Balances {
		w.Balances[i] = ic.BigString(b)
	}
	for i, v := range s.Weights {
		w.Weights[i] = ic.BigString(v)
	}
	return json.Marshal(w)
}

func (s *BalancerState) UnmarshalJSON(data []byte) error {
	var w balancerJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	balances, err := parseBigSlice(w.Balances)
	if err != nil {
		return fmt.Errorf("balances: %w", err)
	}
	weights, err := parseBigSlice(w.Weights)
	if err != nil {
		return fmt.Errorf("weights: %w", err)
	}

	*s = BalancerState{PoolID: w.PoolID, Tokens: w.Tokens, Balances: balances, Weights: weights}
	return nil
}

func parseBigSlice(in []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(in))
	for i, s := range in {
		v, err := ic.ParseBigInt(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
