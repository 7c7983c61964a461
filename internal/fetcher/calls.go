package fetcher

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/PoolSync/internal/logger"
	"github.com/goran-ethernal/PoolSync/pkg/pool"
	"github.com/goran-ethernal/PoolSync/pkg/rpc"
)

var (
	// ErrUnexpectedLog is returned when a log is not one of the events a fetcher handles.
	ErrUnexpectedLog = errors.New("unexpected log")
	// ErrLiquidityNotTracked is returned by fetchers that do not interpret liquidity logs.
	ErrLiquidityNotTracked = errors.New("liquidity events are not tracked for this pool type")

	errEmptyResult = errors.New("empty call result")
)

// base holds what every fetcher needs regardless of protocol.
type base struct {
	poolType  pool.PoolType
	factories map[pool.Chain]common.Address
	log       *logger.Logger
}

func (b *base) PoolType() pool.PoolType {
	return b.poolType
}

func (b *base) FactoryAddress(chain pool.Chain) (common.Address, bool) {
	addr, ok := b.factories[chain]
	return addr, ok
}

func mustPack(contract abi.ABI, to common.Address, method string, args ...interface{}) ethereum.CallMsg {
	input, err := contract.Pack(method, args...)
	if err != nil {
		// only reachable with a wrong method name or argument type
		panic(fmt.Sprintf("pack %s: %v", method, err))
	}

	return ethereum.CallMsg{To: &to, Data: input}
}

func unpack(contract abi.ABI, method string, res rpc.CallResult) ([]interface{}, error) {
	if res.Err != nil {
		return nil, fmt.Errorf("%s: %w", method, res.Err)
	}
	if len(res.Data) == 0 {
		return nil, fmt.Errorf("%s: %w", method, errEmptyResult)
	}

	values, err := contract.Unpack(method, res.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// unpackOne decodes a call returning a single value of type T.
func unpackOne[T any](contract abi.ABI, method string, res rpc.CallResult) (T, error) {
	var zero T

	values, err := unpack(contract, method, res)
	if err != nil {
		return zero, err
	}

	v, ok := values[0].(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected output type %T", method, values[0])
	}
	return v, nil
}

// topicInt24 decodes a sign extended indexed int24.
func topicInt24(h common.Hash) int32 {
	return int32(binary.BigEndian.Uint32(h[28:]))
}

func bigToInt32(v *big.Int, name string) (int32, error) {
	if v == nil || !v.IsInt64() || v.Int64() < -(1<<31) || v.Int64() >= 1<<31 {
		return 0, fmt.Errorf("%s out of int32 range: %v", name, v)
	}
	return int32(v.Int64()), nil
}

func bigToUint32(v *big.Int, name string) (uint32, error) {
	if v == nil || !v.IsUint64() || v.Uint64() >= 1<<32 {
		return 0, fmt.Errorf("%s out of uint32 range: %v", name, v)
	}
	return uint32(v.Uint64()), nil
}
