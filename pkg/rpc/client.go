package rpc

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
)

// CallResult is the outcome of one call in a batch. Err is scoped to that call.
type CallResult struct {
	Data []byte
	Err  error
}

// EthClient defines the interface for Ethereum RPC operations.
// Implementations must be safe for concurrent use.
type EthClient interface {
	// Close closes the RPC client connection.
	Close()

	// ChainID returns the chain id reported by the node.
	ChainID(ctx context.Context) (uint64, error)

	// BlockNumber returns the number of the most recent block.
	BlockNumber(ctx context.Context) (uint64, error)

	// GetLogs retrieves logs matching the given filter query.
	GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)

	// GetLatestBlockHeader retrieves the latest block header.
	GetLatestBlockHeader(ctx context.Context) (*types.Header, error)

	// GetFinalizedBlockHeader retrieves the finalized block header.
	GetFinalizedBlockHeader(ctx context.Context) (*types.Header, error)

	// GetSafeBlockHeader retrieves the safe block header.
	GetSafeBlockHeader(ctx context.Context) (*types.Header, error)

	// CallContract executes a read-only call at the given block.
	CallContract(ctx context.Context, msg ethereum.CallMsg, block uint64) ([]byte, error)

	// BatchCallContract executes read-only calls at the given block in a single batch.
	// A transport failure fails the whole batch; a reverted call only sets its own CallResult.Err.
	BatchCallContract(ctx context.Context, calls []ethereum.CallMsg, block uint64) ([]CallResult, error)
}
