package rpc

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/goran-ethernal/PoolSync/internal/logger"
	"github.com/goran-ethernal/PoolSync/pkg/config"
	pkgrpc "github.com/goran-ethernal/PoolSync/pkg/rpc"
	"github.com/goran-ethernal/PoolSync/pkg/syncer"
)

// Compile-time check to ensure Client implements pkgrpc.EthClient interface.
var _ pkgrpc.EthClient = (*Client)(nil)

// Client wraps the Ethereum RPC client with retries, rate limiting and metrics.
// It implements the pkgrpc.EthClient interface.
type Client struct {
	eth     *ethclient.Client
	rpc     *rpc.Client
	retry   *config.RetryConfig
	limiter *Limiter
	log     *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRetry enables retries of retryable failures.
func WithRetry(cfg *config.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithRateLimit caps the request rate shared by all callers of the client.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = NewLimiter(rps, burst)
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a new RPC client connected to the given endpoint.
func NewClient(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, syncer.ErrEndpointNotSet
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", syncer.ErrInvalidEndpoint, err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", syncer.ErrInvalidEndpoint, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", syncer.ErrInvalidEndpoint)
	}

	rpcClient, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", syncer.ErrInvalidEndpoint, u.Redacted(), err)
	}

	c := &Client{
		eth: ethclient.NewClient(rpcClient),
		rpc: rpcClient,
		log: logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Close closes the RPC client connection.
func (c *Client) Close() {
	c.eth.Close()
}

// do runs one RPC operation under the rate limiter and retry policy, recording metrics.
func (c *Client) do(ctx context.Context, method string, fn func() error) error {
	return retryWithBackoff(ctx, c.retry, method, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		RPCMethodInc(method)
		start := time.Now()
		err := fn()
		RPCMethodDuration(method, time.Since(start))

		if err != nil {
			RPCMethodError(method, classifyError(err))
			c.log.Debugw("rpc call failed", "method", method, "error", err)
		}
		return err
	})
}

// ChainID returns the chain id reported by the node.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	var id *big.Int
	err := c.do(ctx, "eth_chainId", func() (err error) {
		id, err = c.eth.ChainID(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id.Uint64(), nil
}

// BlockNumber returns the number of the most recent block.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var n uint64
	err := c.do(ctx, "eth_blockNumber", func() (err error) {
		n, err = c.eth.BlockNumber(ctx)
		return err
	})
	return n, err
}

// GetLogs retrieves logs matching the given filter query.
func (c *Client) GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	err := c.do(ctx, "eth_getLogs", func() (err error) {
		logs, err = c.eth.FilterLogs(ctx, query)
		return err
	})
	return logs, err
}

func (c *Client) header(ctx context.Context, number *big.Int) (*types.Header, error) {
	var h *types.Header
	err := c.do(ctx, "eth_getBlockByNumber", func() (err error) {
		h, err = c.eth.HeaderByNumber(ctx, number)
		return err
	})
	return h, err
}

// GetLatestBlockHeader retrieves the latest block header.
func (c *Client) GetLatestBlockHeader(ctx context.Context) (*types.Header, error) {
	return c.header(ctx, nil)
}

// GetFinalizedBlockHeader retrieves the finalized block header.
func (c *Client) GetFinalizedBlockHeader(ctx context.Context) (*types.Header, error) {
	return c.header(ctx, big.NewInt(int64(rpc.FinalizedBlockNumber)))
}

// GetSafeBlockHeader retrieves the safe block header.
func (c *Client) GetSafeBlockHeader(ctx context.Context) (*types.Header, error) {
	return c.header(ctx, big.NewInt(int64(rpc.SafeBlockNumber)))
}

// CallContract executes a read-only call at the given block.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, block uint64) ([]byte, error) {
	var out []byte
	err := c.do(ctx, "eth_call", func() (err error) {
		out, err = c.eth.CallContract(ctx, msg, new(big.Int).SetUint64(block))
		return err
	})
	return out, err
}

// BatchCallContract executes read-only calls at the given block in a single batch call.
func (c *Client) BatchCallContract(
	ctx context.Context, calls []ethereum.CallMsg, block uint64,
) ([]pkgrpc.CallResult, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	var results []pkgrpc.CallResult
	err := c.do(ctx, "eth_call_batch", func() error {
		batch := make([]rpc.BatchElem, len(calls))
		raw := make([]hexutil.Bytes, len(calls))

		for i, msg := range calls {
			batch[i] = rpc.BatchElem{
				Method: "eth_call",
				Args:   []any{toCallArg(msg), toBlockNumArg(block)},
				Result: &raw[i],
			}
		}

		if err := c.rpc.BatchCallContext(ctx, batch); err != nil {
			return err
		}

		results = make([]pkgrpc.CallResult, len(calls))
		for i, elem := range batch {
			// transient element errors fail the batch so it is retried as a whole
			if elem.Error != nil && retryableError(elem.Error) {
				return elem.Error
			}
			results[i] = pkgrpc.CallResult{Data: raw[i], Err: elem.Error}
		}
		return nil
	})

	return results, err
}

// toCallArg converts ethereum.CallMsg to the format expected by eth_call.
func toCallArg(msg ethereum.CallMsg) any {
	arg := map[string]any{
		"to": msg.To,
	}
	if len(msg.Data) > 0 {
		arg["input"] = hexutil.Bytes(msg.Data)
	}
	if msg.From != (common.Address{}) {
		arg["from"] = msg.From
	}
	if msg.Gas != 0 {
		arg["gas"] = hexutil.Uint64(msg.Gas)
	}
	return arg
}

// toBlockNumArg converts a block number to hex format.
func toBlockNumArg(blockNum uint64) string {
	return fmt.Sprintf("0x%x", blockNum)
}
