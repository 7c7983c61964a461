package rpc

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ic "github.com/goran-ethernal/PoolSync/internal/common"
	"github.com/goran-ethernal/PoolSync/pkg/config"
	pkgrpc "github.com/goran-ethernal/PoolSync/pkg/rpc"
	"github.com/goran-ethernal/PoolSync/pkg/syncer"
	"github.com/stretchr/testify/require"
)

type jsonrpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type jsonrpcResponse struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type handlerFunc func(req jsonrpcRequest) (any, *jsonrpcError)

// newFakeNode serves JSON-RPC requests (single and batched) from handle.
func newFakeNode(t *testing.T, handle handlerFunc) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		respond := func(req jsonrpcRequest) jsonrpcResponse {
			result, rpcErr := handle(req)
			return jsonrpcResponse{Version: "2.0", ID: req.ID, Result: result, Error: rpcErr}
		}

		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(strings.TrimSpace(string(body)), "[") {
			var reqs []jsonrpcRequest
			require.NoError(t, json.Unmarshal(body, &reqs))
			out := make([]jsonrpcResponse, len(reqs))
			for i, req := range reqs {
				out[i] = respond(req)
			}
			_ = json.NewEncoder(w).Encode(out)
			return
		}

		var req jsonrpcRequest
		require.NoError(t, json.Unmarshal(body, &req))
		_ = json.NewEncoder(w).Encode(respond(req))
	}))
	t.Cleanup(srv.Close)

	return srv
}

// TestClientImplementsInterface verifies that Client implements the EthClient interface.
func TestClientImplementsInterface(t *testing.T) {
	var _ pkgrpc.EthClient = (*Client)(nil)
}

func TestNewClient_Endpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     error
	}{
		{endpoint: "", want: syncer.ErrEndpointNotSet},
		{endpoint: "   ", want: syncer.ErrEndpointNotSet},
		{endpoint: "://missing-scheme", want: syncer.ErrInvalidEndpoint},
		{endpoint: "ftp://node.example.org", want: syncer.ErrInvalidEndpoint},
		{endpoint: "localhost:8545", want: syncer.ErrInvalidEndpoint},
		{endpoint: "https://", want: syncer.ErrInvalidEndpoint},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			client, err := NewClient(context.Background(), tt.endpoint)
			require.ErrorIs(t, err, tt.want)
			require.Nil(t, client)
		})
	}

	client, err := NewClient(context.Background(), "http://127.0.0.1:8545")
	require.NoError(t, err)
	client.Close()
}

func TestClient_ChainIDAndBlockNumber(t *testing.T) {
	node := newFakeNode(t, func(req jsonrpcRequest) (any, *jsonrpcError) {
		switch req.Method {
		case "eth_chainId":
			return "0x2105", nil
		case "eth_blockNumber":
			return "0x64", nil
		}
		return nil, &jsonrpcError{Code: -32601, Message: "method not found"}
	})

	client, err := NewClient(context.Background(), node.URL)
	require.NoError(t, err)
	defer client.Close()

	id, err := client.ChainID(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(8453), id)

	head, err := client.BlockNumber(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(100), head)
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "upstream busy", http.StatusServiceUnavailable)
			return
		}
		var req jsonrpcRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jsonrpcResponse{Version: "2.0", ID: req.ID, Result: "0x10"})
	}))
	defer node.Close()

	client, err := NewClient(context.Background(), node.URL, WithRetry(&config.RetryConfig{
		MaxAttempts:       10,
		MaxJitter:         ic.NewDuration(time.Millisecond),
		BackoffMultiplier: 2,
	}))
	require.NoError(t, err)
	defer client.Close()

	head, err := client.BlockNumber(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(16), head)
	require.Equal(t, int32(3), calls.Load())
}

func TestClient_GetLogsTooManyResults(t *testing.T) {
	var calls atomic.Int32
	node := newFakeNode(t, func(req jsonrpcRequest) (any, *jsonrpcError) {
		calls.Add(1)
		return nil, &jsonrpcError{
			Code:    -32005,
			Message: "query returned more than 10000 results",
			Data:    "Query returned more than 10000 results. Try with this block range [0x10, 0x20].",
		}
	})

	client, err := NewClient(context.Background(), node.URL, WithRetry(&config.RetryConfig{
		MaxAttempts:       5,
		BackoffMultiplier: 2,
	}))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.GetLogs(context.Background(), ethereum.FilterQuery{
		FromBlock: big.NewInt(0),
		ToBlock:   big.NewInt(100),
	})
	require.Error(t, err)

	tooMany, data := IsTooManyResultsError(err)
	require.True(t, tooMany)
	from, to, ok := ParseSuggestedBlockRange(data)
	require.True(t, ok)
	require.Equal(t, uint64(16), from)
	require.Equal(t, uint64(32), to)
	require.Equal(t, int32(1), calls.Load(), "too many results is not retried")
}

func TestClient_BatchCallContract(t *testing.T) {
	node := newFakeNode(t, func(req jsonrpcRequest) (any, *jsonrpcError) {
		require.Equal(t, "eth_call", req.Method)
		require.Len(t, req.Params, 2)
		require.JSONEq(t, `"0x2a"`, string(req.Params[1]))

		var call map[string]any
		require.NoError(t, json.Unmarshal(req.Params[0], &call))
		if call["input"] == "0x02" {
			return nil, &jsonrpcError{Code: 3, Message: "execution reverted"}
		}
		return "0x" + strings.Repeat("00", 31) + "07", nil
	})

	client, err := NewClient(context.Background(), node.URL)
	require.NoError(t, err)
	defer client.Close()

	target := common.HexToAddress("0x1")
	results, err := client.BatchCallContract(context.Background(), []ethereum.CallMsg{
		{To: &target, Data: []byte{0x01}},
		{To: &target, Data: []byte{0x02}},
		{To: &target, Data: []byte{0x03}},
	}, 42)
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.NoError(t, results[0].Err)
	require.Equal(t, byte(7), results[0].Data[31])
	require.Error(t, results[1].Err)
	require.NoError(t, results[2].Err)
}

func TestClient_BatchCallContractEmpty(t *testing.T) {
	client := &Client{}
	results, err := client.BatchCallContract(context.Background(), nil, 1)
	require.NoError(t, err)
	require.Nil(t, results)
}

func TestToBlockNumArg(t *testing.T) {
	tests := []struct {
		blockNum uint64
		want     string
	}{
		{0, "0x0"},
		{1, "0x1"},
		{100, "0x64"},
		{18_000_000, "0x112a880"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, toBlockNumArg(tt.blockNum))
	}
}

func TestLimiter_NilNeverBlocks(t *testing.T) {
	var l *Limiter
	require.NoError(t, l.Wait(context.Background()))
}

func TestLimiter_CancelledWhileWaiting(t *testing.T) {
	l := NewLimiter(1, 1)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, l.Wait(ctx), context.Canceled)
}
