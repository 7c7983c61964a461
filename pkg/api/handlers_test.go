package api

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	apimocks "github.com/goran-ethernal/PoolSync/internal/api/mocks"
	"github.com/goran-ethernal/PoolSync/internal/logger"
	"github.com/goran-ethernal/PoolSync/pkg/pool"
	"github.com/goran-ethernal/PoolSync/pkg/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testPools(n int) []*pool.Pool {
	pools := make([]*pool.Pool, 0, n)
	for i := range n {
		p := pool.NewV2(common.BigToAddress(big.NewInt(int64(i+1))), pool.UniswapV2,
			common.HexToAddress("0xaa"), common.HexToAddress("0xbb"))
		p.V2.Reserve0 = big.NewInt(int64(1000 * (i + 1)))
		p.V2.Reserve1 = big.NewInt(int64(2000 * (i + 1)))
		pools = append(pools, p)
	}
	return pools
}

func newTestHandler(t *testing.T) (*Handler, *apimocks.PoolReader) {
	t.Helper()

	db := apimocks.NewPoolReader(t)
	h := NewHandler(db, pool.Ethereum, []pool.PoolType{pool.UniswapV2, pool.UniswapV3}, logger.NewNopLogger())

	return h, db
}

func TestHandler_ListPools(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		query          string
		setup          func(db *apimocks.PoolReader)
		expectedStatus int
		expectedLen    int
		expectedTotal  int
		expectMore     bool
	}{
		{
			name:  "default paging",
			query: "",
			setup: func(db *apimocks.PoolReader) {
				db.EXPECT().LoadPools(mock.Anything, pool.Ethereum, []pool.PoolType(nil)).Return(testPools(3), nil)
			},
			expectedStatus: http.StatusOK,
			expectedLen:    3,
			expectedTotal:  3,
		},
		{
			name:  "limit and offset",
			query: "?limit=2&offset=1",
			setup: func(db *apimocks.PoolReader) {
				db.EXPECT().LoadPools(mock.Anything, pool.Ethereum, []pool.PoolType(nil)).Return(testPools(5), nil)
			},
			expectedStatus: http.StatusOK,
			expectedLen:    2,
			expectedTotal:  5,
			expectMore:     true,
		},
		{
			name:  "offset past the end",
			query: "?offset=10",
			setup: func(db *apimocks.PoolReader) {
				db.EXPECT().LoadPools(mock.Anything, pool.Ethereum, []pool.PoolType(nil)).Return(testPools(2), nil)
			},
			expectedStatus: http.StatusOK,
			expectedLen:    0,
			expectedTotal:  2,
		},
		{
			name:  "type filter",
			query: "?type=uniswap_v2,sushiswap_v2",
			setup: func(db *apimocks.PoolReader) {
				db.EXPECT().LoadPools(mock.Anything, pool.Ethereum,
					[]pool.PoolType{pool.UniswapV2, pool.SushiSwapV2}).Return(testPools(1), nil)
			},
			expectedStatus: http.StatusOK,
			expectedLen:    1,
			expectedTotal:  1,
		},
		{
			name:           "unknown type",
			query:          "?type=curve",
			setup:          func(db *apimocks.PoolReader) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "limit too large",
			query:          "?limit=5000",
			setup:          func(db *apimocks.PoolReader) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "negative offset",
			query:          "?offset=-1",
			setup:          func(db *apimocks.PoolReader) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "database error",
			query: "",
			setup: func(db *apimocks.PoolReader) {
				db.EXPECT().LoadPools(mock.Anything, pool.Ethereum, []pool.PoolType(nil)).Return(nil, errors.New("disk on fire"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, db := newTestHandler(t)
			tt.setup(db)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/pools"+tt.query, nil)
			w := httptest.NewRecorder()

			h.ListPools(w, req)

			require.Equal(t, tt.expectedStatus, w.Code)
			require.Equal(t, "application/json", w.Header().Get("Content-Type"))

			if tt.expectedStatus != http.StatusOK {
				var resp ErrorResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				require.Equal(t, tt.expectedStatus, resp.Code)
				require.NotEmpty(t, resp.Message)
				return
			}

			var resp PoolsResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			require.Len(t, resp.Pools, tt.expectedLen)
			require.Equal(t, tt.expectedTotal, resp.Pagination.Total)
			require.Equal(t, tt.expectMore, resp.Pagination.HasMore)
		})
	}
}

func TestHandler_ListPools_State(t *testing.T) {
	t.Parallel()

	h, db := newTestHandler(t)
	db.EXPECT().LoadPools(mock.Anything, pool.Ethereum, []pool.PoolType(nil)).Return(testPools(1), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pools", nil)
	w := httptest.NewRecorder()
	h.ListPools(w, req)

	var resp PoolsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Pools, 1)
	require.Equal(t, pool.UniswapV2, resp.Pools[0].Type)
	require.NotNil(t, resp.Pools[0].V2)
	require.Zero(t, big.NewInt(1000).Cmp(resp.Pools[0].V2.Reserve0))
	require.Zero(t, big.NewInt(2000).Cmp(resp.Pools[0].V2.Reserve1))
}

func TestHandler_GetPool(t *testing.T) {
	t.Parallel()

	address := common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc")

	tests := []struct {
		name           string
		address        string
		setup          func(db *apimocks.PoolReader)
		expectedStatus int
	}{
		{
			name:    "found",
			address: address.Hex(),
			setup: func(db *apimocks.PoolReader) {
				p := testPools(1)[0]
				p.Address = address
				db.EXPECT().GetPool(mock.Anything, pool.Ethereum, address).Return(p, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid address",
			address:        "not-an-address",
			setup:          func(db *apimocks.PoolReader) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:    "not found",
			address: address.Hex(),
			setup: func(db *apimocks.PoolReader) {
				db.EXPECT().GetPool(mock.Anything, pool.Ethereum, address).Return(nil, store.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:    "database error",
			address: address.Hex(),
			setup: func(db *apimocks.PoolReader) {
				db.EXPECT().GetPool(mock.Anything, pool.Ethereum, address).Return(nil, errors.New("boom"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, db := newTestHandler(t)
			tt.setup(db)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/pools/"+tt.address, nil)
			req.SetPathValue("address", tt.address)
			w := httptest.NewRecorder()

			h.GetPool(w, req)

			require.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var p pool.Pool
				require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
				require.Equal(t, address, p.Address)
			}
		})
	}
}

func TestHandler_Status(t *testing.T) {
	t.Parallel()

	t.Run("merges configured and stored pool types", func(t *testing.T) {
		t.Parallel()

		h, db := newTestHandler(t)
		finished := time.Now()
		run := &store.SyncRun{
			ID:         "5f0c7f1e-2d7a-4c55-9a0e-1b7b7c9d0001",
			Chain:      pool.Ethereum,
			Status:     store.RunSucceeded,
			StartedAt:  finished.Add(-time.Minute),
			FinishedAt: &finished,
			HeadBlock:  100,
			PoolCount:  7,
		}

		db.EXPECT().Watermarks(mock.Anything, pool.Ethereum).Return(map[pool.PoolType]uint64{
			pool.UniswapV2:   100,
			pool.SushiSwapV2: 80,
		}, nil)
		db.EXPECT().CountPools(mock.Anything, pool.Ethereum).Return(map[pool.PoolType]int{
			pool.UniswapV2:   5,
			pool.SushiSwapV2: 2,
		}, nil)
		db.EXPECT().LastRun(mock.Anything, pool.Ethereum).Return(run, nil)

		w := httptest.NewRecorder()
		h.Status(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var resp StatusResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Equal(t, "ethereum", resp.Chain)
		require.Equal(t, 7, resp.TotalPools)
		require.Equal(t, []PoolTypeStatus{
			{Type: pool.SushiSwapV2, LastProcessedBlock: 80, Pools: 2},
			{Type: pool.UniswapV2, LastProcessedBlock: 100, Pools: 5},
			{Type: pool.UniswapV3},
		}, resp.PoolTypes)
		require.NotNil(t, resp.LastRun)
		require.Equal(t, run.ID, resp.LastRun.ID)
		require.Equal(t, store.RunSucceeded, resp.LastRun.Status)
	})

	t.Run("no runs yet", func(t *testing.T) {
		t.Parallel()

		h, db := newTestHandler(t)
		db.EXPECT().Watermarks(mock.Anything, pool.Ethereum).Return(map[pool.PoolType]uint64{}, nil)
		db.EXPECT().CountPools(mock.Anything, pool.Ethereum).Return(map[pool.PoolType]int{}, nil)
		db.EXPECT().LastRun(mock.Anything, pool.Ethereum).Return(nil, store.ErrNotFound)

		w := httptest.NewRecorder()
		h.Status(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var resp StatusResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Nil(t, resp.LastRun)
		require.Len(t, resp.PoolTypes, 2)
		require.Zero(t, resp.TotalPools)
	})

	t.Run("watermark error", func(t *testing.T) {
		t.Parallel()

		h, db := newTestHandler(t)
		db.EXPECT().Watermarks(mock.Anything, pool.Ethereum).Return(nil, errors.New("boom"))

		w := httptest.NewRecorder()
		h.Status(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

		require.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHandler_Health(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		t.Parallel()

		h, db := newTestHandler(t)
		db.EXPECT().CountPools(mock.Anything, pool.Ethereum).Return(map[pool.PoolType]int{}, nil)

		w := httptest.NewRecorder()
		h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var resp HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Equal(t, "ok", resp.Status)
		require.True(t, resp.Database)
		require.Equal(t, "ethereum", resp.Chain)
		require.False(t, resp.Timestamp.IsZero())
	})

	t.Run("database down", func(t *testing.T) {
		t.Parallel()

		h, db := newTestHandler(t)
		db.EXPECT().CountPools(mock.Anything, pool.Ethereum).Return(nil, errors.New("closed"))

		w := httptest.NewRecorder()
		h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var resp HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Equal(t, "degraded", resp.Status)
		require.False(t, resp.Database)
	})
}

func TestRespondJSON_EncodeError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondJSON(w, http.StatusOK, map[string]any{"bad": make(chan int)})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "Failed to encode response")
}
