package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apimocks "github.com/goran-ethernal/PoolSync/internal/api/mocks"
	"github.com/goran-ethernal/PoolSync/internal/common"
	"github.com/goran-ethernal/PoolSync/internal/logger"
	"github.com/goran-ethernal/PoolSync/pkg/config"
	"github.com/goran-ethernal/PoolSync/pkg/pool"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testAPIConfig(enabled bool, cors config.CORSConfig) *config.APIConfig {
	return &config.APIConfig{
		Enabled:       enabled,
		ListenAddress: "localhost:0",
		ReadTimeout:   common.Duration{Duration: 5 * time.Second},
		WriteTimeout:  common.Duration{Duration: 10 * time.Second},
		IdleTimeout:   common.Duration{Duration: 60 * time.Second},
		CORS:          cors,
	}
}

func TestNewServer(t *testing.T) {
	t.Parallel()

	db := apimocks.NewPoolReader(t)
	server := NewServer(testAPIConfig(true, config.CORSConfig{}), db, pool.Ethereum, nil, logger.NewNopLogger())

	require.NotNil(t, server.handler)
	require.Equal(t, "localhost:0", server.server.Addr)
	require.Equal(t, 5*time.Second, server.server.ReadTimeout)
	require.Equal(t, 10*time.Second, server.server.WriteTimeout)
	require.Equal(t, 60*time.Second, server.server.IdleTimeout)
}

func TestServer_Routes(t *testing.T) {
	t.Parallel()

	db := apimocks.NewPoolReader(t)
	db.EXPECT().CountPools(mock.Anything, pool.Base).Return(map[pool.PoolType]int{pool.UniswapV2: 1}, nil).Maybe()
	db.EXPECT().LoadPools(mock.Anything, pool.Base, []pool.PoolType(nil)).Return(testPools(2), nil).Maybe()
	db.EXPECT().Watermarks(mock.Anything, pool.Base).Return(map[pool.PoolType]uint64{pool.UniswapV2: 10}, nil).Maybe()
	db.EXPECT().LastRun(mock.Anything, pool.Base).Return(nil, nil).Maybe()

	server := NewServer(testAPIConfig(true, config.CORSConfig{}), db, pool.Base, nil, logger.NewNopLogger())
	h := server.Handler()

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/v1/pools", http.StatusOK},
		{http.MethodGet, "/api/v1/pools/0xzz", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/status", http.StatusOK},
		{http.MethodPost, "/api/v1/pools", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			require.Equal(t, tt.status, w.Code)
		})
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/pools?limit=1", nil))

	var resp PoolsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Pools, 1)
	require.True(t, resp.Pagination.HasMore)
}

func TestServer_CORS(t *testing.T) {
	t.Parallel()

	db := apimocks.NewPoolReader(t)
	db.EXPECT().CountPools(mock.Anything, pool.Ethereum).Return(map[pool.PoolType]int{}, nil).Maybe()

	enabled := NewServer(testAPIConfig(true, config.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"http://localhost:3000"},
	}), db, pool.Ethereum, nil, logger.NewNopLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	enabled.Handler().ServeHTTP(w, req)
	require.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	disabled := NewServer(testAPIConfig(true, config.CORSConfig{}), db, pool.Ethereum, nil, logger.NewNopLogger())

	w = httptest.NewRecorder()
	disabled.Handler().ServeHTTP(w, req)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_Start_Disabled(t *testing.T) {
	t.Parallel()

	server := NewServer(testAPIConfig(false, config.CORSConfig{}), apimocks.NewPoolReader(t),
		pool.Ethereum, nil, logger.NewNopLogger())

	done := make(chan error, 1)
	go func() {
		done <- server.Start(context.Background())
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start() did not return when server is disabled")
	}
}

func TestServer_Start_GracefulShutdown(t *testing.T) {
	t.Parallel()

	server := NewServer(testAPIConfig(true, config.CORSConfig{}), apimocks.NewPoolReader(t),
		pool.Ethereum, nil, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- server.Start(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(shutdownCtxTimeout + 5*time.Second):
		t.Fatal("server did not shut down within timeout")
	}
}
