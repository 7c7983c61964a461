package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/PoolSync/internal/logger"
	"github.com/goran-ethernal/PoolSync/pkg/pool"
	"github.com/goran-ethernal/PoolSync/pkg/store"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// PoolReader is the read side of the pool database used by the API.
type PoolReader interface {
	LoadPools(ctx context.Context, chain pool.Chain, types []pool.PoolType) ([]*pool.Pool, error)
	GetPool(ctx context.Context, chain pool.Chain, address common.Address) (*pool.Pool, error)
	CountPools(ctx context.Context, chain pool.Chain) (map[pool.PoolType]int, error)
	Watermarks(ctx context.Context, chain pool.Chain) (map[pool.PoolType]uint64, error)
	LastRun(ctx context.Context, chain pool.Chain) (*store.SyncRun, error)
}

// Handler handles HTTP requests for the API.
type Handler struct {
	db    PoolReader
	chain pool.Chain
	types []pool.PoolType
	log   *logger.Logger
}

// NewHandler creates a new API handler serving the pools of chain.
// types are always listed in the status response, even before their first sync.
func NewHandler(db PoolReader, chain pool.Chain, types []pool.PoolType, log *logger.Logger) *Handler {
	return &Handler{
		db:    db,
		chain: chain,
		types: types,
		log:   log,
	}
}

// ListPools returns a page of stored pools.
// @Summary List pools
// @Description Get the stored pools of the chain ordered by address, optionally filtered by pool type
// @Tags Pools
// @Produce json
// @Param type query string false "Comma separated pool types to filter by"
// @Param limit query int false "Maximum number of pools to return" default(100)
// @Param offset query int false "Number of pools to skip" default(0)
// @Success 200 {object} PoolsResponse "Pools with pagination info"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /pools [get]
func (h *Handler) ListPools(w http.ResponseWriter, r *http.Request) {
	params, err := parseQueryParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid query parameters: %v", err))
		return
	}

	pools, err := h.db.LoadPools(r.Context(), h.chain, params.Types)
	if err != nil {
		h.log.Errorf("failed to load pools: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load pools")
		return
	}

	total := len(pools)
	start := min(params.Offset, total)
	end := min(start+params.Limit, total)

	page := pools[start:end]
	if page == nil {
		page = []*pool.Pool{}
	}

	respondJSON(w, http.StatusOK, PoolsResponse{
		Pools: page,
		Pagination: PaginationResult{
			Total:   total,
			Limit:   params.Limit,
			Offset:  params.Offset,
			HasMore: end < total,
		},
	})
}

// GetPool returns a single pool.
// @Summary Get a pool
// @Description Get a stored pool by its address
// @Tags Pools
// @Produce json
// @Param address path string true "Pool address"
// @Success 200 {object} pool.Pool "The pool"
// @Failure 400 {object} ErrorResponse "Invalid address"
// @Failure 404 {object} ErrorResponse "Pool not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /pools/{address} [get]
func (h *Handler) GetPool(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("address")
	if !common.IsHexAddress(raw) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid address '%s'", raw))
		return
	}
	address := common.HexToAddress(raw)

	p, err := h.db.GetPool(r.Context(), h.chain, address)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("pool '%s' not found", address.Hex()))
		return
	}
	if err != nil {
		h.log.Errorf("failed to get pool %s: %v", address.Hex(), err)
		respondError(w, http.StatusInternalServerError, "failed to get pool")
		return
	}

	respondJSON(w, http.StatusOK, p)
}

// Status returns watermarks, pool counts and the last sync run.
// @Summary Sync status
// @Description Get the last processed block and pool count per pool type together with the last sync run
// @Tags Status
// @Produce json
// @Success 200 {object} StatusResponse "Sync status"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	marks, err := h.db.Watermarks(ctx, h.chain)
	if err != nil {
		h.log.Errorf("failed to load watermarks: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load watermarks")
		return
	}

	counts, err := h.db.CountPools(ctx, h.chain)
	if err != nil {
		h.log.Errorf("failed to count pools: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to count pools")
		return
	}

	run, err := h.db.LastRun(ctx, h.chain)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.log.Errorf("failed to load last run: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load last run")
		return
	}

	seen := make(map[pool.PoolType]struct{})
	types := make([]pool.PoolType, 0, len(h.types)+len(marks))
	for _, set := range [][]pool.PoolType{h.types, keys(marks), keys(counts)} {
		for _, t := range set {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				types = append(types, t)
			}
		}
	}
	pool.SortPoolTypes(types)

	resp := StatusResponse{
		Chain:     h.chain.String(),
		PoolTypes: make([]PoolTypeStatus, 0, len(types)),
		LastRun:   run,
	}
	for _, t := range types {
		resp.PoolTypes = append(resp.PoolTypes, PoolTypeStatus{
			Type:               t,
			LastProcessedBlock: marks[t],
			Pools:              counts[t],
		})
		resp.TotalPools += counts[t]
	}

	respondJSON(w, http.StatusOK, resp)
}

// Health returns the health status of the API and its database.
// @Summary Health check
// @Description Check the health status of the API and the pool database
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Healthy"
// @Failure 503 {object} HealthResponse "Database unavailable"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	_, err := h.db.CountPools(r.Context(), h.chain)

	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Chain:     h.chain.String(),
		Database:  err == nil,
	}

	status := http.StatusOK
	if err != nil {
		h.log.Warnf("health check failed: %v", err)
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, resp)
}

func keys[V any](m map[pool.PoolType]V) []pool.PoolType {
	out := make([]pool.PoolType, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// parseQueryParams parses HTTP query parameters into QueryParams.
func parseQueryParams(r *http.Request) (*QueryParams, error) {
	params := &QueryParams{Limit: defaultLimit}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > maxLimit {
			return params, fmt.Errorf("invalid limit: must be between 1 and %d", maxLimit)
		}
		params.Limit = limit
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return params, fmt.Errorf("invalid offset: must be non-negative")
		}
		params.Offset = offset
	}

	if typeStr := r.URL.Query().Get("type"); typeStr != "" {
		for name := range strings.SplitSeq(typeStr, ",") {
			t, err := pool.ParsePoolType(name)
			if err != nil {
				return params, err
			}
			params.Types = append(params.Types, t)
		}
	}

	return params, nil
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")

	// Encode first so an encoding failure can still change the status
	encoded, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)

	// Headers are already sent, nothing left to report to
	_, _ = w.Write(encoded)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	response := ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}
	respondJSON(w, status, response)
}
