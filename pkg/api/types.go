package api

import (
	"time"

	"github.com/goran-ethernal/PoolSync/pkg/pool"
	"github.com/goran-ethernal/PoolSync/pkg/store"
)

// QueryParams represents the query parameters of the pool listing.
type QueryParams struct {
	Limit  int             `json:"limit" form:"limit"`
	Offset int             `json:"offset" form:"offset"`
	Types  []pool.PoolType `json:"types,omitempty" form:"type"`
}

// PoolsResponse is a page of pools.
type PoolsResponse struct {
	Pools      []*pool.Pool     `json:"pools"`
	Pagination PaginationResult `json:"pagination"`
}

// PaginationResult contains pagination metadata.
type PaginationResult struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Chain     string    `json:"chain"`
	Database  bool      `json:"database"`
}

// PoolTypeStatus is the sync progress of one pool type.
type PoolTypeStatus struct {
	Type               pool.PoolType `json:"type"`
	LastProcessedBlock uint64        `json:"last_processed_block"`
	Pools              int           `json:"pools"`
}

// StatusResponse summarizes the sync state of the chain.
type StatusResponse struct {
	Chain      string           `json:"chain"`
	TotalPools int              `json:"total_pools"`
	PoolTypes  []PoolTypeStatus `json:"pool_types"`
	LastRun    *store.SyncRun   `json:"last_run,omitempty"`
}
