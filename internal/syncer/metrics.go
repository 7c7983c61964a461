package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	headBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "poolsync_head_block",
			Help: "The block treated as chain head by the last head query",
		},
	)

	droppedChunks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolsync_dropped_chunks_total",
			Help: "Number of fetch chunks dropped after retries were exhausted",
		},
		[]string{"pool_type", "kind"},
	)

	logsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolsync_logs_fetched_total",
			Help: "Number of logs fetched by pool type and kind",
		},
		[]string{"pool_type", "kind"},
	)

	rangeSplits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "poolsync_log_range_splits_total",
			Help: "Number of log ranges split after a too many results response",
		},
	)

	poolsBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolsync_pools_built_total",
			Help: "Number of pools whose metadata was fetched",
		},
		[]string{"pool_type"},
	)

	logsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolsync_liquidity_logs_applied_total",
			Help: "Number of liquidity logs applied to pools",
		},
		[]string{"pool_type"},
	)
)

func HeadBlockSet(block uint64) {
	headBlock.Set(float64(block))
}

func DroppedChunkInc(poolType, kind string) {
	droppedChunks.WithLabelValues(poolType, kind).Inc()
}

func LogsFetchedAdd(poolType, kind string, n int) {
	logsFetched.WithLabelValues(poolType, kind).Add(float64(n))
}

func RangeSplitInc() {
	rangeSplits.Inc()
}

func PoolsBuiltAdd(poolType string, n int) {
	poolsBuilt.WithLabelValues(poolType).Add(float64(n))
}

func LogsAppliedAdd(poolType string, n int) {
	logsApplied.WithLabelValues(poolType).Add(float64(n))
}
