package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync metrics
	syncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolsync_sync_runs_total",
			Help: "Total number of SyncPools runs by outcome",
		},
		[]string{"status"},
	)

	syncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poolsync_sync_duration_seconds",
			Help:    "Duration of SyncPools runs",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 3600},
		},
		[]string{"status"},
	)

	passDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poolsync_pool_type_pass_duration_seconds",
			Help:    "Time taken to bring one pool type up to the head",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pool_type"},
	)

	watermark = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "poolsync_last_processed_block",
			Help: "The last block processed per pool type",
		},
		[]string{"pool_type"},
	)

	blocksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolsync_blocks_processed_total",
			Help: "Total number of blocks processed per pool type",
		},
		[]string{"pool_type"},
	)

	poolsTracked = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "poolsync_pools",
			Help: "Number of pools in the working set per pool type",
		},
		[]string{"pool_type"},
	)

	newPools = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolsync_new_pools_total",
			Help: "Total number of newly discovered pools",
		},
		[]string{"pool_type"},
	)

	poolConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolsync_pool_type_conflicts_total",
			Help: "Discovered addresses skipped because another pool type owns them",
		},
		[]string{"pool_type"},
	)

	gapsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolsync_gaps_recorded_total",
			Help: "Total number of gaps persisted",
		},
		[]string{"pool_type", "kind"},
	)

	gapsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolsync_gaps_resolved_total",
			Help: "Total number of gaps resolved by a re-run",
		},
		[]string{"pool_type"},
	)

	// System metrics
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "poolsync_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)

	ComponentHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "poolsync_component_health",
			Help: "Component health status (1=healthy, 0=unhealthy)",
		},
		[]string{"component"},
	)

	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "poolsync_goroutines",
			Help: "Number of active goroutines",
		},
	)

	MemoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "poolsync_memory_usage_bytes",
			Help: "Memory usage statistics",
		},
		[]string{"type"},
	)

	startTime = time.Now()
)

func SyncRunLog(status string, duration time.Duration) {
	syncRuns.WithLabelValues(status).Inc()
	syncDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func PassDurationLog(poolType string, duration time.Duration) {
	passDuration.WithLabelValues(poolType).Observe(duration.Seconds())
}

func WatermarkSet(poolType string, block uint64) {
	watermark.WithLabelValues(poolType).Set(float64(block))
}

func BlocksProcessedAdd(poolType string, count uint64) {
	blocksProcessed.WithLabelValues(poolType).Add(float64(count))
}

func PoolsTrackedSet(poolType string, count int) {
	poolsTracked.WithLabelValues(poolType).Set(float64(count))
}

func NewPoolsAdd(poolType string, count int) {
	newPools.WithLabelValues(poolType).Add(float64(count))
}

func PoolConflictInc(poolType string) {
	poolConflicts.WithLabelValues(poolType).Inc()
}

func GapRecordedInc(poolType, kind string) {
	gapsRecorded.WithLabelValues(poolType, kind).Inc()
}

func GapResolvedInc(poolType string) {
	gapsResolved.WithLabelValues(poolType).Inc()
}

func ComponentHealthSet(component string, healthy bool) {
	boolAsFloat := float64(1)
	if !healthy {
		boolAsFloat = 0
	}

	ComponentHealth.WithLabelValues(component).Set(boolAsFloat)
}

// UpdateSystemMetrics updates runtime system metrics.
// This should be called periodically (e.g., every 15 seconds).
func UpdateSystemMetrics() {
	Uptime.Set(time.Since(startTime).Seconds())

	Goroutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	MemoryUsage.WithLabelValues("alloc").Set(float64(m.Alloc))
	MemoryUsage.WithLabelValues("total_alloc").Set(float64(m.TotalAlloc))
	MemoryUsage.WithLabelValues("sys").Set(float64(m.Sys))
	MemoryUsage.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))
}
