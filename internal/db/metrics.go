package db

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	maintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolsync_maintenance_runs_total",
			Help: "Total number of maintenance runs by outcome",
		},
		[]string{"status"},
	)

	maintenanceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "poolsync_maintenance_duration_seconds",
			Help:    "Duration of maintenance runs",
			Buckets: prometheus.DefBuckets,
		},
	)

	walCheckpoints = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolsync_wal_checkpoint_total",
			Help: "Total number of WAL checkpoint operations",
		},
		[]string{"mode"},
	)

	vacuumRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "poolsync_vacuum_total",
			Help: "Total number of VACUUM operations",
		},
	)

	dbSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "poolsync_db_size_bytes",
			Help: "Database size in bytes including WAL files",
		},
	)

	storeOps = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poolsync_store_operation_duration_seconds",
			Help:    "Duration of pool store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"driver", "operation"},
	)
)

func MaintenanceRunLog(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	maintenanceRuns.WithLabelValues(status).Inc()
	maintenanceDuration.Observe(duration.Seconds())
}

func WALCheckpointInc(mode string) {
	walCheckpoints.WithLabelValues(mode).Inc()
}

func VacuumRunsInc() {
	vacuumRuns.Inc()
}

func DBSizeLog(sizeBytes int64) {
	dbSize.Set(float64(sizeBytes))
}

// StoreOperation returns a func recording the duration of a store operation when called.
func StoreOperation(driver, operation string) func() {
	start := time.Now()
	return func() {
		storeOps.WithLabelValues(driver, operation).Observe(time.Since(start).Seconds())
	}
}
