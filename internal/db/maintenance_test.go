package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goran-ethernal/PoolSync/internal/common"
	"github.com/goran-ethernal/PoolSync/internal/logger"
	"github.com/goran-ethernal/PoolSync/pkg/config"
	"github.com/stretchr/testify/require"
)

func setupMaintenanceTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "maintenance.db")

	dbConfig := config.DatabaseConfig{Path: dbPath, JournalMode: "WAL"}
	dbConfig.ApplyDefaults()

	db, err := NewSQLiteDBFromConfig(dbConfig)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS test_data (id INTEGER PRIMARY KEY, data TEXT)`)
	require.NoError(t, err)

	return db, dbPath
}

func newTestCoordinator(t *testing.T, cfg config.MaintenanceConfig) (*MaintenanceCoordinator, *sql.DB) {
	t.Helper()

	db, dbPath := setupMaintenanceTestDB(t)
	cfg.ApplyDefaults()

	m := NewMaintenanceCoordinator(dbPath, db, &cfg, logger.NewNopLogger())
	coordinator, ok := m.(*MaintenanceCoordinator)
	require.True(t, ok)

	return coordinator, db
}

func TestNewMaintenanceCoordinator_NilConfig(t *testing.T) {
	db, dbPath := setupMaintenanceTestDB(t)

	m := NewMaintenanceCoordinator(dbPath, db, nil, logger.NewNopLogger())
	require.IsType(t, NoOpMaintenance{}, m)

	require.NoError(t, m.Start(context.Background()))
	m.AcquireOperationLock()()
	require.NoError(t, m.RunMaintenance(context.Background()))
	require.Equal(t, MaintenanceMetrics{}, m.GetMetrics())
	require.NoError(t, m.Stop())
}

func TestMaintenanceCoordinator_RunMaintenance(t *testing.T) {
	coordinator, db := newTestCoordinator(t, config.MaintenanceConfig{Enabled: true})

	for i := range 500 {
		_, err := db.Exec(`INSERT INTO test_data (data) VALUES (?)`, i)
		require.NoError(t, err)
	}
	_, err := db.Exec(`DELETE FROM test_data`)
	require.NoError(t, err)

	require.NoError(t, coordinator.RunMaintenance(context.Background()))

	metrics := coordinator.GetMetrics()
	require.Equal(t, uint64(1), metrics.MaintenanceCount)
	require.False(t, metrics.LastMaintenanceTime.IsZero())
	require.NoError(t, metrics.LastMaintenanceError)
	require.Equal(t, common.ComponentMaintenance, coordinator.log.GetComponent())
}

func TestMaintenanceCoordinator_MaintenanceWaitsForOperations(t *testing.T) {
	coordinator, _ := newTestCoordinator(t, config.MaintenanceConfig{Enabled: true})

	unlock := coordinator.AcquireOperationLock()

	var done atomic.Bool
	finished := make(chan error, 1)
	go func() {
		err := coordinator.RunMaintenance(context.Background())
		done.Store(true)
		finished <- err
	}()

	time.Sleep(100 * time.Millisecond)
	require.False(t, done.Load(), "maintenance must wait for the running operation")

	unlock()

	select {
	case err := <-finished:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("maintenance did not finish after the operation released its lock")
	}
}

func TestMaintenanceCoordinator_Background(t *testing.T) {
	coordinator, _ := newTestCoordinator(t, config.MaintenanceConfig{
		Enabled:         true,
		VacuumOnStartup: true,
		CheckInterval:   common.NewDuration(50 * time.Millisecond),
	})

	require.NoError(t, coordinator.Start(context.Background()))
	require.Eventually(t, func() bool {
		return coordinator.GetMetrics().MaintenanceCount >= 2
	}, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, coordinator.Stop())
}

func TestMaintenanceCoordinator_Disabled(t *testing.T) {
	coordinator, _ := newTestCoordinator(t, config.MaintenanceConfig{
		Enabled:       false,
		CheckInterval: common.NewDuration(10 * time.Millisecond),
	})

	require.NoError(t, coordinator.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, coordinator.Stop())
	require.Zero(t, coordinator.GetMetrics().MaintenanceCount)
}

func TestMaintenanceCoordinator_CancelledContext(t *testing.T) {
	coordinator, _ := newTestCoordinator(t, config.MaintenanceConfig{Enabled: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, coordinator.RunMaintenance(ctx), context.Canceled)
}
