package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/goran-ethernal/PoolSync/internal/logger"
	"github.com/goran-ethernal/PoolSync/pkg/config"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T, journal string) (*sql.DB, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "pools.db")

	dbConfig := config.DatabaseConfig{Path: dbPath, JournalMode: journal}
	dbConfig.ApplyDefaults()

	sqlDB, err := NewSQLiteDBFromConfig(dbConfig)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	_, err = sqlDB.Exec(`CREATE TABLE IF NOT EXISTS test_table (id INTEGER PRIMARY KEY, value TEXT);`)
	require.NoError(t, err)

	for i := range 2000 {
		_, err = sqlDB.Exec(`INSERT INTO test_table (value) VALUES (?);`, fmt.Sprintf("value_%d", i))
		require.NoError(t, err)
	}

	return sqlDB, dbPath
}

func TestVacuum_Modes(t *testing.T) {
	t.Parallel()

	for _, journal := range []string{"WAL", "TRUNCATE"} {
		t.Run(journal, func(t *testing.T) {
			t.Parallel()

			db, dbPath := setupTestDB(t, journal)

			_, err := db.Exec(`DELETE FROM test_table WHERE id % 2 = 0`)
			require.NoError(t, err)

			initialSize, err := DBTotalSize(dbPath)
			require.NoError(t, err)

			require.NoError(t, Vacuum(db))

			finalSize, err := DBTotalSize(dbPath)
			require.NoError(t, err)
			require.LessOrEqual(t, finalSize, initialSize)
		})
	}
}

func TestDBTotalSize(t *testing.T) {
	testCases := []struct {
		name       string
		files      map[string]string
		expectSize int64
	}{
		{
			name:       "MainOnly",
			files:      map[string]string{"": "main-db-content"},
			expectSize: int64(len("main-db-content")),
		},
		{
			name:       "WithWALAndSHM",
			files:      map[string]string{"": "main-db", "-wal": "wal-content", "-shm": "shm-content"},
			expectSize: int64(len("main-db") + len("wal-content") + len("shm-content")),
		},
		{
			name:       "MissingFiles",
			files:      nil,
			expectSize: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mainPath := filepath.Join(t.TempDir(), "main.db")
			for suffix, content := range tc.files {
				require.NoError(t, os.WriteFile(mainPath+suffix, []byte(content), 0o600))
			}

			size, err := DBTotalSize(mainPath)
			require.NoError(t, err)
			require.Equal(t, tc.expectSize, size)
		})
	}
}

func TestRunMigrations(t *testing.T) {
	log := logger.NewNopLogger()

	sqlDB, err := NewSQLiteDB(filepath.Join(t.TempDir(), "migrations.db"))
	require.NoError(t, err)
	defer sqlDB.Close()

	migrations := []Migration{
		{
			ID: "001_things.sql",
			SQL: `-- +migrate Down
DROP TABLE IF EXISTS things;

-- +migrate Up
CREATE TABLE things (id INTEGER PRIMARY KEY, name TEXT NOT NULL);`,
		},
	}

	require.NoError(t, RunMigrations(log, sqlDB, DialectSQLite, migrations))
	// already applied migrations are skipped
	require.NoError(t, RunMigrations(log, sqlDB, DialectSQLite, migrations))

	_, err = sqlDB.Exec(`INSERT INTO things (name) VALUES ('a')`)
	require.NoError(t, err)

	err = RunMigrations(log, sqlDB, DialectSQLite, []Migration{{ID: "002_broken.sql", SQL: "CREATE TABLE x (id INT);"}})
	require.ErrorContains(t, err, "missing")
}
