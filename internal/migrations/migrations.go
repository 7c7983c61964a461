package migrations

import (
	"database/sql"
	_ "embed"

	"github.com/goran-ethernal/PoolSync/internal/db"
	"github.com/goran-ethernal/PoolSync/internal/logger"
)

//go:embed sqlite/001_pools.sql
var sqlite001 string

//go:embed sqlite/002_gaps_runs.sql
var sqlite002 string

//go:embed postgres/001_pools.sql
var postgres001 string

//go:embed postgres/002_gaps_runs.sql
var postgres002 string

// SQLite returns the schema migrations of the SQLite pool store.
func SQLite() []db.Migration {
	return []db.Migration{
		{ID: "001_pools.sql", SQL: sqlite001},
		{ID: "002_gaps_runs.sql", SQL: sqlite002},
	}
}

// Postgres returns the schema migrations of the Postgres pool store.
func Postgres() []db.Migration {
	return []db.Migration{
		{ID: "001_pools.sql", SQL: postgres001},
		{ID: "002_gaps_runs.sql", SQL: postgres002},
	}
}

// RunSQLite brings a SQLite database to the latest schema.
func RunSQLite(log *logger.Logger, sqlDB *sql.DB) error {
	return db.RunMigrations(log, sqlDB, db.DialectSQLite, SQLite())
}

// RunPostgres brings a Postgres database to the latest schema.
func RunPostgres(log *logger.Logger, sqlDB *sql.DB) error {
	return db.RunMigrations(log, sqlDB, db.DialectPostgres, Postgres())
}
