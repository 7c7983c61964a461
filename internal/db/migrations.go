package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/goran-ethernal/PoolSync/internal/logger"
	migrate "github.com/rubenv/sql-migrate"
)

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"

	// Dialects understood by sql-migrate.
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

// Migration is one embedded schema change. SQL holds an optional Down section
// followed by the Up section.
type Migration struct {
	ID  string
	SQL string
}

func (m Migration) toSQLMigrate() (*migrate.Migration, error) {
	down, up, found := strings.Cut(m.SQL, upMarker)
	if !found {
		return nil, fmt.Errorf("migration %s missing %q separator", m.ID, upMarker)
	}

	if _, after, ok := strings.Cut(down, downMarker); ok {
		down = after
	}

	return &migrate.Migration{
		Id:   m.ID,
		Up:   []string{strings.TrimSpace(up)},
		Down: []string{strings.TrimSpace(down)},
	}, nil
}

// RunMigrations applies every pending migration in order.
func RunMigrations(log *logger.Logger, db *sql.DB, dialect string, migrations []Migration) error {
	source := &migrate.MemoryMigrationSource{Migrations: make([]*migrate.Migration, 0, len(migrations))}
	ids := make([]string, 0, len(migrations))

	for _, m := range migrations {
		mig, err := m.toSQLMigrate()
		if err != nil {
			return err
		}
		source.Migrations = append(source.Migrations, mig)
		ids = append(ids, m.ID)
	}

	applied, err := migrate.Exec(db, dialect, source, migrate.Up)
	if err != nil {
		return fmt.Errorf("error executing %s migrations [%s]: %w", dialect, strings.Join(ids, ", "), err)
	}

	log.Infof("applied %d of %d %s migrations", applied, len(ids), dialect)
	return nil
}
