package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrations embed.FS

// schemaVersion is the version of the newest file under migrations/.
const schemaVersion = 3

const migrationsTable = "schema_migrations"

// runMigrations applies every pending up migration.
func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	defer src.Close()

	target, err := migratesqlite.WithInstance(db, &migratesqlite.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	// m is not closed: that would close db as well.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", target)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// SchemaVersion returns the applied migration version and whether the last
// migration was left half-applied.
func (s *Store) SchemaVersion(ctx context.Context) (version int, dirty bool, err error) {
	q, args := entsql.Dialect(sqliteDialect).
		Select("version", "dirty").
		From(entsql.Table(migrationsTable)).
		Limit(1).
		Query()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, q, args, &rows); err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, false, rows.Err()
	}
	if err := rows.Scan(&version, &dirty); err != nil {
		return 0, false, fmt.Errorf("scan schema version: %w", err)
	}
	return version, dirty, rows.Err()
}
