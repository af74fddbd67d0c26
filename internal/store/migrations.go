package store

import (
	"database/sql"
	"fmt"

	"github.com/hyperengineering/pagesmith/migrations"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies all pending database migrations for the given dialect
// ("sqlite" or "postgres") using the embedded SQL files. Migrations only create
// missing objects; existing data is never dropped on startup.
func RunMigrations(db *sql.DB, dialect string) error {
	// Disable goose's default logging to avoid stdout noise
	goose.SetLogger(goose.NopLogger())

	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, dialect); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// SchemaVersion returns the current goose schema version.
func SchemaVersion(db *sql.DB, dialect string) (int64, error) {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return 0, fmt.Errorf("set dialect: %w", err)
	}
	return goose.GetDBVersion(db)
}
