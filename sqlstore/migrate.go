package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// gooseUp is a seam for tests.
var gooseUp = func(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS) error {
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

// Migrate applies all pending schema migrations for dialect.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	var (
		gooseDialect goose.Dialect
		dir          string
	)
	switch dialect {
	case Postgres:
		gooseDialect, dir = goose.DialectPostgres, "migrations/postgres"
	case SQLite:
		gooseDialect, dir = goose.DialectSQLite3, "migrations/sqlite"
	default:
		return fmt.Errorf("sqlstore: unsupported dialect %q", dialect)
	}

	fsys, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("sqlstore: migrations: %w", err)
	}
	if err := gooseUp(ctx, gooseDialect, db, fsys); err != nil {
		return fmt.Errorf("sqlstore: migrate %s: %w", dialect, err)
	}
	return nil
}
