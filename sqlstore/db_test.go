package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	for raw, want := range map[string]Dialect{
		"postgres":   Postgres,
		"PostgreSQL": Postgres,
		"pgx":        Postgres,
		" sqlite ":   SQLite,
		"sqlite3":    SQLite,
	} {
		got, err := ParseDialect(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}
	_, err := ParseDialect("mysql")
	require.Error(t, err)
}

func TestRebind(t *testing.T) {
	query := `UPDATE refresh_sessions SET last_used_at = $1 WHERE jti = $2`
	require.Equal(t, query, Postgres.rebind(query))
	require.Equal(t, `UPDATE refresh_sessions SET last_used_at = ?1 WHERE jti = ?2`, SQLite.rebind(query))
}

func TestIsUniqueViolation(t *testing.T) {
	require.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	require.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	require.True(t, isUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: refresh_sessions.jti (2067)")))
	require.False(t, isUniqueViolation(errors.New("database is locked")))
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db := newSQLiteDB(t)
	seedUsers(t, db, "user-a")

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `UPDATE users SET name = 'renamed' WHERE id = 'user-a'`)
		return err
	})
	require.NoError(t, err)

	var name string
	require.NoError(t, db.QueryRow(`SELECT name FROM users WHERE id = 'user-a'`).Scan(&name))
	require.Equal(t, "renamed", name, "must commit on success")
}

func TestWithTx_RollbackOnFnError(t *testing.T) {
	db := newSQLiteDB(t)
	seedUsers(t, db, "user-a")

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `UPDATE users SET name = 'renamed' WHERE id = 'user-a'`)
		require.NoError(t, e)
		return errors.New("boom")
	})
	require.Error(t, err)

	var name string
	require.NoError(t, db.QueryRow(`SELECT name FROM users WHERE id = 'user-a'`).Scan(&name))
	require.Equal(t, "user-a", name, "must rollback when fn returns error")
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db, mock := newPostgresMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	require.Panics(t, func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			panic("kaput")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_SelectsDialectMigrations(t *testing.T) {
	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var (
		gotDialect goose.Dialect
		gotFiles   []string
	)
	gooseUp = func(_ context.Context, dialect goose.Dialect, _ *sql.DB, fsys fs.FS) error {
		gotDialect = dialect
		entries, err := fs.ReadDir(fsys, ".")
		if err != nil {
			return err
		}
		for _, e := range entries {
			gotFiles = append(gotFiles, e.Name())
		}
		return nil
	}

	require.NoError(t, Migrate(context.Background(), nil, Postgres))
	require.Equal(t, goose.DialectPostgres, gotDialect)
	require.Equal(t, []string{"00001_init.sql"}, gotFiles)

	gotFiles = nil
	require.NoError(t, Migrate(context.Background(), nil, SQLite))
	require.Equal(t, goose.DialectSQLite3, gotDialect)
	require.Equal(t, []string{"00001_init.sql"}, gotFiles)

	require.Error(t, Migrate(context.Background(), nil, Dialect("oracle")))
}

func TestMigrate_WrapsGooseError(t *testing.T) {
	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })
	gooseUp = func(context.Context, goose.Dialect, *sql.DB, fs.FS) error {
		return errors.New("lock timeout")
	}

	err := Migrate(context.Background(), nil, Postgres)
	require.ErrorContains(t, err, "lock timeout")
}

func TestMigrate_SQLiteIsIdempotent(t *testing.T) {
	db := newSQLiteDB(t)
	require.NoError(t, Migrate(context.Background(), db, SQLite))
}
