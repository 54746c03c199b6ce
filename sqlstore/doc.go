// Package sqlstore persists users and refresh sessions in a relational
// database through database/sql.
//
// Two dialects are supported: PostgreSQL via the pgx stdlib driver and SQLite
// via modernc.org/sqlite. Queries are written once with $N placeholders and
// rebound per dialect. The schema is versioned with goose migrations embedded
// in the binary; call Migrate before constructing the stores.
//
// SessionStore implements session.Store and session.Pruner. Revocation is a
// conditional UPDATE on revoked = FALSE, so the database row lock decides the
// single winner of concurrent rotations.
package sqlstore
