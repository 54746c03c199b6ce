package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/google/uuid"
)

const userColumns = `id, external_id, name, email, credential_hash, created_at, updated_at`

// UserStore implements authcore.UserProvider over the users table.
type UserStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewUserStore returns a UserStore that stamps rows with time.Now.
func NewUserStore(db *sql.DB, dialect Dialect) *UserStore {
	return &UserStore{db: db, dialect: dialect, now: time.Now}
}

// WithClock replaces the time source used for created_at/updated_at.
func (s *UserStore) WithClock(now func() time.Time) *UserStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *UserStore) GetUserByExternalID(ctx context.Context, externalID string) (authcore.UserRecord, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+userColumns+` FROM users WHERE external_id = $1`), externalID)
	return scanUser(row)
}

func (s *UserStore) GetUserByID(ctx context.Context, userID string) (authcore.UserRecord, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+userColumns+` FROM users WHERE id = $1`), userID)
	return scanUser(row)
}

// CreateUser inserts a user with a fresh UUID. A duplicate external id or
// email yields authcore.ErrAccountExists.
func (s *UserStore) CreateUser(ctx context.Context, input authcore.CreateUserInput) (authcore.UserRecord, error) {
	now := s.now().UTC()
	rec := authcore.UserRecord{
		UserID:       uuid.NewString(),
		ExternalID:   strings.TrimSpace(input.ExternalID),
		Name:         input.Name,
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: input.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`),
		rec.UserID,
		rec.ExternalID,
		rec.Name,
		rec.Email,
		rec.PasswordHash,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return authcore.UserRecord{}, authcore.ErrAccountExists
		}
		return authcore.UserRecord{}, fmt.Errorf("sqlstore: create user: %w", err)
	}
	return rec, nil
}

// UpdatePasswordHash replaces the stored credential hash of userID.
func (s *UserStore) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		UPDATE users SET credential_hash = $1, updated_at = $2 WHERE id = $3`),
		newHash, s.now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("sqlstore: update password hash: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: update password hash: %w", err)
	}
	if n == 0 {
		return authcore.ErrUserNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (authcore.UserRecord, error) {
	var rec authcore.UserRecord
	err := row.Scan(
		&rec.UserID,
		&rec.ExternalID,
		&rec.Name,
		&rec.Email,
		&rec.PasswordHash,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return authcore.UserRecord{}, authcore.ErrUserNotFound
	}
	if err != nil {
		return authcore.UserRecord{}, fmt.Errorf("sqlstore: load user: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}
