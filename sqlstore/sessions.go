package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/session"
)

const sessionColumns = `id, user_id, jti, token_fingerprint, expires_at, revoked, user_agent, ip, created_at, last_used_at`

// SessionStore is a session.Store backed by the refresh_sessions table.
type SessionStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSessionStore returns a store over db. The schema must already be migrated.
func NewSessionStore(db *sql.DB, dialect Dialect) *SessionStore {
	return &SessionStore{db: db, dialect: dialect}
}

func (s *SessionStore) q(query string) string {
	return s.dialect.rebind(query)
}

func (s *SessionStore) Create(ctx context.Context, params session.CreateParams) (*session.Session, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var id int64
	err := s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO refresh_sessions (user_id, jti, token_fingerprint, expires_at, revoked, user_agent, ip, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, $6, $7)
		RETURNING id`),
		params.UserID,
		params.JTI,
		params.Fingerprint,
		params.ExpiresAt.UTC(),
		params.UserAgent,
		params.IP,
		createdAt.UTC(),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, session.ErrDuplicateJTI
		}
		return nil, fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}

	return &session.Session{
		ID:          id,
		UserID:      params.UserID,
		JTI:         params.JTI,
		Fingerprint: params.Fingerprint,
		ExpiresAt:   params.ExpiresAt,
		UserAgent:   params.UserAgent,
		IP:          params.IP,
		CreatedAt:   createdAt,
	}, nil
}

func (s *SessionStore) FindByJTI(ctx context.Context, jti string) (*session.Session, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+sessionColumns+` FROM refresh_sessions WHERE jti = $1`), jti)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	return sess, nil
}

// Revoke runs the compare-and-swap UPDATE and, when no row changed, tells an
// already revoked session apart from a missing one inside the same transaction.
func (s *SessionStore) Revoke(ctx context.Context, jti string) (session.RevokeResult, error) {
	var result session.RevokeResult
	err := WithTx(ctx, s.db, nil, func(ctx context.Context, tx DBTX) error {
		res, err := tx.ExecContext(ctx, s.q(`UPDATE refresh_sessions SET revoked = TRUE WHERE jti = $1 AND revoked = FALSE`), jti)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 1 {
			result = session.RevokeApplied
			return nil
		}

		var revoked bool
		err = tx.QueryRowContext(ctx, s.q(`SELECT revoked FROM refresh_sessions WHERE jti = $1`), jti).Scan(&revoked)
		if err != nil {
			return err
		}
		if !revoked {
			return fmt.Errorf("session %s neither updated nor revoked", jti)
		}
		result = session.RevokeAlreadyRevoked
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, session.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	return result, nil
}

func (s *SessionStore) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE refresh_sessions SET revoked = TRUE WHERE user_id = $1 AND revoked = FALSE`), userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	return int(n), nil
}

func (s *SessionStore) Touch(ctx context.Context, jti string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE refresh_sessions SET last_used_at = $1 WHERE jti = $2`), at.UTC(), jti)
	if err != nil {
		return fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	if n == 0 {
		return session.ErrNotFound
	}
	return nil
}

// PurgeExpired implements session.Pruner.
func (s *SessionStore) PurgeExpired(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM refresh_sessions WHERE revoked = TRUE AND expires_at < $1`), before.UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	return int(n), nil
}

func scanSession(row *sql.Row) (*session.Session, error) {
	var (
		sess     session.Session
		lastUsed sql.NullTime
	)
	err := row.Scan(
		&sess.ID,
		&sess.UserID,
		&sess.JTI,
		&sess.Fingerprint,
		&sess.ExpiresAt,
		&sess.Revoked,
		&sess.UserAgent,
		&sess.IP,
		&sess.CreatedAt,
		&lastUsed,
	)
	if err != nil {
		return nil, err
	}
	sess.ExpiresAt = sess.ExpiresAt.UTC()
	sess.CreatedAt = sess.CreatedAt.UTC()
	if lastUsed.Valid {
		sess.LastUsedAt = lastUsed.Time.UTC()
	}
	return &sess, nil
}
