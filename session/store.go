package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no session exists for a jti.
	ErrNotFound = errors.New("session not found")
	// ErrDuplicateJTI is returned by Create when the jti is already taken.
	ErrDuplicateJTI = errors.New("duplicate session jti")
	// ErrUnavailable wraps persistence failures of any backend.
	ErrUnavailable = errors.New("session store unavailable")
)

// Store persists refresh sessions.
type Store interface {
	Create(ctx context.Context, params CreateParams) (*Session, error)
	FindByJTI(ctx context.Context, jti string) (*Session, error)
	// Revoke atomically sets revoked=true when it is currently false.
	Revoke(ctx context.Context, jti string) (RevokeResult, error)
	// RevokeAllForUser revokes every active session of userID and returns how many changed.
	RevokeAllForUser(ctx context.Context, userID string) (int, error)
	// Touch records a best-effort last-used timestamp.
	Touch(ctx context.Context, jti string, at time.Time) error
}

// Pruner is implemented by stores that support retention cleanup.
type Pruner interface {
	// PurgeExpired deletes sessions that are revoked and expired before the cutoff.
	PurgeExpired(ctx context.Context, before time.Time) (int, error)
}

// Validate checks the fields every backend requires.
func (p CreateParams) Validate() error {
	switch {
	case p.UserID == "":
		return errors.New("session user id is required")
	case p.JTI == "":
		return errors.New("session jti is required")
	case p.Fingerprint == "":
		return errors.New("session fingerprint is required")
	case p.ExpiresAt.IsZero():
		return errors.New("session expiry is required")
	}
	return nil
}
