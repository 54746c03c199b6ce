package session

import "time"

// Session is the persisted record backing one refresh token.
//
// Fingerprint holds the hex SHA-256 of the issued refresh token; the token
// itself is never stored. Revoked only moves from false to true.
type Session struct {
	ID          int64
	UserID      string
	JTI         string
	Fingerprint string
	ExpiresAt   time.Time
	Revoked     bool
	UserAgent   string
	IP          string
	CreatedAt   time.Time
	LastUsedAt  time.Time
}

// Expired reports whether now is at or past ExpiresAt.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Active reports whether the session can still be rotated at now.
func (s *Session) Active(now time.Time) bool {
	return !s.Revoked && !s.Expired(now)
}

// CreateParams carries the fields of a new Active session.
type CreateParams struct {
	UserID      string
	JTI         string
	Fingerprint string
	ExpiresAt   time.Time
	UserAgent   string
	IP          string
	CreatedAt   time.Time
}

// RevokeResult reports the outcome of a compare-and-swap revoke.
type RevokeResult int

const (
	// RevokeApplied means this call flipped revoked from false to true.
	RevokeApplied RevokeResult = iota + 1
	// RevokeAlreadyRevoked means another caller got there first.
	RevokeAlreadyRevoked
)

func (r RevokeResult) String() string {
	switch r {
	case RevokeApplied:
		return "applied"
	case RevokeAlreadyRevoked:
		return "already_revoked"
	default:
		return "unknown"
	}
}
