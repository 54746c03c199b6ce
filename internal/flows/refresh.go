package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/refresh"
	"github.com/MrEthical07/authcore/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureWrongType
	RefreshFailureSessionNotFound
	RefreshFailureSessionLookup
	RefreshFailureReuse
	RefreshFailureMismatch
	RefreshFailureExpired
	RefreshFailureRevoke
	RefreshFailureIssue
)

// RefreshResult carries either the issued token pair or failure metadata.
//
// For RefreshFailureReuse and RefreshFailureMismatch the user's sessions have
// already been revoked; RevokedCount reports how many changed and
// RevokeAllErr is set when that bulk revocation itself failed.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	UserID       string
	JTI          string
	NewJTI       string
	RaceLost     bool
	RevokedCount int
	RevokeAllErr error
	AccessToken  string
	RefreshToken string
}

// RefreshSessionStore is the store capability needed for rotation.
type RefreshSessionStore interface {
	SessionCreator
	FindByJTI(ctx context.Context, jti string) (*session.Session, error)
	Revoke(ctx context.Context, jti string) (session.RevokeResult, error)
	RevokeAllForUser(ctx context.Context, userID string) (int, error)
	Touch(ctx context.Context, jti string, at time.Time) error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Now          func() time.Time
	DecodeToken  func(string) (*jwt.Claims, error)
	SessionStore RefreshSessionStore
	Issue        IssueDeps
	Warn         func(string, ...any)
}

// RunRefresh rotates a refresh token. The old session is revoked with a
// compare-and-swap before the new pair is minted, so at most one concurrent
// caller succeeds per session. A revoked session, a lost race or a
// fingerprint mismatch revokes every session of the user before returning.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}

	claims, err := deps.DecodeToken(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}
	if claims.Type != jwt.TypeRefresh {
		return RefreshResult{Failure: RefreshFailureWrongType, UserID: claims.Subject, JTI: claims.ID}
	}
	jti := claims.ID

	sess, err := deps.SessionStore.FindByJTI(ctx, jti)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return RefreshResult{Failure: RefreshFailureSessionNotFound, Err: err, UserID: claims.Subject, JTI: jti}
		}
		return RefreshResult{Failure: RefreshFailureSessionLookup, Err: err, UserID: claims.Subject, JTI: jti}
	}

	if sess.Revoked {
		return revokeAll(ctx, deps, RefreshResult{Failure: RefreshFailureReuse, UserID: sess.UserID, JTI: jti})
	}
	if !refresh.Matches(refreshToken, sess.Fingerprint) {
		return revokeAll(ctx, deps, RefreshResult{Failure: RefreshFailureMismatch, UserID: sess.UserID, JTI: jti})
	}
	if sess.Expired(deps.Now()) {
		return RefreshResult{Failure: RefreshFailureExpired, UserID: sess.UserID, JTI: jti}
	}

	res, err := deps.SessionStore.Revoke(ctx, jti)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return RefreshResult{Failure: RefreshFailureSessionNotFound, Err: err, UserID: sess.UserID, JTI: jti}
		}
		return RefreshResult{Failure: RefreshFailureRevoke, Err: err, UserID: sess.UserID, JTI: jti}
	}
	if res != session.RevokeApplied {
		return revokeAll(ctx, deps, RefreshResult{Failure: RefreshFailureReuse, UserID: sess.UserID, JTI: jti, RaceLost: true})
	}

	pair, err := IssuePair(ctx, deps.Issue, sess.UserID, sess.UserAgent, sess.IP)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, UserID: sess.UserID, JTI: jti}
	}

	if err := deps.SessionStore.Touch(ctx, jti, deps.Now()); err != nil {
		deps.Warn("authcore: touch of rotated session failed", "jti", jti, "error", err)
	}

	return RefreshResult{
		Failure:      RefreshFailureNone,
		UserID:       sess.UserID,
		JTI:          jti,
		NewJTI:       pair.Session.JTI,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
}

func revokeAll(ctx context.Context, deps RefreshDeps, result RefreshResult) RefreshResult {
	n, err := deps.SessionStore.RevokeAllForUser(ctx, result.UserID)
	result.RevokedCount = n
	result.RevokeAllErr = err
	return result
}
