package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/session"
)

// LogoutOutcome describes what a logout did. Only LogoutStoreFailure is an error
// for the caller; every other outcome is a successful, idempotent logout.
type LogoutOutcome int

const (
	LogoutRevoked LogoutOutcome = iota
	LogoutUndecodable
	LogoutWrongType
	LogoutAlreadyRevoked
	LogoutNotFound
	LogoutStoreFailure
)

type LogoutSessionStore interface {
	Revoke(ctx context.Context, jti string) (session.RevokeResult, error)
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	DecodeToken  func(string) (*jwt.Claims, error)
	SessionStore LogoutSessionStore
}

type LogoutResult struct {
	Outcome LogoutOutcome
	Err     error
	UserID  string
	JTI     string
}

// RunLogout revokes the session behind a refresh token. Tokens that do not
// decode are ignored so clients can always clear their cookie.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) LogoutResult {
	claims, err := deps.DecodeToken(refreshToken)
	if err != nil {
		return LogoutResult{Outcome: LogoutUndecodable, Err: err}
	}
	if claims.Type != jwt.TypeRefresh {
		return LogoutResult{Outcome: LogoutWrongType, UserID: claims.Subject, JTI: claims.ID}
	}

	result := LogoutResult{UserID: claims.Subject, JTI: claims.ID}
	res, err := deps.SessionStore.Revoke(ctx, claims.ID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		result.Outcome = LogoutNotFound
	case err != nil:
		result.Outcome = LogoutStoreFailure
		result.Err = err
	case res == session.RevokeAlreadyRevoked:
		result.Outcome = LogoutAlreadyRevoked
	default:
		result.Outcome = LogoutRevoked
	}
	return result
}
