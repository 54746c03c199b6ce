package flows

import (
	"context"
	"errors"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureEmptyPassword
	LoginFailureUserNotFound
	LoginFailurePasswordMismatch
	LoginFailureUserLookup
	LoginFailureIssue
)

// LoginUserRecord is a flow-local user model.
type LoginUserRecord struct {
	UserID       string
	ExternalID   string
	PasswordHash string
}

// LoginResult carries either the issued pair or failure metadata.
type LoginResult struct {
	Failure      LoginFailureKind
	Err          error
	UserID       string
	SessionJTI   string
	AccessToken  string
	RefreshToken string
}

// LoginDeps captures login dependencies. Rate functions are optional.
type LoginDeps struct {
	ClientIPFromContext  func(context.Context) string
	UserAgentFromContext func(context.Context) string

	CheckLoginRate     func(ctx context.Context, identifier, ip string) error
	RecordLoginFailure func(ctx context.Context, identifier, ip string) error
	ResetLoginRate     func(ctx context.Context, identifier, ip string) error

	GetUserByExternalID func(ctx context.Context, externalID string) (LoginUserRecord, error)
	UserNotFound        error

	VerifyPassword       func(plain, hash string) (bool, error)
	PasswordNeedsUpgrade func(hash string) (bool, error)
	HashPassword         func(plain string) (string, error)
	UpdatePasswordHash   func(ctx context.Context, userID, hash string) error

	Issue IssueDeps
	Warn  func(string, ...any)
}

// RunLogin verifies credentials and issues a token pair bound to a new session.
// Unknown users and wrong passwords produce different failure kinds for
// auditing; callers must surface them identically.
func RunLogin(ctx context.Context, externalID, password string, deps LoginDeps) LoginResult {
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	ip := deps.ClientIPFromContext(ctx)
	userAgent := deps.UserAgentFromContext(ctx)

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, externalID, ip); err != nil {
			return LoginResult{Failure: LoginFailureRateLimited, Err: err}
		}
	}

	fail := func(kind LoginFailureKind, userID string, err error) LoginResult {
		if deps.RecordLoginFailure != nil {
			if rateErr := deps.RecordLoginFailure(ctx, externalID, ip); rateErr != nil {
				return LoginResult{Failure: LoginFailureRateLimited, Err: rateErr, UserID: userID}
			}
		}
		return LoginResult{Failure: kind, Err: err, UserID: userID}
	}

	if password == "" {
		return fail(LoginFailureEmptyPassword, "", nil)
	}

	user, err := deps.GetUserByExternalID(ctx, externalID)
	if err != nil {
		if deps.UserNotFound != nil && errors.Is(err, deps.UserNotFound) {
			return fail(LoginFailureUserNotFound, "", err)
		}
		return LoginResult{Failure: LoginFailureUserLookup, Err: err}
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return fail(LoginFailurePasswordMismatch, user.UserID, err)
	}

	if deps.PasswordNeedsUpgrade != nil && deps.HashPassword != nil && deps.UpdatePasswordHash != nil {
		if needsUpgrade, err := deps.PasswordNeedsUpgrade(user.PasswordHash); err == nil && needsUpgrade {
			if upgraded, err := deps.HashPassword(password); err == nil {
				if err := deps.UpdatePasswordHash(ctx, user.UserID, upgraded); err != nil {
					deps.Warn("authcore: password hash upgrade update failed", "user_id", user.UserID)
				}
			} else {
				deps.Warn("authcore: password hash upgrade generation failed", "user_id", user.UserID)
			}
		}
	}
	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, externalID, ip); err != nil {
			deps.Warn("authcore: login rate reset failed", "error", err)
		}
	}

	pair, err := IssuePair(ctx, deps.Issue, user.UserID, userAgent, ip)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, UserID: user.UserID}
	}

	return LoginResult{
		Failure:      LoginFailureNone,
		UserID:       user.UserID,
		SessionJTI:   pair.Session.JTI,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
}
