package authcore

import "errors"

var (
	// ErrInvalidCredentials is returned by Login for an unknown user or a wrong
	// password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenInvalid covers malformed tokens and signature failures.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned when a token or its session is at or past expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrWrongTokenType is returned when an access token is presented as a
	// refresh token or vice versa.
	ErrWrongTokenType = errors.New("wrong token type")
	// ErrSessionNotFound is returned when a refresh token has no backing session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTokenMismatch is returned when a refresh token's fingerprint does not
	// match its session. All sessions of the user are revoked first.
	ErrTokenMismatch = errors.New("refresh token mismatch")
	// ErrRefreshReuse is returned when a rotated refresh token is presented
	// again. All sessions of the user are revoked first.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
	// ErrStorageFailure wraps session or user store failures.
	ErrStorageFailure = errors.New("storage failure")

	// ErrUserNotFound is returned by UserProvider implementations for unknown users.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists is returned by CreateAccount for a taken external id or email.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountCreationInvalid is returned by CreateAccount for invalid input.
	ErrAccountCreationInvalid = errors.New("invalid account creation request")
	// ErrAccountCreationDisabled is returned when Account.Enabled is false.
	ErrAccountCreationDisabled = errors.New("account creation disabled")
	// ErrPasswordPolicy is returned when a new password is empty, too short or too long.
	ErrPasswordPolicy = errors.New("password does not meet policy")
	// ErrLoginRateLimited is returned when login throttling rejects an attempt.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrPurgeUnsupported is returned when the session store cannot prune.
	ErrPurgeUnsupported = errors.New("session store does not support purge")
	// ErrEngineNotReady is returned when a method is called on a nil or
	// partially constructed Engine.
	ErrEngineNotReady = errors.New("engine is not initialized")
)

// IsUnauthorized reports whether err is a client-side authentication failure,
// as opposed to a server fault.
func IsUnauthorized(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrWrongTokenType),
		errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrTokenMismatch),
		errors.Is(err, ErrRefreshReuse):
		return true
	}
	return false
}
