package flows

import (
	"context"
	"errors"
	"net/mail"
	"strings"
)

// AccountFailureKind classifies account creation failures.
type AccountFailureKind int

const (
	AccountFailureNone AccountFailureKind = iota
	AccountFailureInvalid
	AccountFailurePasswordPolicy
	AccountFailureDuplicate
	AccountFailureCreate
	AccountFailureIssue
)

type AccountCreateRequest struct {
	ExternalID string
	Name       string
	Email      string
	Password   string
}

type AccountCreateUserInput struct {
	ExternalID   string
	Name         string
	Email        string
	PasswordHash string
}

type AccountResult struct {
	Failure      AccountFailureKind
	Err          error
	Reason       string
	UserID       string
	AccessToken  string
	RefreshToken string
}

type AccountDeps struct {
	AutoLogin bool

	ClientIPFromContext  func(context.Context) string
	UserAgentFromContext func(context.Context) string

	HashPassword     func(string) (string, error)
	CreateUser       func(context.Context, AccountCreateUserInput) (string, error)
	AccountExistsErr error

	Issue IssueDeps
}

// RunCreateAccount validates the request, hashes the password and stores the
// user. With AutoLogin a token pair is issued exactly as Login would.
func RunCreateAccount(ctx context.Context, req AccountCreateRequest, deps AccountDeps) AccountResult {
	externalID := strings.TrimSpace(req.ExternalID)
	email := strings.TrimSpace(req.Email)
	switch {
	case externalID == "":
		return AccountResult{Failure: AccountFailureInvalid, Reason: "external_id_required"}
	case len(externalID) > 128:
		return AccountResult{Failure: AccountFailureInvalid, Reason: "external_id_too_long"}
	case email == "":
		return AccountResult{Failure: AccountFailureInvalid, Reason: "email_required"}
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return AccountResult{Failure: AccountFailureInvalid, Reason: "email_invalid"}
	}

	hash, err := deps.HashPassword(req.Password)
	if err != nil {
		return AccountResult{Failure: AccountFailurePasswordPolicy, Err: err, Reason: "password_policy"}
	}

	userID, err := deps.CreateUser(ctx, AccountCreateUserInput{
		ExternalID:   externalID,
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		if deps.AccountExistsErr != nil && errors.Is(err, deps.AccountExistsErr) {
			return AccountResult{Failure: AccountFailureDuplicate, Err: err, Reason: "duplicate"}
		}
		return AccountResult{Failure: AccountFailureCreate, Err: err, Reason: "create_failed"}
	}

	result := AccountResult{Failure: AccountFailureNone, UserID: userID}
	if !deps.AutoLogin {
		return result
	}

	pair, err := IssuePair(ctx, deps.Issue, userID, deps.UserAgentFromContext(ctx), deps.ClientIPFromContext(ctx))
	if err != nil {
		return AccountResult{Failure: AccountFailureIssue, Err: err, UserID: userID, Reason: "issue_failed"}
	}
	result.AccessToken = pair.AccessToken
	result.RefreshToken = pair.RefreshToken
	return result
}
