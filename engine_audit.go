package authcore

import (
	"context"
	"errors"
)

// Audit event types.
const (
	auditEventLoginSuccess             = "login_success"
	auditEventLoginFailure             = "login_failure"
	auditEventLoginRateLimited         = "login_rate_limited"
	auditEventRefreshSuccess           = "refresh_success"
	auditEventRefreshFailure           = "refresh_failure"
	auditEventRefreshReuseDetected     = "refresh_reuse_detected"
	auditEventRefreshTokenMismatch     = "refresh_token_mismatch"
	auditEventLogout                   = "logout"
	auditEventAccountCreationSuccess   = "account_creation_success"
	auditEventAccountCreationFailure   = "account_creation_failure"
	auditEventAccountCreationDuplicate = "account_creation_duplicate"
)

// auditCodes maps engine errors to the stable labels written to
// [AuditEvent].Error. The first match wins.
var auditCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrLoginRateLimited, "rate_limited"},
	{ErrTokenInvalid, "invalid_token"},
	{ErrTokenExpired, "expired_token"},
	{ErrWrongTokenType, "wrong_token_type"},
	{ErrSessionNotFound, "session_not_found"},
	{ErrTokenMismatch, "token_mismatch"},
	{ErrRefreshReuse, "refresh_reuse"},
	{ErrUserNotFound, "user_not_found"},
	{ErrAccountCreationInvalid, "invalid_request"},
	{ErrPasswordPolicy, "password_policy"},
	{ErrAccountCreationDisabled, "account_creation_disabled"},
	{ErrAccountExists, "duplicate"},
	{ErrStorageFailure, "storage_failure"},
}

// emitAudit records one event. A nil err marks the event successful. meta
// is only called when auditing is on.
func (e *Engine) emitAudit(ctx context.Context, eventType, userID, jti string, err error, meta func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		JTI:       jti,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   err == nil,
		Error:     auditErrorCode(err),
	}
	if meta != nil {
		event.Metadata = meta()
	}
	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range auditCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal_error"
}
