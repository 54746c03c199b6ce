package authcore

import (
	"context"
	"fmt"

	"github.com/MrEthical07/authcore/internal/flows"
)

// CreateAccount registers a user with an argon2id hash of req.Password.
// A taken external id or email yields ErrAccountExists. With
// Account.AutoLogin the result also carries a token pair, issued exactly as
// Login would issue it.
func (e *Engine) CreateAccount(ctx context.Context, req CreateAccountRequest) (*CreateAccountResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if !e.config.Account.Enabled {
		e.emitAudit(ctx, auditEventAccountCreationFailure, "", "", ErrAccountCreationDisabled, func() map[string]string {
			return map[string]string{"reason": "feature_disabled"}
		})
		return nil, ErrAccountCreationDisabled
	}

	res := e.flows.CreateAccount(ctx, flows.AccountCreateRequest{
		ExternalID: req.ExternalID,
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
	})
	meta := func() map[string]string {
		m := map[string]string{"identifier": req.ExternalID}
		if res.Reason != "" {
			m["reason"] = res.Reason
		}
		return m
	}

	switch res.Failure {
	case flows.AccountFailureNone:
		e.metricInc(MetricAccountCreationSuccess)
		if res.RefreshToken != "" {
			e.metricInc(MetricSessionCreated)
		}
		e.emitAudit(ctx, auditEventAccountCreationSuccess, res.UserID, "", nil, meta)
		return &CreateAccountResult{
			UserID:       res.UserID,
			AccessToken:  res.AccessToken,
			RefreshToken: res.RefreshToken,
		}, nil

	case flows.AccountFailureInvalid:
		e.emitAudit(ctx, auditEventAccountCreationFailure, "", "", ErrAccountCreationInvalid, meta)
		return nil, ErrAccountCreationInvalid

	case flows.AccountFailurePasswordPolicy:
		e.emitAudit(ctx, auditEventAccountCreationFailure, "", "", ErrPasswordPolicy, meta)
		return nil, fmt.Errorf("%w: %v", ErrPasswordPolicy, res.Err)

	case flows.AccountFailureDuplicate:
		e.metricInc(MetricAccountCreationDuplicate)
		e.emitAudit(ctx, auditEventAccountCreationDuplicate, "", "", ErrAccountExists, meta)
		return nil, ErrAccountExists

	default:
		// The user may exist even when issuing the auto-login pair failed.
		e.metricInc(MetricStorageFailure)
		e.logger.Error("authcore: account creation failed", "user_id", res.UserID, "reason", res.Reason, "error", res.Err)
		e.emitAudit(ctx, auditEventAccountCreationFailure, res.UserID, "", ErrStorageFailure, meta)
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, res.Err)
	}
}
