package authcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/flows"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/session"
	"github.com/google/uuid"
)

// Engine issues, rotates and revokes token pairs. Build one with [New] and
// share it; every method is safe for concurrent use. The session store is the
// only shared mutable state.
type Engine struct {
	config       Config
	now          func() time.Time
	logger       *slog.Logger
	jwtManager   *jwt.Manager
	sessionStore session.Store
	userProvider UserProvider
	passwords    *password.Multi
	rateLimiter  *rate.Limiter
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	flows        flows.Service
}

// Close flushes pending audit events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n int) {
	if e == nil || e.metrics == nil || n <= 0 {
		return
	}
	e.metrics.Add(id, uint64(n))
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Ready()
}

// Login checks the credentials of externalID and returns a fresh token pair
// bound to a new session. Unknown users and wrong passwords both yield
// ErrInvalidCredentials. The client IP and user agent recorded on the session
// come from [WithClientIP] and [WithUserAgent].
func (e *Engine) Login(ctx context.Context, externalID, password string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Login(ctx, externalID, password)
	meta := func() map[string]string {
		return map[string]string{"identifier": externalID}
	}

	switch res.Failure {
	case flows.LoginFailureNone:
		e.metricInc(MetricSessionCreated)
		e.metricInc(MetricLoginSuccess)
		e.emitAudit(ctx, auditEventLoginSuccess, res.UserID, res.SessionJTI, nil, meta)
		return &TokenPair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}, nil

	case flows.LoginFailureRateLimited:
		if errors.Is(res.Err, rate.ErrRedisUnavailable) {
			e.logger.Error("authcore: login throttle unavailable", "error", res.Err)
			e.metricInc(MetricStorageFailure)
			return nil, fmt.Errorf("%w: %v", ErrStorageFailure, res.Err)
		}
		e.metricInc(MetricLoginRateLimited)
		e.metricInc(MetricRateLimitHit)
		e.emitAudit(ctx, auditEventLoginRateLimited, res.UserID, "", ErrLoginRateLimited, meta)
		return nil, ErrLoginRateLimited

	case flows.LoginFailureEmptyPassword, flows.LoginFailureUserNotFound, flows.LoginFailurePasswordMismatch:
		if res.Err != nil && res.Failure == flows.LoginFailurePasswordMismatch {
			e.logger.Warn("authcore: stored password hash rejected", "user_id", res.UserID, "error", res.Err)
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, res.UserID, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"identifier": externalID,
				"reason":     loginFailureReason(res.Failure),
			}
		})
		return nil, ErrInvalidCredentials

	default:
		e.logger.Error("authcore: login failed", "user_id", res.UserID, "error", res.Err)
		e.metricInc(MetricLoginFailure)
		e.metricInc(MetricStorageFailure)
		e.emitAudit(ctx, auditEventLoginFailure, res.UserID, "", ErrStorageFailure, func() map[string]string {
			return map[string]string{
				"identifier": externalID,
				"reason":     loginFailureReason(res.Failure),
			}
		})
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, res.Err)
	}
}

func loginFailureReason(kind flows.LoginFailureKind) string {
	switch kind {
	case flows.LoginFailureEmptyPassword:
		return "empty_password"
	case flows.LoginFailureUserNotFound:
		return "user_not_found"
	case flows.LoginFailurePasswordMismatch:
		return "password_mismatch"
	case flows.LoginFailureUserLookup:
		return "user_lookup_failed"
	case flows.LoginFailureIssue:
		return "session_create_failed"
	default:
		return "unknown"
	}
}

// Refresh rotates refreshToken: the old session is revoked and a new pair
// is returned. Presenting a token whose session is already revoked, or whose
// fingerprint does not match, revokes every session of the user before
// ErrRefreshReuse or ErrTokenMismatch is returned. When that bulk revocation
// fails the result is ErrStorageFailure instead.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Refresh(ctx, refreshToken)
	if res.Failure == flows.RefreshFailureNone {
		e.metricInc(MetricRefreshSuccess)
		e.metricInc(MetricSessionRevoked)
		e.metricInc(MetricSessionCreated)
		e.emitAudit(ctx, auditEventRefreshSuccess, res.UserID, res.JTI, nil, func() map[string]string {
			return map[string]string{"new_jti": res.NewJTI}
		})
		return &TokenPair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}, nil
	}

	e.metricInc(MetricRefreshFailure)
	err := e.refreshError(res)

	switch res.Failure {
	case flows.RefreshFailureReuse, flows.RefreshFailureMismatch:
		e.recordBreach(ctx, res, err)
	default:
		if errors.Is(err, ErrStorageFailure) {
			e.metricInc(MetricStorageFailure)
			e.logger.Error("authcore: refresh failed", "user_id", res.UserID, "jti", res.JTI, "error", res.Err)
		}
		e.emitAudit(ctx, auditEventRefreshFailure, res.UserID, res.JTI, err, nil)
	}
	return nil, err
}

func (e *Engine) refreshError(res flows.RefreshResult) error {
	switch res.Failure {
	case flows.RefreshFailureDecode:
		return decodeError(res.Err)
	case flows.RefreshFailureWrongType:
		return ErrWrongTokenType
	case flows.RefreshFailureSessionNotFound:
		return ErrSessionNotFound
	case flows.RefreshFailureExpired:
		return ErrTokenExpired
	case flows.RefreshFailureReuse:
		if res.RevokeAllErr != nil {
			return fmt.Errorf("%w: revoke all sessions: %v", ErrStorageFailure, res.RevokeAllErr)
		}
		return ErrRefreshReuse
	case flows.RefreshFailureMismatch:
		if res.RevokeAllErr != nil {
			return fmt.Errorf("%w: revoke all sessions: %v", ErrStorageFailure, res.RevokeAllErr)
		}
		return ErrTokenMismatch
	default:
		return fmt.Errorf("%w: %v", ErrStorageFailure, res.Err)
	}
}

func (e *Engine) recordBreach(ctx context.Context, res flows.RefreshResult, err error) {
	eventType := auditEventRefreshReuseDetected
	if res.Failure == flows.RefreshFailureMismatch {
		eventType = auditEventRefreshTokenMismatch
		e.metricInc(MetricRefreshTokenMismatch)
	} else {
		e.metricInc(MetricRefreshReuseDetected)
		if res.RaceLost {
			e.metricInc(MetricRefreshRaceLost)
		}
	}
	e.metricInc(MetricRevokeAllTriggered)
	e.metricAdd(MetricSessionRevoked, res.RevokedCount)

	if res.RevokeAllErr != nil {
		e.metricInc(MetricStorageFailure)
		e.logger.Error("authcore: revoke all sessions failed after refresh breach",
			"event", eventType, "user_id", res.UserID, "jti", res.JTI, "error", res.RevokeAllErr)
	} else {
		e.logger.Warn("authcore: refresh breach, all sessions revoked",
			"event", eventType, "user_id", res.UserID, "jti", res.JTI, "revoked", res.RevokedCount, "race_lost", res.RaceLost)
	}

	e.emitAudit(ctx, eventType, res.UserID, res.JTI, err, func() map[string]string {
		meta := map[string]string{"revoked_sessions": fmt.Sprint(res.RevokedCount)}
		if res.RaceLost {
			meta["race_lost"] = "true"
		}
		return meta
	})
}

func decodeError(err error) error {
	if errors.Is(err, jwt.ErrExpired) {
		return ErrTokenExpired
	}
	return ErrTokenInvalid
}

// Logout revokes the session behind refreshToken. It is idempotent: tokens
// that do not decode, are not refresh tokens, have no session or are already
// revoked all return nil. Only a store failure is reported.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	res := e.flows.Logout(ctx, refreshToken)
	switch res.Outcome {
	case flows.LogoutStoreFailure:
		e.metricInc(MetricStorageFailure)
		e.logger.Error("authcore: logout revoke failed", "user_id", res.UserID, "jti", res.JTI, "error", res.Err)
		e.emitAudit(ctx, auditEventLogout, res.UserID, res.JTI, ErrStorageFailure, nil)
		return fmt.Errorf("%w: %v", ErrStorageFailure, res.Err)
	case flows.LogoutRevoked:
		e.metricInc(MetricLogout)
		e.metricInc(MetricSessionRevoked)
		e.emitAudit(ctx, auditEventLogout, res.UserID, res.JTI, nil, nil)
	default:
		e.metricInc(MetricLogout)
		e.emitAudit(ctx, auditEventLogout, res.UserID, res.JTI, nil, func() map[string]string {
			return map[string]string{"outcome": logoutOutcome(res.Outcome)}
		})
	}
	return nil
}

func logoutOutcome(o flows.LogoutOutcome) string {
	switch o {
	case flows.LogoutUndecodable:
		return "undecodable"
	case flows.LogoutWrongType:
		return "wrong_type"
	case flows.LogoutAlreadyRevoked:
		return "already_revoked"
	case flows.LogoutNotFound:
		return "not_found"
	default:
		return "revoked"
	}
}

// ValidateAccess verifies an access token's signature, expiry and type. It
// never touches storage, so a revoked session's access token stays valid
// until it expires.
func (e *Engine) ValidateAccess(_ context.Context, accessToken string) (*AccessResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	res := e.flows.Validate(accessToken)
	switch res.Failure {
	case flows.ValidateFailureNone:
	case flows.ValidateFailureWrongType:
		return nil, ErrWrongTokenType
	default:
		return nil, decodeError(res.Err)
	}

	out := &AccessResult{
		UserID: res.Claims.Subject,
		JTI:    res.Claims.ID,
	}
	if res.Claims.IssuedAt != nil {
		out.IssuedAt = res.Claims.IssuedAt.Time
	}
	if res.Claims.ExpiresAt != nil {
		out.ExpiresAt = res.Claims.ExpiresAt.Time
	}
	return out, nil
}

// Me validates accessToken and loads the user it was issued to.
// A subject that no longer exists yields ErrUserNotFound.
func (e *Engine) Me(ctx context.Context, accessToken string) (UserRecord, error) {
	access, err := e.ValidateAccess(ctx, accessToken)
	if err != nil {
		return UserRecord{}, err
	}
	user, err := e.userProvider.GetUserByID(ctx, access.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return UserRecord{}, ErrUserNotFound
		}
		e.metricInc(MetricStorageFailure)
		return UserRecord{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return user, nil
}

// PurgeExpiredSessions deletes sessions that are revoked and expired longer
// than Session.Retention ago. It returns ErrPurgeUnsupported when the store
// does not implement session.Pruner.
func (e *Engine) PurgeExpiredSessions(ctx context.Context) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	pruner, ok := e.sessionStore.(session.Pruner)
	if !ok {
		return 0, ErrPurgeUnsupported
	}

	cutoff := e.now().Add(-e.config.Session.Retention)
	removed, err := pruner.PurgeExpired(ctx, cutoff)
	e.metricAdd(MetricSessionsPurged, removed)
	if err != nil {
		e.metricInc(MetricStorageFailure)
		return removed, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if removed > 0 {
		e.logger.Info("authcore: purged expired sessions", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}

func (e *Engine) buildFlows() {
	issue := flows.IssueDeps{
		Now:         e.now,
		AccessTTL:   e.config.JWT.AccessTTL,
		RefreshTTL:  e.config.JWT.RefreshTTL,
		EncodeToken: e.jwtManager.Encode,
		NewJTI:      uuid.NewString,
		Sessions:    e.sessionStore,
	}
	warn := func(msg string, args ...any) { e.logger.Warn(msg, args...) }

	login := flows.LoginDeps{
		ClientIPFromContext:  clientIPFromContext,
		UserAgentFromContext: userAgentFromContext,
		GetUserByExternalID: func(ctx context.Context, externalID string) (flows.LoginUserRecord, error) {
			u, err := e.userProvider.GetUserByExternalID(ctx, externalID)
			if err != nil {
				return flows.LoginUserRecord{}, err
			}
			return flows.LoginUserRecord{UserID: u.UserID, ExternalID: u.ExternalID, PasswordHash: u.PasswordHash}, nil
		},
		UserNotFound:   ErrUserNotFound,
		VerifyPassword: e.passwords.Verify,
		Issue:          issue,
		Warn:           warn,
	}
	if e.config.Password.UpgradeOnLogin {
		login.PasswordNeedsUpgrade = e.passwords.NeedsUpgrade
		login.HashPassword = e.passwords.Hash
		login.UpdatePasswordHash = e.userProvider.UpdatePasswordHash
	}
	if e.rateLimiter != nil {
		login.CheckLoginRate = e.rateLimiter.CheckLogin
		login.RecordLoginFailure = e.rateLimiter.IncrementLogin
		login.ResetLoginRate = e.rateLimiter.ResetLogin
	}

	e.flows = flows.New(flows.Deps{
		Login: login,
		Refresh: flows.RefreshDeps{
			Now:          e.now,
			DecodeToken:  e.jwtManager.Decode,
			SessionStore: e.sessionStore,
			Issue:        issue,
			Warn:         warn,
		},
		Logout: flows.LogoutDeps{
			DecodeToken:  e.jwtManager.Decode,
			SessionStore: e.sessionStore,
		},
		Validate: flows.ValidateDeps{
			DecodeToken: e.jwtManager.Decode,
		},
		Account: flows.AccountDeps{
			AutoLogin:            e.config.Account.AutoLogin,
			ClientIPFromContext:  clientIPFromContext,
			UserAgentFromContext: userAgentFromContext,
			HashPassword:         e.passwords.Hash,
			CreateUser: func(ctx context.Context, in flows.AccountCreateUserInput) (string, error) {
				u, err := e.userProvider.CreateUser(ctx, CreateUserInput{
					ExternalID:   in.ExternalID,
					Name:         in.Name,
					Email:        in.Email,
					PasswordHash: in.PasswordHash,
				})
				return u.UserID, err
			},
			AccountExistsErr: ErrAccountExists,
			Issue:            issue,
		},
	})
}
