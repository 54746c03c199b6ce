package authcore

import (
	"context"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	internalmetrics "github.com/MrEthical07/authcore/internal/metrics"
)

// UserProvider is the user directory the engine authenticates against.
// Lookups return ErrUserNotFound for unknown users; CreateUser returns
// ErrAccountExists when the external id or email is taken.
type UserProvider interface {
	GetUserByExternalID(ctx context.Context, externalID string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
}

// UserRecord is a stored user. UserID is the token subject; ExternalID is
// what the user types at login.
type UserRecord struct {
	UserID       string
	ExternalID   string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUserInput is the input for [UserProvider.CreateUser].
type CreateUserInput struct {
	ExternalID   string
	Name         string
	Email        string
	PasswordHash string
}

// CreateAccountRequest is the input for [Engine.CreateAccount].
type CreateAccountRequest struct {
	ExternalID string
	Name       string
	Email      string
	Password   string
}

// CreateAccountResult is returned by [Engine.CreateAccount]. Tokens are set
// only when Account.AutoLogin is enabled.
type CreateAccountResult struct {
	UserID       string
	AccessToken  string
	RefreshToken string
}

// TokenPair is the result of Login and Refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AccessResult is returned by [Engine.ValidateAccess].
type AccessResult struct {
	UserID    string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON-encoded event per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink logs events through a *slog.Logger.
type SlogSink = internalaudit.SlogSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

// MetricID identifies a counter in the in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess             = internalmetrics.MetricLoginSuccess
	MetricLoginFailure             = internalmetrics.MetricLoginFailure
	MetricLoginRateLimited         = internalmetrics.MetricLoginRateLimited
	MetricRefreshSuccess           = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure           = internalmetrics.MetricRefreshFailure
	MetricRefreshReuseDetected     = internalmetrics.MetricRefreshReuseDetected
	MetricRefreshTokenMismatch     = internalmetrics.MetricRefreshTokenMismatch
	MetricRefreshRaceLost          = internalmetrics.MetricRefreshRaceLost
	MetricRevokeAllTriggered       = internalmetrics.MetricRevokeAllTriggered
	MetricSessionCreated           = internalmetrics.MetricSessionCreated
	MetricSessionRevoked           = internalmetrics.MetricSessionRevoked
	MetricSessionsPurged           = internalmetrics.MetricSessionsPurged
	MetricLogout                   = internalmetrics.MetricLogout
	MetricStorageFailure           = internalmetrics.MetricStorageFailure
	MetricRateLimitHit             = internalmetrics.MetricRateLimitHit
	MetricAccountCreationSuccess   = internalmetrics.MetricAccountCreationSuccess
	MetricAccountCreationDuplicate = internalmetrics.MetricAccountCreationDuplicate
	MetricValidateLatency          = internalmetrics.MetricValidateLatency
)

// Metrics holds atomic counters and the optional validate latency histogram.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] instance. When cfg.Enabled is false every
// operation is a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
