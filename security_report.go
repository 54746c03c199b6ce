package authcore

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/authcore/session"
)

// SecurityReport summarises the security-relevant settings of a built
// engine. It implements [slog.LogValuer] so it can be logged at startup as
// one attribute.
type SecurityReport struct {
	ProductionMode         bool
	SigningAlgorithm       string
	AccessTTL              time.Duration
	RefreshTTL             time.Duration
	Argon2                 PasswordConfigReport
	LegacyBcryptAccepted   bool
	PasswordUpgradeOnLogin bool
	LoginThrottleActive    bool
	AuditEnabled           bool
	CookieSecure           bool
	SessionStore           string
	PurgeSupported         bool
	LintWarnings           []string
}

// PasswordConfigReport holds the Argon2id parameters applied to new hashes.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config
	_, purge := e.sessionStore.(session.Pruner)

	return SecurityReport{
		ProductionMode:   cfg.Security.ProductionMode,
		SigningAlgorithm: cfg.JWT.SigningMethod,
		AccessTTL:        cfg.JWT.AccessTTL,
		RefreshTTL:       cfg.JWT.RefreshTTL,
		Argon2: PasswordConfigReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		},
		LegacyBcryptAccepted:   cfg.Password.AcceptBcrypt,
		PasswordUpgradeOnLogin: cfg.Password.UpgradeOnLogin,
		LoginThrottleActive:    e.rateLimiter != nil,
		AuditEnabled:           e.audit != nil,
		CookieSecure:           cfg.Cookie.Secure,
		SessionStore:           fmt.Sprintf("%T", e.sessionStore),
		PurgeSupported:         purge,
		LintWarnings:           cfg.Lint().Codes(),
	}
}

// LogValue renders the report as a group. Lint warnings are left out; log
// them separately at a higher level.
func (r SecurityReport) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("production", r.ProductionMode),
		slog.String("signing", r.SigningAlgorithm),
		slog.Duration("access_ttl", r.AccessTTL),
		slog.Duration("refresh_ttl", r.RefreshTTL),
		slog.Group("argon2",
			slog.Uint64("memory_kib", uint64(r.Argon2.Memory)),
			slog.Uint64("time", uint64(r.Argon2.Time)),
			slog.Uint64("parallelism", uint64(r.Argon2.Parallelism)),
		),
		slog.Bool("legacy_bcrypt", r.LegacyBcryptAccepted),
		slog.Bool("upgrade_on_login", r.PasswordUpgradeOnLogin),
		slog.Bool("login_throttle", r.LoginThrottleActive),
		slog.Bool("audit", r.AuditEnabled),
		slog.Bool("cookie_secure", r.CookieSecure),
		slog.String("session_store", r.SessionStore),
		slog.Bool("purge", r.PurgeSupported),
	)
}
