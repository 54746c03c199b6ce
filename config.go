package authcore

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/password"
)

// Config is the engine configuration. Builder.WithConfig copies it and Build
// validates it; the engine never reads the caller's value again.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Password PasswordConfig
	Account  AccountConfig
	Security SecurityConfig
	Cookie   CookieConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// JWTConfig controls token signing and lifetimes.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	// KeyID is written to the "kid" header; VerifyKeys maps kid to verification
	// key during key rotation.
	KeyID      string
	VerifyKeys map[string][]byte
}

// SessionConfig applies to the Redis session store and retention GC.
type SessionConfig struct {
	RedisPrefix string
	// Retention is how long revoked or expired sessions are kept after expiry
	// so reuse of an old refresh token can still be detected.
	Retention time.Duration
}

// PasswordConfig holds Argon2id parameters for new hashes.
type PasswordConfig struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
	UpgradeOnLogin   bool
	// AcceptBcrypt lets Login verify legacy bcrypt hashes.
	AcceptBcrypt bool
	BcryptCost   int
}

type AccountConfig struct {
	Enabled   bool
	AutoLogin bool
}

// SecurityConfig controls production hardening and login throttling.
// Throttling needs a Redis client on the builder.
type SecurityConfig struct {
	ProductionMode        bool
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

// CookieConfig shapes the refresh token cookie built by Engine.RefreshCookie.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration. Signing keys are empty
// and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "ed25519",
		},
		Session: SessionConfig{
			RedisPrefix: "ars",
			Retention:   7 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:           pw.Memory,
			Time:             pw.Time,
			Parallelism:      pw.Parallelism,
			SaltLength:       pw.SaltLength,
			KeyLength:        pw.KeyLength,
			MaxPasswordBytes: pw.MaxPasswordBytes,
			UpgradeOnLogin:   true,
			AcceptBcrypt:     true,
			BcryptCost:       12,
		},
		Account: AccountConfig{
			Enabled:   true,
			AutoLogin: false,
		},
		Security: SecurityConfig{
			ProductionMode:        false,
			EnableLoginThrottle:   false,
			EnableIPThrottle:      true,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
		},
		Cookie: CookieConfig{
			Name:     "refresh_token",
			Path:     "/api/auth",
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if cfg.JWT.VerifyKeys != nil {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c PasswordConfig) argon2() password.Config {
	return password.Config{
		Memory:           c.Memory,
		Time:             c.Time,
		Parallelism:      c.Parallelism,
		SaltLength:       c.SaltLength,
		KeyLength:        c.KeyLength,
		MaxPasswordBytes: c.MaxPasswordBytes,
	}
}

// Validate rejects incomplete or unsafe configurations. Every problem is
// reported, joined with errors.Join.
func (c *Config) Validate() error {
	var errs []error
	check := func(bad bool, format string, args ...any) {
		if bad {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	jwt := c.JWT
	check(jwt.AccessTTL <= 0, "JWT AccessTTL must be > 0")
	check(jwt.RefreshTTL <= jwt.AccessTTL, "JWT RefreshTTL must be longer than AccessTTL")
	check(jwt.Leeway < 0 || jwt.Leeway > 2*time.Minute, "JWT Leeway must be between 0 and 2m")
	switch jwt.SigningMethod {
	case "ed25519":
		check(len(jwt.PrivateKey) == 0, "ed25519 requires PrivateKey")
		check(len(jwt.PublicKey) == 0 && len(jwt.VerifyKeys) == 0, "ed25519 requires PublicKey or VerifyKeys")
	case "hs256":
		check(len(jwt.PrivateKey) < 32, "hs256 PrivateKey must be at least 256 bits")
	default:
		check(true, "unsupported JWT signing method %q", jwt.SigningMethod)
	}

	check(c.Session.Retention < 0, "Session Retention must be >= 0")
	check(strings.ContainsAny(c.Session.RedisPrefix, " \t\r\n"), "Session RedisPrefix must not contain whitespace")

	pw := c.Password
	check(pw.Memory < 8*1024, "Password Memory must be >= 8192 KiB")
	check(pw.Time < 1, "Password Time must be >= 1")
	check(pw.Parallelism < 1, "Password Parallelism must be >= 1")
	check(pw.SaltLength < 16, "Password SaltLength must be >= 16")
	check(pw.KeyLength < 16, "Password KeyLength must be >= 16")
	check(pw.MaxPasswordBytes < 0, "Password MaxPasswordBytes must be >= 0")

	if sec := c.Security; sec.EnableLoginThrottle {
		check(sec.MaxLoginAttempts <= 0, "Security MaxLoginAttempts must be > 0 when login throttling is enabled")
		check(sec.LoginCooldownDuration <= 0, "Security LoginCooldownDuration must be > 0 when login throttling is enabled")
	}

	check(c.Cookie.Name == "", "Cookie Name must be set")
	check(!strings.HasPrefix(c.Cookie.Path, "/"), "Cookie Path must start with /")
	check(c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure, "Cookie SameSite=None requires Secure")

	check(c.Audit.Enabled && c.Audit.BufferSize <= 0, "Audit BufferSize must be > 0 when audit is enabled")

	if c.Security.ProductionMode {
		check(pw.Memory < 64*1024, "production mode requires Password Memory >= 65536 KiB, got %d", pw.Memory)
		check(!c.Cookie.Secure, "production mode requires Cookie Secure")
		check(jwt.AccessTTL > time.Hour, "production mode requires JWT AccessTTL <= 1h")
	}
	return errors.Join(errs...)
}
