// Package serverconfig loads the reference server's configuration from the
// process environment and an optional .env file. Real environment variables
// take precedence over the file.
package serverconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/joho/godotenv"
)

// Store backends selectable with AUTHCORE_STORE.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Auth     AuthConfig
	LogLevel slog.Level
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	PurgeInterval  time.Duration
	EnableMetrics  bool
}

type StorageConfig struct {
	Backend     string
	SQLitePath  string
	DatabaseURL string
}

// RedisConfig is used by the redis store backend and by login throttling.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Method         string
	Secret         string
	PrivateKeyFile string
	PublicKeyFile  string
	Issuer         string
	Audience       string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
}

type AuthConfig struct {
	Production    bool
	AutoLogin     bool
	LoginThrottle bool
	MaxAttempts   int
	CookieDomain  string
	CookieSecure  bool
	Audit         bool
}

// Load reads files (".env" when none are given) and the environment.
// Missing files are skipped.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	fileEnv := map[string]string{}
	for _, f := range files {
		vals, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range vals {
			if _, seen := fileEnv[k]; !seen {
				fileEnv[k] = v
			}
		}
	}

	e := env{lookup: func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	}}
	return e.load()
}

type env struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *env) load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:           e.str("AUTHCORE_HTTP_ADDR", ":8080"),
			AllowedOrigins: e.list("AUTHCORE_CORS_ORIGINS"),
			PurgeInterval:  e.duration("AUTHCORE_PURGE_INTERVAL", time.Hour),
			EnableMetrics:  e.bool("AUTHCORE_METRICS", false),
		},
		Storage: StorageConfig{
			Backend:     strings.ToLower(e.str("AUTHCORE_STORE", StoreSQLite)),
			SQLitePath:  e.str("AUTHCORE_SQLITE_PATH", "./data/authcore.db"),
			DatabaseURL: e.str("AUTHCORE_DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Addr:     e.str("AUTHCORE_REDIS_ADDR", ""),
			Password: e.str("AUTHCORE_REDIS_PASSWORD", ""),
			DB:       e.int("AUTHCORE_REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Method:         strings.ToLower(e.str("AUTHCORE_JWT_METHOD", "ed25519")),
			Secret:         e.str("AUTHCORE_JWT_SECRET", ""),
			PrivateKeyFile: e.str("AUTHCORE_JWT_PRIVATE_KEY_FILE", ""),
			PublicKeyFile:  e.str("AUTHCORE_JWT_PUBLIC_KEY_FILE", ""),
			Issuer:         e.str("AUTHCORE_JWT_ISSUER", ""),
			Audience:       e.str("AUTHCORE_JWT_AUDIENCE", ""),
			AccessTTL:      e.duration("AUTHCORE_ACCESS_TTL", 15*time.Minute),
			RefreshTTL:     e.duration("AUTHCORE_REFRESH_TTL", 7*24*time.Hour),
		},
		Auth: AuthConfig{
			Production:    e.bool("AUTHCORE_PRODUCTION", false),
			AutoLogin:     e.bool("AUTHCORE_AUTO_LOGIN", false),
			LoginThrottle: e.bool("AUTHCORE_LOGIN_THROTTLE", false),
			MaxAttempts:   e.int("AUTHCORE_MAX_LOGIN_ATTEMPTS", 5),
			CookieDomain:  e.str("AUTHCORE_COOKIE_DOMAIN", ""),
			CookieSecure:  e.bool("AUTHCORE_COOKIE_SECURE", true),
			Audit:         e.bool("AUTHCORE_AUDIT", false),
		},
	}
	if e.err != nil {
		return nil, e.err
	}

	level := e.str("AUTHCORE_LOG_LEVEL", "info")
	if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid AUTHCORE_LOG_LEVEL: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("AUTHCORE_DATABASE_URL is required for the postgres store")
		}
	case StoreRedis:
		if c.Redis.Addr == "" {
			return errors.New("AUTHCORE_REDIS_ADDR is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown AUTHCORE_STORE %q", c.Storage.Backend)
	}
	if c.Auth.LoginThrottle && c.Redis.Addr == "" {
		return errors.New("AUTHCORE_LOGIN_THROTTLE requires AUTHCORE_REDIS_ADDR")
	}

	switch c.JWT.Method {
	case "hs256":
		if c.JWT.Secret == "" {
			return errors.New("AUTHCORE_JWT_SECRET is required for hs256")
		}
	case "ed25519":
		if c.JWT.PrivateKeyFile == "" || c.JWT.PublicKeyFile == "" {
			return errors.New("AUTHCORE_JWT_PRIVATE_KEY_FILE and AUTHCORE_JWT_PUBLIC_KEY_FILE are required for ed25519")
		}
	default:
		return fmt.Errorf("unknown AUTHCORE_JWT_METHOD %q", c.JWT.Method)
	}
	return nil
}

// EngineConfig maps the server settings onto an authcore.Config, reading
// key files as needed. The result still goes through Config.Validate in
// Builder.Build.
func (c *Config) EngineConfig() (authcore.Config, error) {
	cfg := authcore.DefaultConfig()

	cfg.JWT.SigningMethod = c.JWT.Method
	cfg.JWT.Issuer = c.JWT.Issuer
	cfg.JWT.Audience = c.JWT.Audience
	cfg.JWT.AccessTTL = c.JWT.AccessTTL
	cfg.JWT.RefreshTTL = c.JWT.RefreshTTL
	switch c.JWT.Method {
	case "hs256":
		cfg.JWT.PrivateKey = []byte(c.JWT.Secret)
	case "ed25519":
		priv, err := os.ReadFile(c.JWT.PrivateKeyFile)
		if err != nil {
			return authcore.Config{}, fmt.Errorf("read private key: %w", err)
		}
		pub, err := os.ReadFile(c.JWT.PublicKeyFile)
		if err != nil {
			return authcore.Config{}, fmt.Errorf("read public key: %w", err)
		}
		cfg.JWT.PrivateKey = priv
		cfg.JWT.PublicKey = pub
	}

	cfg.Account.AutoLogin = c.Auth.AutoLogin
	cfg.Security.ProductionMode = c.Auth.Production
	cfg.Security.EnableLoginThrottle = c.Auth.LoginThrottle
	cfg.Security.MaxLoginAttempts = c.Auth.MaxAttempts
	cfg.Cookie.Domain = c.Auth.CookieDomain
	cfg.Cookie.Secure = c.Auth.CookieSecure
	cfg.Audit.Enabled = c.Auth.Audit
	cfg.Metrics.Enabled = c.Server.EnableMetrics
	cfg.Metrics.EnableLatencyHistograms = c.Server.EnableMetrics

	return cfg, nil
}

func (e *env) str(key, fallback string) string {
	if v, ok := e.lookup(key); ok {
		return v
	}
	return fallback
}

func (e *env) list(key string) []string {
	raw := e.str(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (e *env) int(key string, fallback int) int {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, err)
		return fallback
	}
	return n
}

func (e *env) bool(key string, fallback bool) bool {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, err)
		return fallback
	}
	return b
}

func (e *env) duration(key string, fallback time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, err)
		return fallback
	}
	return d
}

func (e *env) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}
