package authcore

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "baseline",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "jwt leeway valid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 45 * time.Second
			},
			wantValid: true,
		},
		{
			name: "jwt leeway invalid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "access ttl zero",
			mutate: func(c *Config) {
				c.JWT.AccessTTL = 0
			},
			wantValid: false,
		},
		{
			name: "refresh not longer than access",
			mutate: func(c *Config) {
				c.JWT.RefreshTTL = c.JWT.AccessTTL
			},
			wantValid: false,
		},
		{
			name: "jwt signing invalid",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "rs256"
			},
			wantValid: false,
		},
		{
			name: "hs256 short secret",
			mutate: func(c *Config) {
				c.JWT.PrivateKey = []byte("too-short")
			},
			wantValid: false,
		},
		{
			name: "ed25519 without public key",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "ed25519"
				c.JWT.PublicKey = nil
			},
			wantValid: false,
		},
		{
			name: "negative retention",
			mutate: func(c *Config) {
				c.Session.Retention = -time.Second
			},
			wantValid: false,
		},
		{
			name: "zero retention",
			mutate: func(c *Config) {
				c.Session.Retention = 0
			},
			wantValid: true,
		},
		{
			name: "redis prefix with whitespace",
			mutate: func(c *Config) {
				c.Session.RedisPrefix = "auth core"
			},
			wantValid: false,
		},
		{
			name: "argon memory too low",
			mutate: func(c *Config) {
				c.Password.Memory = 4 * 1024
			},
			wantValid: false,
		},
		{
			name: "salt too short",
			mutate: func(c *Config) {
				c.Password.SaltLength = 8
			},
			wantValid: false,
		},
		{
			name: "throttle without attempts",
			mutate: func(c *Config) {
				c.Security.EnableLoginThrottle = true
				c.Security.MaxLoginAttempts = 0
			},
			wantValid: false,
		},
		{
			name: "throttle without cooldown",
			mutate: func(c *Config) {
				c.Security.EnableLoginThrottle = true
				c.Security.LoginCooldownDuration = 0
			},
			wantValid: false,
		},
		{
			name: "cookie path relative",
			mutate: func(c *Config) {
				c.Cookie.Path = "api/auth/refresh"
			},
			wantValid: false,
		},
		{
			name: "cookie samesite none insecure",
			mutate: func(c *Config) {
				c.Cookie.SameSite = http.SameSiteNoneMode
				c.Cookie.Secure = false
			},
			wantValid: false,
		},
		{
			name: "audit without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestProductionModeHardening(t *testing.T) {
	cfg := testConfig()
	cfg.Security.ProductionMode = true
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "Password Memory") {
		t.Fatalf("expected argon memory rejection, got %v", err)
	}

	cfg.Password.Memory = 64 * 1024
	cfg.Cookie.Secure = false
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "Cookie Secure") {
		t.Fatalf("expected insecure cookie rejection, got %v", err)
	}

	cfg.Cookie.Secure = true
	cfg.JWT.AccessTTL = 2 * time.Hour
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "AccessTTL") {
		t.Fatalf("expected long access ttl rejection, got %v", err)
	}

	cfg.JWT.AccessTTL = 15 * time.Minute
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected hardened config to validate, got %v", err)
	}
}

func TestWithConfigCopiesKeys(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.VerifyKeys = map[string][]byte{"k1": []byte("key")}

	b := New().WithConfig(cfg)
	cfg.JWT.PrivateKey[0] = 'X'
	cfg.JWT.VerifyKeys["k1"][0] = 'X'

	if b.config.JWT.PrivateKey[0] == 'X' {
		t.Fatal("private key must be copied")
	}
	if b.config.JWT.VerifyKeys["k1"][0] == 'X' {
		t.Fatal("verify keys must be copied")
	}
}

func TestBuildRejectsIncompleteWiring(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("expected missing user provider error")
	}

	users := NewMemoryUserProvider(nil)
	if _, err := New().WithConfig(testConfig()).WithUserProvider(users).Build(); err == nil {
		t.Fatal("expected missing session store error")
	}

	cfg := testConfig()
	cfg.Security.EnableLoginThrottle = true
	b := New().WithConfig(cfg).WithUserProvider(users).WithSessionStore(nil)
	if _, err := b.Build(); err == nil {
		t.Fatal("expected throttling without redis to fail")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithConfig(testConfig()).WithUserProvider(NewMemoryUserProvider(nil))
	_, rdb := newTestRedis(t)
	b.WithRedis(rdb)
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	defer engine.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("second build must fail")
	}
}
