package password

import (
	"errors"
	"strings"
	"testing"
)

func TestArgon2RoundTrip(t *testing.T) {
	hasher := fastArgon2(t)

	hash, err := hasher.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	for _, tc := range []struct {
		password string
		want     bool
	}{
		{"P@ssw0rd-Ascii", true},
		{"P@ssw0rd-ascii", false},
		{"", false},
	} {
		ok, err := hasher.Verify(tc.password, hash)
		if err != nil {
			t.Fatalf("Verify(%q) error: %v", tc.password, err)
		}
		if ok != tc.want {
			t.Fatalf("Verify(%q) = %v, want %v", tc.password, ok, tc.want)
		}
	}
}

func TestArgon2SaltIsRandom(t *testing.T) {
	hasher := fastArgon2(t)
	a, _ := hasher.Hash("same-password-1")
	b, _ := hasher.Hash("same-password-1")
	if a == b {
		t.Fatal("two hashes of one password must differ")
	}
}

func TestArgon2VerifyUsesStoredParameters(t *testing.T) {
	weak := fastArgon2(t)
	hash, err := weak.Hash("migrated-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	strong, err := NewArgon2(Config{Memory: 16 * 1024, Time: 2, Parallelism: 2, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	ok, err := strong.Verify("migrated-password", hash)
	if err != nil || !ok {
		t.Fatalf("stronger hasher must verify older hash: ok=%v err=%v", ok, err)
	}

	needs, err := strong.NeedsUpgrade(hash)
	if err != nil || !needs {
		t.Fatalf("NeedsUpgrade = %v, %v; want true", needs, err)
	}
	needs, err = weak.NeedsUpgrade(hash)
	if err != nil || needs {
		t.Fatalf("NeedsUpgrade with same params = %v, %v; want false", needs, err)
	}
}

func TestArgon2RejectsMalformedHashes(t *testing.T) {
	hasher := fastArgon2(t)
	good, err := hasher.Hash("well-formed-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	fields := strings.Split(good, "$")
	salt, key := fields[4], fields[5]

	tests := []struct {
		name string
		hash string
		want error
	}{
		{"not phc", "not-a-phc-hash", ErrUnsupportedHash},
		{"argon2i", "$argon2i$v=19$m=8192,t=1,p=1$" + salt + "$" + key, ErrUnsupportedHash},
		{"too few fields", "$argon2id$v=19$m=8192,t=1,p=1$" + salt, ErrMalformedHash},
		{"wrong version", "$argon2id$v=16$m=8192,t=1,p=1$" + salt + "$" + key, ErrMalformedHash},
		{"missing param", "$argon2id$v=19$m=8192,t=1$" + salt + "$" + key, ErrMalformedHash},
		{"duplicate param", "$argon2id$v=19$m=8192,m=8192,t=1$" + salt + "$" + key, ErrMalformedHash},
		{"unknown param", "$argon2id$v=19$m=8192,t=1,x=1$" + salt + "$" + key, ErrMalformedHash},
		{"zero time", "$argon2id$v=19$m=8192,t=0,p=1$" + salt + "$" + key, ErrMalformedHash},
		{"low memory", "$argon2id$v=19$m=1024,t=1,p=1$" + salt + "$" + key, ErrMalformedHash},
		{"parallelism overflow", "$argon2id$v=19$m=8192,t=1,p=256$" + salt + "$" + key, ErrMalformedHash},
		{"short salt", "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA==$" + key, ErrMalformedHash},
		{"bad key", "$argon2id$v=19$m=8192,t=1,p=1$" + salt + "$!!!", ErrMalformedHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := hasher.Verify("well-formed-password", tt.hash)
			if ok || !errors.Is(err, tt.want) {
				t.Fatalf("Verify = %v, %v; want %v", ok, err, tt.want)
			}
			if _, err := hasher.NeedsUpgrade(tt.hash); !errors.Is(err, tt.want) {
				t.Fatalf("NeedsUpgrade err = %v; want %v", err, tt.want)
			}
		})
	}
}

func TestArgon2ParameterOrderIsFree(t *testing.T) {
	hasher := fastArgon2(t)
	hash, _ := hasher.Hash("reordered-params")
	reordered := strings.Replace(hash, "m=8192,t=1,p=1", "p=1,t=1,m=8192", 1)

	ok, err := hasher.Verify("reordered-params", reordered)
	if err != nil || !ok {
		t.Fatalf("Verify = %v, %v", ok, err)
	}
}

func TestArgon2LengthLimits(t *testing.T) {
	hasher, err := NewArgon2(Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32, MaxPasswordBytes: 32})
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	tests := []struct {
		name     string
		password string
		want     error
	}{
		{"empty", "", ErrPasswordTooShort},
		{"one under minimum", strings.Repeat("a", minPassBytes-1), ErrPasswordTooShort},
		{"minimum", strings.Repeat("a", minPassBytes), nil},
		{"maximum", strings.Repeat("a", 32), nil},
		{"over maximum", strings.Repeat("a", 33), ErrPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hasher.Hash(tt.password)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Hash err = %v, want %v", err, tt.want)
			}
		})
	}

	hash, _ := hasher.Hash(strings.Repeat("a", 32))
	if _, err := hasher.Verify(strings.Repeat("a", 33), hash); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("Verify over maximum err = %v", err)
	}
}

func TestArgon2DefaultMaxPasswordBytes(t *testing.T) {
	hasher := fastArgon2(t)
	if hasher.config.MaxPasswordBytes != DefaultMaxPasswordBytes {
		t.Fatalf("MaxPasswordBytes = %d, want %d", hasher.config.MaxPasswordBytes, DefaultMaxPasswordBytes)
	}
	if _, err := hasher.Hash(strings.Repeat("x", DefaultMaxPasswordBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("Hash over default max err = %v", err)
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	base := Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	for name, mutate := range map[string]func(*Config){
		"memory":      func(c *Config) { c.Memory = 4 * 1024 },
		"time":        func(c *Config) { c.Time = 0 },
		"parallelism": func(c *Config) { c.Parallelism = 0 },
		"salt":        func(c *Config) { c.SaltLength = 8 },
		"key":         func(c *Config) { c.KeyLength = 8 },
		"max bytes":   func(c *Config) { c.MaxPasswordBytes = 4 },
	} {
		cfg := base
		mutate(&cfg)
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("%s: expected config error", name)
		}
	}
}
