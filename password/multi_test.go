package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func fastArgon2(t *testing.T) *Argon2 {
	t.Helper()
	hasher, err := NewArgon2(Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	return hasher
}

func legacyBcryptHash(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}
	return string(hash)
}

func TestBcryptVerify(t *testing.T) {
	b := NewBcrypt(bcrypt.MinCost)
	hash := legacyBcryptHash(t, "legacy-password")

	ok, err := b.Verify("legacy-password", hash)
	if err != nil || !ok {
		t.Fatalf("expected bcrypt match, ok=%v err=%v", ok, err)
	}
	ok, err = b.Verify("legacy-passwore", hash)
	if err != nil || ok {
		t.Fatalf("expected bcrypt mismatch without error, ok=%v err=%v", ok, err)
	}
	if _, err := b.Verify("legacy-password", "$argon2id$v=19$m=8192,t=1,p=1$x$y"); !errors.Is(err, ErrUnsupportedHash) {
		t.Fatalf("expected ErrUnsupportedHash, got %v", err)
	}
}

func TestBcryptHashLimits(t *testing.T) {
	b := NewBcrypt(bcrypt.MinCost)
	if _, err := b.Hash("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if _, err := b.Hash(strings.Repeat("x", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	hash, err := b.Hash("long-enough-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	needs, err := NewBcrypt(bcrypt.MinCost + 2).NeedsUpgrade(hash)
	if err != nil || !needs {
		t.Fatalf("expected higher cost to require upgrade, needs=%v err=%v", needs, err)
	}
}

func TestMultiRoutesByHashFormat(t *testing.T) {
	m := NewMulti(fastArgon2(t), NewBcrypt(bcrypt.MinCost))

	current, err := m.Hash("current-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(current, "$argon2id$") {
		t.Fatalf("expected argon2id hash, got %q", current[:10])
	}
	legacy := legacyBcryptHash(t, "legacy-password")

	for _, tc := range []struct {
		plain, hash string
		want        bool
	}{
		{"current-password", current, true},
		{"current-passwore", current, false},
		{"legacy-password", legacy, true},
		{"legacy-passwore", legacy, false},
	} {
		ok, err := m.Verify(tc.plain, tc.hash)
		if err != nil {
			t.Fatalf("Verify error: %v", err)
		}
		if ok != tc.want {
			t.Fatalf("Verify(%q) = %v, want %v", tc.plain, ok, tc.want)
		}
	}

	if _, err := m.Verify("anything-long", "plaintext-in-db"); !errors.Is(err, ErrUnsupportedHash) {
		t.Fatalf("expected ErrUnsupportedHash, got %v", err)
	}
}

func TestMultiNeedsUpgrade(t *testing.T) {
	m := NewMulti(fastArgon2(t), NewBcrypt(bcrypt.MinCost))

	needs, err := m.NeedsUpgrade(legacyBcryptHash(t, "legacy-password"))
	if err != nil || !needs {
		t.Fatalf("expected legacy hash to need upgrade, needs=%v err=%v", needs, err)
	}

	current, err := m.Hash("current-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	needs, err = m.NeedsUpgrade(current)
	if err != nil || needs {
		t.Fatalf("expected current hash to be up to date, needs=%v err=%v", needs, err)
	}
}
