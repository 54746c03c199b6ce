package authcore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrEthical07/authcore/session"
)

func TestCreateAccountSuccess(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	res, err := env.engine.CreateAccount(ctx, CreateAccountRequest{
		ExternalID: "alice",
		Name:       "Alice",
		Email:      "alice@example.test",
		Password:   "new-password-123",
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if res.UserID == "" {
		t.Fatal("expected created user id")
	}
	if res.AccessToken != "" || res.RefreshToken != "" {
		t.Fatal("expected no tokens when AutoLogin is disabled")
	}

	created, err := env.users.MemoryUserProvider.GetUserByID(ctx, res.UserID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !strings.HasPrefix(created.PasswordHash, "$argon2id$") {
		t.Fatal("expected stored password to be an argon2id hash")
	}
	ok, err := env.engine.passwords.Verify("new-password-123", created.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("expected stored hash to verify, ok=%v err=%v", ok, err)
	}

	if _, err := env.engine.Login(ctx, "alice", "new-password-123"); err != nil {
		t.Fatalf("login with new account failed: %v", err)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricAccountCreationSuccess]; got != 1 {
		t.Fatalf("expected account creation metric 1, got %d", got)
	}
}

func TestCreateAccountAutoLoginIssuesTokens(t *testing.T) {
	cfg := testConfig()
	cfg.Account.AutoLogin = true
	env := newTestEnv(t, cfg)
	ctx := context.Background()

	res, err := env.engine.CreateAccount(ctx, CreateAccountRequest{
		ExternalID: "alice",
		Email:      "alice@example.test",
		Password:   "new-password-123",
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected tokens with AutoLogin")
	}
	access, err := env.engine.ValidateAccess(ctx, res.AccessToken)
	if err != nil || access.UserID != res.UserID {
		t.Fatalf("auto-login access token invalid: %v", err)
	}
	if env.findSession(t, res.RefreshToken).UserID != res.UserID {
		t.Fatal("auto-login must create a session")
	}
	if _, err := env.engine.Refresh(ctx, res.RefreshToken); err != nil {
		t.Fatalf("auto-login refresh token must rotate: %v", err)
	}
}

func TestCreateAccountDuplicateRejected(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seedUser(t, "alice", testPassword)
	ctx := context.Background()

	tests := []CreateAccountRequest{
		{ExternalID: "alice", Email: "other@example.test", Password: "new-password-123"},
		{ExternalID: "alice2", Email: "ALICE@example.test", Password: "new-password-123"},
	}
	for _, req := range tests {
		if _, err := env.engine.CreateAccount(ctx, req); !errors.Is(err, ErrAccountExists) {
			t.Fatalf("%s: expected ErrAccountExists, got %v", req.ExternalID, err)
		}
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricAccountCreationDuplicate]; got != 2 {
		t.Fatalf("expected 2 duplicates, got %d", got)
	}
}

func TestCreateAccountInvalidInput(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateAccountRequest
	}{
		{"missing external id", CreateAccountRequest{Email: "a@example.test", Password: "new-password-123"}},
		{"blank external id", CreateAccountRequest{ExternalID: "   ", Email: "a@example.test", Password: "new-password-123"}},
		{"long external id", CreateAccountRequest{ExternalID: strings.Repeat("x", 129), Email: "a@example.test", Password: "new-password-123"}},
		{"missing email", CreateAccountRequest{ExternalID: "a", Password: "new-password-123"}},
		{"bad email", CreateAccountRequest{ExternalID: "a", Email: "Alice <a@example.test>", Password: "new-password-123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.engine.CreateAccount(ctx, tt.req); !errors.Is(err, ErrAccountCreationInvalid) {
				t.Fatalf("expected ErrAccountCreationInvalid, got %v", err)
			}
		})
	}
	if env.users.calls() != 0 {
		t.Fatal("invalid input must not reach the provider")
	}
}

func TestCreateAccountPasswordTooShortRejected(t *testing.T) {
	env := newTestEnv(t, testConfig())

	_, err := env.engine.CreateAccount(context.Background(), CreateAccountRequest{
		ExternalID: "alice",
		Email:      "alice@example.test",
		Password:   "short",
	})
	if !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
}

func TestCreateAccountDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Account.Enabled = false
	env := newTestEnv(t, cfg)

	_, err := env.engine.CreateAccount(context.Background(), CreateAccountRequest{
		ExternalID: "alice",
		Email:      "alice@example.test",
		Password:   "new-password-123",
	})
	if !errors.Is(err, ErrAccountCreationDisabled) {
		t.Fatalf("expected ErrAccountCreationDisabled, got %v", err)
	}
}

type failingCreateProvider struct {
	*MemoryUserProvider
}

func (failingCreateProvider) CreateUser(context.Context, CreateUserInput) (UserRecord, error) {
	return UserRecord{}, errors.New("connection reset")
}

func TestCreateAccountProviderErrorIsStorageFailure(t *testing.T) {
	engine, err := New().
		WithConfig(testConfig()).
		WithUserProvider(failingCreateProvider{NewMemoryUserProvider(nil)}).
		WithSessionStore(session.NewMemoryStore()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	_, err = engine.CreateAccount(context.Background(), CreateAccountRequest{
		ExternalID: "alice",
		Email:      "alice@example.test",
		Password:   "new-password-123",
	})
	if !errors.Is(err, ErrStorageFailure) {
		t.Fatalf("expected ErrStorageFailure, got %v", err)
	}
	if strings.Contains(err.Error(), "new-password-123") {
		t.Fatal("error must not carry the password")
	}
}
