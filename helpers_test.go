package authcore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testPassword = "correct-horse-battery"
	testSecret   = "0123456789abcdef0123456789abcdef"
)

var testEpoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// testClock is a settable time source shared by the engine and its stores.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testEpoch}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingProvider wraps MemoryUserProvider and counts calls.
type countingProvider struct {
	*MemoryUserProvider
	byExternal atomic.Int64
	byID       atomic.Int64
	updates    atomic.Int64
}

func (p *countingProvider) GetUserByExternalID(ctx context.Context, externalID string) (UserRecord, error) {
	p.byExternal.Add(1)
	return p.MemoryUserProvider.GetUserByExternalID(ctx, externalID)
}

func (p *countingProvider) GetUserByID(ctx context.Context, userID string) (UserRecord, error) {
	p.byID.Add(1)
	return p.MemoryUserProvider.GetUserByID(ctx, userID)
}

func (p *countingProvider) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	p.updates.Add(1)
	return p.MemoryUserProvider.UpdatePasswordHash(ctx, userID, newHash)
}

func (p *countingProvider) calls() int64 {
	return p.byExternal.Load() + p.byID.Load() + p.updates.Load()
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte(testSecret)
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.BcryptCost = 4
	return cfg
}

type testEnv struct {
	engine   *Engine
	clock    *testClock
	users    *countingProvider
	sessions session.Store
}

type testOption func(*Builder)

func withAudit(sink AuditSink) testOption {
	return func(b *Builder) {
		b.config.Audit.Enabled = true
		b.WithAuditSink(sink)
	}
}

func withStore(store session.Store) testOption {
	return func(b *Builder) { b.WithSessionStore(store) }
}

func newTestEnv(t testing.TB, cfg Config, opts ...testOption) *testEnv {
	t.Helper()

	clock := newTestClock()
	users := &countingProvider{MemoryUserProvider: NewMemoryUserProvider(clock.Now)}
	store := session.Store(session.NewMemoryStore())

	b := New().
		WithConfig(cfg).
		WithClock(clock.Now).
		WithUserProvider(users).
		WithSessionStore(store).
		WithMetricsEnabled(true)
	for _, opt := range opts {
		opt(b)
	}
	if b.sessionStore != nil {
		store = b.sessionStore
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, clock: clock, users: users, sessions: store}
}

// seedUser stores a user with an argon2id hash of plain and returns its id.
func (env *testEnv) seedUser(t testing.TB, externalID, plain string) string {
	t.Helper()
	hash, err := env.engine.passwords.Hash(plain)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	rec, err := env.users.CreateUser(context.Background(), CreateUserInput{
		ExternalID:   externalID,
		Name:         externalID,
		Email:        externalID + "@example.test",
		PasswordHash: hash,
	})
	if err != nil {
		t.Fatalf("seed user failed: %v", err)
	}
	return rec.UserID
}

func (env *testEnv) login(t testing.TB, externalID string) *TokenPair {
	t.Helper()
	pair, err := env.engine.Login(context.Background(), externalID, testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return pair
}

func (env *testEnv) findSession(t testing.TB, refreshToken string) *session.Session {
	t.Helper()
	claims, err := env.engine.jwtManager.Decode(refreshToken)
	if err != nil {
		t.Fatalf("decode refresh failed: %v", err)
	}
	sess, err := env.sessions.FindByJTI(context.Background(), claims.ID)
	if err != nil {
		t.Fatalf("find session failed: %v", err)
	}
	return sess
}

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func legacyBcrypt(t testing.TB, plain string) string {
	t.Helper()
	hash, err := password.NewBcrypt(4).Hash(plain)
	if err != nil {
		t.Fatalf("bcrypt hash failed: %v", err)
	}
	return hash
}
