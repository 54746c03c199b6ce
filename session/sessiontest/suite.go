// Package sessiontest holds the behavioural checks every session.Store
// implementation must pass.
package sessiontest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/refresh"
	"github.com/MrEthical07/authcore/session"
)

// Base is the reference instant used by the suite. Whole seconds keep every
// backend's timestamp precision lossless.
var Base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// Factory returns a fresh, empty store. Users referenced by the suite are
// "user-a" and "user-b"; backends with foreign keys must seed them.
type Factory func(t *testing.T) session.Store

// Run executes the conformance suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAndFind", func(t *testing.T) { testCreateAndFind(t, newStore(t)) })
	t.Run("DuplicateJTI", func(t *testing.T) { testDuplicateJTI(t, newStore(t)) })
	t.Run("FindMissing", func(t *testing.T) { testFindMissing(t, newStore(t)) })
	t.Run("RevokeCompareAndSwap", func(t *testing.T) { testRevokeCAS(t, newStore(t)) })
	t.Run("RevokeConcurrentSingleWinner", func(t *testing.T) { testRevokeSingleWinner(t, newStore(t)) })
	t.Run("RevokeAllForUser", func(t *testing.T) { testRevokeAll(t, newStore(t)) })
	t.Run("Touch", func(t *testing.T) { testTouch(t, newStore(t)) })
	t.Run("PurgeExpired", func(t *testing.T) { testPurge(t, newStore(t)) })
}

// Params builds CreateParams for user with a jti and a fingerprint derived from it.
func Params(userID, jti string) session.CreateParams {
	return session.CreateParams{
		UserID:      userID,
		JTI:         jti,
		Fingerprint: refresh.Fingerprint("token-" + jti),
		ExpiresAt:   Base.Add(7 * 24 * time.Hour),
		UserAgent:   "suite-agent/1.0",
		IP:          "203.0.113.7",
		CreatedAt:   Base,
	}
}

func mustCreate(t *testing.T, store session.Store, params session.CreateParams) *session.Session {
	t.Helper()
	sess, err := store.Create(context.Background(), params)
	if err != nil {
		t.Fatalf("create %s failed: %v", params.JTI, err)
	}
	return sess
}

func mustFind(t *testing.T, store session.Store, jti string) *session.Session {
	t.Helper()
	sess, err := store.FindByJTI(context.Background(), jti)
	if err != nil {
		t.Fatalf("find %s failed: %v", jti, err)
	}
	return sess
}

func testCreateAndFind(t *testing.T, store session.Store) {
	params := Params("user-a", "jti-create")
	mustCreate(t, store, params)

	got := mustFind(t, store, "jti-create")
	if got.UserID != params.UserID || got.JTI != params.JTI || got.Fingerprint != params.Fingerprint {
		t.Fatalf("unexpected identity fields: %+v", got)
	}
	if !got.ExpiresAt.Equal(params.ExpiresAt) {
		t.Fatalf("expected expires_at %v, got %v", params.ExpiresAt, got.ExpiresAt)
	}
	if !got.CreatedAt.Equal(params.CreatedAt) {
		t.Fatalf("expected created_at %v, got %v", params.CreatedAt, got.CreatedAt)
	}
	if got.Revoked {
		t.Fatal("new session must not be revoked")
	}
	if !got.LastUsedAt.IsZero() {
		t.Fatalf("new session must not have last_used_at, got %v", got.LastUsedAt)
	}
	if got.UserAgent != params.UserAgent || got.IP != params.IP {
		t.Fatalf("unexpected metadata: ua=%q ip=%q", got.UserAgent, got.IP)
	}
}

func testDuplicateJTI(t *testing.T, store session.Store) {
	mustCreate(t, store, Params("user-a", "jti-dup"))
	_, err := store.Create(context.Background(), Params("user-b", "jti-dup"))
	if !errors.Is(err, session.ErrDuplicateJTI) {
		t.Fatalf("expected ErrDuplicateJTI, got %v", err)
	}
	if got := mustFind(t, store, "jti-dup"); got.UserID != "user-a" {
		t.Fatalf("duplicate create overwrote owner: %s", got.UserID)
	}
}

func testFindMissing(t *testing.T, store session.Store) {
	if _, err := store.FindByJTI(context.Background(), "missing"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testRevokeCAS(t *testing.T, store session.Store) {
	ctx := context.Background()
	mustCreate(t, store, Params("user-a", "jti-revoke"))

	res, err := store.Revoke(ctx, "jti-revoke")
	if err != nil {
		t.Fatalf("first revoke failed: %v", err)
	}
	if res != session.RevokeApplied {
		t.Fatalf("expected applied, got %s", res)
	}
	res, err = store.Revoke(ctx, "jti-revoke")
	if err != nil {
		t.Fatalf("second revoke failed: %v", err)
	}
	if res != session.RevokeAlreadyRevoked {
		t.Fatalf("expected already_revoked, got %s", res)
	}
	if !mustFind(t, store, "jti-revoke").Revoked {
		t.Fatal("expected session to be revoked")
	}
	if _, err := store.Revoke(ctx, "missing"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing jti, got %v", err)
	}
}

func testRevokeSingleWinner(t *testing.T, store session.Store) {
	mustCreate(t, store, Params("user-a", "jti-race"))

	const workers = 16
	var (
		applied int64
		already int64
		failed  int64
		start   = make(chan struct{})
		wg      sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := store.Revoke(context.Background(), "jti-race")
			switch {
			case err != nil:
				atomic.AddInt64(&failed, 1)
			case res == session.RevokeApplied:
				atomic.AddInt64(&applied, 1)
			case res == session.RevokeAlreadyRevoked:
				atomic.AddInt64(&already, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if failed != 0 {
		t.Fatalf("expected no revoke errors, got %d", failed)
	}
	if applied != 1 || already != workers-1 {
		t.Fatalf("expected exactly one winner, applied=%d already=%d", applied, already)
	}
}

func testRevokeAll(t *testing.T, store session.Store) {
	ctx := context.Background()
	mustCreate(t, store, Params("user-a", "jti-a1"))
	mustCreate(t, store, Params("user-a", "jti-a2"))
	mustCreate(t, store, Params("user-a", "jti-a3"))
	mustCreate(t, store, Params("user-b", "jti-b1"))
	if _, err := store.Revoke(ctx, "jti-a3"); err != nil {
		t.Fatalf("revoke a3 failed: %v", err)
	}

	changed, err := store.RevokeAllForUser(ctx, "user-a")
	if err != nil {
		t.Fatalf("revoke all failed: %v", err)
	}
	if changed != 2 {
		t.Fatalf("expected 2 sessions changed, got %d", changed)
	}
	for _, jti := range []string{"jti-a1", "jti-a2", "jti-a3"} {
		if !mustFind(t, store, jti).Revoked {
			t.Fatalf("expected %s revoked", jti)
		}
	}
	if mustFind(t, store, "jti-b1").Revoked {
		t.Fatal("other user's session must stay active")
	}

	changed, err = store.RevokeAllForUser(ctx, "user-a")
	if err != nil {
		t.Fatalf("second revoke all failed: %v", err)
	}
	if changed != 0 {
		t.Fatalf("expected idempotent revoke all, got %d", changed)
	}
	if changed, err := store.RevokeAllForUser(ctx, "nobody"); err != nil || changed != 0 {
		t.Fatalf("expected no-op for unknown user, got %d, %v", changed, err)
	}
}

func testTouch(t *testing.T, store session.Store) {
	ctx := context.Background()
	mustCreate(t, store, Params("user-a", "jti-touch"))

	at := Base.Add(time.Hour)
	if err := store.Touch(ctx, "jti-touch", at); err != nil {
		t.Fatalf("touch failed: %v", err)
	}
	got := mustFind(t, store, "jti-touch")
	if !got.LastUsedAt.Equal(at) {
		t.Fatalf("expected last_used_at %v, got %v", at, got.LastUsedAt)
	}
	if got.Revoked {
		t.Fatal("touch must not change revoked")
	}
	if err := store.Touch(ctx, "missing", at); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testPurge(t *testing.T, store session.Store) {
	pruner, ok := store.(session.Pruner)
	if !ok {
		t.Skip("store does not implement session.Pruner")
	}
	ctx := context.Background()

	expired := Params("user-a", "jti-old")
	expired.ExpiresAt = Base.Add(time.Hour)
	mustCreate(t, store, expired)
	if _, err := store.Revoke(ctx, "jti-old"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	activeExpired := Params("user-a", "jti-old-active")
	activeExpired.ExpiresAt = Base.Add(time.Hour)
	mustCreate(t, store, activeExpired)

	mustCreate(t, store, Params("user-a", "jti-current"))
	if _, err := store.Revoke(ctx, "jti-current"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	removed, err := pruner.PurgeExpired(ctx, Base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 purged session, got %d", removed)
	}
	if _, err := store.FindByJTI(ctx, "jti-old"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected purged session gone, got %v", err)
	}
	mustFind(t, store, "jti-old-active")
	mustFind(t, store, "jti-current")
}
