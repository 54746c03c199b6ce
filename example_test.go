package authcore_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/session"
	"github.com/redis/go-redis/v9"
)

func exampleEngine() *authcore.Engine {
	cfg := authcore.DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("example-secret-example-secret-32")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1

	engine, err := authcore.New().
		WithConfig(cfg).
		WithUserProvider(authcore.NewMemoryUserProvider(nil)).
		WithSessionStore(session.NewMemoryStore()).
		Build()
	if err != nil {
		panic(err)
	}
	_, err = engine.CreateAccount(context.Background(), authcore.CreateAccountRequest{
		ExternalID: "alice",
		Email:      "alice@example.test",
		Password:   "correct-horse-battery",
	})
	if err != nil {
		panic(err)
	}
	return engine
}

// ExampleNew wires an engine whose sessions and login throttle live in Redis.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})

	cfg := authcore.DefaultConfig()
	cfg.Security.EnableLoginThrottle = true

	engine, err := authcore.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(authcore.NewMemoryUserProvider(nil)).
		Build()
	_, _ = engine, err
}

// ExampleEngine_Refresh shows rotation: the old refresh token stops working
// and replaying it revokes every session of the user.
func ExampleEngine_Refresh() {
	engine := exampleEngine()
	defer engine.Close()
	ctx := context.Background()

	first, _ := engine.Login(ctx, "alice", "correct-horse-battery")
	second, err := engine.Refresh(ctx, first.RefreshToken)
	fmt.Println("rotated:", err == nil)

	_, err = engine.Refresh(ctx, first.RefreshToken)
	fmt.Println("replay is reuse:", errors.Is(err, authcore.ErrRefreshReuse))

	_, err = engine.Refresh(ctx, second.RefreshToken)
	fmt.Println("family revoked:", errors.Is(err, authcore.ErrRefreshReuse))
	// Output:
	// rotated: true
	// replay is reuse: true
	// family revoked: true
}

// ExampleEngine_Logout shows that logout is idempotent.
func ExampleEngine_Logout() {
	engine := exampleEngine()
	defer engine.Close()
	ctx := context.Background()

	pair, _ := engine.Login(ctx, "alice", "correct-horse-battery")
	fmt.Println(engine.Logout(ctx, pair.RefreshToken))
	fmt.Println(engine.Logout(ctx, pair.RefreshToken))
	fmt.Println(engine.Logout(ctx, "not-a-token"))
	// Output:
	// <nil>
	// <nil>
	// <nil>
}

// ExampleEngine_MetricsSnapshot reads the in-process counters.
func ExampleEngine_MetricsSnapshot() {
	var engine *authcore.Engine
	snapshot := engine.MetricsSnapshot()
	fmt.Println(snapshot.Counters[authcore.MetricLoginSuccess])
	// Output: 0
}
