// Command authcore-racecheck replays one refresh token from many goroutines
// at once and checks that exactly one rotation wins each round.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/session"
	"github.com/MrEthical07/authcore/sqlstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	raceUser     = "racer"
	racePassword = "race-check-password"
)

func main() {
	var (
		store      = flag.String("store", "memory", "session store: memory, redis or sqlite")
		goroutines = flag.Int("goroutines", 64, "concurrent refresh attempts per round")
		rounds     = flag.Int("rounds", 50, "number of rounds")
		redisAddr  = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *goroutines < 2 || *rounds <= 0 {
		fmt.Fprintln(os.Stderr, "goroutines must be >= 2 and rounds > 0")
		os.Exit(2)
	}

	ctx := context.Background()
	users, sessions, cleanup, err := openStore(ctx, *store, *redisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	engine, err := buildEngine(ctx, users, sessions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	var (
		violations int
		latencies  []time.Duration
	)
	start := time.Now()
	for round := 0; round < *rounds; round++ {
		res, err := runRound(ctx, engine, *goroutines)
		if err != nil {
			fmt.Fprintf(os.Stderr, "round %d: %v\n", round, err)
			os.Exit(1)
		}
		if res.winners != 1 || res.reuse != *goroutines-1 || res.other != 0 {
			violations++
			fmt.Printf("round %d: winners=%d reuse=%d other=%d\n", round, res.winners, res.reuse, res.other)
		}
		latencies = append(latencies, res.latencies...)
	}

	printStats(*store, computeStats(time.Since(start), latencies, int64(violations)))
	if violations > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d rounds broke the single-winner rule\n", violations, *rounds)
		os.Exit(1)
	}
}

type roundResult struct {
	winners   int
	reuse     int
	other     int
	latencies []time.Duration
}

func runRound(ctx context.Context, engine *authcore.Engine, goroutines int) (roundResult, error) {
	pair, err := engine.Login(ctx, raceUser, racePassword)
	if err != nil {
		return roundResult{}, fmt.Errorf("login: %w", err)
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		res   roundResult
		start = make(chan struct{})
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			t0 := time.Now()
			_, err := engine.Refresh(ctx, pair.RefreshToken)
			d := time.Since(t0)

			mu.Lock()
			defer mu.Unlock()
			res.latencies = append(res.latencies, d)
			switch {
			case err == nil:
				res.winners++
			case errors.Is(err, authcore.ErrRefreshReuse):
				res.reuse++
			default:
				res.other++
			}
		}()
	}
	close(start)
	wg.Wait()
	return res, nil
}

func buildEngine(ctx context.Context, users authcore.UserProvider, sessions session.Store) (*authcore.Engine, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	cfg := authcore.DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = secret
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1

	engine, err := authcore.New().
		WithConfig(cfg).
		WithUserProvider(users).
		WithSessionStore(sessions).
		Build()
	if err != nil {
		return nil, err
	}
	if _, err := engine.CreateAccount(ctx, authcore.CreateAccountRequest{
		ExternalID: raceUser,
		Email:      raceUser + "@example.test",
		Password:   racePassword,
	}); err != nil {
		engine.Close()
		return nil, err
	}
	return engine, nil
}

// openStore returns the user provider and session store for kind. SQLite
// keeps users in the same database since sessions reference them.
func openStore(ctx context.Context, kind, redisAddr string) (authcore.UserProvider, session.Store, func(), error) {
	switch kind {
	case "memory":
		return authcore.NewMemoryUserProvider(nil), session.NewMemoryStore(), func() {}, nil

	case "redis":
		addr := redisAddr
		if addr == "" {
			addr = os.Getenv("REDIS_ADDR")
		}
		var (
			cleanup func()
			client  redis.UniversalClient
		)
		if addr == "" {
			mr, err := miniredis.Run()
			if err != nil {
				return nil, nil, nil, fmt.Errorf("start miniredis: %w", err)
			}
			client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
			cleanup = func() {
				_ = client.Close()
				mr.Close()
			}
			fmt.Printf("using miniredis at %s\n", mr.Addr())
		} else {
			client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
			cleanup = func() { _ = client.Close() }
			fmt.Printf("using redis at %s\n", addr)
		}
		return authcore.NewMemoryUserProvider(nil), session.NewRedisStore(client, "racecheck", time.Hour), cleanup, nil

	case "sqlite":
		dir, err := os.MkdirTemp("", "authcore-racecheck-")
		if err != nil {
			return nil, nil, nil, err
		}
		db, err := sqlstore.Open(ctx, sqlstore.SQLite, sqlstore.SQLiteDSN(filepath.Join(dir, "race.db")))
		if err != nil {
			_ = os.RemoveAll(dir)
			return nil, nil, nil, err
		}
		cleanup := func() {
			_ = db.Close()
			_ = os.RemoveAll(dir)
		}
		if err := sqlstore.Migrate(ctx, db, sqlstore.SQLite); err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		fmt.Printf("using sqlite at %s\n", dir)
		return sqlstore.NewUserStore(db, sqlstore.SQLite), sqlstore.NewSessionStore(db, sqlstore.SQLite), cleanup, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store %q", kind)
}

type phaseStats struct {
	total      time.Duration
	ops        int
	violations int64
	p50        time.Duration
	p95        time.Duration
	p99        time.Duration
	opsPerS    float64
}

func computeStats(total time.Duration, samples []time.Duration, violations int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, violations: violations}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:      total,
		ops:        len(samples),
		violations: violations,
		p50:        percentile(samples, 50),
		p95:        percentile(samples, 95),
		p99:        percentile(samples, 99),
		opsPerS:    float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: refreshes=%d violations=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.violations,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
