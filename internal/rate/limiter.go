package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited is returned when a counter is over budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis command failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Config holds login throttling parameters.
type Config struct {
	Prefix                string
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

// Limiter counts failed logins per identifier and, optionally, per client IP.
type Limiter struct {
	rdb    redis.UniversalClient
	prefix string
	budget int64
	window time.Duration
	perIP  bool
}

// New creates a Limiter backed by rdb. An empty prefix defaults to "ars".
func New(rdb redis.UniversalClient, cfg Config) *Limiter {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "ars"
	}
	return &Limiter{
		rdb:    rdb,
		prefix: prefix,
		budget: int64(cfg.MaxLoginAttempts),
		window: cfg.LoginCooldownDuration,
		perIP:  cfg.EnableIPThrottle,
	}
}

// keys returns the counters that apply to one attempt.
func (l *Limiter) keys(identifier, ip string) []string {
	keys := []string{l.prefix + ":al:" + identifier}
	if l.perIP && ip != "" {
		keys = append(keys, l.prefix+":ali:"+ip)
	}
	return keys
}

// CheckLogin returns ErrRateLimited when either the identifier or the IP has
// used up its failure budget for the current window.
func (l *Limiter) CheckLogin(ctx context.Context, identifier, ip string) error {
	vals, err := l.rdb.MGet(ctx, l.keys(identifier, ip)...).Result()
	if err != nil {
		return unavailable(err)
	}
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n >= l.budget {
			return ErrRateLimited
		}
	}
	return nil
}

// IncrementLogin records a failed attempt against every applicable counter in
// one transaction. It returns ErrRateLimited once a counter passes the budget.
func (l *Limiter) IncrementLogin(ctx context.Context, identifier, ip string) error {
	keys := l.keys(identifier, ip)
	incrs := make([]*redis.IntCmd, len(keys))
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			incrs[i] = pipe.Incr(ctx, key)
			// NX keeps the window fixed from the first failure.
			pipe.ExpireNX(ctx, key, l.window)
		}
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	for _, cmd := range incrs {
		if cmd.Val() > l.budget {
			return ErrRateLimited
		}
	}
	return nil
}

// ResetLogin clears the identifier counter after a successful login. The IP
// counter is left alone so one valid account cannot launder a sprayed IP.
func (l *Limiter) ResetLogin(ctx context.Context, identifier, _ string) error {
	if err := l.rdb.Del(ctx, l.keys(identifier, "")[0]).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// LoginAttempts returns the failure count for identifier in the current window.
func (l *Limiter) LoginAttempts(ctx context.Context, identifier string) (int, error) {
	n, err := l.rdb.Get(ctx, l.keys(identifier, "")[0]).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, unavailable(err)
	}
	return int(max(n, 0)), nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}
