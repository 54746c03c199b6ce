package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	revokeStatusNotFound int64 = 0
	revokeStatusApplied  int64 = 1
	revokeStatusAlready  int64 = 2
)

const createSessionScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1],
  "user_id", ARGV[1],
  "jti", ARGV[2],
  "fingerprint", ARGV[3],
  "expires_at", ARGV[4],
  "revoked", "0",
  "user_agent", ARGV[5],
  "ip", ARGV[6],
  "created_at", ARGV[7],
  "last_used_at", "0")
redis.call("PEXPIRE", KEYS[1], ARGV[8])
redis.call("SADD", KEYS[2], ARGV[2])
return 1
`

var createSessionLua = redis.NewScript(createSessionScript)

const revokeSessionScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("HGET", KEYS[1], "revoked") == "1" then
  return 2
end
redis.call("HSET", KEYS[1], "revoked", "1")
return 1
`

var revokeSessionLua = redis.NewScript(revokeSessionScript)

// Session keys are derived inside the script from the index members, so the
// script assumes a single Redis node rather than a cluster.
const revokeAllScript = `
local members = redis.call("SMEMBERS", KEYS[1])
local changed = 0
for _, jti in ipairs(members) do
  local key = ARGV[1] .. jti
  if redis.call("EXISTS", key) == 1 then
    if redis.call("HGET", key, "revoked") ~= "1" then
      redis.call("HSET", key, "revoked", "1")
      changed = changed + 1
    end
  else
    redis.call("SREM", KEYS[1], jti)
  end
end
return changed
`

var revokeAllLua = redis.NewScript(revokeAllScript)

const touchSessionScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "last_used_at", ARGV[1])
return 1
`

var touchSessionLua = redis.NewScript(touchSessionScript)

// RedisStore keeps each session in a hash keyed by jti plus a per-user set of
// jtis. Keys expire Retention after the session itself expires.
//
//	Layout: <prefix>:s:<jti> (hash), <prefix>:u:<user_id> (set)
type RedisStore struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewRedisStore creates a RedisStore. An empty prefix defaults to "ars".
func NewRedisStore(client redis.UniversalClient, prefix string, retention time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "ars"
	}
	if retention < 0 {
		retention = 0
	}
	return &RedisStore{
		redis:     client,
		prefix:    prefix,
		retention: retention,
	}
}

func (s *RedisStore) sessionPrefix() string {
	return s.prefix + ":s:"
}

func (s *RedisStore) key(jti string) string {
	return s.sessionPrefix() + jti
}

func (s *RedisStore) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

// Create stores a new Active session.
//
//	Performance: 1 EVALSHA (EXISTS + HSET + PEXPIRE + SADD).
func (s *RedisStore) Create(ctx context.Context, params CreateParams) (*Session, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	ttl := params.ExpiresAt.Sub(createdAt) + s.retention
	if ttl < time.Second {
		ttl = time.Second
	}

	res, err := createSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.key(params.JTI), s.userKey(params.UserID)},
		params.UserID,
		params.JTI,
		params.Fingerprint,
		strconv.FormatInt(params.ExpiresAt.UnixMilli(), 10),
		params.UserAgent,
		params.IP,
		strconv.FormatInt(createdAt.UnixMilli(), 10),
		strconv.FormatInt(ttl.Milliseconds(), 10),
	).Int64()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res == 0 {
		return nil, ErrDuplicateJTI
	}

	return &Session{
		UserID:      params.UserID,
		JTI:         params.JTI,
		Fingerprint: params.Fingerprint,
		ExpiresAt:   params.ExpiresAt,
		UserAgent:   params.UserAgent,
		IP:          params.IP,
		CreatedAt:   createdAt,
	}, nil
}

// FindByJTI loads a session hash.
//
//	Performance: 1 HGETALL.
func (s *RedisStore) FindByJTI(ctx context.Context, jti string) (*Session, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(jti)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return decodeHash(fields)
}

// Revoke flips revoked to true with a Lua compare-and-swap.
func (s *RedisStore) Revoke(ctx context.Context, jti string) (RevokeResult, error) {
	res, err := revokeSessionLua.Run(ctx, s.redis, []string{s.key(jti)}).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch res {
	case revokeStatusApplied:
		return RevokeApplied, nil
	case revokeStatusAlready:
		return RevokeAlreadyRevoked, nil
	case revokeStatusNotFound:
		return 0, ErrNotFound
	default:
		return 0, fmt.Errorf("%w: unexpected revoke status %d", ErrUnavailable, res)
	}
}

// RevokeAllForUser revokes every indexed session of userID in one script call.
// Index entries whose hash has already expired are dropped.
func (s *RedisStore) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	res, err := revokeAllLua.Run(ctx, s.redis, []string{s.userKey(userID)}, s.sessionPrefix()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(res), nil
}

func (s *RedisStore) Touch(ctx context.Context, jti string, at time.Time) error {
	res, err := touchSessionLua.Run(ctx, s.redis, []string{s.key(jti)}, strconv.FormatInt(at.UnixMilli(), 10)).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeExpired implements Pruner. It walks the keyspace with SCAN and is
// intended for maintenance jobs, not request paths.
func (s *RedisStore) PurgeExpired(ctx context.Context, before time.Time) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	cutoff := before.UnixMilli()
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, s.sessionPrefix()+"*", 200).Result()
		if err != nil {
			return removed, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		for _, key := range keys {
			vals, err := s.redis.HMGet(ctx, key, "revoked", "expires_at", "user_id", "jti").Result()
			if err != nil {
				return removed, fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			revoked, _ := vals[0].(string)
			expiresRaw, _ := vals[1].(string)
			userID, _ := vals[2].(string)
			jti, _ := vals[3].(string)
			expiresAt, err := strconv.ParseInt(expiresRaw, 10, 64)
			if err != nil || revoked != "1" || expiresAt >= cutoff {
				continue
			}
			_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				pipe.SRem(ctx, s.userKey(userID), jti)
				return nil
			})
			if err != nil {
				return removed, fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			removed++
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func decodeHash(fields map[string]string) (*Session, error) {
	expiresAt, err := parseMillis(fields["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt expires_at: %v", ErrUnavailable, err)
	}
	createdAt, err := parseMillis(fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt created_at: %v", ErrUnavailable, err)
	}
	lastUsed, err := parseMillis(fields["last_used_at"])
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt last_used_at: %v", ErrUnavailable, err)
	}
	if fields["jti"] == "" || fields["user_id"] == "" {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, errors.New("corrupt session hash"))
	}

	return &Session{
		UserID:      fields["user_id"],
		JTI:         fields["jti"],
		Fingerprint: fields["fingerprint"],
		ExpiresAt:   expiresAt,
		Revoked:     fields["revoked"] == "1",
		UserAgent:   fields["user_agent"],
		IP:          fields["ip"],
		CreatedAt:   createdAt,
		LastUsedAt:  lastUsed,
	}, nil
}

func parseMillis(raw string) (time.Time, error) {
	if raw == "" || raw == "0" {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
