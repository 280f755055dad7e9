package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"loan-tracker/internal/domain/user"

	"github.com/redis/go-redis/v9"
)

const (
	attemptsKeyPrefix = "login:attempts:"
	lockKeyPrefix     = "login:locked:"
	sessionKeyPrefix  = "session:"
)

// RedisLoginLimiter keeps failure counters in Redis so a lockout holds across
// server instances. Counters expire after the lockout window.
type RedisLoginLimiter struct {
	client      redis.Cmdable
	maxAttempts int
	lockout     time.Duration
	now         func() time.Time
}

var _ user.LoginLimiter = (*RedisLoginLimiter)(nil)

func NewRedisLoginLimiter(client redis.Cmdable, maxAttempts int, lockout time.Duration) *RedisLoginLimiter {
	return &RedisLoginLimiter{client: client, maxAttempts: maxAttempts, lockout: lockout, now: time.Now}
}

func (l *RedisLoginLimiter) LockedUntil(ctx context.Context, username string) (time.Time, error) {
	val, err := l.client.Get(ctx, lockKeyPrefix+username).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read lockout: %w", err)
	}
	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed lockout value %q: %w", val, err)
	}
	return time.Unix(unix, 0).UTC(), nil
}

func (l *RedisLoginLimiter) RecordFailure(ctx context.Context, username string) (int, time.Time, error) {
	key := attemptsKeyPrefix + username

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.lockout)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to record login failure: %w", err)
	}

	failures := int(incr.Val())
	if failures < l.maxAttempts {
		return l.maxAttempts - failures, time.Time{}, nil
	}

	lockedUntil := l.now().Add(l.lockout).UTC().Truncate(time.Second)
	pipe = l.client.TxPipeline()
	pipe.Set(ctx, lockKeyPrefix+username, lockedUntil.Unix(), l.lockout)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to lock account: %w", err)
	}
	return 0, lockedUntil, nil
}

func (l *RedisLoginLimiter) Reset(ctx context.Context, username string) error {
	if err := l.client.Del(ctx, attemptsKeyPrefix+username, lockKeyPrefix+username).Err(); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}

// RedisSessionStore stores one key per session with the session lifetime as TTL.
type RedisSessionStore struct {
	client redis.Cmdable
	now    func() time.Time
}

var _ user.SessionStore = (*RedisSessionStore)(nil)

func NewRedisSessionStore(client redis.Cmdable) *RedisSessionStore {
	return &RedisSessionStore{client: client, now: time.Now}
}

func (s *RedisSessionStore) Create(ctx context.Context, session user.Session) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", session.ID)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+session.ID, session.UserID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return n == 1, nil
}

func (s *RedisSessionStore) Revoke(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}
