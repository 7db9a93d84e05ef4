package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultMaxFailures   = 10
	defaultFailureWindow = 15 * time.Minute
)

// counterStore is the subset of the Redis client the throttle uses.
type counterStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// LoginThrottle counts failed logins in Redis and blocks a key once it reaches
// maxFailures within window. It implements ports.LoginThrottle.
// Key format: login_fail:<key>
//
// Redis errors never block a login: they are logged and the attempt is allowed.
type LoginThrottle struct {
	client      counterStore
	maxFailures int64
	window      time.Duration
	log         zerolog.Logger
}

// NewLoginThrottle wraps client. Non-positive limits fall back to 10 failures per 15 minutes.
func NewLoginThrottle(client counterStore, maxFailures int, window time.Duration, log zerolog.Logger) *LoginThrottle {
	if maxFailures <= 0 {
		maxFailures = defaultMaxFailures
	}
	if window <= 0 {
		window = defaultFailureWindow
	}
	return &LoginThrottle{
		client:      client,
		maxFailures: int64(maxFailures),
		window:      window,
		log:         log,
	}
}

func (t *LoginThrottle) Allowed(ctx context.Context, key string) (bool, error) {
	raw, err := t.client.Get(ctx, t.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		t.log.Warn().Err(err).Str("key", key).Msg("login throttle unavailable, allowing attempt")
		return true, nil
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return true, fmt.Errorf("login throttle: corrupt counter %q: %w", raw, err)
	}
	return n < t.maxFailures, nil
}

func (t *LoginThrottle) RecordFailure(ctx context.Context, key string) error {
	k := t.key(key)
	n, err := t.client.Incr(ctx, k).Result()
	if err != nil {
		t.log.Warn().Err(err).Str("key", key).Msg("login throttle: failed to count failure")
		return nil
	}
	if n == 1 {
		if err := t.client.Expire(ctx, k, t.window).Err(); err != nil {
			// A counter without TTL would lock the key forever.
			_ = t.client.Del(ctx, k).Err()
			return fmt.Errorf("login throttle: set window: %w", err)
		}
	}
	return nil
}

func (t *LoginThrottle) Reset(ctx context.Context, key string) error {
	if err := t.client.Del(ctx, t.key(key)).Err(); err != nil {
		t.log.Warn().Err(err).Str("key", key).Msg("login throttle: failed to reset")
	}
	return nil
}

func (t *LoginThrottle) key(key string) string {
	return "login_fail:" + key
}
