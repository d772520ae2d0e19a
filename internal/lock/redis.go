package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// lockExtendScript pushes the expiry out only while the caller still owns the key.
const lockExtendScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`

const (
	defaultTTL      = 10 * time.Second
	defaultRetry    = 25 * time.Millisecond
	defaultWaitTime = 5 * time.Second
)

var ErrLockTimeout = errors.New("lock wait timed out")

type RedisLocker struct {
	client *redis.Client
	script *redis.Script
	extend *redis.Script
	log    *zap.Logger

	ttl      time.Duration
	retry    time.Duration
	waitTime time.Duration
}

func NewRedisLocker(client *redis.Client, log *zap.Logger) *RedisLocker {
	if client == nil {
		return nil
	}
	return &RedisLocker{
		client:   client,
		script:   redis.NewScript(lockReleaseScript),
		extend:   redis.NewScript(lockExtendScript),
		log:      log.Named("lock.redis"),
		ttl:      defaultTTL,
		retry:    defaultRetry,
		waitTime: defaultWaitTime,
	}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, ErrNotConfigured
	}
	if key == "" {
		return "", false, ErrEmptyKey
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *RedisLocker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

// Extend resets the key's TTL and reports false once the token no longer owns it.
func (l *RedisLocker) Extend(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if l == nil || l.client == nil {
		return false, ErrNotConfigured
	}
	n, err := l.extend.Run(ctx, l.client, []string{key}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Acquire polls TryLock until the key is free or the wait time elapses. A held
// lock is renewed every third of its TTL until released, so work longer than
// the TTL keeps exclusive ownership.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.waitTimeOrDefault())
	defer cancel()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		token, ok, err := l.TryLock(waitCtx, key, l.ttl)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if ok {
			stop := keepAlive(l.log, key, l.ttl/3, func(ctx context.Context) (bool, error) {
				return l.Extend(ctx, key, token, l.ttl)
			})
			return func() {
				stop()
				// the caller's context may already be done
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := l.Release(releaseCtx, key, token); err != nil {
					l.log.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
				}
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-waitCtx.Done():
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) waitTimeOrDefault() time.Duration {
	if l == nil || l.waitTime <= 0 {
		return defaultWaitTime
	}
	return l.waitTime
}
