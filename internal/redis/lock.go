package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotAcquired = errors.New("loctician lock not acquired")

// Locker guards availability mutations per loctician.
type Locker interface {
	WithLocticianLock(ctx context.Context, locticianID uuid.UUID, fn func(ctx context.Context) error) error
}

type redisLocticianLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocticianLocker creates a locker that uses a per loctician Redis key
func NewRedisLocticianLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisLocticianLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisLocticianLocker) WithLocticianLock(ctx context.Context, locticianID uuid.UUID, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:loctician:%s", locticianID.String())
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire loctician lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisLocticianLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release loctician lock: %w", err)
	}
	return nil
}
