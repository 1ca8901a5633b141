package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix         = "seeder:lock:"
	defaultRetryDelay = 100 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the expiry only while the key still holds our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis is a Locker backed by SET NX PX, shared by every seeder process
// pointed at the same Redis.
type Redis struct {
	client     *redis.Client
	logger     *slog.Logger
	retryDelay time.Duration
}

// NewRedis creates a Redis-backed locker.
func NewRedis(client *redis.Client, logger *slog.Logger) *Redis {
	return &Redis{client: client, logger: logger, retryDelay: defaultRetryDelay}
}

// Acquire polls until key is set by this caller or ctx ends. While held, the
// expiry is pushed back every ttl/3 so a long pool growth keeps the lock; a
// crashed holder loses it after at most ttl.
func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, ttl).Result()
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			r.logger.DebugContext(ctx, "lock acquired", slog.String("key", redisKey), slog.Duration("ttl", ttl))
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotAcquired, ctx.Err())
		case <-time.After(r.retryDelay):
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(context.WithoutCancel(ctx), redisKey, token, ttl, stop, done)

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() {
			close(stop)
			<-done
		})
		if err := releaseScript.Run(ctx, r.client, []string{redisKey}, token).Err(); err != nil {
			return fmt.Errorf("release lock %s: %w", key, err)
		}
		return nil
	}, nil
}

func (r *Redis) keepAlive(ctx context.Context, redisKey, token string, ttl time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	interval := max(ttl/3, time.Millisecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n, err := extendScript.Run(ctx, r.client, []string{redisKey}, token, ttl.Milliseconds()).Int()
			if err != nil {
				r.logger.WarnContext(ctx, "failed to extend lock",
					slog.String("key", redisKey), slog.String("error", err.Error()))
				continue
			}
			if n == 0 {
				r.logger.WarnContext(ctx, "lock lost before release", slog.String("key", redisKey))
				return
			}
		}
	}
}
