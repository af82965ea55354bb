package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const redisLockPrefix = "lock:"

// releaseScript deletes the key only if it still holds our token, so a holder
// whose TTL lapsed cannot free somebody else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript pushes the expiry out only while the key still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker is a lease-based lock shared by every instance pointing at the
// same Redis database. A held lease is renewed every third of its TTL until
// unlock. When renewal stops working the held context is cancelled with
// ErrLockLost before the lease can run out.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	logger *zap.Logger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{client: client, ttl: ttl, retry: 20 * time.Millisecond, logger: logger}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (context.Context, func(), error) {
	token := uuid.New().String()
	redisKey := redisLockPrefix + key

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, fmt.Errorf("%w %q: %v", ErrLockTimeout, key, ctx.Err())
			}
			return nil, nil, fmt.Errorf("failed to acquire lock %q: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, nil, fmt.Errorf("%w %q: %v", ErrLockTimeout, key, ctx.Err())
		case <-time.After(l.retry):
		}
	}

	held, cancel := context.WithCancelCause(ctx)
	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(held, cancel, stop, done, key, token)

	var once sync.Once
	return held, func() {
		once.Do(func() {
			close(stop)
			<-done
			cancel(nil)
			l.release(key, token)
		})
	}, nil
}

// release deletes the key if it still holds token. It uses a fresh context
// because the caller's may already be done.
func (l *RedisLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{redisLockPrefix + key}, token).Err(); err != nil {
		l.logger.Warn("Failed to release lock, it stays taken until its lease expires",
			zap.String("key", key), zap.Duration("ttl", l.ttl), zap.Error(err))
	}
}

// keepAlive renews the lease until stop is closed. The lease is given up, and
// held cancelled, once the key holds another token or when no renewal has
// succeeded for two thirds of the TTL.
func (l *RedisLocker) keepAlive(held context.Context, cancel context.CancelCauseFunc, stop <-chan struct{}, done chan<- struct{}, key, token string) {
	defer close(done)

	interval := l.ttl / 3
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	expiry := time.NewTimer(l.ttl - interval)
	defer expiry.Stop()

	log := l.logger.With(zap.String("key", key))
	for {
		select {
		case <-stop:
			return
		case <-held.Done():
			return
		case <-expiry.C:
			log.Error("Lock lease could not be renewed in time, giving it up", zap.Duration("ttl", l.ttl))
			cancel(fmt.Errorf("%w %q: lease not renewed", ErrLockLost, key))
			return
		case <-ticker.C:
		}

		renewCtx, cancelRenew := context.WithTimeout(held, interval/2)
		n, err := renewScript.Run(renewCtx, l.client, []string{redisLockPrefix + key}, token, l.ttl.Milliseconds()).Int()
		cancelRenew()
		switch {
		case err != nil:
			log.Warn("Lock lease renewal failed, retrying", zap.Error(err))
		case n == 0:
			log.Error("Lock lease was taken over before unlock")
			cancel(fmt.Errorf("%w %q: taken over", ErrLockLost, key))
			return
		default:
			expiry.Reset(l.ttl - interval)
		}
	}
}
