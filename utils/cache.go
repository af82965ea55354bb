package utils

import (
	"context"
	"fmt"
	"time"

	"tourbook/config"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient connects to the given Redis database and verifies the
// connection with a ping.
func NewRedisClient(ctx context.Context, cfg config.Config, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis db %d at %s: %w", db, cfg.RedisAddr, err)
	}
	return client, nil
}

// NewCacheClient returns the client for the tour read cache.
func NewCacheClient(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	return NewRedisClient(ctx, cfg, cfg.RedisCacheDB)
}

// NewLockClient returns the client for distributed booking and rating locks.
func NewLockClient(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	return NewRedisClient(ctx, cfg, cfg.RedisLockDB)
}
