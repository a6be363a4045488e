package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Cache backed by a Redis server.
type Redis struct {
	client    *redis.Client
	logger    *slog.Logger
	available bool
}

// RedisOptions configures the Redis cache.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Logger   *slog.Logger
}

// NewRedis connects to Redis. Connection failure is not fatal: the cache is
// created in unavailable mode and every operation degrades to ErrNotFound /
// no-op, which callers already handle.
func NewRedis(ctx context.Context, opts RedisOptions) *Redis {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "cache.redis")

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	r := &Redis{client: client, logger: logger}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, running without persistence", "addr", opts.Addr, "error", err)
		return r
	}

	r.available = true
	logger.Info("redis connected", "addr", opts.Addr)
	return r
}

// Get returns the value stored under namespace/key.
func (r *Redis) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	if !r.available {
		return nil, ErrNotFound
	}

	data, err := r.client.Get(ctx, cacheKey(namespace, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Set stores value under namespace/key with the given TTL.
func (r *Redis) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	if !r.available {
		return nil
	}
	return r.client.Set(ctx, cacheKey(namespace, key), value, ttl).Err()
}

// Delete removes the value stored under namespace/key.
func (r *Redis) Delete(ctx context.Context, namespace, key string) error {
	if !r.available {
		return nil
	}
	return r.client.Del(ctx, cacheKey(namespace, key)).Err()
}

// Available reports whether the Redis server answered the startup ping.
func (r *Redis) Available() bool {
	return r.available
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Verify Redis implements Cache at compile time.
var _ Cache = (*Redis)(nil)
