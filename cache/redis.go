package cache

import (
	"context"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// RedisOptions configure the Redis cache backend.
type RedisOptions struct {
	// Prefix is prepended to every key to namespace entries.
	Prefix string
}

// Redis implements Store on top of a Redis server. TTL handling is delegated
// to Redis key expiration.
type Redis struct {
	client *backend.Client
	opts   RedisOptions
}

// NewRedis creates a Redis cache connecting to the given address.
func NewRedis(address, password string, db int, optFns ...func(o *RedisOptions)) *Redis {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisFromClient(client, optFns...)
}

// NewRedisFromClient creates a Redis cache from an existing client.
func NewRedisFromClient(client *backend.Client, optFns ...func(o *RedisOptions)) *Redis {
	opts := RedisOptions{
		Prefix: "agenthooks:cache:",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Redis{client: client, opts: opts}
}

func (c *Redis) key(key string) string {
	return c.opts.Prefix + key
}

// Get implements Store.
func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if err == backend.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

// Set implements Store.
func (c *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete implements Store.
func (c *Redis) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (c *Redis) Close() error {
	return c.client.Close()
}
