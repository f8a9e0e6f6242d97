// Package redis provides the Redis cache implementation.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key written by the bot.
const DefaultKeyPrefix = "assistant-bot:"

// Config holds Redis connection configuration.
type Config struct {
	Host       string
	Port       string
	Password   string
	DB         int
	DefaultTTL time.Duration
	// KeyPrefix is prepended to every key. Defaults to DefaultKeyPrefix.
	KeyPrefix string
}

// Cache is the go-redis store behind Client. Keys are namespaced by prefix.
type Cache struct {
	client     *redis.Client
	defaultTTL time.Duration
	prefix     string
}

// NewCache creates a new Redis cache instance and verifies the connection.
func NewCache(cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	return &Cache{
		client:     client,
		defaultTTL: cfg.DefaultTTL,
		prefix:     prefix,
	}, nil
}

// Get retrieves a value from Redis by key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, nil
}

// Set stores a value in Redis. A zero ttl uses the default TTL; a zero
// default keeps the key without expiry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key from Redis.
func (c *Cache) Delete(ctx context.Context, key string) (bool, error) {
	result, err := c.client.Del(ctx, c.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return result > 0, nil
}

// Ping checks if the Redis connection is alive.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis connection: %w", err)
	}
	return nil
}
