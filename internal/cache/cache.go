// Package cache stores serialized prediction results in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mindcareai/mindcare/internal/record"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "mindcare:result:"

// Cache is a TTL cache of serialized results keyed by model and record.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to the Redis server at addr.
func New(addr string, ttl time.Duration) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	return NewWithClient(rdb, ttl)
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Ping tests the Redis connection
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Get returns the cached value for key. The boolean is false on a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}
	return val, true, nil
}

// Set stores value under key for the cache TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Key derives the cache key for a record scored by the model identified by
// fingerprint. Records with equal contents share a key regardless of field
// order.
func Key(fingerprint string, rec record.Record) (string, error) {
	// encoding/json writes map keys sorted, which makes the form canonical.
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode record: %w", err)
	}
	sum := sha256.Sum256(data)
	return keyPrefix + fingerprint + ":" + hex.EncodeToString(sum[:]), nil
}
