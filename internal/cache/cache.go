// Package cache memoizes derived analytics reports in Redis
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL applies when the configured TTL is zero
const DefaultTTL = 5 * time.Minute

// ErrMiss is returned by Get when the key is absent or caching is disabled
var ErrMiss = redis.Nil

// Cache provides Redis-based caching operations
type Cache struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	enabled   bool
}

// Config holds cache configuration
type Config struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
	Enabled   bool
}

// New creates a new Cache instance. A disabled cache misses every lookup.
func New(ctx context.Context, cfg *Config) (*Cache, error) {
	if !cfg.Enabled {
		return Disabled(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewWithClient(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client redis.UniversalClient, prefix string, ttl time.Duration) *Cache {
	if prefix == "" {
		prefix = "opsight"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		client:    client,
		keyPrefix: prefix,
		ttl:       ttl,
		enabled:   true,
	}
}

// Disabled returns a cache that stores nothing
func Disabled() *Cache {
	return &Cache{enabled: false}
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsEnabled returns whether caching is enabled
func (c *Cache) IsEnabled() bool {
	return c.enabled
}

// Key joins parts with ':'. Empty parts are kept so positions stay stable.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

func (c *Cache) key(key string) string {
	return c.keyPrefix + ":" + key
}

// Get decodes the cached report at key into dest. A miss, including every
// lookup on a disabled cache, returns ErrMiss.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	if !c.enabled {
		return ErrMiss
	}
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	switch {
	case err != nil:
		return err
	case len(raw) == 0:
		return ErrMiss
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode cached %s: %w", key, err)
	}
	return nil
}

// Set stores a report for the configured TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	return c.SetTTL(ctx, key, value, c.ttl)
}

// SetTTL stores a report that expires after ttl
func (c *Cache) SetTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.enabled {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.client.Set(ctx, c.key(key), raw, ttl).Err()
}

// Delete evicts the given keys
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.enabled || len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, k := range keys {
		prefixed = append(prefixed, c.key(k))
	}
	return c.client.Unlink(ctx, prefixed...).Err()
}

// scanBatch bounds both the SCAN page size and each UNLINK call
const scanBatch = 100

// DeletePattern evicts every key matching a glob pattern, unlinking in
// batches while the keyspace is scanned
func (c *Cache) DeletePattern(ctx context.Context, pattern string) error {
	if !c.enabled {
		return nil
	}
	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := c.client.Unlink(ctx, batch...).Err()
		batch = batch[:0]
		return err
	}

	iter := c.client.Scan(ctx, 0, c.key(pattern), scanBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", pattern, err)
	}
	return flush()
}

// IsMiss reports whether err means the key was not cached
func IsMiss(err error) bool {
	return errors.Is(err, ErrMiss)
}

// Ping checks connectivity; a disabled cache is always healthy
func (c *Cache) Ping(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	return c.client.Ping(ctx).Err()
}
