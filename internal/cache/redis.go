package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/socialshields/mhdash/pkg/config"
	"github.com/socialshields/mhdash/pkg/logging"
)

// Cache wraps Redis. It is optional: with no redis_url configured New
// returns nil and every method degrades to ErrCacheDisabled, so callers
// fall through to the store. Used for dataset export payloads, which scan
// the whole label table.
type Cache struct {
	client *redis.Client
	ctx    context.Context
}

// New creates a new Redis cache client
func New(cfg *config.RedisConfig) (*Cache, error) {
	if !cfg.Enabled {
		logging.GetLogger().Info("Redis cache disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetLogger().Info("Redis connection established")

	return &Cache{
		client: client,
		ctx:    context.Background(),
	}, nil
}

// NewWithClient wraps an existing client. Used in tests with miniredis.
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client, ctx: context.Background()}
}

// namespaceKey prefixes keys so a shared Redis can host other services
func (c *Cache) namespaceKey(key string) string {
	return "mhdash:" + key
}

// HashKey derives a fixed-length cache key from its parts
func HashKey(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// Get retrieves a value from cache
func (c *Cache) Get(key string) (string, error) {
	if c == nil || c.client == nil {
		return "", ErrCacheDisabled
	}
	return c.client.Get(c.ctx, c.namespaceKey(key)).Result()
}

// Set sets a value in cache with TTL
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	return c.client.Set(c.ctx, c.namespaceKey(key), value, ttl).Err()
}

// GetJSON retrieves a value and unmarshals it into out
func (c *Cache) GetJSON(key string, out interface{}) error {
	raw, err := c.Get(key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), out)
}

// SetJSON marshals a value and stores it with TTL
func (c *Cache) SetJSON(key string, value interface{}, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(key, raw, ttl)
}

// Delete removes a key from cache
func (c *Cache) Delete(key string) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	return c.client.Del(c.ctx, c.namespaceKey(key)).Err()
}

// Exists checks if a key exists
func (c *Cache) Exists(key string) (bool, error) {
	if c == nil || c.client == nil {
		return false, ErrCacheDisabled
	}
	count, err := c.client.Exists(c.ctx, c.namespaceKey(key)).Result()
	return count > 0, err
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Health checks Redis health
func (c *Cache) Health(ctx context.Context) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	return c.client.Ping(ctx).Err()
}

var (
	// ErrCacheDisabled is returned when cache operations are attempted but cache is disabled
	ErrCacheDisabled = fmt.Errorf("cache is disabled")
)
