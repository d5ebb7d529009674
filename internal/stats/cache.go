package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/socialshields/mhdash/pkg/logging"
)

// Key identifies one cached aggregate.
type Key string

// Cache keys. Each key refreshes on its own TTL; expiring one never forces
// a refetch of the others.
const (
	KeyPostsPerHour     Key = "postsPerHour"
	KeyCommentsPerHour  Key = "commentsPerHour"
	KeyLabelingProgress Key = "labelingProgress"
)

// Fetcher loads a fresh value for one key from the store.
type Fetcher func(ctx context.Context) (interface{}, error)

type entry struct {
	value     interface{}
	fetchedAt time.Time
	populated bool
}

type registration struct {
	ttl   time.Duration
	fetch Fetcher
}

// Cache is a per-key TTL cache over read-only aggregate queries. It holds
// the last good value for each key and serves it unchanged until the key's
// TTL elapses; a failed refresh falls back to the stale value when one
// exists. The mutex only guards the entry map: fetches run outside it, so
// two requests that both see an expired key both hit the store. That
// duplicated query is accepted, there is no single-flight collapse.
type Cache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[Key]*entry
	keys    map[Key]registration
	logger  *zap.Logger
}

// NewCache creates an empty cache. now is injectable for tests; pass nil
// for the wall clock.
func NewCache(now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		now:     now,
		entries: make(map[Key]*entry),
		keys:    make(map[Key]registration),
		logger:  logging.WithComponent("stats-cache"),
	}
}

// Register binds a key to its TTL and fetcher. Must be called before Get.
func (c *Cache) Register(key Key, ttl time.Duration, fetch Fetcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[key] = registration{ttl: ttl, fetch: fetch}
}

// Get returns the value for key. The second result reports whether the
// value was served from a stale entry after a failed refresh. An error is
// returned only when the key has never been populated and the fetch fails.
func (c *Cache) Get(ctx context.Context, key Key) (interface{}, bool, error) {
	c.mu.Lock()
	reg, ok := c.keys[key]
	if !ok {
		c.mu.Unlock()
		return nil, false, fmt.Errorf("unregistered cache key: %s", key)
	}
	if e, ok := c.entries[key]; ok && e.populated && c.now().Sub(e.fetchedAt) < reg.ttl {
		value := e.value
		c.mu.Unlock()
		return value, false, nil
	}
	c.mu.Unlock()

	value, err := reg.fetch(ctx)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if e, ok := c.entries[key]; ok && e.populated {
			c.logger.Warn("Refresh failed, serving stale value",
				zap.String("key", string(key)),
				zap.Time("fetched_at", e.fetchedAt),
				zap.Error(err))
			return e.value, true, nil
		}
		return nil, false, fmt.Errorf("failed to load %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{value: value, fetchedAt: c.now(), populated: true}
	return value, false, nil
}

// FetchedAt returns when the key was last successfully refreshed.
func (c *Cache) FetchedAt(key Key) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.populated {
		return time.Time{}, false
	}
	return e.fetchedAt, true
}
