// Package cache implements a time-boxed read-through cache over the durable
// store. A read past an entry's expiry is a miss and evicts the entry, so
// stale data is never served.
package cache

import (
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/towerops/fieldtrack/internal/storage"
)

const indexKey = "cache_index"

// Entry wraps a cached value with its storage and expiry timestamps.
// ExpiresAt is always StoredAt plus the cache TTL.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	StoredAt  time.Time       `json:"stored_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Key derives a cache key from a resource type and its query parameters.
// Parts are escaped before joining so distinct queries can never collide.
func Key(resource string, params ...string) string {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, url.QueryEscape(resource))
	for _, p := range params {
		parts = append(parts, url.QueryEscape(p))
	}
	return strings.Join(parts, "|")
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Cache is a TTL cache keyed by resource+params, persisted through the
// store so entries survive restarts. It tracks its own key set so that
// InvalidateAll does not touch other namespaces sharing the store.
type Cache struct {
	mu    sync.Mutex
	store storage.Store
	ttl   time.Duration
	now   func() time.Time
	keys  map[string]struct{}
}

// New creates a cache with the given TTL over the store.
func New(store storage.Store, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		store: store,
		ttl:   ttl,
		now:   time.Now,
		keys:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	var keys []string
	if err := storage.GetJSON(store, indexKey, &keys); err == nil {
		for _, k := range keys {
			c.keys[k] = struct{}{}
		}
	}

	return c
}

// Get loads the cached value at key into v. Returns false on a miss; an
// expired entry is evicted and reported as a miss.
func (c *Cache) Get(key string, v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	var entry Entry
	if err := storage.GetJSON(c.store, storage.CachePrefix+key, &entry); err != nil {
		return false
	}

	if !c.now().Before(entry.ExpiresAt) {
		c.deleteLocked(key)
		log.Debug().Str("key", key).Msg("cache entry expired")
		return false
	}

	if err := json.Unmarshal(entry.Data, v); err != nil {
		c.deleteLocked(key)
		return false
	}

	return true
}

// Put stores v at key, unconditionally overwriting any existing entry.
func (c *Cache) Put(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to encode cache entry")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entry := Entry{
		Data:      data,
		StoredAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}

	if err := storage.PutJSON(c.store, storage.CachePrefix+key, entry); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to store cache entry")
		return
	}

	c.keys[key] = struct{}{}
	c.saveIndexLocked()
}

// Invalidate removes a single cache entry.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteLocked(key)
}

// InvalidateAll removes every cache entry. Called after any mutation
// succeeds, and after a sync batch drains, since server state may no longer
// match reads taken earlier.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.keys {
		c.store.Delete(storage.CachePrefix + key)
	}
	c.keys = make(map[string]struct{})
	c.saveIndexLocked()

	log.Debug().Msg("all cache entries invalidated")
}

func (c *Cache) deleteLocked(key string) {
	c.store.Delete(storage.CachePrefix + key)
	delete(c.keys, key)
	c.saveIndexLocked()
}

func (c *Cache) saveIndexLocked() {
	keys := make([]string, 0, len(c.keys))
	for k := range c.keys {
		keys = append(keys, k)
	}
	if err := storage.PutJSON(c.store, indexKey, keys); err != nil {
		log.Warn().Err(err).Msg("failed to persist cache index")
	}
}
