package metadata

import (
	"sync"
	"time"

	"github.com/Veraticus/longbox/internal/model"
)

type cacheEntry struct {
	expiry  time.Time
	matches []model.ComicMatch
}

// searchCache holds search results until their TTL passes.
type searchCache struct {
	entries  map[string]cacheEntry
	stopCh   chan struct{}
	now      func() time.Time
	ttl      time.Duration
	mu       sync.RWMutex
	stopOnce sync.Once
}

func newSearchCache(ttl time.Duration) *searchCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	cache := &searchCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// get returns a copy of the cached results for key.
func (c *searchCache) get(key string) ([]model.ComicMatch, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || c.now().After(entry.expiry) {
		return nil, false
	}

	return append([]model.ComicMatch(nil), entry.matches...), true
}

func (c *searchCache) set(key string, matches []model.ComicMatch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		matches: append([]model.ComicMatch(nil), matches...),
		expiry:  c.now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *searchCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *searchCache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiry) {
			delete(c.entries, key)
		}
	}
}

func (c *searchCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *searchCache) Close() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}
