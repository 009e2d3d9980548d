package extract

import (
	"sync"
	"time"

	"github.com/hearthkeep/hearthkeep/internal/model"
)

// cacheEntry represents a cached extraction result.
type cacheEntry struct {
	expiry time.Time
	facts  model.ExtractedFacts
}

// factsCache provides thread-safe caching for extraction results so that
// re-running the pipeline over unchanged documents skips API calls.
type factsCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
}

// newFactsCache creates a new cache with the specified TTL.
func newFactsCache(ttl time.Duration) *factsCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	cache := &factsCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// get retrieves facts from the cache if present and unexpired.
func (c *factsCache) get(key string) (model.ExtractedFacts, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return model.ExtractedFacts{}, false
	}

	if time.Now().After(entry.expiry) {
		return model.ExtractedFacts{}, false
	}

	return entry.facts, true
}

// set stores facts in the cache.
func (c *factsCache) set(key string, facts model.ExtractedFacts) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		facts:  facts,
		expiry: time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *factsCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// size returns the number of entries in the cache.
func (c *factsCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *factsCache) Close() {
	close(c.stopCh)
}
