package metadata

import (
	"strings"
	"sync"
	"time"

	"github.com/helixir/bibliographic-ingest/internal/domain"
)

// Cache holds normalized metadata per provider and candidate for a bounded
// time. It is owned by one Resolver and reset at the start of each run.
// A zero TTL keeps entries until Invalidate or Reset.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	meta    *domain.NormalizedMetadata
	expires time.Time
}

// NewCache creates an empty cache.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func cacheKey(provider string, ids domain.CandidateIDs) string {
	return provider + "|" + ids.Key()
}

// Get returns the cached metadata of a provider for ids.
func (c *Cache) Get(provider string, ids domain.CandidateIDs) (*domain.NormalizedMetadata, bool) {
	if c == nil {
		return nil, false
	}
	key := cacheKey(provider, ids)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !entry.expires.IsZero() && c.now().After(entry.expires) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.meta, true
}

// Put stores metadata of a provider for ids.
func (c *Cache) Put(provider string, ids domain.CandidateIDs, meta *domain.NormalizedMetadata) {
	if c == nil || meta == nil {
		return
	}
	entry := cacheEntry{meta: meta}
	if c.ttl > 0 {
		entry.expires = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[cacheKey(provider, ids)] = entry
	c.mu.Unlock()
}

// Invalidate drops every provider's entry for ids.
func (c *Cache) Invalidate(ids domain.CandidateIDs) {
	if c == nil {
		return
	}
	suffix := "|" + ids.Key()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasSuffix(key, suffix) {
			delete(c.entries, key)
		}
	}
}

// Reset empties the cache.
func (c *Cache) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Len returns the number of entries, including expired ones not yet evicted.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
