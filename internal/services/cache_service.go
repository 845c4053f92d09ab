// internal/services/cache_service.go
package services

import (
	"sync"
	"time"
)

// CacheService is the ephemeral key-value collaborator: label bytes cached
// by storage key, attempt counters throttling carrier retries. Not a system
// of record; entries vanish on restart.
type CacheService struct {
	mtx     sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value     []byte
	counter   int
	expiresAt time.Time
}

func NewCacheService() *CacheService {
	c := &CacheService{
		entries: make(map[string]cacheEntry),
	}

	// Sweep expired entries every minute
	go c.cleanup()

	return c
}

func (c *CacheService) cleanup() {
	for {
		time.Sleep(time.Minute)
		now := time.Now()
		c.mtx.Lock()
		for key, entry := range c.entries {
			if now.After(entry.expiresAt) {
				delete(c.entries, key)
			}
		}
		c.mtx.Unlock()
	}
}

func (c *CacheService) Set(key string, value []byte, ttl time.Duration) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.entries[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}

func (c *CacheService) Get(key string) ([]byte, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

// Increment bumps a counter under key, creating it with the given TTL on
// first use. The TTL is not extended by later increments, so counters expire
// on schedule regardless of traffic.
func (c *CacheService) Increment(key string, ttl time.Duration) int {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		entry = cacheEntry{expiresAt: time.Now().Add(ttl)}
	}
	entry.counter++
	c.entries[key] = entry
	return entry.counter
}

func (c *CacheService) Delete(key string) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	delete(c.entries, key)
}
