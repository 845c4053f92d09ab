// internal/services/cache_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	cache := NewCacheService()

	cache.Set("label:abc", []byte("pdf-bytes"), time.Minute)
	value, ok := cache.Get("label:abc")
	require.True(t, ok)
	assert.Equal(t, []byte("pdf-bytes"), value)

	_, ok = cache.Get("missing")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	cache := NewCacheService()

	cache.Set("short", []byte("v"), 20*time.Millisecond)
	_, ok := cache.Get("short")
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok = cache.Get("short")
	assert.False(t, ok, "expired entries are not served")
}

func TestCacheIncrement(t *testing.T) {
	cache := NewCacheService()

	assert.Equal(t, 1, cache.Increment("throttle:x", time.Minute))
	assert.Equal(t, 2, cache.Increment("throttle:x", time.Minute))
	assert.Equal(t, 3, cache.Increment("throttle:x", time.Minute))

	assert.Equal(t, 1, cache.Increment("throttle:y", time.Minute), "counters are per key")
}

func TestCacheIncrementResetsAfterTTL(t *testing.T) {
	cache := NewCacheService()

	assert.Equal(t, 1, cache.Increment("burst", 20*time.Millisecond))
	assert.Equal(t, 2, cache.Increment("burst", 20*time.Millisecond))

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 1, cache.Increment("burst", 20*time.Millisecond),
		"the window restarts once the TTL passes")
}

func TestCacheDelete(t *testing.T) {
	cache := NewCacheService()

	cache.Set("k", []byte("v"), time.Minute)
	cache.Delete("k")
	_, ok := cache.Get("k")
	assert.False(t, ok)
}
