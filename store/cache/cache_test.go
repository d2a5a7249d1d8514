package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestCache(maxItems int, ttl time.Duration) *Cache {
	return New(Config{
		DefaultTTL:      ttl,
		CleanupInterval: time.Hour, // expiry exercised via Get, not the janitor
		MaxItems:        maxItems,
	})
}

func TestCache_BasicOperations(t *testing.T) {
	c := newTestCache(100, time.Minute)
	defer c.Close()

	t.Run("SetAndGet", func(t *testing.T) {
		c.Set("key1", "value1")

		val, ok := c.Get("key1")
		assert.True(t, ok)
		assert.Equal(t, "value1", val)
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		val, ok := c.Get("nonexistent")
		assert.False(t, ok)
		assert.Nil(t, val)
	})

	t.Run("UpdateExisting", func(t *testing.T) {
		c.Set("key2", "original")
		c.Set("key2", "updated")

		val, ok := c.Get("key2")
		assert.True(t, ok)
		assert.Equal(t, "updated", val)
	})

	t.Run("Delete", func(t *testing.T) {
		c.Set("key3", "value3")
		c.Delete("key3")

		_, ok := c.Get("key3")
		assert.False(t, ok)

		// Deleting again is a no-op.
		c.Delete("key3")
	})
}

func TestCache_Expiration(t *testing.T) {
	c := newTestCache(100, time.Minute)
	defer c.Close()

	c.SetWithTTL("expiring", "value", 30*time.Millisecond)

	val, ok := c.Get("expiring")
	assert.True(t, ok)
	assert.Equal(t, "value", val)

	time.Sleep(40 * time.Millisecond)

	_, ok = c.Get("expiring")
	assert.False(t, ok)
}

func TestCache_Eviction(t *testing.T) {
	evicted := make(map[string]bool)
	c := New(Config{
		DefaultTTL:      time.Minute,
		CleanupInterval: time.Hour,
		MaxItems:        2,
		OnEviction:      func(key string, _ any) { evicted[key] = true },
	})
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3) // evicts "a", the least recently used

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.True(t, evicted["a"])

	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestCache_LRUOrderUpdatedByGet(t *testing.T) {
	c := newTestCache(2, time.Minute)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")    // "a" is now most recently used
	c.Set("c", 3) // evicts "b"

	_, ok := c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
}
