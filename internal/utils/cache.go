package utils

import (
	"os"
	"sync"
	"time"
)

// CacheItem is a cached value with the file metadata it was derived from
type CacheItem[T any] struct {
	Value   T
	ModTime time.Time
	Size    int64
}

// Cache is a concurrency-safe memo table. Entries may optionally be tied to
// a file and are dropped once that file's size or modification time changes.
type Cache[K comparable, V any] struct {
	items  map[K]*CacheItem[V]
	mutex  sync.RWMutex
	hits   int
	misses int
}

// NewCache creates a new generic cache
func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]*CacheItem[V]),
	}
}

// Get retrieves an item from the cache
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if item, exists := c.items[key]; exists {
		c.hits++
		return item.Value, true
	}
	c.misses++

	var zero V
	return zero, false
}

// GetOrCompute returns the cached value for key, computing and storing it
// on a miss. Errors are returned without caching.
func (c *Cache[K, V]) GetOrCompute(key K, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

// GetWithFileValidation retrieves an item whose source file is unchanged.
// A stale or unreadable file evicts the item.
func (c *Cache[K, V]) GetWithFileValidation(key K, filePath string) (V, bool) {
	c.mutex.RLock()
	item, exists := c.items[key]
	c.mutex.RUnlock()

	if exists {
		if stat, err := os.Stat(filePath); err == nil && stat.ModTime().Equal(item.ModTime) && stat.Size() == item.Size {
			c.mutex.Lock()
			c.hits++
			c.mutex.Unlock()
			return item.Value, true
		}
	}

	c.mutex.Lock()
	delete(c.items, key)
	c.misses++
	c.mutex.Unlock()

	var zero V
	return zero, false
}

// Set stores an item in the cache
func (c *Cache[K, V]) Set(key K, value V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &CacheItem[V]{Value: value}
}

// SetWithFileInfo stores an item together with the metadata of its source file
func (c *Cache[K, V]) SetWithFileInfo(key K, value V, filePath string) error {
	stat, err := os.Stat(filePath)
	if err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &CacheItem[V]{
		Value:   value,
		ModTime: stat.ModTime(),
		Size:    stat.Size(),
	}
	return nil
}

// Delete removes an item from the cache
func (c *Cache[K, V]) Delete(key K) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
}

// Clear removes all items and resets the statistics
func (c *Cache[K, V]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items = make(map[K]*CacheItem[V])
	c.hits, c.misses = 0, 0
}

// Size returns the number of items in the cache
func (c *Cache[K, V]) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.items)
}

// GetStats returns cache statistics
func (c *Cache[K, V]) GetStats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return CacheStats{
		Size:   len(c.items),
		Hits:   c.hits,
		Misses: c.misses,
	}
}

// CacheStats provides cache statistics
type CacheStats struct {
	Size   int
	Hits   int
	Misses int
}
