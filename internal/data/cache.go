package data

import (
	"container/list"
	"sync"
	"time"
)

// TTLCache is a capacity-bounded cache with fixed TTL and LRU eviction.
// An expired entry is treated as absent on read and removed. On insert at
// capacity the least recently used entry is evicted.
type TTLCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
	now      func() time.Time
	stats    CacheStats
}

type cacheEntry struct {
	key     string
	value   interface{}
	expires time.Time
}

// CacheStats reports cache effectiveness counters
type CacheStats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`
}

// NewTTLCache creates a cache holding at most capacity entries, each valid
// for ttl after insertion
func NewTTLCache(capacity int, ttl time.Duration) *TTLCache {
	return &TTLCache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

// SetClock injects a deterministic clock for tests
func (c *TTLCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get returns the cached value and refreshes its recency. An entry past its
// TTL is removed and reported as a miss.
func (c *TTLCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if c.now().After(entry.expires) {
		c.order.Remove(elem)
		delete(c.entries, key)
		c.stats.Expirations++
		c.stats.Misses++
		return nil, false
	}

	c.order.MoveToFront(elem)
	c.stats.Hits++
	return entry.value, true
}

// Set stores the value, evicting the least recently used entry when the
// cache is full
func (c *TTLCache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.value = value
		entry.expires = expires
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		c.evictOldest()
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, value: value, expires: expires})
}

// Len returns the number of resident entries, expired ones included until
// they are touched
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns a copy of the effectiveness counters
func (c *TTLCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Clear drops every entry, keeping the counters
func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

func (c *TTLCache) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.order.Remove(oldest)
	delete(c.entries, oldest.Value.(*cacheEntry).key)
	c.stats.Evictions++
}
