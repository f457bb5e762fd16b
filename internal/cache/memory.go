// Package cache keeps downloaded audio close at hand: an in-memory LRU
// for music tracks and effect assets that rotation revisits, and a
// compressed on-disk store for synthesized narration so repeated lines
// skip the synthesis round-trip entirely.
package cache

import (
	"container/list"
	"errors"
	"sync"
)

// ErrTooLarge is returned when a single value exceeds the cache
// capacity.
var ErrTooLarge = errors.New("cache: value larger than capacity")

// Stats counts cache effectiveness.
type Stats struct {
	Hits     int64
	Misses   int64
	Size     int64
	Capacity int64
}

// Memory is a byte-bounded LRU cache. Safe for concurrent use.
type Memory struct {
	capacity int64

	mu       sync.Mutex
	size     int64
	items    map[string]*list.Element
	eviction *list.List
	stats    Stats
}

type memoryEntry struct {
	key   string
	value []byte
}

// NewMemory creates a memory cache holding at most capacity bytes.
func NewMemory(capacity int64) *Memory {
	return &Memory{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		stats:    Stats{Capacity: capacity},
	}
}

// Get retrieves a value and marks it most recently used.
func (c *Memory) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	return elem.Value.(*memoryEntry).value, true
}

// Put stores a value, evicting least recently used entries to fit.
func (c *Memory) Put(key string, value []byte) error {
	size := int64(len(value))
	if size > c.capacity {
		return ErrTooLarge
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*memoryEntry)
		c.size += size - int64(len(entry.value))
		entry.value = value
		c.eviction.MoveToFront(elem)
		c.stats.Size = c.size
		return nil
	}

	for c.size+size > c.capacity && c.eviction.Len() > 0 {
		c.evictOldest()
	}

	c.items[key] = c.eviction.PushFront(&memoryEntry{key: key, value: value})
	c.size += size
	c.stats.Size = c.size
	return nil
}

// Len returns the number of cached entries.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a copy of the cache counters.
func (c *Memory) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Memory) evictOldest() {
	elem := c.eviction.Back()
	if elem == nil {
		return
	}
	entry := elem.Value.(*memoryEntry)
	c.eviction.Remove(elem)
	delete(c.items, entry.key)
	c.size -= int64(len(entry.value))
	c.stats.Size = c.size
}
