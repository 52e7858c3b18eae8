package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/assetload/resource"
)

// LRU implements BlobCache with least-recently-used eviction.
type LRU struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[string]*list.Element
	evictList *list.List
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	name  string
	value []byte
}

// NewLRU creates a cache holding at most capacity bytes.
// If rc is non-nil, cached bytes are charged against its memory budget.
func NewLRU(capacity int64, rc *resource.Controller) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// Get returns a cached blob.
func (c *LRU) Get(_ context.Context, name string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[name]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(el)
		return el.Value.(*entry).value, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set caches a blob, replacing any previous value.
func (c *LRU) Set(_ context.Context, name string, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[name]; ok {
		c.removeElement(el)
	}

	itemSize := int64(len(b))
	if itemSize > c.capacity {
		return
	}

	// Evict locally first so the controller gets memory back before we ask for more.
	for c.size+itemSize > c.capacity {
		el := c.evictList.Back()
		if el == nil {
			break
		}
		c.removeElement(el)
	}

	if err := c.rc.AcquireMemory(itemSize); err != nil {
		return
	}

	c.items[name] = c.evictList.PushFront(&entry{name: name, value: b})
	c.size += itemSize
}

// Invalidate removes name from the cache.
func (c *LRU) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[name]; ok {
		c.removeElement(el)
	}
}

// Stats returns hit and miss counters.
func (c *LRU) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Size returns the current size of the cache in bytes.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Len returns the number of cached blobs.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

func (c *LRU) removeElement(el *list.Element) {
	c.evictList.Remove(el)
	kv := el.Value.(*entry)
	delete(c.items, kv.name)
	itemSize := int64(len(kv.value))
	c.size -= itemSize
	c.rc.ReleaseMemory(itemSize)
}
