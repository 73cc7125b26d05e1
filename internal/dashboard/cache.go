package dashboard

import (
	"sync"

	"github.com/couchcryptid/climate-dashboard/internal/domain"
)

// resultCache is a thread-safe LRU of engine results keyed by the filter they
// were computed for.
// Entries stay valid for the life of the process because the dataset never
// changes after it is loaded.
type resultCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[domain.FilterState]*cacheEntry
	head       *cacheEntry // most recently used
	tail       *cacheEntry // least recently used
}

type cacheEntry struct {
	key    domain.FilterState
	result domain.Result
	prev   *cacheEntry
	next   *cacheEntry
}

func newResultCache(maxEntries int) *resultCache {
	return &resultCache{
		maxEntries: maxEntries,
		entries:    make(map[domain.FilterState]*cacheEntry),
	}
}

func (c *resultCache) get(key domain.FilterState) (domain.Result, bool) {
	if c.maxEntries <= 0 {
		return domain.Result{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.Result{}, false
	}
	c.moveToFront(e)
	return e.result, true
}

func (c *resultCache) put(key domain.FilterState, result domain.Result) {
	if c.maxEntries <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.result = result
		c.moveToFront(e)
		return
	}

	e := &cacheEntry{key: key, result: result}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *resultCache) moveToFront(e *cacheEntry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *resultCache) addToFront(e *cacheEntry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *resultCache) unlink(e *cacheEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *resultCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlink(c.tail)
}
