package logstore

import (
	"container/list"
	"sync"

	"DocDB/internal/domain"
)

// documentCache is a bounded recency cache of materialized document bodies.
// Capacity is injected per instance so tests can construct isolated caches.
type documentCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[string]*list.Element
}

type cacheSlot struct {
	id  string
	doc domain.Document
}

func newDocumentCache(capacity int) *documentCache {
	return &documentCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

func (c *documentCache) Get(id string) (domain.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, found := c.items[id]
	if !found {
		return domain.Document{}, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheSlot).doc, true
}

func (c *documentCache) Put(doc domain.Document) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, found := c.items[doc.ID]; found {
		elem.Value.(*cacheSlot).doc = doc
		c.order.MoveToFront(elem)
		return
	}
	elem := c.order.PushFront(&cacheSlot{id: doc.ID, doc: doc})
	c.items[doc.ID] = elem

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheSlot).id)
	}
}

func (c *documentCache) Evict(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, found := c.items[id]; found {
		c.order.Remove(elem)
		delete(c.items, id)
	}
}

func (c *documentCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[string]*list.Element)
}

func (c *documentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
