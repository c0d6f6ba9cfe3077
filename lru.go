package eprints

import (
	"container/list"
	"sync"
)

// lruCache is a small thread-safe LRU used to front record lookups.
type lruCache struct {
	capacity int
	cache    map[string]*list.Element
	list     *list.List
	mu       sync.Mutex
}

type lruEntry struct {
	key   string
	value *Record
}

func newLRUCache(capacity int) *lruCache {
	if capacity <= 0 {
		capacity = 10000
	}
	return &lruCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		list:     list.New(),
	}
}

func (lru *lruCache) get(key string) (*Record, bool) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if elem, ok := lru.cache[key]; ok {
		lru.list.MoveToFront(elem)
		return elem.Value.(*lruEntry).value, true
	}
	return nil, false
}

func (lru *lruCache) put(key string, value *Record) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if elem, ok := lru.cache[key]; ok {
		elem.Value.(*lruEntry).value = value
		lru.list.MoveToFront(elem)
		return
	}

	if lru.list.Len() >= lru.capacity {
		back := lru.list.Back()
		if back != nil {
			delete(lru.cache, back.Value.(*lruEntry).key)
			lru.list.Remove(back)
		}
	}

	elem := lru.list.PushFront(&lruEntry{key: key, value: value})
	lru.cache[key] = elem
}

func (lru *lruCache) delete(key string) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if elem, ok := lru.cache[key]; ok {
		delete(lru.cache, key)
		lru.list.Remove(elem)
	}
}

func (lru *lruCache) size() int {
	lru.mu.Lock()
	defer lru.mu.Unlock()
	return len(lru.cache)
}
