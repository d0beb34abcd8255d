// internal/cache/lru.go
//
// Tiny LRU cache with a per-entry TTL, used to keep hot form definitions
// off the database on the submission path.  No external deps; good for a
// few thousand entries.
package cache

import (
	"container/list"
	"time"
)

// LRU is a non‑generic least‑recently‑used cache with expiry.
// Keys must be comparable; values can be any.  Not safe for concurrent use;
// callers hold their own lock.
type LRU struct {
	cap  int
	ttl  time.Duration
	ll   *list.List
	dict map[any]*list.Element
}

type entry struct {
	key any
	val any
	exp time.Time
}

// New returns an LRU with the given capacity and TTL.  A ttl of zero means
// entries never expire.  Panics on cap < 1.
func New(capacity int, ttl time.Duration) *LRU {
	if capacity < 1 {
		panic("cache: capacity must be ≥1")
	}
	return &LRU{
		cap:  capacity,
		ttl:  ttl,
		ll:   list.New(),
		dict: make(map[any]*list.Element, capacity),
	}
}

// Get retrieves a live value and marks it MRU.  Expired entries are dropped
// on access.
func (c *LRU) Get(key any) (val any, ok bool) {
	ele, hit := c.dict[key]
	if !hit {
		return nil, false
	}
	ent := ele.Value.(entry)
	if !ent.exp.IsZero() && time.Now().After(ent.exp) {
		c.ll.Remove(ele)
		delete(c.dict, key)
		return nil, false
	}
	c.ll.MoveToFront(ele)
	return ent.val, true
}

// Add inserts or updates a value, restarting its TTL.
func (c *LRU) Add(key, val any) {
	var exp time.Time
	if c.ttl > 0 {
		exp = time.Now().Add(c.ttl)
	}
	if ele, hit := c.dict[key]; hit {
		ele.Value = entry{key, val, exp}
		c.ll.MoveToFront(ele)
		return
	}
	ele := c.ll.PushFront(entry{key, val, exp})
	c.dict[key] = ele
	if c.ll.Len() > c.cap {
		last := c.ll.Back()
		c.ll.Remove(last)
		delete(c.dict, last.Value.(entry).key)
	}
}

// Remove drops a key if present.
func (c *LRU) Remove(key any) {
	if ele, hit := c.dict[key]; hit {
		c.ll.Remove(ele)
		delete(c.dict, key)
	}
}

// Len reports current size.
func (c *LRU) Len() int { return c.ll.Len() }
