// Copyright 2025 The Cachekit Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package lru

import (
	"fmt"
)

type (
	// Cache implements the container with limited size capacity and LRU (Least Recently Used)
	// pull out discipline. All entries are placed into a doubly-linked sequence ordered from the
	// most recently used one (right after the head sentinel) to the least recently used one
	// (right before the tail sentinel) and indexed by the key in a map, so every operation
	// takes O(1). When a new key makes the number of entries exceed the capacity, the entry
	// before the tail sentinel is evicted. The Cache is not safe for the concurrent use,
	// the callers must synchronize the access to the Cache themselves (see the package doc)
	Cache[K comparable, V any] struct {
		capacity int
		items    map[K]*entry[K, V]
		// head and tail are the permanent sentinel elements, they never carry a key or
		// a value. head.next is the most recently used entry and tail.prev is the least
		// recently used one, or each other if the Cache is empty
		head *entry[K, V]
		tail *entry[K, V]
		// free is the list of the released entries (linked via next) kept for the reuse,
		// it never grows beyond the capacity
		free    *entry[K, V]
		freeLen int
	}

	entry[K comparable, V any] struct {
		key  K
		val  V
		prev *entry[K, V]
		next *entry[K, V]
	}
)

// NewCache creates the new Cache instance with the capacity provided. The capacity defines
// the maximum number of entries the Cache may retain. The capacity=0 is allowed, such Cache
// accepts Add calls, but it evicts every added entry immediately, so it always stays empty.
// The function returns an error if the capacity is negative
func NewCache[K comparable, V any](capacity int) (*Cache[K, V], error) {
	if capacity < 0 {
		return nil, fmt.Errorf("NewCache(): the capacity=%d, but it cannot be negative", capacity)
	}
	c := new(Cache[K, V])
	c.capacity = capacity
	c.items = make(map[K]*entry[K, V], capacity)
	c.head = &entry[K, V]{}
	c.tail = &entry[K, V]{}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c, nil
}

// Add puts the value v by the key k and makes the entry the most recently used one.
// If the key already exists, its value is replaced in place, the number of entries is
// not changed and no eviction happens. If the key is new and its insertion exceeds
// the capacity, the least recently used entry is pulled out and its key and value are
// returned together with evicted=true. Not more than one entry may be evicted per call
func (c *Cache[K, V]) Add(k K, v V) (evictedKey K, evictedValue V, evicted bool) {
	if e, ok := c.items[k]; ok {
		e.val = v
		c.unlink(e)
		c.toFront(e)
		return
	}
	e := c.newEntry(k, v)
	c.items[k] = e
	c.toFront(e)
	if len(c.items) > c.capacity {
		lu := c.tail.prev
		evictedKey, evictedValue = lu.key, lu.val
		c.unlink(lu)
		delete(c.items, lu.key)
		c.release(lu)
		evicted = true
	}
	return
}

// Get returns the value by the key k and makes its entry the most recently used one.
// The second result is false if the key is not in the Cache, this case the order of
// the entries is not changed
func (c *Cache[K, V]) Get(k K) (V, bool) {
	e, ok := c.items[k]
	if !ok {
		return *new(V), false
	}
	c.unlink(e)
	c.toFront(e)
	return e.val, true
}

// Peek returns the value by the key k like Get does, but it never changes the order
// of the entries
func (c *Cache[K, V]) Peek(k K) (V, bool) {
	if e, ok := c.items[k]; ok {
		return e.val, true
	}
	return *new(V), false
}

// Contains reports whether the key k is in the Cache. The order of the entries is
// not changed
func (c *Cache[K, V]) Contains(k K) bool {
	_, ok := c.items[k]
	return ok
}

// Remove deletes the entry by the key k and returns its value. The second result
// is false if the key was not found, this case the Cache is not changed
func (c *Cache[K, V]) Remove(k K) (V, bool) {
	e, ok := c.items[k]
	if !ok {
		return *new(V), false
	}
	v := e.val
	c.unlink(e)
	delete(c.items, k)
	c.release(e)
	return v, true
}

// First returns the value of the most recently used entry. The second result is
// false if the Cache is empty
func (c *Cache[K, V]) First() (V, bool) {
	if c.head.next == c.tail {
		return *new(V), false
	}
	return c.head.next.val, true
}

// Last returns the value of the least recently used entry, which is the eviction
// candidate. The second result is false if the Cache is empty
func (c *Cache[K, V]) Last() (V, bool) {
	if c.tail.prev == c.head {
		return *new(V), false
	}
	return c.tail.prev.val, true
}

// Keys returns all the keys ordered from the most recently used one to the least
// recently used one
func (c *Cache[K, V]) Keys() []K {
	keys := make([]K, 0, len(c.items))
	for e := c.head.next; e != c.tail; e = e.next {
		keys = append(keys, e.key)
	}
	return keys
}

// Len returns the number of entries in the Cache
func (c *Cache[K, V]) Len() int {
	return len(c.items)
}

// IsEmpty reports whether the Cache contains no entries
func (c *Cache[K, V]) IsEmpty() bool {
	return len(c.items) == 0
}

// Capacity returns the maximum number of entries the Cache may retain
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// Clear removes all the entries. The function returns the number of the entries deleted
func (c *Cache[K, V]) Clear() int {
	removed := len(c.items)
	for e := c.head.next; e != c.tail; {
		next := e.next
		c.release(e)
		e = next
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	clear(c.items)
	return removed
}

// Resize changes the Cache capacity. If the new capacity is less than the current number
// of entries, the least recently used entries are pulled out one by one until the number
// of entries fits the new capacity, so Add may always rely on that not more than one entry
// is over the capacity at a time. The function returns the number of the entries evicted
// and an error if the capacity is negative
func (c *Cache[K, V]) Resize(capacity int) (int, error) {
	if capacity < 0 {
		return 0, fmt.Errorf("Resize(): the capacity=%d, but it cannot be negative", capacity)
	}
	c.capacity = capacity
	evicted := 0
	for len(c.items) > c.capacity {
		lu := c.tail.prev
		c.unlink(lu)
		delete(c.items, lu.key)
		c.release(lu)
		evicted++
	}
	return evicted, nil
}

// unlink removes e from the sequence relinking its neighbors to each other. The
// sentinels make the operation safe for any live entry
func (c *Cache[K, V]) unlink(e *entry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

// toFront splices e right after the head sentinel making it the most recently used one
func (c *Cache[K, V]) toFront(e *entry[K, V]) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

// newEntry takes an entry from the free list or allocates the new one
func (c *Cache[K, V]) newEntry(k K, v V) *entry[K, V] {
	e := c.free
	if e == nil {
		e = new(entry[K, V])
	} else {
		c.free = e.next
		c.freeLen--
		e.next = nil
	}
	e.key = k
	e.val = v
	return e
}

// release drops the key and the value of the unlinked entry e, so the Cache does not
// retain the objects they may refer to, and puts e to the free list if there is a room
func (c *Cache[K, V]) release(e *entry[K, V]) {
	e.key = *new(K)
	e.val = *new(V)
	e.prev, e.next = nil, nil
	if c.freeLen >= c.capacity {
		return
	}
	e.next = c.free
	c.free = e
	c.freeLen++
}
