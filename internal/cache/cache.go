// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package cache implements a sharded LRU cache used to hold open sstable
// readers and their decoded blocks. The cache is split into 16
// independently-locked shards, each holding two intrusive doubly linked
// lists plus a hash table, so that concurrent lookups against different
// keys rarely contend.
package cache

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const (
	numShardBits = 4
	numShards    = 1 << numShardBits
)

// Value is the payload stored under a cache key. The cache treats it
// opaquely; callers type-assert it back on Lookup.
type Value any

// Deleter is invoked, at most once, when an entry's last reference is
// dropped after the entry has left the cache: by eviction, Erase, Prune,
// or an Insert that replaces it under the same key. Discarding a Cache
// does not run the deleters of the entries still in it.
type Deleter func(key []byte, value Value)

// Handle is a reference to an entry returned by Insert or Lookup. Callers
// must call (*Cache).Release exactly once per Handle they receive.
type Handle struct {
	e *entry
}

// entry is the intrusive node backing both the hash table and one of a
// shard's two lists. An entry with refs >= 2 is on the in-use list (handed
// out to at least one caller); with refs == 1 it is on the LRU list
// (cached but not currently held by anyone) and eligible for eviction.
// inCache tracks whether the shard's hash table still holds it, since
// Erase can drop that reference while callers still hold handles.
type entry struct {
	key     []byte
	hash    uint64
	value   Value
	deleter Deleter
	charge  int
	refs    int
	inCache bool
	next    *entry
	prev    *entry
	// nextHash chains entries within a hash bucket.
	nextHash *entry
}

// shard is one of the 16 independently-locked partitions of a Cache.
type shard struct {
	mu sync.Mutex

	capacity int
	usage    int

	// lru is the dummy head of the circular doubly linked list of entries
	// with refs == 1: cached, but not held by any caller. lru.prev is the
	// most recently used entry, lru.next the least recently used, and
	// eviction always removes from lru.next.
	lru entry

	// inUse is the dummy head of the circular doubly linked list of
	// entries with refs >= 2: currently held by at least one caller.
	// Unordered, since these are never eviction candidates.
	inUse entry

	table handleTable
}

// Cache is a fixed-capacity, sharded LRU cache mapping byte-string keys to
// arbitrary values.
type Cache struct {
	shards [numShards]shard

	idMu   sync.Mutex
	lastID uint64
}

// New returns a Cache with the given total capacity, measured in whatever
// units the caller's charge values use (typically bytes). Capacity is
// divided evenly across the 16 shards, rounding up so the sum of shard
// capacities is never less than capacity.
func New(capacity int) *Cache {
	c := &Cache{}
	perShard := (capacity + numShards - 1) / numShards
	for i := range c.shards {
		s := &c.shards[i]
		s.capacity = perShard
		s.lru.next = &s.lru
		s.lru.prev = &s.lru
		s.inUse.next = &s.inUse
		s.inUse.prev = &s.inUse
	}
	return c
}

func hashKey(key []byte) uint64 {
	return xxhash.Sum64(key)
}

func shardIndex(hash uint64) uint32 {
	return uint32(hash >> (64 - numShardBits))
}

// Insert adds key/value to the cache with the given charge against
// capacity, then evicts least-recently-used entries that no Handle holds
// until the shard is within its capacity or no such entry is left.
// Entries held by outstanding Handles are never evicted, so usage can
// exceed capacity while they are held; Release does not evict. It returns
// a Handle the caller must Release.
func (c *Cache) Insert(key []byte, value Value, charge int, deleter Deleter) *Handle {
	hash := hashKey(key)
	return c.shards[shardIndex(hash)].insert(key, hash, value, charge, deleter)
}

// Lookup returns a Handle for key, or nil if key is not cached. A non-nil
// result must be Released by the caller.
func (c *Cache) Lookup(key []byte) *Handle {
	hash := hashKey(key)
	return c.shards[shardIndex(hash)].lookup(key, hash)
}

// Release drops the reference represented by h. h must not be used again
// afterward.
func (c *Cache) Release(h *Handle) {
	if h == nil {
		return
	}
	c.shards[shardIndex(h.e.hash)].release(h.e)
}

// Erase removes key from the cache, if present. Any outstanding Handle for
// it remains valid until released; the entry's memory is reclaimed only
// once its refcount drops to zero.
func (c *Cache) Erase(key []byte) {
	hash := hashKey(key)
	c.shards[shardIndex(hash)].erase(key, hash)
}

// Value returns the value held by h.
func (h *Handle) Value() Value {
	return h.e.value
}

// NewID returns a cache-wide unique id, for callers (such as a table cache)
// that want to namespace cache keys per open file without colliding across
// distinct instances of the same underlying file.
func (c *Cache) NewID() uint64 {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	c.lastID++
	return c.lastID
}

// Prune evicts every entry currently on a shard's LRU list, i.e. every
// entry not held by an outstanding Handle.
func (c *Cache) Prune() {
	for i := range c.shards {
		c.shards[i].prune()
	}
}

// TotalCharge returns the sum of charges of all entries currently in the
// cache, across all shards.
func (c *Cache) TotalCharge() int {
	total := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		total += s.usage
		s.mu.Unlock()
	}
	return total
}

func listRemove(e *entry) {
	e.next.prev = e.prev
	e.prev.next = e.next
}

func listAppend(head, e *entry) {
	e.next = head
	e.prev = head.prev
	e.prev.next = e
	e.next.prev = e
}

// ref bumps e's refcount, moving it onto the in-use list the moment it
// stops being solely cache-resident (refs going from 1 to 2). Callers
// must hold the owning shard's mutex.
func ref(e *entry, s *shard) {
	if e.refs == 1 && e.inCache {
		listRemove(e)
		listAppend(&s.inUse, e)
	}
	e.refs++
}

// unref drops one reference from e. At refs == 1 while still cached, e
// moves back onto the LRU list as the most-recently-used entry; at refs
// == 0 it is gone from the table already and its deleter runs. Callers
// must hold the owning shard's mutex.
func unref(e *entry, s *shard) {
	e.refs--
	switch {
	case e.refs == 0:
		if e.deleter != nil {
			e.deleter(e.key, e.value)
		}
	case e.inCache && e.refs == 1:
		listRemove(e)
		listAppend(&s.lru, e)
	}
}

// finishErase detaches e from the table and its list, decrements usage,
// and drops the table's reference. Callers must hold the owning shard's
// mutex.
func (s *shard) finishErase(e *entry) {
	if e == nil {
		return
	}
	listRemove(e)
	e.inCache = false
	s.usage -= e.charge
	unref(e, s)
}

func (s *shard) insert(key []byte, hash uint64, value Value, charge int, deleter Deleter) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry{
		key:     append([]byte(nil), key...),
		hash:    hash,
		value:   value,
		deleter: deleter,
		charge:  charge,
		refs:    1, // held by the table only, until listAppend below
		inCache: true,
	}
	listAppend(&s.inUse, e)
	e.refs++ // one for the table, one for the returned Handle
	s.usage += charge

	s.finishErase(s.table.insert(e))

	for s.usage > s.capacity && s.lru.next != &s.lru {
		s.finishErase(s.table.remove(s.lru.next.key, s.lru.next.hash))
	}

	return &Handle{e: e}
}

func (s *shard) lookup(key []byte, hash uint64) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.table.lookup(key, hash)
	if e == nil {
		return nil
	}
	ref(e, s)
	return &Handle{e: e}
}

func (s *shard) release(e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	unref(e, s)
}

func (s *shard) erase(key []byte, hash uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishErase(s.table.remove(key, hash))
}

func (s *shard) prune() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for e := s.lru.next; e != &s.lru; {
		next := e.next
		s.finishErase(s.table.remove(e.key, e.hash))
		e = next
	}
}
