// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cache

import "bytes"

// handleTable is a chained hash table mapping (key, hash) to *entry,
// specialized for the entries a shard holds. It resizes by doubling
// whenever the number of elements would exceed the bucket count, aiming
// for an average chain length of one.
type handleTable struct {
	buckets []*entry
	elems   uint32
}

func (t *handleTable) lookup(key []byte, hash uint64) *entry {
	return *t.findPointer(key, hash)
}

// insert adds e to the table, returning the entry it replaced (one with
// the same key and hash), or nil if there was none.
func (t *handleTable) insert(e *entry) *entry {
	ptr := t.findPointer(e.key, e.hash)
	old := *ptr
	if old != nil {
		e.nextHash = old.nextHash
	} else {
		e.nextHash = nil
	}
	*ptr = e

	if old == nil {
		t.elems++
		if t.elems > uint32(len(t.buckets)) {
			t.resize()
		}
	}
	return old
}

func (t *handleTable) remove(key []byte, hash uint64) *entry {
	ptr := t.findPointer(key, hash)
	result := *ptr
	if result != nil {
		*ptr = result.nextHash
		t.elems--
	}
	return result
}

// findPointer returns a pointer to the slot that holds the entry matching
// key/hash: either a **entry pointing at that entry directly, or the
// trailing nil slot at the end of its bucket's chain if no match exists.
func (t *handleTable) findPointer(key []byte, hash uint64) **entry {
	if len(t.buckets) == 0 {
		t.buckets = make([]*entry, 4)
	}
	idx := hash & uint64(len(t.buckets)-1)
	ptr := &t.buckets[idx]
	for *ptr != nil && ((*ptr).hash != hash || !bytes.Equal((*ptr).key, key)) {
		ptr = &(*ptr).nextHash
	}
	return ptr
}

// resize grows the bucket count to the smallest power of two, at least 4,
// that is >= the element count, and rehashes every entry into the new
// bucket array. (The initial 4 buckets are made by findPointer.)
func (t *handleTable) resize() {
	newLength := uint32(4)
	for newLength < t.elems {
		newLength *= 2
	}
	newBuckets := make([]*entry, newLength)
	var count uint32
	for _, head := range t.buckets {
		for e := head; e != nil; {
			next := e.nextHash
			idx := e.hash & uint64(newLength-1)
			e.nextHash = newBuckets[idx]
			newBuckets[idx] = e
			e = next
			count++
		}
	}
	t.buckets = newBuckets
}
