// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package base

import "bytes"

// Compare returns -1, 0, or +1 depending on whether a is less than, equal
// to, or greater than b.
type Compare func(a, b []byte) int

// Separator appends to dst a key k such that a <= k < b (given a < b under
// Compare), preferring the shortest such k. It is used only to shrink index
// keys; it never affects ordering correctness.
type Separator func(dst, a, b []byte) []byte

// Successor appends to dst a key k such that a <= k, preferring the
// shortest such k.
type Successor func(dst, a []byte) []byte

// DefaultCompare orders byte slices lexicographically.
func DefaultCompare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// DefaultSeparator finds the shortest separator between start and limit
// (start < limit under DefaultCompare) by locating the first differing byte
// and, if it can be incremented without reaching or passing limit,
// truncating there. Ported from leveldb's BytewiseComparatorImpl and its
// FindShortestSeparator: see util/comparator.cc.
//
// Postcondition: start <= result < limit.
func DefaultSeparator(dst, start, limit []byte) []byte {
	minLen := len(start)
	if len(limit) < minLen {
		minLen = len(limit)
	}
	diff := 0
	for diff < minLen && start[diff] == limit[diff] {
		diff++
	}
	if diff >= minLen {
		// One is a prefix of the other; do not shorten.
		return append(dst, start...)
	}
	b := start[diff]
	if b < 0xff && b+1 < limit[diff] {
		dst = append(dst, start[:diff]...)
		dst = append(dst, b+1)
		return dst
	}
	return append(dst, start...)
}

// DefaultSuccessor finds the shortest key >= key by incrementing the first
// byte that is not already 0xff and truncating after it. A key that is a
// run of 0xff bytes is returned unchanged. Ported from
// BytewiseComparatorImpl::FindShortSuccessor.
func DefaultSuccessor(dst, key []byte) []byte {
	for i := 0; i < len(key); i++ {
		b := key[i]
		if b != 0xff {
			dst = append(dst, key[:i]...)
			dst = append(dst, b+1)
			return dst
		}
	}
	return append(dst, key...)
}
