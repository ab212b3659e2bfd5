// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package filterpolicy implements the classic per-block Bloom filter used
// to short-circuit sstable reads for keys that are definitely absent.
package filterpolicy

// Policy generates and probes a filter summarizing a set of keys. The
// filter's encoding is opaque to callers; only a Policy that produced a
// filter can reliably interpret it (a mismatched Policy risks meaningless
// false negatives, which is why the block/table format also records the
// policy's Name).
type Policy interface {
	// Name identifies the filter encoding, written into the on-disk
	// metaindex block so a reader can refuse to trust a filter built by
	// an incompatible policy.
	Name() string
	// CreateFilter builds a filter summarizing keys, appending its
	// encoding to dst.
	CreateFilter(keys [][]byte, dst []byte) []byte
	// KeyMayMatch reports whether key might be a member of the set that
	// produced filter. A false result is definitive; a true result may
	// be a false positive.
	KeyMayMatch(key, filter []byte) bool
}

// bloomPolicy implements Policy with the classic LevelDB Bloom filter:
// bitsPerKey bits of filter per key, using double hashing to derive k
// probe positions from a single 32-bit hash.
//
// Grounded on leveldb's util/bloom.cc CreateFilter/KeyMayMatch (not
// present in the retrieved source pack, but a well-documented, stable
// on-disk format); the underlying hash function is ported from
// cockroachdb-pebble's bloom package, which implements the identical
// Murmur-like hash leveldb and RocksDB share.
type bloomPolicy struct {
	bitsPerKey int
	k          int
}

// NewBloomPolicy returns a Policy using approximately bitsPerKey bits of
// filter per key. 10 bits per key yields about a 1% false positive rate.
func NewBloomPolicy(bitsPerKey int) Policy {
	k := int(float64(bitsPerKey) * 0.69) // ~= ln(2)
	if k < 1 {
		k = 1
	}
	if k > 30 {
		k = 30
	}
	return &bloomPolicy{bitsPerKey: bitsPerKey, k: k}
}

func (p *bloomPolicy) Name() string { return "leveldb.BuiltinBloomFilter2" }

func (p *bloomPolicy) CreateFilter(keys [][]byte, dst []byte) []byte {
	bits := len(keys) * p.bitsPerKey
	if bits < 64 {
		bits = 64
	}
	bytes := (bits + 7) / 8
	bits = bytes * 8

	initSize := len(dst)
	dst = append(dst, make([]byte, bytes)...)
	dst = append(dst, byte(p.k))
	array := dst[initSize : initSize+bytes]

	for _, key := range keys {
		h := hash(key)
		delta := (h >> 17) | (h << 15)
		for j := 0; j < p.k; j++ {
			bitpos := h % uint32(bits)
			array[bitpos/8] |= 1 << (bitpos % 8)
			h += delta
		}
	}
	return dst
}

func (p *bloomPolicy) KeyMayMatch(key, filter []byte) bool {
	if len(filter) < 2 {
		return false
	}
	array := filter[:len(filter)-1]
	bits := len(array) * 8
	k := int(filter[len(filter)-1])
	if k > 30 {
		// Reserved for potential future encodings; treat as "always
		// match" so unrecognized filters never produce false negatives.
		return true
	}

	h := hash(key)
	delta := (h >> 17) | (h << 15)
	for j := 0; j < k; j++ {
		bitpos := h % uint32(bits)
		if array[bitpos/8]&(1<<(bitpos%8)) == 0 {
			return false
		}
		h += delta
	}
	return true
}

// hash implements the Murmur-like hash leveldb and RocksDB use for Bloom
// filters, ported from cockroachdb-pebble's bloom package.
func hash(b []byte) uint32 {
	const (
		seed = 0xbc9f1d34
		m    = 0xc6a4a793
	)
	h := uint32(seed) ^ (uint32(len(b)) * m)
	for ; len(b) >= 4; b = b[4:] {
		h += uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		h *= m
		h ^= h >> 16
	}

	switch len(b) {
	case 3:
		h += uint32(int8(b[2])) << 16
		fallthrough
	case 2:
		h += uint32(int8(b[1])) << 8
		fallthrough
	case 1:
		h += uint32(int8(b[0]))
		h *= m
		h ^= h >> 24
	}
	return h
}
