// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sstable

import (
	"github.com/thydamon/leveldb/internal/base"
	"github.com/thydamon/leveldb/internal/coding"
)

// block is a decoded data or index block: the raw contents plus the
// restart point offsets parsed out of its trailer.
//
// Grounded on leveldb's table/block.cc Block/Iter: restart points are
// binary-searched to find a starting point at or before the target key,
// then the block is scanned linearly from there decoding the
// shared/unshared/value-length triples.
type block struct {
	data     []byte
	restarts []uint32
}

func newBlock(data []byte) (*block, error) {
	if len(data) < 4 {
		return nil, base.NewCorruptionf("sstable: block too small")
	}
	numRestarts := coding.DecodeFixed32(data[len(data)-4:])
	restartsStart := len(data) - 4 - 4*int(numRestarts)
	if restartsStart < 0 {
		return nil, base.NewCorruptionf("sstable: bad restart count")
	}
	restarts := make([]uint32, numRestarts)
	for i := range restarts {
		restarts[i] = coding.DecodeFixed32(data[restartsStart+4*i:])
	}
	return &block{data: data[:restartsStart], restarts: restarts}, nil
}

// entryAt decodes the entry beginning at offset, returning the entry's
// key (reconstructed against prevKey when the entry shares a prefix with
// it), its value, and the offset of the entry following it. prevKey may
// be nil when offset is a restart point.
func (b *block) entryAt(offset int, prevKey []byte) (key, value []byte, next int, err error) {
	p := b.data[offset:]
	shared, n1, ok1 := coding.GetVarint32(p)
	nonShared, n2, ok2 := coding.GetVarint32(p[n1:])
	valueLen, n3, ok3 := coding.GetVarint32(p[n1+n2:])
	if !ok1 || !ok2 || !ok3 {
		return nil, nil, 0, base.NewCorruptionf("sstable: bad entry header")
	}
	headerLen := n1 + n2 + n3
	if int(shared) > len(prevKey) {
		return nil, nil, 0, base.NewCorruptionf("sstable: bad shared prefix length")
	}
	keyEnd := headerLen + int(nonShared)
	if keyEnd > len(p) {
		return nil, nil, 0, base.NewCorruptionf("sstable: truncated key")
	}
	key = make([]byte, int(shared)+int(nonShared))
	copy(key, prevKey[:shared])
	copy(key[shared:], p[headerLen:keyEnd])

	valueEnd := keyEnd + int(valueLen)
	if valueEnd > len(p) {
		return nil, nil, 0, base.NewCorruptionf("sstable: truncated value")
	}
	value = p[keyEnd:valueEnd]
	return key, value, offset + valueEnd, nil
}

// blockIter walks a block's entries in order and supports seeking to the
// first entry whose key is >= a target, using the restart array to avoid
// a full linear scan. It also supports walking backward: since entries
// only carry a shared-prefix diff against their immediate predecessor,
// Prev re-walks forward from the restart point before the current entry,
// exactly as leveldb's own table/block.cc Block::Iter::Prev does.
type blockIter struct {
	blk *block
	cmp base.Compare

	restartIndex int // index of the restart point at or before curOffset
	curOffset    int // start offset of the entry the iterator sits on
	nextOffset   int // start offset of the entry following it
	key          []byte
	value        []byte
	valid        bool
	err          error
}

func newBlockIter(blk *block, cmp base.Compare) *blockIter {
	return &blockIter{blk: blk, cmp: cmp}
}

// seekToRestartPoint repositions the iterator at restart point index
// without decoding an entry; the caller must call parseNext to load one.
func (it *blockIter) seekToRestartPoint(index int) {
	it.restartIndex = index
	it.curOffset = int(it.blk.restarts[index])
	it.nextOffset = it.curOffset
	it.key, it.value = nil, nil
	it.valid = false
}

// parseNext decodes the entry at nextOffset, if any, advancing the
// iterator onto it and keeping restartIndex in sync as restart
// boundaries are crossed.
func (it *blockIter) parseNext() bool {
	if it.nextOffset >= len(it.blk.data) {
		it.valid = false
		return false
	}
	key, value, next, err := it.blk.entryAt(it.nextOffset, it.key)
	if err != nil {
		it.err = err
		it.valid = false
		return false
	}
	it.curOffset = it.nextOffset
	it.key, it.value = key, value
	it.nextOffset = next
	it.valid = true
	for it.restartIndex+1 < len(it.blk.restarts) && int(it.blk.restarts[it.restartIndex+1]) <= it.curOffset {
		it.restartIndex++
	}
	return true
}

// SeekGE positions the iterator at the first entry with key >= target.
func (it *blockIter) SeekGE(target []byte) bool {
	restarts := it.blk.restarts
	lo, hi := 0, len(restarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		key, _, _, err := it.blk.entryAt(int(restarts[mid]), nil)
		if err != nil {
			it.err = err
			it.valid = false
			return false
		}
		if it.cmp(key, target) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	it.seekToRestartPoint(lo)
	for it.parseNext() {
		if it.cmp(it.key, target) >= 0 {
			return true
		}
	}
	return false
}

// First positions the iterator at the block's first entry.
func (it *blockIter) First() bool {
	it.seekToRestartPoint(0)
	return it.parseNext()
}

// SeekToLast positions the iterator at the block's last entry.
func (it *blockIter) SeekToLast() bool {
	if len(it.blk.restarts) == 0 {
		it.valid = false
		return false
	}
	it.seekToRestartPoint(len(it.blk.restarts) - 1)
	for it.nextOffset < len(it.blk.data) {
		if !it.parseNext() {
			return false
		}
	}
	return it.valid
}

// Next advances to the following entry.
func (it *blockIter) Next() bool {
	return it.parseNext()
}

// Prev moves to the entry preceding the current one. Since entries only
// encode a diff against their predecessor, this re-walks forward from the
// restart point before the current entry rather than decoding backward.
func (it *blockIter) Prev() bool {
	if !it.valid {
		return false
	}
	original := it.curOffset
	for int(it.blk.restarts[it.restartIndex]) >= original {
		if it.restartIndex == 0 {
			it.valid = false
			return false
		}
		it.restartIndex--
	}
	it.seekToRestartPoint(it.restartIndex)
	if !it.parseNext() {
		return false
	}
	for it.nextOffset < original {
		if !it.parseNext() {
			return false
		}
	}
	return true
}

// Key returns the current entry's key. Valid only when the most recent
// positioning call returned true.
func (it *blockIter) Key() []byte { return it.key }

// Value returns the current entry's value.
func (it *blockIter) Value() []byte { return it.value }

// Valid reports whether the iterator is positioned at an entry.
func (it *blockIter) Valid() bool { return it.valid }

// Error returns the first error encountered while decoding the block, if
// any.
func (it *blockIter) Error() error { return it.err }
