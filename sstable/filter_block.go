// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sstable

import (
	"github.com/thydamon/leveldb/filterpolicy"
	"github.com/thydamon/leveldb/internal/base"
	"github.com/thydamon/leveldb/internal/coding"
)

// filterBaseLg is log2 of the number of data-block bytes each filter
// summarizes: 1<<11 == 2048 bytes, so a new filter is generated every 2KiB
// of data blocks regardless of how those bytes are split into blocks.
const filterBaseLg = 11
const filterBase = 1 << filterBaseLg

// filterBlockWriter builds the filter block: one Bloom filter per 2KiB of
// data-block bytes, followed by an offset array and a trailing base_lg
// byte.
//
// Grounded on leveldb's table/filter_block.cc FilterBlockBuilder (not
// present in the retrieved source pack; format reconstructed from the
// well-documented on-disk layout also implemented, in modern dress, by
// cockroachdb-pebble/bloom).
type filterBlockWriter struct {
	policy filterpolicy.Policy

	keys        [][]byte
	dataOffsets []uint32 // start offset of filter i within the pending buf

	buf []byte // the pending filter data
}

func newFilterBlockWriter(policy filterpolicy.Policy) *filterBlockWriter {
	return &filterBlockWriter{policy: policy}
}

// startBlock is called by the table writer with the offset of the data
// block about to be written, so the filter builder can generate any
// filters covering bytes now known to be finalized.
func (w *filterBlockWriter) startBlock(blockOffset uint64) {
	filterIndex := blockOffset / filterBase
	for uint64(len(w.dataOffsets)) < filterIndex {
		w.generateFilter()
	}
}

// addKey records key as belonging to the data block currently being
// written.
func (w *filterBlockWriter) addKey(key []byte) {
	w.keys = append(w.keys, append([]byte(nil), key...))
}

func (w *filterBlockWriter) generateFilter() {
	w.dataOffsets = append(w.dataOffsets, uint32(len(w.buf)))
	if len(w.keys) == 0 {
		return
	}
	w.buf = w.policy.CreateFilter(w.keys, w.buf)
	w.keys = w.keys[:0]
}

// finish flushes any pending filter and returns the completed filter
// block.
func (w *filterBlockWriter) finish() []byte {
	if len(w.keys) > 0 {
		w.generateFilter()
	}
	w.dataOffsets = append(w.dataOffsets, uint32(len(w.buf)))

	result := w.buf
	arrayOffset := uint32(len(result))
	for _, off := range w.dataOffsets {
		result = coding.PutFixed32(result, off)
	}
	result = coding.PutFixed32(result, arrayOffset)
	result = append(result, byte(filterBaseLg))
	return result
}

// filterBlockReader answers KeyMayMatch queries against a decoded filter
// block, given the offset of the data block the key was looked up in.
type filterBlockReader struct {
	policy  filterpolicy.Policy
	data    []byte
	offsets []byte // the encoded offset array, still varint-free fixed32s
	num     int
	baseLg  int
}

func newFilterBlockReader(policy filterpolicy.Policy, contents []byte) (*filterBlockReader, error) {
	if len(contents) < 5 {
		return nil, base.NewCorruptionf("sstable: filter block too small")
	}
	baseLg := int(contents[len(contents)-1])
	arrayOffset := coding.DecodeFixed32(contents[len(contents)-5:])
	if int(arrayOffset) > len(contents)-5 {
		return nil, base.NewCorruptionf("sstable: bad filter block offset array")
	}
	offsets := contents[arrayOffset : len(contents)-5]
	// offsets holds one fixed32 start offset per generated filter plus a
	// trailing entry marking the end of the last filter (the start of the
	// offset array itself), so the filter count is one less than the
	// number of fixed32 entries.
	num := len(offsets)/4 - 1
	return &filterBlockReader{
		policy:  policy,
		data:    contents[:arrayOffset],
		offsets: offsets,
		num:     num,
		baseLg:  baseLg,
	}, nil
}

// keyMayMatch reports whether key might be present in the data block
// starting at blockOffset.
func (r *filterBlockReader) keyMayMatch(blockOffset uint64, key []byte) bool {
	index := int(blockOffset >> uint(r.baseLg))
	if index >= r.num {
		// No filter covers this range; err on the side of a match.
		return true
	}
	start := coding.DecodeFixed32(r.offsets[index*4:])
	limit := coding.DecodeFixed32(r.offsets[(index+1)*4:])
	if start > limit || int(limit) > len(r.data) {
		return true
	}
	return r.policy.KeyMayMatch(key, r.data[start:limit])
}
