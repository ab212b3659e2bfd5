// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package sstable implements the on-disk sorted-string-table format: data
// blocks with shared-prefix key compression and periodic restart points,
// a sparse index block, an optional per-block Bloom filter block, and a
// fixed-size trailing footer.
package sstable

import (
	"github.com/thydamon/leveldb/internal/coding"
)

// defaultRestartInterval is the number of entries between restart points
// in a data or index block; restart points trade a little space for O(log
// n) seeking within a block via binary search.
const defaultRestartInterval = 16

// blockWriter accumulates key/value entries into the shared-prefix
// encoding used for both data blocks and the index block.
//
// Grounded on cockroachdb-pebble's sstable/block_writer.go for the Go
// struct shape (curKey/prevKey buffers, restart slice, nEntries counter),
// generalized to the classic three-varint (shared, unshared, value
// length) leveldb record format rather than pebble's newer prefix-bundle
// encoding.
type blockWriter struct {
	restartInterval int
	buf             []byte
	restarts        []uint32
	nEntries        int
	counter         int // entries written since the last restart point
	curKey          []byte
	prevKey         []byte
}

func newBlockWriter(restartInterval int) *blockWriter {
	if restartInterval <= 0 {
		restartInterval = defaultRestartInterval
	}
	return &blockWriter{
		restartInterval: restartInterval,
		restarts:        []uint32{0},
	}
}

// add appends a key/value entry. Keys must be added in increasing order.
func (w *blockWriter) add(key, value []byte) {
	shared := 0
	if w.counter < w.restartInterval {
		shared = sharedPrefixLen(w.prevKey, key)
	} else {
		w.restarts = append(w.restarts, uint32(len(w.buf)))
		w.counter = 0
	}

	nonShared := len(key) - shared
	w.buf = coding.PutVarint32(w.buf, uint32(shared))
	w.buf = coding.PutVarint32(w.buf, uint32(nonShared))
	w.buf = coding.PutVarint32(w.buf, uint32(len(value)))
	w.buf = append(w.buf, key[shared:]...)
	w.buf = append(w.buf, value...)

	w.curKey = append(w.curKey[:0], key...)
	w.prevKey, w.curKey = w.curKey, w.prevKey
	w.counter++
	w.nEntries++
}

func sharedPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// finish appends the restart point array and its count, returning the
// completed block contents. The blockWriter must not be reused after
// finish; call reset first if it is.
func (w *blockWriter) finish() []byte {
	for _, r := range w.restarts {
		w.buf = coding.PutFixed32(w.buf, r)
	}
	w.buf = coding.PutFixed32(w.buf, uint32(len(w.restarts)))
	return w.buf
}

// reset clears the writer for reuse.
func (w *blockWriter) reset() {
	w.buf = w.buf[:0]
	w.restarts = w.restarts[:1]
	w.restarts[0] = 0
	w.nEntries = 0
	w.counter = 0
	w.curKey = w.curKey[:0]
	w.prevKey = w.prevKey[:0]
}

// estimatedSize returns the block's current encoded size, including the
// restart array and count that finish would append.
func (w *blockWriter) estimatedSize() int {
	return len(w.buf) + 4*len(w.restarts) + 4
}

// empty reports whether any entries have been added since the writer was
// created or last reset.
func (w *blockWriter) empty() bool {
	return w.nEntries == 0
}
