// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sstable

import (
	"io"

	"github.com/golang/snappy"

	"github.com/thydamon/leveldb/filterpolicy"
	"github.com/thydamon/leveldb/internal/base"
	"github.com/thydamon/leveldb/internal/coding"
	"github.com/thydamon/leveldb/internal/crc"
)

// CompressionType identifies how a block's payload is encoded on disk,
// stored in the one-byte trailer following every block.
type CompressionType byte

const (
	// NoCompression stores block payloads verbatim.
	NoCompression CompressionType = 0
	// SnappyCompression stores block payloads snappy-compressed.
	SnappyCompression CompressionType = 1
)

// WriterOptions configures a Writer.
type WriterOptions struct {
	Comparer        base.Compare
	Separator       base.Separator
	Successor       base.Successor
	FilterPolicy    filterpolicy.Policy // nil disables the filter block
	BlockSize       int
	RestartInterval int
	Compression     CompressionType
}

func (o *WriterOptions) ensureDefaults() {
	if o.Comparer == nil {
		o.Comparer = base.DefaultCompare
	}
	if o.Separator == nil {
		o.Separator = base.DefaultSeparator
	}
	if o.Successor == nil {
		o.Successor = base.DefaultSuccessor
	}
	if o.BlockSize == 0 {
		o.BlockSize = 4096
	}
	if o.RestartInterval == 0 {
		o.RestartInterval = defaultRestartInterval
	}
}

// Writer builds a single sstable, one call to Add per key in increasing
// order followed by a single call to Finish.
//
// Grounded on leveldb's table/table_builder.cc TableBuilder: Add buffers
// into the current data block and lazily emits the *previous* block's
// index entry (using the shortest separator between it and the newly
// added key) once that key is known, Flush triggers a block write when
// the pending block is large enough, and Finish emits the filter block,
// metaindex block, index block, and footer in that order.
type Writer struct {
	w    io.Writer
	opts WriterOptions

	dataBlock  *blockWriter
	indexBlock *blockWriter
	filter     *filterBlockWriter

	offset      uint64
	numEntries  int
	lastKey     []byte
	haveLastKey bool

	pendingIndexEntry bool
	pendingHandle     blockHandle

	closed bool
	err    error
}

// NewWriter returns a Writer that appends a new sstable to w.
func NewWriter(w io.Writer, opts WriterOptions) *Writer {
	opts.ensureDefaults()
	tw := &Writer{
		w:          w,
		opts:       opts,
		dataBlock:  newBlockWriter(opts.RestartInterval),
		indexBlock: newBlockWriter(opts.RestartInterval),
	}
	if opts.FilterPolicy != nil {
		tw.filter = newFilterBlockWriter(opts.FilterPolicy)
		tw.filter.startBlock(0)
	}
	return tw
}

// Add appends a key/value pair. Keys must be added in strictly increasing
// order according to opts.Comparer.
func (w *Writer) Add(key, value []byte) error {
	if w.err != nil {
		return w.err
	}
	if w.pendingIndexEntry {
		sep := w.opts.Separator(nil, w.lastKey, key)
		handleBuf := w.pendingHandle.encode(nil)
		w.indexBlock.add(sep, handleBuf)
		w.pendingIndexEntry = false
	}

	if w.filter != nil {
		w.filter.addKey(key)
	}

	w.lastKey = append(w.lastKey[:0], key...)
	w.haveLastKey = true
	w.dataBlock.add(key, value)
	w.numEntries++

	if w.dataBlock.estimatedSize() >= w.opts.BlockSize {
		w.flush()
	}
	return w.err
}

// flush writes out the current data block, if non-empty, and arranges for
// its index entry to be added lazily once the next key (or Finish) is
// known.
func (w *Writer) flush() {
	if w.dataBlock.empty() {
		return
	}
	handle, err := w.writeBlock(w.dataBlock)
	if err != nil {
		w.err = err
		return
	}
	w.pendingHandle = handle
	w.pendingIndexEntry = true
	if w.filter != nil {
		w.filter.startBlock(w.offset)
	}
}

func (w *Writer) writeBlock(bw *blockWriter) (blockHandle, error) {
	raw := bw.finish()
	payload, compression := w.maybeCompress(raw)
	handle, err := w.writeRawBlock(payload, compression)
	bw.reset()
	return handle, err
}

func (w *Writer) maybeCompress(raw []byte) ([]byte, CompressionType) {
	if w.opts.Compression != SnappyCompression {
		return raw, NoCompression
	}
	compressed := snappy.Encode(nil, raw)
	// Only keep the compressed form if it saves at least 12.5%, mirroring
	// leveldb's WriteBlock heuristic.
	if len(compressed) < len(raw)-len(raw)/8 {
		return compressed, SnappyCompression
	}
	return raw, NoCompression
}

func (w *Writer) writeRawBlock(data []byte, compression CompressionType) (blockHandle, error) {
	handle := blockHandle{offset: w.offset, length: uint64(len(data))}
	if _, err := w.w.Write(data); err != nil {
		return blockHandle{}, err
	}

	trailer := make([]byte, 1, 5)
	trailer[0] = byte(compression)
	checksum := crc.New([]byte{byte(compression)}, data)
	trailer = coding.PutFixed32(trailer, checksum)
	if _, err := w.w.Write(trailer); err != nil {
		return blockHandle{}, err
	}

	w.offset += uint64(len(data)) + 5
	return handle, nil
}

// NumEntries returns the number of keys added so far.
func (w *Writer) NumEntries() int { return w.numEntries }

// FileSize returns the number of bytes written so far.
func (w *Writer) FileSize() uint64 { return w.offset }

// Abandon discards the writer without completing the table. Any bytes
// already written to w are left as-is; the caller is responsible for
// removing or truncating the underlying file.
func (w *Writer) Abandon() {
	w.closed = true
}

// Finish flushes the final data block, then writes the filter block, the
// metaindex block, the index block, and the footer, in that order.
func (w *Writer) Finish() error {
	if w.closed {
		return base.NewInvalidArgumentf("sstable: writer already closed")
	}
	w.closed = true
	if w.err != nil {
		return w.err
	}

	w.flush()
	if w.err != nil {
		return w.err
	}
	if w.pendingIndexEntry {
		succ := w.opts.Successor(nil, w.lastKey)
		w.indexBlock.add(succ, w.pendingHandle.encode(nil))
		w.pendingIndexEntry = false
	}

	var filterHandle blockHandle
	haveFilter := w.filter != nil
	if haveFilter {
		filterContents := w.filter.finish()
		var err error
		filterHandle, err = w.writeRawBlock(filterContents, NoCompression)
		if err != nil {
			return err
		}
	}

	metaIndex := newBlockWriter(w.opts.RestartInterval)
	if haveFilter {
		key := "filter." + w.opts.FilterPolicy.Name()
		metaIndex.add([]byte(key), filterHandle.encode(nil))
	}
	metaIndexHandle, err := w.writeBlock(metaIndex)
	if err != nil {
		return err
	}

	indexHandle, err := w.writeBlock(w.indexBlock)
	if err != nil {
		return err
	}

	ft := footer{metaIndexHandle: metaIndexHandle, indexHandle: indexHandle}
	footerBuf := ft.encode()
	if _, err := w.w.Write(footerBuf); err != nil {
		return err
	}
	w.offset += uint64(len(footerBuf))
	return nil
}
