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

// ReaderOptions configures a Reader. Comparer must match the Comparer the
// table was written with, or seeks will silently return wrong results.
type ReaderOptions struct {
	Comparer     base.Compare
	FilterPolicy filterpolicy.Policy // nil disables filter checks
}

func (o *ReaderOptions) ensureDefaults() {
	if o.Comparer == nil {
		o.Comparer = base.DefaultCompare
	}
}

// Reader provides random-access reads and forward iteration over a single
// sstable.
//
// Grounded on leveldb's table/table.cc Table::Open/InternalGet/
// BlockReader: the footer is read first, then the index block, then (if a
// filter policy was configured) the metaindex block is consulted for a
// "filter.<policy name>" entry to load the filter block.
type Reader struct {
	r    io.ReaderAt
	size int64
	opts ReaderOptions

	index  *block
	filter *filterBlockReader
}

// NewReader opens r (of the given total size) as a table.
func NewReader(r io.ReaderAt, size int64, opts ReaderOptions) (*Reader, error) {
	opts.ensureDefaults()
	if size < footerLen {
		return nil, base.NewCorruptionf("sstable: file too small to be a table")
	}

	footerBuf := make([]byte, footerLen)
	if _, err := r.ReadAt(footerBuf, size-footerLen); err != nil {
		return nil, base.WrapIOError(err, "sstable: reading footer")
	}
	ft, err := decodeFooter(footerBuf)
	if err != nil {
		return nil, err
	}

	indexData, err := readBlockAt(r, ft.indexHandle)
	if err != nil {
		return nil, err
	}
	indexBlk, err := newBlock(indexData)
	if err != nil {
		return nil, err
	}

	tr := &Reader{r: r, size: size, opts: opts, index: indexBlk}

	if opts.FilterPolicy != nil {
		metaData, err := readBlockAt(r, ft.metaIndexHandle)
		if err != nil {
			return nil, err
		}
		metaBlk, err := newBlock(metaData)
		if err != nil {
			return nil, err
		}
		metaIter := newBlockIter(metaBlk, base.DefaultCompare)
		filterKey := "filter." + opts.FilterPolicy.Name()
		if metaIter.SeekGE([]byte(filterKey)) && string(metaIter.Key()) == filterKey {
			handle, _, ok := decodeBlockHandle(metaIter.Value())
			if !ok {
				return nil, base.NewCorruptionf("sstable: bad filter handle in metaindex")
			}
			filterData, err := readBlockAt(r, handle)
			if err != nil {
				return nil, err
			}
			fr, err := newFilterBlockReader(opts.FilterPolicy, filterData)
			if err != nil {
				return nil, err
			}
			tr.filter = fr
		}
	}

	return tr, nil
}

// readBlockAt reads, checksums, and decompresses the block at handle.
func readBlockAt(r io.ReaderAt, handle blockHandle) ([]byte, error) {
	buf := make([]byte, handle.length+5)
	if _, err := r.ReadAt(buf, int64(handle.offset)); err != nil {
		return nil, base.WrapIOError(err, "sstable: reading block")
	}
	data := buf[:handle.length]
	trailer := buf[handle.length:]
	compression := CompressionType(trailer[0])
	stored := coding.DecodeFixed32(trailer[1:])
	actual := crc.New([]byte{trailer[0]}, data)
	if actual != stored {
		return nil, base.NewCorruptionf("sstable: block checksum mismatch")
	}

	switch compression {
	case NoCompression:
		return data, nil
	case SnappyCompression:
		decoded, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, base.WrapIOError(err, "sstable: snappy decompress")
		}
		return decoded, nil
	default:
		return nil, base.NewCorruptionf("sstable: unknown compression type %d", compression)
	}
}

// Get finds the one data block whose index key is the first >= target and
// returns that block's first entry with key >= target, consulting the
// filter block first when one is present to short-circuit data blocks
// that cannot contain target. found is false when the index has no such
// block, when the filter rules target out, or when that block holds no
// entry >= target; later blocks are not searched, so found=false does not
// mean that no key >= target exists in the table. The caller must still
// compare the returned key, since it need not equal target (mirroring
// leveldb's Table::InternalGet, which leaves the exact-match decision to
// the caller's saver function).
func (r *Reader) Get(target []byte) (key, value []byte, found bool, err error) {
	indexIter := newBlockIter(r.index, r.opts.Comparer)
	if !indexIter.SeekGE(target) {
		return nil, nil, false, nil
	}
	handle, _, ok := decodeBlockHandle(indexIter.Value())
	if !ok {
		return nil, nil, false, base.NewCorruptionf("sstable: bad index entry")
	}

	if r.filter != nil && !r.filter.keyMayMatch(handle.offset, target) {
		return nil, nil, false, nil
	}

	data, err := readBlockAt(r.r, handle)
	if err != nil {
		return nil, nil, false, err
	}
	blk, err := newBlock(data)
	if err != nil {
		return nil, nil, false, err
	}
	dataIter := newBlockIter(blk, r.opts.Comparer)
	if !dataIter.SeekGE(target) {
		return nil, nil, false, nil
	}
	return dataIter.Key(), dataIter.Value(), true, nil
}

// Iterator walks a table's entries in key order across data-block
// boundaries.
type Iterator struct {
	r         *Reader
	indexIter *blockIter
	dataIter  *blockIter
	err       error
}

// NewIterator returns an Iterator positioned before the table's first
// entry; call First or SeekGE to position it.
func (r *Reader) NewIterator() *Iterator {
	return &Iterator{r: r, indexIter: newBlockIter(r.index, r.opts.Comparer)}
}

func (it *Iterator) loadDataBlock() bool {
	handle, _, ok := decodeBlockHandle(it.indexIter.Value())
	if !ok {
		it.err = base.NewCorruptionf("sstable: bad index entry")
		return false
	}
	data, err := readBlockAt(it.r.r, handle)
	if err != nil {
		it.err = err
		return false
	}
	blk, err := newBlock(data)
	if err != nil {
		it.err = err
		return false
	}
	it.dataIter = newBlockIter(blk, it.r.opts.Comparer)
	return true
}

// First positions the iterator at the table's first entry.
func (it *Iterator) First() bool {
	if it.err != nil {
		return false
	}
	if !it.indexIter.First() {
		return false
	}
	if !it.loadDataBlock() {
		return false
	}
	return it.dataIter.First()
}

// SeekGE positions the iterator at the first entry with key >= target.
func (it *Iterator) SeekGE(target []byte) bool {
	if it.err != nil {
		return false
	}
	if !it.indexIter.SeekGE(target) {
		return false
	}
	if !it.loadDataBlock() {
		return false
	}
	if it.dataIter.SeekGE(target) {
		return true
	}
	if err := it.dataIter.Error(); err != nil {
		it.err = err
		return false
	}
	// target sorts after every key in this block but not after its index
	// key, so the answer is the first entry of the following block.
	return it.Next()
}

// Next advances to the following entry, crossing into the next data
// block when the current one is exhausted. Once a block fails to decode,
// the failure is sticky: Next keeps returning false rather than skipping
// past the bad block into a later, healthy one.
func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	if it.dataIter != nil {
		if it.dataIter.Next() {
			return true
		}
		if err := it.dataIter.Error(); err != nil {
			it.err = err
			return false
		}
	}
	if !it.indexIter.Next() {
		return false
	}
	if !it.loadDataBlock() {
		return false
	}
	return it.dataIter.First()
}

// Last positions the iterator at the table's last entry.
func (it *Iterator) Last() bool {
	if it.err != nil {
		return false
	}
	if !it.indexIter.SeekToLast() {
		return false
	}
	if !it.loadDataBlock() {
		return false
	}
	return it.dataIter.SeekToLast()
}

// Prev moves to the entry preceding the current one, crossing into the
// previous data block when the current one is exhausted. Sticky on
// decode failure for the same reason Next is.
func (it *Iterator) Prev() bool {
	if it.err != nil {
		return false
	}
	if it.dataIter != nil {
		if it.dataIter.Prev() {
			return true
		}
		if err := it.dataIter.Error(); err != nil {
			it.err = err
			return false
		}
	}
	if !it.indexIter.Prev() {
		return false
	}
	if !it.loadDataBlock() {
		return false
	}
	return it.dataIter.SeekToLast()
}

// Valid reports whether the iterator is positioned at an entry. It is
// sticky on error: once a block fails to decode, Valid returns false
// permanently, even if a later index entry points at an uncorrupted
// block.
func (it *Iterator) Valid() bool {
	return it.err == nil && it.dataIter != nil && it.dataIter.Valid()
}

// Key returns the current entry's key.
func (it *Iterator) Key() []byte { return it.dataIter.Key() }

// Value returns the current entry's value.
func (it *Iterator) Value() []byte { return it.dataIter.Value() }

// Error returns the first error encountered during iteration, if any.
func (it *Iterator) Error() error {
	if it.err != nil {
		return it.err
	}
	if it.dataIter != nil {
		return it.dataIter.Error()
	}
	return nil
}
