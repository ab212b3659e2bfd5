// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package batch implements the write-batch wire format shared by the
// write-ahead log and the write path: a sequence number, a record count,
// and a run of Put/Delete records, all applied to a memtable atomically
// and under a single sequence-number range.
package batch

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/thydamon/leveldb/internal/base"
	"github.com/thydamon/leveldb/internal/coding"
)

// HeaderLen is the fixed-size prefix of a batch: an 8-byte little-endian
// sequence number followed by a 4-byte little-endian record count.
const HeaderLen = 12

const (
	seqOffset   = 0
	countOffset = 8
)

// ErrInvalidBatch is returned when a batch's encoded contents cannot be
// parsed: too short, an unknown record tag, or a record whose count
// disagrees with the header.
var ErrInvalidBatch = base.NewCorruptionf("batch: invalid batch")

// Batch accumulates a run of Put/Delete records to be applied atomically.
// The zero value is not ready for use; call New.
type Batch struct {
	data []byte
}

// New returns an empty Batch with its header initialized to sequence
// number 0 and a count of 0.
func New() *Batch {
	b := &Batch{data: make([]byte, HeaderLen)}
	return b
}

// Reset clears b back to an empty batch, reusing its backing storage.
func (b *Batch) Reset() {
	b.data = b.data[:HeaderLen]
	for i := range b.data {
		b.data[i] = 0
	}
}

// Empty reports whether b holds no records.
func (b *Batch) Empty() bool {
	return b.Count() == 0
}

// Count returns the number of records in the batch.
func (b *Batch) Count() uint32 {
	return coding.DecodeFixed32(b.data[countOffset:])
}

// SetCount overwrites the record count stored in the batch header. Callers
// normally never need this directly; Put and Delete maintain it.
func (b *Batch) SetCount(n uint32) {
	binary.LittleEndian.PutUint32(b.data[countOffset:countOffset+4], n)
}

// SeqNum returns the sequence number assigned to the first record in the
// batch; subsequent records are numbered consecutively from it.
func (b *Batch) SeqNum() base.SeqNum {
	return base.SeqNum(coding.DecodeFixed64(b.data[seqOffset:]))
}

// SetSeqNum overwrites the batch's base sequence number.
func (b *Batch) SetSeqNum(seq base.SeqNum) {
	binary.LittleEndian.PutUint64(b.data[seqOffset:seqOffset+8], uint64(seq))
}

// Len returns the size in bytes of the batch's encoded representation.
func (b *Batch) Len() int {
	return len(b.data)
}

// Data returns the batch's encoded representation. The returned slice
// aliases the batch's internal storage and must not be retained across a
// subsequent mutating call.
func (b *Batch) Data() []byte {
	return b.data
}

// Put appends a record setting key to value.
func (b *Batch) Put(key, value []byte) {
	b.data = append(b.data, byte(base.KindValue))
	b.data = coding.PutLengthPrefixedBytes(b.data, key)
	b.data = coding.PutLengthPrefixedBytes(b.data, value)
	b.SetCount(b.Count() + 1)
}

// Delete appends a record removing key.
func (b *Batch) Delete(key []byte) {
	b.data = append(b.data, byte(base.KindDeletion))
	b.data = coding.PutLengthPrefixedBytes(b.data, key)
	b.SetCount(b.Count() + 1)
}

// Append concatenates the records of src onto b, adjusting b's count. src's
// own sequence number and header are ignored; only its records are copied.
func (b *Batch) Append(src *Batch) {
	b.SetCount(b.Count() + src.Count())
	b.data = append(b.data, src.data[HeaderLen:]...)
}

// SetContents replaces b's entire encoded representation, header included.
// contents must be at least HeaderLen bytes. SetContents takes its own
// copy, so the caller keeps ownership of contents.
func SetContents(b *Batch, contents []byte) error {
	if len(contents) < HeaderLen {
		return ErrInvalidBatch
	}
	b.data = append(b.data[:0], contents...)
	return nil
}

// Handler receives the decoded records of a batch during Iterate.
type Handler interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Iterate decodes b's records in order, invoking the corresponding Handler
// method for each. It returns ErrInvalidBatch if the encoding is malformed
// or the number of records decoded does not match the header's count.
func (b *Batch) Iterate(h Handler) error {
	if len(b.data) < HeaderLen {
		return ErrInvalidBatch
	}
	data := b.data[HeaderLen:]
	var found uint32
	for len(data) > 0 {
		found++
		kind := base.ValueKind(data[0])
		data = data[1:]
		switch kind {
		case base.KindValue:
			key, rest, ok := coding.GetLengthPrefixedBytes(data)
			if !ok {
				return errors.Wrapf(ErrInvalidBatch, "bad put record")
			}
			value, rest, ok := coding.GetLengthPrefixedBytes(rest)
			if !ok {
				return errors.Wrapf(ErrInvalidBatch, "bad put record")
			}
			if err := h.Put(key, value); err != nil {
				return err
			}
			data = rest
		case base.KindDeletion:
			key, rest, ok := coding.GetLengthPrefixedBytes(data)
			if !ok {
				return errors.Wrapf(ErrInvalidBatch, "bad delete record")
			}
			if err := h.Delete(key); err != nil {
				return err
			}
			data = rest
		default:
			return errors.Wrapf(ErrInvalidBatch, "unknown record tag %d", kind)
		}
	}
	if found != b.Count() {
		return errors.Wrapf(ErrInvalidBatch, "record count mismatch: header says %d, found %d", b.Count(), found)
	}
	return nil
}

// seqAssigner is a Handler that applies each record to a target under
// consecutively increasing sequence numbers, starting from a batch's base
// SeqNum. It is the Go analogue of leveldb's MemTableInserter.
type seqAssigner struct {
	seq    base.SeqNum
	target interface {
		Set(seq base.SeqNum, kind base.ValueKind, key, value []byte)
	}
}

func (a *seqAssigner) Put(key, value []byte) error {
	a.target.Set(a.seq, base.KindValue, key, value)
	a.seq++
	return nil
}

func (a *seqAssigner) Delete(key []byte) error {
	a.target.Set(a.seq, base.KindDeletion, key, nil)
	a.seq++
	return nil
}

// Target is anything a batch's records can be replayed into, keyed by an
// explicit per-record sequence number; a memtable implements it.
type Target interface {
	Set(seq base.SeqNum, kind base.ValueKind, key, value []byte)
}

// InsertInto replays b's records into target, assigning each one the next
// sequence number starting from b's base SeqNum, mirroring leveldb's
// WriteBatchInternal::InsertInto.
func InsertInto(b *Batch, target Target) error {
	return b.Iterate(&seqAssigner{seq: b.SeqNum(), target: target})
}
