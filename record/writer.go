// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package record

import (
	"encoding/binary"
	"io"

	"github.com/thydamon/leveldb/internal/crc"
)

// Writable is the minimal file interface a Writer needs: sequential
// appends plus the ability to force them to stable storage. A
// storage.WritableFile satisfies it.
type Writable interface {
	io.Writer
	Sync() error
}

// Writer appends records to a Writable, framing them into the block
// format described in the record package doc comment.
type Writer struct {
	w Writable

	// blockOffset is the number of bytes already written into the current
	// blockSize-sized block.
	blockOffset int

	header [headerSize]byte
	err    error
}

// NewWriter returns a Writer appending to w. w is assumed to be
// positioned at a block boundary; opening a log for append at a
// non-boundary offset is not supported.
func NewWriter(w Writable) *Writer {
	return &Writer{w: w}
}

// AddRecord appends data as a new logical record, splitting it into
// FIRST/MIDDLE/LAST fragments if it does not fit in the remainder of the
// current block. An empty data still produces one zero-length FULL record.
func (w *Writer) AddRecord(data []byte) error {
	if w.err != nil {
		return w.err
	}

	begin := true
	for {
		leftover := blockSize - w.blockOffset
		if leftover < headerSize {
			if leftover > 0 {
				if err := w.writeZeroes(leftover); err != nil {
					w.err = err
					return err
				}
			}
			w.blockOffset = 0
		}

		avail := blockSize - w.blockOffset - headerSize
		fragmentLen := len(data)
		if fragmentLen > avail {
			fragmentLen = avail
		}
		end := fragmentLen == len(data)

		var typ recordType
		switch {
		case begin && end:
			typ = fullType
		case begin:
			typ = firstType
		case end:
			typ = lastType
		default:
			typ = middleType
		}

		if err := w.emitPhysicalRecord(typ, data[:fragmentLen]); err != nil {
			w.err = err
			return err
		}
		data = data[fragmentLen:]
		begin = false
		if len(data) == 0 {
			break
		}
	}
	return nil
}

func (w *Writer) emitPhysicalRecord(typ recordType, payload []byte) error {
	binary.LittleEndian.PutUint16(w.header[4:6], uint16(len(payload)))
	w.header[6] = byte(typ)
	checksum := crc.New([]byte{byte(typ)}, payload)
	binary.LittleEndian.PutUint32(w.header[0:4], checksum)

	if _, err := w.w.Write(w.header[:]); err != nil {
		return err
	}
	if _, err := w.w.Write(payload); err != nil {
		return err
	}
	w.blockOffset += headerSize + len(payload)
	return nil
}

var zeroes [headerSize]byte

func (w *Writer) writeZeroes(n int) error {
	for n > 0 {
		k := n
		if k > len(zeroes) {
			k = len(zeroes)
		}
		if _, err := w.w.Write(zeroes[:k]); err != nil {
			return err
		}
		n -= k
	}
	return nil
}

// Sync flushes any buffering the underlying file performs and forces
// written records to stable storage.
func (w *Writer) Sync() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Sync()
}
