// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sstable

import (
	"github.com/thydamon/leveldb/internal/base"
	"github.com/thydamon/leveldb/internal/coding"
)

// magic identifies a valid table footer; it is the first 64 bits of
// sha1("http://code.google.com/p/leveldb/") -- leveldb's own choice of
// magic constant, kept unchanged so files this package writes are
// byte-compatible with the original format.
const magic = uint64(0xdb4775248b80fb57)

// footerLen is the fixed size of the trailer written at the very end of
// every table: two block handles, zero-padded together to twice the
// maximum encoded handle size (40 bytes), followed by the 8-byte magic
// number, 48 bytes in all.
const footerLen = 2*maxHandleLen + 8

// maxHandleLen is the largest a BlockHandle can encode to: two
// varint64s.
const maxHandleLen = 2 * coding.MaxVarint64Len

// blockHandle points to a block within the table file.
type blockHandle struct {
	offset uint64
	length uint64
}

func (h blockHandle) encode(dst []byte) []byte {
	dst = coding.PutVarint64(dst, h.offset)
	dst = coding.PutVarint64(dst, h.length)
	return dst
}

func decodeBlockHandle(b []byte) (blockHandle, int, bool) {
	offset, n1, ok := coding.GetVarint64(b)
	if !ok {
		return blockHandle{}, 0, false
	}
	length, n2, ok := coding.GetVarint64(b[n1:])
	if !ok {
		return blockHandle{}, 0, false
	}
	return blockHandle{offset: offset, length: length}, n1 + n2, true
}

// footer is the fixed-format trailer of every table file.
type footer struct {
	metaIndexHandle blockHandle
	indexHandle     blockHandle
}

func (f footer) encode() []byte {
	buf := make([]byte, 0, footerLen)
	start := len(buf)
	buf = f.metaIndexHandle.encode(buf)
	buf = f.indexHandle.encode(buf)
	// Pad to the fixed handle region size so the magic number always
	// lands at the same fixed offset from the end of the file.
	buf = append(buf, make([]byte, 2*maxHandleLen-(len(buf)-start))...)
	buf = coding.PutFixed64(buf, magic)
	return buf
}

func decodeFooter(b []byte) (footer, error) {
	if len(b) != footerLen {
		return footer{}, base.NewCorruptionf("sstable: bad footer length")
	}
	if coding.DecodeFixed64(b[footerLen-8:]) != magic {
		return footer{}, base.NewCorruptionf("sstable: not an sstable (bad magic number)")
	}
	metaIndexHandle, n1, ok := decodeBlockHandle(b)
	if !ok {
		return footer{}, base.NewCorruptionf("sstable: bad metaindex handle")
	}
	indexHandle, _, ok := decodeBlockHandle(b[n1:])
	if !ok {
		return footer{}, base.NewCorruptionf("sstable: bad index handle")
	}
	return footer{metaIndexHandle: metaIndexHandle, indexHandle: indexHandle}, nil
}
