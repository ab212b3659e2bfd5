// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package coding implements the fixed-width and varint byte encodings used
// throughout the core: canonical little-endian fixed32/fixed64, 7-bit-group
// varint32/varint64, and length-prefixed byte strings.
package coding

import "encoding/binary"

// PutFixed32 appends the little-endian encoding of v to dst.
func PutFixed32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

// PutFixed64 appends the little-endian encoding of v to dst.
func PutFixed64(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

// DecodeFixed32 decodes a little-endian uint32 from the front of b. The
// caller must ensure len(b) >= 4.
func DecodeFixed32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// DecodeFixed64 decodes a little-endian uint64 from the front of b. The
// caller must ensure len(b) >= 8.
func DecodeFixed64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

// MaxVarint32Len is the longest a varint32 encoding can be.
const MaxVarint32Len = 5

// MaxVarint64Len is the longest a varint64 encoding can be.
const MaxVarint64Len = 10

// PutVarint32 appends the varint encoding of v (1-5 bytes) to dst.
func PutVarint32(dst []byte, v uint32) []byte {
	return PutVarint64(dst, uint64(v))
}

// PutVarint64 appends the varint encoding of v (1-10 bytes) to dst.
func PutVarint64(dst []byte, v uint64) []byte {
	var buf [MaxVarint64Len]byte
	n := binary.PutUvarint(buf[:], v)
	return append(dst, buf[:n]...)
}

// GetVarint32 decodes a varint32 from the front of b, returning the decoded
// value and the number of bytes consumed, or ok=false if b holds no
// complete, in-range varint (an unterminated varint, or one that would
// overflow 32 bits, both count as failure without advancing).
func GetVarint32(b []byte) (v uint32, n int, ok bool) {
	u, m := binary.Uvarint(b)
	if m <= 0 || u > 0xffffffff {
		return 0, 0, false
	}
	return uint32(u), m, true
}

// GetVarint64 decodes a varint64 from the front of b.
func GetVarint64(b []byte) (v uint64, n int, ok bool) {
	u, m := binary.Uvarint(b)
	if m <= 0 {
		return 0, 0, false
	}
	return u, m, true
}

// PutLengthPrefixedBytes appends [varint32 length][bytes] to dst.
func PutLengthPrefixedBytes(dst []byte, s []byte) []byte {
	dst = PutVarint32(dst, uint32(len(s)))
	return append(dst, s...)
}

// GetLengthPrefixedBytes decodes a [varint32 length][bytes] slice-string
// from the front of b, returning the decoded bytes (a sub-slice of b, not a
// copy) and the remainder of b after it, or ok=false if the length prefix is
// malformed or b is too short to hold length bytes of payload.
func GetLengthPrefixedBytes(b []byte) (s []byte, rest []byte, ok bool) {
	length, n, ok := GetVarint32(b)
	if !ok {
		return nil, nil, false
	}
	b = b[n:]
	if uint64(length) > uint64(len(b)) {
		return nil, nil, false
	}
	return b[:length], b[length:], true
}
