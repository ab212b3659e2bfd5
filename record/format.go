// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package record implements the log format used for the write-ahead log:
// a file is a sequence of 32KiB blocks, each block a sequence of records,
// each record a 7-byte header (masked CRC32C, length, type) followed by
// its payload. A logical record too large to fit in the remainder of a
// block is split across FIRST/MIDDLE/LAST fragments.
package record

// blockSize is the size of each block a Writer pads records into.
const blockSize = 32768

// headerSize is the size of a physical record's header: a 4-byte masked
// CRC32C, a 2-byte little-endian length, and a 1-byte type.
const headerSize = 7

// recordType identifies how a physical record relates to the logical
// record it is part of.
type recordType byte

const (
	// zeroType is reserved for preallocated file regions; a physical
	// record header of all zero bytes is treated as padding, not data.
	zeroType recordType = 0
	// fullType records contain an entire logical record.
	fullType recordType = 1
	// firstType marks the first fragment of a logical record split across
	// blocks.
	firstType recordType = 2
	// middleType marks an interior fragment.
	middleType recordType = 3
	// lastType marks the final fragment.
	lastType recordType = 4
)

// internal pseudo-types returned by the reader's low-level record scan;
// never written to disk.
const (
	badRecordType recordType = 100
	eofType       recordType = 101
)
