// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package crc computes CRC32C (Castagnoli) checksums with the masking
// transform leveldb applies before storing a checksum on disk, so that
// running the checksum of a checksum does not produce zero on a stream of
// zero bytes.
package crc

import "hash/crc32"

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// mask/unmask constants: rotate the raw crc right 15 bits and add a
// constant, matching leveldb's util/crc32c.h Mask/Unmask.
const maskDelta = 0xa282ead8

// Value returns the masked CRC32C of b.
func Value(b []byte) uint32 {
	return Mask(crc32.Checksum(b, castagnoli))
}

// Extend takes crc, the masked CRC32C of some data (as returned by Value),
// and returns the masked CRC32C of that data followed by the bytes b.
func Extend(crc uint32, b []byte) uint32 {
	return Mask(crc32.Update(Unmask(crc), castagnoli, b))
}

// New returns the masked CRC32C of the concatenation of all the given byte
// slices; a small convenience for the common "type byte then payload" case.
func New(parts ...[]byte) uint32 {
	var raw uint32
	for _, p := range parts {
		raw = crc32.Update(raw, castagnoli, p)
	}
	return Mask(raw)
}

// Mask applies leveldb's crc masking transform: rotate right by 15 bits and
// add a magic constant. This makes it hard for random data blocks to
// accidentally produce well-formed checksummed records.
func Mask(crc uint32) uint32 {
	return ((crc >> 15) | (crc << 17)) + maskDelta
}

// Unmask reverses Mask.
func Unmask(masked uint32) uint32 {
	rot := masked - maskDelta
	return (rot >> 17) | (rot << 15)
}
