// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package base

import "encoding/binary"

// ValueKind is the type of an internal key's value, encoded in the low 8
// bits of the trailer tag. Do not change these values: they are embedded in
// on-disk data structures.
type ValueKind uint8

const (
	// KindDeletion marks a tombstone.
	KindDeletion ValueKind = 0x0
	// KindValue marks a live value.
	KindValue ValueKind = 0x1

	// KindMax is the largest defined kind.
	KindMax = KindValue

	// KindSeek is the kind to use when constructing a search key: since
	// tags with equal user keys sort by decreasing tag and the kind
	// occupies the low bits, using the highest-numbered kind ensures a
	// search key sorts before any real key with the same user key and
	// sequence number.
	KindSeek = KindValue
)

func (k ValueKind) String() string {
	switch k {
	case KindDeletion:
		return "DEL"
	case KindValue:
		return "SET"
	default:
		return "UNKNOWN"
	}
}

// SeqNum is a 56-bit monotonically increasing sequence number assigned per
// commit.
type SeqNum uint64

// MaxSeqNum is the largest representable sequence number: eight bits are
// reserved at the bottom of the 64-bit tag for the ValueKind.
const MaxSeqNum SeqNum = (1 << 56) - 1

// Tag packs a sequence number and value kind into the 64-bit suffix
// appended to every internal key: tag = (sequence << 8) | kind.
type Tag uint64

// MakeTag builds a Tag from a sequence number and kind.
func MakeTag(seq SeqNum, kind ValueKind) Tag {
	return Tag(uint64(seq)<<8 | uint64(kind))
}

// SeqNum returns the sequence number component of the tag.
func (t Tag) SeqNum() SeqNum { return SeqNum(t >> 8) }

// Kind returns the value kind component of the tag.
func (t Tag) Kind() ValueKind { return ValueKind(t & 0xff) }

// TagLen is the encoded width of a Tag: 8 bytes, little-endian.
const TagLen = 8

// ParsedInternalKey is an internal key split into its user key, sequence
// number, and kind.
type ParsedInternalKey struct {
	UserKey []byte
	SeqNum  SeqNum
	Kind    ValueKind
}

// InternalKey is user_key ++ tag, exactly as it is laid out on disk and in
// the memtable. Every valid internal key is at least TagLen bytes.
type InternalKey []byte

// MakeInternalKey allocates and returns an encoded internal key.
func MakeInternalKey(userKey []byte, seq SeqNum, kind ValueKind) InternalKey {
	buf := make([]byte, len(userKey)+TagLen)
	AppendInternalKey(buf[:0], ParsedInternalKey{userKey, seq, kind})
	return buf
}

// AppendInternalKey appends the encoding of p to dst and returns the
// extended slice. dst must have enough spare capacity, or a new backing
// array is allocated as usual for append.
func AppendInternalKey(dst []byte, p ParsedInternalKey) []byte {
	dst = append(dst, p.UserKey...)
	var tagBuf [TagLen]byte
	binary.LittleEndian.PutUint64(tagBuf[:], uint64(MakeTag(p.SeqNum, p.Kind)))
	return append(dst, tagBuf[:]...)
}

// ParseInternalKey validates and decodes an encoded internal key. It
// mirrors leveldb's ParseInternalKey (db/dbformat.h): the key must be at
// least TagLen bytes and the low byte of the tag must be a defined kind.
func ParseInternalKey(ik []byte) (ParsedInternalKey, bool) {
	n := len(ik)
	if n < TagLen {
		return ParsedInternalKey{}, false
	}
	tag := Tag(binary.LittleEndian.Uint64(ik[n-TagLen:]))
	kind := tag.Kind()
	if kind > KindMax {
		return ParsedInternalKey{}, false
	}
	return ParsedInternalKey{
		UserKey: ik[:n-TagLen],
		SeqNum:  tag.SeqNum(),
		Kind:    kind,
	}, true
}

// ExtractUserKey drops the trailing tag from an internal key. The caller
// must ensure ik is at least TagLen bytes; this is a debug-time invariant
// in leveldb (ExtractUserKey), not a runtime check here since callers that
// hold internal keys have already validated them via ParseInternalKey.
func ExtractUserKey(ik []byte) []byte {
	return ik[:len(ik)-TagLen]
}

// InternalCompare orders two internal keys: first by user key under userCmp,
// then, for equal user keys, by decreasing tag so that newer sequence
// numbers (and among those, higher kinds) sort first.
func InternalCompare(userCmp Compare, a, b InternalKey) int {
	au, av := ParseInternalKey(a)
	bu, bv := ParseInternalKey(b)
	_ = av
	_ = bv
	if c := userCmp(au.UserKey, bu.UserKey); c != 0 {
		return c
	}
	aTag := MakeTag(au.SeqNum, au.Kind)
	bTag := MakeTag(bu.SeqNum, bu.Kind)
	switch {
	case aTag > bTag:
		return -1
	case aTag < bTag:
		return 1
	default:
		return 0
	}
}

// InternalSeparator lifts a user-key Separator to internal keys: it applies
// sep to the user-key portions and, if that strictly shortened the key,
// appends a tag of (MaxSeqNum, KindSeek) so the result remains a valid
// internal key. Otherwise it returns a unchanged.
func InternalSeparator(userCmp Compare, sep Separator, dst []byte, a, b InternalKey) InternalKey {
	au, _ := ParseInternalKey(a)
	bu, _ := ParseInternalKey(b)
	start := sep(dst[:0], au.UserKey, bu.UserKey)
	if len(start) < len(au.UserKey) && userCmp(au.UserKey, start) < 0 {
		var tagBuf [TagLen]byte
		binary.LittleEndian.PutUint64(tagBuf[:], uint64(MakeTag(MaxSeqNum, KindSeek)))
		return append(start, tagBuf[:]...)
	}
	return InternalKey(a)
}

// InternalSuccessor lifts a user-key Successor to internal keys, mirroring
// InternalSeparator.
func InternalSuccessor(userCmp Compare, succ Successor, dst []byte, a InternalKey) InternalKey {
	au, _ := ParseInternalKey(a)
	start := succ(dst[:0], au.UserKey)
	if len(start) < len(au.UserKey) && userCmp(au.UserKey, start) < 0 {
		var tagBuf [TagLen]byte
		binary.LittleEndian.PutUint64(tagBuf[:], uint64(MakeTag(MaxSeqNum, KindSeek)))
		return append(start, tagBuf[:]...)
	}
	return InternalKey(a)
}
