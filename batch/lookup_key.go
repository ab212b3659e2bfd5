// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package batch

import (
	"github.com/thydamon/leveldb/internal/base"
	"github.com/thydamon/leveldb/internal/coding"
)

// inlineScratch is the size of LookupKey's stack-friendly backing array,
// chosen (as in leveldb) to cover the common case of short keys without a
// heap allocation. NewLookupKey reserves a 5-byte varint32 length prefix
// plus the 8-byte tag, so user keys of up to 187 bytes stay inline.
const inlineScratch = 200

// LookupKey packages a user key and a sequence number into the three forms
// a memtable lookup needs: the length-prefixed "memtable key" used as the
// skiplist entry, the internal key (user key plus tag) used for
// comparisons, and the bare user key.
//
// Grounded on leveldb's db/dbformat.h LookupKey: an inline buffer avoids
// allocating for the overwhelming majority of keys, falling back to a
// heap buffer only when the encoded form would not fit.
type LookupKey struct {
	inline   [inlineScratch]byte
	buf      []byte // the full backing store: varint32(len) + userKey + tag
	keyStart int    // offset of the internal key (userKey + tag) within buf
}

// NewLookupKey builds a LookupKey for userKey at the given sequence number,
// searching as of the highest kind (KindSeek) so the resulting internal key
// sorts before any real record sharing the same user key and sequence.
func NewLookupKey(userKey []byte, seq base.SeqNum) *LookupKey {
	lk := &LookupKey{}
	internalKeyLen := len(userKey) + base.TagLen
	needed := coding.MaxVarint32Len + internalKeyLen

	var buf []byte
	if needed <= inlineScratch {
		buf = lk.inline[:0]
	} else {
		buf = make([]byte, 0, needed)
	}

	buf = coding.PutVarint32(buf, uint32(internalKeyLen))
	lk.keyStart = len(buf)
	buf = append(buf, userKey...)
	buf = base.AppendInternalKey(buf[:lk.keyStart], base.ParsedInternalKey{
		UserKey: buf[lk.keyStart:],
		SeqNum:  seq,
		Kind:    base.KindSeek,
	})
	lk.buf = buf
	return lk
}

// MemtableKey returns the length-prefixed key as stored in a memtable's
// skiplist: varint32(len(internalKey)) followed by the internal key.
func (lk *LookupKey) MemtableKey() []byte {
	return lk.buf
}

// InternalKey returns the user key plus its trailing sequence/kind tag.
func (lk *LookupKey) InternalKey() base.InternalKey {
	return base.InternalKey(lk.buf[lk.keyStart:])
}

// UserKey returns the bare user key, without its tag.
func (lk *LookupKey) UserKey() []byte {
	return lk.buf[lk.keyStart : len(lk.buf)-base.TagLen]
}
