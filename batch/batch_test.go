// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package batch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thydamon/leveldb/internal/base"
)

type recordingHandler struct {
	puts    [][2]string
	deletes []string
}

func (h *recordingHandler) Put(key, value []byte) error {
	h.puts = append(h.puts, [2]string{string(key), string(value)})
	return nil
}

func (h *recordingHandler) Delete(key []byte) error {
	h.deletes = append(h.deletes, string(key))
	return nil
}

func TestBatchPutDeleteIterate(t *testing.T) {
	b := New()
	b.Put([]byte("key1"), []byte("hello"))
	b.Put([]byte("key2"), []byte("hi"))
	b.Delete([]byte("key1"))
	require.Equal(t, uint32(3), b.Count())

	h := &recordingHandler{}
	require.NoError(t, b.Iterate(h))
	require.Equal(t, [][2]string{{"key1", "hello"}, {"key2", "hi"}}, h.puts)
	require.Equal(t, []string{"key1"}, h.deletes)
}

func TestBatchSeqNumRoundTrip(t *testing.T) {
	b := New()
	b.SetSeqNum(42)
	require.Equal(t, base.SeqNum(42), b.SeqNum())
}

func TestBatchIterateRejectsTruncated(t *testing.T) {
	b := New()
	b.Put([]byte("k"), []byte("v"))
	b.data = b.data[:len(b.data)-1]

	err := b.Iterate(&recordingHandler{})
	require.Error(t, err)
	require.True(t, base.IsCorruption(err))
}

func TestBatchAppend(t *testing.T) {
	a := New()
	a.Put([]byte("a"), []byte("1"))
	b := New()
	b.Put([]byte("b"), []byte("2"))
	b.Delete([]byte("a"))

	a.Append(b)
	require.Equal(t, uint32(3), a.Count())

	h := &recordingHandler{}
	require.NoError(t, a.Iterate(h))
	require.Equal(t, [][2]string{{"a", "1"}, {"b", "2"}}, h.puts)
	require.Equal(t, []string{"a"}, h.deletes)
}

func TestSetContentsRejectsShortInput(t *testing.T) {
	b := New()
	err := SetContents(b, []byte("short"))
	require.Error(t, err)
}

type fakeTarget struct {
	sets []struct {
		seq   base.SeqNum
		kind  base.ValueKind
		key   string
		value string
	}
}

func (f *fakeTarget) Set(seq base.SeqNum, kind base.ValueKind, key, value []byte) {
	f.sets = append(f.sets, struct {
		seq   base.SeqNum
		kind  base.ValueKind
		key   string
		value string
	}{seq, kind, string(key), string(value)})
}

func TestInsertIntoAssignsConsecutiveSeqNums(t *testing.T) {
	b := New()
	b.SetSeqNum(100)
	b.Put([]byte("a"), []byte("1"))
	b.Put([]byte("b"), []byte("2"))
	b.Delete([]byte("a"))

	target := &fakeTarget{}
	require.NoError(t, InsertInto(b, target))
	require.Len(t, target.sets, 3)
	require.Equal(t, base.SeqNum(100), target.sets[0].seq)
	require.Equal(t, base.SeqNum(101), target.sets[1].seq)
	require.Equal(t, base.SeqNum(102), target.sets[2].seq)
	require.Equal(t, base.KindDeletion, target.sets[2].kind)
}

func TestLookupKey(t *testing.T) {
	lk := NewLookupKey([]byte("hello"), 7)
	require.Equal(t, []byte("hello"), lk.UserKey())

	ik := lk.InternalKey()
	parsed, ok := base.ParseInternalKey(ik)
	require.True(t, ok)
	require.Equal(t, []byte("hello"), parsed.UserKey)
	require.Equal(t, base.SeqNum(7), parsed.SeqNum)
	require.Equal(t, base.KindSeek, parsed.Kind)
}

func TestLookupKeyLongKeyFallsBackToHeap(t *testing.T) {
	longKey := make([]byte, 512)
	for i := range longKey {
		longKey[i] = byte(i)
	}
	lk := NewLookupKey(longKey, 1)
	require.Equal(t, longKey, lk.UserKey())
}
