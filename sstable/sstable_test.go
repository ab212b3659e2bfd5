// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sstable

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thydamon/leveldb/filterpolicy"
	"github.com/thydamon/leveldb/internal/base"
)

type readerAtBytes []byte

func (b readerAtBytes) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || int(off) > len(b) {
		return 0, fmt.Errorf("out of range")
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, fmt.Errorf("short read")
	}
	return n, nil
}

func buildTable(t *testing.T, opts WriterOptions, entries [][2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf, opts)
	for _, e := range entries {
		require.NoError(t, w.Add([]byte(e[0]), []byte(e[1])))
	}
	require.NoError(t, w.Finish())
	return buf.Bytes()
}

func testEntries(n int) [][2]string {
	var out [][2]string
	for i := 0; i < n; i++ {
		out = append(out, [2]string{fmt.Sprintf("key-%04d", i), fmt.Sprintf("value-%d", i)})
	}
	return out
}

func TestWriteReadNoCompression(t *testing.T) {
	entries := testEntries(500)
	data := buildTable(t, WriterOptions{BlockSize: 512}, entries)

	r, err := NewReader(readerAtBytes(data), int64(len(data)), ReaderOptions{})
	require.NoError(t, err)

	for _, e := range entries {
		key, value, found, err := r.Get([]byte(e[0]))
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, e[0], string(key))
		require.Equal(t, e[1], string(value))
	}
}

func TestWriteReadWithSnappy(t *testing.T) {
	entries := testEntries(500)
	data := buildTable(t, WriterOptions{BlockSize: 512, Compression: SnappyCompression}, entries)

	r, err := NewReader(readerAtBytes(data), int64(len(data)), ReaderOptions{})
	require.NoError(t, err)

	key, value, found, err := r.Get([]byte("key-0250"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "key-0250", string(key))
	require.Equal(t, "value-250", string(value))
}

func TestGetMissingKeyReturnsSuccessor(t *testing.T) {
	entries := testEntries(10)
	data := buildTable(t, WriterOptions{BlockSize: 4096}, entries)

	r, err := NewReader(readerAtBytes(data), int64(len(data)), ReaderOptions{})
	require.NoError(t, err)

	// "key-00025" sorts between key-0002 and key-0003; Get returns the
	// first entry >= the target, not an exact match.
	key, _, found, err := r.Get([]byte("key-00025"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "key-0003", string(key))
}

func TestGetPastEndOfTable(t *testing.T) {
	entries := testEntries(10)
	data := buildTable(t, WriterOptions{BlockSize: 4096}, entries)

	r, err := NewReader(readerAtBytes(data), int64(len(data)), ReaderOptions{})
	require.NoError(t, err)

	_, _, found, err := r.Get([]byte("zzz"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestIteratorScansInOrder(t *testing.T) {
	entries := testEntries(200)
	data := buildTable(t, WriterOptions{BlockSize: 1024}, entries)

	r, err := NewReader(readerAtBytes(data), int64(len(data)), ReaderOptions{})
	require.NoError(t, err)

	it := r.NewIterator()
	var got [][2]string
	for ok := it.First(); ok; ok = it.Next() {
		got = append(got, [2]string{string(it.Key()), string(it.Value())})
	}
	require.NoError(t, it.Error())
	require.Equal(t, entries, got)
}

func TestIteratorScansInReverseOrder(t *testing.T) {
	entries := testEntries(200)
	data := buildTable(t, WriterOptions{BlockSize: 1024}, entries)

	r, err := NewReader(readerAtBytes(data), int64(len(data)), ReaderOptions{})
	require.NoError(t, err)

	it := r.NewIterator()
	var got [][2]string
	for ok := it.Last(); ok; ok = it.Prev() {
		got = append(got, [2]string{string(it.Key()), string(it.Value())})
	}
	require.NoError(t, it.Error())

	want := make([][2]string, len(entries))
	for i, e := range entries {
		want[len(entries)-1-i] = e
	}
	require.Equal(t, want, got)
}

func TestIteratorReverseAfterForwardSeek(t *testing.T) {
	entries := testEntries(50)
	data := buildTable(t, WriterOptions{BlockSize: 256}, entries)

	r, err := NewReader(readerAtBytes(data), int64(len(data)), ReaderOptions{})
	require.NoError(t, err)

	it := r.NewIterator()
	require.True(t, it.SeekGE([]byte("key-0030")))
	require.Equal(t, "key-0030", string(it.Key()))

	require.True(t, it.Prev())
	require.Equal(t, "key-0029", string(it.Key()))
	require.True(t, it.Prev())
	require.Equal(t, "key-0028", string(it.Key()))
}

func TestBlockIterSeekToLastAndPrevAcrossRestarts(t *testing.T) {
	bw := newBlockWriter(3)
	for i := 0; i < 20; i++ {
		bw.add([]byte(fmt.Sprintf("k%03d", i)), []byte(fmt.Sprintf("v%d", i)))
	}
	blk, err := newBlock(bw.finish())
	require.NoError(t, err)

	it := newBlockIter(blk, base.DefaultCompare)
	require.True(t, it.SeekToLast())
	require.Equal(t, "k019", string(it.Key()))

	var got []string
	for ok := true; ok; ok = it.Prev() {
		got = append(got, string(it.Key()))
	}
	require.Len(t, got, 20)
	require.Equal(t, "k019", got[0])
	require.Equal(t, "k000", got[len(got)-1])
}

func TestFilterAdmitsEveryPresentKey(t *testing.T) {
	policy := filterpolicy.NewBloomPolicy(10)
	entries := testEntries(300)
	data := buildTable(t, WriterOptions{BlockSize: 512, FilterPolicy: policy}, entries)

	r, err := NewReader(readerAtBytes(data), int64(len(data)), ReaderOptions{FilterPolicy: policy})
	require.NoError(t, err)
	require.NotNil(t, r.filter)

	for _, e := range entries {
		_, value, found, err := r.Get([]byte(e[0]))
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, e[1], string(value))
	}
}

func TestIteratorStopsPermanentlyOnCorruptedBlock(t *testing.T) {
	entries := testEntries(60)
	data := buildTable(t, WriterOptions{BlockSize: 200}, entries)

	footerBuf := make([]byte, footerLen)
	_, err := readerAtBytes(data).ReadAt(footerBuf, int64(len(data))-footerLen)
	require.NoError(t, err)
	ft, err := decodeFooter(footerBuf)
	require.NoError(t, err)

	indexData, err := readBlockAt(readerAtBytes(data), ft.indexHandle)
	require.NoError(t, err)
	indexBlk, err := newBlock(indexData)
	require.NoError(t, err)

	indexIter := newBlockIter(indexBlk, base.DefaultCompare)
	require.True(t, indexIter.First())
	require.True(t, indexIter.Next()) // second data block's index entry
	handle, _, ok := decodeBlockHandle(indexIter.Value())
	require.True(t, ok)

	// Flip a byte inside the second data block's payload so its checksum
	// no longer matches, without touching the index or footer.
	corrupted := append([]byte(nil), data...)
	corrupted[int(handle.offset)+2] ^= 0xff

	r, err := NewReader(readerAtBytes(corrupted), int64(len(corrupted)), ReaderOptions{})
	require.NoError(t, err)

	it := r.NewIterator()
	require.True(t, it.First())
	n := 1
	for it.Next() {
		n++
	}
	require.Error(t, it.Error())
	require.False(t, it.Valid())
	require.Less(t, n, len(entries), "iteration must stop at the corrupted block, not skip past it")

	// Once stuck, every operation keeps failing rather than recovering by
	// skipping ahead to a later, healthy block.
	require.False(t, it.Next())
	require.False(t, it.SeekGE([]byte("key-0059")))
	require.False(t, it.Valid())
}

func TestAbandonDoesNotPanic(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WriterOptions{})
	require.NoError(t, w.Add([]byte("a"), []byte("1")))
	w.Abandon()

	err := w.Finish()
	require.Error(t, err)
}
