// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tablecache

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thydamon/leveldb/sstable"
	"github.com/thydamon/leveldb/storage"
)

func writeTestTable(t *testing.T, dir string, fileNum uint64, ext string, n int) int64 {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("%06d.%s", fileNum, ext))
	f, err := storage.Default.Create(path)
	require.NoError(t, err)

	w := sstable.NewWriter(f, sstable.WriterOptions{})
	for i := 0; i < n; i++ {
		require.NoError(t, w.Add([]byte(fmt.Sprintf("key-%04d", i)), []byte(fmt.Sprintf("value-%d", i))))
	}
	require.NoError(t, w.Finish())
	size := int64(w.FileSize())
	require.NoError(t, f.Close())
	return size
}

func TestGetOpensAndCachesTable(t *testing.T) {
	dir := t.TempDir()
	size := writeTestTable(t, dir, 1, "ldb", 50)

	tc := New(storage.Default, dir, 10, Options{})
	key, value, found, err := tc.Get(1, size, []byte("key-0010"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "key-0010", string(key))
	require.Equal(t, "value-10", string(value))

	// A second Get should hit the cache rather than reopening the file.
	_, _, found, err = tc.Get(1, size, []byte("key-0020"))
	require.NoError(t, err)
	require.True(t, found)
}

func TestGetFallsBackToSstExtension(t *testing.T) {
	dir := t.TempDir()
	size := writeTestTable(t, dir, 2, "sst", 10)

	tc := New(storage.Default, dir, 10, Options{})
	_, _, found, err := tc.Get(2, size, []byte("key-0005"))
	require.NoError(t, err)
	require.True(t, found)
}

func TestGetMissingFileReturnsError(t *testing.T) {
	dir := t.TempDir()
	tc := New(storage.Default, dir, 10, Options{})
	_, _, _, err := tc.Get(99, 100, []byte("key"))
	require.Error(t, err)
}

func TestNewIteratorScansTableAndClosesCleanly(t *testing.T) {
	dir := t.TempDir()
	size := writeTestTable(t, dir, 3, "ldb", 20)

	tc := New(storage.Default, dir, 10, Options{})
	it, err := tc.NewIterator(3, size)
	require.NoError(t, err)

	count := 0
	for ok := it.First(); ok; ok = it.Next() {
		count++
	}
	require.NoError(t, it.Error())
	require.Equal(t, 20, count)
	it.Close()
}

func TestEvictForcesReopenOnNextGet(t *testing.T) {
	dir := t.TempDir()
	size := writeTestTable(t, dir, 4, "ldb", 5)

	tc := New(storage.Default, dir, 10, Options{})
	_, _, found, err := tc.Get(4, size, []byte("key-0000"))
	require.NoError(t, err)
	require.True(t, found)

	tc.Evict(4)

	_, _, found, err = tc.Get(4, size, []byte("key-0000"))
	require.NoError(t, err)
	require.True(t, found)
}
