// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package tablecache maps sstable file numbers to open (file, Reader)
// pairs, backed by internal/cache so that a bounded number of file
// descriptors and parsed index/filter blocks stay resident regardless of
// how many sstables a database accumulates.
//
// Grounded on original_source/db/table_cache.cc: TableCache::FindTable
// encodes the file number as a cache key, opens the file (trying the
// modern ".ldb" extension before falling back to the legacy ".sst" one)
// only on a miss, and installs a deleter that closes the file and drops
// the table when the cache entry is finally evicted.
package tablecache

import (
	"fmt"
	"path/filepath"

	"github.com/thydamon/leveldb/filterpolicy"
	"github.com/thydamon/leveldb/internal/base"
	"github.com/thydamon/leveldb/internal/cache"
	"github.com/thydamon/leveldb/internal/coding"
	"github.com/thydamon/leveldb/sstable"
	"github.com/thydamon/leveldb/storage"
)

// Options configures a Cache's sstable.Reader construction.
type Options struct {
	Comparer     base.Compare
	FilterPolicy filterpolicy.Policy
}

// Cache maps file numbers to open sstables, evicting the least recently
// used entries once the underlying LRU cache's capacity (a count of open
// tables, not bytes) is exceeded.
type Cache struct {
	fs   storage.FS
	dir  string
	opts Options
	c    *cache.Cache
}

// New returns a Cache that opens sstables for dir out of fs, with
// numTables as the capacity of the underlying cache.New. That capacity is
// split across 16 shards with each share rounded up, so up to
// 16*ceil(numTables/16) unreferenced tables can stay open, and a table
// still referenced by a Get or an Iterator is never closed early.
func New(fs storage.FS, dir string, numTables int, opts Options) *Cache {
	return &Cache{fs: fs, dir: dir, opts: opts, c: cache.New(numTables)}
}

// tableAndFile bundles an open sstable.Reader with the file handle
// backing it, so the cache's deleter can close the file once every
// outstanding handle on the table is released.
type tableAndFile struct {
	file   storage.RandomAccessFile
	reader *sstable.Reader
}

func cacheKey(fileNum uint64) []byte {
	return coding.PutFixed64(nil, fileNum)
}

// find returns a cache.Handle wrapping the open table for fileNum,
// opening it on a miss. The caller must Release the handle.
func (tc *Cache) find(fileNum uint64, fileSize int64) (*cache.Handle, error) {
	key := cacheKey(fileNum)
	if h := tc.c.Lookup(key); h != nil {
		return h, nil
	}

	f, size, err := tc.openTableFile(fileNum, fileSize)
	if err != nil {
		return nil, err
	}
	r, err := sstable.NewReader(f, size, sstable.ReaderOptions{
		Comparer:     tc.opts.Comparer,
		FilterPolicy: tc.opts.FilterPolicy,
	})
	if err != nil {
		f.Close()
		return nil, err
	}

	tf := &tableAndFile{file: f, reader: r}
	h := tc.c.Insert(key, tf, 1, func(_ []byte, v cache.Value) {
		v.(*tableAndFile).file.Close()
	})
	return h, nil
}

// openTableFile tries "<dir>/<fileNum>.ldb" first, falling back to the
// legacy "<dir>/<fileNum>.sst" name.
func (tc *Cache) openTableFile(fileNum uint64, fileSize int64) (storage.RandomAccessFile, int64, error) {
	ldbPath := filepath.Join(tc.dir, fmt.Sprintf("%06d.ldb", fileNum))
	f, err := tc.fs.OpenRandomAccess(ldbPath)
	if err == nil {
		return f, fileSize, nil
	}

	sstPath := filepath.Join(tc.dir, fmt.Sprintf("%06d.sst", fileNum))
	f, err = tc.fs.OpenRandomAccess(sstPath)
	if err != nil {
		return nil, 0, base.WrapIOError(err, "tablecache: opening table %d", fileNum)
	}
	return f, fileSize, nil
}

// Get looks up key within the sstable identified by fileNum, returning
// the same result sstable.Reader.Get returns (an entry >= key from the
// one data block the index selects); the caller is responsible for any
// exact-match check against an internal key's user-key portion.
func (tc *Cache) Get(fileNum uint64, fileSize int64, key []byte) (foundKey, value []byte, found bool, err error) {
	h, err := tc.find(fileNum, fileSize)
	if err != nil {
		return nil, nil, false, err
	}
	defer tc.c.Release(h)

	tf := h.Value().(*tableAndFile)
	return tf.reader.Get(key)
}

// NewIterator returns an iterator over the sstable identified by fileNum.
// The iterator holds a reference to the underlying cache entry, released
// by calling Close on the returned iterator once it is no longer needed.
func (tc *Cache) NewIterator(fileNum uint64, fileSize int64) (*Iterator, error) {
	h, err := tc.find(fileNum, fileSize)
	if err != nil {
		return nil, err
	}
	tf := h.Value().(*tableAndFile)
	return &Iterator{Iterator: tf.reader.NewIterator(), tc: tc, h: h}, nil
}

// Evict drops fileNum from the cache. Any iterator or Get call already in
// flight against it continues to work; the file is closed only once every
// outstanding reference is released.
func (tc *Cache) Evict(fileNum uint64) {
	tc.c.Erase(cacheKey(fileNum))
}

// Iterator wraps an sstable.Iterator with the cache handle keeping its
// backing table pinned open.
type Iterator struct {
	*sstable.Iterator
	tc *Cache
	h  *cache.Handle
}

// Close releases this iterator's hold on the cache entry backing it,
// letting the table be evicted once no other handle references it.
func (it *Iterator) Close() {
	it.tc.c.Release(it.h)
}
