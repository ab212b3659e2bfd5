// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package storage defines the narrow file-system interfaces the storage
// engine uses to read and write its on-disk state, plus a default
// implementation backed by the local os package.
//
// Grounded on leveldb's include/leveldb/env.h (SequentialFile,
// RandomAccessFile, WritableFile) and, for the Go interface shape,
// cockroachdb-pebble/vfs/vfs.go's File/FS split, trimmed to the handful
// of operations this engine's WAL, sstable, and manifest code paths
// actually need.
package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/thydamon/leveldb/internal/base"
)

// SequentialFile supports read-only, forward-only access, used for
// reading a write-ahead log from the beginning.
type SequentialFile interface {
	io.Reader
	io.Closer
}

// RandomAccessFile supports read-only, offset-addressed access, used for
// reading sstables.
type RandomAccessFile interface {
	io.ReaderAt
	io.Closer
}

// WritableFile supports sequential appends and explicit durability
// control, used for writing WAL segments, sstables, and the manifest.
type WritableFile interface {
	io.Writer
	io.Closer
	Sync() error
}

// Reporter receives notifications of dropped or corrupted bytes
// encountered while reading a file, letting the storage layer surface
// corruption without aborting the read that found it.
type Reporter interface {
	Corruption(n int, reason error)
}

// FS is a namespace of named files, addressed by filesystem path.
type FS interface {
	Create(name string) (WritableFile, error)
	OpenSequential(name string) (SequentialFile, error)
	OpenRandomAccess(name string) (RandomAccessFile, error)
	Remove(name string) error
	Rename(oldname, newname string) error
	MkdirAll(dir string) error
	List(dir string) ([]string, error)
	Exists(name string) bool

	// OpenDir opens a directory only so its file descriptor can be
	// fsynced (SyncDir), which is how a POSIX filesystem persists a
	// rename or file creation within that directory.
	OpenDir(dir string) (WritableFile, error)

	// Lock acquires an exclusive advisory lock on name, creating it if
	// necessary, to prevent two processes from opening the same database
	// concurrently. Call Close on the returned FileLock to release it.
	Lock(name string) (*FileLock, error)
}

// DefaultFS is an FS backed directly by the local filesystem via the os
// package.
type DefaultFS struct{}

// NewDefaultFS returns an FS backed directly by the local filesystem.
func NewDefaultFS() FS { return DefaultFS{} }

// Default is the package-level DefaultFS instance; most callers can use
// it directly rather than constructing their own.
var Default FS = DefaultFS{}

func (DefaultFS) Create(name string) (WritableFile, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, base.WrapIOError(err, "storage: create")
	}
	if strings.HasPrefix(filepath.Base(name), "MANIFEST") {
		return &manifestFile{File: f, name: name}, nil
	}
	return f, nil
}

// manifestFile wraps the manifest's *os.File so every Sync also fsyncs the
// containing directory, making the rename that publishes a new CURRENT
// file (and the manifest file's own creation) durable across a crash.
type manifestFile struct {
	*os.File
	name string
}

func (f *manifestFile) Sync() error {
	if err := f.File.Sync(); err != nil {
		return err
	}
	return SyncDir(DefaultFS{}, f.name)
}

func (DefaultFS) OpenSequential(name string) (SequentialFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, base.WrapIOError(err, "storage: open")
	}
	return f, nil
}

func (DefaultFS) OpenRandomAccess(name string) (RandomAccessFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, base.WrapIOError(err, "storage: open")
	}
	return f, nil
}

func (DefaultFS) Remove(name string) error {
	err := os.Remove(name)
	if err != nil && !os.IsNotExist(err) {
		return base.WrapIOError(err, "storage: remove")
	}
	return nil
}

func (DefaultFS) Rename(oldname, newname string) error {
	if err := os.Rename(oldname, newname); err != nil {
		return base.WrapIOError(err, "storage: rename")
	}
	return nil
}

func (DefaultFS) MkdirAll(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return base.WrapIOError(err, "storage: mkdir")
	}
	return nil
}

func (DefaultFS) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, base.WrapIOError(err, "storage: list")
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

func (DefaultFS) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// OpenDir opens dir so its descriptor can be fsynced by SyncDir; a
// directory handle opened this way cannot be written to.
func (DefaultFS) OpenDir(dir string) (WritableFile, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, base.WrapIOError(err, "storage: open dir")
	}
	return f, nil
}

// SyncDir fsyncs the directory containing path, so that a preceding
// rename or file creation within it is durable even if the process
// crashes immediately afterward. This has no effect on filesystems or
// operating systems where directory entries are not separately
// journaled, but it is a required step for crash-safe manifest updates
// on POSIX systems.
func SyncDir(fs FS, path string) error {
	dir, err := fs.OpenDir(filepath.Dir(path))
	if err != nil {
		return err
	}
	defer dir.Close()
	return dir.Sync()
}
