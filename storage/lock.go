// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package storage

import (
	"os"
	"sync"
	"syscall"

	"github.com/thydamon/leveldb/internal/base"
)

// lockedFiles tracks names already locked by this process, so a second
// Lock of the same name within the process is refused from this table,
// before any file is opened or flock is called.
// Grounded on original_source/util/env_posix.cc's PosixLockTable.
var (
	lockedFilesMu sync.Mutex
	lockedFiles   = make(map[string]bool)
)

// FileLock represents an exclusive hold on a lock file, released by Close.
type FileLock struct {
	f    *os.File
	name string
}

// Lock acquires an exclusive advisory lock on name, creating the file if
// it does not already exist. It fails if name is already locked, whether
// by this process or another one.
func (DefaultFS) Lock(name string) (*FileLock, error) {
	lockedFilesMu.Lock()
	defer lockedFilesMu.Unlock()

	if lockedFiles[name] {
		return nil, base.NewIOErrorf("storage: lock %s already held by this process", name)
	}

	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, base.WrapIOError(err, "storage: opening lock file")
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, base.WrapIOError(err, "storage: lock %s held by another process", name)
	}

	lockedFiles[name] = true
	return &FileLock{f: f, name: name}, nil
}

// Close releases the lock.
func (l *FileLock) Close() error {
	lockedFilesMu.Lock()
	delete(lockedFiles, l.name)
	lockedFilesMu.Unlock()

	if err := syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN); err != nil {
		l.f.Close()
		return base.WrapIOError(err, "storage: unlock")
	}
	return l.f.Close()
}
