// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.log")

	w, err := Default.Create(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	require.True(t, Default.Exists(path))

	rf, err := Default.OpenSequential(path)
	require.NoError(t, err)
	defer rf.Close()
	buf := make([]byte, 11)
	_, err = rf.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(buf))
}

func TestRandomAccessRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.sst")

	w, err := Default.Create(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("0123456789"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	rf, err := Default.OpenRandomAccess(path)
	require.NoError(t, err)
	defer rf.Close()

	buf := make([]byte, 4)
	n, err := rf.ReadAt(buf, 3)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, "3456", string(buf))
}

func TestRemoveNonexistentIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Default.Remove(filepath.Join(dir, "missing")))
}

func TestRenameAndList(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.tmp")
	newPath := filepath.Join(dir, "new.sst")

	w, err := Default.Create(oldPath)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, Default.Rename(oldPath, newPath))
	require.False(t, Default.Exists(oldPath))
	require.True(t, Default.Exists(newPath))

	names, err := Default.List(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"new.sst"}, names)
}

func TestMkdirAllAndSyncDir(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")
	require.NoError(t, Default.MkdirAll(nested))
	require.True(t, Default.Exists(nested))

	path := filepath.Join(nested, "MANIFEST")
	w, err := Default.Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, SyncDir(Default, path))
}

func TestCreateWrapsManifestFilesForDirectorySync(t *testing.T) {
	dir := t.TempDir()

	manifestPath := filepath.Join(dir, "MANIFEST-000001")
	mw, err := Default.Create(manifestPath)
	require.NoError(t, err)
	_, ok := mw.(*manifestFile)
	require.True(t, ok, "MANIFEST-prefixed file should be wrapped in manifestFile")
	require.NoError(t, mw.Sync())
	require.NoError(t, mw.Close())

	otherPath := filepath.Join(dir, "000001.log")
	ow, err := Default.Create(otherPath)
	require.NoError(t, err)
	_, ok = ow.(*manifestFile)
	require.False(t, ok, "non-MANIFEST file should not be wrapped")
	require.NoError(t, ow.Close())
}

func TestLockPreventsSecondAcquisitionWithinProcess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "LOCK")

	l1, err := Default.Lock(path)
	require.NoError(t, err)

	_, err = Default.Lock(path)
	require.Error(t, err)

	require.NoError(t, l1.Close())

	l2, err := Default.Lock(path)
	require.NoError(t, err)
	require.NoError(t, l2.Close())
}
