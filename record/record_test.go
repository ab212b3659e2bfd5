// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package record

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type buffer struct {
	bytes.Buffer
	syncs int
}

func (b *buffer) Sync() error {
	b.syncs++
	return nil
}

type recordingReporter struct {
	drops []string
}

func (r *recordingReporter) Corruption(n int, reason error) {
	r.drops = append(r.drops, reason.Error())
}

func TestWriteReadRoundTrip(t *testing.T) {
	buf := &buffer{}
	w := NewWriter(buf)

	records := [][]byte{
		[]byte("hello"),
		[]byte(""),
		bytes.Repeat([]byte("x"), 100000), // spans many blocks
		[]byte("small again"),
	}
	for _, rec := range records {
		require.NoError(t, w.AddRecord(rec))
	}
	require.NoError(t, w.Sync())
	require.Equal(t, 1, buf.syncs)

	r := NewReader(bytes.NewReader(buf.Bytes()), nil)
	for _, want := range records {
		got, err := r.ReadRecord()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := r.ReadRecord()
	require.ErrorIs(t, err, io.EOF)
}

func TestReadDetectsChecksumMismatch(t *testing.T) {
	buf := &buffer{}
	w := NewWriter(buf)
	require.NoError(t, w.AddRecord([]byte("payload")))

	data := buf.Bytes()
	// Corrupt a payload byte without touching the header, so the stored
	// checksum no longer matches.
	data[headerSize] ^= 0xff

	reporter := &recordingReporter{}
	r := NewReader(bytes.NewReader(data), reporter)
	_, err := r.ReadRecord()
	require.ErrorIs(t, err, io.EOF)
	require.NotEmpty(t, reporter.drops)
}

func TestReadTruncatedTailIsNotCorruption(t *testing.T) {
	buf := &buffer{}
	w := NewWriter(buf)
	require.NoError(t, w.AddRecord([]byte("first")))
	require.NoError(t, w.AddRecord([]byte("second")))

	data := buf.Bytes()
	// Simulate a crash mid-write of the second record's payload.
	truncated := data[:len(data)-3]

	reporter := &recordingReporter{}
	r := NewReader(bytes.NewReader(truncated), reporter)

	got, err := r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, []byte("first"), got)

	_, err = r.ReadRecord()
	require.ErrorIs(t, err, io.EOF)
	require.Empty(t, reporter.drops)
}

func TestReaderResyncsAfterSeek(t *testing.T) {
	buf := &buffer{}
	w := NewWriter(buf)
	// Pad the first block nearly full so the second record's FIRST
	// fragment starts near the end of block 0 and spills into block 1.
	require.NoError(t, w.AddRecord(bytes.Repeat([]byte("a"), blockSize-headerSize-10)))
	require.NoError(t, w.AddRecord([]byte("second record payload")))

	data := buf.Bytes()
	reporter := &recordingReporter{}
	// Start reading from partway into the log; resyncing must skip the
	// fragment already in progress and pick up at the next clean
	// logical-record boundary.
	r := NewReaderAtOffset(bytes.NewReader(data), reporter, uint64(blockSize-headerSize-10))
	got, err := r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, []byte("second record payload"), got)
}

func TestZeroLengthPaddingIsSkippedSilently(t *testing.T) {
	// A block trailer too small for a header is padded with zero bytes by
	// the writer; the reader must treat that padding as benign, not as
	// corruption.
	buf := &buffer{}
	w := NewWriter(buf)
	fill := blockSize - headerSize - 3
	require.NoError(t, w.AddRecord(bytes.Repeat([]byte("z"), fill)))
	require.NoError(t, w.AddRecord([]byte("after padding")))

	reporter := &recordingReporter{}
	r := NewReader(bytes.NewReader(buf.Bytes()), reporter)

	first, err := r.ReadRecord()
	require.NoError(t, err)
	require.Len(t, first, fill)

	second, err := r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, []byte("after padding"), second)
	require.Empty(t, reporter.drops)
}

func TestHeaderLayout(t *testing.T) {
	buf := &buffer{}
	w := NewWriter(buf)
	require.NoError(t, w.AddRecord([]byte("ab")))

	data := buf.Bytes()
	require.Equal(t, byte(fullType), data[6])
	require.Equal(t, uint16(2), binary.LittleEndian.Uint16(data[4:6]))
}
