// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package record

import (
	"encoding/binary"
	"io"

	"github.com/thydamon/leveldb/internal/base"
	"github.com/thydamon/leveldb/internal/crc"
)

// Reporter is notified when the Reader drops bytes because of a detected
// corruption. reason describes what was wrong; n is the number of bytes
// dropped.
type Reporter interface {
	Corruption(n int, reason error)
}

// Reader reads the logical records written by a Writer back out of a
// block-framed log, reassembling FIRST/MIDDLE/LAST fragments and
// verifying each physical record's checksum.
//
// Ported from leveldb's db/log_reader.cc: corruption in one physical
// record drops at most the rest of the block holding it (and any fragment
// accumulated so far for the logical record it belongs to), not the whole
// file, and a
// record truncated by a crash at the very end of the file is treated as a
// clean EOF rather than a corruption.
type Reader struct {
	r        io.Reader
	reporter Reporter
	checksum bool

	backing [blockSize]byte
	buf     []byte // unconsumed suffix of backing holding the current block
	eof     bool

	lastRecordOffset  uint64
	endOfBufferOffset uint64
	initialOffset     uint64
	resyncing         bool

	scratch []byte
}

// NewReader returns a Reader that verifies checksums and starts at the
// beginning of the log.
func NewReader(r io.Reader, reporter Reporter) *Reader {
	return &Reader{r: r, reporter: reporter, checksum: true}
}

// NewReaderAtOffset returns a Reader that skips to the block containing
// initialOffset before reading its first record, discarding any fragments
// of a logical record that began before that offset. r must be positioned
// at the start of the log; the first ReadRecord call performs the seek.
func NewReaderAtOffset(r io.ReadSeeker, reporter Reporter, initialOffset uint64) *Reader {
	return &Reader{
		r:             r,
		reporter:      reporter,
		checksum:      true,
		initialOffset: initialOffset,
		resyncing:     initialOffset > 0,
	}
}

// LastRecordOffset returns the offset, within the log, of the most
// recently returned record.
func (r *Reader) LastRecordOffset() uint64 {
	return r.lastRecordOffset
}

// ReadRecord returns the next logical record, or io.EOF once the log is
// exhausted. The returned slice is valid only until the next call to
// ReadRecord.
func (r *Reader) ReadRecord() ([]byte, error) {
	if r.lastRecordOffset < r.initialOffset {
		if err := r.skipToInitialBlock(); err != nil {
			return nil, err
		}
	}

	r.scratch = r.scratch[:0]
	inFragmentedRecord := false
	var prospectiveOffset uint64

	for {
		physicalOffset := r.endOfBufferOffset - uint64(len(r.buf))
		typ, fragment, err := r.readPhysicalRecord()
		if err != nil {
			return nil, err
		}

		if r.resyncing {
			switch typ {
			case middleType:
				continue
			case lastType:
				r.resyncing = false
				continue
			default:
				r.resyncing = false
			}
		}

		switch typ {
		case fullType:
			if inFragmentedRecord && len(r.scratch) != 0 {
				r.reportCorruption(len(r.scratch), errPartialRecord)
			}
			r.scratch = r.scratch[:0]
			r.lastRecordOffset = physicalOffset
			return fragment, nil

		case firstType:
			if inFragmentedRecord && len(r.scratch) != 0 {
				r.reportCorruption(len(r.scratch), errPartialRecord)
			}
			prospectiveOffset = physicalOffset
			r.scratch = append(r.scratch[:0], fragment...)
			inFragmentedRecord = true

		case middleType:
			if !inFragmentedRecord {
				r.reportCorruption(len(fragment), errMissingStart)
			} else {
				r.scratch = append(r.scratch, fragment...)
			}

		case lastType:
			if !inFragmentedRecord {
				r.reportCorruption(len(fragment), errMissingStart)
			} else {
				r.scratch = append(r.scratch, fragment...)
				r.lastRecordOffset = prospectiveOffset
				return r.scratch, nil
			}

		case eofType:
			if inFragmentedRecord {
				r.scratch = r.scratch[:0]
			}
			return nil, io.EOF

		case badRecordType:
			if inFragmentedRecord {
				r.reportCorruption(len(r.scratch), errMiddleOfRecord)
				inFragmentedRecord = false
				r.scratch = r.scratch[:0]
			}

		default:
			n := len(fragment)
			if inFragmentedRecord {
				n += len(r.scratch)
			}
			r.reportCorruption(n, errUnknownRecordType)
			inFragmentedRecord = false
			r.scratch = r.scratch[:0]
		}
	}
}

func (r *Reader) skipToInitialBlock() error {
	offsetInBlock := r.initialOffset % blockSize
	blockStart := r.initialOffset - offsetInBlock

	// Don't search a block if the initial offset lands in its trailer,
	// where no header can begin.
	if offsetInBlock > blockSize-6 {
		blockStart += blockSize
	}
	r.endOfBufferOffset = blockStart

	if blockStart > 0 {
		seeker, ok := r.r.(io.Seeker)
		if !ok {
			return base.NewInvalidArgumentf("record: reader does not support seeking to a nonzero initial offset")
		}
		if _, err := seeker.Seek(int64(blockStart), io.SeekStart); err != nil {
			return err
		}
	}
	return nil
}

// readPhysicalRecord returns the next physical record's type and payload.
// The payload aliases r.backing and is valid only until the next call.
func (r *Reader) readPhysicalRecord() (recordType, []byte, error) {
	for {
		if len(r.buf) < headerSize {
			if r.eof {
				// A truncated header at EOF means the writer crashed
				// mid-header; treat it as a clean end, not corruption.
				r.buf = nil
				return eofType, nil, nil
			}
			n, err := io.ReadFull(r.r, r.backing[:])
			if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
				r.buf = nil
				r.reportCorruption(blockSize, err)
				r.eof = true
				return eofType, nil, nil
			}
			r.buf = r.backing[:n]
			r.endOfBufferOffset += uint64(n)
			if n < blockSize {
				r.eof = true
			}
			continue
		}

		header := r.buf[:headerSize]
		length := int(binary.LittleEndian.Uint16(header[4:6]))
		typ := recordType(header[6])

		if headerSize+length > len(r.buf) {
			dropSize := len(r.buf)
			r.buf = nil
			if !r.eof {
				r.reportCorruption(dropSize, errBadLength)
				return badRecordType, nil, nil
			}
			return eofType, nil, nil
		}

		if typ == zeroType && length == 0 {
			// A zero-type, zero-length header comes from a preallocated,
			// still-zeroed file region (AddRecord's own block-tail padding
			// is shorter than a header and never parsed as one). Drop the
			// rest of the buffer; nothing is reported for it here.
			r.buf = nil
			return badRecordType, nil, nil
		}

		if r.checksum {
			stored := binary.LittleEndian.Uint32(header[0:4])
			actual := crc.New([]byte{header[6]}, r.buf[headerSize:headerSize+length])
			if actual != stored {
				dropSize := len(r.buf)
				r.buf = nil
				r.reportCorruption(dropSize, errChecksumMismatch)
				return badRecordType, nil, nil
			}
		}

		payload := r.buf[headerSize : headerSize+length]
		r.buf = r.buf[headerSize+length:]

		if r.endOfBufferOffset-uint64(len(r.buf))-uint64(headerSize+length) < r.initialOffset {
			return badRecordType, nil, nil
		}

		return typ, payload, nil
	}
}

func (r *Reader) reportCorruption(n int, reason error) {
	if r.reporter == nil {
		return
	}
	if r.endOfBufferOffset-uint64(len(r.buf))-uint64(n) >= r.initialOffset {
		r.reporter.Corruption(n, reason)
	}
}

var (
	errPartialRecord     = base.NewCorruptionf("record: partial record without end")
	errMissingStart      = base.NewCorruptionf("record: missing start of fragmented record")
	errMiddleOfRecord    = base.NewCorruptionf("record: error in middle of record")
	errBadLength         = base.NewCorruptionf("record: bad record length")
	errChecksumMismatch  = base.NewCorruptionf("record: checksum mismatch")
	errUnknownRecordType = base.NewCorruptionf("record: unknown record type")
)
