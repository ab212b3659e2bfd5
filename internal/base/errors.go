// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package base

import "github.com/cockroachdb/errors"

// Kind classifies the outcome of a fallible core operation. Every returned
// error can be mapped back to a Kind with GetKind.
type Kind int

const (
	KindOK Kind = iota
	KindNotFound
	KindCorruption
	KindIOError
	KindInvalidArgument
	KindNotSupported
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "OK"
	case KindNotFound:
		return "NotFound"
	case KindCorruption:
		return "Corruption"
	case KindIOError:
		return "IOError"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindNotSupported:
		return "NotSupported"
	default:
		return "Unknown"
	}
}

// kindSentinel marks an error tree with its originating Kind so GetKind can
// recover it after wrapping with context via errors.Wrapf.
type kindSentinel struct {
	kind Kind
}

func (s *kindSentinel) Error() string { return s.kind.String() }

var (
	sentinelNotFound         = &kindSentinel{KindNotFound}
	sentinelCorruption       = &kindSentinel{KindCorruption}
	sentinelIOError          = &kindSentinel{KindIOError}
	sentinelInvalidArgument  = &kindSentinel{KindInvalidArgument}
	sentinelNotSupported     = &kindSentinel{KindNotSupported}
)

// ErrNotFound means that a get or delete call did not find the requested key.
var ErrNotFound = sentinelNotFound

// NewCorruptionf builds a Corruption error with a short, formatted reason,
// matching the reason strings used throughout §7 of the format description
// (e.g. "bad record length", "checksum mismatch").
func NewCorruptionf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), sentinelCorruption)
}

// WrapIOError classifies err as an IOError, preserving its message and
// wrapped chain.
func WrapIOError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), sentinelIOError)
}

// NewIOErrorf builds an IOError with a short, formatted reason, for
// failures that did not originate from a wrapped stdlib error.
func NewIOErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), sentinelIOError)
}

// NewInvalidArgumentf builds an InvalidArgument error.
func NewInvalidArgumentf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), sentinelInvalidArgument)
}

// NewNotSupportedf builds a NotSupported error.
func NewNotSupportedf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), sentinelNotSupported)
}

// GetKind classifies err. A nil error is KindOK; an error with no Kind
// marking (e.g. io.EOF) is reported as KindIOError since the core treats
// unclassified I/O failures uniformly.
func GetKind(err error) Kind {
	if err == nil {
		return KindOK
	}
	switch {
	case errors.Is(err, sentinelNotFound):
		return KindNotFound
	case errors.Is(err, sentinelCorruption):
		return KindCorruption
	case errors.Is(err, sentinelInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, sentinelNotSupported):
		return KindNotSupported
	default:
		return KindIOError
	}
}

// IsCorruption reports whether err (or something it wraps) was produced by
// NewCorruptionf.
func IsCorruption(err error) bool {
	return errors.Is(err, sentinelCorruption)
}
