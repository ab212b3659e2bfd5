// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package record

import "github.com/thydamon/leveldb/internal/base"

// LogReporter is a Reporter that forwards dropped-byte notifications to a
// base.Logger, for callers that just want corruption noted in the log
// rather than collected for inspection.
//
// Grounded on the Reporter/Corruption split in leveldb's db/log_reader.cc,
// where the concrete reporter wired into the database's own log recovery
// path forwards to the environment's Logger rather than accumulating
// events itself.
type LogReporter struct {
	Logger base.Logger
}

// Corruption implements Reporter.
func (r LogReporter) Corruption(n int, reason error) {
	r.Logger.Infof("record: dropping %d bytes: %v", n, reason)
}
