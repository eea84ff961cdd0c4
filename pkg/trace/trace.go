// Copyright 2026 The Cachekit Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package trace allows to record a stream of cache operations into a file and to read
// it back later. The file starts with a fixed-size header (magic, format version, the
// capacity of the cache the trace was recorded for and the number of records), which
// is followed by the length-prefixed op records. The Writer appends the records
// through a buffered writer, the Reader maps the file into the memory and iterates
// the records with no copying. Replay applies a trace to a fresh cache and reports
// the counters, so a recorded workload may be re-run against the current code.
package trace

import (
	"fmt"
)

type (
	// OpCode identifies the cache operation written into a trace
	OpCode byte

	// Op is one cache operation to be written into a trace. The Value is used by the
	// add operation only and must be left empty for the other codes
	Op struct {
		Code  OpCode
		Key   string
		Value string
	}

	// UnsafeOp represents an op record read from a trace. This is a short-life object
	// which may be used ONLY while the Reader is open. The Key and the Value refer to
	// the mapped file memory, so if the op should outlive the Reader, they MUST be
	// copied to another memory
	UnsafeOp struct {
		Code  OpCode
		Key   string
		Value string
	}
)

const (
	OpAdd OpCode = iota + 1
	OpGet
	OpPeek
	OpRemove
	OpClear
)

const (
	cHeaderSize = 16
	// cCapOffset is the header offset of the cache capacity field
	cCapOffset = 8
	// cTotalOffset is the header offset of the records count field
	cTotalOffset = 12
	// cFrameHdrSize covers the record length prefix, the op code and the key length
	cFrameHdrSize = 9
	// cOpMinSize is the smallest record payload - the op code and the key length of
	// a record with no key and no value
	cOpMinSize = 5
)

var hdrMagic = []byte{'C', 'K', 'T', 'R', 'A', 'C', 'E', 1}

// String returns the mnemonic of the op code
func (oc OpCode) String() string {
	switch oc {
	case OpAdd:
		return "add"
	case OpGet:
		return "get"
	case OpPeek:
		return "peek"
	case OpRemove:
		return "remove"
	case OpClear:
		return "clear"
	}
	return fmt.Sprintf("OpCode(%d)", byte(oc))
}
