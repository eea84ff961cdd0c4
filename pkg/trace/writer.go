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

package trace

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"github.com/cachekit/cachekit/golibs/errors"
	"github.com/cachekit/cachekit/golibs/files"
	"github.com/cachekit/cachekit/golibs/logging"
	"os"
	"path/filepath"
)

type (
	// Writer appends the op records to a trace file. The records count in the header
	// stays 0 until Close, so a trace which was not closed properly is detected as
	// corrupted on open. The Writer is not safe for the concurrent use
	Writer struct {
		fn       string
		f        *os.File
		bw       *bufio.Writer
		capacity int
		total    int
		logger   logging.Logger
	}
)

// NewWriter creates the trace file fileName, truncating the existing one, and writes
// the header. The missing parent dir is created. The capacity is the capacity of the
// cache the trace is recorded for, Replay creates the cache with it
func NewWriter(fileName string, capacity int) (*Writer, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("NewWriter(): the capacity=%d, but it cannot be negative: %w", capacity, errors.ErrInvalid)
	}
	if err := files.EnsureDirExists(filepath.Dir(fileName)); err != nil {
		return nil, err
	}
	f, err := os.Create(fileName)
	if err != nil {
		return nil, fmt.Errorf("could not create the trace file %s: %w", fileName, err)
	}

	var hdr [cHeaderSize]byte
	copy(hdr[:], hdrMagic)
	binary.BigEndian.PutUint32(hdr[cCapOffset:cCapOffset+4], uint32(capacity))
	if _, err = f.Write(hdr[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("could not write the header to the trace file %s: %w", fileName, err)
	}

	w := new(Writer)
	w.fn = fileName
	w.f = f
	w.bw = bufio.NewWriter(f)
	w.capacity = capacity
	w.logger = logging.NewLogger("trace.Writer")
	w.logger.Debugf("created %s, capacity=%d", fileName, capacity)
	return w, nil
}

// Write appends the op record to the trace
func (w *Writer) Write(op Op) error {
	if w.f == nil {
		return fmt.Errorf("the trace %s is closed: %w", w.fn, errors.ErrClosed)
	}
	if op.Code < OpAdd || op.Code > OpClear {
		return fmt.Errorf("unknown op code %d: %w", op.Code, errors.ErrInvalid)
	}

	var buf [cFrameHdrSize]byte
	binary.BigEndian.PutUint32(buf[:4], uint32(cOpMinSize+len(op.Key)+len(op.Value)))
	buf[4] = byte(op.Code)
	binary.BigEndian.PutUint32(buf[5:cFrameHdrSize], uint32(len(op.Key)))
	if _, err := w.bw.Write(buf[:]); err != nil {
		return fmt.Errorf("could not write the record #%d to the trace %s: %w", w.total, w.fn, err)
	}
	if _, err := w.bw.WriteString(op.Key); err != nil {
		return fmt.Errorf("could not write the record #%d to the trace %s: %w", w.total, w.fn, err)
	}
	if _, err := w.bw.WriteString(op.Value); err != nil {
		return fmt.Errorf("could not write the record #%d to the trace %s: %w", w.total, w.fn, err)
	}
	w.total++
	return nil
}

// Total returns the number of records written so far
func (w *Writer) Total() int {
	return w.total
}

// Close flushes the buffered records, fixes the records count in the header and
// closes the file. The trace is not readable until Close
func (w *Writer) Close() error {
	if w.f == nil {
		return nil
	}
	w.logger.Debugf("closing %s, total=%d", w.fn, w.total)
	err := w.bw.Flush()
	if err == nil {
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(w.total))
		_, err = w.f.WriteAt(buf[:], cTotalOffset)
	}
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	w.f = nil
	w.bw = nil
	return err
}
