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
	"bytes"
	"encoding/binary"
	"fmt"
	"github.com/cachekit/cachekit/golibs/cast"
	"github.com/cachekit/cachekit/golibs/container/iterable"
	"github.com/cachekit/cachekit/golibs/errors"
	"github.com/cachekit/cachekit/golibs/files"
	"github.com/cachekit/cachekit/golibs/logging"
	"os"
)

type (
	// Reader iterates the op records of a trace file. The file is mapped into the
	// memory read-only and every record of it is checked on open, so the iteration
	// itself never fails. The Reader implements iterable.Iterator[UnsafeOp], the
	// returned ops refer to the mapped memory and must not outlive the Reader
	Reader struct {
		fn       string
		mmf      *files.MMFile
		capacity int
		total    int
		idx      int
		offs     int64
		logger   logging.Logger
	}
)

var _ iterable.Iterator[UnsafeOp] = (*Reader)(nil)

// OpenReader maps the trace file fileName into the memory and verifies its header
// and all the op records. Any inconsistency is reported as an error wrapping
// errors.ErrDataLoss
func OpenReader(fileName string) (*Reader, error) {
	mmf, err := files.OpenMMFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("the trace file %s: %w", fileName, errors.ErrNotExist)
		}
		return nil, err
	}

	r := new(Reader)
	r.fn = fileName
	r.mmf = mmf
	r.logger = logging.NewLogger("trace.Reader")
	if err = r.init(); err != nil {
		mmf.Close()
		return nil, err
	}
	r.logger.Debugf("opened %s, capacity=%d, total=%d", fileName, r.capacity, r.total)
	return r, nil
}

// init reads the header and walks all the records checking that every frame lies
// within the file and the records end exactly at its end
func (r *Reader) init() error {
	if r.mmf.Size() < cHeaderSize {
		return fmt.Errorf("the trace %s is corrupted, the size=%d is less than the header size: %w", r.fn, r.mmf.Size(), errors.ErrDataLoss)
	}
	hdr, err := r.mmf.Buffer(0, cHeaderSize)
	if err != nil {
		return err
	}
	if !bytes.Equal(hdr[:len(hdrMagic)], hdrMagic) {
		return fmt.Errorf("the trace %s is corrupted, wrong magic or format version: %w", r.fn, errors.ErrDataLoss)
	}
	r.capacity = int(binary.BigEndian.Uint32(hdr[cCapOffset : cCapOffset+4]))
	r.total = int(binary.BigEndian.Uint32(hdr[cTotalOffset : cTotalOffset+4]))

	offs := int64(cHeaderSize)
	for i := 0; i < r.total; i++ {
		buf, err := r.mmf.Buffer(offs, cFrameHdrSize)
		if err != nil || len(buf) < cFrameHdrSize {
			return fmt.Errorf("the trace %s is corrupted, could not read the frame of the record #%d at offset=%d: %w", r.fn, i, offs, errors.ErrDataLoss)
		}
		size := int(binary.BigEndian.Uint32(buf[:4]))
		code := OpCode(buf[4])
		klen := int(binary.BigEndian.Uint32(buf[5:cFrameHdrSize]))
		if size < cOpMinSize || klen > size-cOpMinSize {
			return fmt.Errorf("the trace %s is corrupted, the record #%d has size=%d and the key length=%d: %w", r.fn, i, size, klen, errors.ErrDataLoss)
		}
		if code < OpAdd || code > OpClear {
			return fmt.Errorf("the trace %s is corrupted, the record #%d has unknown op code %d: %w", r.fn, i, byte(code), errors.ErrDataLoss)
		}
		offs += int64(4 + size)
		if offs > r.mmf.Size() {
			return fmt.Errorf("the trace %s is corrupted, the record #%d exceeds the file end: %w", r.fn, i, errors.ErrDataLoss)
		}
	}
	if offs != r.mmf.Size() {
		return fmt.Errorf("the trace %s is corrupted, %d trailing bytes after the record #%d: %w", r.fn, r.mmf.Size()-offs, r.total-1, errors.ErrDataLoss)
	}
	r.offs = cHeaderSize
	return nil
}

// Capacity returns the cache capacity written into the trace header
func (r *Reader) Capacity() int {
	return r.capacity
}

// Total returns the number of op records in the trace
func (r *Reader) Total() int {
	return r.total
}

func (r *Reader) HasNext() bool {
	return r.mmf != nil && r.idx < r.total
}

func (r *Reader) Next() (UnsafeOp, bool) {
	if !r.HasNext() {
		return UnsafeOp{}, false
	}
	buf, err := r.mmf.Buffer(r.offs, cFrameHdrSize)
	if err != nil {
		r.logger.Errorf("could not read the frame of the record #%d at offset=%d: %v", r.idx, r.offs, err)
		panic(err)
	}
	size := int(binary.BigEndian.Uint32(buf[:4]))
	klen := int(binary.BigEndian.Uint32(buf[5:cFrameHdrSize]))
	op := UnsafeOp{Code: OpCode(buf[4])}
	if size > cOpMinSize {
		data, err := r.mmf.Buffer(r.offs+cFrameHdrSize, size-cOpMinSize)
		if err != nil {
			r.logger.Errorf("could not read the payload of the record #%d at offset=%d: %v", r.idx, r.offs, err)
			panic(err)
		}
		op.Key = cast.ByteArrayToString(data[:klen])
		op.Value = cast.ByteArrayToString(data[klen:])
	}
	r.idx++
	r.offs += int64(4 + size)
	return op, true
}

// Close implements io.Closer. It unmaps the trace file, all the ops returned by Next
// become invalid
func (r *Reader) Close() error {
	var err error
	if r.mmf != nil {
		err = r.mmf.Close()
		r.mmf = nil
	}
	return err
}
