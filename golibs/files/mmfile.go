// Copyright 2025 The Cachekit Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package files

import (
	"fmt"
	"github.com/cachekit/cachekit/golibs/errors"
	"github.com/edsrzf/mmap-go"
	"os"
)

type (
	// MMFile struct provides the read-only memory mapped file implementation. It allows
	// to access the file content as the byte slices without copying the data into the
	// process memory.
	//
	// NOTE: the Buffer() method may be called for not overlapping regions from different
	// go-routines at the same time, but no other concurrent calls are allowed.
	MMFile struct {
		fn   string
		f    *os.File
		mf   mmap.MMap
		size int64
	}
)

// OpenMMFile opens the existing file read-only and maps its whole content into the
// memory. The empty file is allowed, any Buffer() call for it returns an error
func OpenMMFile(fname string) (*MMFile, error) {
	fi, err := os.Stat(fname)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(fname, os.O_RDONLY, 0666)
	if err != nil {
		return nil, fmt.Errorf("could not open file %s: %w", fname, err)
	}

	var mf mmap.MMap
	if fi.Size() > 0 {
		mf, err = mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("could not map file %s to the memory: %w", fname, err)
		}
	}

	mmf := new(MMFile)
	mmf.fn = fname
	mmf.f = f
	mmf.mf = mf
	mmf.size = fi.Size()

	return mmf, nil
}

// Close unmaps the region and closes the file
func (mmf *MMFile) Close() error {
	var err error
	if mmf.f != nil {
		if mmf.mf != nil {
			mmf.mf.Unmap()
			mmf.mf = nil
		}
		err = mmf.f.Close()
		mmf.f = nil
		mmf.size = -1
	}
	return err
}

// Size returns the size of the mapped region
func (mmf *MMFile) Size() int64 {
	return mmf.size
}

// Buffer returns the mapped memory slice for the region requested. The slice must be
// treated as read-only. If the region crosses the end of the file, the result is
// truncated to the mapped size
func (mmf *MMFile) Buffer(offs int64, size int) ([]byte, error) {
	if offs < 0 || offs >= mmf.size {
		return nil, fmt.Errorf("offset=%d out of bounds [0..%d]: %w", offs, mmf.size-1, errors.ErrInvalid)
	}

	idx := int(offs)
	if idx+size >= int(mmf.size) {
		size = int(mmf.size - offs)
	}

	return mmf.mf[idx : idx+size], nil
}

func (mmf *MMFile) String() string {
	if mmf.f != nil {
		return fmt.Sprintf("MMFile{fn=%s, f=\"opened\", size=%d}", mmf.fn, mmf.size)
	}
	return fmt.Sprintf("MMFile{fn=%s, f=\"closed\", size=%d}", mmf.fn, mmf.size)
}
