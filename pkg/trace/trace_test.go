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
	"github.com/cachekit/cachekit/golibs/errors"
	"github.com/stretchr/testify/assert"
	"os"
	"path/filepath"
	"testing"
)

func TestWriter_Write(t *testing.T) {
	dir, err := os.MkdirTemp("", "TestWriter_Write")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)

	// the missing parent dirs must be created
	fn := filepath.Join(dir, "traces", "ops.trace")
	w, err := NewWriter(fn, 10)
	assert.Nil(t, err)
	assert.Nil(t, w.Write(Op{Code: OpAdd, Key: "k1", Value: "v1"}))
	assert.Nil(t, w.Write(Op{Code: OpGet, Key: "k1"}))
	assert.Nil(t, w.Write(Op{Code: OpClear}))
	assert.Equal(t, 3, w.Total())
	assert.Nil(t, w.Close())

	assert.ErrorIs(t, w.Write(Op{Code: OpGet, Key: "k1"}), errors.ErrClosed)
	assert.Nil(t, w.Close())
}

func TestWriter_WrongParams(t *testing.T) {
	dir, err := os.MkdirTemp("", "TestWriter_WrongParams")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)

	_, err = NewWriter(filepath.Join(dir, "neg.trace"), -1)
	assert.ErrorIs(t, err, errors.ErrInvalid)

	w, err := NewWriter(filepath.Join(dir, "ops.trace"), 1)
	assert.Nil(t, err)
	defer w.Close()
	assert.ErrorIs(t, w.Write(Op{Code: 0, Key: "k"}), errors.ErrInvalid)
	assert.ErrorIs(t, w.Write(Op{Code: 42, Key: "k"}), errors.ErrInvalid)
	assert.Equal(t, 0, w.Total())
}

func TestReader_ReadBack(t *testing.T) {
	dir, err := os.MkdirTemp("", "TestReader_ReadBack")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)

	ops := []Op{
		{Code: OpAdd, Key: "k1", Value: "v1"},
		{Code: OpAdd, Key: "k2", Value: "some longer value to cross the word boundary"},
		{Code: OpGet, Key: "k1"},
		{Code: OpPeek, Key: "k2"},
		{Code: OpRemove, Key: "k1"},
		{Code: OpClear},
	}
	fn := writeTrace(t, filepath.Join(dir, "ops.trace"), 7, ops)

	r, err := OpenReader(fn)
	assert.Nil(t, err)
	defer r.Close()
	assert.Equal(t, 7, r.Capacity())
	assert.Equal(t, len(ops), r.Total())
	checkOps(t, r, ops)
}

func TestReader_EmptyTrace(t *testing.T) {
	dir, err := os.MkdirTemp("", "TestReader_EmptyTrace")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)

	fn := writeTrace(t, filepath.Join(dir, "ops.trace"), 0, nil)
	r, err := OpenReader(fn)
	assert.Nil(t, err)
	defer r.Close()
	assert.Equal(t, 0, r.Capacity())
	assert.Equal(t, 0, r.Total())
	assert.False(t, r.HasNext())
	_, ok := r.Next()
	assert.False(t, ok)
}

func TestReader_NotExist(t *testing.T) {
	dir, err := os.MkdirTemp("", "TestReader_NotExist")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)

	_, err = OpenReader(filepath.Join(dir, "nothing.trace"))
	assert.ErrorIs(t, err, errors.ErrNotExist)
}

func TestReader_Corrupted(t *testing.T) {
	dir, err := os.MkdirTemp("", "TestReader_Corrupted")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)

	// shorter than the header
	fn := filepath.Join(dir, "short.trace")
	assert.Nil(t, os.WriteFile(fn, hdrMagic, 0644))
	_, err = OpenReader(fn)
	assert.ErrorIs(t, err, errors.ErrDataLoss)

	// wrong magic
	fn = filepath.Join(dir, "magic.trace")
	assert.Nil(t, os.WriteFile(fn, make([]byte, cHeaderSize), 0644))
	_, err = OpenReader(fn)
	assert.ErrorIs(t, err, errors.ErrDataLoss)

	// the total counts more records than the file holds, the case of a writer
	// which was never closed is detected the same way with total=0 and records behind
	fn = writeTrace(t, filepath.Join(dir, "total.trace"), 1, []Op{{Code: OpGet, Key: "k1"}})
	patchTotal(t, fn, 2)
	_, err = OpenReader(fn)
	assert.ErrorIs(t, err, errors.ErrDataLoss)

	// trailing garbage after the last record
	fn = writeTrace(t, filepath.Join(dir, "trailing.trace"), 1, []Op{{Code: OpGet, Key: "k1"}})
	f, err := os.OpenFile(fn, os.O_WRONLY|os.O_APPEND, 0644)
	assert.Nil(t, err)
	_, err = f.Write([]byte{1, 2, 3})
	assert.Nil(t, err)
	assert.Nil(t, f.Close())
	_, err = OpenReader(fn)
	assert.ErrorIs(t, err, errors.ErrDataLoss)

	// the key length exceeds the record payload
	fn = filepath.Join(dir, "klen.trace")
	var b bytes.Buffer
	b.Write(hdrMagic)
	b.Write([]byte{0, 0, 0, 1, 0, 0, 0, 1})
	b.Write([]byte{0, 0, 0, 7, byte(OpAdd), 0, 0, 0, 100, 'a', 'b'})
	assert.Nil(t, os.WriteFile(fn, b.Bytes(), 0644))
	_, err = OpenReader(fn)
	assert.ErrorIs(t, err, errors.ErrDataLoss)

	// unknown op code
	fn = filepath.Join(dir, "code.trace")
	b.Reset()
	b.Write(hdrMagic)
	b.Write([]byte{0, 0, 0, 1, 0, 0, 0, 1})
	b.Write([]byte{0, 0, 0, 7, 99, 0, 0, 0, 1, 'a', 'b'})
	assert.Nil(t, os.WriteFile(fn, b.Bytes(), 0644))
	_, err = OpenReader(fn)
	assert.ErrorIs(t, err, errors.ErrDataLoss)
}

func TestReplay(t *testing.T) {
	dir, err := os.MkdirTemp("", "TestReplay")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)

	fn := writeTrace(t, filepath.Join(dir, "ops.trace"), 2, []Op{
		{Code: OpAdd, Key: "k1", Value: "v1"},
		{Code: OpAdd, Key: "k2", Value: "v2"},
		{Code: OpGet, Key: "k1"},
		{Code: OpAdd, Key: "k3", Value: "v3"},
		{Code: OpGet, Key: "k2"},
		{Code: OpPeek, Key: "k3"},
		{Code: OpRemove, Key: "k1"},
	})

	r, err := OpenReader(fn)
	assert.Nil(t, err)
	defer r.Close()

	res, err := Replay(r)
	assert.Nil(t, err)
	assert.Equal(t, 7, res.Ops)
	assert.Equal(t, 3, res.Adds)
	assert.Equal(t, 2, res.Gets)
	assert.Equal(t, 1, res.Peeks)
	assert.Equal(t, 1, res.Removes)
	assert.Equal(t, 0, res.Clears)
	assert.Equal(t, 2, res.Hits)
	assert.Equal(t, 1, res.Misses)
	assert.Equal(t, 1, res.Evictions)
	assert.Equal(t, 1, res.Len)
	assert.False(t, r.HasNext())
}

func TestOpCode_String(t *testing.T) {
	assert.Equal(t, "add", OpAdd.String())
	assert.Equal(t, "clear", OpClear.String())
	assert.Equal(t, "OpCode(99)", OpCode(99).String())
}

func writeTrace(t *testing.T, fn string, capacity int, ops []Op) string {
	w, err := NewWriter(fn, capacity)
	assert.Nil(t, err)
	for _, op := range ops {
		assert.Nil(t, w.Write(op))
	}
	assert.Nil(t, w.Close())
	return fn
}

func checkOps(t *testing.T, r *Reader, ops []Op) {
	for _, op := range ops {
		assert.True(t, r.HasNext())
		uop, ok := r.Next()
		assert.True(t, ok)
		assert.Equal(t, op.Code, uop.Code)
		assert.Equal(t, op.Key, uop.Key)
		assert.Equal(t, op.Value, uop.Value)
	}
	assert.False(t, r.HasNext())
	_, ok := r.Next()
	assert.False(t, ok)
}

func patchTotal(t *testing.T, fn string, total int) {
	f, err := os.OpenFile(fn, os.O_WRONLY, 0644)
	assert.Nil(t, err)
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(total))
	_, err = f.WriteAt(buf[:], cTotalOffset)
	assert.Nil(t, err)
	assert.Nil(t, f.Close())
}
