// Copyright 2025 The Cachekit Authors
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
package container

import (
	"github.com/stretchr/testify/assert"
	"io"
	"testing"
)

func TestNewRingBuffer(t *testing.T) {
	r := NewRingBuffer[int](0)
	assert.Equal(t, 0, r.Cap())
	assert.Equal(t, 0, r.Len())

	r = NewRingBuffer[int](4)
	assert.Equal(t, 4, r.Cap())
	assert.Equal(t, 0, r.Len())
}

func TestRingBuffer_WriteRead(t *testing.T) {
	r := NewRingBuffer[int](4)
	_, err := r.Read()
	assert.Equal(t, io.EOF, err)

	for i := 1; i <= 4; i++ {
		assert.Nil(t, r.Write(i))
	}
	assert.NotNil(t, r.Write(123))

	for i := 1; i <= 4; i++ {
		v, err := r.Read()
		assert.Nil(t, err)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 0, r.Len())

	// wrap around the underlying buffer edge a few times
	for i := 0; i < 13; i++ {
		assert.Nil(t, r.Write(i))
		v, err := r.Read()
		assert.Nil(t, err)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 0, r.Len())
}

func TestRingBuffer_Push(t *testing.T) {
	r := NewRingBuffer[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}
	assert.Equal(t, 3, r.Len())
	// 1 and 2 are dropped as the oldest ones
	assert.Equal(t, 3, r.At(0))
	assert.Equal(t, 4, r.At(1))
	assert.Equal(t, 5, r.At(2))
}

func TestRingBuffer_ReadN(t *testing.T) {
	r := NewRingBuffer[int](5)
	buf := make([]int, 3)
	assert.Equal(t, 0, r.ReadN(buf))

	for i := 0; i < 2; i++ {
		assert.Nil(t, r.Write(i))
	}
	assert.Equal(t, 2, r.ReadN(buf))
	assert.Equal(t, []int{0, 1}, buf[:2])

	// the write region wraps around now
	for i := 0; i < 5; i++ {
		assert.Nil(t, r.Write(i))
	}
	assert.Equal(t, 3, r.ReadN(buf))
	assert.Equal(t, []int{0, 1, 2}, buf)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 2, r.ReadN(buf))
	assert.Equal(t, []int{3, 4}, buf[:2])
	assert.Equal(t, 0, r.Len())
}

func TestRingBuffer_Skip(t *testing.T) {
	r := NewRingBuffer[int](5)
	for i := 0; i < 5; i++ {
		assert.Nil(t, r.Write(i))
	}
	assert.Equal(t, 2, r.Skip(2))
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 2, r.At(0))

	for i := 5; i < 7; i++ {
		assert.Nil(t, r.Write(i))
	}
	assert.Equal(t, 5, r.Len())
	assert.Equal(t, 5, r.Skip(12))
	assert.Equal(t, 0, r.Len())
}

func TestRingBuffer_Clear(t *testing.T) {
	r := NewRingBuffer[int](5)
	for i := 0; i < 5; i++ {
		assert.Nil(t, r.Write(i))
	}
	assert.Equal(t, 5, r.Len())
	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, r.Write(42))
	v, err := r.Read()
	assert.Nil(t, err)
	assert.Equal(t, 42, v)
}

func TestRingBuffer_At(t *testing.T) {
	r := NewRingBuffer[int](5)
	assert.Panics(t, func() {
		r.At(0)
	})

	// shift the read position towards the edge, so At() wraps around
	for i := 0; i < 4; i++ {
		assert.Nil(t, r.Write(0))
		_, _ = r.Read()
	}
	for i := 1; i < 6; i++ {
		assert.Nil(t, r.Write(i))
	}
	assert.Equal(t, 1, r.At(0))
	assert.Equal(t, 5, r.At(4))
	assert.Panics(t, func() {
		r.At(5)
	})
	assert.Panics(t, func() {
		r.At(-1)
	})
}
