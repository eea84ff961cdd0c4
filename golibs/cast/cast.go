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
package cast

import (
	"unsafe"
)

// Value turns the pointer v to the value it refers to, or to the def, if the
// pointer is nil
func Value[T any](v *T, def T) T {
	if v != nil {
		return *v
	}
	return def
}

// Ptr returns pointer to the copy of the value provided
func Ptr[T any](v T) *T {
	return &v
}

// StringToByteArray gets a string and turns it to []byte without extra memory allocations
//
// NOTE! The result slice shares the memory with the string, so it must never be
// modified, otherwise the behavior is undefined
func StringToByteArray(v string) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(v), len(v))
}

// ByteArrayToString turns a slice of bytes to string, without extra memory allocations
//
// NOTE! The result string shares the memory with the slice, so the slice must not be
// modified while the string is in use, otherwise the behavior is undefined
func ByteArrayToString(buf []byte) string {
	if len(buf) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(buf), len(buf))
}
