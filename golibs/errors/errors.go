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
package errors

import (
	"errors"
)

var (
	// ErrNotExist describes a situation when the requested object is not found
	ErrNotExist = errors.New("not exist")
	// ErrExist describes a situation when the object cannot be created cause it already exists
	ErrExist = errors.New("already exist")
	// ErrInvalid describes invalid parameters or request data provided by a caller
	ErrInvalid = errors.New("invalid value")
	// ErrConflict describes a situation when an operation cannot be performed due to the
	// state of the object, for example the object version check failed
	ErrConflict = errors.New("conflict")
	// ErrClosed describes a situation when an operation is requested on the closed object
	ErrClosed = errors.New("closed")
	// ErrExhausted describes a situation when a requested resource is run out
	ErrExhausted = errors.New("exhausted")
	// ErrCanceled describes a situation when an operation was interrupted before its completion
	ErrCanceled = errors.New("canceled")
	// ErrDataLoss describes an unrecoverable data corruption or loss
	ErrDataLoss = errors.New("data loss")
	// ErrInternal describes an internal problem, which should not happen normally
	ErrInternal = errors.New("internal error")
	// ErrUnimplemented describes a situation when the requested operation is not supported
	ErrUnimplemented = errors.New("unimplemented")
)

// New returns the error with the text provided. It is here to not mix the standard
// library errors package with this one in the same file
func New(text string) error {
	return errors.New(text)
}

// Is reports whether any error in the err's chain matches the target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in the err's chain that matches the target, and if one is
// found, sets the target to that error value and returns true
func As(err error, target any) bool {
	return errors.As(err, target)
}
