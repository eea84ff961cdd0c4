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
/*
Package errors contains some very general class of errors that any component may
use. It is proposed to use the globally defined error variables to describe the
situations that may be transformed into a class of user-faced errors.

The specific errors should be built on top of the general ones by wrapping them
with extra details, for example:

	fmt.Errorf("the capacity=%d is out of range: %w", cap, errors.ErrInvalid)

so the callers may test the class of the problem via errors.Is(err, errors.ErrInvalid)
no matter how many details were added on the way up.
*/
package errors
