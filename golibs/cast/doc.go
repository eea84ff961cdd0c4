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
Package cast contains some utility functions for casting types. The pointer helpers
allow to distinguish whether a value was provided or not (the pointer is nil) in the
structures unmarshaled from JSON. The bytes-string helpers turn one type to the other
without extra memory allocations, which matters on the hot paths working with the
storage encodings.
*/
package cast
