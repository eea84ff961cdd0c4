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
Package lru contains a fixed-capacity key-value container with LRU
(Least Recently Used) pull out discipline. The container uses golang generics,
so it can be instantiated for different key and value types.

The Cache keeps its entries in a doubly-linked ring bounded by two sentinel
elements and indexes them by a map, so adding, getting and removing values,
as well as evicting the least recently used one, all take constant time.

The Cache is NOT safe for concurrent use. A caller that needs to share one
instance between goroutines must serialize all the calls externally, for
example by guarding the whole structure with a mutex.
*/
package lru
