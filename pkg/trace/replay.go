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
	"fmt"
	"github.com/cachekit/cachekit/golibs/container/lru"
)

type (
	// ReplayResult accumulates the counters of one trace replay
	ReplayResult struct {
		// Ops is the total number of the replayed operations
		Ops int
		// per-code counters
		Adds    int
		Gets    int
		Peeks   int
		Removes int
		Clears  int
		// Hits and Misses count the get and peek outcomes
		Hits   int
		Misses int
		// Evictions counts the adds which pulled an entry out
		Evictions int
		// Len is the number of entries left in the cache when the trace ends
		Len int
	}
)

// Replay applies the remaining ops of r to a new cache created with the capacity
// from the trace header and returns the counters. The cache never outlives the call,
// so the unsafe ops are consumed in place with no copying
func Replay(r *Reader) (ReplayResult, error) {
	cache, err := lru.NewCache[string, string](r.Capacity())
	if err != nil {
		return ReplayResult{}, fmt.Errorf("could not create the cache for the replay: %w", err)
	}

	var res ReplayResult
	for r.HasNext() {
		op, _ := r.Next()
		switch op.Code {
		case OpAdd:
			if _, _, evicted := cache.Add(op.Key, op.Value); evicted {
				res.Evictions++
			}
			res.Adds++
		case OpGet:
			if _, ok := cache.Get(op.Key); ok {
				res.Hits++
			} else {
				res.Misses++
			}
			res.Gets++
		case OpPeek:
			if _, ok := cache.Peek(op.Key); ok {
				res.Hits++
			} else {
				res.Misses++
			}
			res.Peeks++
		case OpRemove:
			cache.Remove(op.Key)
			res.Removes++
		case OpClear:
			cache.Clear()
			res.Clears++
		}
		res.Ops++
	}
	res.Len = cache.Len()
	return res, nil
}

// String implements fmt.Stringer
func (rr ReplayResult) String() string {
	return fmt.Sprintf("ReplayResult{ops=%d, adds=%d, gets=%d, peeks=%d, removes=%d, clears=%d, hits=%d, misses=%d, evictions=%d, len=%d}",
		rr.Ops, rr.Adds, rr.Gets, rr.Peeks, rr.Removes, rr.Clears, rr.Hits, rr.Misses, rr.Evictions, rr.Len)
}
