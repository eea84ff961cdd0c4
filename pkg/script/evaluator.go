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

package script

import (
	"fmt"
	"github.com/cachekit/cachekit/golibs/container/lru"
	"github.com/cachekit/cachekit/golibs/errors"
)

type (
	// Engine executes the parsed scripts. The Engine is stateful - the cache created by
	// the "new" statement and the outcome of the latest "add" survive between the Exec
	// calls, so one script may be run in several pieces. The Engine is not safe for the
	// concurrent use
	Engine struct {
		cache *lru.Cache[string, string]

		// the outcome of the latest add operation, checked by "expect evicted" and
		// "expect none"
		evictedKey string
		evictedVal string
		evicted    bool
	}
)

// NewEngine creates the new Engine with no cache attached. The first operation of the
// script to be run must be "new"
func NewEngine() *Engine {
	return &Engine{}
}

// Exec executes all the script statements one by one and returns the number of the
// executed ones. Misuse of the language (negative capacity, an operation before "new")
// ends the run with an error wrapping errors.ErrInvalid, a failed expectation - with
// an error wrapping errors.ErrConflict. The statements after the failed one are not
// executed
func (e *Engine) Exec(s *Script) (int, error) {
	for i, st := range s.Stmts {
		if err := e.exec(st); err != nil {
			return i, fmt.Errorf("line %d (%s): %w", st.Pos.Line, st, err)
		}
	}
	return len(s.Stmts), nil
}

func (e *Engine) exec(st *Statement) error {
	if st.New != nil {
		c, err := lru.NewCache[string, string](*st.New)
		if err != nil {
			return fmt.Errorf("wrong capacity %d for the new cache: %w", *st.New, errors.ErrInvalid)
		}
		e.cache = c
		e.evicted = false
		return nil
	}
	if e.cache == nil {
		return fmt.Errorf("no cache exists yet, the script must start with the \"new\" operation: %w", errors.ErrInvalid)
	}

	switch {
	case st.Add != nil:
		e.evictedKey, e.evictedVal, e.evicted = e.cache.Add(st.Add.Key, st.Add.Value)
	case st.Get != nil:
		e.cache.Get(*st.Get)
	case st.Peek != nil:
		e.cache.Peek(*st.Peek)
	case st.Remove != nil:
		e.cache.Remove(*st.Remove)
	case st.Clear:
		e.cache.Clear()
		e.evicted = false
	case st.Resize != nil:
		if _, err := e.cache.Resize(*st.Resize); err != nil {
			return fmt.Errorf("wrong capacity %d for the resize: %w", *st.Resize, errors.ErrInvalid)
		}
	case st.Expect != nil:
		return e.check(st.Expect)
	default:
		return fmt.Errorf("unsupported statement: %w", errors.ErrInvalid)
	}
	return nil
}

func (e *Engine) check(exp *Expect) error {
	switch {
	case exp.First:
		v, ok := e.cache.First()
		return checkEnd("first", exp.FirstVal, v, ok)
	case exp.Last:
		v, ok := e.cache.Last()
		return checkEnd("last", exp.LastVal, v, ok)
	case exp.Len != nil:
		if ln := e.cache.Len(); ln != *exp.Len {
			return failedf("expected len=%d, but actual is %d", *exp.Len, ln)
		}
	case exp.Empty:
		if !e.cache.IsEmpty() {
			return failedf("expected the empty cache, but it contains %d entries", e.cache.Len())
		}
	case exp.Value != nil:
		v, ok := e.cache.Peek(exp.Value.Key)
		if !ok {
			return failedf("expected the value %q by the key %q, but the key is absent", exp.Value.Value, exp.Value.Key)
		}
		if v != exp.Value.Value {
			return failedf("expected the value %q by the key %q, but actual is %q", exp.Value.Value, exp.Value.Key, v)
		}
	case exp.Absent != nil:
		if e.cache.Contains(*exp.Absent) {
			return failedf("expected the key %q to be absent, but it is in the cache", *exp.Absent)
		}
	case exp.Evicted != nil:
		if !e.evicted {
			return failedf("expected the eviction of the key %q, but the latest add evicted nothing", exp.Evicted.Key)
		}
		if e.evictedKey != exp.Evicted.Key || e.evictedVal != exp.Evicted.Value {
			return failedf("expected the eviction of %q=%q, but the latest add evicted %q=%q",
				exp.Evicted.Key, exp.Evicted.Value, e.evictedKey, e.evictedVal)
		}
	case exp.None:
		if e.evicted {
			return failedf("expected no eviction, but the latest add evicted %q=%q", e.evictedKey, e.evictedVal)
		}
	default:
		return fmt.Errorf("unsupported expectation: %w", errors.ErrInvalid)
	}
	return nil
}

// checkEnd tests the first or the last entry value against the expectation. The
// expectation with no value requires the cache to be empty
func checkEnd(end string, want *string, v string, ok bool) error {
	if want == nil {
		if ok {
			return failedf("expected no %s entry, but actual is %q", end, v)
		}
		return nil
	}
	if !ok {
		return failedf("expected %s=%q, but the cache is empty", end, *want)
	}
	if v != *want {
		return failedf("expected %s=%q, but actual is %q", end, *want, v)
	}
	return nil
}

func failedf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, errors.ErrConflict)...)
}
