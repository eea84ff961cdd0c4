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

package bench

import (
	"context"

	"github.com/cachekit/cachekit/golibs/cast"
	"github.com/cachekit/cachekit/golibs/container/lru"
	"github.com/cachekit/cachekit/golibs/errors"
	"github.com/cachekit/cachekit/golibs/kvs"
	"github.com/cachekit/cachekit/golibs/logging"
)

type (
	// Target is the cache-shaped surface a workload is executed against
	Target interface {
		// Add stores the value by the key. The result is true if the operation
		// pulled another entry out
		Add(key, value string) bool
		// Get reads the value by the key promoting it. The result is true on a hit
		Get(key string) bool
		// Peek reads the value by the key without promoting it. The result is true
		// on a hit
		Peek(key string) bool
		// Remove deletes the value by the key. The result is true if the key existed
		Remove(key string) bool
	}

	coreTarget struct {
		cache *lru.Cache[string, string]
	}

	storageTarget struct {
		ctx    context.Context
		strg   kvs.Storage
		logger logging.Logger
	}
)

// NewCoreTarget returns the Target executing the operations against the cache c
// directly
func NewCoreTarget(c *lru.Cache[string, string]) Target {
	return &coreTarget{cache: c}
}

// NewStorageTarget returns the Target executing the operations against the storage
// strg, which may be the cached one. The storage surface has no non-promoting read,
// so the peek operations are served as the get ones
func NewStorageTarget(ctx context.Context, strg kvs.Storage) Target {
	return &storageTarget{ctx: ctx, strg: strg, logger: logging.NewLogger("bench.storageTarget")}
}

func (t *coreTarget) Add(key, value string) bool {
	_, _, evicted := t.cache.Add(key, value)
	return evicted
}

func (t *coreTarget) Get(key string) bool {
	_, ok := t.cache.Get(key)
	return ok
}

func (t *coreTarget) Peek(key string) bool {
	_, ok := t.cache.Peek(key)
	return ok
}

func (t *coreTarget) Remove(key string) bool {
	_, ok := t.cache.Remove(key)
	return ok
}

func (t *storageTarget) Add(key, value string) bool {
	if _, err := t.strg.Put(t.ctx, kvs.Record{Key: key, Value: cast.StringToByteArray(value)}); err != nil {
		t.logger.Warnf("could not put the record by the key %q: %v", key, err)
	}
	return false
}

func (t *storageTarget) Get(key string) bool {
	_, err := t.strg.Get(t.ctx, key)
	if err != nil && !errors.Is(err, errors.ErrNotExist) {
		t.logger.Warnf("could not get the record by the key %q: %v", key, err)
	}
	return err == nil
}

func (t *storageTarget) Peek(key string) bool {
	return t.Get(key)
}

func (t *storageTarget) Remove(key string) bool {
	err := t.strg.Delete(t.ctx, key)
	if err != nil && !errors.Is(err, errors.ErrNotExist) {
		t.logger.Warnf("could not delete the record by the key %q: %v", key, err)
	}
	return err == nil
}
