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

package kvs

import (
	"context"
	"github.com/cachekit/cachekit/golibs/errors"
	"github.com/stretchr/testify/assert"
	"sort"
	"testing"
)

// TestStorage a bunch of tests run against a Storage instance. The storage s
// must be empty when the function is called.
func TestStorage(t *testing.T, s Storage) {
	ctx := context.Background()

	// create
	r := Record{Key: "aaa", Value: []byte("bbbb"), Version: "ha ha"}
	v, err := s.Create(ctx, r)
	assert.Nil(t, err)
	assert.NotEqual(t, "ha ha", v)

	_, err = s.Create(ctx, r)
	assert.True(t, errors.Is(err, errors.ErrExist))

	// get
	_, err = s.Get(ctx, "notFound")
	assert.True(t, errors.Is(err, errors.ErrNotExist))

	r1, err := s.Get(ctx, "aaa")
	assert.Nil(t, err)
	assert.Equal(t, "aaa", r1.Key)
	assert.Equal(t, "bbbb", string(r1.Value))
	assert.Equal(t, v, r1.Version)

	// put overwrites and rolls the version
	r1.Value = []byte("dddd")
	r2, err := s.Put(ctx, r1)
	assert.Nil(t, err)
	assert.NotEqual(t, r1.Version, r2.Version)

	r3, err := s.Get(ctx, "aaa")
	assert.Nil(t, err)
	assert.Equal(t, "dddd", string(r3.Value))
	assert.Equal(t, r2.Version, r3.Version)

	// put may create a record as well
	_, err = s.Put(ctx, Record{Key: "bbb", Value: []byte("2")})
	assert.Nil(t, err)

	// getMany keeps the positions for the keys that are not found
	recs, err := s.GetMany(ctx, "aaa", "notFound", "bbb")
	assert.Nil(t, err)
	assert.Len(t, recs, 3)
	assert.Equal(t, "dddd", string(recs[0].Value))
	assert.Nil(t, recs[1])
	assert.Equal(t, "2", string(recs[2].Value))

	// listKeys
	for _, k := range []string{"key1", "key2", "ey"} {
		_, err = s.Create(ctx, Record{Key: k, Value: []byte(k)})
		assert.Nil(t, err)
	}

	assert.Equal(t, []string{"aaa", "bbb", "ey", "key1", "key2"}, listKeys(t, s, "*"))
	assert.Equal(t, []string{"key1", "key2"}, listKeys(t, s, "k*"))
	assert.Equal(t, []string{"ey", "key1", "key2"}, listKeys(t, s, "*ey*"))
	assert.Equal(t, []string{}, listKeys(t, s, "ddd"))

	// delete
	assert.Nil(t, s.Delete(ctx, "bbb"))
	assert.True(t, errors.Is(s.Delete(ctx, "bbb"), errors.ErrNotExist))
	_, err = s.Get(ctx, "bbb")
	assert.True(t, errors.Is(err, errors.ErrNotExist))
}

func listKeys(t *testing.T, s Storage, pattern string) []string {
	it, err := s.ListKeys(context.Background(), pattern)
	assert.Nil(t, err)
	defer it.Close()

	res := []string{}
	for it.HasNext() {
		v, ok := it.Next()
		assert.True(t, ok)
		res = append(res, v)
	}
	sort.Strings(res)
	return res
}
