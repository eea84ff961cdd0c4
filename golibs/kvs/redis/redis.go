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
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/cachekit/cachekit/golibs/cast"
	"github.com/cachekit/cachekit/golibs/container/iterable"
	"github.com/cachekit/cachekit/golibs/errors"
	"github.com/cachekit/cachekit/golibs/kvs"
	"github.com/cachekit/cachekit/golibs/ulidutils"
	"github.com/go-redis/redis/v8"
)

type (
	client struct {
		rdb *redis.Client
	}

	// dbRecord is the record form stored in Redis. The key is not stored in
	// the payload, it is always restored from the Redis key.
	dbRecord struct {
		Value   []byte `json:"value,omitempty"`
		Version string `json:"version"`
	}

	keysIterator struct {
		si  *redis.ScanIterator
		val *string
	}
)

// New returns the kvs.Storage implementation on top of Redis
func New(opts *redis.Options) kvs.Storage {
	rdb := redis.NewClient(opts)
	return &client{rdb: rdb}
}

func (c *client) Create(ctx context.Context, record kvs.Record) (string, error) {
	record.Version = ulidutils.NewID()
	buf := rec2db(&record)
	ok, err := c.rdb.SetNX(ctx, rKey(record.Key), buf, 0).Result()
	if err != nil {
		return "", checkErr(err)
	}
	if !ok {
		return "", errors.ErrExist
	}
	return record.Version, nil
}

func (c *client) Get(ctx context.Context, key string) (kvs.Record, error) {
	val, err := c.rdb.Get(ctx, rKey(key)).Result()
	if err != nil {
		return kvs.Record{}, checkErr(err)
	}

	r := db2rec(cast.StringToByteArray(val))
	r.Key = key
	return r, nil
}

func (c *client) GetMany(ctx context.Context, keys ...string) ([]*kvs.Record, error) {
	res, err := c.rdb.MGet(ctx, rKeys(keys)...).Result()
	if err != nil {
		return nil, checkErr(err)
	}
	result := make([]*kvs.Record, len(keys))
	for idx, val := range res {
		if val == nil {
			continue
		}
		r := db2rec(cast.StringToByteArray(val.(string)))
		r.Key = keys[idx]
		result[idx] = &r
	}
	return result, nil
}

func (c *client) Put(ctx context.Context, record kvs.Record) (kvs.Record, error) {
	record.Version = ulidutils.NewID()
	buf := rec2db(&record)
	_, err := c.rdb.Set(ctx, rKey(record.Key), buf, 0).Result()
	return record, checkErr(err)
}

func (c *client) Delete(ctx context.Context, key string) error {
	cnt, err := c.rdb.Del(ctx, rKey(key)).Result()
	if err != nil {
		return checkErr(err)
	}
	if cnt == 0 {
		return errors.ErrNotExist
	}
	return nil
}

// ListKeys allows to read the keys by the pattern provided.
func (c *client) ListKeys(ctx context.Context, pattern string) (iterable.Iterator[string], error) {
	si := c.rdb.Scan(ctx, 0, rKey(pattern), 1000).Iterator()
	return &keysIterator{si: si}, nil
}

func (c *client) Close() error {
	return c.rdb.Close()
}

func checkErr(err error) error {
	if err == nil {
		return nil
	}
	if err.Error() == "redis: nil" {
		return errors.ErrNotExist
	}
	return err
}

func rKeys(keys []string) []string {
	res := make([]string, len(keys))
	for idx, key := range keys {
		res[idx] = rKey(key)
	}
	return res
}

func rKey(key string) string {
	for len(key) > 0 && key[0] == '/' {
		key = key[1:]
	}
	return fmt.Sprintf("/kvs/%s", key)
}

func key(rKey string) string {
	if len(rKey) > 5 {
		return rKey[5:]
	}
	return ""
}

func rec2db(r *kvs.Record) []byte {
	if r == nil {
		panic("rec2db: record cannot be nil")
	}
	buf, err := json.Marshal(dbRecord{Value: r.Value, Version: r.Version})
	if err != nil {
		panic(fmt.Sprintf("could not marshal record r=%v: %s", r, err))
	}
	return buf
}

func db2rec(buf []byte) kvs.Record {
	var dbr dbRecord
	err := json.Unmarshal(buf, &dbr)
	if err != nil {
		panic(fmt.Sprintf("could not unmarshal record: %s", err))
	}
	return kvs.Record{Value: dbr.Value, Version: dbr.Version}
}

var _ iterable.Iterator[string] = (*keysIterator)(nil)

func (k *keysIterator) HasNext() bool {
	if k.val == nil && k.si.Next(context.Background()) {
		k.val = cast.Ptr(key(k.si.Val()))
	}
	return k.val != nil
}

func (k *keysIterator) Next() (string, bool) {
	if k.HasNext() {
		res := *k.val
		k.val = nil
		return res, true
	}
	return "", false
}

func (k *keysIterator) Close() error {
	k.si = nil
	k.val = nil
	return nil
}
