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
package buntdb

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/cachekit/cachekit/golibs/cast"
	"github.com/cachekit/cachekit/golibs/container/iterable"
	"github.com/cachekit/cachekit/golibs/errors"
	"github.com/cachekit/cachekit/golibs/kvs"
	"github.com/cachekit/cachekit/golibs/logging"
	"github.com/cachekit/cachekit/golibs/ulidutils"
	"github.com/gobwas/glob"
	"github.com/tidwall/buntdb"
)

type (
	// Config specifies configuration for the key-value storage
	// based on BuntDB https://github.com/tidwall/buntdb
	Config struct {
		// DBFilePath specifies path to the DB file
		// if empty the in-mem version is used
		DBFilePath string
	}

	// Storage is the kvs.Storage implementation on top of BuntDB. The storage
	// may be persisted on the local disk (see Config), so it survives restarts.
	Storage struct {
		cfg    *Config
		db     *buntdb.DB
		logger logging.Logger
	}

	entry struct {
		Value   []byte `json:"value,omitempty"`
		Version string `json:"version"`
	}

	keysIterator struct {
		res []string
	}
)

var _ kvs.Storage = (*Storage)(nil)

// NewStorage creates new key-value storage based on BuntDB
func NewStorage(cfg Config) *Storage {
	return &Storage{cfg: &cfg}
}

// Init implements linker.Initializer
func (s *Storage) Init(ctx context.Context) error {
	path := s.cfg.DBFilePath
	if len(path) == 0 {
		path = ":memory:"
	}

	s.logger = logging.NewLogger("buntdb.Storage")
	s.logger.Infof("Initializing with dbFilePath=%s", path)

	var err error
	s.db, err = buntdb.Open(path)
	if err != nil {
		return fmt.Errorf("buntdb.Open(%s) failed: %w", path, err)
	}
	return nil
}

// Shutdown implements linker.Shutdowner
func (s *Storage) Shutdown() {
	s.logger.Infof("Shutting down...")
	if s.db != nil {
		_ = s.db.Close()
	}
}

// Create implements kvs.Storage
func (s *Storage) Create(ctx context.Context, record kvs.Record) (string, error) {
	tx := mustBeginTx(s.db, true)
	defer mustRollback(tx)

	if _, err := tx.Get(record.Key); err == nil {
		return "", errors.ErrExist
	} else if !errors.Is(err, buntdb.ErrNotFound) {
		return "", fmt.Errorf("tx.Get(%s) failed: %w", record.Key, err)
	}

	record.Version = ulidutils.NewID()
	val := mustMarshal(&record)
	if _, _, err := tx.Set(record.Key, val, nil); err != nil {
		return "", fmt.Errorf("tx.Set(%s, %s) failed: %w", record.Key, val, err)
	}
	mustCommit(tx)
	return record.Version, nil
}

// Get implements kvs.Storage
func (s *Storage) Get(ctx context.Context, key string) (kvs.Record, error) {
	tx := mustBeginTx(s.db, false)
	defer mustRollback(tx)

	val, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return kvs.Record{}, errors.ErrNotExist
		}
		return kvs.Record{}, fmt.Errorf("tx.Get(%s) failed: %w", key, err)
	}
	return mustUnmarshal(key, val), nil
}

// GetMany implements kvs.Storage
func (s *Storage) GetMany(ctx context.Context, keys ...string) ([]*kvs.Record, error) {
	tx := mustBeginTx(s.db, false)
	defer mustRollback(tx)

	res := make([]*kvs.Record, len(keys))
	for idx, key := range keys {
		val, err := tx.Get(key)
		if err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("tx.Get(%s) failed: %w", key, err)
		}
		r := mustUnmarshal(key, val)
		res[idx] = &r
	}
	return res, nil
}

// Put implements kvs.Storage
func (s *Storage) Put(ctx context.Context, record kvs.Record) (kvs.Record, error) {
	tx := mustBeginTx(s.db, true)
	defer mustRollback(tx)

	record.Version = ulidutils.NewID()
	val := mustMarshal(&record)
	if _, _, err := tx.Set(record.Key, val, nil); err != nil {
		return kvs.Record{}, fmt.Errorf("tx.Set(%s, %s) failed: %w", record.Key, val, err)
	}
	mustCommit(tx)
	return record, nil
}

// Delete implements kvs.Storage
func (s *Storage) Delete(ctx context.Context, key string) error {
	tx := mustBeginTx(s.db, true)
	defer mustRollback(tx)

	if _, err := tx.Delete(key); err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return errors.ErrNotExist
		}
		return fmt.Errorf("tx.Delete(%s) failed: %w", key, err)
	}
	mustCommit(tx)
	return nil
}

// ListKeys implements kvs.Storage
func (s *Storage) ListKeys(ctx context.Context, pattern string) (iterable.Iterator[string], error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("could not compile the pattern %q: %w", pattern, err)
	}

	tx := mustBeginTx(s.db, false)
	defer mustRollback(tx)

	res := []string{}
	err = tx.Ascend("", func(key, _ string) bool {
		if g.Match(key) {
			res = append(res, key)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("tx.Ascend() failed: %w", err)
	}
	return &keysIterator{res: res}, nil
}

func mustBeginTx(db *buntdb.DB, writable bool) *buntdb.Tx {
	tx, err := db.Begin(writable)
	if err != nil {
		panic(fmt.Errorf("mustBeginTx(%t) failed: %v", writable, err))
	}
	return tx
}

func mustCommit(tx *buntdb.Tx) {
	if err := tx.Commit(); err != nil {
		panic(fmt.Errorf("mustCommit() failed: %v", err))
	}
}

func mustRollback(tx *buntdb.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, buntdb.ErrTxClosed) {
		panic(fmt.Errorf("mustRollback() failed: %v", err))
	}
}

func mustMarshal(r *kvs.Record) string {
	bytes, err := json.Marshal(entry{Value: r.Value, Version: r.Version})
	if err != nil {
		panic(fmt.Errorf("mustMarshal() failed: %v", err))
	}
	return cast.ByteArrayToString(bytes)
}

func mustUnmarshal(key, val string) kvs.Record {
	bytes := cast.StringToByteArray(val)
	var e entry
	if err := json.Unmarshal(bytes, &e); err != nil {
		panic(fmt.Errorf("mustUnmarshal() failed: %v", err))
	}
	return kvs.Record{Key: key, Value: e.Value, Version: e.Version}
}

var _ iterable.Iterator[string] = (*keysIterator)(nil)

func (k *keysIterator) HasNext() bool {
	return len(k.res) > 0
}

func (k *keysIterator) Next() (string, bool) {
	if !k.HasNext() {
		return "", false
	}
	res := k.res[0]
	k.res = k.res[1:]
	return res, true
}

func (k *keysIterator) Close() error {
	k.res = nil
	return nil
}
