package cached

import (
	"context"
	"fmt"
	"github.com/cachekit/cachekit/golibs/container/iterable"
	"github.com/cachekit/cachekit/golibs/container/lru"
	"github.com/cachekit/cachekit/golibs/errors"
	"github.com/cachekit/cachekit/golibs/kvs"
	"github.com/cachekit/cachekit/golibs/logging"
	"github.com/logrange/linker"
	"sync"
)

type (
	// Config specifies configuration for the cached storage
	Config struct {
		// CacheSize defines the maximum number of records held in memory.
		// If 0, the defaultCacheSize is used
		CacheSize int
	}

	// Storage wraps a kvs.Storage with the fixed-size LRU cache of records.
	// Reads are served from the cache when possible, writes go through to the
	// underlying storage and invalidate the cached record. The cache itself is
	// not thread-safe, so every access to it is guarded by the single lock.
	Storage struct {
		store  kvs.Storage
		logger logging.Logger

		lock      sync.Mutex
		cache     *lru.Cache[string, kvs.Record]
		hits      int64
		misses    int64
		evictions int64
	}

	// Stats is a point-in-time snapshot of the cache effectiveness counters
	Stats struct {
		// Hits is the number of reads served from the cache
		Hits int64
		// Misses is the number of reads that went to the underlying storage
		Misses int64
		// Evictions is the number of records pushed out by the capacity limit
		Evictions int64
		// HitRate is Hits/(Hits+Misses), 0.0 if there were no reads
		HitRate float64
	}
)

var _ kvs.Storage = (*Storage)(nil)

const defaultCacheSize = 1000

// NewStorage wraps the store with the record cache of the size cfg.CacheSize
func NewStorage(cfg Config, store kvs.Storage) (*Storage, error) {
	size := cfg.CacheSize
	if size == 0 {
		size = defaultCacheSize
	}
	cache, err := lru.NewCache[string, kvs.Record](size)
	if err != nil {
		return nil, fmt.Errorf("could not create the record cache: %w", err)
	}
	return &Storage{store: store, cache: cache, logger: logging.NewLogger("cached.Storage")}, nil
}

// Init implements linker.Initializer
func (s *Storage) Init(ctx context.Context) error {
	s.logger.Infof("Initializing with cacheSize=%d", s.cache.Capacity())
	if init, ok := s.store.(linker.Initializer); ok {
		return init.Init(ctx)
	}
	return nil
}

// Shutdown implements linker.Shutdowner
func (s *Storage) Shutdown() {
	if shut, ok := s.store.(linker.Shutdowner); ok {
		shut.Shutdown()
	}
}

// Create implements kvs.Storage. A successful Create means the record was not
// in the underlying storage, so the cached one (if any) is stale and dropped.
func (s *Storage) Create(ctx context.Context, record kvs.Record) (string, error) {
	ver, err := s.store.Create(ctx, record)
	if err != nil {
		return ver, err
	}
	s.lock.Lock()
	s.cache.Remove(record.Key)
	s.lock.Unlock()
	return ver, nil
}

// Get implements kvs.Storage. The returned record is always a copy, the
// cache-owned one never escapes.
func (s *Storage) Get(ctx context.Context, key string) (kvs.Record, error) {
	s.lock.Lock()
	if r, ok := s.cache.Get(key); ok {
		s.hits++
		s.lock.Unlock()
		return r.Copy(), nil
	}
	s.misses++
	s.lock.Unlock()

	r, err := s.store.Get(ctx, key)
	if err != nil {
		return kvs.Record{}, err
	}
	s.cacheRecord(r)
	return r, nil
}

// GetMany implements kvs.Storage. The records found in the cache are returned
// right away, the rest is requested from the underlying storage in one call.
func (s *Storage) GetMany(ctx context.Context, keys ...string) ([]*kvs.Record, error) {
	res := make([]*kvs.Record, len(keys))
	var missing []string
	var missingIdx []int

	s.lock.Lock()
	for idx, key := range keys {
		if r, ok := s.cache.Get(key); ok {
			s.hits++
			c := r.Copy()
			res[idx] = &c
			continue
		}
		s.misses++
		missing = append(missing, key)
		missingIdx = append(missingIdx, idx)
	}
	s.lock.Unlock()

	if len(missing) == 0 {
		return res, nil
	}
	recs, err := s.store.GetMany(ctx, missing...)
	if err != nil {
		return nil, err
	}
	for i, r := range recs {
		if r == nil {
			continue
		}
		s.cacheRecord(*r)
		res[missingIdx[i]] = r
	}
	return res, nil
}

// Put implements kvs.Storage. The write goes through to the underlying
// storage and the cached record is invalidated, the next Get re-loads it.
func (s *Storage) Put(ctx context.Context, record kvs.Record) (kvs.Record, error) {
	r, err := s.store.Put(ctx, record)
	if err != nil {
		return r, err
	}
	s.lock.Lock()
	s.cache.Remove(record.Key)
	s.lock.Unlock()
	return r, nil
}

// Delete implements kvs.Storage. The cached record is dropped even if the
// underlying storage reports ErrNotExist, it is stale in that case.
func (s *Storage) Delete(ctx context.Context, key string) error {
	err := s.store.Delete(ctx, key)
	if err != nil && !errors.Is(err, errors.ErrNotExist) {
		return err
	}
	s.lock.Lock()
	s.cache.Remove(key)
	s.lock.Unlock()
	return err
}

// ListKeys implements kvs.Storage, the call is always served by the
// underlying storage
func (s *Storage) ListKeys(ctx context.Context, pattern string) (iterable.Iterator[string], error) {
	return s.store.ListKeys(ctx, pattern)
}

// Stats returns the snapshot of the cache effectiveness counters
func (s *Storage) Stats() Stats {
	s.lock.Lock()
	defer s.lock.Unlock()
	res := Stats{Hits: s.hits, Misses: s.misses, Evictions: s.evictions}
	if total := s.hits + s.misses; total > 0 {
		res.HitRate = float64(s.hits) / float64(total)
	}
	return res
}

func (s *Storage) cacheRecord(r kvs.Record) {
	s.lock.Lock()
	if _, _, evicted := s.cache.Add(r.Key, r.Copy()); evicted {
		s.evictions++
	}
	s.lock.Unlock()
}

// String implements fmt.Stringer
func (st Stats) String() string {
	return fmt.Sprintf("Stats{hits=%d, misses=%d, evictions=%d, hitRate=%.2f}", st.Hits, st.Misses, st.Evictions, st.HitRate)
}
