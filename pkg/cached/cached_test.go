package cached

import (
	"context"
	"github.com/cachekit/cachekit/golibs/errors"
	"github.com/cachekit/cachekit/golibs/kvs"
	"github.com/cachekit/cachekit/golibs/kvs/inmem"
	"github.com/stretchr/testify/assert"
	"testing"
)

type testStore struct {
	kvs.Storage
	gets      int
	getManys  int
	inits     int
	shutdowns int
}

func newTestStore() *testStore {
	return &testStore{Storage: inmem.New()}
}

func (ts *testStore) Get(ctx context.Context, key string) (kvs.Record, error) {
	ts.gets++
	return ts.Storage.Get(ctx, key)
}

func (ts *testStore) GetMany(ctx context.Context, keys ...string) ([]*kvs.Record, error) {
	ts.getManys++
	return ts.Storage.GetMany(ctx, keys...)
}

func (ts *testStore) Init(ctx context.Context) error {
	ts.inits++
	return nil
}

func (ts *testStore) Shutdown() {
	ts.shutdowns++
}

func TestStorage_Conformance(t *testing.T) {
	s, err := NewStorage(Config{}, inmem.New())
	assert.Nil(t, err)
	kvs.TestStorage(t, s)
}

func TestNewStorage(t *testing.T) {
	s, err := NewStorage(Config{}, inmem.New())
	assert.Nil(t, err)
	assert.NotNil(t, s)

	_, err = NewStorage(Config{CacheSize: -1}, inmem.New())
	assert.NotNil(t, err)
}

func TestStorage_GetCaches(t *testing.T) {
	ts := newTestStore()
	s, err := NewStorage(Config{}, ts)
	assert.Nil(t, err)

	r, err := s.Put(context.Background(), kvs.Record{Key: "k1", Value: []byte("v1")})
	assert.Nil(t, err)

	r1, err := s.Get(context.Background(), "k1")
	assert.Nil(t, err)
	assert.Equal(t, r, r1)
	assert.Equal(t, 1, ts.gets)

	r1, err = s.Get(context.Background(), "k1")
	assert.Nil(t, err)
	assert.Equal(t, r, r1)
	assert.Equal(t, 1, ts.gets)

	st := s.Stats()
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, 0.5, st.HitRate)
	assert.Equal(t, "Stats{hits=1, misses=1, evictions=0, hitRate=0.50}", st.String())
}

func TestStorage_GetCopies(t *testing.T) {
	s, err := NewStorage(Config{}, inmem.New())
	assert.Nil(t, err)

	_, err = s.Put(context.Background(), kvs.Record{Key: "k1", Value: []byte("aaa")})
	assert.Nil(t, err)

	r, err := s.Get(context.Background(), "k1")
	assert.Nil(t, err)
	r.Value[0] = 'x'

	r, err = s.Get(context.Background(), "k1")
	assert.Nil(t, err)
	assert.Equal(t, "aaa", string(r.Value))

	r.Value[1] = 'y'
	r, err = s.Get(context.Background(), "k1")
	assert.Nil(t, err)
	assert.Equal(t, "aaa", string(r.Value))
}

func TestStorage_PutInvalidates(t *testing.T) {
	ts := newTestStore()
	s, err := NewStorage(Config{}, ts)
	assert.Nil(t, err)

	_, err = s.Put(context.Background(), kvs.Record{Key: "k1", Value: []byte("v1")})
	assert.Nil(t, err)
	r1, err := s.Get(context.Background(), "k1")
	assert.Nil(t, err)
	assert.Equal(t, 1, ts.gets)

	r2, err := s.Put(context.Background(), kvs.Record{Key: "k1", Value: []byte("v2")})
	assert.Nil(t, err)
	assert.NotEqual(t, r1.Version, r2.Version)

	r3, err := s.Get(context.Background(), "k1")
	assert.Nil(t, err)
	assert.Equal(t, r2, r3)
	assert.Equal(t, 2, ts.gets)
}

func TestStorage_DeleteInvalidates(t *testing.T) {
	s, err := NewStorage(Config{}, inmem.New())
	assert.Nil(t, err)

	_, err = s.Create(context.Background(), kvs.Record{Key: "k1", Value: []byte("v1")})
	assert.Nil(t, err)
	_, err = s.Get(context.Background(), "k1")
	assert.Nil(t, err)

	assert.Nil(t, s.Delete(context.Background(), "k1"))
	_, err = s.Get(context.Background(), "k1")
	assert.Equal(t, errors.ErrNotExist, err)

	assert.Equal(t, errors.ErrNotExist, s.Delete(context.Background(), "k1"))
}

func TestStorage_GetMany(t *testing.T) {
	ts := newTestStore()
	s, err := NewStorage(Config{}, ts)
	assert.Nil(t, err)

	for _, k := range []string{"k1", "k2", "k3"} {
		_, err = s.Put(context.Background(), kvs.Record{Key: k, Value: []byte(k)})
		assert.Nil(t, err)
	}

	// k1 comes from the cache, k2 and k3 from the storage in one batch
	_, err = s.Get(context.Background(), "k1")
	assert.Nil(t, err)

	recs, err := s.GetMany(context.Background(), "k1", "k2", "k3")
	assert.Nil(t, err)
	assert.Len(t, recs, 3)
	for idx, k := range []string{"k1", "k2", "k3"} {
		assert.Equal(t, k, string(recs[idx].Value))
	}
	assert.Equal(t, 1, ts.getManys)

	// everything is cached now
	_, err = s.GetMany(context.Background(), "k1", "k2", "k3")
	assert.Nil(t, err)
	assert.Equal(t, 1, ts.getManys)

	// the missing key is not cached and keeps its nil position
	recs, err = s.GetMany(context.Background(), "k2", "miss")
	assert.Nil(t, err)
	assert.NotNil(t, recs[0])
	assert.Nil(t, recs[1])
	assert.Equal(t, 2, ts.getManys)
}

func TestStorage_Evictions(t *testing.T) {
	s, err := NewStorage(Config{CacheSize: 2}, inmem.New())
	assert.Nil(t, err)

	for _, k := range []string{"k1", "k2", "k3"} {
		_, err = s.Put(context.Background(), kvs.Record{Key: k, Value: []byte(k)})
		assert.Nil(t, err)
		_, err = s.Get(context.Background(), k)
		assert.Nil(t, err)
	}

	st := s.Stats()
	assert.Equal(t, int64(1), st.Evictions)
	assert.Equal(t, int64(3), st.Misses)
}

func TestStorage_InitShutdown(t *testing.T) {
	ts := newTestStore()
	s, err := NewStorage(Config{}, ts)
	assert.Nil(t, err)

	assert.Nil(t, s.Init(context.Background()))
	assert.Equal(t, 1, ts.inits)
	s.Shutdown()
	assert.Equal(t, 1, ts.shutdowns)

	// a storage without the lifecycle hooks is fine too
	s, err = NewStorage(Config{}, inmem.New())
	assert.Nil(t, err)
	assert.Nil(t, s.Init(context.Background()))
	s.Shutdown()
}
