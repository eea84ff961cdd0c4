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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cachekit/cachekit/golibs/errors"
	"github.com/cachekit/cachekit/golibs/kvs/inmem"
	"github.com/cachekit/cachekit/pkg/trace"
	"github.com/stretchr/testify/assert"
)

// testConfig returns the small deterministic workload used by most of the tests
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Capacity = 16
	cfg.Keys = 64
	cfg.Ops = 2000
	cfg.Seed = 42
	return cfg
}

type countingRecorder struct {
	ops  []trace.Op
	fail bool
}

func (cr *countingRecorder) Write(op trace.Op) error {
	if cr.fail {
		return errors.ErrClosed
	}
	cr.ops = append(cr.ops, op)
	return nil
}

func TestNewRunner_WrongConfig(t *testing.T) {
	for _, change := range []func(cfg *Config){
		func(cfg *Config) { cfg.Capacity = -1 },
		func(cfg *Config) { cfg.Keys = 0 },
		func(cfg *Config) { cfg.Ops = -1 },
		func(cfg *Config) { cfg.Rate = -1 },
		func(cfg *Config) { cfg.SampleSize = -1 },
		func(cfg *Config) { cfg.AddPct = 95 },
		func(cfg *Config) { cfg.AddPct, cfg.GetPct = -10, 90 },
		func(cfg *Config) { cfg.KeyKind = "random" },
		func(cfg *Config) { cfg.Distribution = "pareto" },
	} {
		cfg := testConfig()
		change(&cfg)
		_, err := NewRunner(cfg)
		assert.ErrorIs(t, err, errors.ErrInvalid)
	}

	_, err := NewRunner(testConfig())
	assert.Nil(t, err)
}

func TestRunner_Run(t *testing.T) {
	r, err := NewRunner(testConfig())
	assert.Nil(t, err)

	res, err := r.Run(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, 2000, res.Ops)
	assert.Equal(t, 2000, res.Adds+res.Gets+res.Peeks+res.Removes)
	assert.Equal(t, res.Gets+res.Peeks, res.Hits+res.Misses)
	// 64 keys over the capacity 16 must push entries out
	assert.True(t, res.Evictions > 0)
	assert.True(t, res.Max >= res.P99 && res.P99 >= res.P90 && res.P90 >= res.P50)
}

func TestRunner_RunDeterministic(t *testing.T) {
	for _, kind := range []string{KeyKindSeq, KeyKindUUID, KeyKindULID} {
		for _, dist := range []string{DistUniform, DistZipf} {
			cfg := testConfig()
			cfg.KeyKind = kind
			cfg.Distribution = dist

			r1, err := NewRunner(cfg)
			assert.Nil(t, err)
			res1, err := r1.Run(context.Background())
			assert.Nil(t, err)

			r2, err := NewRunner(cfg)
			assert.Nil(t, err)
			res2, err := r2.Run(context.Background())
			assert.Nil(t, err)

			// the latencies differ between the runs, the workload must not
			res1.Elapsed, res1.P50, res1.P90, res1.P99, res1.Max = 0, 0, 0, 0, 0
			res2.Elapsed, res2.P50, res2.P90, res2.P99, res2.Max = 0, 0, 0, 0, 0
			assert.Equal(t, res1, res2, "kind=%s dist=%s", kind, dist)
		}
	}
}

func TestRunner_ZipfSkew(t *testing.T) {
	// the zipf draw concentrates on the head of the population, so the hit rate
	// must beat the uniform one for the same capacity/keys ratio
	cfg := testConfig()
	cfg.Keys = 1024
	cfg.Ops = 20000
	uni, err := NewRunner(cfg)
	assert.Nil(t, err)
	uniRes, err := uni.Run(context.Background())
	assert.Nil(t, err)

	cfg.Distribution = DistZipf
	zipf, err := NewRunner(cfg)
	assert.Nil(t, err)
	zipfRes, err := zipf.Run(context.Background())
	assert.Nil(t, err)

	assert.True(t, zipfRes.Hits > uniRes.Hits, "zipf hits=%d, uniform hits=%d", zipfRes.Hits, uniRes.Hits)
}

func TestRunner_Canceled(t *testing.T) {
	r, err := NewRunner(testConfig())
	assert.Nil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Run(ctx)
	assert.ErrorIs(t, err, errors.ErrCanceled)
}

func TestRunner_Paced(t *testing.T) {
	cfg := testConfig()
	cfg.Ops = 50
	cfg.Rate = 1000
	r, err := NewRunner(cfg)
	assert.Nil(t, err)

	res, err := r.Run(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, 50, res.Ops)
	// the op #49 must not start earlier than 49ms after the first one
	assert.True(t, res.Elapsed >= 49*time.Millisecond, "elapsed=%s", res.Elapsed)
}

func TestRunner_PacedCanceled(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = 10
	r, err := NewRunner(cfg)
	assert.Nil(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	res, err := r.Run(ctx)
	assert.ErrorIs(t, err, errors.ErrCanceled)
	assert.True(t, res.Ops < cfg.Ops)
}

func TestRunner_Records(t *testing.T) {
	cfg := testConfig()
	cfg.Ops = 500
	r, err := NewRunner(cfg)
	assert.Nil(t, err)

	cr := &countingRecorder{}
	r.SetRecorder(cr)
	res, err := r.Run(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, res.Ops, len(cr.ops))

	adds := 0
	for _, op := range cr.ops {
		assert.NotEmpty(t, op.Key)
		if op.Code == trace.OpAdd {
			assert.NotEmpty(t, op.Value)
			adds++
		}
	}
	assert.Equal(t, res.Adds, adds)
}

func TestRunner_RecorderFails(t *testing.T) {
	r, err := NewRunner(testConfig())
	assert.Nil(t, err)
	r.SetRecorder(&countingRecorder{fail: true})
	_, err = r.Run(context.Background())
	assert.ErrorIs(t, err, errors.ErrClosed)
}

func TestRunner_RecordReplayRoundTrip(t *testing.T) {
	dir, err := os.MkdirTemp("", "TestRunner_RecordReplayRoundTrip")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)

	cfg := testConfig()
	cfg.Ops = 1000
	r, err := NewRunner(cfg)
	assert.Nil(t, err)

	fn := filepath.Join(dir, "workload.trace")
	w, err := trace.NewWriter(fn, cfg.Capacity)
	assert.Nil(t, err)
	r.SetRecorder(w)
	res, err := r.Run(context.Background())
	assert.Nil(t, err)
	assert.Nil(t, w.Close())

	tr, err := trace.OpenReader(fn)
	assert.Nil(t, err)
	defer tr.Close()
	assert.Equal(t, cfg.Capacity, tr.Capacity())
	assert.Equal(t, res.Ops, tr.Total())

	// the replay of the recorded workload repeats the run outcome exactly
	rres, err := trace.Replay(tr)
	assert.Nil(t, err)
	assert.Equal(t, res.Ops, rres.Ops)
	assert.Equal(t, res.Adds, rres.Adds)
	assert.Equal(t, res.Gets, rres.Gets)
	assert.Equal(t, res.Peeks, rres.Peeks)
	assert.Equal(t, res.Removes, rres.Removes)
	assert.Equal(t, res.Hits, rres.Hits)
	assert.Equal(t, res.Misses, rres.Misses)
	assert.Equal(t, res.Evictions, rres.Evictions)
}

func TestRunner_StorageTarget(t *testing.T) {
	cfg := testConfig()
	cfg.Ops = 1000
	r, err := NewRunnerWithTarget(cfg, NewStorageTarget(context.Background(), inmem.New()))
	assert.Nil(t, err)

	res, err := r.Run(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, 1000, res.Ops)
	assert.Equal(t, res.Gets+res.Peeks, res.Hits+res.Misses)
	// the storage reports no evictions, the counters come from the cached layer then
	assert.Equal(t, 0, res.Evictions)
	assert.True(t, res.Hits > 0)
}
