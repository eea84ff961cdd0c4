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

// Package bench generates synthetic cache workloads and runs them against a cache
// instance or a storage. A workload is described by the Config - the key population,
// the access distribution and the operation mix. The Runner executes the workload,
// collects the operation counters, samples the per-operation latencies and reports
// the Result with the percentiles over the sampled tail of the run.
package bench

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/cachekit/cachekit/golibs/container"
	"github.com/cachekit/cachekit/golibs/container/lru"
	cctx "github.com/cachekit/cachekit/golibs/context"
	"github.com/cachekit/cachekit/golibs/errors"
	"github.com/cachekit/cachekit/golibs/logging"
	"github.com/cachekit/cachekit/pkg/trace"
	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type (
	// Config describes the workload to be executed
	Config struct {
		// Capacity is the capacity of the cache under the workload
		Capacity int
		// Keys is the size of the key population the workload draws the keys from
		Keys int
		// KeyKind defines how the key population is generated, one of "seq",
		// "uuid" or "ulid"
		KeyKind string
		// Distribution defines how the keys are drawn from the population, one of
		// "uniform" or "zipf"
		Distribution string
		// Ops is the total number of the operations to be executed
		Ops int
		// Rate caps the execution speed at the given number of the operations
		// per second. If 0, the workload runs at the full speed
		Rate int
		// AddPct, GetPct, PeekPct and RemovePct define the operation mix in percents.
		// The four values must sum up to 100
		AddPct    int
		GetPct    int
		PeekPct   int
		RemovePct int
		// Seed is the seed of the workload randomness. Two runs with the same Seed
		// execute the identical sequences of operations. If 0, the current time
		// is used
		Seed int64
		// SampleSize is the number of the latest latency samples retained for the
		// percentiles calculation. If 0, the defaultSampleSize is used
		SampleSize int
	}

	// Recorder receives every operation the Runner executes. It is implemented by
	// the trace.Writer, so a workload may be recorded and replayed later
	Recorder interface {
		Write(op trace.Op) error
	}

	// Runner executes the workload described by the Config against a Target. The
	// Runner is not safe for the concurrent use
	Runner struct {
		cfg    Config
		target Target
		rec    Recorder
		logger logging.Logger
	}

	// Result accumulates the counters and the latency percentiles of one run
	Result struct {
		// Ops is the number of the operations executed
		Ops int
		// per-operation counters
		Adds    int
		Gets    int
		Peeks   int
		Removes int
		// Hits and Misses count the get and peek outcomes
		Hits   int
		Misses int
		// Evictions is the number of the adds which pulled an entry out
		Evictions int
		// Elapsed is the total run time
		Elapsed time.Duration
		// P50, P90, P99 and Max describe the per-operation latency distribution
		// over the sampled tail of the run
		P50 time.Duration
		P90 time.Duration
		P99 time.Duration
		Max time.Duration
	}
)

const (
	KeyKindSeq  = "seq"
	KeyKindUUID = "uuid"
	KeyKindULID = "ulid"

	DistUniform = "uniform"
	DistZipf    = "zipf"
)

const (
	defaultSampleSize = 16384

	// zipfS and zipfV are the parameters of the Zipf distribution, they give a
	// noticeably skewed access pattern over the populations of thousands of keys
	zipfS = 1.1
	zipfV = 1.0
)

// DefaultConfig returns the workload parameters used when the caller does not
// override them
func DefaultConfig() Config {
	return Config{
		Capacity:     1024,
		Keys:         4096,
		KeyKind:      KeyKindSeq,
		Distribution: DistUniform,
		Ops:          100000,
		AddPct:       30,
		GetPct:       50,
		PeekPct:      10,
		RemovePct:    10,
	}
}

// NewRunner returns the Runner executing the workload cfg against the fresh cache
// created with the cfg.Capacity
func NewRunner(cfg Config) (*Runner, error) {
	c, err := lru.NewCache[string, string](cfg.Capacity)
	if err != nil {
		return nil, fmt.Errorf("could not create the cache for the workload: %w", err)
	}
	return NewRunnerWithTarget(cfg, NewCoreTarget(c))
}

// NewRunnerWithTarget returns the Runner executing the workload cfg against the
// target provided
func NewRunnerWithTarget(cfg Config, target Target) (*Runner, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, target: target, logger: logging.NewLogger("bench.Runner")}, nil
}

// SetRecorder makes the Runner write every executed operation into rec. The function
// must be called before Run
func (r *Runner) SetRecorder(rec Recorder) {
	r.rec = rec
}

// Run executes the workload and returns the Result. If the cfg.Rate is set, the
// operations are paced to keep the requested speed. The run is interrupted with an
// error wrapping errors.ErrCanceled if the ctx is closed before the last operation
func (r *Runner) Run(ctx context.Context) (Result, error) {
	r.logger.Infof("running %d ops over %d %s keys (%s), capacity=%d",
		r.cfg.Ops, r.cfg.Keys, r.cfg.KeyKind, r.cfg.Distribution, r.cfg.Capacity)
	r.logger.Debugf("workload config: %s", spew.Sdump(r.cfg))

	seed := r.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := rand.New(rand.NewSource(seed))
	keys := r.genKeys(rnd)
	nextKey := r.keyPicker(rnd, len(keys))

	sampleSize := r.cfg.SampleSize
	if sampleSize == 0 {
		sampleSize = defaultSampleSize
	}
	samples := container.NewRingBuffer[time.Duration](uint(sampleSize))

	var period time.Duration
	if r.cfg.Rate > 0 {
		period = time.Second / time.Duration(r.cfg.Rate)
	}

	var res Result
	start := time.Now()
	for i := 0; i < r.cfg.Ops; i++ {
		if period > 0 {
			// the i-th operation must not start earlier than i*period after the start
			if cctx.Sleep(ctx, time.Until(start.Add(time.Duration(i)*period))) != nil {
				return res, fmt.Errorf("the run is interrupted after %d ops: %w", i, errors.ErrCanceled)
			}
		} else if i&0x3FF == 0 && ctx.Err() != nil {
			return res, fmt.Errorf("the run is interrupted after %d ops: %w", i, errors.ErrCanceled)
		}
		op := trace.Op{Key: keys[nextKey()]}
		dice := rnd.Intn(100)
		opStart := time.Now()
		switch {
		case dice < r.cfg.AddPct:
			op.Code = trace.OpAdd
			op.Value = strconv.Itoa(i)
			if r.target.Add(op.Key, op.Value) {
				res.Evictions++
			}
			res.Adds++
		case dice < r.cfg.AddPct+r.cfg.GetPct:
			op.Code = trace.OpGet
			if r.target.Get(op.Key) {
				res.Hits++
			} else {
				res.Misses++
			}
			res.Gets++
		case dice < r.cfg.AddPct+r.cfg.GetPct+r.cfg.PeekPct:
			op.Code = trace.OpPeek
			if r.target.Peek(op.Key) {
				res.Hits++
			} else {
				res.Misses++
			}
			res.Peeks++
		default:
			op.Code = trace.OpRemove
			r.target.Remove(op.Key)
			res.Removes++
		}
		samples.Push(time.Since(opStart))
		if r.rec != nil {
			if err := r.rec.Write(op); err != nil {
				return res, fmt.Errorf("could not record the op #%d: %w", i, err)
			}
		}
		res.Ops++
	}
	res.Elapsed = time.Since(start)
	fillPercentiles(&res, samples)
	r.logger.Infof("done: %s", res)
	return res, nil
}

// check verifies the Config values, any misuse is reported as an error wrapping
// errors.ErrInvalid
func (cfg Config) check() error {
	if cfg.Capacity < 0 {
		return fmt.Errorf("the capacity=%d, but it cannot be negative: %w", cfg.Capacity, errors.ErrInvalid)
	}
	if cfg.Keys < 1 {
		return fmt.Errorf("the keys=%d, but the key population cannot be empty: %w", cfg.Keys, errors.ErrInvalid)
	}
	if cfg.Ops < 0 {
		return fmt.Errorf("the ops=%d, but it cannot be negative: %w", cfg.Ops, errors.ErrInvalid)
	}
	if cfg.Rate < 0 {
		return fmt.Errorf("the rate=%d, but it cannot be negative: %w", cfg.Rate, errors.ErrInvalid)
	}
	if cfg.SampleSize < 0 {
		return fmt.Errorf("the sampleSize=%d, but it cannot be negative: %w", cfg.SampleSize, errors.ErrInvalid)
	}
	if sum := cfg.AddPct + cfg.GetPct + cfg.PeekPct + cfg.RemovePct; sum != 100 {
		return fmt.Errorf("the operation mix %d/%d/%d/%d sums up to %d, but it must be 100: %w",
			cfg.AddPct, cfg.GetPct, cfg.PeekPct, cfg.RemovePct, sum, errors.ErrInvalid)
	}
	if cfg.AddPct < 0 || cfg.GetPct < 0 || cfg.PeekPct < 0 || cfg.RemovePct < 0 {
		return fmt.Errorf("the operation mix %d/%d/%d/%d contains a negative share: %w",
			cfg.AddPct, cfg.GetPct, cfg.PeekPct, cfg.RemovePct, errors.ErrInvalid)
	}
	switch cfg.KeyKind {
	case KeyKindSeq, KeyKindUUID, KeyKindULID:
	default:
		return fmt.Errorf("unknown key kind %q, expecting %q, %q or %q: %w",
			cfg.KeyKind, KeyKindSeq, KeyKindUUID, KeyKindULID, errors.ErrInvalid)
	}
	switch cfg.Distribution {
	case DistUniform, DistZipf:
	default:
		return fmt.Errorf("unknown distribution %q, expecting %q or %q: %w",
			cfg.Distribution, DistUniform, DistZipf, errors.ErrInvalid)
	}
	return nil
}

// genKeys builds the key population. The uuid and the ulid keys are derived from the
// rnd, so the population depends on the workload seed only
func (r *Runner) genKeys(rnd *rand.Rand) []string {
	keys := make([]string, r.cfg.Keys)
	switch r.cfg.KeyKind {
	case KeyKindUUID:
		for i := range keys {
			u, err := uuid.NewRandomFromReader(rnd)
			if err != nil {
				panic(fmt.Sprintf("could not generate the uuid key #%d: %s", i, err))
			}
			keys[i] = u.String()
		}
	case KeyKindULID:
		now := ulid.Now()
		for i := range keys {
			keys[i] = ulid.MustNew(now, rnd).String()
		}
	default:
		for i := range keys {
			keys[i] = fmt.Sprintf("key-%08d", i)
		}
	}
	return keys
}

// keyPicker returns the generator of the key indexes according to the distribution
func (r *Runner) keyPicker(rnd *rand.Rand, n int) func() int {
	if r.cfg.Distribution == DistZipf {
		z := rand.NewZipf(rnd, zipfS, zipfV, uint64(n-1))
		return func() int { return int(z.Uint64()) }
	}
	return func() int { return rnd.Intn(n) }
}

// fillPercentiles reads the retained latency samples out of the buffer and fills
// the percentile fields of the res
func fillPercentiles(res *Result, samples container.RingBuffer[time.Duration]) {
	n := samples.Len()
	if n == 0 {
		return
	}
	dst := make([]time.Duration, n)
	samples.ReadN(dst)
	sort.Slice(dst, func(i, j int) bool { return dst[i] < dst[j] })
	res.P50 = dst[(n-1)*50/100]
	res.P90 = dst[(n-1)*90/100]
	res.P99 = dst[(n-1)*99/100]
	res.Max = dst[n-1]
}

// String implements fmt.Stringer
func (res Result) String() string {
	return fmt.Sprintf("Result{ops=%d, adds=%d, gets=%d, peeks=%d, removes=%d, hits=%d, misses=%d, evictions=%d, elapsed=%s, p50=%s, p90=%s, p99=%s, max=%s}",
		res.Ops, res.Adds, res.Gets, res.Peeks, res.Removes, res.Hits, res.Misses, res.Evictions,
		res.Elapsed, res.P50, res.P90, res.P99, res.Max)
}
