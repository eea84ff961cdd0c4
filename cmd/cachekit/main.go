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

// The cachekit command is the console tool around the cache toolkit. It executes
// the scenario scripts (run), generates, records and replays the synthetic
// workloads (bench) and prints the build information (version).
package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/cachekit/cachekit/golibs/cast"
	cctx "github.com/cachekit/cachekit/golibs/context"
	"github.com/cachekit/cachekit/golibs/errors"
	"github.com/cachekit/cachekit/golibs/kvs"
	kvsbuntdb "github.com/cachekit/cachekit/golibs/kvs/buntdb"
	kvsinmem "github.com/cachekit/cachekit/golibs/kvs/inmem"
	kvsredis "github.com/cachekit/cachekit/golibs/kvs/redis"
	kvss3 "github.com/cachekit/cachekit/golibs/kvs/s3"
	"github.com/cachekit/cachekit/golibs/logging"
	"github.com/cachekit/cachekit/pkg/bench"
	"github.com/cachekit/cachekit/pkg/cached"
	"github.com/cachekit/cachekit/pkg/script"
	"github.com/cachekit/cachekit/pkg/trace"
	"github.com/cachekit/cachekit/pkg/version"
	"github.com/davecgh/go-spew/spew"
	"github.com/go-redis/redis/v8"
	"github.com/logrange/linker"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	cfg      *Config
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "cachekit",
		Short:        "cachekit runs, records and measures the LRU cache workloads",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				// the version command must not depend on the config
				return nil
			}
			var err error
			cfg, err = BuildConfig(cfgFile)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			lvl, err := parseLogLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			logging.SetLevel(lvl)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "the configuration file path (.yaml or .json)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "the logging level: error, warn, info, debug or trace")
	root.AddCommand(newRunCmd(), newBenchCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.BuildVersionString())
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <script> [<script> ...]",
		Short: "Execute the cache scenario scripts",
		Long: `Execute the cache scenario scripts one by one. A script is a sequence of the
cache operations (new, add, get, peek, remove, clear, resize) mixed with the
expectations about the cache state (expect first, last, len, empty, value,
absent, evicted, none). The cache survives between the files, so one scenario
may be split into several scripts. The command fails on the first expectation
which does not hold.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewLogger("run")
			engine := script.NewEngine()
			for _, fn := range args {
				buf, err := os.ReadFile(fn)
				if err != nil {
					return fmt.Errorf("could not read the script %s: %w", fn, err)
				}
				s, err := script.Parse(cast.ByteArrayToString(buf))
				if err != nil {
					return fmt.Errorf("%s: %w", fn, err)
				}
				n, err := engine.Exec(s)
				if err != nil {
					return fmt.Errorf("%s: %w", fn, err)
				}
				log.Infof("%s: %d statements executed", fn, n)
			}
			fmt.Printf("OK, %d scripts executed\n", len(args))
			return nil
		},
	}
}

// benchFlags keeps the bench command flag values before they are merged into the
// workload config
type benchFlags struct {
	capacity  int
	keys      int
	keyKind   string
	dist      string
	ops       int
	rate      int
	addPct    int
	getPct    int
	peekPct   int
	removePct int
	seed      int64
	store     string
	record    string
	replay    string
}

func newBenchCmd() *cobra.Command {
	var bf benchFlags
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the synthetic workload and print the counters and the latency percentiles",
		Long: `Run the synthetic workload against the cache and print the operation counters
and the latency percentiles. The workload may be executed through a storage
(--store) with the read-through record cache in front of it, recorded into a
trace file (--record) or replayed from the one recorded before (--replay).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewLogger("bench")
			ctx := cctx.NewSignalsContext(os.Interrupt, syscall.SIGTERM)

			if bf.replay != "" {
				r, err := trace.OpenReader(bf.replay)
				if err != nil {
					return err
				}
				defer r.Close()
				log.Infof("replaying %s: capacity=%d, total=%d", bf.replay, r.Capacity(), r.Total())
				res, err := trace.Replay(r)
				if err != nil {
					return err
				}
				fmt.Println(res)
				return nil
			}

			log.Infof(spew.Sprint(cfg))
			bcfg := cfg.Bench
			applyBenchFlags(cmd, &bf, &bcfg)

			var runner *bench.Runner
			var cs *cached.Storage
			if bf.store == "" || bf.store == "none" {
				r, err := bench.NewRunner(bcfg)
				if err != nil {
					return err
				}
				runner = r
			} else {
				strg, err := newStore(bf.store)
				if err != nil {
					return err
				}
				cs, err = cached.NewStorage(cached.Config{CacheSize: cfg.Store.CacheSize}, strg)
				if err != nil {
					return err
				}
				inj := linker.New()
				inj.Register(linker.Component{Name: "", Value: cs})
				inj.Init(ctx)
				defer inj.Shutdown()

				runner, err = bench.NewRunnerWithTarget(bcfg, bench.NewStorageTarget(ctx, cs))
				if err != nil {
					return err
				}
			}

			if bf.record != "" {
				w, err := trace.NewWriter(bf.record, bcfg.Capacity)
				if err != nil {
					return err
				}
				defer func() {
					if err := w.Close(); err != nil {
						log.Warnf("could not close the trace %s: %v", bf.record, err)
					}
				}()
				runner.SetRecorder(w)
			}

			res, err := runner.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Println(res)
			if cs != nil {
				fmt.Println(cs.Stats())
			}
			return nil
		},
	}

	def := bench.DefaultConfig()
	fl := cmd.Flags()
	fl.IntVar(&bf.capacity, "capacity", def.Capacity, "the capacity of the cache under the workload")
	fl.IntVar(&bf.keys, "keys", def.Keys, "the size of the key population")
	fl.StringVar(&bf.keyKind, "key-kind", def.KeyKind, "the key generator: seq, uuid or ulid")
	fl.StringVar(&bf.dist, "dist", def.Distribution, "the key distribution: uniform or zipf")
	fl.IntVar(&bf.ops, "ops", def.Ops, "the number of the operations to execute")
	fl.IntVar(&bf.rate, "rate", def.Rate, "the operations per second cap, 0 means no limit")
	fl.IntVar(&bf.addPct, "add-pct", def.AddPct, "the share of the add operations, in percents")
	fl.IntVar(&bf.getPct, "get-pct", def.GetPct, "the share of the get operations, in percents")
	fl.IntVar(&bf.peekPct, "peek-pct", def.PeekPct, "the share of the peek operations, in percents")
	fl.IntVar(&bf.removePct, "remove-pct", def.RemovePct, "the share of the remove operations, in percents")
	fl.Int64Var(&bf.seed, "seed", 0, "the workload randomness seed, 0 means the current time")
	fl.StringVar(&bf.store, "store", "none", "the storage to run the workload through: none, inmem, buntdb, redis or s3")
	fl.StringVar(&bf.record, "record", "", "the file to record the executed operations to")
	fl.StringVar(&bf.replay, "replay", "", "the trace file to replay instead of generating the workload")
	return cmd
}

// applyBenchFlags overwrites the workload config values by the flags explicitly
// provided in the command line
func applyBenchFlags(cmd *cobra.Command, bf *benchFlags, bcfg *bench.Config) {
	fl := cmd.Flags()
	if fl.Changed("capacity") {
		bcfg.Capacity = bf.capacity
	}
	if fl.Changed("keys") {
		bcfg.Keys = bf.keys
	}
	if fl.Changed("key-kind") {
		bcfg.KeyKind = bf.keyKind
	}
	if fl.Changed("dist") {
		bcfg.Distribution = bf.dist
	}
	if fl.Changed("ops") {
		bcfg.Ops = bf.ops
	}
	if fl.Changed("rate") {
		bcfg.Rate = bf.rate
	}
	if fl.Changed("add-pct") {
		bcfg.AddPct = bf.addPct
	}
	if fl.Changed("get-pct") {
		bcfg.GetPct = bf.getPct
	}
	if fl.Changed("peek-pct") {
		bcfg.PeekPct = bf.peekPct
	}
	if fl.Changed("remove-pct") {
		bcfg.RemovePct = bf.removePct
	}
	if fl.Changed("seed") {
		bcfg.Seed = bf.seed
	}
}

// newStore constructs the kvs.Storage selected by the type tp
func newStore(tp string) (kvs.Storage, error) {
	switch tp {
	case "inmem":
		return kvsinmem.New(), nil
	case "buntdb":
		return kvsbuntdb.NewStorage(kvsbuntdb.Config{DBFilePath: cfg.Store.DBFilePath}), nil
	case "redis":
		return kvsredis.New(&redis.Options{Addr: cfg.Store.RedisAddress, Password: cfg.Store.RedisPassword}), nil
	case "s3":
		return &kvss3.Storage{AwsConfig: aws.NewConfig().WithRegion(cfg.Store.S3Region), Bucket: cfg.Store.S3Bucket}, nil
	}
	return nil, fmt.Errorf("unknown store type %q, expecting inmem, buntdb, redis or s3: %w", tp, errors.ErrInvalid)
}

func parseLogLevel(lvl string) (logging.Level, error) {
	switch strings.ToLower(lvl) {
	case "error":
		return logging.ERROR, nil
	case "warn":
		return logging.WARN, nil
	case "info":
		return logging.INFO, nil
	case "debug":
		return logging.DEBUG, nil
	case "trace":
		return logging.TRACE, nil
	}
	return 0, fmt.Errorf("unknown log level %q, expecting error, warn, info, debug or trace: %w", lvl, errors.ErrInvalid)
}
