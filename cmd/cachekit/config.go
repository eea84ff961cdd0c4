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

package main

import (
	"encoding/json"
	"fmt"

	"github.com/cachekit/cachekit/golibs/config"
	"github.com/cachekit/cachekit/golibs/logging"
	"github.com/cachekit/cachekit/pkg/bench"
)

type (
	// Config defines the cachekit command configuration
	Config struct {
		// LogLevel is one of "error", "warn", "info", "debug" or "trace"
		LogLevel string
		// Bench defines the default workload parameters for the bench command,
		// the command flags overwrite them
		Bench bench.Config
		// Store defines the storage the bench workload runs through when the
		// --store flag selects one
		Store StoreConfig
	}

	// StoreConfig defines the storage settings for the bench command
	StoreConfig struct {
		// CacheSize is the capacity of the read-through record cache put in front
		// of the storage
		CacheSize int
		// DBFilePath is the buntdb database file path, the empty value means the
		// in-memory database
		DBFilePath string
		// RedisAddress is the address of the redis server
		RedisAddress string
		// RedisPassword is the password of the redis server, may be empty
		RedisPassword string
		// S3Bucket is the name of the AWS S3 bucket the records are stored in
		S3Bucket string
		// S3Region is the AWS region of the S3Bucket
		S3Region string
	}
)

// getDefaultConfig returns the default cachekit config
func getDefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Bench:    bench.DefaultConfig(),
		Store: StoreConfig{
			CacheSize:    1000,
			RedisAddress: "127.0.0.1:6379",
			S3Region:     "us-east-1",
		},
	}
}

// BuildConfig builds the config from the default values, the cfgFile (if provided)
// and the CACHEKIT_* environment variables, applied in this order
func BuildConfig(cfgFile string) (*Config, error) {
	log := logging.NewLogger("cachekit.ConfigBuilder")
	log.Infof("trying to build config. cfgFile=%s", cfgFile)
	e := config.NewEnricher(*getDefaultConfig())
	fe := config.NewEnricher(Config{})
	err := fe.LoadFromFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("could not read data from the file %s: %w", cfgFile, err)
	}
	// overwrite default
	_ = e.ApplyOther(fe)
	_ = e.ApplyEnvVariables("CACHEKIT", "_")
	cfg := e.Value()
	return &cfg, nil
}

// String implements fmt.Stringify interface in a pretty console form
func (c *Config) String() string {
	b, _ := json.MarshalIndent(*c, "", "  ")
	return string(b)
}
