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
package config

import (
	"encoding/json"
	"fmt"
	"github.com/cachekit/cachekit/golibs/errors"
	"os"
)

// LoadJSONAndApply loads the flat key-value pairs from the JSON file and applies them
// to the enricher value like ApplyKeyValues does, but without a prefix. It is useful
// for applying an overrides file mounted next to the main config.
//
// Example, the file content:
//
//	{"STORE_ADDRESS": "127.0.0.1:6379"}
//
// applied to the structure:
//
//	type StoreConfig struct {
//		Address string
//	}
//
//	type Config struct {
//		Store StoreConfig
//	}
//
// sets cfg.Store.Address to "127.0.0.1:6379"
func LoadJSONAndApply[T any](e Enricher[T], path string) error {
	if path == "" {
		return fmt.Errorf("the function LoadJSONAndApply() is called with empty path value: %w", errors.ErrInvalid)
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read file %s: %w", path, err)
	}
	keyValues := map[string]string{}
	err = json.Unmarshal(buf, &keyValues)
	if err != nil {
		return fmt.Errorf("could not unmarshal json file(%s): %w", path, err)
	}
	e.ApplyKeyValues("", "_", keyValues)
	return nil
}
