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
package container

import (
	"github.com/stretchr/testify/assert"
	"sort"
	"testing"
)

func TestKeys(t *testing.T) {
	assert.Nil(t, Keys[string, int](nil))
	assert.Nil(t, Keys(map[string]int{}))

	keys := Keys(map[string]int{"a": 1, "b": 2, "c": 3})
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}
