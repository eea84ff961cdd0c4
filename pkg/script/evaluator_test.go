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

package script

import (
	"github.com/cachekit/cachekit/golibs/errors"
	"github.com/stretchr/testify/assert"
	"os"
	"path/filepath"
	"testing"
)

func TestEngine_Exec(t *testing.T) {
	e := NewEngine()
	n, err := e.Exec(mustParse(t, "new 2\nadd k1 v1\nadd k2 v2\nexpect first v2\nexpect last v1"))
	assert.Nil(t, err)
	assert.Equal(t, 5, n)

	// the cache and the latest add outcome survive between the calls
	n, err = e.Exec(mustParse(t, "add k3 v3\nexpect evicted k1 v1"))
	assert.Nil(t, err)
	assert.Equal(t, 2, n)
}

func TestEngine_ExecNoCache(t *testing.T) {
	_, err := NewEngine().Exec(mustParse(t, "add k1 v1"))
	assert.ErrorIs(t, err, errors.ErrInvalid)

	_, err = NewEngine().Exec(mustParse(t, "expect empty"))
	assert.ErrorIs(t, err, errors.ErrInvalid)
}

func TestEngine_ExecWrongCapacity(t *testing.T) {
	_, err := NewEngine().Exec(mustParse(t, "new -1"))
	assert.ErrorIs(t, err, errors.ErrInvalid)

	_, err = NewEngine().Exec(mustParse(t, "new 2\nresize -5"))
	assert.ErrorIs(t, err, errors.ErrInvalid)
}

func TestEngine_ExecFailedExpect(t *testing.T) {
	n, err := NewEngine().Exec(mustParse(t, "new 2\nadd k1 v1\nexpect first v2"))
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, errors.ErrConflict)
	assert.Contains(t, err.Error(), "line 3")

	_, err = NewEngine().Exec(mustParse(t, "new 2\nexpect first"))
	assert.Nil(t, err)

	_, err = NewEngine().Exec(mustParse(t, "new 2\nadd k1 v1\nexpect first"))
	assert.ErrorIs(t, err, errors.ErrConflict)
}

func TestEngine_ExecChecks(t *testing.T) {
	testCheckOk(t, "new 2\nadd a 1\nexpect value a 1\nexpect len 1\nexpect absent b")
	testCheckOk(t, "new 2\nadd a 1\nremove a\nexpect empty\nexpect last")
	testCheckFails(t, "new 2\nexpect len 1")
	testCheckFails(t, "new 2\nadd a 1\nexpect empty")
	testCheckFails(t, "new 2\nadd a 1\nexpect value a 2")
	testCheckFails(t, "new 2\nexpect value a 1")
	testCheckFails(t, "new 2\nadd a 1\nexpect absent a")
	testCheckFails(t, "new 2\nadd a 1\nexpect evicted a 1")
	testCheckFails(t, "new 2\nexpect last v")
	testCheckFails(t, "new 1\nadd a 1\nadd b 2\nexpect none")
	testCheckFails(t, "new 1\nadd a 1\nadd b 2\nexpect evicted b 2")
}

func TestEngine_ExecScripts(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.script"))
	assert.Nil(t, err)
	assert.NotEmpty(t, files)
	for _, f := range files {
		buf, err := os.ReadFile(f)
		assert.Nil(t, err)
		s, err := Parse(string(buf))
		assert.Nil(t, err, "could not parse %s", f)
		_, err = NewEngine().Exec(s)
		assert.Nil(t, err, "the script %s must pass", f)
	}
}

func mustParse(t *testing.T, text string) *Script {
	s, err := Parse(text)
	assert.Nil(t, err)
	return s
}

func testCheckOk(t *testing.T, text string) {
	_, err := NewEngine().Exec(mustParse(t, text))
	assert.Nil(t, err, "the script %q must pass", text)
}

func testCheckFails(t *testing.T, text string) {
	_, err := NewEngine().Exec(mustParse(t, text))
	assert.ErrorIs(t, err, errors.ErrConflict, "the script %q must fail", text)
}
