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

// Package script implements a small language for describing cache workloads together
// with the expected cache state. A script is a sequence of operations (new, add, get,
// peek, remove, clear, resize) mixed with the expectations (expect ...), which are
// checked by the Engine while the script runs:
//
//	new 2
//	add k1 v1
//	add k2 v2
//	expect first v2
//	add k3 v3
//	expect evicted k1 v1
//
// Keys and values are written as bare words, numbers or quoted strings. Everything
// from # to the end of the line is a comment.
package script

import (
	"fmt"
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"strings"
)

type (
	// Script is an AST element which describes the whole script - a sequence of statements
	Script struct {
		Stmts []*Statement `parser:"{ @@ }"`
	}

	// Statement is an AST element which holds exactly one operation or one expectation
	Statement struct {
		Pos lexer.Position

		New    *int      `parser:"  \"new\" @Number"`
		Add    *KeyValue `parser:"| \"add\" @@"`
		Get    *string   `parser:"| \"get\" @(Ident|String|Number)"`
		Peek   *string   `parser:"| \"peek\" @(Ident|String|Number)"`
		Remove *string   `parser:"| \"remove\" @(Ident|String|Number)"`
		Clear  bool      `parser:"| @\"clear\""`
		Resize *int      `parser:"| \"resize\" @Number"`
		Expect *Expect   `parser:"| \"expect\" @@"`
	}

	// KeyValue is a pair of the arguments for the statements which take both a key and a value
	KeyValue struct {
		Key   string `parser:"@(Ident|String|Number)"`
		Value string `parser:"@(Ident|String|Number)"`
	}

	// Expect is an AST element which describes one check of the cache state. The first and
	// the last expectations may come with no value, this case they check that the cache has
	// no entries at the corresponding end. The evicted and the none expectations refer to
	// the outcome of the latest add operation
	Expect struct {
		First    bool      `parser:"  @\"first\""`
		FirstVal *string   `parser:"  [ @(Ident|String|Number) ]"`
		Last     bool      `parser:"| @\"last\""`
		LastVal  *string   `parser:"  [ @(Ident|String|Number) ]"`
		Len      *int      `parser:"| \"len\" @Number"`
		Empty    bool      `parser:"| @\"empty\""`
		Value    *KeyValue `parser:"| \"value\" @@"`
		Absent   *string   `parser:"| \"absent\" @(Ident|String|Number)"`
		Evicted  *KeyValue `parser:"| \"evicted\" @@"`
		None     bool      `parser:"| @\"none\""`
	}
)

var (
	scriptLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: `Keyword`, Pattern: `(?i)\b(new|add|get|peek|remove|clear|resize|expect|first|last|len|empty|value|absent|evicted|none)\b`},
		{Name: `Ident`, Pattern: `[a-zA-Z_][a-zA-Z0-9_.:/-]*`},
		{Name: `Number`, Pattern: `[-+]?\d+`},
		{Name: `String`, Pattern: `'[^']*'|"[^"]*"`},
		{Name: "comment", Pattern: `#[^\n]*`},
		{Name: "whitespace", Pattern: `\s+`},
	})

	parser = participle.MustBuild[Script](
		participle.Lexer(scriptLexer),
		participle.Unquote("String"),
		participle.CaseInsensitive("Keyword"),
	)
)

// Parse parses the text and in case of success returns the Script AST
func Parse(text string) (*Script, error) {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return &Script{}, nil
	}
	s, err := parser.ParseString("", text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse the script: %w", err)
	}
	return s, nil
}

// String returns the canonical form of the statement, which is used in the error
// messages
func (st *Statement) String() string {
	switch {
	case st.New != nil:
		return fmt.Sprintf("new %d", *st.New)
	case st.Add != nil:
		return fmt.Sprintf("add %s %s", quoteArg(st.Add.Key), quoteArg(st.Add.Value))
	case st.Get != nil:
		return fmt.Sprintf("get %s", quoteArg(*st.Get))
	case st.Peek != nil:
		return fmt.Sprintf("peek %s", quoteArg(*st.Peek))
	case st.Remove != nil:
		return fmt.Sprintf("remove %s", quoteArg(*st.Remove))
	case st.Clear:
		return "clear"
	case st.Resize != nil:
		return fmt.Sprintf("resize %d", *st.Resize)
	case st.Expect != nil:
		return "expect " + st.Expect.String()
	}
	return "?"
}

// String returns the canonical form of the expectation
func (exp *Expect) String() string {
	switch {
	case exp.First:
		if exp.FirstVal == nil {
			return "first"
		}
		return "first " + quoteArg(*exp.FirstVal)
	case exp.Last:
		if exp.LastVal == nil {
			return "last"
		}
		return "last " + quoteArg(*exp.LastVal)
	case exp.Len != nil:
		return fmt.Sprintf("len %d", *exp.Len)
	case exp.Empty:
		return "empty"
	case exp.Value != nil:
		return fmt.Sprintf("value %s %s", quoteArg(exp.Value.Key), quoteArg(exp.Value.Value))
	case exp.Absent != nil:
		return "absent " + quoteArg(*exp.Absent)
	case exp.Evicted != nil:
		return fmt.Sprintf("evicted %s %s", quoteArg(exp.Evicted.Key), quoteArg(exp.Evicted.Value))
	case exp.None:
		return "none"
	}
	return "?"
}

// quoteArg quotes the key or the value if it cannot be written as a bare word
func quoteArg(s string) string {
	if strings.ContainsAny(s, " \t\n'\"#") || s == "" {
		return fmt.Sprintf("%q", s)
	}
	return s
}
