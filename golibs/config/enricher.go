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
	"github.com/cachekit/cachekit/golibs/logging"
	"github.com/ghodss/yaml"
	"os"
	"reflect"
	"strconv"
	"strings"
)

type (
	// Enricher interface provides the helper functions to build a configuration structure
	// of the type T from several sources one by one: the hard-coded defaults, a YAML or
	// JSON file, the environment variables etc.
	//
	// The following contract is applied to the type T:
	//   - only the exported fields will be updated
	//   - a field may have the standard json:"..." annotation, this case the JSON name works
	//     as an alias for the field, so the field may be addressed either way
	//   - the fields names and aliases are case-insensitive when addressed by key-value paths
	//   - the same (JSON name) annotations define the fields names in the YAML files
	Enricher[T any] interface {
		// LoadFromFile loads the structure fields from the YAML or JSON file. The format
		// is selected by the file extension (.json or .yaml)
		LoadFromFile(fileName string) error

		// LoadFromJSONFile reads the jsonFileName content and unmarshals it as JSON into
		// the structure. The empty file name is ignored and nil is returned right away
		LoadFromJSONFile(jsonFileName string) error

		// LoadFromYAMLFile reads the yamlFileName content and unmarshals it as YAML into
		// the structure. The empty file name is ignored and nil is returned right away
		LoadFromYAMLFile(yamlFileName string) error

		// ApplyOther applies the value of the other enricher, created for the same type T,
		// on top of the current one. The apply is deep, all the e's fields that are not
		// zero overwrite the fields of the current enricher value
		ApplyOther(e Enricher[T]) error

		// ApplyEnvVariables scans the environment variables and applies the ones that start
		// from the prefix. A variable name forms the path to the target field, the path
		// elements are separated by the sep, for example with the prefix "CACHEKIT" and the
		// sep "_" the variable CACHEKIT_CACHE_CAPACITY addresses the field Cache.Capacity.
		//
		// The variables values should be JSON values. For the simple types like numbers or
		// strings the plain form is fine (123, hello world), the complex types like slices,
		// maps or structs should be encoded as JSON, for example:
		//
		//	CACHEKIT_STORE={"type": "redis", "address": "127.0.0.1:6379"}
		//
		// If both a variable for a struct and a variable for its field are present, the
		// apply order between them is not defined, so such combinations should be avoided
		ApplyEnvVariables(prefix, sep string) error

		// ApplyKeyValues applies the key-value pairs to the structure. The keys are treated
		// the same way as the variables names in ApplyEnvVariables
		ApplyKeyValues(prefix, sep string, keyValues map[string]string)

		// Value returns the enricher current value
		Value() T
	}

	enricher[T any] struct {
		log logging.Logger
		val T
	}
)

// NewEnricher constructs new Enricher for the type T, which must be a struct
func NewEnricher[T any](val T) Enricher[T] {
	tp := reflect.TypeOf(val)
	if tp.Kind() != reflect.Struct {
		panic(fmt.Sprintf("only structs are acceptable in the Enricher, but got the type %s", tp.Kind()))
	}
	return newEnricher(val)
}

func (e *enricher[T]) LoadFromFile(fileName string) error {
	if fileName == "" {
		e.log.Infof("no config file name is provided, skip the loading")
		return nil
	}

	fn := strings.Trim(strings.ToLower(fileName), " ")
	switch {
	case strings.HasSuffix(fn, ".yaml"):
		return e.LoadFromYAMLFile(fileName)
	case strings.HasSuffix(fn, ".json"):
		return e.LoadFromJSONFile(fileName)
	default:
		return fmt.Errorf("cannot recognize file format %s, expecting .json or .yaml: %w", fileName, errors.ErrInvalid)
	}
}

func (e *enricher[T]) LoadFromJSONFile(jsonFileName string) error {
	if jsonFileName == "" {
		e.log.Infof("the function LoadFromJSONFile() is called with empty file name value, do nothing")
		return nil
	}

	e.log.Infof("reading JSON data from %s", jsonFileName)
	buf, err := os.ReadFile(jsonFileName)
	if err != nil {
		return fmt.Errorf("could not read file %s: %w", jsonFileName, err)
	}
	if err = json.Unmarshal(buf, &e.val); err != nil {
		return fmt.Errorf("could not unmarshal json file(%s): %w", jsonFileName, err)
	}
	return nil
}

func (e *enricher[T]) LoadFromYAMLFile(yamlFileName string) error {
	if yamlFileName == "" {
		e.log.Infof("the function LoadFromYAMLFile() is called with empty file name value, do nothing")
		return nil
	}

	e.log.Infof("reading YAML data from %s", yamlFileName)
	buf, err := os.ReadFile(yamlFileName)
	if err != nil {
		return fmt.Errorf("could not read file %s: %w", yamlFileName, err)
	}
	if err = yaml.Unmarshal(buf, &e.val); err != nil {
		return fmt.Errorf("could not unmarshal yaml file(%s): %w", yamlFileName, err)
	}
	return nil
}

func (e *enricher[T]) ApplyOther(other Enricher[T]) error {
	otherE := other.(*enricher[T])
	otherVal := &otherE.val
	otherT := reflect.TypeOf(otherVal)
	eVal := &e.val
	targetT := reflect.TypeOf(eVal)
	if otherT != targetT {
		return fmt.Errorf("types are incompatible, the current enricher type is %s, the other enricher type is %s", targetT, otherT)
	}
	return e.applyNonZero(reflect.ValueOf(otherVal), reflect.ValueOf(eVal))
}

func (e *enricher[T]) ApplyEnvVariables(prefix, sep string) error {
	e.log.Infof("apply environment variables with the prefix %s", prefix)
	rawEnv := os.Environ()
	env := make(map[string]string)
	for _, v := range rawEnv {
		parts := strings.SplitN(v, "=", 2)
		if len(parts) != 2 {
			e.log.Warnf("the environment variable %s is not valid, skip it", v)
			continue
		}
		env[strings.ToLower(parts[0])] = parts[1]
	}
	e.ApplyKeyValues(prefix, sep, env)
	return nil
}

func (e *enricher[T]) ApplyKeyValues(prefix, sep string, keyValues map[string]string) {
	sep = strings.ToUpper(sep)
	pfx := envPrefix(prefix, sep)
	for key, value := range keyValues {
		key := strings.ToUpper(key)
		if !strings.HasPrefix(key, pfx) {
			continue
		}
		ok := e.assignPath(&e.val, key[len(pfx):], sep, value)
		if ok {
			e.log.Debugf("updating target value by the key=%s, value=%s", key, value)
		} else {
			e.log.Debugf("the key=%s with value=%s cannot be applied (no matched fields)", key, value)
		}
		e.log.Infof("applying variable %s: %t", key, ok)
	}
}

func (e *enricher[T]) Value() T {
	return e.val
}

func newEnricher[T any](val T) *enricher[T] {
	e := new(enricher[T])
	e.val = val
	e.log = logging.NewLogger("config.enricher." + reflect.TypeOf(val).Name())
	return e
}

func envPrefix(prefix, sep string) string {
	if prefix == "" {
		return ""
	}
	return strings.ToUpper(prefix) + strings.ToUpper(sep)
}

// applyNonZero walks the other value recursively and overwrites the target fields by
// all the other's fields that are not zero
func (e *enricher[T]) applyNonZero(other, target reflect.Value) error {
	if other.IsZero() {
		return nil
	}
	if other.Type().Kind() == reflect.Ptr {
		if target.IsNil() {
			target.Set(reflect.New(target.Type().Elem()))
		}
		return e.applyNonZero(other.Elem(), target.Elem())
	}
	if other.Type().Kind() != reflect.Struct {
		target.Set(other)
		return nil
	}
	for fi := 0; fi < other.NumField(); fi++ {
		if err := e.applyNonZero(other.Field(fi), target.Field(fi)); err != nil {
			return err
		}
	}
	return nil
}

// assignPath assigns the field addressed by the path to the value v, which is a JSON
// encoded string. s must be a pointer to a structure, the path contains the fields
// names or their aliases (json:"name,..." annotation) separated by the sep. The nil
// pointers on the way are allocated, but only if the path is finally resolved.
//
// It returns true if the value was found and set, or false if the path was not found.
// The function panics if the target field cannot be changed
func (e *enricher[T]) assignPath(s any, path, sep string, v string) bool {
	tp := reflect.TypeOf(s)
	if !isStructPtr(tp) {
		e.log.Warnf("could not assign value for the non-structure type")
		return false
	}
	val := reflect.ValueOf(s)

	fieldName := path
	if idx := strings.Index(path, sep); idx > -1 {
		fieldName = path[:idx]
		path = path[idx+len(sep):]
	} else {
		path = ""
	}
	if fieldName == "" {
		e.log.Warnf("could not assign value for the empty field name")
		return false
	}

	for fi := 0; fi < val.Elem().NumField(); fi++ {
		f := val.Elem().Field(fi)
		fTags := string(tp.Elem().Field(fi).Tag)
		fName := strings.ToUpper(tp.Elem().Field(fi).Name)
		if fieldName != fName && fieldName != jsonAlias(fTags) {
			continue
		}
		if path != "" {
			obj := f.Interface()
			oVal := reflect.ValueOf(obj)
			oType := reflect.TypeOf(obj)
			res := false
			if oType.Kind() != reflect.Ptr {
				objptr := reflect.New(oType)
				objptr.Elem().Set(oVal)
				res = e.assignPath(objptr.Interface(), path, sep, v)
				obj = objptr.Elem().Interface()
				oVal = reflect.ValueOf(obj)
			} else {
				if oVal.IsNil() {
					obj = reflect.New(oType.Elem()).Interface()
				}
				res = e.assignPath(obj, path, sep, v)
				oVal = reflect.ValueOf(obj)
			}
			if res {
				f.Set(oVal)
			}
			return res
		}
		if !f.CanSet() {
			panic(fmt.Sprintf("could not set value to the field %s, it is not settable", fName))
		}
		if err := setFieldFromString(f, v); err != nil {
			panic(fmt.Sprintf("could not set value %s to the field %s: %s", v, fName, err))
		}
		return true
	}
	return false
}

func isStructPtr(t reflect.Type) bool {
	return t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct
}

// setFieldFromString assigns the string s to the field. The numerical and string values
// are accepted as is, all the other types should be encoded as JSON, for example:
//
//	int: 1234
//	string: la la la
//	[]string: ["aaa", "bbbb"]
//	map[int]string: {1: "sss"}
func setFieldFromString(field reflect.Value, s string) error {
	if len(s) == 0 {
		return nil
	}

	obj := reflect.New(field.Type()).Interface()
	if isStringKind(field.Type()) && !isQuoted(s) {
		s = strconv.Quote(s)
	}

	if err := json.Unmarshal([]byte(s), obj); err != nil {
		return err
	}

	field.Set(reflect.ValueOf(obj).Elem())
	return nil
}

func isQuoted(s string) bool {
	s = strings.Trim(s, " ")
	if len(s) < 2 {
		return false
	}
	return s[0] == '"' && s[len(s)-1] == '"'
}

func isStringKind(tp reflect.Type) bool {
	if tp.Kind() == reflect.Ptr {
		return isStringKind(tp.Elem())
	}
	return tp.Kind() == reflect.String
}

// jsonAlias returns the upper-cased first name from the json:"..." annotation if it
// is found in the tags
func jsonAlias(tags string) string {
	name := "json"
	if len(name) >= len(tags) {
		return ""
	}

	i := strings.Index(tags, name)
	if i < 0 {
		return ""
	}

	tags = tags[i+len(name):]
	tags = strings.TrimLeft(tags, " ")
	if len(tags) == 0 || tags[0] != ':' {
		return ""
	}
	tags = strings.TrimLeft(tags[1:], " ")

	if len(tags) == 0 || tags[0] != '"' {
		return ""
	}
	tags = tags[1:]

	for i = 0; i < len(tags) && tags[i] != '"'; i++ {
		if tags[i] == '\\' {
			i++
		}
	}
	if i >= len(tags) {
		return ""
	}

	tags = tags[:i]
	idx := strings.Index(tags, ",")
	if idx == -1 {
		return strings.ToUpper(tags)
	}
	return strings.ToUpper(tags[:idx])
}
