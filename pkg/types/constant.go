/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package types

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Kind is the tag of a Constant.
type Kind uint8

const (
	KindInt Kind = iota
	KindString
	KindJSON
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Constant is a single attribute value. It is comparable, so it can be used directly as a map key.
// JSON constants hold their canonical (compact, key-sorted) encoding.
type Constant struct {
	kind Kind
	i    int64
	s    string
}

// Int returns an integer constant.
func Int(v int64) Constant {
	return Constant{kind: KindInt, i: v}
}

// Str returns a string constant.
func Str(v string) Constant {
	return Constant{kind: KindString, s: v}
}

// JSON returns an opaque JSON constant holding the canonical encoding of raw.
func JSON(raw []byte) (Constant, error) {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return Constant{}, fmt.Errorf("invalid json constant %q: %w", string(raw), err)
	}
	return JSONValue(v)
}

// JSONValue returns a JSON constant for an already decoded value.
func JSONValue(v interface{}) (Constant, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Constant{}, fmt.Errorf("failed to encode json constant: %w", err)
	}
	return Constant{kind: KindJSON, s: string(b)}, nil
}

// FromValue converts a decoded JSON/expr value into a constant: integral numbers become
// integers, strings stay strings, and everything else is kept as opaque JSON.
func FromValue(v interface{}) (Constant, error) {
	switch x := v.(type) {
	case int:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float64:
		if x == math.Trunc(x) && x >= math.MinInt64 && x < math.MaxInt64 {
			return Int(int64(x)), nil
		}
		return JSONValue(x)
	case json.Number:
		if c, err := number(x.String()); err == nil {
			return c, nil
		}
		return Constant{kind: KindJSON, s: x.String()}, nil
	case string:
		return Str(x), nil
	case Constant:
		return x, nil
	default:
		return JSONValue(x)
	}
}

// number reads a JSON number literal the same way for fact arguments, plan constants and query
// results: integral values are integers, the others JSON numbers in their shortest form.
func number(lit string) (Constant, error) {
	if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return Int(i), nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Constant{}, fmt.Errorf("invalid number %s: %w", lit, err)
	}
	return FromValue(f)
}

func isNumber(tok string) bool {
	return (tok[0] == '-' || tok[0] >= '0' && tok[0] <= '9') && json.Valid([]byte(tok))
}

// ParseConstant reads a fact argument: a number, a double quoted string, a JSON object/array,
// or a bare word which is taken as a string.
func ParseConstant(tok string) (Constant, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return Constant{}, fmt.Errorf("empty constant")
	}
	if isNumber(tok) {
		if c, err := number(tok); err == nil {
			return c, nil
		}
	}
	switch tok[0] {
	case '"':
		s, err := strconv.Unquote(tok)
		if err != nil {
			return Constant{}, fmt.Errorf("invalid string constant %s: %w", tok, err)
		}
		return Str(s), nil
	case '{', '[':
		return JSON([]byte(tok))
	}
	return Str(tok), nil
}

func (c Constant) Kind() Kind {
	return c.kind
}

// AsInt returns the integer value and whether the constant is an integer.
func (c Constant) AsInt() (int64, bool) {
	return c.i, c.kind == KindInt
}

// AsString returns the string value (or canonical JSON text) and whether the constant is not an integer.
func (c Constant) AsString() (string, bool) {
	return c.s, c.kind != KindInt
}

// Value returns a plain Go value usable in expressions.
func (c Constant) Value() interface{} {
	switch c.kind {
	case KindInt:
		return c.i
	case KindString:
		return c.s
	default:
		var v interface{}
		if err := json.Unmarshal([]byte(c.s), &v); err != nil {
			return c.s
		}
		return v
	}
}

// Compare orders constants: integers before strings before JSON, natural order within a kind.
func (c Constant) Compare(o Constant) int {
	if c.kind != o.kind {
		if c.kind < o.kind {
			return -1
		}
		return 1
	}
	if c.kind == KindInt {
		switch {
		case c.i < o.i:
			return -1
		case c.i > o.i:
			return 1
		}
		return 0
	}
	return strings.Compare(c.s, o.s)
}

// Literal renders the constant the way it is written in facts and plans.
func (c Constant) Literal() string {
	switch c.kind {
	case KindInt:
		return strconv.FormatInt(c.i, 10)
	case KindString:
		return strconv.Quote(c.s)
	default:
		return c.s
	}
}

// String renders the constant for verdict output: strings are printed bare.
func (c Constant) String() string {
	if c.kind == KindString {
		return c.s
	}
	return c.Literal()
}

func (c Constant) appendKey(b []byte) []byte {
	b = append(b, byte(c.kind))
	if c.kind == KindInt {
		return strconv.AppendInt(b, c.i, 10)
	}
	b = strconv.AppendInt(b, int64(len(c.s)), 10)
	b = append(b, ':')
	return append(b, c.s...)
}
