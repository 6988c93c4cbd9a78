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

package fact

import (
	"fmt"
	"strings"

	"github.com/numaproj/numamon/pkg/types"
)

// Fact is a parsed fact line.
type Fact struct {
	Name string
	Args []types.Constant
}

// Parse reads `name(arg, ...)`. A bare `name` is a fact without arguments. Arguments are split on
// top level commas: commas inside quoted strings or JSON values do not separate arguments.
func Parse(line string) (Fact, error) {
	line = strings.TrimSpace(line)
	open := strings.IndexByte(line, '(')
	if open < 0 {
		if !validName(line) {
			return Fact{}, fmt.Errorf("malformed fact %q", line)
		}
		return Fact{Name: line}, nil
	}
	name := strings.TrimSpace(line[:open])
	if !validName(name) || !strings.HasSuffix(line, ")") {
		return Fact{}, fmt.Errorf("malformed fact %q", line)
	}
	body := strings.TrimSpace(line[open+1 : len(line)-1])
	f := Fact{Name: name}
	if body == "" {
		return f, nil
	}
	parts, err := splitArgs(body)
	if err != nil {
		return Fact{}, fmt.Errorf("malformed fact %q: %w", line, err)
	}
	for _, p := range parts {
		c, err := types.ParseConstant(p)
		if err != nil {
			return Fact{}, fmt.Errorf("malformed fact %q: %w", line, err)
		}
		f.Args = append(f.Args, c)
	}
	return f, nil
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r == '(' || r == ')' || r == ',' || r == '"' || r == ' ' || r == '\t' {
			return false
		}
	}
	return true
}

func splitArgs(body string) ([]string, error) {
	var (
		parts   []string
		depth   int
		quoted  bool
		escaped bool
		start   int
	)
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case escaped:
			escaped = false
		case quoted:
			switch c {
			case '\\':
				escaped = true
			case '"':
				quoted = false
			}
		case c == '"':
			quoted = true
		case c == '{' || c == '[':
			depth++
		case c == '}' || c == ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced %q at %d", c, i)
			}
		case c == ',' && depth == 0:
			parts = append(parts, body[start:i])
			start = i + 1
		}
	}
	if quoted || depth != 0 {
		return nil, fmt.Errorf("unterminated argument")
	}
	return append(parts, body[start:]), nil
}
