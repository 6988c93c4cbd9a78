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
	"fmt"
	"strings"
)

// Schema is the ordered list of variable names of a stream.
type Schema []string

// Index returns the column of v, or -1.
func (s Schema) Index(v string) int {
	for i, n := range s {
		if n == v {
			return i
		}
	}
	return -1
}

func (s Schema) Contains(v string) bool {
	return s.Index(v) >= 0
}

// SubsetOf reports whether every variable of s is a variable of o.
func (s Schema) SubsetOf(o Schema) bool {
	for _, v := range s {
		if !o.Contains(v) {
			return false
		}
	}
	return true
}

// SameSet reports whether both schemas hold the same variables, ignoring order.
func (s Schema) SameSet(o Schema) bool {
	return len(s) == len(o) && s.SubsetOf(o)
}

// Indices returns the columns of vars in s. Unknown variables are an error.
func (s Schema) Indices(vars []string) ([]int, error) {
	out := make([]int, len(vars))
	for i, v := range vars {
		j := s.Index(v)
		if j < 0 {
			return nil, fmt.Errorf("unknown variable %q in schema %s", v, s)
		}
		out[i] = j
	}
	return out, nil
}

func (s Schema) String() string {
	return "[" + strings.Join(s, ",") + "]"
}

// Alignment pairs the columns of two schemas that hold the same variable.
type Alignment struct {
	Left  []int
	Right []int
}

// Empty reports whether the schemas share no variable.
func (a Alignment) Empty() bool {
	return len(a.Left) == 0
}

// Align returns the common-variable alignment of l and r, ordered by the left column.
func Align(l, r Schema) Alignment {
	var a Alignment
	for i, v := range l {
		if j := r.Index(v); j >= 0 {
			a.Left = append(a.Left, i)
			a.Right = append(a.Right, j)
		}
	}
	return a
}

// JoinSchema returns the schema of the join of l and r: shared columns first in l's order,
// then the rest of l, then the rest of r.
func JoinSchema(l, r Schema) Schema {
	a := Align(l, r)
	out := make(Schema, 0, len(l)+len(r)-len(a.Left))
	for _, i := range a.Left {
		out = append(out, l[i])
	}
	for _, v := range l {
		if !r.Contains(v) {
			out = append(out, v)
		}
	}
	for _, v := range r {
		if !l.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// JoinLayout returns the column indices of l and r that JoinSchema appends after the shared ones.
func JoinLayout(l, r Schema) (leftRest, rightRest []int) {
	for i, v := range l {
		if !r.Contains(v) {
			leftRest = append(leftRest, i)
		}
	}
	for j, v := range r {
		if !l.Contains(v) {
			rightRest = append(rightRest, j)
		}
	}
	return leftRest, rightRest
}

// Reorder returns the permutation p such that Tuple.Project(p) rewrites a tuple of schema to
// into the column order of schema from. Both schemas must hold the same variables.
func Reorder(from, to Schema) ([]int, error) {
	if !from.SameSet(to) {
		return nil, fmt.Errorf("schemas %s and %s hold different variables", from, to)
	}
	return to.Indices(from)
}
