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

// Package relational holds the per-timepoint relational operators. Binary operators are keyed on
// the common variables of their operands and rely on the exchange pacts returned with them.
package relational

import (
	"github.com/numaproj/numamon/pkg/dataflow"
	"github.com/numaproj/numamon/pkg/types"
)

// Condition compares a column either with a constant or with another column.
type Condition struct {
	Column int
	// Other is the second column when Columns is set, otherwise Const is used
	Other   int
	Columns bool
	Const   types.Constant
}

// Holds reports whether the tuple satisfies the condition.
func (c Condition) Holds(t types.Tuple) bool {
	if c.Columns {
		return t[c.Column] == t[c.Other]
	}
	return t[c.Column] == c.Const
}

// mapper applies a tuple function and follows its input frontier.
type mapper struct {
	fn func(types.Tuple) (types.Tuple, bool)
}

func (m *mapper) OnRecords(out *dataflow.Output, _ int, records []types.Record) {
	for _, r := range records {
		if t, ok := m.fn(r.Tuple); ok {
			out.Emit(r.TP, t)
		}
	}
}

func (m *mapper) OnFrontier(out *dataflow.Output, _ int, frontier types.Timepoint) {
	out.Downgrade(frontier)
}

// NewProjection keeps the given columns, in order. Multiplicity is preserved.
func NewProjection(columns []int) dataflow.Operator {
	return &mapper{fn: func(t types.Tuple) (types.Tuple, bool) {
		return t.Project(columns), true
	}}
}

// NewFilter keeps the tuples satisfying cond, or the ones violating it when negated.
func NewFilter(cond Condition, negated bool) dataflow.Operator {
	return &mapper{fn: func(t types.Tuple) (types.Tuple, bool) {
		return t, cond.Holds(t) != negated
	}}
}

// NewExtend appends a copy of column source.
func NewExtend(source int) dataflow.Operator {
	return &mapper{fn: func(t types.Tuple) (types.Tuple, bool) {
		out := make(types.Tuple, len(t), len(t)+1)
		copy(out, t)
		return append(out, t[source]), true
	}}
}

// NewRemap keeps the tuples satisfying every condition and projects them on columns. It
// instantiates a let-bound stream under a new argument list.
func NewRemap(conds []Condition, columns []int) dataflow.Operator {
	return &mapper{fn: func(t types.Tuple) (types.Tuple, bool) {
		for _, c := range conds {
			if !c.Holds(t) {
				return nil, false
			}
		}
		return t.Project(columns), true
	}}
}
