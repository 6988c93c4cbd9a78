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

// Package jsonquery implements the JSON query leaf: raw JSON records are filtered by a boolean
// expression and every alias expression becomes one column of the output tuple.
package jsonquery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/numaproj/numamon/pkg/dataflow"
	"github.com/numaproj/numamon/pkg/shared/expr"
	"github.com/numaproj/numamon/pkg/shared/logging"
	"github.com/numaproj/numamon/pkg/sources/fact"
	"github.com/numaproj/numamon/pkg/types"
)

// Alias binds a variable to an expression over the record.
type Alias struct {
	Var  string
	Expr string
}

type column struct {
	name    string
	program *expr.Program
}

// Query is a compiled JSON query. It holds no per-worker state and may be shared by leaves.
type Query struct {
	source  string
	filter  *expr.Program
	columns []column
}

// Compile compiles the query and the aliases. An empty query accepts every record.
func Compile(query string, aliases []Alias) (*Query, error) {
	q := &Query{source: query}
	if query != "" {
		p, err := expr.Compile(query)
		if err != nil {
			return nil, err
		}
		q.filter = p
	}
	schema := types.Schema{}
	for _, a := range aliases {
		if a.Var == "" {
			return nil, fmt.Errorf("alias without a variable for expression '%s'", a.Expr)
		}
		if schema.Contains(a.Var) {
			return nil, fmt.Errorf("variable %s is bound twice", a.Var)
		}
		p, err := expr.Compile(a.Expr)
		if err != nil {
			return nil, err
		}
		schema = append(schema, a.Var)
		q.columns = append(q.columns, column{name: a.Var, program: p})
	}
	return q, nil
}

// Schema returns the variables bound by the query, in alias order.
func (q *Query) Schema() types.Schema {
	s := make(types.Schema, len(q.columns))
	for i, c := range q.columns {
		s[i] = c.name
	}
	return s
}

func (q *Query) eval(raw []byte) (types.Tuple, bool, error) {
	if q.filter != nil {
		keep, err := q.filter.EvalBool(raw)
		if err != nil || !keep {
			return nil, false, err
		}
	}
	t := make(types.Tuple, len(q.columns))
	for i, c := range q.columns {
		v, err := c.program.Eval(raw)
		if err != nil {
			return nil, false, err
		}
		if t[i], err = types.FromValue(v); err != nil {
			return nil, false, fmt.Errorf("column %s: %w", c.name, err)
		}
	}
	return t, true, nil
}

// Leaf is the operator of a JSON query leaf. It consumes the raw line stream on port 0.
type Leaf struct {
	query *Query
	seen  map[types.Timepoint]map[string]struct{}
	log   *zap.SugaredLogger
}

// NewLeaf returns a leaf evaluating q.
func NewLeaf(ctx context.Context, q *Query) *Leaf {
	return &Leaf{
		query: q,
		seen:  make(map[types.Timepoint]map[string]struct{}),
		log:   logging.FromContext(ctx).With("query", q.source),
	}
}

func (l *Leaf) OnRecords(out *dataflow.Output, _ int, records []types.Record) {
	for _, r := range records {
		if len(r.Tuple) != 1 {
			continue
		}
		line, ok := r.Tuple[0].AsString()
		if !ok || !fact.IsRecordLine(line) {
			continue
		}
		t, ok, err := l.query.eval([]byte(line))
		if err != nil {
			evalErrors.WithLabelValues(out.Name()).Inc()
			l.log.Errorw("Failed to evaluate record", "tp", r.TP, "line", line, zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		seen, found := l.seen[r.TP]
		if !found {
			seen = make(map[string]struct{})
			l.seen[r.TP] = seen
		}
		k := t.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out.Emit(r.TP, t)
	}
}

func (l *Leaf) OnFrontier(out *dataflow.Output, _ int, frontier types.Timepoint) {
	for tp := range l.seen {
		if tp < frontier {
			delete(l.seen, tp)
		}
	}
	out.Downgrade(frontier)
}
