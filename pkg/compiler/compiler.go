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

// Package compiler turns an evaluation plan into a dataflow graph. Every plan node becomes one
// operator node fed by the operators of its children, the fact source or the time source.
// Structurally identical sub-plans share their operator.
package compiler

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/numaproj/numamon/pkg/dataflow"
	"github.com/numaproj/numamon/pkg/index"
	"github.com/numaproj/numamon/pkg/plan"
	"github.com/numaproj/numamon/pkg/relational"
	"github.com/numaproj/numamon/pkg/shared/logging"
	"github.com/numaproj/numamon/pkg/sources/constant"
	"github.com/numaproj/numamon/pkg/sources/fact"
	"github.com/numaproj/numamon/pkg/sources/jsonquery"
	"github.com/numaproj/numamon/pkg/temporal"
	"github.com/numaproj/numamon/pkg/types"
)

// Program is a compiled plan.
type Program struct {
	Graph *dataflow.Graph
	// Facts is the source fed with raw fact and record lines
	Facts dataflow.NodeID
	// Time is the source fed with the timestamp of every timepoint
	Time   dataflow.NodeID
	Root   dataflow.NodeID
	Schema types.Schema
}

// Compile builds the graph of n with its two sources and marks the operator of n as the root.
func Compile(ctx context.Context, n plan.Node, opts ...Option) (*Program, error) {
	g := dataflow.NewGraph()
	facts := g.AddSource("facts")
	tm := g.AddSource("time")
	c, err := New(ctx, g, facts, tm, opts...)
	if err != nil {
		return nil, err
	}
	schema, root, err := c.Compile(n)
	if err != nil {
		return nil, err
	}
	if err := g.SetRoot(root); err != nil {
		return nil, err
	}
	c.log.Infow("Compiled plan", zap.String("plan", n.String()), zap.Int("operators", g.Len()), zap.String("schema", schema.String()))
	return &Program{Graph: g, Facts: facts, Time: tm, Root: root, Schema: schema}, nil
}

type stream struct {
	schema types.Schema
	id     dataflow.NodeID
}

// binding is a let-bound predicate in scope.
type binding struct {
	name   string
	params []string
	stream stream
	// perm maps a parameter position to its column in the bound stream
	perm []int
}

// Compiler adds the operators of plan nodes to a graph.
type Compiler struct {
	graph *dataflow.Graph
	facts dataflow.NodeID
	time  dataflow.NodeID
	opts  *options
	memo  map[string]stream
	lets  []binding
	log   *zap.SugaredLogger
}

// New returns a compiler adding to graph. facts and time must be sources of graph.
func New(ctx context.Context, graph *dataflow.Graph, facts, time dataflow.NodeID, opts ...Option) (*Compiler, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	for _, id := range []dataflow.NodeID{facts, time} {
		if id < 0 || int(id) >= graph.Len() || !graph.Node(id).IsSource() {
			return nil, fmt.Errorf("node %d is not a source", id)
		}
	}
	return &Compiler{
		graph: graph,
		facts: facts,
		time:  time,
		opts:  o,
		memo:  make(map[string]stream),
		log:   logging.FromContext(ctx),
	}, nil
}

// Compile adds the operators of n and returns the variables and the node of its output stream.
func (c *Compiler) Compile(n plan.Node) (types.Schema, dataflow.NodeID, error) {
	s, err := c.compile(n)
	if err != nil {
		return nil, 0, err
	}
	return s.schema, s.id, nil
}

func (c *Compiler) compile(n plan.Node) (stream, error) {
	if n == nil {
		return stream{}, fmt.Errorf("%w: missing node", ErrUnsupportedPlan)
	}
	key := plan.Key(n) + c.scope(n)
	if s, ok := c.memo[key]; ok {
		return s, nil
	}
	s, err := c.build(n)
	if err != nil {
		return stream{}, err
	}
	c.memo[key] = s
	return s, nil
}

// scope identifies the let bindings n reads; the same sub-plan under different bindings is a
// different stream, while a sub-plan reading none is shared across every let body.
func (c *Compiler) scope(n plan.Node) string {
	if len(c.lets) == 0 {
		return ""
	}
	var b strings.Builder
	for _, name := range plan.FreePredicates(n) {
		if l, ok := c.lookup(name); ok {
			fmt.Fprintf(&b, "|%s=%d", l.name, l.stream.id)
		}
	}
	return b.String()
}

func (c *Compiler) build(n plan.Node) (stream, error) {
	switch n := n.(type) {
	case *plan.Fact:
		if b, ok := c.lookup(n.Name); ok {
			return c.instantiate(b, n)
		}
		return c.factLeaf(n)
	case *plan.JSONQuery:
		return c.jsonQuery(n)
	case *plan.Join:
		l, r, err := c.pair(n.Left, n.Right)
		if err != nil {
			return stream{}, err
		}
		proto, schema := relational.NewJoin(l.schema, r.schema)
		lp, rp := proto.Pacts()
		return c.add("join", schema, func(context.Context, dataflow.WorkerInfo) dataflow.Operator {
			j, _ := relational.NewJoin(l.schema, r.schema)
			return j
		}, dataflow.Input{From: l.id, Pact: lp}, dataflow.Input{From: r.id, Pact: rp})
	case *plan.Union:
		if isEmpty(n.Right) {
			return c.compile(n.Left)
		}
		if isEmpty(n.Left) {
			return c.compile(n.Right)
		}
		l, r, err := c.pair(n.Left, n.Right)
		if err != nil {
			return stream{}, err
		}
		proto, err := relational.NewUnion(l.schema, r.schema)
		if err != nil {
			return stream{}, invalid(n, err)
		}
		lp, rp := proto.Pacts()
		return c.add("union", l.schema, func(context.Context, dataflow.WorkerInfo) dataflow.Operator {
			u, _ := relational.NewUnion(l.schema, r.schema)
			return u
		}, dataflow.Input{From: l.id, Pact: lp}, dataflow.Input{From: r.id, Pact: rp})
	case *plan.Antijoin:
		if isEmpty(n.Right) {
			return c.compile(n.Left)
		}
		l, r, err := c.pair(n.Left, n.Right)
		if err != nil {
			return stream{}, err
		}
		proto, err := relational.NewAntijoin(l.schema, r.schema)
		if err != nil {
			return stream{}, invalid(n, err)
		}
		lp, rp := proto.Pacts()
		return c.add("antijoin", l.schema, func(context.Context, dataflow.WorkerInfo) dataflow.Operator {
			a, _ := relational.NewAntijoin(l.schema, r.schema)
			return a
		}, dataflow.Input{From: l.id, Pact: lp}, dataflow.Input{From: r.id, Pact: rp})
	case *plan.Project:
		return c.project(n)
	case *plan.Extend:
		in, err := c.compile(n.Input)
		if err != nil {
			return stream{}, err
		}
		src := in.schema.Index(n.From)
		if src < 0 {
			return stream{}, invalid(n, fmt.Errorf("unknown variable %q", n.From))
		}
		if in.schema.Contains(n.Var) {
			return stream{}, invalid(n, fmt.Errorf("variable %q is already bound", n.Var))
		}
		schema := append(append(types.Schema{}, in.schema...), n.Var)
		return c.add("extend", schema, func(context.Context, dataflow.WorkerInfo) dataflow.Operator {
			return relational.NewExtend(src)
		}, dataflow.Input{From: in.id})
	case *plan.Filter:
		return c.filter(n)
	case *plan.Next:
		return c.shift("next"+n.Interval.String(), n.Input, func() dataflow.Operator {
			return temporal.NewNext(n.Interval)
		})
	case *plan.Prev:
		return c.shift("previous"+n.Interval.String(), n.Input, func() dataflow.Operator {
			return temporal.NewPrevious(n.Interval)
		})
	case *plan.Once:
		return c.window(n.Input, n.Interval, n.Dedup, false)
	case *plan.Eventually:
		return c.window(n.Input, n.Interval, n.Dedup, true)
	case *plan.Since:
		mode := index.Since
		if n.Negated {
			mode = index.NegSince
		}
		return c.binary(mode, n.Interval, n.Dedup, n.Left, n.Right)
	case *plan.Until:
		mode := index.Until
		if n.Negated {
			mode = index.NegUntil
		}
		return c.binary(mode, n.Interval, n.Dedup, n.Left, n.Right)
	case *plan.Full:
		return c.add("true", types.Schema{}, func(context.Context, dataflow.WorkerInfo) dataflow.Operator {
			return constant.NewFull()
		}, dataflow.Input{From: c.time})
	case *plan.Empty:
		return c.add("false", types.Schema{}, func(context.Context, dataflow.WorkerInfo) dataflow.Operator {
			return constant.NewEmpty()
		})
	case *plan.Equals:
		return c.add("equals:"+n.Var, types.Schema{n.Var}, func(context.Context, dataflow.WorkerInfo) dataflow.Operator {
			return constant.NewEquals(n.Const)
		}, dataflow.Input{From: c.time})
	case *plan.VarEquals:
		return stream{}, invalid(n, fmt.Errorf("variable equality is only valid inside an extension or a filter"))
	case *plan.Error:
		return stream{}, fmt.Errorf("%w: %s", ErrPlanError, n.Message)
	case *plan.Let:
		return c.let(n)
	default:
		return stream{}, fmt.Errorf("%w: %T", ErrUnsupportedPlan, n)
	}
}

func invalid(n plan.Node, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInvalidPlan, n, err)
}

func isEmpty(n plan.Node) bool {
	_, ok := n.(*plan.Empty)
	return ok
}

func isFull(n plan.Node) bool {
	_, ok := n.(*plan.Full)
	return ok
}

func (c *Compiler) dedup(d *bool) bool {
	if d == nil {
		return c.opts.dedup
	}
	return *d
}

func (c *Compiler) add(name string, schema types.Schema, factory dataflow.Factory, inputs ...dataflow.Input) (stream, error) {
	id, err := c.graph.AddNode(name, factory, inputs...)
	if err != nil {
		return stream{}, err
	}
	c.log.Debugw("Added operator", zap.Int("id", int(id)), zap.String("name", name), zap.String("schema", schema.String()))
	return stream{schema: schema, id: id}, nil
}

func (c *Compiler) pair(left, right plan.Node) (stream, stream, error) {
	l, err := c.compile(left)
	if err != nil {
		return stream{}, stream{}, err
	}
	r, err := c.compile(right)
	if err != nil {
		return stream{}, stream{}, err
	}
	return l, r, nil
}

func (c *Compiler) factLeaf(n *plan.Fact) (stream, error) {
	p := fact.Pattern{Name: n.Name, Args: make([]fact.Arg, len(n.Args))}
	for i, a := range n.Args {
		p.Args[i] = fact.Arg{Var: a.Var, Const: a.Const}
	}
	size := c.opts.cacheSize
	return c.add("fact:"+p.String(), p.Schema(), func(ctx context.Context, _ dataflow.WorkerInfo) dataflow.Operator {
		return fact.NewLeaf(ctx, p, size)
	}, dataflow.Input{From: c.facts})
}

func (c *Compiler) jsonQuery(n *plan.JSONQuery) (stream, error) {
	aliases := make([]jsonquery.Alias, len(n.Aliases))
	for i, a := range n.Aliases {
		aliases[i] = jsonquery.Alias{Var: a.Var, Expr: a.Expr}
	}
	q, err := jsonquery.Compile(n.Query, aliases)
	if err != nil {
		return stream{}, invalid(n, err)
	}
	return c.add("jsonquery", q.Schema(), func(ctx context.Context, _ dataflow.WorkerInfo) dataflow.Operator {
		return jsonquery.NewLeaf(ctx, q)
	}, dataflow.Input{From: c.facts})
}

func (c *Compiler) project(n *plan.Project) (stream, error) {
	in, err := c.compile(n.Input)
	if err != nil {
		return stream{}, err
	}
	schema := types.Schema{}
	for _, v := range n.Vars {
		if schema.Contains(v) {
			return stream{}, invalid(n, fmt.Errorf("variable %q is kept twice", v))
		}
		schema = append(schema, v)
	}
	cols, err := in.schema.Indices(n.Vars)
	if err != nil {
		return stream{}, invalid(n, err)
	}
	return c.add("project", schema, func(context.Context, dataflow.WorkerInfo) dataflow.Operator {
		return relational.NewProjection(cols)
	}, dataflow.Input{From: in.id})
}

func (c *Compiler) filter(n *plan.Filter) (stream, error) {
	in, err := c.compile(n.Input)
	if err != nil {
		return stream{}, err
	}
	cond := relational.Condition{Column: in.schema.Index(n.Cond.Var), Const: n.Cond.Const}
	if cond.Column < 0 {
		return stream{}, invalid(n, fmt.Errorf("unknown variable %q", n.Cond.Var))
	}
	if n.Cond.Other != "" {
		cond.Other = in.schema.Index(n.Cond.Other)
		cond.Columns = true
		if cond.Other < 0 {
			return stream{}, invalid(n, fmt.Errorf("unknown variable %q", n.Cond.Other))
		}
	}
	name := "filter"
	if n.Negated {
		name = "negfilter"
	}
	return c.add(name, in.schema, func(context.Context, dataflow.WorkerInfo) dataflow.Operator {
		return relational.NewFilter(cond, n.Negated)
	}, dataflow.Input{From: in.id})
}

func (c *Compiler) shift(name string, input plan.Node, op func() dataflow.Operator) (stream, error) {
	in, err := c.compile(input)
	if err != nil {
		return stream{}, err
	}
	return c.add(name, in.schema, func(context.Context, dataflow.WorkerInfo) dataflow.Operator {
		return op()
	}, dataflow.Input{From: in.id}, dataflow.Input{From: c.time})
}

func (c *Compiler) window(input plan.Node, i types.Interval, d *bool, future bool) (stream, error) {
	in, err := c.compile(input)
	if err != nil {
		return stream{}, err
	}
	dedup := c.dedup(d)
	name := "once" + i.String()
	if future {
		name = "eventually" + i.String()
	}
	return c.add(name, in.schema, func(context.Context, dataflow.WorkerInfo) dataflow.Operator {
		if future {
			return temporal.NewEventually(i, dedup)
		}
		return temporal.NewOnce(i, dedup)
	}, dataflow.Input{From: in.id, Pact: dataflow.Pact{Kind: dataflow.Exchange}}, dataflow.Input{From: c.time})
}

func (c *Compiler) binary(mode index.Mode, i types.Interval, d *bool, left, right plan.Node) (stream, error) {
	negated := mode == index.NegSince || mode == index.NegUntil
	future := mode == index.Until || mode == index.NegUntil
	// TRUE SINCE ψ and NOT FALSE SINCE ψ are ONCE ψ, and likewise for UNTIL
	if (!negated && isFull(left)) || (negated && isEmpty(left)) {
		return c.window(right, i, d, future)
	}
	l, r, err := c.pair(left, right)
	if err != nil {
		return stream{}, err
	}
	dedup := c.dedup(d)
	proto, err := temporal.NewBinary(mode, i, dedup, l.schema, r.schema)
	if err != nil {
		return stream{}, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	lp, rp := proto.Pacts()
	return c.add(mode.String()+i.String(), r.schema, func(context.Context, dataflow.WorkerInfo) dataflow.Operator {
		b, _ := temporal.NewBinary(mode, i, dedup, l.schema, r.schema)
		return b
	}, dataflow.Input{From: l.id, Pact: lp}, dataflow.Input{From: r.id, Pact: rp}, dataflow.Input{From: c.time})
}

func (c *Compiler) let(n *plan.Let) (stream, error) {
	bound, err := c.compile(n.Bound)
	if err != nil {
		return stream{}, err
	}
	params := types.Schema{}
	for _, p := range n.Params {
		if params.Contains(p) {
			return stream{}, fmt.Errorf("%w: %s: parameter %q is repeated", ErrMissingLet, n.Name, p)
		}
		params = append(params, p)
	}
	if !params.SameSet(bound.schema) {
		return stream{}, fmt.Errorf("%w: %s(%s) binds %s", ErrMissingLet, n.Name, params, bound.schema)
	}
	perm, err := bound.schema.Indices(params)
	if err != nil {
		return stream{}, fmt.Errorf("%w: %w", ErrMissingLet, err)
	}
	c.lets = append(c.lets, binding{name: n.Name, params: params, stream: bound, perm: perm})
	defer func() {
		c.lets = c.lets[:len(c.lets)-1]
	}()
	return c.compile(n.In)
}

func (c *Compiler) lookup(name string) (binding, bool) {
	for i := len(c.lets) - 1; i >= 0; i-- {
		if c.lets[i].name == name {
			return c.lets[i], true
		}
	}
	return binding{}, false
}

// instantiate rewrites the bound stream of b under the arguments of f: constants and repeated
// variables become conditions, the remaining variables are kept in order of first occurrence.
func (c *Compiler) instantiate(b binding, f *plan.Fact) (stream, error) {
	if len(f.Args) != len(b.params) {
		return stream{}, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrLetArity, b.name, len(b.params), len(f.Args))
	}
	var conds []relational.Condition
	var cols []int
	schema := types.Schema{}
	first := make(map[string]int)
	for i, a := range f.Args {
		col := b.perm[i]
		if !a.IsVar() {
			conds = append(conds, relational.Condition{Column: col, Const: a.Const})
			continue
		}
		if prev, ok := first[a.Var]; ok {
			conds = append(conds, relational.Condition{Column: prev, Other: col, Columns: true})
			continue
		}
		first[a.Var] = col
		schema = append(schema, a.Var)
		cols = append(cols, col)
	}
	return c.add("let:"+f.String(), schema, func(context.Context, dataflow.WorkerInfo) dataflow.Operator {
		return relational.NewRemap(conds, cols)
	}, dataflow.Input{From: b.stream.id})
}
