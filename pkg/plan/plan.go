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

// Package plan holds the evaluation plan of a policy: a closed set of node kinds produced by the
// optimizer, decoded from its JSON form.
package plan

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/numaproj/numamon/pkg/types"
)

// Node is a plan node. The set of implementations is closed: only this package defines them.
type Node interface {
	fmt.Stringer
	isNode()
	write(b *strings.Builder, key bool)
}

// Term is an argument of a fact: a variable when Var is set, a constant otherwise.
type Term struct {
	Var   string
	Const types.Constant
}

func (t Term) IsVar() bool {
	return t.Var != ""
}

func (t Term) String() string {
	if t.IsVar() {
		return t.Var
	}
	return t.Const.Literal()
}

// Var returns a variable term.
func Var(name string) Term {
	return Term{Var: name}
}

// Const returns a constant term.
func Const(c types.Constant) Term {
	return Term{Const: c}
}

// Cond is a filter condition: Var equals Const, or Var equals Other when Other is set.
type Cond struct {
	Var   string
	Other string
	Const types.Constant
}

func (c Cond) String() string {
	if c.Other != "" {
		return c.Var + "=" + c.Other
	}
	return c.Var + "=" + c.Const.Literal()
}

// Alias binds a variable to an expression of a JSON query.
type Alias struct {
	Var  string `json:"var"`
	Expr string `json:"expr"`
}

type (
	// Fact reads the base predicate Name, or instantiates the let-bound predicate of that name.
	Fact struct {
		Name string
		Args []Term
	}
	// JSONQuery filters JSON records with Query and binds one variable per alias.
	JSONQuery struct {
		Query   string
		Aliases []Alias
	}
	// Join is the natural join of both sides.
	Join struct{ Left, Right Node }
	// Union is the union of two sides with the same variables.
	Union struct{ Left, Right Node }
	// Antijoin keeps the left tuples without a matching right tuple.
	Antijoin struct{ Left, Right Node }
	// Project keeps Vars.
	Project struct {
		Vars  []string
		Input Node
	}
	// Extend appends Var as a copy of From.
	Extend struct {
		Var   string
		From  string
		Input Node
	}
	// Filter keeps the tuples satisfying Cond, or violating it when Negated.
	Filter struct {
		Cond    Cond
		Negated bool
		Input   Node
	}
	// Next holds at tp when Input holds at tp+1 within Interval.
	Next struct {
		Interval types.Interval
		Input    Node
	}
	// Prev holds at tp when Input holds at tp-1 within Interval.
	Prev struct {
		Interval types.Interval
		Input    Node
	}
	// Once holds when Input held within Interval in the past.
	Once struct {
		Interval types.Interval
		Dedup    *bool
		Input    Node
	}
	// Eventually holds when Input holds within Interval in the future.
	Eventually struct {
		Interval types.Interval
		Dedup    *bool
		Input    Node
	}
	// Since is Left SINCE Right, or NOT Left SINCE Right when Negated.
	Since struct {
		Interval types.Interval
		Dedup    *bool
		Negated  bool
		Left     Node
		Right    Node
	}
	// Until is Left UNTIL Right, or NOT Left UNTIL Right when Negated.
	Until struct {
		Interval types.Interval
		Dedup    *bool
		Negated  bool
		Left     Node
		Right    Node
	}
	// Full is true at every timepoint, without variables.
	Full struct{}
	// Empty never holds.
	Empty struct{}
	// Equals binds Var to Const at every timepoint.
	Equals struct {
		Var   string
		Const types.Constant
	}
	// VarEquals equates two variables. It is only meaningful as part of an extension or a filter.
	VarEquals struct{ Left, Right string }
	// Error is a plan the optimizer could not produce.
	Error struct{ Message string }
	// Let binds the predicate Name(Params) to Bound inside In.
	Let struct {
		Name   string
		Params []string
		Bound  Node
		In     Node
	}
)

func (*Fact) isNode()       {}
func (*JSONQuery) isNode()  {}
func (*Join) isNode()       {}
func (*Union) isNode()      {}
func (*Antijoin) isNode()   {}
func (*Project) isNode()    {}
func (*Extend) isNode()     {}
func (*Filter) isNode()     {}
func (*Next) isNode()       {}
func (*Prev) isNode()       {}
func (*Once) isNode()       {}
func (*Eventually) isNode() {}
func (*Since) isNode()      {}
func (*Until) isNode()      {}
func (*Full) isNode()       {}
func (*Empty) isNode()      {}
func (*Equals) isNode()     {}
func (*VarEquals) isNode()  {}
func (*Error) isNode()      {}
func (*Let) isNode()        {}

// Key is a canonical structural encoding of n: two nodes with the same key evaluate identically.
func Key(n Node) string {
	var b strings.Builder
	n.write(&b, true)
	return b.String()
}

func render(n Node) string {
	var b strings.Builder
	n.write(&b, false)
	return b.String()
}

func writeDedup(b *strings.Builder, d *bool, key bool) {
	if !key {
		return
	}
	switch {
	case d == nil:
		b.WriteString("{?}")
	case *d:
		b.WriteString("{dedup}")
	default:
		b.WriteString("{all}")
	}
}

func (n *Fact) write(b *strings.Builder, _ bool) {
	b.WriteString(n.Name)
	b.WriteByte('(')
	for i, a := range n.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.String())
	}
	b.WriteByte(')')
}

func (n *JSONQuery) write(b *strings.Builder, _ bool) {
	b.WriteString("JSON(")
	b.WriteString(strconv.Quote(n.Query))
	for _, a := range n.Aliases {
		b.WriteString("; ")
		b.WriteString(a.Var)
		b.WriteString(" := ")
		b.WriteString(strconv.Quote(a.Expr))
	}
	b.WriteByte(')')
}

func writeBinary(b *strings.Builder, l Node, op string, r Node, key bool) {
	b.WriteByte('(')
	l.write(b, key)
	b.WriteString(op)
	r.write(b, key)
	b.WriteByte(')')
}

func (n *Join) write(b *strings.Builder, key bool) {
	writeBinary(b, n.Left, " AND ", n.Right, key)
}

func (n *Union) write(b *strings.Builder, key bool) {
	writeBinary(b, n.Left, " OR ", n.Right, key)
}

func (n *Antijoin) write(b *strings.Builder, key bool) {
	writeBinary(b, n.Left, " AND NOT ", n.Right, key)
}

func (n *Project) write(b *strings.Builder, key bool) {
	fmt.Fprintf(b, "PROJECT[%s](", strings.Join(n.Vars, ","))
	n.Input.write(b, key)
	b.WriteByte(')')
}

func (n *Extend) write(b *strings.Builder, key bool) {
	fmt.Fprintf(b, "EXTEND[%s:=%s](", n.Var, n.From)
	n.Input.write(b, key)
	b.WriteByte(')')
}

func (n *Filter) write(b *strings.Builder, key bool) {
	op := "FILTER"
	if n.Negated {
		op = "NEGFILTER"
	}
	fmt.Fprintf(b, "%s[%s](", op, n.Cond)
	n.Input.write(b, key)
	b.WriteByte(')')
}

func writeUnary(b *strings.Builder, op string, i types.Interval, in Node, key bool, dedup ...*bool) {
	b.WriteString(op)
	b.WriteString(i.String())
	for _, d := range dedup {
		writeDedup(b, d, key)
	}
	b.WriteByte(' ')
	in.write(b, key)
}

func (n *Next) write(b *strings.Builder, key bool) {
	writeUnary(b, "NEXT", n.Interval, n.Input, key)
}

func (n *Prev) write(b *strings.Builder, key bool) {
	writeUnary(b, "PREVIOUS", n.Interval, n.Input, key)
}

func (n *Once) write(b *strings.Builder, key bool) {
	writeUnary(b, "ONCE", n.Interval, n.Input, key, n.Dedup)
}

func (n *Eventually) write(b *strings.Builder, key bool) {
	writeUnary(b, "EVENTUALLY", n.Interval, n.Input, key, n.Dedup)
}

func writeTemporal(b *strings.Builder, op string, i types.Interval, d *bool, neg bool, l, r Node, key bool) {
	b.WriteByte('(')
	if neg {
		b.WriteString("NOT ")
	}
	l.write(b, key)
	b.WriteByte(' ')
	b.WriteString(op)
	b.WriteString(i.String())
	writeDedup(b, d, key)
	b.WriteByte(' ')
	r.write(b, key)
	b.WriteByte(')')
}

func (n *Since) write(b *strings.Builder, key bool) {
	writeTemporal(b, "SINCE", n.Interval, n.Dedup, n.Negated, n.Left, n.Right, key)
}

func (n *Until) write(b *strings.Builder, key bool) {
	writeTemporal(b, "UNTIL", n.Interval, n.Dedup, n.Negated, n.Left, n.Right, key)
}

func (n *Full) write(b *strings.Builder, _ bool) {
	b.WriteString("TRUE")
}

func (n *Empty) write(b *strings.Builder, _ bool) {
	b.WriteString("FALSE")
}

func (n *Equals) write(b *strings.Builder, _ bool) {
	b.WriteString(n.Var + " = " + n.Const.Literal())
}

func (n *VarEquals) write(b *strings.Builder, _ bool) {
	b.WriteString(n.Left + " = " + n.Right)
}

func (n *Error) write(b *strings.Builder, _ bool) {
	b.WriteString("ERROR(" + strconv.Quote(n.Message) + ")")
}

func (n *Let) write(b *strings.Builder, key bool) {
	fmt.Fprintf(b, "LET %s(%s) = ", n.Name, strings.Join(n.Params, ","))
	n.Bound.write(b, key)
	b.WriteString(" IN ")
	n.In.write(b, key)
}

func (n *Fact) String() string       { return render(n) }
func (n *JSONQuery) String() string  { return render(n) }
func (n *Join) String() string       { return render(n) }
func (n *Union) String() string      { return render(n) }
func (n *Antijoin) String() string   { return render(n) }
func (n *Project) String() string    { return render(n) }
func (n *Extend) String() string     { return render(n) }
func (n *Filter) String() string     { return render(n) }
func (n *Next) String() string       { return render(n) }
func (n *Prev) String() string       { return render(n) }
func (n *Once) String() string       { return render(n) }
func (n *Eventually) String() string { return render(n) }
func (n *Since) String() string      { return render(n) }
func (n *Until) String() string      { return render(n) }
func (n *Full) String() string       { return render(n) }
func (n *Empty) String() string      { return render(n) }
func (n *Equals) String() string     { return render(n) }
func (n *VarEquals) String() string  { return render(n) }
func (n *Error) String() string      { return render(n) }
func (n *Let) String() string        { return render(n) }

// FreePredicates returns the sorted names of the predicates n reads that no let inside n binds.
func FreePredicates(n Node) []string {
	set := make(map[string]struct{})
	free(n, set)
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func free(n Node, out map[string]struct{}) {
	switch n := n.(type) {
	case *Fact:
		out[n.Name] = struct{}{}
	case *Join:
		free(n.Left, out)
		free(n.Right, out)
	case *Union:
		free(n.Left, out)
		free(n.Right, out)
	case *Antijoin:
		free(n.Left, out)
		free(n.Right, out)
	case *Since:
		free(n.Left, out)
		free(n.Right, out)
	case *Until:
		free(n.Left, out)
		free(n.Right, out)
	case *Project:
		free(n.Input, out)
	case *Extend:
		free(n.Input, out)
	case *Filter:
		free(n.Input, out)
	case *Next:
		free(n.Input, out)
	case *Prev:
		free(n.Input, out)
	case *Once:
		free(n.Input, out)
	case *Eventually:
		free(n.Input, out)
	case *Let:
		free(n.Bound, out)
		in := make(map[string]struct{})
		free(n.In, in)
		delete(in, n.Name)
		for name := range in {
			out[name] = struct{}{}
		}
	}
}
