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

// Package fact implements the base fact leaf: it turns raw fact lines into tuples of a predicate,
// unifying the line's constants with the argument pattern of the leaf.
package fact

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/numaproj/numamon/pkg/dataflow"
	"github.com/numaproj/numamon/pkg/shared/logging"
	"github.com/numaproj/numamon/pkg/types"
)

const defaultCacheSize = 4096

// Arg is one argument of a fact pattern: a variable or a constant.
type Arg struct {
	Var   string
	Const types.Constant
}

// IsVar reports whether the argument is a variable.
func (a Arg) IsVar() bool {
	return a.Var != ""
}

func (a Arg) String() string {
	if a.IsVar() {
		return a.Var
	}
	return a.Const.Literal()
}

// Pattern is the predicate a leaf matches.
type Pattern struct {
	Name string
	Args []Arg
}

// Schema lists the variables of the pattern in order of first occurrence.
func (p Pattern) Schema() types.Schema {
	s := types.Schema{}
	for _, a := range p.Args {
		if a.IsVar() && !s.Contains(a.Var) {
			s = append(s, a.Var)
		}
	}
	return s
}

func (p Pattern) String() string {
	args := make([]string, len(p.Args))
	for i, a := range p.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", p.Name, strings.Join(args, ","))
}

// Unify matches the arguments of a fact against the pattern and returns the bindings of the
// pattern's variables in Schema order.
func (p Pattern) Unify(args []types.Constant) (types.Tuple, bool) {
	if len(args) != len(p.Args) {
		return nil, false
	}
	bound := make(map[string]types.Constant, len(p.Args))
	out := make(types.Tuple, 0, len(p.Args))
	for i, a := range p.Args {
		if !a.IsVar() {
			if a.Const != args[i] {
				return nil, false
			}
			continue
		}
		if c, ok := bound[a.Var]; ok {
			if c != args[i] {
				return nil, false
			}
			continue
		}
		bound[a.Var] = args[i]
		out = append(out, args[i])
	}
	return out, true
}

type parsed struct {
	fact Fact
	err  error
}

// Leaf is the operator of a base fact leaf. It consumes the raw line stream on port 0.
type Leaf struct {
	pattern Pattern
	cache   *lru.Cache[string, parsed]
	// seen suppresses duplicate tuples within a timepoint
	seen map[types.Timepoint]map[string]struct{}
	log  *zap.SugaredLogger
}

// NewLeaf returns a leaf for pattern. cacheSize bounds the parsed line cache; 0 picks a default.
func NewLeaf(ctx context.Context, pattern Pattern, cacheSize int) *Leaf {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, _ := lru.New[string, parsed](cacheSize)
	return &Leaf{
		pattern: pattern,
		cache:   cache,
		seen:    make(map[types.Timepoint]map[string]struct{}),
		log:     logging.FromContext(ctx).With("pattern", pattern.String()),
	}
}

func (l *Leaf) parse(line string) parsed {
	if p, ok := l.cache.Get(line); ok {
		return p
	}
	f, err := Parse(line)
	p := parsed{fact: f, err: err}
	l.cache.Add(line, p)
	return p
}

func (l *Leaf) OnRecords(out *dataflow.Output, _ int, records []types.Record) {
	for _, r := range records {
		line, ok := lineOf(r.Tuple)
		if !ok || IsRecordLine(line) {
			continue
		}
		p := l.parse(line)
		if p.err != nil {
			l.drop(out, r.TP, line, "malformed", p.err)
			continue
		}
		if p.fact.Name != l.pattern.Name {
			continue
		}
		if len(p.fact.Args) != len(l.pattern.Args) {
			l.drop(out, r.TP, line, "arity", nil)
			continue
		}
		t, ok := l.pattern.Unify(p.fact.Args)
		if !ok {
			l.drop(out, r.TP, line, "unify", nil)
			continue
		}
		seen, ok := l.seen[r.TP]
		if !ok {
			seen = make(map[string]struct{})
			l.seen[r.TP] = seen
		}
		k := t.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		matchedFacts.WithLabelValues(out.Name()).Inc()
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

func (l *Leaf) drop(out *dataflow.Output, tp types.Timepoint, line, reason string, err error) {
	droppedFacts.WithLabelValues(out.Name(), reason).Inc()
	if err != nil {
		l.log.Debugw("Dropped fact", "tp", tp, "line", line, "reason", reason, zap.Error(err))
		return
	}
	l.log.Debugw("Dropped fact", "tp", tp, "line", line, "reason", reason)
}

func lineOf(t types.Tuple) (string, bool) {
	if len(t) != 1 {
		return "", false
	}
	return t[0].AsString()
}

// IsRecordLine reports whether a raw line is a JSON record rather than a fact.
func IsRecordLine(line string) bool {
	line = strings.TrimSpace(line)
	return strings.HasPrefix(line, "{")
}

// LineTuple wraps a raw line into the tuple carried by the fact channel.
func LineTuple(line string) types.Tuple {
	return types.Tuple{types.Str(line)}
}
