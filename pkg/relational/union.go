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

package relational

import (
	"github.com/numaproj/numamon/pkg/dataflow"
	"github.com/numaproj/numamon/pkg/types"
)

// Union is the per-timepoint set union of two streams over the same variables. The right side is
// rewritten into the left column order.
type Union struct {
	perm []int
	seen map[types.Timepoint]map[string]struct{}
}

// NewUnion returns the union of streams with schemas l and r; the output schema is l.
func NewUnion(l, r types.Schema) (*Union, error) {
	perm, err := types.Reorder(l, r)
	if err != nil {
		return nil, err
	}
	return &Union{perm: perm, seen: make(map[types.Timepoint]map[string]struct{})}, nil
}

// Pacts route both sides by the whole tuple in the left column order.
func (u *Union) Pacts() (dataflow.Pact, dataflow.Pact) {
	return dataflow.Pact{Kind: dataflow.Exchange}, dataflow.Pact{Kind: dataflow.Exchange, Columns: u.perm}
}

func (u *Union) OnRecords(out *dataflow.Output, port int, records []types.Record) {
	for _, rec := range records {
		t := rec.Tuple
		if port == PortRight {
			t = t.Project(u.perm)
		}
		set, ok := u.seen[rec.TP]
		if !ok {
			set = make(map[string]struct{})
			u.seen[rec.TP] = set
		}
		k := t.Key()
		if _, dup := set[k]; dup {
			continue
		}
		set[k] = struct{}{}
		out.Emit(rec.TP, t)
	}
}

func (u *Union) OnFrontier(out *dataflow.Output, _ int, _ types.Timepoint) {
	f := types.MinTimepoint(out.Frontier(PortLeft), out.Frontier(PortRight))
	for tp := range u.seen {
		if tp < f {
			delete(u.seen, tp)
		}
	}
	out.Downgrade(f)
}
