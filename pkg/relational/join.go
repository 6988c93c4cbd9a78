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

const (
	PortLeft  = 0
	PortRight = 1
)

// KeyPacts routes both sides of a keyed binary operator: by the key when there is one, otherwise
// the left side by whole tuple and the right side to every worker.
func KeyPacts(a types.Alignment) (left, right dataflow.Pact) {
	if a.Empty() {
		return dataflow.Pact{Kind: dataflow.Exchange}, dataflow.Pact{Kind: dataflow.Broadcast}
	}
	return dataflow.Pact{Kind: dataflow.Exchange, Columns: a.Left}, dataflow.Pact{Kind: dataflow.Exchange, Columns: a.Right}
}

type joinState struct {
	left  map[string][]types.Tuple
	right map[string][]types.Tuple
}

// Join is the natural join of two streams per timepoint.
type Join struct {
	align     types.Alignment
	leftRest  []int
	rightRest []int
	state     map[types.Timepoint]*joinState
}

// NewJoin returns the join of streams with schemas l and r, and the output schema.
func NewJoin(l, r types.Schema) (*Join, types.Schema) {
	lr, rr := types.JoinLayout(l, r)
	return &Join{
		align:     types.Align(l, r),
		leftRest:  lr,
		rightRest: rr,
		state:     make(map[types.Timepoint]*joinState),
	}, types.JoinSchema(l, r)
}

// Pacts returns the pacts of the left and right inputs.
func (j *Join) Pacts() (dataflow.Pact, dataflow.Pact) {
	return KeyPacts(j.align)
}

func (j *Join) at(tp types.Timepoint) *joinState {
	s, ok := j.state[tp]
	if !ok {
		s = &joinState{left: make(map[string][]types.Tuple), right: make(map[string][]types.Tuple)}
		j.state[tp] = s
	}
	return s
}

func (j *Join) combine(l, r types.Tuple) types.Tuple {
	out := make(types.Tuple, 0, len(j.align.Left)+len(j.leftRest)+len(j.rightRest))
	for _, i := range j.align.Left {
		out = append(out, l[i])
	}
	for _, i := range j.leftRest {
		out = append(out, l[i])
	}
	for _, i := range j.rightRest {
		out = append(out, r[i])
	}
	return out
}

func (j *Join) OnRecords(out *dataflow.Output, port int, records []types.Record) {
	for _, rec := range records {
		s := j.at(rec.TP)
		if port == PortLeft {
			k := rec.Tuple.Project(j.align.Left).Key()
			s.left[k] = append(s.left[k], rec.Tuple)
			for _, r := range s.right[k] {
				out.Emit(rec.TP, j.combine(rec.Tuple, r))
			}
			continue
		}
		k := rec.Tuple.Project(j.align.Right).Key()
		s.right[k] = append(s.right[k], rec.Tuple)
		for _, l := range s.left[k] {
			out.Emit(rec.TP, j.combine(l, rec.Tuple))
		}
	}
}

func (j *Join) OnFrontier(out *dataflow.Output, _ int, _ types.Timepoint) {
	f := types.MinTimepoint(out.Frontier(PortLeft), out.Frontier(PortRight))
	for tp := range j.state {
		if tp < f {
			delete(j.state, tp)
		}
	}
	out.Downgrade(f)
}

// Pending is the number of timepoints holding state.
func (j *Join) Pending() int {
	return len(j.state)
}
