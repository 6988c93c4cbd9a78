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
	"fmt"

	"github.com/numaproj/numamon/pkg/dataflow"
	"github.com/numaproj/numamon/pkg/types"
)

// Antijoin emits the left tuples whose key has no right tuple at the same timepoint. Left tuples
// wait until the right frontier passes their timepoint.
type Antijoin struct {
	align types.Alignment
	right map[types.Timepoint]map[string]struct{}
	stash map[types.Timepoint][]types.Tuple
}

// NewAntijoin requires the right variables to be a subset of the left ones; the output schema is l.
func NewAntijoin(l, r types.Schema) (*Antijoin, error) {
	if !r.SubsetOf(l) {
		return nil, fmt.Errorf("antijoin right variables %s are not a subset of %s", r, l)
	}
	return &Antijoin{
		align: types.Align(l, r),
		right: make(map[types.Timepoint]map[string]struct{}),
		stash: make(map[types.Timepoint][]types.Tuple),
	}, nil
}

func (a *Antijoin) Pacts() (dataflow.Pact, dataflow.Pact) {
	return KeyPacts(a.align)
}

func (a *Antijoin) OnRecords(out *dataflow.Output, port int, records []types.Record) {
	if port == PortRight {
		for _, rec := range records {
			set, ok := a.right[rec.TP]
			if !ok {
				set = make(map[string]struct{})
				a.right[rec.TP] = set
			}
			set[rec.Tuple.Project(a.align.Right).Key()] = struct{}{}
		}
		return
	}
	rf := out.Frontier(PortRight)
	for _, rec := range records {
		if rec.TP < rf {
			a.emit(out, rec.TP, rec.Tuple)
			continue
		}
		a.stash[rec.TP] = append(a.stash[rec.TP], rec.Tuple)
	}
}

func (a *Antijoin) emit(out *dataflow.Output, tp types.Timepoint, t types.Tuple) {
	if _, found := a.right[tp][t.Project(a.align.Left).Key()]; !found {
		out.Emit(tp, t)
	}
}

func (a *Antijoin) OnFrontier(out *dataflow.Output, _ int, _ types.Timepoint) {
	rf := out.Frontier(PortRight)
	minStash := types.Infinity
	for tp, tuples := range a.stash {
		if tp < rf {
			for _, t := range tuples {
				a.emit(out, tp, t)
			}
			delete(a.stash, tp)
			continue
		}
		if tp < minStash {
			minStash = tp
		}
	}
	f := types.MinTimepoint(out.Frontier(PortLeft), minStash)
	for tp := range a.right {
		if tp < f {
			delete(a.right, tp)
		}
	}
	out.Downgrade(f)
}
