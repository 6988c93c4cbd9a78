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

package dataflow

import (
	"sort"

	"go.uber.org/zap"

	"github.com/numaproj/numamon/pkg/types"
)

// Harness drives a single operator instance without a runtime. It is meant for operator tests.
type Harness struct {
	op        Operator
	out       *Output
	collected []types.Record
}

// NewHarness wraps op with the given number of input ports, on worker 0 of 1.
func NewHarness(op Operator, ports int) *Harness {
	return NewWorkerHarness(op, ports, WorkerInfo{Index: 0, Peers: 1})
}

// NewWorkerHarness wraps op as if it ran on the given worker.
func NewWorkerHarness(op Operator, ports int, info WorkerInfo) *Harness {
	h := &Harness{
		op:  op,
		out: newOutput("harness", info, ports, zap.NewNop().Sugar()),
	}
	if init, ok := op.(Initializer); ok {
		init.Init(h.out)
		h.collect()
	}
	return h
}

func (h *Harness) collect() {
	h.collected = append(h.collected, h.out.drain()...)
}

// Push delivers records on a port.
func (h *Harness) Push(port int, records ...types.Record) {
	h.op.OnRecords(h.out, port, records)
	h.collect()
}

// Advance moves the frontier of a port; frontiers that do not move are ignored.
func (h *Harness) Advance(port int, frontier types.Timepoint) {
	if frontier <= h.out.frontiers[port] {
		return
	}
	h.out.frontiers[port] = frontier
	h.op.OnFrontier(h.out, port, frontier)
	h.collect()
}

// Token is the operator's progress token.
func (h *Harness) Token() types.Timepoint {
	return h.out.token
}

// Drain returns the records emitted since the last call.
func (h *Harness) Drain() []types.Record {
	c := h.collected
	h.collected = nil
	return c
}

// Results groups everything emitted so far by timepoint, tuples sorted. Draining is not affected.
func (h *Harness) Results() map[types.Timepoint][]types.Tuple {
	return GroupRecords(h.collected)
}

// GroupRecords groups records by timepoint with sorted tuples.
func GroupRecords(records []types.Record) map[types.Timepoint][]types.Tuple {
	out := make(map[types.Timepoint][]types.Tuple)
	for _, r := range records {
		out[r.TP] = append(out[r.TP], r.Tuple)
	}
	for _, ts := range out {
		types.SortTuples(ts)
	}
	return out
}

// SortRecords orders records by timepoint then tuple.
func SortRecords(records []types.Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].TP != records[j].TP {
			return records[i].TP < records[j].TP
		}
		return records[i].Tuple.Compare(records[j].Tuple) < 0
	})
}
