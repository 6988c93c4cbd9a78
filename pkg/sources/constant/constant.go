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

// Package constant holds the leaves that do not read facts: the relation true at every
// timepoint, a single constant binding at every timepoint, and the empty relation. They consume
// the time channel on port 0 to learn which timepoints exist.
package constant

import (
	"github.com/numaproj/numamon/pkg/dataflow"
	"github.com/numaproj/numamon/pkg/types"
)

// Stream emits the same tuple at every timepoint announced on the time channel. Only worker 0
// emits, so a graph running on several workers still sees one copy.
type Stream struct {
	tuple types.Tuple
}

// NewFull returns the stream of the empty tuple: true at every timepoint.
func NewFull() *Stream {
	return &Stream{tuple: types.Tuple{}}
}

// NewEquals returns the stream binding one variable to c at every timepoint.
func NewEquals(c types.Constant) *Stream {
	return &Stream{tuple: types.Tuple{c}}
}

func (s *Stream) OnRecords(out *dataflow.Output, _ int, records []types.Record) {
	if out.Worker().Index != 0 {
		return
	}
	for _, r := range records {
		out.Emit(r.TP, s.tuple)
	}
}

func (s *Stream) OnFrontier(out *dataflow.Output, _ int, frontier types.Timepoint) {
	out.Downgrade(frontier)
}

// Empty never emits and releases its token at once.
type Empty struct{}

func NewEmpty() *Empty {
	return &Empty{}
}

func (e *Empty) Init(out *dataflow.Output) {
	out.Downgrade(types.Infinity)
}

func (e *Empty) OnRecords(*dataflow.Output, int, []types.Record) {}

func (e *Empty) OnFrontier(*dataflow.Output, int, types.Timepoint) {}
