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

package temporal

import (
	"github.com/numaproj/numamon/pkg/dataflow"
	"github.com/numaproj/numamon/pkg/types"
)

// Shift implements PREVIOUS and NEXT: a tuple at tp moves to the neighbouring timepoint when the
// timestamp distance to it lies in the interval.
type Shift struct {
	interval types.Interval
	// previous emits at tp+1, otherwise at tp-1
	previous bool
	clock    clock
	stash    stash
}

// NewPrevious returns PREVIOUS_I.
func NewPrevious(i types.Interval) *Shift {
	return &Shift{interval: i, previous: true, clock: newClock(), stash: make(stash)}
}

// NewNext returns NEXT_I.
func NewNext(i types.Interval) *Shift {
	return &Shift{interval: i, clock: newClock(), stash: make(stash)}
}

func (s *Shift) OnRecords(out *dataflow.Output, port int, records []types.Record) {
	if port == PortTime {
		s.clock.observe(out, records)
	} else {
		for _, r := range records {
			s.stash.add(r.TP, r.Tuple)
		}
	}
	s.process(out)
}

func (s *Shift) OnFrontier(out *dataflow.Output, port int, frontier types.Timepoint) {
	if port == PortTime {
		s.clock.advance(frontier)
	}
	s.process(out)
}

func (s *Shift) process(out *dataflow.Output) {
	obs := s.clock.obs
	for tp, tuples := range s.stash {
		from, to := tp, tp+1
		if !s.previous {
			if tp == 0 {
				delete(s.stash, tp)
				continue
			}
			from, to = tp-1, tp
		}
		// to is the later of the two, its timestamp arrives last
		tsTo, ok := obs.Timestamp(to)
		if !ok {
			if s.clock.gone(to) {
				delete(s.stash, tp)
			}
			continue
		}
		tsFrom, _ := obs.Timestamp(from)
		if s.interval.Contains(tsTo - tsFrom) {
			target := to
			if !s.previous {
				target = from
			}
			for _, t := range tuples {
				out.Emit(target, t)
			}
		}
		delete(s.stash, tp)
	}

	e := types.MinTimepoint(out.Frontier(PortData), s.stash.min())
	switch {
	case e == types.Infinity:
		out.Downgrade(types.Infinity)
	case s.previous:
		out.Downgrade(e + 1)
		obs.PurgeBefore(e)
	case e > 0:
		out.Downgrade(e - 1)
		obs.PurgeBefore(e - 1)
	}
	report(out, s.stash.size(), 0)
}
