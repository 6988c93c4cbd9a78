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

// Package temporal holds the metric temporal operators. Every operator consumes the time channel
// on its last port, keeps its own timepoint to timestamp mapping, and derives its progress token
// from its input frontiers, its stashes and its interval.
package temporal

import (
	"strconv"

	"github.com/numaproj/numamon/pkg/dataflow"
	"github.com/numaproj/numamon/pkg/index"
	"github.com/numaproj/numamon/pkg/types"
)

// Ports of the unary operators.
const (
	PortData = 0
	PortTime = 1
)

// Ports of the binary operators.
const (
	PortLeft       = 0
	PortRight      = 1
	PortBinaryTime = 2
)

// TimeTuple is the tuple carried by the time channel for a timestamp.
func TimeTuple(ts types.Timestamp) types.Tuple {
	return types.Tuple{types.Int(ts)}
}

// clock turns the time channel into an ObservationSequence.
type clock struct {
	obs *index.ObservationSequence
}

func newClock() clock {
	return clock{obs: index.NewObservationSequence()}
}

func (c *clock) observe(out *dataflow.Output, records []types.Record) {
	for _, r := range records {
		if len(r.Tuple) != 1 {
			out.Logger().Errorw("Malformed time record", "tp", r.TP, "tuple", r.Tuple.String())
			continue
		}
		ts, ok := r.Tuple[0].AsInt()
		if !ok {
			out.Logger().Errorw("Time record without an integer timestamp", "tp", r.TP, "tuple", r.Tuple.String())
			continue
		}
		if err := c.obs.Observe(r.TP, ts); err != nil {
			out.Logger().Errorw("Failed to observe timestamp", "tp", r.TP, "error", err)
		}
	}
}

func (c *clock) advance(f types.Timepoint) {
	if f == types.Infinity {
		c.obs.Close()
	}
}

// gone reports that tp has no timestamp and never will: the time channel ended before it.
func (c *clock) gone(tp types.Timepoint) bool {
	return c.obs.Closed() && tp >= c.obs.Frontier()
}

// lowerBoundTS is the smallest timestamp tp can have: its own when known, the last known one
// otherwise.
func (c *clock) lowerBoundTS(tp types.Timepoint) (types.Timestamp, bool) {
	if ts, ok := c.obs.Timestamp(tp); ok {
		return ts, true
	}
	if tp < c.obs.Base() {
		return 0, false
	}
	_, ts, ok := c.obs.Last()
	return ts, ok
}

// stash holds tuples per timepoint until their timestamp is known.
type stash map[types.Timepoint][]types.Tuple

func (s stash) add(tp types.Timepoint, t types.Tuple) {
	s[tp] = append(s[tp], t)
}

func (s stash) min() types.Timepoint {
	m := types.Infinity
	for tp := range s {
		if tp < m {
			m = tp
		}
	}
	return m
}

func (s stash) size() int {
	n := 0
	for _, ts := range s {
		n += len(ts)
	}
	return n
}

// activate hands every stashed tuple whose timestamp became known to fn, and drops the ones
// whose timepoint will never exist.
func (s stash) activate(c *clock, fn func(t types.Tuple, tp types.Timepoint, ts types.Timestamp)) {
	for tp, tuples := range s {
		ts, ok := c.obs.Timestamp(tp)
		if !ok {
			if c.gone(tp) {
				delete(s, tp)
			}
			continue
		}
		for _, t := range tuples {
			fn(t, tp, ts)
		}
		delete(s, tp)
	}
}

// emitter emits timepoint ranges, suppressing points already emitted for the tuple when dedup is on.
type emitter struct {
	dedup   bool
	emitted map[string]*index.PartialSequence
}

func newEmitter(dedup bool) emitter {
	return emitter{dedup: dedup, emitted: make(map[string]*index.PartialSequence)}
}

func (e *emitter) emitRange(out *dataflow.Output, t types.Tuple, lo, hi types.Timepoint) {
	if lo > hi {
		return
	}
	if !e.dedup {
		out.EmitRange(lo, hi, t)
		return
	}
	k := t.Key()
	seq, ok := e.emitted[k]
	if !ok {
		seq = index.NewPartialSequence()
		e.emitted[k] = seq
	}
	for _, g := range seq.Gaps(lo, hi) {
		out.EmitRange(g.Lo, g.Hi, t)
	}
	seq.InsertRange(lo, hi)
}

func (e *emitter) emitAll(out *dataflow.Output, ems []index.Emission) {
	for _, em := range ems {
		e.emitRange(out, em.Tuple, em.Span.Lo, em.Span.Hi)
	}
}

func (e *emitter) purge(tp types.Timepoint) {
	for k, seq := range e.emitted {
		seq.PurgeBefore(tp)
		if seq.IsEmpty() {
			delete(e.emitted, k)
		}
	}
}

func report(out *dataflow.Output, stashed, entries int) {
	w := strconv.Itoa(out.Worker().Index)
	stashedRecords.WithLabelValues(out.Name(), w).Set(float64(stashed))
	indexEntries.WithLabelValues(out.Name(), w).Set(float64(entries))
}
