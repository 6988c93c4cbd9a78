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
	"fmt"

	"github.com/numaproj/numamon/pkg/dataflow"
	"github.com/numaproj/numamon/pkg/index"
	"github.com/numaproj/numamon/pkg/types"
)

// Binary implements SINCE, UNTIL and their negated-left forms on a satisfaction index. Left tuples
// are keyed by their own columns, right tuples subscribe under the projection on the left variables.
type Binary struct {
	mode     index.Mode
	interval types.Interval
	leftKey  []int
	rightKey []int
	clock    clock
	sat      *index.Satisfaction
	stash    stash
	emit     emitter
}

// NewBinary returns the operator for mode over left schema l and right schema r. The left
// variables must be a subset of the right ones; the output schema is r.
func NewBinary(mode index.Mode, i types.Interval, dedup bool, l, r types.Schema) (*Binary, error) {
	if !l.SubsetOf(r) {
		return nil, fmt.Errorf("%s left variables %s are not a subset of %s", mode, l, r)
	}
	a := types.Align(l, r)
	return &Binary{
		mode:     mode,
		interval: i,
		leftKey:  a.Left,
		rightKey: a.Right,
		clock:    newClock(),
		sat:      index.NewSatisfaction(mode),
		stash:    make(stash),
		emit:     newEmitter(dedup),
	}, nil
}

// Pacts route the left side by its key columns and the right side by the same key. Without shared
// variables the right side goes by whole tuple and the left side to every worker.
func (b *Binary) Pacts() (left, right dataflow.Pact) {
	if len(b.leftKey) == 0 {
		return dataflow.Pact{Kind: dataflow.Broadcast}, dataflow.Pact{Kind: dataflow.Exchange}
	}
	return dataflow.Pact{Kind: dataflow.Exchange, Columns: b.leftKey}, dataflow.Pact{Kind: dataflow.Exchange, Columns: b.rightKey}
}

func (b *Binary) OnRecords(out *dataflow.Output, port int, records []types.Record) {
	switch port {
	case PortLeft:
		for _, r := range records {
			b.sat.Insert(r.Tuple.Project(b.leftKey), r.TP)
		}
		// new left occurrences only matter once the left frontier passes them
		return
	case PortRight:
		for _, r := range records {
			ts, ok := b.clock.obs.Timestamp(r.TP)
			if !ok {
				b.stash.add(r.TP, r.Tuple)
				continue
			}
			b.subscribe(out, r.Tuple, r.TP, ts)
		}
	case PortBinaryTime:
		b.clock.observe(out, records)
	}
	b.process(out)
}

func (b *Binary) OnFrontier(out *dataflow.Output, port int, frontier types.Timepoint) {
	if port == PortBinaryTime {
		b.clock.advance(frontier)
	}
	b.process(out)
}

func (b *Binary) view(out *dataflow.Output) index.View {
	return index.View{
		Obs:      b.clock.obs,
		Complete: out.Frontier(PortLeft),
		Interval: b.interval,
		Floor:    out.Token(),
	}
}

func (b *Binary) subscribe(out *dataflow.Output, t types.Tuple, tp types.Timepoint, ts types.Timestamp) {
	key := t.Project(b.rightKey)
	b.sat.AddSubscriber(key, t, tp, ts)
	b.emit.emitAll(out, b.sat.SingleOutput(key, b.view(out)))
}

func (b *Binary) process(out *dataflow.Output) {
	b.stash.activate(&b.clock, func(t types.Tuple, tp types.Timepoint, ts types.Timestamp) {
		b.subscribe(out, t, tp, ts)
	})
	b.emit.emitAll(out, b.sat.Output(b.view(out)))

	if b.mode == index.Since || b.mode == index.NegSince {
		e := types.MinTimepoint(out.Frontier(PortRight), b.stash.min())
		out.Downgrade(types.MinTimepoint(e, b.sat.MinPending()))
	} else {
		out.Downgrade(b.futureBound(out))
	}

	tok := out.Token()
	b.sat.PurgeBefore(tok)
	b.emit.purge(tok)
	b.clock.obs.PurgeBefore(tok)
	report(out, b.stash.size(), b.sat.Entries())
}

// futureBound is the earliest timepoint a right occurrence that is not resolved yet can still
// reach: it is limited by the interval and, for UNTIL, by the left runs it can extend back through.
func (b *Binary) futureBound(out *dataflow.Output) types.Timepoint {
	e := types.MinTimepoint(out.Frontier(PortRight), b.stash.min(), b.sat.MinPending())
	if e == types.Infinity {
		return types.Infinity
	}
	timeBound := out.Token()
	if b.interval.Bounded {
		if lb, ok := b.clock.lowerBoundTS(e); ok {
			obs := b.clock.obs
			first, found := obs.FirstAtOrAfter(types.SubTS(lb, b.interval.UpperTS()))
			if !found {
				first = obs.Frontier()
			}
			timeBound = types.MaxTimepoint(timeBound, first)
		}
	}
	if b.mode == index.NegUntil {
		return types.MinTimepoint(e, timeBound)
	}
	complete := out.Frontier(PortLeft)
	runs := types.MinTimepoint(complete, b.sat.RunBound(types.MinTimepoint(e, complete)))
	return types.MaxTimepoint(timeBound, types.MinTimepoint(e, runs))
}
