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

type occurrence struct {
	tuple types.Tuple
	key   string
	tp    types.Timepoint
	ts    types.Timestamp
	// next is the first output timepoint not handled yet
	next    types.Timepoint
	retired bool
}

// Once implements ONCE_I: an occurrence at tp makes the tuple hold at every later timepoint whose
// timestamp lies in ts(tp)+I. Ranges grow as timestamps arrive and only new points are emitted.
type Once struct {
	interval types.Interval
	clock    clock
	stash    stash
	occs     []*occurrence
	// best is the earliest live occurrence per tuple, unbounded dedup only
	best      map[string]*occurrence
	emit      emitter
	seenFront types.Timepoint
	seenClose bool
}

// NewOnce returns ONCE_I.
func NewOnce(i types.Interval, dedup bool) *Once {
	return &Once{
		interval: i,
		clock:    newClock(),
		stash:    make(stash),
		best:     make(map[string]*occurrence),
		emit:     newEmitter(dedup),
	}
}

func (o *Once) OnRecords(out *dataflow.Output, port int, records []types.Record) {
	if port == PortTime {
		o.clock.observe(out, records)
	} else {
		for _, r := range records {
			o.stash.add(r.TP, r.Tuple)
		}
	}
	o.process(out)
}

func (o *Once) OnFrontier(out *dataflow.Output, port int, frontier types.Timepoint) {
	if port == PortTime {
		o.clock.advance(frontier)
	}
	o.process(out)
}

func (o *Once) process(out *dataflow.Output) {
	obs := o.clock.obs
	o.stash.activate(&o.clock, func(t types.Tuple, tp types.Timepoint, ts types.Timestamp) {
		o.activate(out, t, tp, ts)
	})
	if obs.Frontier() != o.seenFront || obs.Closed() != o.seenClose {
		o.seenFront, o.seenClose = obs.Frontier(), obs.Closed()
		for _, occ := range o.occs {
			o.advance(out, occ)
		}
	}

	live := o.occs[:0]
	minNext := types.Infinity
	for _, occ := range o.occs {
		if occ.retired {
			continue
		}
		live = append(live, occ)
		if occ.next < minNext {
			minNext = occ.next
		}
	}
	for i := len(live); i < len(o.occs); i++ {
		o.occs[i] = nil
	}
	o.occs = live

	e := types.MinTimepoint(out.Frontier(PortData), o.stash.min())
	out.Downgrade(types.MinTimepoint(e, minNext))
	o.emit.purge(out.Token())
	obs.PurgeBefore(types.MinTimepoint(e, minNext))
	report(out, o.stash.size(), len(o.occs))
}

func (o *Once) activate(out *dataflow.Output, t types.Tuple, tp types.Timepoint, ts types.Timestamp) {
	key := t.Key()
	dominance := o.emit.dedup && !o.interval.Bounded
	if dominance {
		if b, ok := o.best[key]; ok && !b.retired {
			if b.tp <= tp {
				return
			}
			b.retired = true
		}
	}
	occ := &occurrence{tuple: t, key: key, tp: tp, ts: ts, next: tp}
	if dominance {
		o.best[key] = occ
	}
	o.occs = append(o.occs, occ)
	o.advance(out, occ)
}

func (o *Once) advance(out *dataflow.Output, occ *occurrence) {
	if occ.retired {
		return
	}
	obs := o.clock.obs
	f := obs.Frontier()
	if first, ok := obs.FirstAtOrAfter(types.AddTS(occ.ts, o.interval.LowerTS())); ok {
		occ.next = types.MaxTimepoint(occ.next, first)
	} else {
		occ.next = types.MaxTimepoint(occ.next, f)
	}
	hi := f - 1
	if o.interval.Bounded {
		last, ok := obs.LastAtOrBefore(types.AddTS(occ.ts, o.interval.UpperTS()))
		if !ok {
			o.retire(occ)
			return
		}
		if last < hi {
			hi = last
		}
	}
	if occ.next <= hi {
		o.emit.emitRange(out, occ.tuple, occ.next, hi)
		occ.next = hi + 1
	}
	if (o.interval.Bounded && occ.next < f) || (obs.Closed() && occ.next >= f) {
		o.retire(occ)
	}
}

func (o *Once) retire(occ *occurrence) {
	occ.retired = true
	if b, ok := o.best[occ.key]; ok && b == occ {
		delete(o.best, occ.key)
	}
}

// Eventually implements EVENTUALLY_I: an occurrence at tp makes the tuple hold at every earlier
// timepoint whose timestamp lies in ts(tp)-I. All those timestamps are known once ts(tp) is, so each
// occurrence is resolved in one step.
type Eventually struct {
	interval types.Interval
	clock    clock
	stash    stash
	emit     emitter
}

// NewEventually returns EVENTUALLY_I.
func NewEventually(i types.Interval, dedup bool) *Eventually {
	return &Eventually{
		interval: i,
		clock:    newClock(),
		stash:    make(stash),
		emit:     newEmitter(dedup),
	}
}

func (ev *Eventually) OnRecords(out *dataflow.Output, port int, records []types.Record) {
	if port == PortTime {
		ev.clock.observe(out, records)
	} else {
		for _, r := range records {
			ev.stash.add(r.TP, r.Tuple)
		}
	}
	ev.process(out)
}

func (ev *Eventually) OnFrontier(out *dataflow.Output, port int, frontier types.Timepoint) {
	if port == PortTime {
		ev.clock.advance(frontier)
	}
	ev.process(out)
}

func (ev *Eventually) process(out *dataflow.Output) {
	obs := ev.clock.obs
	ev.stash.activate(&ev.clock, func(t types.Tuple, tp types.Timepoint, ts types.Timestamp) {
		ev.resolve(out, t, tp, ts)
	})

	e := types.MinTimepoint(out.Frontier(PortData), ev.stash.min())
	out.Downgrade(ev.bound(e, out.Token()))
	ev.emit.purge(out.Token())
	obs.PurgeBefore(out.Token())
	report(out, ev.stash.size(), len(ev.emit.emitted))
}

// bound is the earliest timepoint an occurrence at e or later can still reach.
func (ev *Eventually) bound(e, current types.Timepoint) types.Timepoint {
	if e == types.Infinity {
		return types.Infinity
	}
	if !ev.interval.Bounded {
		return current
	}
	lb, ok := ev.clock.lowerBoundTS(e)
	if !ok {
		return current
	}
	obs := ev.clock.obs
	first, found := obs.FirstAtOrAfter(types.SubTS(lb, ev.interval.UpperTS()))
	if !found {
		first = obs.Frontier()
	}
	return types.MinTimepoint(e, first)
}

func (ev *Eventually) resolve(out *dataflow.Output, t types.Tuple, tp types.Timepoint, ts types.Timestamp) {
	obs := ev.clock.obs
	lo := out.Token()
	if ev.interval.Bounded {
		if first, ok := obs.FirstAtOrAfter(types.SubTS(ts, ev.interval.UpperTS())); ok {
			lo = types.MaxTimepoint(lo, first)
		}
	}
	last, ok := obs.LastAtOrBefore(types.SubTS(ts, ev.interval.LowerTS()))
	if !ok {
		return
	}
	ev.emit.emitRange(out, t, lo, types.MinTimepoint(last, tp))
}
