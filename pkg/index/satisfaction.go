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

package index

import (
	"github.com/numaproj/numamon/pkg/types"
)

// Mode selects the temporal connective a Satisfaction index evaluates.
type Mode int

const (
	Since Mode = iota
	NegSince
	Until
	NegUntil
)

func (m Mode) String() string {
	switch m {
	case Since:
		return "since"
	case NegSince:
		return "negsince"
	case Until:
		return "until"
	case NegUntil:
		return "neguntil"
	default:
		return "unknown"
	}
}

func (m Mode) past() bool {
	return m == Since || m == NegSince
}

// View is what the owning operator knows when it asks the index to resolve subscribers.
type View struct {
	// Obs holds the known timestamps.
	Obs *ObservationSequence
	// Complete is the left operand's frontier: the alpha sets are final below it.
	Complete types.Timepoint
	Interval types.Interval
	// Floor is the owner's progress token; nothing is reported below it.
	Floor types.Timepoint
}

// Emission reports that Tuple holds at every timepoint of Span.
type Emission struct {
	Tuple types.Tuple
	Span  Span
}

type subscriber struct {
	tuple types.Tuple
	tp    types.Timepoint
	ts    types.Timestamp
	// past modes: the left operand holds (or is absent) on (tp, reach]
	reach types.Timepoint
	// past modes: first timepoint not yet considered for output
	next types.Timepoint
}

type entry struct {
	alpha PartialSequence
	subs  []*subscriber
}

// Satisfaction keys the occurrences of the left operand (alpha) and the pending right operand
// subscribers by the shared key.
type Satisfaction struct {
	mode        Mode
	entries     map[string]*entry
	subscribed  map[string]*entry
	subscribers int
}

// NewSatisfaction returns an empty index.
func NewSatisfaction(mode Mode) *Satisfaction {
	return &Satisfaction{
		mode:       mode,
		entries:    make(map[string]*entry),
		subscribed: make(map[string]*entry),
	}
}

func (x *Satisfaction) Mode() Mode {
	return x.mode
}

func (x *Satisfaction) entry(key string) *entry {
	e, ok := x.entries[key]
	if !ok {
		e = &entry{}
		x.entries[key] = e
	}
	return e
}

// Insert records that the left operand holds for key at tp.
func (x *Satisfaction) Insert(key types.Tuple, tp types.Timepoint) {
	x.entry(key.Key()).alpha.Insert(tp)
}

// AddSubscriber queues a right operand tuple seen at tp with timestamp ts.
func (x *Satisfaction) AddSubscriber(key types.Tuple, tuple types.Tuple, tp types.Timepoint, ts types.Timestamp) {
	k := key.Key()
	e := x.entry(k)
	e.subs = append(e.subs, &subscriber{tuple: tuple, tp: tp, ts: ts, reach: tp, next: tp})
	x.subscribed[k] = e
	x.subscribers++
}

// Output resolves every subscriber as far as the view allows.
func (x *Satisfaction) Output(v View) []Emission {
	var out []Emission
	for k, e := range x.subscribed {
		out = x.resolve(k, e, v, out)
	}
	return out
}

// SingleOutput resolves the subscribers of one key.
func (x *Satisfaction) SingleOutput(key types.Tuple, v View) []Emission {
	k := key.Key()
	e, ok := x.subscribed[k]
	if !ok {
		return nil
	}
	return x.resolve(k, e, v, nil)
}

func (x *Satisfaction) resolve(k string, e *entry, v View, out []Emission) []Emission {
	live := e.subs[:0]
	for _, s := range e.subs {
		var done bool
		if x.mode.past() {
			out, done = x.resolvePast(e, s, v, out)
		} else {
			out, done = x.resolveFuture(e, s, v, out)
		}
		if done {
			x.subscribers--
			continue
		}
		live = append(live, s)
	}
	for i := len(live); i < len(e.subs); i++ {
		e.subs[i] = nil
	}
	e.subs = live
	if len(e.subs) == 0 {
		delete(x.subscribed, k)
		if e.alpha.IsEmpty() {
			delete(x.entries, k)
		}
	}
	return out
}

func (x *Satisfaction) resolvePast(e *entry, s *subscriber, v View, out []Emission) ([]Emission, bool) {
	frontier := v.Obs.Frontier()
	complete := types.MinTimepoint(v.Complete, frontier)
	dead := false
	for !dead && s.reach+1 < complete {
		nxt := s.reach + 1
		if x.mode == Since {
			run, ok := e.alpha.Run(nxt)
			if !ok {
				dead = true
				break
			}
			s.reach = types.MinTimepoint(run.Hi, complete-1)
			continue
		}
		if occ, ok := e.alpha.NextAtOrAfter(nxt); ok && occ < complete {
			s.reach = occ - 1
			dead = true
			break
		}
		s.reach = complete - 1
	}

	if s.reach >= s.next {
		lo, hi := s.next, s.reach
		if first, ok := v.Obs.FirstAtOrAfter(types.AddTS(s.ts, v.Interval.LowerTS())); ok {
			lo = types.MaxTimepoint(lo, first)
		} else {
			lo = hi + 1
		}
		if v.Interval.Bounded {
			if last, ok := v.Obs.LastAtOrBefore(types.AddTS(s.ts, v.Interval.UpperTS())); !ok {
				hi = lo - 1
			} else if last < hi {
				hi = last
			}
		}
		lo = types.MaxTimepoint(lo, v.Floor)
		if lo <= hi {
			out = append(out, Emission{Tuple: s.tuple, Span: Span{Lo: lo, Hi: hi}})
		}
		s.next = s.reach + 1
	}

	if dead {
		return out, true
	}
	if v.Interval.Bounded {
		if f, ok := v.Obs.FirstAtOrAfter(types.AddTS(types.AddTS(s.ts, v.Interval.UpperTS()), 1)); ok && f <= s.reach+1 {
			return out, true
		}
	}
	return out, v.Obs.Closed() && s.reach+1 >= frontier
}

func (x *Satisfaction) resolveFuture(e *entry, s *subscriber, v View, out []Emission) ([]Emission, bool) {
	if v.Complete < s.tp {
		return out, false
	}
	start := s.tp
	if x.mode == Until {
		if s.tp > 0 {
			if run, ok := e.alpha.Run(s.tp - 1); ok {
				start = run.Lo
			}
		}
	} else {
		start = 0
		if last, ok := e.alpha.LastBefore(s.tp); ok {
			start = last + 1
		}
	}
	lo := types.MaxTimepoint(start, v.Floor)
	if v.Interval.Bounded {
		if first, ok := v.Obs.FirstAtOrAfter(types.SubTS(s.ts, v.Interval.UpperTS())); ok {
			lo = types.MaxTimepoint(lo, first)
		}
	}
	last, ok := v.Obs.LastAtOrBefore(types.SubTS(s.ts, v.Interval.LowerTS()))
	if !ok {
		return out, true
	}
	hi := types.MinTimepoint(last, s.tp)
	if lo <= hi {
		out = append(out, Emission{Tuple: s.tuple, Span: Span{Lo: lo, Hi: hi}})
	}
	return out, true
}

// MinPending is the smallest timepoint the live subscribers can still report: reach+1 for the
// past modes, the subscriber's own timepoint for the future modes.
func (x *Satisfaction) MinPending() types.Timepoint {
	m := types.Infinity
	for _, e := range x.subscribed {
		for _, s := range e.subs {
			p := s.tp
			if x.mode.past() {
				p = s.next
			}
			if p < m {
				m = p
			}
		}
	}
	return m
}

// RunBound is the smallest start of an alpha span that reaches threshold-1 or later.
func (x *Satisfaction) RunBound(threshold types.Timepoint) types.Timepoint {
	m := types.Infinity
	for _, e := range x.entries {
		spans := e.alpha.Spans()
		for i := len(spans) - 1; i >= 0; i-- {
			if spans[i].Hi != types.Infinity && spans[i].Hi+1 < threshold {
				break
			}
			if spans[i].Lo < m {
				m = spans[i].Lo
			}
		}
	}
	return m
}

// PurgeBefore forgets alpha members < tp and drops empty entries.
func (x *Satisfaction) PurgeBefore(tp types.Timepoint) {
	for k, e := range x.entries {
		e.alpha.PurgeBefore(tp)
		if e.alpha.IsEmpty() && len(e.subs) == 0 {
			delete(x.entries, k)
		}
	}
}

// Entries is the number of keys held.
func (x *Satisfaction) Entries() int {
	return len(x.entries)
}

// Subscribers is the number of live subscribers.
func (x *Satisfaction) Subscribers() int {
	return x.subscribers
}
