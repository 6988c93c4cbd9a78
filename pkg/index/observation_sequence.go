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
	"fmt"
	"sort"

	"github.com/numaproj/numamon/pkg/types"
)

// PositionKind classifies where a timestamp falls in an ObservationSequence.
type PositionKind int

const (
	// Exact means at least one observed timepoint carries the timestamp.
	Exact PositionKind = iota
	// Between means the timestamp falls strictly between two observed timepoints.
	Between
	// Unobserved means the timestamp lies past every observed timepoint (or before the retained ones).
	Unobserved
)

// Position is the result of Locate. For Exact, Lo..Hi are the timepoints with that timestamp.
// For Between, Lo is the last timepoint before and Hi the first after.
type Position struct {
	Kind PositionKind
	Lo   types.Timepoint
	Hi   types.Timepoint
}

// ErrObservation is returned for out of order timepoints or decreasing timestamps.
type ErrObservation struct {
	TP      types.Timepoint
	TS      types.Timestamp
	Message string
}

func (e ErrObservation) Error() string {
	return fmt.Sprintf("cannot observe timestamp %d at timepoint %d: %s", e.TS, e.TP, e.Message)
}

// ObservationSequence maps timepoints to timestamps. Timestamps are observed in timepoint order
// without gaps, so the known timepoints always form the range base..Frontier()-1.
type ObservationSequence struct {
	base   types.Timepoint
	stamps []types.Timestamp
	next   types.Timepoint
	last   types.Timestamp
	closed bool
}

func NewObservationSequence() *ObservationSequence {
	return &ObservationSequence{}
}

// Observe records the timestamp of the next timepoint.
func (o *ObservationSequence) Observe(tp types.Timepoint, ts types.Timestamp) error {
	switch {
	case o.closed:
		return ErrObservation{TP: tp, TS: ts, Message: "sequence is closed"}
	case tp != o.next:
		return ErrObservation{TP: tp, TS: ts, Message: fmt.Sprintf("expected timepoint %d", o.next)}
	case o.next > 0 && ts < o.last:
		return ErrObservation{TP: tp, TS: ts, Message: fmt.Sprintf("timestamp decreases from %d", o.last)}
	}
	if len(o.stamps) == 0 {
		o.base = tp
	}
	o.stamps = append(o.stamps, ts)
	o.last = ts
	o.next = tp + 1
	return nil
}

// Timestamp returns the timestamp of a retained timepoint.
func (o *ObservationSequence) Timestamp(tp types.Timepoint) (types.Timestamp, bool) {
	if tp < o.base || tp >= o.next || len(o.stamps) == 0 {
		return 0, false
	}
	return o.stamps[tp-o.base], true
}

// Frontier is the first timepoint whose timestamp is not known yet. Once closed it is one past
// the last timepoint.
func (o *ObservationSequence) Frontier() types.Timepoint {
	return o.next
}

// Close marks that no more timepoints exist.
func (o *ObservationSequence) Close() {
	o.closed = true
}

func (o *ObservationSequence) Closed() bool {
	return o.closed
}

// Last returns the last observed timepoint and its timestamp.
func (o *ObservationSequence) Last() (types.Timepoint, types.Timestamp, bool) {
	if o.next == 0 {
		return 0, 0, false
	}
	return o.next - 1, o.last, true
}

// Base is the first retained timepoint.
func (o *ObservationSequence) Base() types.Timepoint {
	if len(o.stamps) == 0 {
		return o.next
	}
	return o.base
}

// FirstAtOrAfter returns the first retained timepoint whose timestamp is >= ts.
func (o *ObservationSequence) FirstAtOrAfter(ts types.Timestamp) (types.Timepoint, bool) {
	i := sort.Search(len(o.stamps), func(i int) bool { return o.stamps[i] >= ts })
	if i == len(o.stamps) {
		return 0, false
	}
	return o.base + types.Timepoint(i), true
}

// LastAtOrBefore returns the last retained timepoint whose timestamp is <= ts.
func (o *ObservationSequence) LastAtOrBefore(ts types.Timestamp) (types.Timepoint, bool) {
	i := sort.Search(len(o.stamps), func(i int) bool { return o.stamps[i] > ts })
	if i == 0 {
		return 0, false
	}
	return o.base + types.Timepoint(i-1), true
}

// Locate finds the retained timepoints around ts.
func (o *ObservationSequence) Locate(ts types.Timestamp) Position {
	first, ok := o.FirstAtOrAfter(ts)
	if !ok {
		return Position{Kind: Unobserved, Lo: o.next, Hi: types.Infinity}
	}
	if o.stamps[first-o.base] == ts {
		last, _ := o.LastAtOrBefore(ts)
		return Position{Kind: Exact, Lo: first, Hi: last}
	}
	if first == o.base {
		return Position{Kind: Unobserved, Lo: o.base, Hi: first}
	}
	return Position{Kind: Between, Lo: first - 1, Hi: first}
}

// PurgeBefore forgets the timestamps of timepoints < tp. The last observed timestamp is kept so
// that ordering checks still apply.
func (o *ObservationSequence) PurgeBefore(tp types.Timepoint) {
	if tp <= o.base || len(o.stamps) == 0 {
		return
	}
	n := int(tp - o.base)
	if tp >= o.next {
		n = len(o.stamps)
	}
	o.stamps = append(o.stamps[:0], o.stamps[n:]...)
	o.base += types.Timepoint(n)
}

// Len is the number of retained timepoints.
func (o *ObservationSequence) Len() int {
	return len(o.stamps)
}
