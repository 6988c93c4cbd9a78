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

// Package index holds the per-operator data structures of the temporal operators: timepoint
// interval sets, the timepoint to timestamp mapping, and the Since/Until satisfaction index.
package index

import (
	"sort"

	"github.com/numaproj/numamon/pkg/types"
)

// Span is an inclusive range of timepoints.
type Span struct {
	Lo types.Timepoint
	Hi types.Timepoint
}

// PartialSequence is a set of timepoints kept as sorted, disjoint, non-adjacent spans.
type PartialSequence struct {
	spans []Span
}

// NewPartialSequence returns an empty sequence.
func NewPartialSequence() *PartialSequence {
	return &PartialSequence{}
}

// search returns the index of the first span whose Hi is >= tp.
func (p *PartialSequence) search(tp types.Timepoint) int {
	return sort.Search(len(p.spans), func(i int) bool { return p.spans[i].Hi >= tp })
}

// Insert adds a single timepoint.
func (p *PartialSequence) Insert(tp types.Timepoint) {
	p.InsertRange(tp, tp)
}

// InsertRange adds the timepoints lo..hi, merging touching spans.
func (p *PartialSequence) InsertRange(lo, hi types.Timepoint) {
	if lo > hi {
		return
	}
	// first span that could touch [lo, hi]
	start := lo
	if start > 0 {
		start--
	}
	i := p.search(start)
	j := i
	for j < len(p.spans) && (hi == types.Infinity || p.spans[j].Lo <= hi+1) {
		if p.spans[j].Lo < lo {
			lo = p.spans[j].Lo
		}
		if p.spans[j].Hi > hi {
			hi = p.spans[j].Hi
		}
		j++
	}
	merged := Span{Lo: lo, Hi: hi}
	switch {
	case i == j:
		p.spans = append(p.spans, Span{})
		copy(p.spans[i+1:], p.spans[i:])
		p.spans[i] = merged
	default:
		p.spans[i] = merged
		p.spans = append(p.spans[:i+1], p.spans[j:]...)
	}
}

// Contains reports whether tp is in the set.
func (p *PartialSequence) Contains(tp types.Timepoint) bool {
	i := p.search(tp)
	return i < len(p.spans) && p.spans[i].Lo <= tp
}

// Run returns the maximal span containing tp.
func (p *PartialSequence) Run(tp types.Timepoint) (Span, bool) {
	i := p.search(tp)
	if i < len(p.spans) && p.spans[i].Lo <= tp {
		return p.spans[i], true
	}
	return Span{}, false
}

// NextAtOrAfter returns the smallest member >= tp.
func (p *PartialSequence) NextAtOrAfter(tp types.Timepoint) (types.Timepoint, bool) {
	i := p.search(tp)
	if i == len(p.spans) {
		return 0, false
	}
	if p.spans[i].Lo > tp {
		return p.spans[i].Lo, true
	}
	return tp, true
}

// LastBefore returns the largest member < tp.
func (p *PartialSequence) LastBefore(tp types.Timepoint) (types.Timepoint, bool) {
	if tp <= 0 {
		return 0, false
	}
	i := p.search(tp - 1)
	if i < len(p.spans) && p.spans[i].Lo <= tp-1 {
		return tp - 1, true
	}
	if i == 0 {
		return 0, false
	}
	return p.spans[i-1].Hi, true
}

// Gaps returns the sub-ranges of lo..hi that are not in the set, in order.
func (p *PartialSequence) Gaps(lo, hi types.Timepoint) []Span {
	if lo > hi {
		return nil
	}
	var out []Span
	cur := lo
	for i := p.search(lo); i < len(p.spans) && cur <= hi; i++ {
		s := p.spans[i]
		if s.Lo > hi {
			break
		}
		if s.Lo > cur {
			out = append(out, Span{Lo: cur, Hi: s.Lo - 1})
		}
		if s.Hi == types.Infinity {
			return out
		}
		cur = s.Hi + 1
	}
	if cur <= hi {
		out = append(out, Span{Lo: cur, Hi: hi})
	}
	return out
}

// PurgeBefore drops every member < tp.
func (p *PartialSequence) PurgeBefore(tp types.Timepoint) {
	i := p.search(tp)
	if i > 0 {
		p.spans = append(p.spans[:0], p.spans[i:]...)
	}
	if len(p.spans) > 0 && p.spans[0].Lo < tp {
		p.spans[0].Lo = tp
	}
}

// Spans returns the spans in order. The slice must not be modified.
func (p *PartialSequence) Spans() []Span {
	return p.spans
}

// Len returns the number of spans.
func (p *PartialSequence) Len() int {
	return len(p.spans)
}

func (p *PartialSequence) IsEmpty() bool {
	return len(p.spans) == 0
}
