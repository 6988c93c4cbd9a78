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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/numamon/pkg/dataflow"
	"github.com/numaproj/numamon/pkg/index"
	"github.com/numaproj/numamon/pkg/types"
)

// trace is a finite input: a timestamp per timepoint and, per data port, the tuples per timepoint.
type trace struct {
	ts    []types.Timestamp
	ports [][][]types.Tuple
}

func tup(vals ...int64) types.Tuple {
	t := make(types.Tuple, len(vals))
	for i, v := range vals {
		t[i] = types.Int(v)
	}
	return t
}

func randomTrace(rnd *rand.Rand, n int, arities ...int) trace {
	tr := trace{ts: make([]types.Timestamp, n), ports: make([][][]types.Tuple, len(arities))}
	var ts types.Timestamp
	for i := 0; i < n; i++ {
		ts += types.Timestamp(rnd.Intn(3))
		tr.ts[i] = ts
	}
	for p, arity := range arities {
		tr.ports[p] = make([][]types.Tuple, n)
		for i := 0; i < n; i++ {
			seen := map[string]bool{}
			for k := rnd.Intn(3); k > 0; k-- {
				t := make(types.Tuple, arity)
				for c := range t {
					t[c] = types.Int(int64(rnd.Intn(2) + c*10))
				}
				if !seen[t.Key()] {
					seen[t.Key()] = true
					tr.ports[p][i] = append(tr.ports[p][i], t)
				}
			}
		}
	}
	return tr
}

// replay feeds the trace in a random interleaving of the ports: every port delivers its
// timepoints in order and its frontier only ever passes delivered timepoints.
func replay(t *testing.T, op dataflow.Operator, tr trace, timePort int, seed int64) *dataflow.Harness {
	t.Helper()
	nports := len(tr.ports) + 1
	h := dataflow.NewHarness(op, nports)
	rnd := rand.New(rand.NewSource(seed))
	n := len(tr.ts)
	cursor := make([]int, nports)
	for {
		var open []int
		for p := 0; p < nports; p++ {
			if cursor[p] < n {
				open = append(open, p)
			}
		}
		if len(open) == 0 {
			break
		}
		p := open[rnd.Intn(len(open))]
		tp := types.Timepoint(cursor[p])
		if p == timePort {
			h.Push(p, types.Record{TP: tp, Tuple: TimeTuple(tr.ts[tp])})
		} else {
			dp := p
			if p > timePort {
				dp--
			}
			var recs []types.Record
			for _, tu := range tr.ports[dp][tp] {
				recs = append(recs, types.Record{TP: tp, Tuple: tu})
			}
			if len(recs) > 0 {
				rnd.Shuffle(len(recs), func(i, j int) { recs[i], recs[j] = recs[j], recs[i] })
				h.Push(p, recs...)
			}
		}
		cursor[p]++
		if rnd.Intn(3) > 0 {
			h.Advance(p, types.Timepoint(cursor[p]))
		}
	}
	for _, p := range rnd.Perm(nports) {
		h.Advance(p, types.Infinity)
	}
	require.Equal(t, types.Infinity, h.Token())
	return h
}

type result map[types.Timepoint]map[string]types.Tuple

func (r result) add(tp types.Timepoint, t types.Tuple) {
	if r[tp] == nil {
		r[tp] = make(map[string]types.Tuple)
	}
	r[tp][t.Key()] = t
}

func (r result) grouped() map[types.Timepoint][]types.Tuple {
	out := make(map[types.Timepoint][]types.Tuple)
	for tp, set := range r {
		for _, t := range set {
			out[tp] = append(out[tp], t)
		}
		types.SortTuples(out[tp])
	}
	return out
}

func distinct(records []types.Record) map[types.Timepoint][]types.Tuple {
	r := result{}
	for _, rec := range records {
		r.add(rec.TP, rec.Tuple)
	}
	return r.grouped()
}

func onceRef(tr trace, i types.Interval, past bool) map[types.Timepoint][]types.Tuple {
	r := result{}
	n := len(tr.ts)
	for at := 0; at < n; at++ {
		for j := 0; j < n; j++ {
			if past && j <= at && i.Contains(tr.ts[at]-tr.ts[j]) || !past && j >= at && i.Contains(tr.ts[j]-tr.ts[at]) {
				for _, t := range tr.ports[0][j] {
					r.add(types.Timepoint(at), t)
				}
			}
		}
	}
	return r.grouped()
}

func shiftRef(tr trace, i types.Interval, previous bool) map[types.Timepoint][]types.Tuple {
	r := result{}
	for tp := range tr.ts {
		target := tp - 1
		if previous {
			target = tp + 1
		}
		if target < 0 || target >= len(tr.ts) {
			continue
		}
		d := tr.ts[target] - tr.ts[tp]
		if !previous {
			d = -d
		}
		if i.Contains(d) {
			for _, t := range tr.ports[0][tp] {
				r.add(types.Timepoint(target), t)
			}
		}
	}
	return r.grouped()
}

// binaryRef evaluates left SINCE/UNTIL right where the left tuples are the first column of the right ones.
func binaryRef(tr trace, mode index.Mode, i types.Interval) map[types.Timepoint][]types.Tuple {
	holds := func(k int, key types.Constant) bool {
		for _, t := range tr.ports[0][k] {
			if t[0] == key {
				return true
			}
		}
		return false
	}
	r := result{}
	n := len(tr.ts)
	for at := 0; at < n; at++ {
		for j := 0; j < n; j++ {
			past := mode == index.Since || mode == index.NegSince
			neg := mode == index.NegSince || mode == index.NegUntil
			var lo, hi int
			switch {
			case past && j <= at && i.Contains(tr.ts[at]-tr.ts[j]):
				lo, hi = j+1, at
			case !past && j >= at && i.Contains(tr.ts[j]-tr.ts[at]):
				lo, hi = at, j-1
			default:
				continue
			}
			for _, t := range tr.ports[1][j] {
				ok := true
				for k := lo; k <= hi && ok; k++ {
					ok = holds(k, t[0]) != neg
				}
				if ok {
					r.add(types.Timepoint(at), t)
				}
			}
		}
	}
	return r.grouped()
}

var testIntervals = []types.Interval{
	{Lower: 0, Upper: 0, Bounded: true},
	{Lower: 0, Upper: 2, Bounded: true},
	{Lower: 1, Upper: 3, Bounded: true},
	{Lower: 0},
	{Lower: 2},
}

func TestReference_Shift(t *testing.T) {
	for seed := int64(0); seed < 40; seed++ {
		rnd := rand.New(rand.NewSource(seed))
		tr := randomTrace(rnd, 2+rnd.Intn(8), 1)
		for _, i := range testIntervals {
			h := replay(t, NewPrevious(i), tr, PortTime, seed)
			assert.Equal(t, shiftRef(tr, i, true), distinct(h.Drain()), "previous %s seed %d", i, seed)
			h = replay(t, NewNext(i), tr, PortTime, seed)
			assert.Equal(t, shiftRef(tr, i, false), distinct(h.Drain()), "next %s seed %d", i, seed)
		}
	}
}

func TestReference_OnceEventually(t *testing.T) {
	for seed := int64(0); seed < 40; seed++ {
		rnd := rand.New(rand.NewSource(seed))
		tr := randomTrace(rnd, 2+rnd.Intn(8), 1)
		for _, i := range testIntervals {
			for _, dedup := range []bool{true, false} {
				h := replay(t, NewOnce(i, dedup), tr, PortTime, seed)
				recs := h.Drain()
				assert.Equal(t, onceRef(tr, i, true), distinct(recs), "once %s seed %d", i, seed)
				if dedup {
					assert.Equal(t, onceRef(tr, i, true), dataflow.GroupRecords(recs), "once %s emitted duplicates, seed %d", i, seed)
				}
				h = replay(t, NewEventually(i, dedup), tr, PortTime, seed)
				recs = h.Drain()
				assert.Equal(t, onceRef(tr, i, false), distinct(recs), "eventually %s seed %d", i, seed)
				if dedup {
					assert.Equal(t, onceRef(tr, i, false), dataflow.GroupRecords(recs), "eventually %s emitted duplicates, seed %d", i, seed)
				}
			}
		}
	}
}

func TestReference_Binary(t *testing.T) {
	modes := []index.Mode{index.Since, index.NegSince, index.Until, index.NegUntil}
	for seed := int64(0); seed < 40; seed++ {
		rnd := rand.New(rand.NewSource(seed))
		tr := randomTrace(rnd, 2+rnd.Intn(8), 1, 2)
		for _, mode := range modes {
			for _, i := range testIntervals {
				op, err := NewBinary(mode, i, true, types.Schema{"x"}, types.Schema{"x", "y"})
				require.NoError(t, err)
				h := replay(t, op, tr, PortBinaryTime, seed)
				recs := h.Drain()
				want := binaryRef(tr, mode, i)
				assert.Equal(t, want, distinct(recs), "%s %s seed %d", mode, i, seed)
				assert.Equal(t, want, dataflow.GroupRecords(recs), "%s %s emitted duplicates, seed %d", mode, i, seed)
			}
		}
	}
}

// unitTrace is a random trace whose timestamps equal its timepoints.
func unitTrace(rnd *rand.Rand, n int) trace {
	tr := randomTrace(rnd, n, 1)
	for tp := range tr.ts {
		tr.ts[tp] = types.Timestamp(tp)
	}
	return tr
}

func input(tr trace) map[types.Timepoint][]types.Tuple {
	var recs []types.Record
	for tp, tuples := range tr.ports[0] {
		for _, tu := range tuples {
			recs = append(recs, types.Record{TP: types.Timepoint(tp), Tuple: tu})
		}
	}
	return distinct(recs)
}

// everHeld is ONCE[0,*) by definition: every tuple seen at or before the timepoint.
func everHeld(tr trace) map[types.Timepoint][]types.Tuple {
	r := result{}
	for at := range tr.ts {
		for j := 0; j <= at; j++ {
			for _, tu := range tr.ports[0][j] {
				r.add(types.Timepoint(at), tu)
			}
		}
	}
	return r.grouped()
}

func TestIntervalBoundaryLaws(t *testing.T) {
	one := types.Interval{Lower: 1, Upper: 1, Bounded: true}
	zero := types.Interval{Lower: 0, Upper: 0, Bounded: true}
	for seed := int64(0); seed < 40; seed++ {
		rnd := rand.New(rand.NewSource(seed))
		tr := unitTrace(rnd, 2+rnd.Intn(8))
		previous := distinct(replay(t, NewPrevious(one), tr, PortTime, seed).Drain())
		next := distinct(replay(t, NewNext(one), tr, PortTime, seed).Drain())
		for _, dedup := range []bool{true, false} {
			checks := []struct {
				name string
				op   dataflow.Operator
				want map[types.Timepoint][]types.Tuple
			}{
				{name: "once[1,1] is previous", op: NewOnce(one, dedup), want: previous},
				{name: "eventually[1,1] is next", op: NewEventually(one, dedup), want: next},
				{name: "once[0,0] is the identity", op: NewOnce(zero, dedup), want: input(tr)},
				{name: "eventually[0,0] is the identity", op: NewEventually(zero, dedup), want: input(tr)},
				{name: "once[0,*) is ever held", op: NewOnce(types.From(0), dedup), want: everHeld(tr)},
			}
			for _, c := range checks {
				recs := replay(t, c.op, tr, PortTime, seed).Drain()
				assert.Equal(t, c.want, distinct(recs), "%s, dedup %t, seed %d", c.name, dedup, seed)
				if dedup {
					assert.Equal(t, c.want, dataflow.GroupRecords(recs), "%s emitted duplicates, seed %d", c.name, seed)
				}
			}
		}
	}
}
