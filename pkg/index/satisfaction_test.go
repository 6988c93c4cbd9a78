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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/numaproj/numamon/pkg/types"
)

var one = types.Tuple{types.Int(1)}

func unitSteps(t *testing.T, n int) *ObservationSequence {
	ts := make([]types.Timestamp, n)
	for i := range ts {
		ts[i] = types.Timestamp(i)
	}
	return observed(t, ts...)
}

func bounded(t *testing.T, a, b uint64) types.Interval {
	i, err := types.NewInterval(a, b)
	assert.NoError(t, err)
	return i
}

func TestSatisfaction_Since(t *testing.T) {
	obs := unitSteps(t, 5)
	x := NewSatisfaction(Since)
	x.Insert(one, 2)
	x.Insert(one, 3)
	x.AddSubscriber(one, one, 1, 1)
	assert.Equal(t, types.Timepoint(1), x.MinPending())

	// the left side is only complete below 3
	out := x.Output(View{Obs: obs, Complete: 3, Interval: types.From(0)})
	assert.Equal(t, []Emission{{Tuple: one, Span: Span{1, 2}}}, out)
	assert.Equal(t, 1, x.Subscribers())
	assert.Equal(t, types.Timepoint(3), x.MinPending())

	// only the delta is reported, then the gap at 4 retires the subscriber
	out = x.Output(View{Obs: obs, Complete: 5, Interval: types.From(0)})
	assert.Equal(t, []Emission{{Tuple: one, Span: Span{3, 3}}}, out)
	assert.Equal(t, 0, x.Subscribers())
	assert.Equal(t, types.Infinity, x.MinPending())
}

func TestSatisfaction_SinceBounded(t *testing.T) {
	obs := unitSteps(t, 5)
	x := NewSatisfaction(Since)
	x.Insert(one, 2)
	x.Insert(one, 3)
	x.Insert(one, 4)
	x.AddSubscriber(one, one, 1, 1)
	out := x.SingleOutput(one, View{Obs: obs, Complete: 5, Interval: bounded(t, 1, 2)})
	assert.Equal(t, []Emission{{Tuple: one, Span: Span{2, 3}}}, out)
	assert.Equal(t, 0, x.Subscribers())
	assert.Nil(t, x.SingleOutput(types.Tuple{types.Int(9)}, View{Obs: obs}))
}

func TestSatisfaction_SinceWaitsForTimestamps(t *testing.T) {
	obs := unitSteps(t, 2)
	x := NewSatisfaction(Since)
	x.Insert(one, 1)
	x.Insert(one, 2)
	x.AddSubscriber(one, one, 0, 0)
	out := x.Output(View{Obs: obs, Complete: types.Infinity, Interval: types.From(0)})
	assert.Equal(t, []Emission{{Tuple: one, Span: Span{0, 1}}}, out)
	assert.Equal(t, 1, x.Subscribers())

	assert.NoError(t, obs.Observe(2, 2))
	assert.NoError(t, obs.Observe(3, 3))
	obs.Close()
	out = x.Output(View{Obs: obs, Complete: types.Infinity, Interval: types.From(0)})
	assert.Equal(t, []Emission{{Tuple: one, Span: Span{2, 2}}}, out)
	assert.Equal(t, 0, x.Subscribers())
}

func TestSatisfaction_NegSince(t *testing.T) {
	obs := unitSteps(t, 5)
	x := NewSatisfaction(NegSince)
	x.Insert(one, 3)
	x.AddSubscriber(one, one, 1, 1)
	out := x.Output(View{Obs: obs, Complete: 5, Interval: types.From(0)})
	assert.Equal(t, []Emission{{Tuple: one, Span: Span{1, 2}}}, out)
	assert.Equal(t, 0, x.Subscribers())

	// a key with no left occurrence at all stays satisfied
	two := types.Tuple{types.Int(2)}
	x.AddSubscriber(two, two, 0, 0)
	out = x.Output(View{Obs: obs, Complete: 5, Interval: types.From(0)})
	assert.Equal(t, []Emission{{Tuple: two, Span: Span{0, 4}}}, out)
	assert.Equal(t, 1, x.Subscribers())
}

func TestSatisfaction_Until(t *testing.T) {
	obs := unitSteps(t, 5)
	x := NewSatisfaction(Until)
	x.Insert(one, 1)
	x.Insert(one, 2)
	x.AddSubscriber(one, one, 3, 3)

	assert.Nil(t, x.Output(View{Obs: obs, Complete: 2, Interval: types.From(0)}))
	assert.Equal(t, types.Timepoint(3), x.MinPending())

	out := x.Output(View{Obs: obs, Complete: 3, Interval: types.From(0)})
	assert.Equal(t, []Emission{{Tuple: one, Span: Span{1, 3}}}, out)
	assert.Equal(t, 0, x.Subscribers())

	x.AddSubscriber(one, one, 3, 3)
	out = x.Output(View{Obs: obs, Complete: 3, Interval: bounded(t, 0, 1)})
	assert.Equal(t, []Emission{{Tuple: one, Span: Span{2, 3}}}, out)

	x.AddSubscriber(one, one, 3, 3)
	out = x.Output(View{Obs: obs, Complete: 3, Interval: types.From(0), Floor: 2})
	assert.Equal(t, []Emission{{Tuple: one, Span: Span{2, 3}}}, out)
}

func TestSatisfaction_NegUntil(t *testing.T) {
	obs := unitSteps(t, 5)
	x := NewSatisfaction(NegUntil)
	x.Insert(one, 1)
	x.AddSubscriber(one, one, 3, 3)
	out := x.Output(View{Obs: obs, Complete: 4, Interval: types.From(0)})
	assert.Equal(t, []Emission{{Tuple: one, Span: Span{2, 3}}}, out)

	x.AddSubscriber(one, one, 3, 3)
	out = x.Output(View{Obs: obs, Complete: 4, Interval: types.From(1)})
	assert.Equal(t, []Emission{{Tuple: one, Span: Span{2, 2}}}, out)
}

func TestSatisfaction_RunBoundAndPurge(t *testing.T) {
	x := NewSatisfaction(Until)
	x.Insert(one, 1)
	x.Insert(one, 2)
	x.Insert(one, 5)
	x.Insert(one, 6)
	assert.Equal(t, types.Timepoint(5), x.RunBound(4))
	assert.Equal(t, types.Timepoint(1), x.RunBound(3))
	assert.Equal(t, types.Infinity, x.RunBound(9))
	assert.Equal(t, 1, x.Entries())
	x.PurgeBefore(7)
	assert.Equal(t, 0, x.Entries())
}
