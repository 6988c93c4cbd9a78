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

package constant

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/numaproj/numamon/pkg/dataflow"
	"github.com/numaproj/numamon/pkg/temporal"
	"github.com/numaproj/numamon/pkg/types"
)

func timeRecords(ts ...types.Timestamp) []types.Record {
	out := make([]types.Record, len(ts))
	for i, v := range ts {
		out[i] = types.Record{TP: types.Timepoint(i), Tuple: temporal.TimeTuple(v)}
	}
	return out
}

func TestStream(t *testing.T) {
	tests := []struct {
		name   string
		stream *Stream
		want   types.Tuple
	}{
		{name: "full", stream: NewFull(), want: types.Tuple{}},
		{name: "equals", stream: NewEquals(types.Str("a")), want: types.Tuple{types.Str("a")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := dataflow.NewHarness(tt.stream, 1)
			h.Push(0, timeRecords(10, 12)...)
			h.Advance(0, 2)
			assert.Equal(t, map[types.Timepoint][]types.Tuple{0: {tt.want}, 1: {tt.want}}, h.Results())
			assert.Equal(t, types.Timepoint(2), h.Token())
		})
	}
}

func TestStream_OtherWorkers(t *testing.T) {
	h := dataflow.NewWorkerHarness(NewFull(), 1, dataflow.WorkerInfo{Index: 1, Peers: 2})
	h.Push(0, timeRecords(10)...)
	h.Advance(0, types.Infinity)
	assert.Empty(t, h.Results())
	assert.Equal(t, types.Infinity, h.Token())
}

func TestEmpty(t *testing.T) {
	h := dataflow.NewHarness(NewEmpty(), 1)
	assert.Equal(t, types.Infinity, h.Token())
	h.Push(0, timeRecords(1)...)
	assert.Empty(t, h.Results())
}
