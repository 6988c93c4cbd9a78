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

package dataflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/numaproj/numamon/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testCollector struct {
	lock      sync.Mutex
	records   []types.Record
	frontiers map[int]types.Timepoint
}

func newTestCollector() *testCollector {
	return &testCollector{frontiers: make(map[int]types.Timepoint)}
}

func (c *testCollector) Collect(_ int, records []types.Record) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.records = append(c.records, records...)
}

func (c *testCollector) Advance(worker int, f types.Timepoint) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if f <= c.frontiers[worker] {
		panic("collector frontier moved backward")
	}
	c.frontiers[worker] = f
}

func passthroughFactory(context.Context, WorkerInfo) Operator {
	return &passthrough{}
}

// emptyOp has no input and releases immediately.
type emptyOp struct{}

func (emptyOp) Init(out *Output)                         { out.Downgrade(types.Infinity) }
func (emptyOp) OnRecords(*Output, int, []types.Record)   {}
func (emptyOp) OnFrontier(*Output, int, types.Timepoint) {}

func emptyFactory(context.Context, WorkerInfo) Operator {
	return emptyOp{}
}

// lateEmitter emits what it saw only after releasing its token.
type lateEmitter struct {
	seen []types.Record
}

func (l *lateEmitter) OnRecords(_ *Output, _ int, rs []types.Record) {
	l.seen = append(l.seen, rs...)
}

func (l *lateEmitter) OnFrontier(out *Output, _ int, f types.Timepoint) {
	out.Downgrade(f)
	for _, r := range l.seen {
		out.Emit(r.TP, r.Tuple)
	}
}

func badFactory(context.Context, WorkerInfo) Operator {
	return &lateEmitter{}
}

func testRecords(n int) []types.Record {
	out := make([]types.Record, n)
	for i := range out {
		out[i] = types.Record{TP: types.Timepoint(i % 5), Tuple: types.Tuple{types.Int(int64(i))}}
	}
	return out
}

func TestRuntime_Exchange(t *testing.T) {
	for _, workers := range []int{1, 3} {
		g := NewGraph()
		src := g.AddSource("src")
		n, err := g.AddNode("copy", passthroughFactory, Input{From: src, Pact: Pact{Kind: Exchange}})
		require.NoError(t, err)
		require.NoError(t, g.SetRoot(n))

		c := newTestCollector()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		r, err := NewRuntime(ctx, g, c, WithWorkers(workers))
		require.NoError(t, err)
		assert.Equal(t, workers, r.Workers())

		records := testRecords(100)
		for i := 0; i < workers; i++ {
			require.NoError(t, r.Inject(src, i, records[i*100/workers:(i+1)*100/workers]))
		}
		require.NoError(t, r.Advance(src, 5))
		require.NoError(t, r.Advance(src, types.Infinity))

		require.NoError(t, r.Run(ctx))
		cancel()
		SortRecords(c.records)
		expected := testRecords(100)
		SortRecords(expected)
		assert.Equal(t, expected, c.records)
		assert.Len(t, c.frontiers, workers)
		for _, f := range c.frontiers {
			assert.Equal(t, types.Infinity, f)
		}
	}
}

func TestRuntime_BroadcastJoinsEmptySource(t *testing.T) {
	g := NewGraph()
	src := g.AddSource("src")
	empty, err := g.AddNode("empty", emptyFactory)
	require.NoError(t, err)
	n, err := g.AddNode("copy", passthroughFactory, Input{From: src, Pact: Pact{Kind: Broadcast}})
	require.NoError(t, err)
	_, err = g.AddNode("sink", passthroughFactory, Input{From: empty, Pact: Pact{Kind: Broadcast}})
	require.NoError(t, err)
	require.NoError(t, g.SetRoot(n))

	c := newTestCollector()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r, err := NewRuntime(ctx, g, c, WithWorkers(2))
	require.NoError(t, err)
	require.NoError(t, r.Inject(src, 0, testRecords(3)))
	require.NoError(t, r.Advance(src, types.Infinity))
	require.NoError(t, r.Run(ctx))
	// every worker gets a copy
	assert.Len(t, c.records, 6)
}

func TestRuntime_ProgressViolation(t *testing.T) {
	g := NewGraph()
	src := g.AddSource("src")
	n, err := g.AddNode("late", badFactory, Input{From: src})
	require.NoError(t, err)
	require.NoError(t, g.SetRoot(n))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r, err := NewRuntime(ctx, g, newTestCollector())
	require.NoError(t, err)
	require.NoError(t, r.Inject(src, 0, testRecords(2)))
	require.NoError(t, r.Advance(src, types.Infinity))

	err = r.Run(ctx)
	require.Error(t, err)
	var violation ErrProgressViolation
	assert.True(t, errors.As(err, &violation))
	assert.Equal(t, types.Infinity, violation.Token)
}

func TestRuntime_Cancel(t *testing.T) {
	g := NewGraph()
	src := g.AddSource("src")
	require.NoError(t, g.SetRoot(src))
	ctx, cancel := context.WithCancel(context.Background())
	r, err := NewRuntime(ctx, g, newTestCollector(), WithWorkers(2))
	require.NoError(t, err)
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	assert.ErrorIs(t, r.Run(ctx), context.Canceled)
}

func TestRuntime_Errors(t *testing.T) {
	g := NewGraph()
	_, err := NewRuntime(context.Background(), g, nil)
	assert.Error(t, err)

	src := g.AddSource("src")
	_, err = g.AddNode("bad", passthroughFactory, Input{From: 7})
	assert.Error(t, err)
	_, err = g.AddNode("nil", nil, Input{From: src})
	assert.Error(t, err)
	assert.Error(t, g.SetRoot(4))
	n, err := g.AddNode("copy", passthroughFactory, Input{From: src})
	require.NoError(t, err)
	require.NoError(t, g.SetRoot(n))
	assert.True(t, g.Node(src).IsSource())
	assert.False(t, g.Node(n).IsSource())

	_, err = NewRuntime(context.Background(), g, nil, WithWorkers(0))
	assert.Error(t, err)
	r, err := NewRuntime(context.Background(), g, nil)
	require.NoError(t, err)
	assert.Error(t, r.Inject(n, 0, nil))
	assert.Error(t, r.Inject(src, 3, nil))
	assert.Error(t, r.Advance(n, 1))
}

func TestPort_Advance(t *testing.T) {
	p := newPort(2)
	assert.False(t, p.advance(0, 3))
	assert.Equal(t, types.Timepoint(0), p.frontier)
	assert.True(t, p.advance(1, 2))
	assert.Equal(t, types.Timepoint(2), p.frontier)
	assert.False(t, p.advance(1, 1))
	assert.True(t, p.advance(1, types.Infinity))
	assert.Equal(t, types.Timepoint(3), p.frontier)
}

func TestMailbox_FIFO(t *testing.T) {
	m := newMailbox()
	m.push(message{node: 1}, message{node: 2})
	m.push(message{node: 3})
	assert.Equal(t, int64(3), m.Len())
	msgs, err := m.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, msg := range msgs {
		assert.Equal(t, NodeID(i+1), msg.node)
	}
	assert.Equal(t, int64(0), m.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.drain(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHarness(t *testing.T) {
	h := NewHarness(&passthrough{}, 1)
	h.Push(0, testRecords(2)...)
	h.Advance(0, 3)
	assert.Equal(t, types.Timepoint(3), h.Token())
	assert.Len(t, h.Results(), 2)
	assert.Len(t, h.Drain(), 2)
	assert.Empty(t, h.Drain())
	assert.Panics(t, func() { h.Push(0, types.Record{TP: 1}) })
}
