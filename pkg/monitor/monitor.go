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

// Package monitor runs a compiled plan over a fact stream and a time stream and reports the
// satisfying tuples of every timepoint once they are final.
//
// The driver pushes the facts and the timestamp of every timepoint, in timepoint order, and closes
// both streams at the end:
//
//	m, err := monitor.New(ctx, node, monitor.WithWorkers(4))
//	...
//	_ = m.Start(ctx)
//	_ = m.PushFacts(0, []string{"p(1)"})
//	_ = m.PushTimestamp(0, 1613685282)
//	_ = m.CloseFacts()
//	_ = m.CloseTime()
//	for v := range m.Results() {
//		...
//	}
//	err = m.Wait()
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/numaproj/numamon/pkg/compiler"
	"github.com/numaproj/numamon/pkg/dataflow"
	"github.com/numaproj/numamon/pkg/plan"
	"github.com/numaproj/numamon/pkg/shared/logging"
	"github.com/numaproj/numamon/pkg/shuffle"
	"github.com/numaproj/numamon/pkg/sources/fact"
	"github.com/numaproj/numamon/pkg/temporal"
	"github.com/numaproj/numamon/pkg/types"
)

var (
	// ErrClosed is returned when pushing to a stream that was closed.
	ErrClosed = errors.New("stream is closed")
	// ErrOutOfOrder is returned for a timepoint or a timestamp that moves backward.
	ErrOutOfOrder = errors.New("out of order")
)

// Monitor is an online monitor of one plan.
type Monitor struct {
	program   *compiler.Program
	runtime   *dataflow.Runtime
	collector *collector
	shuffle   *shuffle.Shuffle
	results   chan Verdict
	opts      *options

	lock sync.Mutex
	// factsFrontier is the lowest timepoint PushFacts still accepts
	factsFrontier types.Timepoint
	// nextTime is the timepoint PushTimestamp expects
	nextTime    types.Timepoint
	lastTS      types.Timestamp
	factsClosed bool
	timeClosed  bool

	started *atomic.Bool
	done    chan struct{}
	err     error
	log     *zap.SugaredLogger
}

// New compiles the plan and builds the workers. Plan errors are returned here, before any data
// flows.
func New(ctx context.Context, node plan.Node, opts ...Option) (*Monitor, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	log := logging.FromContext(ctx)
	program, err := compiler.Compile(ctx, node, compiler.WithDedup(o.dedup), compiler.WithFactCacheSize(o.cacheSize))
	if err != nil {
		return nil, fmt.Errorf("failed to compile the plan: %w", err)
	}
	c := newCollector(program.Schema, o.workers, o.emptyVerdicts, log)
	runtime, err := dataflow.NewRuntime(ctx, program.Graph, c, dataflow.WithWorkers(o.workers))
	if err != nil {
		return nil, fmt.Errorf("failed to create the dataflow runtime: %w", err)
	}
	return &Monitor{
		program:   program,
		runtime:   runtime,
		collector: c,
		shuffle:   shuffle.NewShuffle(o.workers, nil),
		results:   make(chan Verdict),
		opts:      o,
		started:   atomic.NewBool(false),
		done:      make(chan struct{}),
		log:       log,
	}, nil
}

// Schema is the variable order of the tuples of every verdict.
func (m *Monitor) Schema() types.Schema {
	return m.program.Schema
}

// Start runs the workers until both streams are closed and every result is reported, or ctx is
// done. The results channel must be drained for the monitor to finish.
func (m *Monitor) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return fmt.Errorf("monitor already started")
	}
	var wg sync.WaitGroup
	var runErr, pumpErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.log.Infow("Starting monitor...", zap.Int("workers", m.opts.workers))
		runErr = m.runtime.Run(ctx)
		if runErr != nil {
			m.log.Errorw("Monitor stopped", zap.Error(runErr))
		}
		m.collector.finish()
	}()
	go func() {
		defer wg.Done()
		pumpErr = m.collector.queue.pump(ctx, m.results)
	}()
	go func() {
		wg.Wait()
		m.err = multierr.Combine(runErr, pumpErr)
		m.log.Info("Monitor finished")
		close(m.done)
	}()
	return nil
}

// Results returns the verdicts in timepoint order. The channel is closed after the end of
// stream verdict.
func (m *Monitor) Results() <-chan Verdict {
	return m.results
}

// Wait blocks until the monitor finished and returns the errors of the workers.
func (m *Monitor) Wait() error {
	if !m.started.Load() {
		return fmt.Errorf("monitor not started")
	}
	<-m.done
	return m.err
}

// PushFacts delivers every fact and record line of timepoint tp. Lines are spread over the
// workers by hash, so equal lines meet on one worker.
func (m *Monitor) PushFacts(tp types.Timepoint, lines []string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.factsClosed {
		return fmt.Errorf("facts of timepoint %d: %w", tp, ErrClosed)
	}
	if tp < m.factsFrontier {
		return fmt.Errorf("facts of timepoint %d after timepoint %d: %w", tp, m.factsFrontier-1, ErrOutOfOrder)
	}
	batches := make(map[int][]types.Record)
	for _, l := range lines {
		w := m.shuffle.PartitionKey(l)
		batches[w] = append(batches[w], types.Record{TP: tp, Tuple: fact.LineTuple(l)})
	}
	for w, records := range batches {
		if err := m.runtime.Inject(m.program.Facts, w, records); err != nil {
			return err
		}
	}
	m.factsFrontier = tp + 1
	return m.runtime.Advance(m.program.Facts, m.factsFrontier)
}

// PushTimestamp announces the timestamp of timepoint tp. Timepoints are announced one after
// the other, with non-decreasing timestamps.
func (m *Monitor) PushTimestamp(tp types.Timepoint, ts types.Timestamp) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.timeClosed {
		return fmt.Errorf("timestamp of timepoint %d: %w", tp, ErrClosed)
	}
	if tp != m.nextTime {
		return fmt.Errorf("timestamp of timepoint %d, expected timepoint %d: %w", tp, m.nextTime, ErrOutOfOrder)
	}
	if tp > 0 && ts < m.lastTS {
		return fmt.Errorf("timestamp %d of timepoint %d is below %d: %w", ts, tp, m.lastTS, ErrOutOfOrder)
	}
	record := []types.Record{{TP: tp, Tuple: temporal.TimeTuple(ts)}}
	for w := 0; w < m.runtime.Workers(); w++ {
		if err := m.runtime.Inject(m.program.Time, w, record); err != nil {
			return err
		}
	}
	m.collector.observe(tp, ts)
	m.nextTime = tp + 1
	m.lastTS = ts
	return m.runtime.Advance(m.program.Time, m.nextTime)
}

// CloseFacts ends the fact stream.
func (m *Monitor) CloseFacts() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.factsClosed {
		return nil
	}
	m.factsClosed = true
	return m.runtime.Advance(m.program.Facts, types.Infinity)
}

// CloseTime ends the time stream: no timepoint follows the last announced one.
func (m *Monitor) CloseTime() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.timeClosed {
		return nil
	}
	m.timeClosed = true
	return m.runtime.Advance(m.program.Time, types.Infinity)
}

// IsHealthy returns the error the monitor stopped with, nil while it runs or after a clean finish.
func (m *Monitor) IsHealthy(_ context.Context) error {
	select {
	case <-m.done:
		return m.err
	default:
		return nil
	}
}
