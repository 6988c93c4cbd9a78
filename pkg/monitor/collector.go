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

package monitor

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/numaproj/numamon/pkg/types"
)

// Verdict is the final result of one timepoint. Tuples is a set, sorted and free of duplicates
// whatever the deduplication setting of the operators: a satisfying assignment is reported once
// however many times the graph derived it. The last verdict on a results channel has EOS set and
// carries no tuples.
type Verdict struct {
	TP     types.Timepoint
	TS     types.Timestamp
	Tuples []types.Tuple
	Schema types.Schema
	EOS    bool
}

// collector gathers the root output of every worker. A timepoint is final once every worker's
// root frontier passed it and its timestamp is known; final timepoints are queued in order.
type collector struct {
	lock       sync.Mutex
	schema     types.Schema
	empty      bool
	frontiers  []types.Timepoint
	pending    map[types.Timepoint]map[string]types.Tuple
	timestamps map[types.Timepoint]types.Timestamp
	// next is the lowest timepoint that is not final
	next  types.Timepoint
	queue *queue
	log   *zap.SugaredLogger
}

func newCollector(schema types.Schema, workers int, empty bool, log *zap.SugaredLogger) *collector {
	return &collector{
		schema:     schema,
		empty:      empty,
		frontiers:  make([]types.Timepoint, workers),
		pending:    make(map[types.Timepoint]map[string]types.Tuple),
		timestamps: make(map[types.Timepoint]types.Timestamp),
		queue:      newQueue(),
		log:        log,
	}
}

// Collect keeps one copy of each tuple per timepoint; multiplicities are not part of a verdict.
func (c *collector) Collect(_ int, records []types.Record) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, r := range records {
		if r.TP < c.next {
			c.log.Errorw("Dropped a record of a final timepoint", zap.Int64("tp", int64(r.TP)), zap.String("tuple", r.Tuple.String()))
			continue
		}
		set, ok := c.pending[r.TP]
		if !ok {
			set = make(map[string]types.Tuple)
			c.pending[r.TP] = set
		}
		set[r.Tuple.Key()] = r.Tuple
	}
}

func (c *collector) Advance(worker int, frontier types.Timepoint) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.frontiers[worker] = frontier
	c.finalize()
}

// observe records the timestamp of a timepoint.
func (c *collector) observe(tp types.Timepoint, ts types.Timestamp) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.timestamps[tp] = ts
	c.finalize()
}

func (c *collector) frontier() types.Timepoint {
	f := types.Infinity
	for _, w := range c.frontiers {
		if w < f {
			f = w
		}
	}
	return f
}

func (c *collector) finalize() {
	f := c.frontier()
	for c.next < f {
		ts, ok := c.timestamps[c.next]
		if !ok {
			break
		}
		c.report(c.next, ts)
		delete(c.timestamps, c.next)
		delete(c.pending, c.next)
		c.next++
	}
	finalizedTimepoint.Set(float64(c.next))
}

func (c *collector) report(tp types.Timepoint, ts types.Timestamp) {
	set := c.pending[tp]
	if len(set) == 0 && !c.empty {
		return
	}
	tuples := make([]types.Tuple, 0, len(set))
	for _, t := range set {
		tuples = append(tuples, t)
	}
	types.SortTuples(tuples)
	verdictsReported.Inc()
	tuplesReported.Add(float64(len(tuples)))
	c.queue.push(Verdict{TP: tp, TS: ts, Tuples: tuples, Schema: c.schema})
}

// finish reports the end of stream. Results of timepoints whose timestamp never arrived cannot
// be reported and are dropped.
func (c *collector) finish() {
	c.lock.Lock()
	defer c.lock.Unlock()
	for tp, set := range c.pending {
		if _, ok := c.timestamps[tp]; !ok && len(set) > 0 {
			c.log.Warnw("Dropped results of a timepoint without a timestamp", zap.Int64("tp", int64(tp)), zap.Int("tuples", len(set)))
		}
	}
	c.pending = make(map[types.Timepoint]map[string]types.Tuple)
	c.queue.push(Verdict{TP: c.next, Schema: c.schema, EOS: true})
	c.queue.close()
}

// queue is an unbounded FIFO of verdicts between the collector, called on worker goroutines,
// and the results channel. Workers never wait for the reader of the results.
type queue struct {
	lock   sync.Mutex
	items  []Verdict
	closed bool
	notify chan struct{}
}

func newQueue() *queue {
	return &queue{notify: make(chan struct{}, 1)}
}

func (q *queue) push(v Verdict) {
	q.lock.Lock()
	q.items = append(q.items, v)
	q.lock.Unlock()
	q.wake()
}

func (q *queue) close() {
	q.lock.Lock()
	q.closed = true
	q.lock.Unlock()
	q.wake()
}

func (q *queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// pump sends the queued verdicts to out until the queue is closed and empty, then closes out.
func (q *queue) pump(ctx context.Context, out chan<- Verdict) error {
	defer close(out)
	for {
		q.lock.Lock()
		items, closed := q.items, q.closed
		q.items = nil
		q.lock.Unlock()
		for _, v := range items {
			select {
			case out <- v:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if closed && len(items) == 0 {
			return nil
		}
		if len(items) > 0 {
			continue
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
