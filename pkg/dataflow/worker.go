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
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/numaproj/numamon/pkg/metrics"
	"github.com/numaproj/numamon/pkg/shuffle"
	"github.com/numaproj/numamon/pkg/types"
)

// port tracks the frontier of every sender feeding one input; the port frontier is their minimum.
type port struct {
	senders  []types.Timepoint
	frontier types.Timepoint
}

func newPort(senders int) *port {
	return &port{senders: make([]types.Timepoint, senders)}
}

func (p *port) advance(sender int, f types.Timepoint) bool {
	if f <= p.senders[sender] {
		return false
	}
	p.senders[sender] = f
	m := types.MinTimepoint(p.senders...)
	if m > p.frontier {
		p.frontier = m
		return true
	}
	return false
}

type consumer struct {
	node    NodeID
	port    int
	pact    Pact
	shuffle *shuffle.Shuffle
}

type instance struct {
	spec  *NodeSpec
	op    Operator
	out   *Output
	ports []*port
	// sent is the last token advertised downstream
	sent  types.Timepoint
	label string
}

type worker struct {
	index     int
	peers     []*worker
	instances []*instance
	consumers [][]consumer
	mailbox   *mailbox
	collector Collector
	root      NodeID
	log       *zap.SugaredLogger
}

func (w *worker) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Errorw("Worker panicked", zap.Any("panic", r))
			if e, ok := r.(error); ok {
				err = fmt.Errorf("worker %d: %w", w.index, e)
			} else {
				err = fmt.Errorf("worker %d: %v", w.index, r)
			}
		}
	}()
	for _, inst := range w.instances {
		if init, ok := inst.op.(Initializer); ok {
			init.Init(inst.out)
			w.flush(inst)
		}
	}
	depth := mailboxDepth.WithLabelValues(strconv.Itoa(w.index))
	for !w.released() {
		msgs, err := w.mailbox.drain(ctx)
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			w.deliver(msg)
		}
		depth.Set(float64(w.mailbox.Len()))
	}
	w.log.Debug("All operators released, worker exiting")
	return nil
}

// released reports whether every operator on the worker released its token and saw every input end.
func (w *worker) released() bool {
	for _, inst := range w.instances {
		if inst.out.token != types.Infinity {
			return false
		}
		for _, p := range inst.ports {
			if p.frontier != types.Infinity {
				return false
			}
		}
	}
	return true
}

func (w *worker) deliver(msg message) {
	inst := w.instances[msg.node]
	if msg.progress {
		p := inst.ports[msg.port]
		slot := 0
		if len(p.senders) > 1 {
			slot = msg.sender
		}
		if p.advance(slot, msg.frontier) {
			inst.out.frontiers[msg.port] = p.frontier
			inst.op.OnFrontier(inst.out, msg.port, p.frontier)
		}
	} else if len(msg.records) > 0 {
		inst.op.OnRecords(inst.out, msg.port, msg.records)
	}
	w.flush(inst)
}

// flush forwards what the operator emitted, then its token if it moved. Records always travel
// before the frontier that follows them, and mailboxes keep that order.
func (w *worker) flush(inst *instance) {
	id := inst.spec.ID
	if records := inst.out.drain(); len(records) > 0 {
		recordsEmitted.WithLabelValues(inst.label, strconv.Itoa(w.index)).Add(float64(len(records)))
		for _, c := range w.consumers[id] {
			w.send(c, records)
		}
		if id == w.root && w.collector != nil {
			w.collector.Collect(w.index, records)
		}
	}
	if tok := inst.out.token; tok > inst.sent {
		inst.sent = tok
		progressToken.WithLabelValues(inst.label, strconv.Itoa(w.index)).Set(metrics.TimepointValue(int64(tok)))
		for _, c := range w.consumers[id] {
			w.sendFrontier(c, tok)
		}
		if id == w.root && w.collector != nil {
			w.collector.Advance(w.index, tok)
		}
	}
}

func (w *worker) send(c consumer, records []types.Record) {
	switch c.pact.Kind {
	case Pipeline:
		w.mailbox.push(message{node: c.node, port: c.port, sender: w.index, records: records})
	case Exchange:
		for p, recs := range c.shuffle.ShuffleRecords(records) {
			w.peers[p].mailbox.push(message{node: c.node, port: c.port, sender: w.index, records: recs})
		}
	case Broadcast:
		for _, peer := range w.peers {
			peer.mailbox.push(message{node: c.node, port: c.port, sender: w.index, records: records})
		}
	}
}

func (w *worker) sendFrontier(c consumer, f types.Timepoint) {
	msg := message{node: c.node, port: c.port, sender: w.index, frontier: f, progress: true}
	if c.pact.Kind == Pipeline {
		w.mailbox.push(msg)
		return
	}
	for _, peer := range w.peers {
		peer.mailbox.push(msg)
	}
}
