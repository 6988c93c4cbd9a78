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

	"golang.org/x/sync/errgroup"

	"github.com/numaproj/numamon/pkg/shared/logging"
	"github.com/numaproj/numamon/pkg/shuffle"
	"github.com/numaproj/numamon/pkg/types"
)

// Collector receives the output of the root node of every worker.
type Collector interface {
	// Collect is called with the records the root emitted on a worker.
	Collect(worker int, records []types.Record)
	// Advance is called when the root token of a worker moves forward.
	Advance(worker int, frontier types.Timepoint)
}

// Runtime instantiates a Graph on every worker and runs the workers.
type Runtime struct {
	graph   *Graph
	workers []*worker
	opts    *options
}

// NewRuntime builds one instance of every node per worker.
func NewRuntime(ctx context.Context, graph *Graph, collector Collector, opts ...Option) (*Runtime, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	root, ok := graph.Root()
	if !ok {
		return nil, fmt.Errorf("graph has no root node")
	}
	log := logging.FromContext(ctx)

	r := &Runtime{graph: graph, opts: o}
	peers := make([]*worker, o.workers)
	for i := range peers {
		peers[i] = &worker{
			index:     i,
			peers:     peers,
			mailbox:   newMailbox(),
			collector: collector,
			root:      root,
			consumers: make([][]consumer, graph.Len()),
			log:       log.With("worker", i),
		}
	}
	for _, w := range peers {
		info := WorkerInfo{Index: w.index, Peers: o.workers}
		for _, spec := range graph.nodes {
			label := fmt.Sprintf("%d:%s", spec.ID, spec.Name)
			opLog := w.log.With("operator", label)
			inst := &instance{
				spec:  spec,
				op:    spec.Factory(logging.WithLogger(ctx, opLog), info),
				label: label,
			}
			ports := len(spec.Inputs)
			if spec.source {
				ports = 1
				inst.ports = []*port{newPort(1)}
			} else {
				for _, in := range spec.Inputs {
					senders := 1
					if in.Pact.Kind != Pipeline {
						senders = o.workers
					}
					inst.ports = append(inst.ports, newPort(senders))
				}
			}
			inst.out = newOutput(label, info, ports, opLog)
			w.instances = append(w.instances, inst)
			for p, in := range spec.Inputs {
				c := consumer{node: spec.ID, port: p, pact: in.Pact}
				if in.Pact.Kind == Exchange {
					c.shuffle = shuffle.NewShuffle(o.workers, in.Pact.Columns)
				}
				w.consumers[in.From] = append(w.consumers[in.From], c)
			}
		}
	}
	r.workers = peers
	return r, nil
}

// Workers is the number of workers.
func (r *Runtime) Workers() int {
	return len(r.workers)
}

// Run runs every worker until all of them released their operators, or ctx is done.
func (r *Runtime) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)
	for _, w := range r.workers {
		w := w
		g.Go(func() error {
			return w.run(gCtx)
		})
	}
	return g.Wait()
}

// Inject feeds records into a source node on one worker.
func (r *Runtime) Inject(source NodeID, worker int, records []types.Record) error {
	if err := r.checkSource(source); err != nil {
		return err
	}
	if worker < 0 || worker >= len(r.workers) {
		return fmt.Errorf("unknown worker %d", worker)
	}
	r.workers[worker].mailbox.push(message{node: source, records: records})
	return nil
}

// Advance moves the frontier of a source node on every worker.
func (r *Runtime) Advance(source NodeID, frontier types.Timepoint) error {
	if err := r.checkSource(source); err != nil {
		return err
	}
	for _, w := range r.workers {
		w.mailbox.push(message{node: source, frontier: frontier, progress: true})
	}
	return nil
}

func (r *Runtime) checkSource(id NodeID) error {
	if id < 0 || int(id) >= r.graph.Len() || !r.graph.nodes[id].source {
		return fmt.Errorf("node %d is not a source", id)
	}
	return nil
}
