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

// Package dataflow runs an operator graph on a fixed pool of workers. Every worker holds an
// identical instance of the graph; edges move records between workers by key hash and carry the
// frontiers that drive the progress protocol.
package dataflow

import (
	"context"
	"fmt"

	"github.com/numaproj/numamon/pkg/types"
)

// NodeID identifies a node of a Graph.
type NodeID int

// PactKind says how records travel along an edge.
type PactKind int

const (
	// Pipeline keeps records on the worker that produced them.
	Pipeline PactKind = iota
	// Exchange routes records to the worker owning the hash of their key.
	Exchange
	// Broadcast copies records to every worker.
	Broadcast
)

func (k PactKind) String() string {
	switch k {
	case Pipeline:
		return "pipeline"
	case Exchange:
		return "exchange"
	case Broadcast:
		return "broadcast"
	default:
		return "unknown"
	}
}

// Pact is the routing contract of an edge.
type Pact struct {
	Kind PactKind
	// Columns is the exchange key projection; nil hashes the whole tuple.
	Columns []int
}

// Input connects an upstream node to one input port.
type Input struct {
	From NodeID
	Pact Pact
}

// WorkerInfo describes the worker an operator instance runs on.
type WorkerInfo struct {
	Index int
	Peers int
}

// Factory builds the operator instance of a node for one worker.
type Factory func(ctx context.Context, w WorkerInfo) Operator

// NodeSpec describes one node of the graph.
type NodeSpec struct {
	ID      NodeID
	Name    string
	Inputs  []Input
	Factory Factory
	source  bool
}

// IsSource reports whether the node is fed by the driver.
func (n *NodeSpec) IsSource() bool {
	return n.source
}

// Graph is the worker independent description of an operator graph. Nodes can only consume nodes
// added before them, so every graph is acyclic.
type Graph struct {
	nodes   []*NodeSpec
	root    NodeID
	hasRoot bool
}

func NewGraph() *Graph {
	return &Graph{}
}

// AddSource adds a node fed by the driver. Records injected into it are forwarded unchanged.
func (g *Graph) AddSource(name string) NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, &NodeSpec{
		ID:     id,
		Name:   name,
		source: true,
		Factory: func(context.Context, WorkerInfo) Operator {
			return &passthrough{}
		},
	})
	return id
}

// AddNode adds an operator node consuming the given inputs, one port per input in order.
func (g *Graph) AddNode(name string, factory Factory, inputs ...Input) (NodeID, error) {
	id := NodeID(len(g.nodes))
	for i, in := range inputs {
		if in.From < 0 || in.From >= id {
			return 0, fmt.Errorf("node %q: input %d refers to unknown node %d", name, i, in.From)
		}
	}
	if factory == nil {
		return 0, fmt.Errorf("node %q: missing operator factory", name)
	}
	g.nodes = append(g.nodes, &NodeSpec{
		ID:      id,
		Name:    name,
		Inputs:  inputs,
		Factory: factory,
	})
	return id, nil
}

// SetRoot marks the node whose output is collected.
func (g *Graph) SetRoot(id NodeID) error {
	if id < 0 || int(id) >= len(g.nodes) {
		return fmt.Errorf("unknown root node %d", id)
	}
	g.root = id
	g.hasRoot = true
	return nil
}

// Root returns the collected node.
func (g *Graph) Root() (NodeID, bool) {
	return g.root, g.hasRoot
}

func (g *Graph) Len() int {
	return len(g.nodes)
}

func (g *Graph) Node(id NodeID) *NodeSpec {
	return g.nodes[id]
}

// passthrough forwards records and frontiers of its single port.
type passthrough struct{}

func (p *passthrough) OnRecords(out *Output, _ int, records []types.Record) {
	for _, r := range records {
		out.Emit(r.TP, r.Tuple)
	}
}

func (p *passthrough) OnFrontier(out *Output, _ int, frontier types.Timepoint) {
	out.Downgrade(frontier)
}
