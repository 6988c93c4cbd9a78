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
	"fmt"

	"go.uber.org/zap"

	"github.com/numaproj/numamon/pkg/types"
)

// Operator is one instance of a graph node on one worker. The runtime calls it from a single
// goroutine, so implementations hold plain maps and need no locking.
type Operator interface {
	// OnRecords delivers a batch of records that arrived on an input port.
	OnRecords(out *Output, port int, records []types.Record)
	// OnFrontier reports that the frontier of an input port advanced.
	OnFrontier(out *Output, port int, frontier types.Timepoint)
}

// Initializer is implemented by operators that need to act before any input arrives, e.g. to
// release a token that no input can hold back.
type Initializer interface {
	Init(out *Output)
}

// ErrProgressViolation is the panic value raised when an operator breaks the progress protocol.
type ErrProgressViolation struct {
	Operator string
	Token    types.Timepoint
	TP       types.Timepoint
	Message  string
}

func (e ErrProgressViolation) Error() string {
	return fmt.Sprintf("progress violation in %s: %s (token %s, timepoint %s)", e.Operator, e.Message, e.Token, e.TP)
}

// Output is the handle an operator uses to emit records and to downgrade its progress token.
type Output struct {
	name      string
	worker    WorkerInfo
	token     types.Timepoint
	frontiers []types.Timepoint
	staged    []types.Record
	log       *zap.SugaredLogger
}

func newOutput(name string, worker WorkerInfo, ports int, log *zap.SugaredLogger) *Output {
	return &Output{
		name:      name,
		worker:    worker,
		frontiers: make([]types.Timepoint, ports),
		log:       log,
	}
}

// Emit sends a tuple downstream at tp. Emitting below the token is a protocol violation.
func (o *Output) Emit(tp types.Timepoint, tuple types.Tuple) {
	if tp < o.token {
		panic(ErrProgressViolation{Operator: o.name, Token: o.token, TP: tp, Message: "record emitted below the progress token"})
	}
	o.staged = append(o.staged, types.Record{TP: tp, Tuple: tuple})
}

// EmitRange sends the tuple at every timepoint of lo..hi.
func (o *Output) EmitRange(lo, hi types.Timepoint, tuple types.Tuple) {
	for tp := lo; tp <= hi; tp++ {
		o.Emit(tp, tuple)
	}
}

// Downgrade moves the token forward to tp. A tp at or below the current token is ignored.
func (o *Output) Downgrade(tp types.Timepoint) {
	if tp > o.token {
		o.token = tp
	}
}

// Token is the current progress token: no record below it will be emitted.
func (o *Output) Token() types.Timepoint {
	return o.token
}

// Frontier is the current frontier of an input port.
func (o *Output) Frontier(port int) types.Timepoint {
	return o.frontiers[port]
}

// Ports is the number of input ports.
func (o *Output) Ports() int {
	return len(o.frontiers)
}

func (o *Output) Worker() WorkerInfo {
	return o.worker
}

func (o *Output) Name() string {
	return o.name
}

func (o *Output) Logger() *zap.SugaredLogger {
	return o.log
}

func (o *Output) drain() []types.Record {
	staged := o.staged
	o.staged = nil
	return staged
}
