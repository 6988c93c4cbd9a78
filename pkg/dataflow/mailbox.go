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
	"sync"

	"go.uber.org/atomic"

	"github.com/numaproj/numamon/pkg/types"
)

// message is what travels between workers: a batch of records or a frontier of one sender.
type message struct {
	node   NodeID
	port   int
	sender int
	// records is nil for frontier messages
	records  []types.Record
	frontier types.Timepoint
	progress bool
}

// mailbox is the unbounded FIFO inbox of a worker. Any goroutine may push; only the owning
// worker drains it.
type mailbox struct {
	lock   sync.Mutex
	queue  []message
	notify chan struct{}
	depth  *atomic.Int64
}

func newMailbox() *mailbox {
	return &mailbox{
		notify: make(chan struct{}, 1),
		depth:  atomic.NewInt64(0),
	}
}

func (m *mailbox) push(msgs ...message) {
	if len(msgs) == 0 {
		return
	}
	m.lock.Lock()
	m.queue = append(m.queue, msgs...)
	m.lock.Unlock()
	m.depth.Add(int64(len(msgs)))
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// drain blocks until at least one message is queued, then returns all queued messages in order.
func (m *mailbox) drain(ctx context.Context) ([]message, error) {
	for {
		m.lock.Lock()
		if len(m.queue) > 0 {
			msgs := m.queue
			m.queue = nil
			m.lock.Unlock()
			m.depth.Sub(int64(len(msgs)))
			return msgs, nil
		}
		m.lock.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-m.notify:
		}
	}
}

// Len is the number of queued messages.
func (m *mailbox) Len() int64 {
	return m.depth.Load()
}
