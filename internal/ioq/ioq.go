// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ioq implements the I/O queue: a concurrency-safe dual queue
// pairing outstanding FUSE requests with their eventual responses by
// correlation ID. Rather than keying the processing map on a context's
// pointer identity, items are keyed on a monotonically increasing ticket,
// and the queue itself is generic over any Item rather than importing the
// concrete Context type — avoiding the import cycle that would otherwise
// exist between the engine (which needs a Queue) and the queue (which would
// otherwise need the engine's Context type).
//
// A single mutex guards both the pending list and the processing map, and
// every exported method is safe for concurrent callers.
package ioq

import (
	"container/list"
	"sync"

	"github.com/jacobsa/syncutil"
)

// Item is anything the queue can hold: a context awaiting its turn to emit
// a request, or awaiting a response keyed by its own ticket.
type Item interface {
	// Ticket returns the item's correlation ID, stamped once and never
	// reused while the item is live.
	Ticket() uint64
}

// Queue is the IOQ: a pending FIFO plus a processing map.
//
// INVARIANT: no item is ever present in both pending and processing.
// INVARIANT: every map entry in processing is keyed by its own Ticket().
type Queue struct {
	mu syncutil.InvariantMutex

	pending    *list.List      // GUARDED_BY(mu); elements are Item
	processing map[uint64]Item // GUARDED_BY(mu)
}

// New returns an empty Queue.
func New() *Queue {
	q := &Queue{
		pending:    list.New(),
		processing: make(map[uint64]Item),
	}
	q.mu = syncutil.NewInvariantMutex(q.checkInvariants)
	return q
}

func (q *Queue) checkInvariants() {
	for e := q.pending.Front(); e != nil; e = e.Next() {
		it := e.Value.(Item)
		if _, ok := q.processing[it.Ticket()]; ok {
			panic("ioq: item present in both pending and processing")
		}
	}
}

// PostPending appends it to the tail of the pending FIFO. it must not
// already be enqueued anywhere in this Queue.
func (q *Queue) PostPending(it Item) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending.PushBack(it)
}

// NextPending pops the head of the pending FIFO, or returns nil, false if
// empty. It never blocks; the caller (the transact loop) decides what to do
// when there is nothing pending.
func (q *Queue) NextPending() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e := q.pending.Front()
	if e == nil {
		return nil, false
	}
	q.pending.Remove(e)
	return e.Value.(Item), true
}

// StartProcessing records it as awaiting a response, keyed by its ticket.
// it must have just emitted a request and must not already be tracked.
func (q *Queue) StartProcessing(it Item) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.processing[it.Ticket()] = it
}

// EndProcessing removes and returns the item with the given ticket, or nil,
// false if none is currently being processed under that ticket — which
// means the daemon sent a spurious or late response; the
// transact loop treats that as a benign no-op.
func (q *Queue) EndProcessing(ticket uint64) (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	it, ok := q.processing[ticket]
	if !ok {
		return nil, false
	}
	delete(q.processing, ticket)
	return it, true
}

// Stats is a point-in-time snapshot of queue depth, exported for metrics.
type Stats struct {
	Pending    int
	Processing int
}

// Stats returns a snapshot of the queue's current depth.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return Stats{
		Pending:    q.pending.Len(),
		Processing: len(q.processing),
	}
}

// Drain removes every item from both pending and processing and returns
// them in no particular order, for use during instance teardown.
func (q *Queue) Drain() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []Item
	for e := q.pending.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(Item))
	}
	q.pending.Init()

	for k, it := range q.processing {
		out = append(out, it)
		delete(q.processing, k)
	}
	return out
}
