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

package ioq_test

import (
	"sync"
	"testing"

	. "github.com/jacobsa/oglematchers"
	. "github.com/jacobsa/ogletest"

	"github.com/fspbridge/kfusebridge/internal/ioq"
)

func TestIOQ(t *testing.T) { RunTests(t) }

type fakeItem struct {
	ticket uint64
}

func (f *fakeItem) Ticket() uint64 { return f.ticket }

type IOQTest struct {
	q *ioq.Queue
}

func init() { RegisterTestSuite(&IOQTest{}) }

func (t *IOQTest) SetUp(*TestInfo) {
	t.q = ioq.New()
}

func (t *IOQTest) EmptyQueueHasNoPending() {
	it, ok := t.q.NextPending()
	ExpectFalse(ok)
	ExpectEq(nil, it)
}

func (t *IOQTest) PendingIsFIFO() {
	a := &fakeItem{1}
	b := &fakeItem{2}
	c := &fakeItem{3}

	t.q.PostPending(a)
	t.q.PostPending(b)
	t.q.PostPending(c)

	got, ok := t.q.NextPending()
	AssertTrue(ok)
	ExpectEq(a, got)

	got, ok = t.q.NextPending()
	AssertTrue(ok)
	ExpectEq(b, got)

	got, ok = t.q.NextPending()
	AssertTrue(ok)
	ExpectEq(c, got)

	_, ok = t.q.NextPending()
	ExpectFalse(ok)
}

func (t *IOQTest) ProcessingRoundTrip() {
	a := &fakeItem{42}
	t.q.StartProcessing(a)

	stats := t.q.Stats()
	ExpectEq(0, stats.Pending)
	ExpectEq(1, stats.Processing)

	got, ok := t.q.EndProcessing(42)
	AssertTrue(ok)
	ExpectEq(a, got)

	_, ok = t.q.EndProcessing(42)
	ExpectFalse(ok, "a second EndProcessing for the same ticket must be a no-op")
}

func (t *IOQTest) SpuriousResponseIsBenign() {
	_, ok := t.q.EndProcessing(999)
	ExpectFalse(ok)
}

func (t *IOQTest) NeverInBothQueuesAtOnce() {
	a := &fakeItem{1}

	t.q.PostPending(a)
	got, ok := t.q.NextPending()
	AssertTrue(ok)

	t.q.StartProcessing(got)
	stats := t.q.Stats()
	ExpectEq(0, stats.Pending)
	ExpectEq(1, stats.Processing)
}

func (t *IOQTest) DrainReturnsEverythingAndEmptiesBothStructures() {
	a := &fakeItem{1}
	b := &fakeItem{2}

	t.q.PostPending(a)
	t.q.StartProcessing(b)

	items := t.q.Drain()
	ExpectThat(items, Contains(a))
	ExpectThat(items, Contains(b))

	stats := t.q.Stats()
	ExpectEq(0, stats.Pending)
	ExpectEq(0, stats.Processing)
}

func (t *IOQTest) ConcurrentCallersDoNotRace() {
	var wg sync.WaitGroup
	const n = 200

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			it := &fakeItem{uint64(i)}
			t.q.StartProcessing(it)
			t.q.EndProcessing(it.Ticket())
		}(i)
	}
	wg.Wait()

	stats := t.q.Stats()
	ExpectEq(0, stats.Processing)
}
