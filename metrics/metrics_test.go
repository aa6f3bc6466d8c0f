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

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/fspbridge/kfusebridge/cache"
	"github.com/fspbridge/kfusebridge/internal/ioq"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestSampleReportsQueueDepth(t *testing.T) {
	c := New("test-volume")
	q := ioq.New()
	ca := cache.Create(cache.Config{TTL: time.Minute})

	q.PostPending(fakeItem{ticket: 1})
	q.PostPending(fakeItem{ticket: 2})

	s := NewSampler(c)
	s.Sample(q, ca)

	require.Equal(t, float64(2), gaugeValue(t, c.IOQPending))
	require.Equal(t, float64(0), gaugeValue(t, c.IOQProcessing))
}

// TestSampleAccumulatesCacheCounters verifies that Sample converts Cache's
// monotonic running totals into Prometheus counter deltas rather than
// resetting them each call, across two snapshots taken after distinct
// cache activity.
func TestSampleAccumulatesCacheCounters(t *testing.T) {
	c := New("test-volume")
	q := ioq.New()
	ca := cache.Create(cache.Config{TTL: time.Minute})

	s := NewSampler(c)

	ca.Lookup(1, "missing-a")
	s.Sample(q, ca)
	require.Equal(t, float64(1), counterValue(t, c.CacheMisses))

	ca.Lookup(1, "missing-b")
	ca.Lookup(1, "missing-c")
	s.Sample(q, ca)
	require.Equal(t, float64(3), counterValue(t, c.CacheMisses))
}

type fakeItem struct {
	ticket uint64
}

func (f fakeItem) Ticket() uint64 { return f.ticket }
