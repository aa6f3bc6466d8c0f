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

// Package metrics exports Prometheus collectors for a running instance's
// I/O queue depth and metadata cache effectiveness. Nothing in the engine
// depends on this package; a binary wires it in by calling MustRegister once
// and then periodically calling Sample.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fspbridge/kfusebridge/cache"
	"github.com/fspbridge/kfusebridge/internal/ioq"
)

// Collectors is the set of gauges, counters, and histograms a mounted
// volume reports.
type Collectors struct {
	IOQPending    prometheus.Gauge
	IOQProcessing prometheus.Gauge

	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheEvictions prometheus.Counter
	ForgetDepth    prometheus.Gauge

	TransactDuration prometheus.Histogram
}

// New constructs a Collectors with the given label, typically the volume's
// mount point or instance ID.
func New(volume string) *Collectors {
	constLabels := prometheus.Labels{"volume": volume}
	return &Collectors{
		IOQPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "kfuse_ioq_pending",
			Help:        "Number of contexts waiting to emit a request.",
			ConstLabels: constLabels,
		}),
		IOQProcessing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "kfuse_ioq_processing",
			Help:        "Number of contexts awaiting a daemon response.",
			ConstLabels: constLabels,
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "kfuse_cache_hits_total",
			Help:        "Metadata cache lookups that hit.",
			ConstLabels: constLabels,
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "kfuse_cache_misses_total",
			Help:        "Metadata cache lookups that missed.",
			ConstLabels: constLabels,
		}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "kfuse_cache_evictions_total",
			Help:        "Metadata cache items queued onto the forget list.",
			ConstLabels: constLabels,
		}),
		ForgetDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "kfuse_cache_forget_depth",
			Help:        "Items currently queued on the undrained forget list.",
			ConstLabels: constLabels,
		}),
		TransactDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "kfuse_transact_duration_seconds",
			Help:        "Wall-clock time spent in one Engine.Transact call.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}),
	}
}

// MustRegister registers every collector with reg.
func (c *Collectors) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		c.IOQPending, c.IOQProcessing,
		c.CacheHits, c.CacheMisses, c.CacheEvictions, c.ForgetDepth,
		c.TransactDuration,
	)
}

// counterDelta tracks the last observed cumulative count, so cache.Stats'
// running totals (which only grow) can be exposed as Prometheus counters
// (which only support Add, not Set).
type counterDelta struct {
	last uint64
}

func (d *counterDelta) add(c prometheus.Counter, total uint64) {
	if total > d.last {
		c.Add(float64(total - d.last))
		d.last = total
	}
}

// Sampler periodically snapshots an IOQ and Cache into a Collectors.
type Sampler struct {
	c           *Collectors
	hitsDelta   counterDelta
	missesDelta counterDelta
	evictDelta  counterDelta
}

// NewSampler returns a Sampler reporting into c.
func NewSampler(c *Collectors) *Sampler {
	return &Sampler{c: c}
}

// Sample takes one snapshot of q and ca's stats and updates the Collectors.
func (s *Sampler) Sample(q *ioq.Queue, ca *cache.Cache) {
	qs := q.Stats()
	s.c.IOQPending.Set(float64(qs.Pending))
	s.c.IOQProcessing.Set(float64(qs.Processing))

	cs := ca.Stats()
	s.hitsDelta.add(s.c.CacheHits, cs.Hits)
	s.missesDelta.add(s.c.CacheMisses, cs.Misses)
	s.evictDelta.add(s.c.CacheEvictions, cs.Evictions)
	s.c.ForgetDepth.Set(float64(cs.ForgetDepth))
}

// ObserveTransact records the duration of one Engine.Transact call.
func (c *Collectors) ObserveTransact(start time.Time) {
	c.TransactDuration.Observe(time.Since(start).Seconds())
}
