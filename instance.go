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

package kfusebridge

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jacobsa/timeutil"

	"github.com/fspbridge/kfusebridge/cache"
	"github.com/fspbridge/kfusebridge/fsext"
	"github.com/fspbridge/kfusebridge/internal/ioq"
	"github.com/fspbridge/kfusebridge/model"
)

// versionSentinelDenied marks VersionMajor when the INIT handshake has been
// permanently refused, distinguishing "not yet negotiated" (0) from
// "never will be" (-1).
const versionSentinelDenied = -1

// Instance is one mounted volume's worth of state: a protocol version pair,
// an IOQ, a cache, the file-object table, and the lock ordering that
// protects structural operations (init/fini/expiration) against concurrent
// per-request work.
//
// Fini order is fixed and load-bearing: IOQ first (it may hold contexts
// that still reference cache items), then the file table, then the cache.
type Instance struct {
	ID uuid.UUID

	Params model.VolumeParams

	IOQ   *ioq.Queue
	Cache *cache.Cache

	// OpGuard serializes structural operations (init/fini/expiration,
	// write side) against per-request work that needs stability against
	// teardown (read side).
	OpGuard sync.RWMutex

	Host fsext.Host

	clock timeutil.Clock

	nextTicket uint64 // atomic

	versionMajor int32 // atomic; 0 = unnegotiated, -1 = denied, >0 = live
	versionMinor int32 // atomic

	initDone   chan struct{}
	initDoneMu sync.Mutex // guards closing initDone exactly once

	fileTable sync.Map // model.HandleID -> struct{} (bookkeeping only)
}

// NewInstance constructs an Instance per the fixed init order: build the IOQ
// and cache, initialize OpGuard and the init event, post an internal INIT
// context to pending. params is stored as given and is not normalized;
// model.DefaultVolumeParams supplies the standard values. Any failure leaves
// nothing partially constructed, since construction only allocates Go
// values.
func NewInstance(params model.VolumeParams, host fsext.Host, clock timeutil.Clock, cacheTTL time.Duration) *Instance {
	if clock == nil {
		clock = timeutil.RealClock()
	}

	inst := &Instance{
		ID:       uuid.New(),
		Params:   params,
		IOQ:      ioq.New(),
		Cache:    cache.Create(cache.Config{CaseInsensitive: !params.CaseSensitive, TTL: cacheTTL, Clock: clock}),
		Host:     host,
		clock:    clock,
		initDone: make(chan struct{}),
	}

	initCtx := newInitContext(inst, inst.newTicket())
	inst.IOQ.PostPending(initCtx)

	return inst
}

// newTicket returns the next monotonically increasing correlation ID.
// Tickets start at 1 so that 0 stays available as a sentinel for "no
// ticket assigned yet".
func (inst *Instance) newTicket() uint64 {
	return atomic.AddUint64(&inst.nextTicket, 1)
}

// versionMajorAcquire reads the negotiated protocol major version with an
// acquire barrier, so that a request half-step can never observe a stale
// "unnegotiated" value after INIT has actually completed on another
// goroutine — avoiding a lost-wakeup race against the init event.
func (inst *Instance) versionMajorAcquire() int32 {
	return atomic.LoadInt32(&inst.versionMajor)
}

// completeInit records the negotiated version and wakes anyone blocked on
// the init event. It is idempotent; only the first call has any effect.
func (inst *Instance) completeInit(major, minor int32) {
	inst.initDoneMu.Lock()
	defer inst.initDoneMu.Unlock()

	select {
	case <-inst.initDone:
		return // already completed or denied
	default:
	}

	atomic.StoreInt32(&inst.versionMinor, minor)
	atomic.StoreInt32(&inst.versionMajor, major)
	close(inst.initDone)
}

// denyInit marks the init handshake as permanently refused.
func (inst *Instance) denyInit() {
	inst.completeInit(versionSentinelDenied, 0)
}

// ExpirationSweep ages the cache and, if any items were newly queued onto
// the forget list, posts a self-generated FORGET or BATCH_FORGET context to
// drain it.
func (inst *Instance) ExpirationSweep(now time.Time) {
	inst.OpGuard.Lock()
	defer inst.OpGuard.Unlock()

	if inst.Cache.ExpirationSweep(now) == 0 {
		return
	}
	inst.postForgetDrain()
}

func (inst *Instance) postForgetDrain() {
	if !inst.Cache.HasPendingForgets() {
		return
	}
	head, count := inst.Cache.TakeForgetList()
	if head == nil {
		return
	}

	var ctx *Context
	if count > 1 {
		ctx = newBatchForgetContext(inst, inst.newTicket(), head)
	} else {
		ctx = newForgetContext(inst, inst.newTicket(), head)
	}
	inst.IOQ.PostPending(ctx)
}

// Fini tears down the instance in the fixed order: every context still held
// by the IOQ is drained and destroyed first, then the file table is
// cleared, then the cache itself is torn down.
func (inst *Instance) Fini() {
	inst.OpGuard.Lock()
	defer inst.OpGuard.Unlock()

	for _, it := range inst.IOQ.Drain() {
		if c, ok := it.(*Context); ok {
			c.destroy()
		}
	}

	inst.fileTable.Range(func(k, _ interface{}) bool {
		inst.fileTable.Delete(k)
		return true
	})

	inst.Cache.Delete()
}
