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
	"github.com/jacobsa/reqtrace"

	"github.com/fspbridge/kfusebridge/cache"
	"github.com/fspbridge/kfusebridge/fsext"
	"github.com/fspbridge/kfusebridge/model"
	"github.com/fspbridge/kfusebridge/status"
)

// opKind identifies which per-opcode coroutine a Context is running.
type opKind int

const (
	opInit opKind = iota
	opLookup
	opGetattr
	opOpen
	opOpendir
	opCreate
	opForget
	opBatchForget
)

// variant distinguishes a live, running Context from one that already knows
// its terminal status. This is the
// tagged-variant rewrite the design notes call for, replacing the source's
// pointer-tagging trick.
type variant int

const (
	variantAlive variant = iota
	variantFailed
)

// wireResponse is the decoded form of one daemon reply, handed to a
// Context's resume routine during the response half-step.
type wireResponse struct {
	errno   int32
	payload []byte
}

// Context is the per-operation resumable state machine. It implements ioq.Item via Ticket.
//
// A Context in the Failed variant carries only a terminal status; the
// engine detects this at construction and short-circuits to an internal
// response without ever resuming the state machine.
type Context struct {
	ticket uint64

	v            variant
	failedStatus status.Status

	kind opKind
	step int

	instance *Instance
	req      *fsext.InternalRequest
	resp     fsext.InternalResponse

	// Operation-specific scratch.
	parent     model.InodeID
	name       string
	handle     model.HandleID
	cacheItem  *cache.Item
	forgetHead *cache.ForgetNode

	// Fini runs on destruction regardless of how the context terminated,
	// used by FORGET/BATCH_FORGET to discard whatever remains of an
	// undrained forget chain.
	fini func()

	report reqtrace.ReportFunc
}

// Ticket implements ioq.Item.
func (c *Context) Ticket() uint64 { return c.ticket }

// expectsNoReply reports whether c's opcode never receives a daemon
// response. FORGET and BATCH_FORGET are fire-and-forget: after emitting a
// request, the context is either done or has more of its own chain left to
// send, never a reply to wait on.
func (c *Context) expectsNoReply() bool {
	return c.kind == opForget || c.kind == opBatchForget
}

// Failed reports whether c is a status-only context.
func (c *Context) Failed() (status.Status, bool) {
	if c.v == variantFailed {
		return c.failedStatus, true
	}
	return 0, false
}

// destroy runs c's Fini hook, if any, and releases the cache reference a
// successful LOOKUP or CREATE took out, scoping that pin to the operation's
// own lifetime rather than holding it forever. Every code path that removes
// a context from the engine's bookkeeping — successful completion,
// transport error, or instance teardown — must call this exactly once.
func (c *Context) destroy() {
	if c.cacheItem != nil {
		c.instance.Cache.Release(c.cacheItem)
		c.cacheItem = nil
	}
	if c.fini != nil {
		c.fini()
		c.fini = nil
	}
	if c.report != nil {
		c.report(nil)
		c.report = nil
	}
}
