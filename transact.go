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
	"context"

	"github.com/fspbridge/kfusebridge/fsext"
	"github.com/fspbridge/kfusebridge/internal/wire"
	"github.com/fspbridge/kfusebridge/status"
)

// Engine is the single entry point translating between the host framework
// and the FUSE daemon: one Transact call consumes at most one daemon
// response (the response half-step) and produces at most one daemon
// request (the request half-step).
type Engine struct {
	inst *Instance
}

// NewEngine returns an Engine driving inst.
func NewEngine(inst *Instance) *Engine {
	return &Engine{inst: inst}
}

// maxRequestAttempts bounds the request half-step's internal retry loop,
// which only spins when a self-generated context completes without
// producing a request (an empty forget drain) or a context fails to fill
// its request and is abandoned. Host requests of an unsupported kind are
// answered inside nextRequestContext and do not use up an attempt. Real
// work always terminates this
// loop in one or two iterations; the bound exists purely so a malformed
// host implementation can never hang the transact loop.
const maxRequestAttempts = 64

// Transact implements fsext.HostCallbacks.DeviceTransact's core logic: it
// decodes in as a response to a previously emitted request (if non-empty),
// resumes that request's context, and then resumes or constructs a context
// to fill out with the next outbound request.
func (e *Engine) Transact(ctx context.Context, in []byte, out []byte) (n int, st status.Status) {
	e.inst.OpGuard.RLock()
	defer e.inst.OpGuard.RUnlock()

	if len(out) < wire.ReqSizeMin {
		errorf(0, "%s", ErrOutputTooSmall)
		return 0, status.BufferTooSmall
	}

	var pending fsext.InternalResponse
	havePending := false

	if len(in) > 0 && len(in) < wire.RspHeaderSize {
		errorf(0, "response buffer too short: %d bytes", len(in))
		return 0, status.InvalidParameter
	}

	if len(in) >= wire.RspHeaderSize {
		hdr, err := wire.DecodeRspHeader(in)
		if err != nil {
			errorf(0, "%s: %v", ErrBadResponseLength, err)
			return 0, status.InternalError
		}
		if int(hdr.Len) < wire.RspHeaderSize || int(hdr.Len) > len(in) {
			errorf(hdr.Unique, "response len %d out of bounds for %d-byte buffer", hdr.Len, len(in))
			return 0, status.InvalidParameter
		}
		if item, ok := e.inst.IOQ.EndProcessing(hdr.Unique); ok {
			c := item.(*Context)
			debugf(hdr.Unique, "response: errno=%d len=%d", hdr.Error, hdr.Len)
			wr := &wireResponse{errno: hdr.Error, payload: hdr.Payload(in)}
			_, await, rerr := c.resume(wr, nil)

			switch {
			case rerr != nil:
				errorf(hdr.Unique, "resume failed: %v", &TransportError{Err: rerr})
				e.abandon(c)
			case await:
				e.inst.IOQ.PostPending(c)
			default:
				if c.req != nil {
					pending, havePending = c.resp, true
				}
				e.abandon(c)
			}
		} else {
			debugf(hdr.Unique, "spurious or late response, ignoring")
		}
	}

	for attempt := 0; attempt < maxRequestAttempts; attempt++ {
		c, ok, st := e.nextRequestContext(ctx, &pending, &havePending)
		if !ok {
			return 0, st
		}

		wn, await, err := c.resume(nil, out)
		if err != nil {
			e.abandon(c)
			continue
		}
		if await {
			if c.expectsNoReply() {
				// A FORGET/BATCH_FORGET drain has no reply to wait for;
				// "await" here means more entries remain in its chain,
				// so it goes back to pending for another batch rather
				// than into processing.
				e.inst.IOQ.PostPending(c)
			} else {
				e.inst.IOQ.StartProcessing(c)
			}
			return wn, status.Success
		}
		if wn > 0 {
			// A self-generated FORGET/BATCH_FORGET just sent its final
			// batch: the message is complete and expects no reply.
			e.abandon(c)
			return wn, status.Success
		}

		// Terminal with nothing to send: a self-generated forget drain
		// whose list was already empty. Destroy and try the next source
		// of work within this same call.
		e.abandon(c)
	}

	return 0, status.InternalError
}

// nextRequestContext returns the next context that wants to fill a request,
// preferring self-generated pending work (forget drains, the init
// handshake) over asking the host for new work. When it must ask the host,
// it reports *pending (if havePending) as the outcome of the exchange that
// just completed.
//
// If the pending list is empty and the INIT handshake has not yet
// completed, this blocks on the init event (cancellable via ctx) before
// ever consulting the host, per the IOQ's NextPending contract: nothing
// but the INIT context itself is ever posted to pending before INIT
// completes, so an empty pending list here always means "wait for INIT",
// never "ask the host while unmounted".
func (e *Engine) nextRequestContext(ctx context.Context, pending *fsext.InternalResponse, havePending *bool) (*Context, bool, status.Status) {
	if item, ok := e.inst.IOQ.NextPending(); ok {
		return item.(*Context), true, status.Success
	}

	if st := e.awaitInit(ctx); !st.Ok() {
		return nil, false, st
	}

	var reqOut *fsext.InternalRequest
	var reportArg *fsext.InternalResponse
	if *havePending {
		reportArg = pending
	}
	if err := e.inst.Host.Transact(ctx, reportArg, &reqOut); err != nil {
		errorf(0, "%v", &TransportError{Err: err})
		return nil, false, status.InternalError
	}
	if reqOut == nil {
		return nil, false, status.Success
	}
	*havePending = false

	c := newRequestContext(e.inst, e.inst.newTicket(), reqOut)
	if fs, failed := c.Failed(); failed {
		*pending = fsext.InternalResponse{Status: fs, Hint: reqOut.Hint}
		*havePending = true
		e.inst.Host.FreeExternal(reqOut)
		return e.nextRequestContext(ctx, pending, havePending)
	}
	return c, true, status.Success
}

// awaitInit blocks until the INIT handshake completes or ctx is cancelled,
// whichever comes first. It returns immediately, without blocking, once
// initDone is already closed.
func (e *Engine) awaitInit(ctx context.Context) status.Status {
	select {
	case <-ctx.Done():
		errorf(0, "%s: %v", ErrInitCancelled, ctx.Err())
		return status.Cancelled
	case <-e.inst.initDone:
		if e.inst.versionMajorAcquire() == versionSentinelDenied {
			errorf(0, "%s", ErrInitDenied)
			return status.AccessDenied
		}
		return status.Success
	}
}

// abandon frees any host-side resources c's request holds and destroys it.
func (e *Engine) abandon(c *Context) {
	if c.req != nil {
		e.inst.Host.FreeExternal(c.req)
	}
	c.destroy()
}
