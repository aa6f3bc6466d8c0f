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

	"github.com/jacobsa/reqtrace"

	"github.com/fspbridge/kfusebridge/cache"
	"github.com/fspbridge/kfusebridge/fsext"
	"github.com/fspbridge/kfusebridge/status"
)

func startSpan(name string) reqtrace.ReportFunc {
	_, report := reqtrace.StartSpan(context.Background(), name)
	return report
}

// newInitContext constructs the self-generated context that drives the
// INIT handshake at instance construction.
func newInitContext(inst *Instance, ticket uint64) *Context {
	return &Context{
		ticket:   ticket,
		v:        variantAlive,
		kind:     opInit,
		instance: inst,
		report:   startSpan("INIT"),
	}
}

// newForgetContext constructs a self-generated context that drains head one
// inode at a time via FORGET, which has no reply.
func newForgetContext(inst *Instance, ticket uint64, head *cache.ForgetNode) *Context {
	return &Context{
		ticket:     ticket,
		v:          variantAlive,
		kind:       opForget,
		instance:   inst,
		forgetHead: head,
		fini: func() {
			cache.DeleteItems(head)
		},
		report: startSpan("FORGET"),
	}
}

// newBatchForgetContext constructs a self-generated context that drains
// head in batches via BATCH_FORGET.
func newBatchForgetContext(inst *Instance, ticket uint64, head *cache.ForgetNode) *Context {
	return &Context{
		ticket:     ticket,
		v:          variantAlive,
		kind:       opBatchForget,
		instance:   inst,
		forgetHead: head,
		fini: func() {
			cache.DeleteItems(head)
		},
		report: startSpan("BATCH_FORGET"),
	}
}

// newRequestContext constructs a context bound to a host-originated
// request. It may return a Failed-variant context if req names an
// unsupported kind; the engine must check Failed before resuming.
func newRequestContext(inst *Instance, ticket uint64, req *fsext.InternalRequest) *Context {
	c := &Context{
		ticket:   ticket,
		instance: inst,
		req:      req,
		parent:   req.Parent,
		name:     req.Name,
		handle:   req.Handle,
		report:   startSpan(req.Kind.String()),
	}
	c.resp.Hint = req.Hint

	switch req.Kind {
	case fsext.KindLookup:
		c.v, c.kind = variantAlive, opLookup
	case fsext.KindGetattr:
		c.v, c.kind = variantAlive, opGetattr
	case fsext.KindOpen:
		c.v, c.kind = variantAlive, opOpen
	case fsext.KindOpendir:
		c.v, c.kind = variantAlive, opOpendir
	case fsext.KindCreate:
		c.v, c.kind = variantAlive, opCreate
	default:
		c.v, c.failedStatus = variantFailed, status.InvalidParameter
	}

	return c
}

func (k opKind) String() string {
	switch k {
	case opInit:
		return "INIT"
	case opLookup:
		return "LOOKUP"
	case opGetattr:
		return "GETATTR"
	case opOpen:
		return "OPEN"
	case opOpendir:
		return "OPENDIR"
	case opCreate:
		return "CREATE"
	case opForget:
		return "FORGET"
	case opBatchForget:
		return "BATCH_FORGET"
	default:
		return "UNKNOWN"
	}
}
