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

// Package fsext defines the calling surface of the host-framework
// collaborator the engine talks to: the component that originates internal
// requests (kernel-side I/O that must be translated to FUSE wire messages)
// and consumes internal responses once the engine has decoded the daemon's
// reply. A real binding of this interface lives outside this module, since
// the host framework itself is out of scope; this package is the seam such
// a binding implements against.
package fsext

import (
	"context"

	"github.com/fspbridge/kfusebridge/model"
	"github.com/fspbridge/kfusebridge/status"
)

// RequestKind identifies what an Instance's host framework is asking the
// engine to translate into a FUSE exchange.
type RequestKind int

const (
	KindLookup RequestKind = iota
	KindGetattr
	KindOpen
	KindOpendir
	KindCreate
	KindForget
	KindBatchForget
)

// InternalRequest is the host-framework-side request handed to the engine:
// an instruction to perform one of the kinds above against a parent inode
// and, where relevant, a name or open handle.
type InternalRequest struct {
	Kind   RequestKind
	Parent model.InodeID
	Name   string
	Handle model.HandleID

	// Hint carries host-framework-specific scratch data that the engine
	// does not interpret, only threads through to the matching
	// InternalResponse.
	Hint interface{}
}

// InternalResponse is what the engine hands back to the host framework once
// a FUSE exchange (or chain of exchanges, for multi-step opcodes) has
// completed.
type InternalResponse struct {
	Status     status.Status
	Info       FileInfo
	Handle     model.HandleID
	Generation model.Generation
	Hint       interface{}
}

// Host is the host-framework collaborator surface. Transact blocks until the host
// either hands the engine a new InternalRequest to service or reports that
// none is currently available; FreeExternal releases any resources the host
// attached to a request the engine is done with.
type Host interface {
	// Transact reports the outcome of the request that produced resp (resp
	// is nil when the engine has no completed request to report) and receives
	// the next InternalRequest to service, if any. reqOut is nil after the
	// call if the host currently has no work for the engine.
	Transact(ctx context.Context, resp *InternalResponse, reqOut **InternalRequest) error

	// FreeExternal releases host-side resources associated with req. The
	// engine calls it once it has fully consumed req, win or lose.
	FreeExternal(req *InternalRequest)
}
