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

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fspbridge/kfusebridge/fsext"
	"github.com/fspbridge/kfusebridge/internal/wire"
	"github.com/fspbridge/kfusebridge/model"
)

// loopbackHost is an in-process fsext.Host that hands the engine a fixed
// sequence of LOOKUP requests against the root inode, then reports nothing
// further once the sequence is exhausted. It doubles as the "daemon" side
// of the wire: fakeDaemonRoundTrip decodes whatever the engine emitted and
// synthesizes a plausible success reply, so the whole loop can run without
// a real FUSE device.
type loopbackHost struct {
	remaining int
	served    int
}

func newLoopbackHost(n int) *loopbackHost {
	return &loopbackHost{remaining: n}
}

func (h *loopbackHost) exhausted() bool { return h.remaining <= 0 }

// Transact implements fsext.Host.
func (h *loopbackHost) Transact(ctx context.Context, resp *fsext.InternalResponse, reqOut **fsext.InternalRequest) error {
	if resp != nil {
		h.served++
		fmt.Printf("loopback: completed request: status=%s\n", resp.Status)
	}

	if h.remaining <= 0 {
		*reqOut = nil
		return nil
	}
	h.remaining--

	*reqOut = &fsext.InternalRequest{
		Kind:   fsext.KindLookup,
		Parent: model.RootInodeID,
		Name:   fmt.Sprintf("file-%d", h.remaining),
		Hint:   h.remaining,
	}
	return nil
}

// FreeExternal implements fsext.Host.
func (h *loopbackHost) FreeExternal(req *fsext.InternalRequest) {}

// fakeDaemonRoundTrip decodes the request the engine just wrote into req
// and returns a freshly allocated synthesized reply (scratch is not used),
// playing the part of the FUSE daemon that would otherwise sit on the
// other end of the device.
func (h *loopbackHost) fakeDaemonRoundTrip(req []byte, scratch []byte) []byte {
	hdr, err := wire.DecodeReqHeader(req)
	if err != nil {
		return nil
	}

	switch wire.Opcode(hdr.Opcode) {
	case wire.OpInit:
		payload := make([]byte, 8)
		payload[0] = 7 // major
		payload[4] = 31 // minor
		return wire.EncodeRspHeader(hdr.Unique, 0, payload)

	case wire.OpLookup:
		now := time.Now()
		entry := wire.Entry{
			Child:      model.InodeID(hdr.Nodeid + 1),
			Generation: 1,
			Attributes: model.Attributes{
				Size:  4096,
				Mode:  0100644,
				Nlink: 1,
				Atime: now,
				Mtime: now,
				Ctime: now,
			},
		}
		return wire.EncodeRspHeader(hdr.Unique, 0, wire.EncodeEntry(entry))

	default:
		return wire.EncodeRspHeader(hdr.Unique, 0, nil)
	}
}
