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
	"os"

	"github.com/fspbridge/kfusebridge/cache"
	"github.com/fspbridge/kfusebridge/fsext"
	"github.com/fspbridge/kfusebridge/internal/errno"
	"github.com/fspbridge/kfusebridge/internal/wire"
	"github.com/fspbridge/kfusebridge/model"
	"github.com/fspbridge/kfusebridge/status"
)

// createFlags mirrors the O_CREAT bit the CREATE opcode's fixed payload
// carries, reproduced here rather than imported from a platform-specific
// package since the value is part of the wire contract, not the local OS's
// syscall ABI.
const createFlags = 0x40 // O_CREAT

// resume advances c's state machine by exactly one half-step. resp is
// non-nil during a response half-step (c just received a daemon reply; out
// is unused); out is non-nil during a request half-step (c must fill a
// request into it). Exactly one of resp/out is non-nil per call.
//
// await reports whether c still has work to do. After a request half-step,
// for any opcode that expects a reply (everything except FORGET and
// BATCH_FORGET, see expectsNoReply) await true means the context moves to
// processing to wait for one. For a FORGET/BATCH_FORGET drain, there is no
// reply to wait for: await true instead means more entries remain in its
// chain, so the engine re-posts c to pending for another batch instead of
// starting processing. After a response half-step, await true means c must
// be re-posted to pending to emit a further request. await false always
// means c is finished: its InternalResponse, if any, is ready to forward.
func (c *Context) resume(resp *wireResponse, out []byte) (n int, await bool, err error) {
	switch c.kind {
	case opInit:
		return c.resumeInit(resp, out)
	case opLookup:
		return c.resumeLookup(resp, out)
	case opGetattr:
		return c.resumeGetattr(resp, out)
	case opOpen:
		return c.resumeOpenOrOpendir(resp, out, false)
	case opOpendir:
		return c.resumeOpenOrOpendir(resp, out, true)
	case opCreate:
		return c.resumeCreate(resp, out)
	case opForget:
		return c.resumeForget(resp, out)
	case opBatchForget:
		return c.resumeBatchForget(resp, out)
	default:
		panic("kfusebridge: unknown context kind")
	}
}

func (c *Context) reqHeader() wire.RequestHeader {
	return wire.RequestHeader{Unique: c.ticket, Nodeid: c.parent}
}

func (c *Context) resumeInit(resp *wireResponse, out []byte) (n int, await bool, err error) {
	if resp == nil {
		n, err = wire.FillInit(out, c.ticket, wire.InitParams{
			Major:        7,
			Minor:        31,
			MaxReadahead: 1 << 17,
		})
		if err != nil {
			return 0, false, err
		}
		return n, true, nil
	}

	if resp.errno != 0 {
		c.instance.denyInit()
		c.resp.Status = errno.ToStatus(resp.errno)
		return 0, false, nil
	}

	major, minor := peekInitVersion(resp.payload)
	c.instance.completeInit(major, minor)
	c.resp.Status = status.Success
	return 0, false, nil
}

// peekInitVersion reads the negotiated major/minor straight off an INIT
// reply's leading two little-endian uint32 fields, without decoding the
// rest of the handshake payload this bridge does not act on.
func peekInitVersion(payload []byte) (major, minor int32) {
	if len(payload) < 8 {
		return 0, 0
	}
	le32 := func(b []byte) uint32 {
		return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	}
	return int32(le32(payload[0:4])), int32(le32(payload[4:8]))
}

func (c *Context) resumeLookup(resp *wireResponse, out []byte) (n int, await bool, err error) {
	if resp == nil {
		n, err = wire.FillLookup(out, c.reqHeader(), c.name)
		if err != nil {
			return 0, false, err
		}
		return n, true, nil
	}

	if resp.errno != 0 {
		c.resp.Status = errno.ToStatus(resp.errno)
		return 0, false, nil
	}

	entry, derr := wire.DecodeEntry(resp.payload)
	if derr != nil {
		c.resp.Status = status.InternalError
		return 0, false, nil
	}

	item := c.instance.Cache.Insert(c.parent, c.name, entry.Child, entry.Attributes)
	c.instance.Cache.Reference(item)
	c.cacheItem = item

	c.resp.Status = status.Success
	c.resp.Info = fsext.FuseAttrToFileInfo(entry.Attributes, c.instance.Params, false)
	c.resp.Info.IndexNumber = uint64(entry.Child)
	c.resp.Generation = entry.Generation
	return 0, false, nil
}

func (c *Context) resumeGetattr(resp *wireResponse, out []byte) (n int, await bool, err error) {
	if resp == nil {
		n, err = wire.FillGetattr(out, c.reqHeader(), wire.GetattrParams{Fh: uint64(c.handle)})
		if err != nil {
			return 0, false, err
		}
		return n, true, nil
	}

	if resp.errno != 0 {
		c.resp.Status = errno.ToStatus(resp.errno)
		return 0, false, nil
	}

	attrs, _, derr := wire.DecodeAttrOut(resp.payload)
	if derr != nil {
		c.resp.Status = status.InternalError
		return 0, false, nil
	}

	c.resp.Status = status.Success
	c.resp.Info = fsext.FuseAttrToFileInfo(attrs, c.instance.Params, false)
	c.resp.Info.IndexNumber = uint64(c.parent)
	return 0, false, nil
}

func (c *Context) resumeOpenOrOpendir(resp *wireResponse, out []byte, isDir bool) (n int, await bool, err error) {
	if resp == nil {
		p := wire.OpenParams{}
		if isDir {
			n, err = wire.FillOpendir(out, c.reqHeader(), p)
		} else {
			n, err = wire.FillOpen(out, c.reqHeader(), p)
		}
		if err != nil {
			return 0, false, err
		}
		return n, true, nil
	}

	if resp.errno != 0 {
		c.resp.Status = errno.ToStatus(resp.errno)
		return 0, false, nil
	}

	handle, derr := wire.DecodeOpenOut(resp.payload)
	if derr != nil {
		c.resp.Status = status.InternalError
		return 0, false, nil
	}

	c.instance.fileTable.Store(handle, struct{}{})
	c.resp.Status = status.Success
	c.resp.Handle = handle
	return 0, false, nil
}

// resumeCreate implements CREATE as a single atomic lookup-or-create-and-
// open exchange, matching the real FUSE_CREATE opcode's fuse_create_in /
// fuse_create_out shapes rather than splitting it into a LOOKUP probe
// followed by a separate OPEN.
func (c *Context) resumeCreate(resp *wireResponse, out []byte) (n int, await bool, err error) {
	if resp == nil {
		p := wire.CreateParams{Flags: createFlags | uint32(os.O_RDWR), Mode: 0644}
		n, err = wire.FillCreate(out, c.reqHeader(), c.name, p)
		if err != nil {
			return 0, false, err
		}
		return n, true, nil
	}

	if resp.errno != 0 {
		c.resp.Status = errno.ToStatus(resp.errno)
		return 0, false, nil
	}

	entry, handle, derr := wire.DecodeCreateOut(resp.payload)
	if derr != nil {
		c.resp.Status = status.InternalError
		return 0, false, nil
	}

	item := c.instance.Cache.Insert(c.parent, c.name, entry.Child, entry.Attributes)
	c.instance.Cache.Reference(item)
	c.cacheItem = item
	c.instance.fileTable.Store(handle, struct{}{})

	c.resp.Status = status.Success
	c.resp.Info = fsext.FuseAttrToFileInfo(entry.Attributes, c.instance.Params, false)
	c.resp.Info.IndexNumber = uint64(entry.Child)
	c.resp.Generation = entry.Generation
	c.resp.Handle = handle
	return 0, false, nil
}

// resumeForget drains one inode per request half-step. FORGET has no
// reply, so every call here is a request half-step (resp is always nil);
// await reports whether more entries remain after this one.
func (c *Context) resumeForget(resp *wireResponse, out []byte) (n int, await bool, err error) {
	inode, rest, ok := cache.ForgetNextItem(c.forgetHead)
	if !ok {
		return 0, false, nil
	}

	n, err = wire.FillForget(out, c.ticket, inode)
	if err != nil {
		return 0, false, err
	}
	c.forgetHead = rest
	return n, c.forgetHead != nil, nil
}

// resumeBatchForget drains as many entries as fit into one BATCH_FORGET
// request per request half-step.
func (c *Context) resumeBatchForget(resp *wireResponse, out []byte) (n int, await bool, err error) {
	capacity := wire.BatchForgetCapacity()
	entries := make([]model.InodeID, 0, capacity)
	head := c.forgetHead
	for len(entries) < capacity {
		inode, rest, ok := cache.ForgetNextItem(head)
		if !ok {
			break
		}
		entries = append(entries, inode)
		head = rest
	}
	if len(entries) == 0 {
		return 0, false, nil
	}

	n, _, err = wire.FillBatchForget(out, c.ticket, entries)
	if err != nil {
		return 0, false, err
	}
	c.forgetHead = head
	return n, c.forgetHead != nil, nil
}
