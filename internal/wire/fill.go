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

package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/fspbridge/kfusebridge/model"
)

// RequestHeader carries the fields every Fill* function needs to stamp a
// request header: the correlation ID and the originating operation's
// nodeid/uid/gid/pid.
type RequestHeader struct {
	Unique uint64
	Nodeid model.InodeID
	Uid    uint32
	Gid    uint32
	Pid    uint32
}

// fill writes a complete request (header + payload) into buf and returns the
// number of bytes written. It fails if buf is too small.
func fill(buf []byte, hdr RequestHeader, opcode Opcode, payload []byte) (n int, err error) {
	total := ReqHeaderSize + len(payload)
	if len(buf) < total {
		err = fmt.Errorf("wire: buffer too small for %s: have %d, need %d", opcode, len(buf), total)
		return
	}

	h := ReqHeader{
		Len:    uint32(total),
		Opcode: uint32(opcode),
		Unique: hdr.Unique,
		Nodeid: uint64(hdr.Nodeid),
		Uid:    hdr.Uid,
		Gid:    hdr.Gid,
		Pid:    hdr.Pid,
	}
	if err = writeHeader(buf, h); err != nil {
		return
	}
	copy(buf[ReqHeaderSize:total], payload)
	n = total
	return
}

// InitParams are the capability-negotiation fields exchanged during the INIT
// handshake.
type InitParams struct {
	Major        uint32
	Minor        uint32
	MaxReadahead uint32
	Flags        uint32
}

// FillInit writes an INIT request. INIT carries no nodeid/uid/gid/pid of
// interest; unique is still required for correlation.
func FillInit(buf []byte, unique uint64, p InitParams) (n int, err error) {
	var pw bytes.Buffer
	if err = binary.Write(&pw, order, &p); err != nil {
		return
	}
	return fill(buf, RequestHeader{Unique: unique}, OpInit, pw.Bytes())
}

// FillLookup writes a LOOKUP request for name under the given header's
// nodeid (the parent inode). The total request length must not exceed
// ReqSizeMin.
func FillLookup(buf []byte, hdr RequestHeader, name string) (n int, err error) {
	payload := append([]byte(name), 0)
	if ReqHeaderSize+len(payload) > ReqSizeMin {
		err = fmt.Errorf("wire: LOOKUP name %q too long for request size min", name)
		return
	}
	return fill(buf, hdr, OpLookup, payload)
}

// GetattrParams carries the GETATTR opcode's small payload.
type GetattrParams struct {
	Flags   uint32
	Padding uint32
	Fh      uint64
}

// FillGetattr writes a GETATTR request for the inode named in hdr.Nodeid.
func FillGetattr(buf []byte, hdr RequestHeader, p GetattrParams) (n int, err error) {
	var pw bytes.Buffer
	if err = binary.Write(&pw, order, &p); err != nil {
		return
	}
	return fill(buf, hdr, OpGetattr, pw.Bytes())
}

// OpenParams carries the OPEN/OPENDIR opcodes' shared payload shape.
type OpenParams struct {
	Flags   uint32
	Padding uint32
}

// FillOpen writes an OPEN request for the inode named in hdr.Nodeid.
func FillOpen(buf []byte, hdr RequestHeader, p OpenParams) (n int, err error) {
	var pw bytes.Buffer
	if err = binary.Write(&pw, order, &p); err != nil {
		return
	}
	return fill(buf, hdr, OpOpen, pw.Bytes())
}

// FillOpendir writes an OPENDIR request for the inode named in hdr.Nodeid.
func FillOpendir(buf []byte, hdr RequestHeader, p OpenParams) (n int, err error) {
	var pw bytes.Buffer
	if err = binary.Write(&pw, order, &p); err != nil {
		return
	}
	return fill(buf, hdr, OpOpendir, pw.Bytes())
}

// CreateParams carries the CREATE opcode's fixed-size payload, which
// precedes the variable-length name.
type CreateParams struct {
	Flags   uint32
	Mode    uint32
	Umask   uint32
	Padding uint32
}

// FillCreate writes a CREATE request for name under the given header's
// nodeid (the parent inode): atomically look up or create the child and
// open it in one round trip. The total request length must not exceed
// ReqSizeMin.
func FillCreate(buf []byte, hdr RequestHeader, name string, p CreateParams) (n int, err error) {
	var pw bytes.Buffer
	if err = binary.Write(&pw, order, &p); err != nil {
		return
	}
	pw.WriteString(name)
	pw.WriteByte(0)

	if ReqHeaderSize+pw.Len() > ReqSizeMin {
		err = fmt.Errorf("wire: CREATE name %q too long for request size min", name)
		return
	}
	return fill(buf, hdr, OpCreate, pw.Bytes())
}

// ForgetEntry is one (nodeid, nlookup) tuple. FORGET carries exactly one
// with Nlookup fixed at 1; BATCH_FORGET packs as many as fit.
type ForgetEntry struct {
	Nodeid  model.InodeID
	Nlookup uint64
}

// FillForget writes a FORGET request for a single inode. FORGET has no
// reply, so Unique is still stamped for bookkeeping symmetry but the daemon
// will never echo it back.
func FillForget(buf []byte, unique uint64, inode model.InodeID) (n int, err error) {
	var pw bytes.Buffer
	if err = binary.Write(&pw, order, uint64(1)); err != nil { // nlookup
		return
	}
	return fill(buf, RequestHeader{Unique: unique, Nodeid: inode}, OpForget, pw.Bytes())
}

// BatchForgetCapacity returns how many ForgetEntry tuples fit in a request
// no larger than ReqSizeMin.
func BatchForgetCapacity() int {
	const entrySize = 16 // nodeid uint64 + nlookup uint64
	const headerPayload = 8 // count uint32 + padding uint32
	return (ReqSizeMin - ReqHeaderSize - headerPayload) / entrySize
}

// FillBatchForget packs as many entries as fit in a request no larger than
// ReqSizeMin, returning the number actually packed.
func FillBatchForget(buf []byte, unique uint64, entries []model.InodeID) (n int, packed int, err error) {
	cap := BatchForgetCapacity()
	if len(entries) < cap {
		cap = len(entries)
	}

	var pw bytes.Buffer
	if err = binary.Write(&pw, order, uint32(cap)); err != nil {
		return
	}
	if err = binary.Write(&pw, order, uint32(0)); err != nil { // padding
		return
	}
	for i := 0; i < cap; i++ {
		e := ForgetEntry{Nodeid: entries[i], Nlookup: 1}
		if err = binary.Write(&pw, order, &e); err != nil {
			return
		}
	}

	n, err = fill(buf, RequestHeader{Unique: unique}, OpBatchForget, pw.Bytes())
	packed = cap
	return
}
