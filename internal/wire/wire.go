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

// Package wire holds the small, stateless builders and readers for the FUSE
// wire format. Everything here is little-endian and allocation-light: fill
// functions write into a caller-supplied buffer, and decode functions read
// from one, built atop encoding/binary and plain byte slices instead of
// unsafe.Pointer arithmetic, since nothing here needs to alias kernel
// memory.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// RspHeaderSize is the size of a response header: (len uint32, error int32,
// unique uint64).
const RspHeaderSize = 16

// ReqHeaderSize is the size of a request header: (len, opcode uint32,
// unique, nodeid uint64, uid, gid, pid, padding uint32).
const ReqHeaderSize = 40

// ReqSizeMin is the minimum output buffer size the host must supply for a
// transact call to be able to emit a request.
const ReqSizeMin = 4096

// order is the wire byte order: little-endian.
var order = binary.LittleEndian

// ReqHeader is the leading header of every outbound FUSE request.
type ReqHeader struct {
	Len     uint32
	Opcode  uint32
	Unique  uint64
	Nodeid  uint64
	Uid     uint32
	Gid     uint32
	Pid     uint32
	Padding uint32
}

// RspHeader is the leading header of every inbound FUSE response.
type RspHeader struct {
	Len    uint32
	Error  int32
	Unique uint64
}

// DecodeRspHeader reads a response header from the front of buf. It does not
// enforce size bounds against an input buffer; that is the transact loop's
// job, not the codec's.
func DecodeRspHeader(buf []byte) (h RspHeader, err error) {
	if len(buf) < RspHeaderSize {
		err = fmt.Errorf("wire: response buffer too short: %d < %d", len(buf), RspHeaderSize)
		return
	}
	r := bytes.NewReader(buf[:RspHeaderSize])
	err = binary.Read(r, order, &h)
	return
}

// DecodeReqHeader reads a request header from the front of buf. Used by
// tests and in-process loopback fsext hosts that play the daemon's role
// without a real kernel device.
func DecodeReqHeader(buf []byte) (h ReqHeader, err error) {
	if len(buf) < ReqHeaderSize {
		err = fmt.Errorf("wire: request buffer too short: %d < %d", len(buf), ReqHeaderSize)
		return
	}
	r := bytes.NewReader(buf[:ReqHeaderSize])
	err = binary.Read(r, order, &h)
	return
}

// Payload returns the bytes of buf following the response header, using h's
// own Len field to bound the slice.
func (h RspHeader) Payload(buf []byte) []byte {
	if int(h.Len) > len(buf) {
		return buf[RspHeaderSize:]
	}
	return buf[RspHeaderSize:h.Len]
}

// EncodeRspHeader writes a response header followed by payload into a
// freshly allocated buffer. Used by tests and in-process loopback fsext
// hosts that play the daemon's role without a real kernel device.
func EncodeRspHeader(unique uint64, errno int32, payload []byte) []byte {
	h := RspHeader{
		Len:    uint32(RspHeaderSize + len(payload)),
		Error:  errno,
		Unique: unique,
	}
	buf := make([]byte, RspHeaderSize+len(payload))
	w := bytes.NewBuffer(buf[:0])
	_ = binary.Write(w, order, &h)
	copy(buf[RspHeaderSize:], payload)
	return buf
}

// writeHeader encodes a request header at the front of buf, which must have
// length at least ReqHeaderSize.
func writeHeader(buf []byte, h ReqHeader) error {
	w := bytes.NewBuffer(buf[:0])
	if err := binary.Write(w, order, &h); err != nil {
		return err
	}
	return nil
}
