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
	"time"

	"github.com/fspbridge/kfusebridge/model"
)

// attrWire is the on-the-wire shape of a POSIX attribute block, as carried
// by EntryOut and AttrOut payloads.
type attrWire struct {
	Size      uint64
	Mode      uint32
	Nlink     uint32
	Uid       uint32
	Gid       uint32
	Rdev      uint32
	Atime     uint64
	Mtime     uint64
	Ctime     uint64
	AtimeNsec uint32
	MtimeNsec uint32
	CtimeNsec uint32
	Padding   uint32
}

func (w attrWire) toModel() model.Attributes {
	return model.Attributes{
		Size:  w.Size,
		Mode:  w.Mode,
		Nlink: w.Nlink,
		UID:   w.Uid,
		GID:   w.Gid,
		Rdev:  w.Rdev,
		Atime: time.Unix(int64(w.Atime), int64(w.AtimeNsec)),
		Mtime: time.Unix(int64(w.Mtime), int64(w.MtimeNsec)),
		Ctime: time.Unix(int64(w.Ctime), int64(w.CtimeNsec)),
	}
}

func attrWireFrom(a model.Attributes) attrWire {
	return attrWire{
		Size:      a.Size,
		Mode:      a.Mode,
		Nlink:     a.Nlink,
		Uid:       a.UID,
		Gid:       a.GID,
		Rdev:      a.Rdev,
		Atime:     uint64(a.Atime.Unix()),
		Mtime:     uint64(a.Mtime.Unix()),
		Ctime:     uint64(a.Ctime.Unix()),
		AtimeNsec: uint32(a.Atime.Nanosecond()),
		MtimeNsec: uint32(a.Mtime.Nanosecond()),
		CtimeNsec: uint32(a.Ctime.Nanosecond()),
	}
}

// entryWire is the on-the-wire shape of a LOOKUP response payload.
type entryWire struct {
	Nodeid         uint64
	Generation     uint64
	EntryValid     uint64
	AttrValid      uint64
	EntryValidNsec uint32
	AttrValidNsec  uint32
	Attr           attrWire
}

// Entry is the decoded form of a LOOKUP response payload.
type Entry struct {
	Child      model.InodeID
	Generation model.Generation
	EntryValid time.Duration
	AttrValid  time.Duration
	Attributes model.Attributes
}

// DecodeEntry decodes a LOOKUP response payload.
func DecodeEntry(payload []byte) (e Entry, err error) {
	var w entryWire
	if err = binary.Read(bytes.NewReader(payload), order, &w); err != nil {
		return
	}
	e = Entry{
		Child:      model.InodeID(w.Nodeid),
		Generation: model.Generation(w.Generation),
		EntryValid: time.Duration(w.EntryValid)*time.Second + time.Duration(w.EntryValidNsec),
		AttrValid:  time.Duration(w.AttrValid)*time.Second + time.Duration(w.AttrValidNsec),
		Attributes: w.Attr.toModel(),
	}
	return
}

// EncodeEntry is the inverse of DecodeEntry, used by tests that need to
// synthesize a daemon response and by in-process loopback fsext hosts.
func EncodeEntry(e Entry) []byte {
	w := entryWire{
		Nodeid:     uint64(e.Child),
		Generation: uint64(e.Generation),
		EntryValid: uint64(e.EntryValid / time.Second),
		AttrValid:  uint64(e.AttrValid / time.Second),
		Attr:       attrWireFrom(e.Attributes),
	}
	var buf bytes.Buffer
	_ = binary.Write(&buf, order, &w)
	return buf.Bytes()
}

// attrOutWire is the on-the-wire shape of a GETATTR response payload.
type attrOutWire struct {
	AttrValid     uint64
	AttrValidNsec uint32
	Padding       uint32
	Attr          attrWire
}

// DecodeAttrOut decodes a GETATTR response payload.
func DecodeAttrOut(payload []byte) (attrs model.Attributes, valid time.Duration, err error) {
	var w attrOutWire
	if err = binary.Read(bytes.NewReader(payload), order, &w); err != nil {
		return
	}
	attrs = w.Attr.toModel()
	valid = time.Duration(w.AttrValid)*time.Second + time.Duration(w.AttrValidNsec)
	return
}

// EncodeAttrOut is the inverse of DecodeAttrOut.
func EncodeAttrOut(attrs model.Attributes, valid time.Duration) []byte {
	w := attrOutWire{
		AttrValid: uint64(valid / time.Second),
		Attr:      attrWireFrom(attrs),
	}
	var buf bytes.Buffer
	_ = binary.Write(&buf, order, &w)
	return buf.Bytes()
}

// openOutWire is the on-the-wire shape of an OPEN/OPENDIR response payload.
type openOutWire struct {
	Fh        uint64
	OpenFlags uint32
	Padding   uint32
}

// DecodeOpenOut decodes an OPEN/OPENDIR response payload.
func DecodeOpenOut(payload []byte) (handle model.HandleID, err error) {
	var w openOutWire
	if err = binary.Read(bytes.NewReader(payload), order, &w); err != nil {
		return
	}
	handle = model.HandleID(w.Fh)
	return
}

// EncodeOpenOut is the inverse of DecodeOpenOut.
func EncodeOpenOut(handle model.HandleID) []byte {
	w := openOutWire{Fh: uint64(handle)}
	var buf bytes.Buffer
	_ = binary.Write(&buf, order, &w)
	return buf.Bytes()
}

// DecodeCreateOut decodes a CREATE response payload: an entryWire
// immediately followed by an openOutWire, the combined shape fuse_create_out
// uses to return both the new child's entry and its open handle in one
// round trip.
func DecodeCreateOut(payload []byte) (e Entry, handle model.HandleID, err error) {
	r := bytes.NewReader(payload)

	var ew entryWire
	if err = binary.Read(r, order, &ew); err != nil {
		return
	}
	var ow openOutWire
	if err = binary.Read(r, order, &ow); err != nil {
		return
	}

	e = Entry{
		Child:      model.InodeID(ew.Nodeid),
		Generation: model.Generation(ew.Generation),
		EntryValid: time.Duration(ew.EntryValid)*time.Second + time.Duration(ew.EntryValidNsec),
		AttrValid:  time.Duration(ew.AttrValid)*time.Second + time.Duration(ew.AttrValidNsec),
		Attributes: ew.Attr.toModel(),
	}
	handle = model.HandleID(ow.Fh)
	return
}

// EncodeCreateOut is the inverse of DecodeCreateOut, used by tests and
// in-process loopback fsext hosts.
func EncodeCreateOut(e Entry, handle model.HandleID) []byte {
	var buf bytes.Buffer
	buf.Write(EncodeEntry(e))
	buf.Write(EncodeOpenOut(handle))
	return buf.Bytes()
}
