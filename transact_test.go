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
	"encoding/binary"
	"testing"
	"time"

	. "github.com/jacobsa/oglematchers"
	. "github.com/jacobsa/oglemock"
	. "github.com/jacobsa/ogletest"

	"github.com/fspbridge/kfusebridge/fsext"
	"github.com/fspbridge/kfusebridge/fsext/mock_fsext"
	"github.com/fspbridge/kfusebridge/internal/wire"
	"github.com/fspbridge/kfusebridge/model"
	"github.com/fspbridge/kfusebridge/status"
)

// batchForgetCount reads the packed-entry count off a BATCH_FORGET
// request's payload, mirroring the layout wire.FillBatchForget writes.
func batchForgetCount(req []byte) int {
	payload := req[wire.ReqHeaderSize:]
	if len(payload) < 4 {
		return 0
	}
	return int(binary.LittleEndian.Uint32(payload[:4]))
}

func TestTransact(t *testing.T) { RunTests(t) }

type TransactTest struct {
	host mock_fsext.MockHost
	inst *Instance
	eng  *Engine
}

func init() { RegisterTestSuite(&TransactTest{}) }

func (t *TransactTest) SetUp(ti *TestInfo) {
	t.host = mock_fsext.NewMockHost(ti.MockController, "host")
	t.inst = NewInstance(model.DefaultVolumeParams(), t.host, nil, time.Minute)
	t.eng = NewEngine(t.inst)
}

// fakeInitReply builds a well-formed INIT response buffer for unique.
func fakeInitReply(unique uint64) []byte {
	payload := make([]byte, 8)
	payload[0] = 7
	payload[4] = 31
	return wire.EncodeRspHeader(unique, 0, payload)
}

func fakeEntryReply(unique uint64, child model.InodeID) []byte {
	now := time.Unix(1000, 0)
	entry := wire.Entry{
		Child:      child,
		Generation: 1,
		Attributes: model.Attributes{
			Size: 4096, Mode: 0100644, Nlink: 1,
			Atime: now, Mtime: now, Ctime: now,
		},
	}
	return wire.EncodeRspHeader(unique, 0, wire.EncodeEntry(entry))
}

func (t *TransactTest) ColdInitEmitsInitRequest() {
	out := make([]byte, wire.ReqSizeMin)
	n, st := t.eng.Transact(context.Background(), nil, out)

	AssertTrue(st.Ok())
	AssertTrue(n > 0)

	hdr, err := wire.DecodeReqHeader(out[:n])
	AssertEq(nil, err)
	ExpectEq(wire.OpInit, wire.Opcode(hdr.Opcode))
	ExpectNe(uint64(0), hdr.Unique)

	qs := t.inst.IOQ.Stats()
	ExpectEq(0, qs.Pending)
	ExpectEq(1, qs.Processing)
}

func (t *TransactTest) InitCompletionUnblocksFurtherRequests() {
	out := make([]byte, wire.ReqSizeMin)
	n, _ := t.eng.Transact(context.Background(), nil, out)
	hdr, _ := wire.DecodeReqHeader(out[:n])

	// Once INIT completes, the request half-step within the same call asks
	// the host for further work; there is none yet.
	ExpectCall(t.host, "Transact")(Any(), Any(), Any()).
		WillOnce(Return(nil))

	reply := fakeInitReply(hdr.Unique)
	_, st := t.eng.Transact(context.Background(), reply, out)
	ExpectTrue(st.Ok())

	initSignaled := false
	select {
	case <-t.inst.initDone:
		initSignaled = true
	default:
	}
	AssertTrue(initSignaled)
	ExpectEq(int32(7), t.inst.versionMajorAcquire())

	qs := t.inst.IOQ.Stats()
	ExpectEq(0, qs.Pending)
	ExpectEq(0, qs.Processing)
}

func (t *TransactTest) LookupSuccessProducesMatchingFileInfo() {
	// Drive INIT to completion first.
	out := make([]byte, wire.ReqSizeMin)
	n, _ := t.eng.Transact(context.Background(), nil, out)
	hdr, _ := wire.DecodeReqHeader(out[:n])

	ExpectCall(t.host, "Transact")(Any(), Any(), Any()).
		WillOnce(Return(nil))
	t.eng.Transact(context.Background(), fakeInitReply(hdr.Unique), out)

	lookupReq := &fsext.InternalRequest{
		Kind:   fsext.KindLookup,
		Parent: model.RootInodeID,
		Name:   "foo",
		Hint:   "lookup-hint",
	}
	ExpectCall(t.host, "Transact")(Any(), Any(), Any()).
		WillOnce(Invoke(func(ctx context.Context, resp *fsext.InternalResponse, reqOut **fsext.InternalRequest) error {
			*reqOut = lookupReq
			return nil
		}))

	n, st := t.eng.Transact(context.Background(), nil, out)
	AssertTrue(st.Ok())
	AssertTrue(n > 0)

	lookupHdr, err := wire.DecodeReqHeader(out[:n])
	AssertEq(nil, err)
	ExpectEq(wire.OpLookup, wire.Opcode(lookupHdr.Opcode))

	ExpectCall(t.host, "FreeExternal")(Any()).WillOnce(Return())

	var gotResp *fsext.InternalResponse
	ExpectCall(t.host, "Transact")(Any(), Any(), Any()).
		WillOnce(Invoke(func(ctx context.Context, resp *fsext.InternalResponse, reqOut **fsext.InternalRequest) error {
			gotResp = resp
			return nil
		}))

	reply := fakeEntryReply(lookupHdr.Unique, 42)
	_, st = t.eng.Transact(context.Background(), reply, out)
	ExpectTrue(st.Ok())

	AssertNe(nil, gotResp)
	ExpectEq(status.Success, gotResp.Status)
	ExpectEq("lookup-hint", gotResp.Hint)

	want := fsext.FuseAttrToFileInfo(model.Attributes{
		Size: 4096, Mode: 0100644, Nlink: 1,
		Atime: time.Unix(1000, 0), Mtime: time.Unix(1000, 0), Ctime: time.Unix(1000, 0),
	}, t.inst.Params, false)
	want.IndexNumber = 42
	ExpectThat(gotResp.Info, DeepEquals(want))
}

func (t *TransactTest) LookupEnoentMapsToObjectNameNotFound() {
	out := make([]byte, wire.ReqSizeMin)
	n, _ := t.eng.Transact(context.Background(), nil, out)
	hdr, _ := wire.DecodeReqHeader(out[:n])

	ExpectCall(t.host, "Transact")(Any(), Any(), Any()).
		WillOnce(Return(nil))
	t.eng.Transact(context.Background(), fakeInitReply(hdr.Unique), out)

	missingReq := &fsext.InternalRequest{
		Kind: fsext.KindLookup, Parent: model.RootInodeID, Name: "missing",
	}
	ExpectCall(t.host, "Transact")(Any(), Any(), Any()).
		WillOnce(Invoke(func(ctx context.Context, resp *fsext.InternalResponse, reqOut **fsext.InternalRequest) error {
			*reqOut = missingReq
			return nil
		}))

	n, _ = t.eng.Transact(context.Background(), nil, out)
	lookupHdr, _ := wire.DecodeReqHeader(out[:n])

	ExpectCall(t.host, "FreeExternal")(Any()).WillOnce(Return())

	var gotResp *fsext.InternalResponse
	ExpectCall(t.host, "Transact")(Any(), Any(), Any()).
		WillOnce(Invoke(func(ctx context.Context, resp *fsext.InternalResponse, reqOut **fsext.InternalRequest) error {
			gotResp = resp
			return nil
		}))

	const enoent = 2
	reply := wire.EncodeRspHeader(lookupHdr.Unique, enoent, nil)
	t.eng.Transact(context.Background(), reply, out)

	AssertNe(nil, gotResp)
	ExpectEq(status.ObjectNameNotFound, gotResp.Status)

	_, ok := t.inst.Cache.Lookup(model.RootInodeID, "missing")
	ExpectFalse(ok)
}

func (t *TransactTest) BatchedForgetDrainsAcrossMultipleHalfSteps() {
	out := make([]byte, wire.ReqSizeMin)
	n, _ := t.eng.Transact(context.Background(), nil, out)
	hdr, _ := wire.DecodeReqHeader(out[:n])

	ExpectCall(t.host, "Transact")(Any(), Any(), Any()).
		WillOnce(Return(nil))
	t.eng.Transact(context.Background(), fakeInitReply(hdr.Unique), out)

	// A full batch plus 7 more, so the drain takes two BATCH_FORGET
	// messages: one packed to capacity and one carrying the remaining 7.
	total := wire.BatchForgetCapacity() + 7
	for i := 0; i < total; i++ {
		t.inst.Cache.Insert(model.RootInodeID, nameFor(i), model.InodeID(100+i), model.Attributes{})
	}
	t.inst.ExpirationSweep(time.Now().Add(time.Hour))

	// Once the drain empties, the request half-step asks the host once
	// more and is told there is nothing further.
	ExpectCall(t.host, "Transact")(Any(), Any(), Any()).
		WillOnce(Return(nil))

	var totalEntries, batches int
	for {
		n, st := t.eng.Transact(context.Background(), nil, out)
		AssertTrue(st.Ok())
		if n == 0 {
			break
		}
		reqHdr, err := wire.DecodeReqHeader(out[:n])
		AssertEq(nil, err)
		ExpectEq(wire.OpBatchForget, wire.Opcode(reqHdr.Opcode))
		totalEntries += batchForgetCount(out[:n])
		batches++
	}
	ExpectEq(2, batches)
	ExpectEq(total, totalEntries)
	ExpectFalse(t.inst.Cache.HasPendingForgets())
}

func (t *TransactTest) SpuriousResponseIsIgnored() {
	out := make([]byte, wire.ReqSizeMin)
	reply := wire.EncodeRspHeader(999999, 0, nil)

	n, st := t.eng.Transact(context.Background(), reply, out)
	AssertTrue(st.Ok())
	AssertTrue(n > 0)

	hdr, err := wire.DecodeReqHeader(out[:n])
	AssertEq(nil, err)
	ExpectEq(wire.OpInit, wire.Opcode(hdr.Opcode))
}

func (t *TransactTest) ShortResponseLengthIsRejected() {
	out := make([]byte, wire.ReqSizeMin)

	// A Len field shorter than the response header itself must never be
	// sliced blindly.
	reply := wire.EncodeRspHeader(1, 0, nil)
	binary.LittleEndian.PutUint32(reply[0:4], uint32(wire.RspHeaderSize-1))

	n, st := t.eng.Transact(context.Background(), reply, out)
	ExpectEq(0, n)
	ExpectEq(status.InvalidParameter, st)
}

func (t *TransactTest) UndersizedOutputBufferIsRejected() {
	out := make([]byte, wire.ReqSizeMin-1)

	n, st := t.eng.Transact(context.Background(), nil, out)
	ExpectEq(0, n)
	ExpectEq(status.BufferTooSmall, st)
}

func nameFor(i int) string {
	return string(rune('a'+i%26)) + string(rune('A'+(i/26)%26))
}
