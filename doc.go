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

// Package kfusebridge translates between a host filesystem framework and a
// FUSE-speaking userspace daemon, without linking against a real kernel
// device: it owns the wire encoding, the metadata cache, and the
// coroutine-style state machine that lets one transact call pair at most
// one inbound daemon response with at most one outbound daemon request.
//
// The primary elements of interest are:
//
//   - Instance, one mounted volume's worth of state: the I/O queue, the
//     metadata cache, the init handshake, and the open-file table.
//
//   - Engine, which drives the transact loop described above.
//
//   - Provider, which adapts an Instance and Engine to the fsext.HostCallbacks
//     vtable a host framework binding calls into.
//
//   - fsext.Host, the vtable the engine calls out through to ask the host
//     framework for work and report completions.
package kfusebridge
