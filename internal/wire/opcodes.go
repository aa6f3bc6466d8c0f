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

// Opcode is a FUSE wire protocol opcode. Numbering matches the standard
// fuse_kernel.h values, also reproduced in hanwen/go-fuse's fuse/types.go.
type Opcode uint32

const (
	OpLookup      Opcode = 1
	OpForget      Opcode = 2 // no reply
	OpGetattr     Opcode = 3
	OpOpen        Opcode = 14
	OpInit        Opcode = 26
	OpOpendir     Opcode = 27
	OpCreate      Opcode = 35
	OpBatchForget Opcode = 42
)

func (o Opcode) String() string {
	switch o {
	case OpLookup:
		return "LOOKUP"
	case OpForget:
		return "FORGET"
	case OpGetattr:
		return "GETATTR"
	case OpOpen:
		return "OPEN"
	case OpInit:
		return "INIT"
	case OpOpendir:
		return "OPENDIR"
	case OpCreate:
		return "CREATE"
	case OpBatchForget:
		return "BATCH_FORGET"
	default:
		return "UNKNOWN"
	}
}
