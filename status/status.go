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

// Package status defines the small, closed taxonomy of native host status
// codes that the bridge hands back to the fsext provider. It stands in for
// the NTSTATUS-shaped values a real kernel filesystem framework would use;
// callers outside this module never see a FUSE errno directly.
package status

import "fmt"

// Status is a native host status code. The zero value is Success.
type Status int32

const (
	Success Status = iota
	ObjectNameNotFound
	AccessDenied
	InvalidParameter
	BufferTooSmall
	Cancelled
	IOTimeout
	InternalError
	NotImplemented
	DeviceNotReady
	NoMemory
)

var names = map[Status]string{
	Success:            "SUCCESS",
	ObjectNameNotFound: "OBJECT_NAME_NOT_FOUND",
	AccessDenied:       "ACCESS_DENIED",
	InvalidParameter:   "INVALID_PARAMETER",
	BufferTooSmall:     "BUFFER_TOO_SMALL",
	Cancelled:          "CANCELLED",
	IOTimeout:          "IO_TIMEOUT",
	InternalError:      "INTERNAL_ERROR",
	NotImplemented:     "NOT_IMPLEMENTED",
	DeviceNotReady:     "DEVICE_NOT_READY",
	NoMemory:           "NO_MEMORY",
}

// Ok reports whether s represents success.
func (s Status) Ok() bool {
	return s == Success
}

func (s Status) String() string {
	if n, ok := names[s]; ok {
		return n
	}
	return fmt.Sprintf("STATUS(%d)", int32(s))
}
