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

import "errors"

// The transact loop's error taxonomy: validation errors never
// touch the IOQ or cache; transport errors still destroy the context that
// produced them, since it has already finished its work.
var (
	ErrBadResponseLength = errors.New("kfusebridge: response length out of bounds")
	ErrOutputTooSmall    = errors.New("kfusebridge: output buffer smaller than REQ_SIZEMIN")
	ErrInitCancelled     = errors.New("kfusebridge: wait for INIT completion was cancelled")
	ErrInitDenied        = errors.New("kfusebridge: INIT handshake was refused")
)

// TransportError wraps a failure forwarding an InternalResponse to the host
// framework. The transact call still returns after
// destroying the context that produced the response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "kfusebridge: transport: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// ResourceError wraps an allocation failure during instance or context
// construction.
type ResourceError struct {
	Err error
}

func (e *ResourceError) Error() string { return "kfusebridge: resource: " + e.Err.Error() }

func (e *ResourceError) Unwrap() error { return e.Err }
