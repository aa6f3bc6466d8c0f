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

package fsext

import (
	"context"
	"time"

	"github.com/fspbridge/kfusebridge/model"
	"github.com/fspbridge/kfusebridge/status"
)

// HostCallbacks is the opposite direction from Host: the four entry points
// the host framework calls *into* this module. A Provider in the root
// package implements this interface; a real binding would register it with
// the host framework's device object.
type HostCallbacks interface {
	// DeviceInit brings up an Instance for a newly mounted volume.
	DeviceInit(params model.VolumeParams) status.Status

	// DeviceFini tears down the Instance created by DeviceInit, in its
	// fixed order: IOQ first, then the open-file table, then the cache.
	DeviceFini()

	// DeviceExpirationRoutine is invoked periodically by the host
	// framework with its notion of the current time.
	DeviceExpirationRoutine(now time.Time)

	// DeviceTransact services one transact call: at most one response in,
	// at most one request out.
	DeviceTransact(ctx context.Context, in []byte, out []byte) (n int, st status.Status)
}
