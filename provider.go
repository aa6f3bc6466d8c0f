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
	"time"

	"github.com/jacobsa/timeutil"

	"github.com/fspbridge/kfusebridge/fsext"
	"github.com/fspbridge/kfusebridge/model"
	"github.com/fspbridge/kfusebridge/status"
)

// Provider adapts an Instance and the Engine driving it to
// fsext.HostCallbacks, the vtable a host-framework binding calls into. It is
// the single object such a binding needs to construct to drive a mounted
// volume.
type Provider struct {
	host     fsext.Host
	cacheTTL time.Duration
	clock    timeutil.Clock

	Instance *Instance
	Engine   *Engine
}

// NewProvider constructs a Provider bound to host, the collaborator the
// engine calls out to for new internal requests and completed-response
// delivery. DeviceInit must be called before DeviceTransact.
func NewProvider(host fsext.Host, cacheTTL time.Duration, clock timeutil.Clock) *Provider {
	return &Provider{host: host, cacheTTL: cacheTTL, clock: clock}
}

// DeviceInit implements fsext.HostCallbacks. It constructs the Instance and
// Engine for a newly mounted volume and enqueues the INIT handshake; the
// handshake itself completes asynchronously: the first DeviceTransact call
// emits the INIT request, and a later call that delivers the daemon's INIT
// reply completes it.
func (p *Provider) DeviceInit(params model.VolumeParams) status.Status {
	p.Instance = NewInstance(params, p.host, p.clock, p.cacheTTL)
	p.Engine = NewEngine(p.Instance)
	return status.Success
}

// DeviceFini implements fsext.HostCallbacks.
func (p *Provider) DeviceFini() {
	if p.Instance == nil {
		return
	}
	p.Instance.Fini()
	p.Instance, p.Engine = nil, nil
}

// DeviceExpirationRoutine implements fsext.HostCallbacks.
func (p *Provider) DeviceExpirationRoutine(now time.Time) {
	if p.Instance == nil {
		return
	}
	p.Instance.ExpirationSweep(now)
}

// DeviceTransact implements fsext.HostCallbacks by delegating to the Engine
// built for this volume.
func (p *Provider) DeviceTransact(ctx context.Context, in []byte, out []byte) (n int, st status.Status) {
	if p.Engine == nil {
		return 0, status.DeviceNotReady
	}
	return p.Engine.Transact(ctx, in, out)
}

var _ fsext.HostCallbacks = (*Provider)(nil)
