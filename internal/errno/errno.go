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

// Package errno is the pure mapping from FUSE/POSIX error numbers to the
// host's native status taxonomy. It has no state and no dependency beyond
// golang.org/x/sys/unix, which supplies the errno constants.
package errno

import (
	"golang.org/x/sys/unix"

	"github.com/fspbridge/kfusebridge/status"
)

// ToStatus maps a FUSE response error field (a negative errno, or zero for
// success) to a host status. Zero means success.
func ToStatus(fuseErr int32) status.Status {
	if fuseErr == 0 {
		return status.Success
	}

	// FUSE wire responses carry the errno negated; normalize before lookup.
	e := fuseErr
	if e < 0 {
		e = -e
	}

	switch unix.Errno(e) {
	case unix.ENOENT:
		return status.ObjectNameNotFound
	case unix.EACCES, unix.EPERM:
		return status.AccessDenied
	case unix.EINVAL:
		return status.InvalidParameter
	case unix.ENOSYS:
		return status.NotImplemented
	case unix.ENOTDIR, unix.ENAMETOOLONG, unix.EEXIST, unix.ENOTEMPTY:
		return status.InvalidParameter
	case unix.ENOMEM:
		return status.NoMemory
	case unix.EINTR, unix.ETIMEDOUT:
		return status.Cancelled
	default:
		return status.InternalError
	}
}
