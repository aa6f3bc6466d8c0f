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

// Package model holds the small, dependency-free domain types shared by the
// wire codec, the cache, and the fsext collaborator surface: inode and
// handle identifiers, attributes, and the volume parameters negotiated at
// mount time.
package model

import "time"

// InodeID identifies an inode as known to both the kernel side and the FUSE
// daemon. The root of a mounted volume is always inode 1, per the FUSE wire
// protocol convention.
type InodeID uint64

const RootInodeID InodeID = 1

// HandleID identifies an open file or directory handle.
type HandleID uint64

// Generation guards against a cache item being confused with a stale one
// after an invalidation.
type Generation uint64

// Attributes mirrors the subset of POSIX inode attributes the FUSE wire
// protocol carries in LOOKUP/GETATTR responses.
type Attributes struct {
	Size  uint64
	Mode  uint32 // POSIX mode bits, including the S_IFMT file-type bits.
	Nlink uint32
	UID   uint32
	GID   uint32
	Rdev  uint32
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

// IsDir reports whether the attributes describe a directory.
func (a Attributes) IsDir() bool { return a.Mode&sIFMT == sIFDIR }

// IsSymlink reports whether the attributes describe a symbolic link.
func (a Attributes) IsSymlink() bool { return a.Mode&sIFMT == sIFLNK }

// IsSpecial reports whether the attributes describe a FIFO, character
// device, block device, or socket — the file types the host maps to a
// reparse point tagged NFS rather than a plain file.
func (a Attributes) IsSpecial() bool {
	switch a.Mode & sIFMT {
	case sIFIFO, sIFCHR, sIFBLK, sIFSOCK:
		return true
	default:
		return false
	}
}

// POSIX file-type bits (S_IFMT and friends), reproduced here rather than
// imported from a platform-specific syscall package so that Attributes stays
// buildable on every host OS the bridge's control plane might run on.
const (
	sIFMT   = 0170000
	sIFIFO  = 0010000
	sIFCHR  = 0020000
	sIFDIR  = 0040000
	sIFBLK  = 0060000
	sIFSOCK = 0140000
	sIFLNK  = 0120000
)

// VolumeParams holds the parameters negotiated once at device init and held
// fixed for the lifetime of an Instance.
type VolumeParams struct {
	SectorSize             uint32
	SectorsPerAllocUnit    uint32
	CaseSensitive          bool
	CasePreserved          bool
	PersistentACLs         bool
	ReparsePoints          bool
	PostCleanupWhenModOnly bool
	PassDirFilenameInQuery bool
	DeviceControl          bool
	DirMarkerAsNextOffset  bool
}

// DefaultVolumeParams returns the negotiated defaults: case sensitive, case
// preserved, persistent ACLs on, reparse points on without an access check,
// named streams off, read-only off (both fixed, not configurable), plus the
// host-framework flags the core depends on.
func DefaultVolumeParams() VolumeParams {
	return VolumeParams{
		SectorSize:             4096,
		SectorsPerAllocUnit:    1,
		CaseSensitive:          true,
		CasePreserved:          true,
		PersistentACLs:         true,
		ReparsePoints:          true,
		PostCleanupWhenModOnly: true,
		PassDirFilenameInQuery: true,
		DeviceControl:          true,
		DirMarkerAsNextOffset:  true,
	}
}

// AllocationSize rounds size up to the nearest multiple of the volume's
// allocation unit (sector_size * sectors_per_allocation_unit).
func (p VolumeParams) AllocationSize(size uint64) uint64 {
	unit := uint64(p.SectorSize) * uint64(p.SectorsPerAllocUnit)
	if unit == 0 {
		return size
	}
	if rem := size % unit; rem != 0 {
		return size + (unit - rem)
	}
	return size
}
