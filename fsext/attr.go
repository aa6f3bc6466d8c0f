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
	"time"

	"github.com/fspbridge/kfusebridge/model"
)

// File attribute bits, as the host framework's FILE_INFO structure defines
// them. Reproduced here (rather than imported from a platform package)
// since this module's control plane must stay buildable off the host OS.
const (
	AttrReadonly     = 0x00000001
	AttrDirectory    = 0x00000010
	AttrNormal       = 0x00000080
	AttrReparsePoint = 0x00000400
)

// Reparse tags the host framework recognizes for non-regular files.
const (
	ReparseTagNone    = 0
	ReparseTagSymlink = 0xA000000C
	ReparseTagNFS     = 0x80000014
)

// FileInfo is the host framework's per-file attribute block, as surfaced by
// the GETATTR/LOOKUP path.
type FileInfo struct {
	FileAttributes uint32
	ReparseTag     uint32

	FileSize       uint64
	AllocationSize uint64

	CreationTime   time.Time
	LastAccessTime time.Time
	LastWriteTime  time.Time
	ChangeTime     time.Time

	IndexNumber uint64
	HardLinks   uint32
}

// FuseAttrToFileInfo maps POSIX attributes, as decoded off the wire, to the
// host framework's FileInfo shape. Directories get the
// directory attribute bit; FIFOs, character/block devices, and sockets are
// surfaced as a reparse point tagged NFS, since the host framework has no
// native concept of those file types; symlinks are surfaced as a reparse
// point tagged symlink. symlinkTargetIsDir is consulted only when attrs
// describes a symlink: when the daemon has resolved the link and reports its
// target as a directory, the directory attribute bit is set alongside the
// symlink reparse tag, resolving the open question. Callers that have not resolved the target (or
// are describing a non-symlink) pass false.
func FuseAttrToFileInfo(attrs model.Attributes, params model.VolumeParams, symlinkTargetIsDir bool) FileInfo {
	info := FileInfo{
		FileSize:       attrs.Size,
		AllocationSize: params.AllocationSize(attrs.Size),
		CreationTime:   attrs.Ctime,
		LastAccessTime: attrs.Atime,
		LastWriteTime:  attrs.Mtime,
		ChangeTime:     attrs.Ctime,
		HardLinks:      attrs.Nlink,
	}

	switch {
	case attrs.IsDir():
		info.FileAttributes = AttrDirectory
	case attrs.IsSymlink():
		info.FileAttributes = AttrReparsePoint
		info.ReparseTag = ReparseTagSymlink
		if symlinkTargetIsDir {
			info.FileAttributes |= AttrDirectory
		}
	case attrs.IsSpecial():
		info.FileAttributes = AttrReparsePoint
		info.ReparseTag = ReparseTagNFS
	default:
		info.FileAttributes = AttrNormal
	}

	return info
}
