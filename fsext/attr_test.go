package fsext

import (
	"testing"
	"time"

	"github.com/kylelemons/godebug/pretty"

	"github.com/fspbridge/kfusebridge/model"
)

func TestFuseAttrToFileInfo(t *testing.T) {
	params := model.DefaultVolumeParams()
	now := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	cases := []struct {
		name               string
		mode               uint32
		symlinkTargetIsDir bool
		wantAttrs          uint32
		wantTag            uint32
	}{
		{"regular file", 0100644, false, AttrNormal, ReparseTagNone},
		{"directory", 0040755, false, AttrDirectory, ReparseTagNone},
		{"symlink", 0120777, false, AttrReparsePoint, ReparseTagSymlink},
		{"symlink to directory", 0120777, true, AttrReparsePoint | AttrDirectory, ReparseTagSymlink},
		{"fifo", 0010644, false, AttrReparsePoint, ReparseTagNFS},
		{"char device", 0020644, false, AttrReparsePoint, ReparseTagNFS},
		{"socket", 0140644, false, AttrReparsePoint, ReparseTagNFS},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			attrs := model.Attributes{
				Mode: tc.mode, Size: 8192, Nlink: 1,
				Atime: now, Mtime: now, Ctime: now,
			}
			got := FuseAttrToFileInfo(attrs, params, tc.symlinkTargetIsDir)

			want := FileInfo{
				FileAttributes: tc.wantAttrs,
				ReparseTag:     tc.wantTag,
				FileSize:       8192,
				AllocationSize: params.AllocationSize(8192),
				CreationTime:   now,
				LastAccessTime: now,
				LastWriteTime:  now,
				ChangeTime:     now,
				HardLinks:      1,
			}

			if diff := pretty.Compare(got, want); diff != "" {
				t.Errorf("FuseAttrToFileInfo(%#o) differs (-got +want):\n%s", tc.mode, diff)
			}
		})
	}
}
