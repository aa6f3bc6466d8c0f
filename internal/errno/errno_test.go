package errno

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/fspbridge/kfusebridge/status"
)

func TestToStatus(t *testing.T) {
	cases := []struct {
		in   int32
		want status.Status
	}{
		{0, status.Success},
		{int32(unix.ENOENT), status.ObjectNameNotFound},
		{-int32(unix.ENOENT), status.ObjectNameNotFound},
		{int32(unix.EACCES), status.AccessDenied},
		{int32(unix.EPERM), status.AccessDenied},
		{int32(unix.EINVAL), status.InvalidParameter},
		{int32(unix.ENOSYS), status.NotImplemented},
		{int32(unix.ENOMEM), status.NoMemory},
		{int32(unix.EINTR), status.Cancelled},
		{int32(unix.EIO), status.InternalError},
	}

	for _, c := range cases {
		if got := ToStatus(c.in); got != c.want {
			t.Errorf("ToStatus(%d) = %v, want %v", c.in, got, c.want)
		}
	}
}
