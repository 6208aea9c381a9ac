//go:build !windows

package fsutil

import "golang.org/x/sys/unix"

var crossDeviceErr error = unix.EXDEV
