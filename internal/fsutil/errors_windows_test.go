//go:build windows

package fsutil

import "golang.org/x/sys/windows"

var crossDeviceErr error = windows.ERROR_NOT_SAME_DEVICE
