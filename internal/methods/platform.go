package methods

import (
	"fmt"
	"runtime"

	"github.com/conn-castle/datalad-installer/internal/messages"
)

// Platform is an operating system family a method can run on.
type Platform string

// Supported platforms.
const (
	Linux   Platform = "linux"
	MacOS   Platform = "macos"
	Windows Platform = "windows"
)

// AllPlatforms lists every platform.
var AllPlatforms = []Platform{Linux, MacOS, Windows}

var goos = runtime.GOOS

// Current returns the platform the process runs on. Unknown systems are
// treated as Linux.
func Current() Platform {
	switch goos {
	case "darwin":
		return MacOS
	case "windows":
		return Windows
	default:
		return Linux
	}
}

// ParsePlatform converts a platform name. "darwin" is accepted for macOS.
func ParsePlatform(s string) (Platform, error) {
	switch s {
	case "linux":
		return Linux, nil
	case "macos", "darwin":
		return MacOS, nil
	case "windows":
		return Windows, nil
	default:
		return "", fmt.Errorf(messages.MethodsUnknownPlatformFmt, s)
	}
}

func (p Platform) String() string {
	return string(p)
}
