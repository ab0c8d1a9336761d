//go:build darwin

package core

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// OSVersion returns the macOS product version, e.g. "macOS 14.5 (arm64)".
// kern.osproductversion is available on all supported macOS releases.
func OSVersion() string {
	v, err := unix.Sysctl("kern.osproductversion")
	if err != nil || v == "" {
		return fmt.Sprintf("macOS (%s)", runtime.GOARCH)
	}
	return fmt.Sprintf("macOS %s (%s)", v, runtime.GOARCH)
}

// IsSupportedOS reports whether the browser tools can run natively here.
func IsSupportedOS() bool { return true }
