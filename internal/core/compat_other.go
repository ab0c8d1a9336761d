//go:build !darwin

package core

import (
	"fmt"
	"runtime"
)

// OSVersion returns a short platform string such as "linux (amd64)".
func OSVersion() string {
	return fmt.Sprintf("%s (%s)", runtime.GOOS, runtime.GOARCH)
}

// IsSupportedOS reports whether the browser tools can run natively here.
// Orion ships for macOS only; other platforms can still run the read-only
// commands against a copied profile.
func IsSupportedOS() bool { return false }
