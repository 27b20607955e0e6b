// Package version provides library identification and protocol version checks.
package version

import (
	"fmt"
	"runtime"
)

// Library is the version of this client library.
const Library = "0.4.0"

// Gateway protocol versions this client speaks.
const (
	MinProtocol = 3
	MaxProtocol = 3
)

// Commit is set at build time with -ldflags "-X ...version.Commit=...".
var Commit = "dev"

// UserAgent returns the user agent sent in the connect handshake.
func UserAgent() string {
	return fmt.Sprintf("gateway-go/%s (%s; %s)", Library, runtime.GOOS, runtime.GOARCH)
}

// String returns the library version with its commit.
func String() string {
	return fmt.Sprintf("%s (%s)", Library, Commit)
}

// Supported reports whether a server-selected protocol version is within the
// range this client offered.
func Supported(protocol int) bool {
	return protocol >= MinProtocol && protocol <= MaxProtocol
}

// CheckProtocol returns an error when the server selected a protocol version
// outside the offered range.
func CheckProtocol(protocol int) error {
	if Supported(protocol) {
		return nil
	}
	return fmt.Errorf("unsupported protocol version %d: client speaks %d..%d", protocol, MinProtocol, MaxProtocol)
}
