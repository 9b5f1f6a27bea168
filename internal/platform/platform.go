package platform

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// Libc identifies the C library flavor of a Linux host.
type Libc string

const (
	// LibcGnu is the glibc flavor, also the fallback when probing fails.
	LibcGnu Libc = "gnu"
	// LibcMusl is the musl flavor found on Alpine-like systems.
	LibcMusl Libc = "musl"
)

// ErrUnsupportedPlatform is returned when the host OS or architecture has
// no release artifact.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// keys is the fixed set of platform keys a manifest may carry.
//
//nolint:gochecknoglobals // Static lookup table.
var keys = []string{
	"darwin-x64",
	"darwin-arm64",
	"linux-x64-gnu",
	"linux-x64-musl",
	"linux-arm64-gnu",
	"linux-arm64-musl",
	"windows-x64",
	"windows-arm64",
}

// Keys returns the fixed set of platform keys in stable order.
func Keys() []string {
	return append([]string(nil), keys...)
}

// Resolve maps the current host to its platform key.
func Resolve() (string, error) {
	return resolve(runtime.GOOS, runtime.GOARCH, DetectLibc)
}

// resolve is the testable core of Resolve.
func resolve(goos, goarch string, detectLibc func() Libc) (string, error) {
	arch, ok := archKey(goarch)
	if !ok {
		return "", fmt.Errorf("%s/%s: %w", goos, goarch, ErrUnsupportedPlatform)
	}

	switch goos {
	case "darwin":
		return "darwin-" + arch, nil
	case "linux":
		return fmt.Sprintf("linux-%s-%s", arch, detectLibc()), nil
	case "windows":
		return "windows-" + arch, nil
	default:
		return "", fmt.Errorf("%s/%s: %w", goos, goarch, ErrUnsupportedPlatform)
	}
}

// archKey translates GOARCH values into artifact architecture names.
func archKey(goarch string) (string, bool) {
	switch goarch {
	case "amd64":
		return "x64", true
	case "arm64":
		return "arm64", true
	default:
		return "", false
	}
}

// DetectLibc probes the dynamic linker for a musl marker. Probe failure
// is non-fatal and defaults to gnu.
func DetectLibc() Libc {
	if runtime.GOOS != "linux" {
		return LibcGnu
	}

	// musl installs its loader as /lib/ld-musl-<arch>.so.1.
	matches, err := filepath.Glob("/lib/ld-musl-*")
	if err == nil && len(matches) > 0 {
		return LibcMusl
	}

	return LibcGnu
}
