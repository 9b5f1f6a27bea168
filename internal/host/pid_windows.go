//go:build windows

package host

import (
	"github.com/mitchellh/go-ps"
)

// pidAlive looks the process up in the system process table.
// Signal 0 is not meaningful on Windows, so the snapshot-based
// enumeration from go-ps is used instead.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		return false
	}

	return process != nil
}
