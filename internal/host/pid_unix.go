//go:build !windows

package host

import (
	"errors"
	"os"
	"syscall"
)

// pidAlive sends signal 0 to the process, which performs the existence
// check without delivering anything. EPERM means the process exists but
// belongs to another user, so it is treated as alive.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}

	if errors.Is(err, syscall.EPERM) {
		return true
	}

	return false
}
