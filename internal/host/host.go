package host

import (
	"os"
	"os/exec"
)

// Env is the host-environment capability consumed by the lock manager,
// the state store and the orchestrator. Isolating ambient process state
// behind this interface keeps those components deterministic in tests.
type Env interface {
	// Pid returns the process id of the current process.
	Pid() int

	// LookupEnv retrieves the value of the environment variable named by key.
	LookupEnv(key string) (string, bool)

	// PidAlive reports whether a process with the given pid exists.
	// The probe is non-destructive; a permission error counts as alive
	// since the process exists under different privileges.
	PidAlive(pid int) bool

	// StartDetached launches an independent background process and does
	// not wait for it. The child outlives the caller.
	StartDetached(name string, args ...string) error
}

// OSEnv implements Env against the real operating system.
type OSEnv struct{}

// NewOSEnv returns the host environment backed by the real OS.
func NewOSEnv() *OSEnv {
	return &OSEnv{}
}

// Pid returns the current process id.
func (*OSEnv) Pid() int {
	return os.Getpid()
}

// LookupEnv reads an environment variable.
func (*OSEnv) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// PidAlive probes the process with a platform-specific liveness check.
func (*OSEnv) PidAlive(pid int) bool {
	return pidAlive(pid)
}

// StartDetached starts the named program and releases the handle so the
// child keeps running after this process exits. The result of the child
// is intentionally not collected.
func (*OSEnv) StartDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return err
	}

	return cmd.Process.Release()
}
