package host

import "fmt"

// FakeEnv is a deterministic Env implementation for tests.
// Zero value behaves like a host with no environment variables and
// no live processes besides the fake's own pid.
type FakeEnv struct {
	// PidValue is returned by Pid.
	PidValue int
	// Vars backs LookupEnv.
	Vars map[string]string
	// Alive lists pids considered alive by PidAlive.
	Alive map[int]bool
	// Spawned records every StartDetached invocation.
	Spawned [][]string
	// SpawnErr, when set, is returned by StartDetached.
	SpawnErr error
}

// Pid returns the configured pid.
func (f *FakeEnv) Pid() int {
	return f.PidValue
}

// LookupEnv reads from the configured variable map.
func (f *FakeEnv) LookupEnv(key string) (string, bool) {
	v, ok := f.Vars[key]
	return v, ok
}

// PidAlive reports liveness from the configured set.
// The fake's own pid is always alive.
func (f *FakeEnv) PidAlive(pid int) bool {
	if pid == f.PidValue {
		return true
	}

	return f.Alive[pid]
}

// StartDetached records the invocation instead of spawning anything.
func (f *FakeEnv) StartDetached(name string, args ...string) error {
	if f.SpawnErr != nil {
		return fmt.Errorf("start detached: %w", f.SpawnErr)
	}

	f.Spawned = append(f.Spawned, append([]string{name}, args...))

	return nil
}
