package lock

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/beacon-cli/beacon-updater/internal/config"
	"github.com/beacon-cli/beacon-updater/internal/host"
	"github.com/beacon-cli/beacon-updater/internal/logger"
)

// lockFileSuffix is the extension of per-pid lock files.
const lockFileSuffix = ".lock"

// Data is the content of a single lock file: which version a live
// process depends on.
type Data struct {
	// PID is the process holding the lock.
	PID int `json:"pid"`
	// Version is the installed version the process runs from.
	Version string `json:"version"`
	// StartedAt is when the lock was acquired.
	StartedAt time.Time `json:"startedAt"`
}

// Status reports whether a version is held and by whom.
type Status struct {
	// Locked is true when at least one live process holds the version.
	Locked bool
	// PIDs lists the live holders.
	PIDs []int
}

// Manager maintains per-process lock files in a shared directory. Locks
// are advisory: they prove a live process still depends on a version so
// cleanup will not delete it. There is no central registry; the lock
// directory self-heals as stale entries are found.
type Manager struct {
	// dir is the shared lock directory.
	dir string
	// env supplies the pid and the liveness probe.
	env host.Env
}

// NewManager creates a lock manager over the provided directory.
func NewManager(dir string, env host.Env) *Manager {
	return &Manager{
		dir: filepath.Clean(dir),
		env: env,
	}
}

// Acquire writes this process's lock file for the given version. The
// operation is idempotent per pid: a prior lock for the same pid is
// overwritten to reflect the latest call.
func (m *Manager) Acquire(ctx context.Context, version string) error {
	if err := os.MkdirAll(m.dir, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	data, err := json.Marshal(Data{
		PID:       m.env.Pid(),
		Version:   version,
		StartedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode lock: %w", err)
	}

	if err = os.WriteFile(m.ownLockPath(), data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write lock file: %w", err)
	}

	logger.DebugKV(ctx, "Lock acquired", "pid", m.env.Pid(), "version", version)

	return nil
}

// Release removes this process's lock file. An already-removed lock is
// not an error.
func (m *Manager) Release(ctx context.Context) error {
	err := os.Remove(m.ownLockPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file: %w", err)
	}

	logger.DebugKV(ctx, "Lock released", "pid", m.env.Pid())

	return nil
}

// IsVersionLocked scans all lock files and reports the version held only
// when a recorded lock matches the version and its pid is verified alive.
// Stale and unparsable lock files found along the way are deleted.
func (m *Manager) IsVersionLocked(ctx context.Context, version string) (Status, error) {
	var status Status

	locks, err := m.scan(ctx)
	if err != nil {
		return status, err
	}

	for _, l := range locks {
		if l.Version != version {
			continue
		}

		status.Locked = true
		status.PIDs = append(status.PIDs, l.PID)
	}

	return status, nil
}

// CleanStaleLocks removes lock files whose recorded pid is no longer
// alive or whose content cannot be parsed.
func (m *Manager) CleanStaleLocks(ctx context.Context) {
	_, _ = m.scan(ctx)
}

// LockedVersions returns the set of versions held by live processes.
func (m *Manager) LockedVersions(ctx context.Context) (map[string][]int, error) {
	locks, err := m.scan(ctx)
	if err != nil {
		return nil, err
	}

	held := make(map[string][]int, len(locks))
	for _, l := range locks {
		held[l.Version] = append(held[l.Version], l.PID)
	}

	return held, nil
}

// scan walks the lock directory, deletes stale or unparsable entries and
// returns the locks held by live processes.
func (m *Manager) scan(ctx context.Context) ([]Data, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("read lock directory: %w", err)
	}

	var live []Data

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), lockFileSuffix) {
			continue
		}

		path := filepath.Join(m.dir, entry.Name())

		contents, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var data Data
		if err = json.Unmarshal(contents, &data); err != nil || data.PID <= 0 {
			m.removeStale(ctx, path, "unparsable lock file")
			continue
		}

		if !m.env.PidAlive(data.PID) {
			m.removeStale(ctx, path, "lock holder is dead")
			continue
		}

		live = append(live, data)
	}

	return live, nil
}

// removeStale deletes a dead lock file, best-effort.
func (m *Manager) removeStale(ctx context.Context, path, reason string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.WarnKV(ctx, "Unable to remove stale lock", "path", path, "error", err)
		return
	}

	logger.DebugKV(ctx, "Removed stale lock", "path", path, "reason", reason)
}

// ownLockPath is the lock file of the current process.
func (m *Manager) ownLockPath() string {
	return filepath.Join(m.dir, fmt.Sprintf("%d%s", m.env.Pid(), lockFileSuffix))
}
