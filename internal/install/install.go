package install

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/beacon-cli/beacon-updater/internal/config"
	"github.com/beacon-cli/beacon-updater/internal/lock"
	"github.com/beacon-cli/beacon-updater/internal/logger"
	"github.com/beacon-cli/beacon-updater/internal/version"
)

const (
	// binaryFileMode is applied to extracted and refreshed executables.
	binaryFileMode os.FileMode = 0o755

	// extractTimeout bounds the external extraction process.
	extractTimeout = 2 * time.Minute
)

var (
	// ErrBinaryMissing is returned when a version tree lacks the product binary.
	ErrBinaryMissing = errors.New("product binary missing from version directory")
	// errExtractFailed wraps a non-zero exit of the extraction utility.
	errExtractFailed = errors.New("archive extraction failed")
)

// Installer extracts release artifacts, switches the active version
// atomically and prunes old versions while consulting the lock manager.
type Installer struct {
	// paths is the on-disk layout under the state root.
	paths config.Paths
	// locks answers whether a version is still in use.
	locks *lock.Manager
}

// NewInstaller creates an installer over the provided layout and lock manager.
func NewInstaller(paths config.Paths, locks *lock.Manager) *Installer {
	return &Installer{
		paths: paths,
		locks: locks,
	}
}

// InstallVersion extracts the artifact into versions/<version>/ using the
// external tar utility. A non-zero exit fails loudly, including the
// captured stderr.
func (i *Installer) InstallVersion(ctx context.Context, tarballPath, version string) error {
	dir := i.paths.VersionDir(version)
	if err := os.MkdirAll(dir, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create version directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, "tar", "-xzf", filepath.Clean(tarballPath), "-C", dir)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %v: %s", errExtractFailed, err, bytes.TrimSpace(stderr.Bytes()))
	}

	logger.InfoKV(ctx, "Version installed", "version", version, "dir", dir)

	return nil
}

// ActivateVersion switches the stable symlink to the version's binary.
// The cutover is a temporary symlink atomically renamed over the stable
// path, so a concurrent reader resolves either the old or the new target
// in full, never a half-written link. On failure mid-sequence the temp
// link is removed and the stable link is left untouched.
func (i *Installer) ActivateVersion(ctx context.Context, version string) error {
	target := i.paths.BinaryPath(version)
	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("%s: %w", version, ErrBinaryMissing)
	}

	stable := i.paths.ActiveBinaryLink()
	if err := os.MkdirAll(filepath.Dir(stable), config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create bin directory: %w", err)
	}

	temp := fmt.Sprintf("%s.%d.tmp", stable, time.Now().UnixNano())
	if err := os.Symlink(target, temp); err != nil {
		return fmt.Errorf("create temporary symlink: %w", err)
	}

	if err := os.Rename(temp, stable); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("swap active symlink: %w", err)
	}

	logger.InfoKV(ctx, "Version activated", "version", version, "link", stable)

	return nil
}

// ActiveVersion resolves the stable symlink to the version it points at.
// The symlink target is the sole authority on what is active; an empty
// version with nil error means nothing is activated yet.
func (i *Installer) ActiveVersion() (string, error) {
	target, err := os.Readlink(i.paths.ActiveBinaryLink())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}

		return "", fmt.Errorf("resolve active symlink: %w", err)
	}

	// The binary sits directly inside versions/<version>/.
	return filepath.Base(filepath.Dir(target)), nil
}

// CleanupOldVersions removes installed versions beyond the newest
// keepCount. The version the stable symlink resolves to and versions
// held by live processes are never removed unless force is set. Each
// removal is independent and best-effort.
func (i *Installer) CleanupOldVersions(ctx context.Context, keepCount int, force bool) {
	versions, err := i.installedVersions()
	if err != nil {
		logger.WarnKV(ctx, "Unable to list installed versions", "error", err)
		return
	}

	if keepCount < 0 {
		keepCount = 0
	}

	if len(versions) <= keepCount {
		return
	}

	active, err := i.ActiveVersion()
	if err != nil {
		logger.WarnKV(ctx, "Unable to resolve active version, skipping cleanup", "error", err)
		return
	}

	for _, candidate := range versions[keepCount:] {
		if !force {
			if candidate == active {
				logger.DebugKV(ctx, "Keeping active version", "version", candidate)
				continue
			}

			status, lockErr := i.locks.IsVersionLocked(ctx, candidate)
			if lockErr != nil {
				logger.WarnKV(ctx, "Unable to check version locks", "version", candidate, "error", lockErr)
				continue
			}

			if status.Locked {
				logger.InfoKV(ctx, "Keeping locked version", "version", candidate, "pids", status.PIDs)
				continue
			}
		}

		if err = os.RemoveAll(i.paths.VersionDir(candidate)); err != nil {
			logger.WarnKV(ctx, "Unable to remove old version", "version", candidate, "error", err)
			continue
		}

		logger.InfoKV(ctx, "Removed old version", "version", candidate)
	}
}

// RollbackVersion reactivates an older still-installed version. It only
// works while cleanup has preserved the target, which is why cleanup
// retains history beyond the active version.
func (i *Installer) RollbackVersion(ctx context.Context, previousVersion string) error {
	if _, err := os.Stat(i.paths.BinaryPath(previousVersion)); err != nil {
		return fmt.Errorf("%s: %w", previousVersion, ErrBinaryMissing)
	}

	logger.InfoKV(ctx, "Rolling back", "version", previousVersion)

	return i.ActivateVersion(ctx, previousVersion)
}

// RefreshCompanion replaces the standalone updater binary installed next
// to the stable symlink with the copy shipped inside the version tree,
// when one is present. go-update parks the running executable aside so
// the updater can refresh itself. Absence of a shipped copy is routine.
func (i *Installer) RefreshCompanion(ctx context.Context, ver string) error {
	source := filepath.Join(i.paths.VersionDir(ver), config.UpdaterBinaryName+config.ExecutableExtension())

	file, err := os.Open(filepath.Clean(source))
	if err != nil {
		if os.IsNotExist(err) {
			logger.DebugKV(ctx, "Version ships no companion updater", "version", ver)
			return nil
		}

		return fmt.Errorf("open shipped updater: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	target := i.paths.CompanionUpdaterPath()
	options := goupdate.Options{
		TargetPath: target,
		TargetMode: binaryFileMode,
	}

	if err = goupdate.Apply(file, options); err != nil {
		return fmt.Errorf("refresh companion updater: %w", err)
	}

	// go-update leaves the previous binary parked with an .old suffix.
	oldPath := target + ".old"
	if _, err = os.Stat(oldPath); err == nil {
		_ = os.Remove(oldPath)
	}

	logger.InfoKV(ctx, "Companion updater refreshed", "version", ver, "path", target)

	return nil
}

// installedVersions lists version directories sorted newest first by
// numeric component-wise comparison.
func (i *Installer) installedVersions() ([]string, error) {
	entries, err := os.ReadDir(i.paths.VersionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	versions := make([]string, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == config.LocksDirName {
			continue
		}

		versions = append(versions, entry.Name())
	}

	sort.Slice(versions, func(a, b int) bool {
		return version.Compare(versions[a], versions[b]) > 0
	})

	return versions, nil
}
