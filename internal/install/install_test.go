package install

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beacon-cli/beacon-updater/internal/config"
	"github.com/beacon-cli/beacon-updater/internal/host"
	"github.com/beacon-cli/beacon-updater/internal/lock"
)

// newInstaller builds an installer over a temp state root with a fake host.
func newInstaller(t *testing.T, env *host.FakeEnv) (*Installer, config.Paths, *lock.Manager) {
	t.Helper()

	paths := config.NewPaths(t.TempDir())
	locks := lock.NewManager(paths.LocksDir(), env)

	return NewInstaller(paths, locks), paths, locks
}

// installFakeVersion lays out versions/<v>/beacon without extraction.
func installFakeVersion(t *testing.T, paths config.Paths, version string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(paths.VersionDir(version), 0o755))
	require.NoError(t, os.WriteFile(paths.BinaryPath(version), []byte("#!/bin/sh\necho "+version+"\n"), 0o755))
}

// writeTarball produces a gzipped tar containing the product binary.
func writeTarball(t *testing.T, path string) {
	t.Helper()

	file, err := os.Create(path)
	require.NoError(t, err)

	gz := gzip.NewWriter(file)
	tw := tar.NewWriter(gz)

	contents := []byte("#!/bin/sh\necho beacon\n")
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: config.ProductBinaryName,
		Mode: 0o755,
		Size: int64(len(contents)),
	}))
	_, err = tw.Write(contents)
	require.NoError(t, err)

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, file.Close())
}

// requireTar skips tests depending on the external extraction utility.
func requireTar(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("tar"); err != nil {
		t.Skip("tar is not available")
	}
}

// TestInstallVersion_ExtractsArchive extracts a real tarball into the version tree.
func TestInstallVersion_ExtractsArchive(t *testing.T) {
	t.Parallel()
	requireTar(t)

	installer, paths, _ := newInstaller(t, &host.FakeEnv{PidValue: 1})

	tarball := filepath.Join(t.TempDir(), "beacon-2.3.0.tar.gz")
	writeTarball(t, tarball)

	require.NoError(t, installer.InstallVersion(context.Background(), tarball, "2.3.0"))

	_, err := os.Stat(paths.BinaryPath("2.3.0"))
	require.NoError(t, err)
}

// TestInstallVersion_CorruptArchive fails loudly with captured stderr.
func TestInstallVersion_CorruptArchive(t *testing.T) {
	t.Parallel()
	requireTar(t)

	installer, _, _ := newInstaller(t, &host.FakeEnv{PidValue: 1})

	corrupt := filepath.Join(t.TempDir(), "corrupt.tar.gz")
	require.NoError(t, os.WriteFile(corrupt, []byte("this is not a tarball"), 0o600))

	err := installer.InstallVersion(context.Background(), corrupt, "9.9.9")
	require.Error(t, err)
	require.ErrorContains(t, err, "extraction failed")
}

// TestActivateVersion_SwapsSymlinkAtomically verifies the stable path
// resolves to the old target until the swap, then to the new one.
func TestActivateVersion_SwapsSymlinkAtomically(t *testing.T) {
	t.Parallel()

	installer, paths, _ := newInstaller(t, &host.FakeEnv{PidValue: 1})
	ctx := context.Background()

	installFakeVersion(t, paths, "1.0.0")
	installFakeVersion(t, paths, "1.1.0")

	require.NoError(t, installer.ActivateVersion(ctx, "1.0.0"))

	active, err := installer.ActiveVersion()
	require.NoError(t, err)
	require.Equal(t, "1.0.0", active)

	require.NoError(t, installer.ActivateVersion(ctx, "1.1.0"))

	active, err = installer.ActiveVersion()
	require.NoError(t, err)
	require.Equal(t, "1.1.0", active)

	// The stable path is a symlink resolving to the full binary path.
	target, err := os.Readlink(paths.ActiveBinaryLink())
	require.NoError(t, err)
	require.Equal(t, paths.BinaryPath("1.1.0"), target)

	// No temp links are left behind.
	entries, err := os.ReadDir(filepath.Dir(paths.ActiveBinaryLink()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

// TestActivateVersion_MissingBinary leaves the stable link untouched.
func TestActivateVersion_MissingBinary(t *testing.T) {
	t.Parallel()

	installer, paths, _ := newInstaller(t, &host.FakeEnv{PidValue: 1})
	ctx := context.Background()

	installFakeVersion(t, paths, "1.0.0")
	require.NoError(t, installer.ActivateVersion(ctx, "1.0.0"))

	err := installer.ActivateVersion(ctx, "2.0.0")
	require.ErrorIs(t, err, ErrBinaryMissing)

	active, err := installer.ActiveVersion()
	require.NoError(t, err)
	require.Equal(t, "1.0.0", active)
}

// TestActiveVersion_NoLink reports no active version without error.
func TestActiveVersion_NoLink(t *testing.T) {
	t.Parallel()

	installer, _, _ := newInstaller(t, &host.FakeEnv{PidValue: 1})

	active, err := installer.ActiveVersion()
	require.NoError(t, err)
	require.Empty(t, active)
}

// TestCleanupOldVersions_ProtectsActiveAndKeepWindow reproduces the
// scenario where the active version sits outside the keep window:
// nothing is removed.
func TestCleanupOldVersions_ProtectsActiveAndKeepWindow(t *testing.T) {
	t.Parallel()

	installer, paths, _ := newInstaller(t, &host.FakeEnv{PidValue: 1})
	ctx := context.Background()

	for _, v := range []string{"1.0.0", "1.1.0", "1.2.0"} {
		installFakeVersion(t, paths, v)
	}

	require.NoError(t, installer.ActivateVersion(ctx, "1.0.0"))

	installer.CleanupOldVersions(ctx, 2, false)

	for _, v := range []string{"1.0.0", "1.1.0", "1.2.0"} {
		_, err := os.Stat(paths.VersionDir(v))
		require.NoError(t, err, v)
	}
}

// TestCleanupOldVersions_RemovesBeyondKeepCount prunes the oldest
// unprotected versions only.
func TestCleanupOldVersions_RemovesBeyondKeepCount(t *testing.T) {
	t.Parallel()

	installer, paths, _ := newInstaller(t, &host.FakeEnv{PidValue: 1})
	ctx := context.Background()

	for _, v := range []string{"1.0.0", "1.1.0", "1.2.0", "2.0.0"} {
		installFakeVersion(t, paths, v)
	}

	require.NoError(t, installer.ActivateVersion(ctx, "2.0.0"))

	installer.CleanupOldVersions(ctx, 2, false)

	for _, v := range []string{"2.0.0", "1.2.0"} {
		_, err := os.Stat(paths.VersionDir(v))
		require.NoError(t, err, v)
	}

	for _, v := range []string{"1.1.0", "1.0.0"} {
		_, err := os.Stat(paths.VersionDir(v))
		require.True(t, os.IsNotExist(err), v)
	}
}

// TestCleanupOldVersions_SkipsLockedVersion keeps a version held by a
// live process even outside the keep window.
func TestCleanupOldVersions_SkipsLockedVersion(t *testing.T) {
	t.Parallel()

	env := &host.FakeEnv{PidValue: 77}
	installer, paths, locks := newInstaller(t, env)
	ctx := context.Background()

	for _, v := range []string{"1.0.0", "1.1.0", "1.2.0"} {
		installFakeVersion(t, paths, v)
	}

	require.NoError(t, installer.ActivateVersion(ctx, "1.2.0"))
	require.NoError(t, locks.Acquire(ctx, "1.0.0"))

	installer.CleanupOldVersions(ctx, 1, false)

	// Locked 1.0.0 survives, unprotected 1.1.0 is pruned.
	_, err := os.Stat(paths.VersionDir("1.0.0"))
	require.NoError(t, err)
	_, err = os.Stat(paths.VersionDir("1.1.0"))
	require.True(t, os.IsNotExist(err))
}

// TestCleanupOldVersions_ForceOverridesProtection removes locked versions
// when force is set.
func TestCleanupOldVersions_ForceOverridesProtection(t *testing.T) {
	t.Parallel()

	env := &host.FakeEnv{PidValue: 77}
	installer, paths, locks := newInstaller(t, env)
	ctx := context.Background()

	for _, v := range []string{"1.0.0", "1.1.0"} {
		installFakeVersion(t, paths, v)
	}

	require.NoError(t, installer.ActivateVersion(ctx, "1.1.0"))
	require.NoError(t, locks.Acquire(ctx, "1.0.0"))

	installer.CleanupOldVersions(ctx, 1, true)

	_, err := os.Stat(paths.VersionDir("1.0.0"))
	require.True(t, os.IsNotExist(err))
}

// TestRollbackVersion reactivates an older installed version and rejects
// targets whose binary is gone.
func TestRollbackVersion(t *testing.T) {
	t.Parallel()

	installer, paths, _ := newInstaller(t, &host.FakeEnv{PidValue: 1})
	ctx := context.Background()

	installFakeVersion(t, paths, "1.0.0")
	installFakeVersion(t, paths, "1.1.0")

	require.NoError(t, installer.ActivateVersion(ctx, "1.1.0"))
	require.NoError(t, installer.RollbackVersion(ctx, "1.0.0"))

	active, err := installer.ActiveVersion()
	require.NoError(t, err)
	require.Equal(t, "1.0.0", active)

	require.ErrorIs(t, installer.RollbackVersion(ctx, "3.0.0"), ErrBinaryMissing)
}

// TestRefreshCompanion_NoShippedUpdater treats absence as routine.
func TestRefreshCompanion_NoShippedUpdater(t *testing.T) {
	t.Parallel()

	installer, paths, _ := newInstaller(t, &host.FakeEnv{PidValue: 1})

	installFakeVersion(t, paths, "1.0.0")
	require.NoError(t, installer.RefreshCompanion(context.Background(), "1.0.0"))
}

// TestRefreshCompanion_ReplacesBinary installs the shipped updater copy
// over the companion path.
func TestRefreshCompanion_ReplacesBinary(t *testing.T) {
	t.Parallel()

	installer, paths, _ := newInstaller(t, &host.FakeEnv{PidValue: 1})
	ctx := context.Background()

	installFakeVersion(t, paths, "2.0.0")

	shipped := filepath.Join(paths.VersionDir("2.0.0"), config.UpdaterBinaryName+config.ExecutableExtension())
	require.NoError(t, os.WriteFile(shipped, []byte("new updater"), 0o755))

	// Seed an existing companion to be replaced.
	require.NoError(t, os.MkdirAll(filepath.Dir(paths.CompanionUpdaterPath()), 0o755))
	require.NoError(t, os.WriteFile(paths.CompanionUpdaterPath(), []byte("old updater"), 0o755))

	require.NoError(t, installer.RefreshCompanion(ctx, "2.0.0"))

	got, err := os.ReadFile(paths.CompanionUpdaterPath())
	require.NoError(t, err)
	require.Equal(t, []byte("new updater"), got)
}
