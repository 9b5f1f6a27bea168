package config

import (
	"path/filepath"
	"runtime"
)

const (
	// ProductBinaryName is the base name of the distributed binary.
	ProductBinaryName = "beacon"

	// UpdaterBinaryName is the base name of the standalone updater binary.
	UpdaterBinaryName = "beacon-updater"

	// LocksDirName is the directory under versions/ holding pid lock files.
	LocksDirName = "locks"
)

// Paths derives the on-disk layout from a state root:
//
//	<root>/manifest.json          cached release manifest
//	<root>/update-state.json      persisted update state
//	<root>/downloads/             temporary download artifacts
//	<root>/versions/<version>/    extracted release trees
//	<root>/versions/locks/        per-pid lock files
//	<root>/bin/beacon             stable symlink to the active binary
type Paths struct {
	// Root is the state root directory.
	Root string
}

// NewPaths returns the layout rooted at the provided directory.
func NewPaths(root string) Paths {
	return Paths{Root: filepath.Clean(root)}
}

// ManifestCache is where the fetched manifest is cached.
func (p Paths) ManifestCache() string {
	return filepath.Join(p.Root, "manifest.json")
}

// StateFile is the persisted update-state document.
func (p Paths) StateFile() string {
	return filepath.Join(p.Root, "update-state.json")
}

// DownloadsDir holds in-flight download artifacts.
func (p Paths) DownloadsDir() string {
	return filepath.Join(p.Root, "downloads")
}

// VersionsDir holds one extracted tree per installed version.
func (p Paths) VersionsDir() string {
	return filepath.Join(p.Root, "versions")
}

// LocksDir holds the per-pid lock files.
func (p Paths) LocksDir() string {
	return filepath.Join(p.VersionsDir(), LocksDirName)
}

// VersionDir is the extracted tree of a specific version.
func (p Paths) VersionDir(version string) string {
	return filepath.Join(p.VersionsDir(), version)
}

// BinaryPath is the product binary inside a version tree. The relative
// location of the binary within a release tarball is fixed.
func (p Paths) BinaryPath(version string) string {
	return filepath.Join(p.VersionDir(version), ProductBinaryName+ExecutableExtension())
}

// ActiveBinaryLink is the stable symlink resolving to the active binary.
// It lives outside the versions root so cleanup never walks over it.
func (p Paths) ActiveBinaryLink() string {
	return filepath.Join(p.Root, "bin", ProductBinaryName+ExecutableExtension())
}

// CompanionUpdaterPath is the standalone updater binary installed next to
// the stable symlink and refreshed during apply.
func (p Paths) CompanionUpdaterPath() string {
	return filepath.Join(p.Root, "bin", UpdaterBinaryName+ExecutableExtension())
}

// ExecutableExtension returns ".exe" on Windows and "" elsewhere.
func ExecutableExtension() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}

	return ""
}
