package packager

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beacon-cli/beacon-updater/internal/manifest"
)

func writeArtifact(t *testing.T, dir, key string, contents []byte) string {
	t.Helper()

	path := filepath.Join(dir, artifactFilename(key))
	require.NoError(t, os.WriteFile(path, contents, 0o644))

	return path
}

func TestRun_BuildsManifestFromArtifacts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	linuxBody := []byte("linux artifact body")
	darwinBody := []byte("darwin artifact body, longer")

	writeArtifact(t, dir, "linux-x64-gnu", linuxBody)
	writeArtifact(t, dir, "darwin-arm64", darwinBody)

	// A file that is not a platform tarball is ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "RELEASE_NOTES.md"), []byte("notes"), 0o644))

	err := Run(context.Background(), &Options{
		ArtifactDir: dir,
		Version:     "2.3.0",
		BaseURL:     "https://downloads.example.com/releases/2.3.0",
	})
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)

	var m manifest.Manifest
	require.NoError(t, json.Unmarshal(contents, &m))
	require.NoError(t, m.Validate())

	require.Equal(t, "2.3.0", m.Version)
	require.Equal(t, "0.0.0", m.MinRuntimeVersion)
	require.Len(t, m.Platforms, 2)

	linux := m.Platforms["linux-x64-gnu"]
	digest := sha256.Sum256(linuxBody)
	require.Equal(t, hex.EncodeToString(digest[:]), linux.Sha256)
	require.Equal(t, int64(len(linuxBody)), linux.Size)
	require.Equal(t,
		"https://downloads.example.com/releases/2.3.0/"+artifactFilename("linux-x64-gnu"),
		linux.URL)

	darwin := m.Platforms["darwin-arm64"]
	require.Equal(t, int64(len(darwinBody)), darwin.Size)
}

func TestRun_CustomOutputAndMinRuntime(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeArtifact(t, dir, "windows-x64", []byte("windows artifact"))

	output := filepath.Join(t.TempDir(), "release-manifest.json")

	err := Run(context.Background(), &Options{
		ArtifactDir:       dir,
		Version:           "3.0.0",
		BaseURL:           "https://downloads.example.com/releases/3.0.0/",
		MinRuntimeVersion: "2.5.0",
		OutputPath:        output,
	})
	require.NoError(t, err)

	contents, err := os.ReadFile(output)
	require.NoError(t, err)

	var m manifest.Manifest
	require.NoError(t, json.Unmarshal(contents, &m))
	require.Equal(t, "2.5.0", m.MinRuntimeVersion)

	// The trailing slash in the base URL does not double up.
	require.Equal(t,
		"https://downloads.example.com/releases/3.0.0/"+artifactFilename("windows-x64"),
		m.Platforms["windows-x64"].URL)
}

func TestRun_NoArtifacts(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{
		ArtifactDir: t.TempDir(),
		Version:     "2.3.0",
		BaseURL:     "https://downloads.example.com/releases/2.3.0",
	})
	require.ErrorIs(t, err, errNoArtifacts)
}

func TestRun_MissingInputs(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{BaseURL: "https://example.com"})
	require.ErrorIs(t, err, errVersionRequired)

	err = Run(context.Background(), &Options{Version: "2.3.0"})
	require.ErrorIs(t, err, errBaseURLRequired)
}
