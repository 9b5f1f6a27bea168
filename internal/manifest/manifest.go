package manifest

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/beacon-cli/beacon-updater/internal/version"
)

// Artifact describes one platform's release archive.
type Artifact struct {
	// URL is where the archive is downloaded from.
	URL string `json:"url"`
	// Sha256 is the hex-encoded checksum of the archive.
	Sha256 string `json:"sha256"`
	// Size is the advertised archive size in bytes.
	Size int64 `json:"size"`
}

// Manifest describes the latest release and its per-platform artifacts.
type Manifest struct {
	// Version is the semantic version of the release.
	Version string `json:"version"`
	// ReleaseDate is when the release was published.
	ReleaseDate string `json:"releaseDate"`
	// MinRuntimeVersion is the oldest installed version the release supports.
	MinRuntimeVersion string `json:"minRuntimeVersion"`
	// Platforms maps platform keys to their artifacts.
	Platforms map[string]Artifact `json:"platforms"`
}

// sha256HexLength is the length of a hex-encoded SHA-256 digest.
const sha256HexLength = 64

var (
	// ErrInvalidManifest is wrapped by every schema violation.
	ErrInvalidManifest = errors.New("invalid manifest")
	// ErrNoPlatformArtifact is returned when the manifest has no entry
	// for the resolved platform key.
	ErrNoPlatformArtifact = errors.New("no artifact for platform")
)

// Validate checks the manifest against the release schema. Any violation
// fails the whole manifest.
func (m *Manifest) Validate() error {
	if m.Version == "" {
		return fmt.Errorf("version is empty: %w", ErrInvalidManifest)
	}

	if m.ReleaseDate == "" {
		return fmt.Errorf("release date is empty: %w", ErrInvalidManifest)
	}

	if m.MinRuntimeVersion == "" {
		return fmt.Errorf("minimum runtime version is empty: %w", ErrInvalidManifest)
	}

	if len(m.Platforms) == 0 {
		return fmt.Errorf("platform map is empty: %w", ErrInvalidManifest)
	}

	for key, artifact := range m.Platforms {
		if err := artifact.validate(); err != nil {
			return fmt.Errorf("platform %s: %w", key, err)
		}
	}

	return nil
}

// ArtifactFor returns the artifact for the provided platform key.
func (m *Manifest) ArtifactFor(key string) (Artifact, error) {
	artifact, ok := m.Platforms[key]
	if !ok {
		return Artifact{}, fmt.Errorf("%s: %w", key, ErrNoPlatformArtifact)
	}

	return artifact, nil
}

// SupportsRuntime reports whether the currently installed version meets
// the release's minimum runtime requirement.
func (m *Manifest) SupportsRuntime(current string) bool {
	if current == "" {
		return true
	}

	return version.Compare(current, m.MinRuntimeVersion) >= 0
}

// validate checks a single artifact entry.
func (a Artifact) validate() error {
	parsed, err := url.ParseRequestURI(a.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("malformed artifact URL %q: %w", a.URL, ErrInvalidManifest)
	}

	if !isSha256Hex(a.Sha256) {
		return fmt.Errorf("malformed sha256 %q: %w", a.Sha256, ErrInvalidManifest)
	}

	if a.Size <= 0 {
		return fmt.Errorf("non-positive size %d: %w", a.Size, ErrInvalidManifest)
	}

	return nil
}

// isSha256Hex reports whether s is exactly 64 hexadecimal characters.
func isSha256Hex(s string) bool {
	if len(s) != sha256HexLength {
		return false
	}

	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}

	return true
}
