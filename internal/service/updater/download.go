package updater

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/beacon-cli/beacon-updater/internal/checksum"
	domain "github.com/beacon-cli/beacon-updater/internal/domain/update"
	"github.com/beacon-cli/beacon-updater/internal/download"
	"github.com/beacon-cli/beacon-updater/internal/logger"
	"github.com/beacon-cli/beacon-updater/internal/manifest"
	"github.com/beacon-cli/beacon-updater/internal/platform"
)

var (
	// ErrVersionUnavailable is returned when neither the live nor the
	// cached manifest describes the requested version.
	ErrVersionUnavailable = errors.New("requested version not described by any manifest")

	// ErrChecksumMismatch is returned when the downloaded artifact does
	// not hash to the manifest's declared digest. A corrupt update must
	// never silently proceed.
	ErrChecksumMismatch = errors.New("artifact checksum mismatch")
)

// Download resolves this platform's artifact for the requested version,
// streams it and verifies its checksum. Only a verified artifact is
// recorded as the pending update; any failure leaves a prior pending
// update untouched. onProgress may be nil.
func (s *Service) Download(ctx context.Context, ver string, onProgress download.ProgressFunc) error {
	ctx = logger.WithName(ctx, "download")

	defer s.enterPhase(PhaseDownloading)()

	m, err := s.resolveManifestFor(ctx, ver)
	if err != nil {
		return err
	}

	key, err := platform.Resolve()
	if err != nil {
		return err
	}

	artifact, err := m.ArtifactFor(key)
	if err != nil {
		return err
	}

	path, err := s.downloader.Download(ctx, artifact, s.paths.DownloadsDir(), onProgress)
	if err != nil {
		return err
	}

	s.phase = PhaseVerifying

	result, err := checksum.VerifyFile(path, artifact.Sha256)
	if err != nil {
		return err
	}

	if !result.Valid {
		// The artifact is useless; the pending update stays as it was.
		_ = os.Remove(path)

		return fmt.Errorf("expected %s, got %s: %w", artifact.Sha256, result.Actual, ErrChecksumMismatch)
	}

	state := s.states.LoadOrDefault(ctx)
	state.PendingUpdate = &domain.PendingUpdate{
		Version:  ver,
		Path:     path,
		Verified: true,
	}
	s.persist(ctx, state)

	logger.InfoKV(ctx, "Update downloaded and verified", "version", ver, "path", path)

	return nil
}

// resolveManifestFor returns a manifest describing the requested version,
// tolerating manifest drift between check and download by falling back to
// the cached manifest. When the cache disagrees too, the download fails
// rather than accepting an arbitrary stale release.
func (s *Service) resolveManifestFor(ctx context.Context, ver string) (*manifest.Manifest, error) {
	live, err := s.manifests.Fetch(ctx, s.cfg.ManifestURL)
	if err == nil && live.Version == ver {
		return live, nil
	}

	if cached := s.manifests.Cached(); cached != nil && cached.Version == ver {
		logger.InfoKV(ctx, "Live manifest drifted, using cached manifest", "version", ver)
		return cached, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrVersionUnavailable, ver, err)
	}

	return nil, fmt.Errorf("%w: requested %s, latest is %s", ErrVersionUnavailable, ver, live.Version)
}
