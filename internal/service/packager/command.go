package packager

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/beacon-cli/beacon-updater/internal/config"
	"github.com/beacon-cli/beacon-updater/internal/logger"
	"github.com/beacon-cli/beacon-updater/internal/manifest"
	"github.com/beacon-cli/beacon-updater/internal/platform"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// ArtifactDir is the directory holding the built release tarballs,
	// one per platform, named beacon-<platform>.tar.gz.
	ArtifactDir string
	// Version is the release version the manifest describes.
	Version string
	// BaseURL is the public URL prefix artifacts will be served from.
	BaseURL string
	// MinRuntimeVersion is the oldest installed version able to apply
	// this release (defaults to 0.0.0, meaning no minimum).
	MinRuntimeVersion string
	// OutputPath is where the manifest is written (defaults to
	// manifest.json inside the artifact directory).
	OutputPath string
}

var (
	// errVersionRequired indicates the release version was not provided.
	errVersionRequired = errors.New("release version must be provided")
	// errBaseURLRequired indicates the artifact base URL was not provided.
	errBaseURLRequired = errors.New("artifact base URL must be provided")
	// errNoArtifacts indicates the artifact directory holds no recognizable tarballs.
	errNoArtifacts = errors.New("no platform artifacts found")
)

// packager builds the release manifest from the artifacts on disk.
// It is unexported; callers use Run, which encapsulates validation.
type packager struct {
	// opts holds the validated packaging inputs.
	opts *Options
	// manifest accumulates the per-platform artifact entries.
	manifest *manifest.Manifest
}

// Run executes the packaging workflow: scan the artifact directory,
// checksum every platform tarball, and write the manifest.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "beacon-packager")

	if err := validate(opts); err != nil {
		return err
	}

	pkg := &packager{
		opts: opts,
		manifest: &manifest.Manifest{
			Version:           opts.Version,
			ReleaseDate:       time.Now().UTC().Format(time.DateOnly),
			MinRuntimeVersion: opts.MinRuntimeVersion,
			Platforms:         make(map[string]manifest.Artifact),
		},
	}

	if err := pkg.run(ctx); err != nil {
		return fmt.Errorf("packager failed: %w", err)
	}

	logger.Info(ctx, "Packager completed successfully")

	return nil
}

// validate checks the options and fills defaults for the optional ones.
func validate(opts *Options) error {
	if opts.Version == "" {
		return errVersionRequired
	}

	if opts.BaseURL == "" {
		return errBaseURLRequired
	}

	if _, err := url.ParseRequestURI(opts.BaseURL); err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	if opts.MinRuntimeVersion == "" {
		opts.MinRuntimeVersion = "0.0.0"
	}

	if opts.ArtifactDir == "" {
		opts.ArtifactDir = "."
	}

	if opts.OutputPath == "" {
		opts.OutputPath = filepath.Join(opts.ArtifactDir, "manifest.json")
	}

	return nil
}

// run fills and writes the manifest.
func (p *packager) run(ctx context.Context) error {
	logger.Info(ctx, "Preparing release manifest")

	if err := p.fillPlatforms(ctx); err != nil {
		return err
	}

	if err := p.manifest.Validate(); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Saving release manifest", "path", p.opts.OutputPath)

	if err := p.saveManifest(); err != nil {
		return err
	}

	p.printNextSteps(ctx)

	return nil
}

// fillPlatforms checksums every recognized platform tarball in the
// artifact directory. Unknown files are skipped; an empty result is an
// error because a manifest without platforms serves nobody.
func (p *packager) fillPlatforms(ctx context.Context) error {
	for _, key := range platform.Keys() {
		name := artifactFilename(key)
		path := filepath.Join(p.opts.ArtifactDir, name)

		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		} else if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		sha, err := fileSha256(path)
		if err != nil {
			return err
		}

		p.manifest.Platforms[key] = manifest.Artifact{
			URL:    strings.TrimRight(p.opts.BaseURL, "/") + "/" + name,
			Sha256: sha,
			Size:   info.Size(),
		}

		logger.InfoKV(ctx, "Packaged platform artifact",
			"platform", key, "size", info.Size(), "sha256", sha)
	}

	if len(p.manifest.Platforms) == 0 {
		return fmt.Errorf("%w in %s", errNoArtifacts, p.opts.ArtifactDir)
	}

	return nil
}

// saveManifest writes the manifest JSON next to the artifacts.
func (p *packager) saveManifest() error {
	contents, err := json.MarshalIndent(p.manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	if err = os.WriteFile(p.opts.OutputPath, contents, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// printNextSteps logs human-readable guidance for publishing the release.
func (p *packager) printNextSteps(ctx context.Context) {
	files := make([]string, 0, len(p.manifest.Platforms)+1)
	for key := range p.manifest.Platforms {
		files = append(files, artifactFilename(key))
	}

	files = append(files, filepath.Base(p.opts.OutputPath))
	sort.Strings(files)

	var builder strings.Builder

	builder.WriteString("You should upload the following files to ")
	builder.WriteString(p.opts.BaseURL)
	builder.WriteString(":\n")

	for i, name := range files {
		if i > 0 {
			builder.WriteString(",\n")
		}

		builder.WriteString(name)
	}

	builder.WriteString("\n\nClients pick up the release on their next check of ")
	builder.WriteString(strings.TrimRight(p.opts.BaseURL, "/"))
	builder.WriteString("/" + filepath.Base(p.opts.OutputPath))

	logger.Info(ctx, builder.String())
}

// artifactFilename is the canonical tarball name for a platform key.
func artifactFilename(key string) string {
	return config.ProductBinaryName + "-" + key + ".tar.gz"
}

// fileSha256 streams the file through SHA-256 and returns the hex digest.
func fileSha256(path string) (string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}

	// Best-effort cleanup.
	defer func() {
		_ = file.Close()
	}()

	hasher := sha256.New()
	if _, err = io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
