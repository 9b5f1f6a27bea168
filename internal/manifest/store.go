package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/beacon-cli/beacon-updater/internal/config"
	"github.com/beacon-cli/beacon-updater/internal/logger"
)

// DefaultFetchTimeout bounds a single manifest request.
const DefaultFetchTimeout = 15 * time.Second

// errBadHTTPStatus is returned on non-2xx manifest responses.
var errBadHTTPStatus = fmt.Errorf("unexpected http status")

// Store fetches, validates and caches the remote release manifest.
type Store struct {
	// client issues manifest requests.
	client *http.Client
	// cachePath is where a fetched manifest is cached, best-effort.
	cachePath string
	// timeout bounds a single fetch.
	timeout time.Duration
}

// Option customizes a Store.
type Option func(*Store)

// WithHTTPClient overrides the HTTP client used for fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) {
		s.client = client
	}
}

// WithFetchTimeout overrides the per-fetch timeout.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		s.timeout = timeout
	}
}

// NewStore creates a manifest store caching at the provided path.
func NewStore(cachePath string, opts ...Option) *Store {
	s := &Store{
		client:    http.DefaultClient,
		cachePath: filepath.Clean(cachePath),
		timeout:   DefaultFetchTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Fetch downloads the manifest from the provided URL, validates it
// against the release schema and caches it. The request is bounded by
// the store's timeout and cancellable through the context. Cache-write
// failure is logged, not raised.
func (s *Store) Fetch(ctx context.Context, url string) (*Manifest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build manifest request: %w", err)
	}

	response, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%s, %s: %w", url, response.Status, errBadHTTPStatus)
	}

	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read manifest body: %w", err)
	}

	manifest, err := decode(contents)
	if err != nil {
		return nil, err
	}

	s.writeCache(ctx, contents)

	return manifest, nil
}

// Cached reads and validates the cached manifest. It returns nil on any
// failure; absence of a valid cache is routine.
func (s *Store) Cached() *Manifest {
	contents, err := os.ReadFile(s.cachePath)
	if err != nil {
		return nil
	}

	manifest, err := decode(contents)
	if err != nil {
		return nil
	}

	return manifest
}

// writeCache persists the raw manifest body, best-effort.
func (s *Store) writeCache(ctx context.Context, contents []byte) {
	if err := os.MkdirAll(filepath.Dir(s.cachePath), config.DefaultDirPermissions); err != nil {
		logger.WarnKV(ctx, "Unable to create manifest cache directory", "error", err)
		return
	}

	if err := os.WriteFile(s.cachePath, contents, config.DefaultFilePermissions); err != nil {
		logger.WarnKV(ctx, "Unable to cache manifest", "path", s.cachePath, "error", err)
	}
}

// decode parses and validates a manifest document.
func decode(contents []byte) (*Manifest, error) {
	var manifest Manifest
	if err := json.Unmarshal(contents, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	return &manifest, nil
}
