package download

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/beacon-cli/beacon-updater/internal/config"
	"github.com/beacon-cli/beacon-updater/internal/logger"
	"github.com/beacon-cli/beacon-updater/internal/manifest"
)

const (
	// DefaultTimeout bounds a single artifact download.
	DefaultTimeout = 5 * time.Minute

	// readChunkSize is the buffer size for streaming the response body.
	readChunkSize = 32 * 1024

	// randomSuffixBytes is the entropy added to temp filenames.
	randomSuffixBytes = 4

	// maxPercent caps reported progress.
	maxPercent = 100
)

var (
	errBadHTTPStatus = fmt.Errorf("unexpected http status")
	errEmptyBody     = fmt.Errorf("empty response body")
)

// ProgressFunc receives an integer percentage between 0 and 100. It is
// invoked at most once per distinct value and values never decrease.
type ProgressFunc func(percent int)

// Downloader streams release artifacts to temp files.
type Downloader struct {
	// client issues artifact requests.
	client *http.Client
	// timeout bounds a single download.
	timeout time.Duration
}

// Option customizes a Downloader.
type Option func(*Downloader)

// WithHTTPClient overrides the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Downloader) {
		d.client = client
	}
}

// WithTimeout overrides the per-download timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Downloader) {
		d.timeout = timeout
	}
}

// NewDownloader creates a Downloader with the default long timeout.
func NewDownloader(opts ...Option) *Downloader {
	d := &Downloader{
		client:  http.DefaultClient,
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Download fetches the artifact into destDir under a collision-resistant
// temp filename and returns the file path. The body is buffered in full
// and written exactly once, so no partial file is ever observable
// between "nothing" and "complete". onProgress may be nil.
func (d *Downloader) Download(
	ctx context.Context,
	artifact manifest.Artifact,
	destDir string,
	onProgress ProgressFunc,
) (string, error) {
	if err := os.MkdirAll(destDir, config.DefaultDirPermissions); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artifact.URL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}

	response, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download artifact: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%s, %s: %w", artifact.URL, response.Status, errBadHTTPStatus)
	}

	// The response's declared length wins over the manifest's advertised size.
	totalSize := response.ContentLength
	if totalSize <= 0 {
		totalSize = artifact.Size
	}

	contents, err := readAllWithProgress(response.Body, totalSize, onProgress)
	if err != nil {
		return "", fmt.Errorf("read artifact body: %w", err)
	}

	if len(contents) == 0 {
		return "", fmt.Errorf("%s: %w", artifact.URL, errEmptyBody)
	}

	path := filepath.Join(destDir, tempFilename())
	if err = os.WriteFile(path, contents, config.DefaultFilePermissions); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}

	logger.DebugKV(ctx, "Artifact downloaded", "path", path, "bytes", len(contents))

	return path, nil
}

// readAllWithProgress buffers the body, emitting deduplicated monotonic
// percentage callbacks as bytes arrive.
func readAllWithProgress(body io.Reader, totalSize int64, onProgress ProgressFunc) ([]byte, error) {
	var (
		buffer       bytes.Buffer
		chunk        = make([]byte, readChunkSize)
		received     int64
		lastPercent  = -1
		emitProgress = func() {
			if onProgress == nil || totalSize <= 0 {
				return
			}

			percent := int(received * maxPercent / totalSize)
			if percent > maxPercent {
				percent = maxPercent
			}

			if percent > lastPercent {
				lastPercent = percent
				onProgress(percent)
			}
		}
	)

	for {
		n, err := body.Read(chunk)
		if n > 0 {
			received += int64(n)
			buffer.Write(chunk[:n])
			emitProgress()
		}

		if err == io.EOF {
			return buffer.Bytes(), nil
		}

		if err != nil {
			return nil, err
		}
	}
}

// tempFilename generates a collision-resistant artifact filename from the
// current timestamp and a random suffix.
func tempFilename() string {
	suffix := make([]byte, randomSuffixBytes)
	_, _ = rand.Read(suffix)

	return fmt.Sprintf("%s-%d-%s.tar.gz",
		config.ProductBinaryName,
		time.Now().UnixMilli(),
		hex.EncodeToString(suffix),
	)
}
