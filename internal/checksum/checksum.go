package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Result is the outcome of a checksum verification. A mismatch is a
// normal reportable outcome, not an error.
type Result struct {
	// Valid is true when the computed digest matches the expected one.
	Valid bool
	// Actual is the hex-encoded digest that was computed.
	Actual string
}

// VerifyFile computes the SHA-256 digest of the file and compares it to
// the expected hex digest. I/O errors reading the file are returned as
// errors; a digest mismatch is reported through the result.
func VerifyFile(path, expectedHex string) (Result, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return Result{}, fmt.Errorf("open file for checksum: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := sha256.New()
	if _, err = io.Copy(hasher, file); err != nil {
		return Result{}, fmt.Errorf("hash file: %w", err)
	}

	actual := hex.EncodeToString(hasher.Sum(nil))

	return Result{
		Valid:  strings.EqualFold(actual, expectedHex),
		Actual: actual,
	}, nil
}
