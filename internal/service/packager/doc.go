// Package packager prepares the release manifest consumed by the updater.
//
// It scans a directory of platform-specific tarballs, computes their
// checksums and sizes, and writes the manifest.json served to clients
// from the release endpoint.
package packager
