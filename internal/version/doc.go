// Package version exposes build metadata injected via ldflags and the
// numeric version comparison used to decide whether a release is newer
// than the currently installed one.
package version
