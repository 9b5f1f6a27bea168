// Package download streams release artifacts to temp files with bounded
// timeouts and monotonic progress callbacks. Artifacts are buffered in
// full before the single write, so a partially transferred file is never
// left on disk.
package download
