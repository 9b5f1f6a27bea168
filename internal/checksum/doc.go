// Package checksum computes and compares SHA-256 digests of downloaded
// artifacts.
package checksum
