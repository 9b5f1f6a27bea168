// Package platform maps the host OS, architecture and Linux libc flavor
// to the platform key used to select a release artifact from the manifest.
package platform
