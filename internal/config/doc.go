// Package config defines updater settings and the on-disk layout derived
// from the state root, and provides helpers to load, validate and save
// them in YAML format with environment overrides layered on top.
package config
