// Package install manages extracted version trees: archive extraction
// through the external tar utility, atomic activation via the
// symlink-farm pattern, pruning of old versions guarded by the lock
// manager, and rollback to a still-installed version.
package install
