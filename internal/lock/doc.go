// Package lock implements advisory per-process version locks. Every
// running instance writes a lock file named by its own pid; cleanup asks
// the manager whether a live process still depends on a version before
// deleting it. Stale locks are removed opportunistically during scans,
// self-healing the lock directory without a central registry.
package lock
