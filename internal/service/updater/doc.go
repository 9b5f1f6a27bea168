// Package updater orchestrates the self-update pipeline: manifest
// checks, artifact download and verification, installation, atomic
// activation, cleanup and rollback, together with the persisted state
// lifecycle. Operations are idempotent and never retry by themselves;
// callers decide whether to re-invoke.
package updater
