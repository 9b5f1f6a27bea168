// Package update holds the domain model of the update lifecycle: the
// persisted state document, the pending update record and check results.
package update
