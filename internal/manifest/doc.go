// Package manifest models the release manifest served by the update
// endpoint and implements its fetching, schema validation and local
// caching.
package manifest
