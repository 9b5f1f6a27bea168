// Package state implements persistence for the update State.
//
// The FileRepository stores and loads the state as JSON on disk,
// tolerating corruption via defaults, and exposes a Repository interface
// that the updater service depends on.
package state
