package update

// CheckResult is the discriminated outcome of an update check.
type CheckResult string

const (
	// CheckUpToDate means the installed version matches the latest release.
	CheckUpToDate CheckResult = "up-to-date"
	// CheckUpdateAvailable means a newer release exists.
	CheckUpdateAvailable CheckResult = "update-available"
	// CheckError means the last check failed.
	CheckError CheckResult = "error"
)

// PendingUpdate records a downloaded artifact awaiting activation.
type PendingUpdate struct {
	// Version is the release the artifact belongs to.
	Version string `json:"version"`
	// Path is the local artifact location.
	Path string `json:"path"`
	// Verified is true only after the checksum matched.
	Verified bool `json:"verified"`
}

// Clone returns a copy of the pending update, handling nil safely.
func (p *PendingUpdate) Clone() *PendingUpdate {
	if p == nil {
		return nil
	}

	cloned := *p

	return &cloned
}

// State is the persisted update-state document. It is advisory
// bookkeeping; the activation symlink remains the source of truth for
// which version is active.
type State struct {
	// CurrentVersion is the version this state believes is installed.
	CurrentVersion string `json:"currentVersion"`
	// LastCheckTime is the Unix-millisecond timestamp of the last check.
	LastCheckTime int64 `json:"lastCheckTime"`
	// LastCheckResult is the outcome of the last check.
	LastCheckResult CheckResult `json:"lastCheckResult"`
	// AvailableVersion is the newer release seen by the last check, if any.
	AvailableVersion string `json:"availableVersion,omitempty"`
	// PendingUpdate is the downloaded-and-verified release awaiting apply.
	PendingUpdate *PendingUpdate `json:"pendingUpdate,omitempty"`
	// CheckIntervalMs is how often background checks should run.
	CheckIntervalMs int64 `json:"checkIntervalMs"`
	// Disabled turns automatic checks off.
	Disabled bool `json:"disabled"`
}

// Clone returns a copy of the state to avoid leaking internal references.
func (s *State) Clone() *State {
	cloned := *s
	cloned.PendingUpdate = s.PendingUpdate.Clone()

	return &cloned
}

// Default returns a fresh state for the provided installed version.
func Default(currentVersion string, checkIntervalMs int64, disabled bool) *State {
	return &State{
		CurrentVersion:  currentVersion,
		LastCheckTime:   0,
		LastCheckResult: CheckUpToDate,
		CheckIntervalMs: checkIntervalMs,
		Disabled:        disabled,
	}
}
