package updater

import (
	"context"
	"time"

	domain "github.com/beacon-cli/beacon-updater/internal/domain/update"
	"github.com/beacon-cli/beacon-updater/internal/logger"
	"github.com/beacon-cli/beacon-updater/internal/version"
)

// CheckOutcome is the discriminated result of a check. A failed check is
// reported through Result/Err instead of propagating, and the state file
// records the failure.
type CheckOutcome struct {
	// Result discriminates the outcome.
	Result domain.CheckResult
	// CurrentVersion is the version the state believes is installed.
	CurrentVersion string
	// AvailableVersion is the newer release, when Result is update-available.
	AvailableVersion string
	// Err carries the failure when Result is error.
	Err error
}

// Check fetches the manifest, compares its version against the installed
// one and persists the outcome. State is persisted on every call,
// including failures.
func (s *Service) Check(ctx context.Context) *CheckOutcome {
	ctx = logger.WithName(ctx, "check")

	defer s.enterPhase(PhaseChecking)()

	state := s.states.LoadOrDefault(ctx)
	state.LastCheckTime = time.Now().UnixMilli()

	outcome := &CheckOutcome{CurrentVersion: state.CurrentVersion}

	m, err := s.manifests.Fetch(ctx, s.cfg.ManifestURL)
	if err != nil {
		state.LastCheckResult = domain.CheckError
		s.persist(ctx, state)

		outcome.Result = domain.CheckError
		outcome.Err = err

		logger.WarnKV(ctx, "Update check failed", "error", err)

		return outcome
	}

	if version.IsNewer(m.Version, state.CurrentVersion) {
		state.LastCheckResult = domain.CheckUpdateAvailable
		state.AvailableVersion = m.Version

		outcome.Result = domain.CheckUpdateAvailable
		outcome.AvailableVersion = m.Version

		if !m.SupportsRuntime(state.CurrentVersion) {
			logger.WarnKV(ctx, "Installed version is below the release's minimum runtime",
				"installed", state.CurrentVersion, "minimum", m.MinRuntimeVersion)
		}

		logger.InfoKV(ctx, "Update available",
			"current", state.CurrentVersion, "available", m.Version)
	} else {
		state.LastCheckResult = domain.CheckUpToDate
		state.AvailableVersion = ""

		outcome.Result = domain.CheckUpToDate

		logger.InfoKV(ctx, "Already up to date", "version", state.CurrentVersion)
	}

	s.persist(ctx, state)

	return outcome
}

// persist saves the state, degrading failures to a log line. State is
// advisory bookkeeping; losing a write must never fail an operation.
func (s *Service) persist(ctx context.Context, state *domain.State) {
	if err := s.states.Save(ctx, state); err != nil {
		logger.WarnKV(ctx, "Unable to persist update state", "error", err)
	}
}
