package updater

import (
	"context"
	"os"

	domain "github.com/beacon-cli/beacon-updater/internal/domain/update"
	"github.com/beacon-cli/beacon-updater/internal/logger"
)

// ApplyOptions tunes a single apply operation.
type ApplyOptions struct {
	// Force lets cleanup remove versions that are active or locked.
	Force bool
}

// Apply installs and activates the pending update. Having nothing to
// apply is routine: without a verified pending update Apply returns
// false and touches no files. A failure before the symlink swap leaves
// the previous version active.
func (s *Service) Apply(ctx context.Context, opts ApplyOptions) (bool, error) {
	ctx = logger.WithName(ctx, "apply")

	state := s.states.LoadOrDefault(ctx)

	pending := state.PendingUpdate
	if pending == nil || !pending.Verified {
		logger.Info(ctx, "No verified pending update to apply")
		return false, nil
	}

	defer s.enterPhase(PhaseApplying)()

	previous := state.CurrentVersion

	if err := s.installer.InstallVersion(ctx, pending.Path, pending.Version); err != nil {
		return false, err
	}

	if err := s.installer.ActivateVersion(ctx, pending.Version); err != nil {
		return false, err
	}

	// The companion updater refresh is a convenience; its failure must
	// not fail an otherwise completed activation.
	if err := s.installer.RefreshCompanion(ctx, pending.Version); err != nil {
		logger.WarnKV(ctx, "Unable to refresh companion updater", "error", err)
	}

	s.installer.CleanupOldVersions(ctx, s.cfg.KeepVersions, opts.Force)

	// The artifact has been extracted; the tarball is no longer needed.
	if err := os.Remove(pending.Path); err != nil && !os.IsNotExist(err) {
		logger.DebugKV(ctx, "Unable to remove downloaded artifact", "path", pending.Path, "error", err)
	}

	state.CurrentVersion = pending.Version
	state.PendingUpdate = nil
	state.AvailableVersion = ""
	state.LastCheckResult = domain.CheckUpToDate
	s.persist(ctx, state)

	logger.InfoKV(ctx, "Update applied", "previous", previous, "current", pending.Version)

	return true, nil
}

// Rollback reactivates a previously installed version and records it as
// current. Rollback is only possible while cleanup has preserved the
// target version.
func (s *Service) Rollback(ctx context.Context, ver string) error {
	ctx = logger.WithName(ctx, "rollback")

	if err := s.installer.RollbackVersion(ctx, ver); err != nil {
		return err
	}

	state := s.states.LoadOrDefault(ctx)
	state.CurrentVersion = ver
	s.persist(ctx, state)

	return nil
}

// Cleanup prunes old installed versions, honoring active and locked
// protections unless force is set.
func (s *Service) Cleanup(ctx context.Context, keepCount int, force bool) {
	ctx = logger.WithName(ctx, "cleanup")

	if keepCount <= 0 {
		keepCount = s.cfg.KeepVersions
	}

	s.installer.CleanupOldVersions(ctx, keepCount, force)
	s.locks.CleanStaleLocks(ctx)
}
