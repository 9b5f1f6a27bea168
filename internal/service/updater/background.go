package updater

import (
	"context"
	"os"

	"github.com/beacon-cli/beacon-updater/internal/logger"
)

// BackgroundCheckArg is the flag the spawned process runs with so the
// detached invocation performs a check and exits quietly.
const BackgroundCheckArg = "--background"

// TriggerBackgroundCheck re-invokes this executable in check-only mode
// as a detached process, so a foreground command never blocks on network
// latency. The spawn is fire-and-forget: failures are logged, never
// surfaced, and the child's result is not collected.
func (s *Service) TriggerBackgroundCheck(ctx context.Context) {
	ctx = logger.WithName(ctx, "background-check")

	if s.cfg.Disabled || s.states.LoadOrDefault(ctx).Disabled {
		logger.Debug(ctx, "Automatic update checks are disabled")
		return
	}

	executable, err := os.Executable()
	if err != nil {
		logger.WarnKV(ctx, "Unable to resolve own executable", "error", err)
		return
	}

	if err = s.env.StartDetached(executable, "check", BackgroundCheckArg); err != nil {
		logger.WarnKV(ctx, "Unable to spawn background check", "error", err)
		return
	}

	logger.Debug(ctx, "Background check spawned")
}
