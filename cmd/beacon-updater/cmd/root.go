package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/beacon-cli/beacon-updater/internal/config"
	domain "github.com/beacon-cli/beacon-updater/internal/domain/update"
	"github.com/beacon-cli/beacon-updater/internal/host"
	"github.com/beacon-cli/beacon-updater/internal/logger"
	"github.com/beacon-cli/beacon-updater/internal/service/updater"
	"github.com/beacon-cli/beacon-updater/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// logLevel is the minimum level for log output.
	logLevel string

	// backgroundMode marks the detached check-only invocation.
	backgroundMode bool

	// forceApply lets cleanup after apply remove protected versions.
	forceApply bool

	// forceCleanup lets cleanup remove protected versions.
	forceCleanup bool

	// keepVersions overrides how many installed versions cleanup retains.
	keepVersions int

	// rootCmd represents the base command managing beacon updates.
	rootCmd = &cobra.Command{
		Use:   "beacon-updater",
		Short: "Check, download and apply beacon updates",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			return nil
		},
	}

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Check the release manifest for a newer version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, service, err := newService()
			if err != nil {
				return err
			}

			outcome := service.Check(ctx)

			// The detached invocation reports through the state file only.
			if backgroundMode {
				return nil
			}

			switch outcome.Result {
			case domain.CheckUpdateAvailable:
				cmd.Printf("%s %s -> %s\n",
					color.YellowString("Update available:"),
					outcome.CurrentVersion, outcome.AvailableVersion)
			case domain.CheckUpToDate:
				cmd.Printf("%s (%s)\n",
					color.GreenString("Already up to date"), outcome.CurrentVersion)
			case domain.CheckError:
				cmd.Printf("%s %v\n", color.RedString("Check failed:"), outcome.Err)
				return outcome.Err
			}

			return nil
		},
	}

	downloadCmd = &cobra.Command{
		Use:   "download [version]",
		Short: "Download and verify a release artifact",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, service, err := newService()
			if err != nil {
				return err
			}

			ver := ""
			if len(args) > 0 {
				ver = args[0]
			}

			// Without an explicit version, download what the last check saw.
			if ver == "" {
				ver = service.CurrentState(ctx).AvailableVersion
				if ver == "" {
					return errors.New("no version requested and no update known; run check first")
				}
			}

			onProgress := func(percent int) {
				cmd.Printf("\rDownloading %s... %d%%", ver, percent)
			}

			if err = service.Download(ctx, ver, onProgress); err != nil {
				cmd.Println()
				return err
			}

			cmd.Printf("\n%s %s\n", color.GreenString("Downloaded and verified"), ver)

			return nil
		},
	}

	applyCmd = &cobra.Command{
		Use:   "apply",
		Short: "Install and activate the downloaded update",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, service, err := newService()
			if err != nil {
				return err
			}

			applied, err := service.Apply(ctx, updater.ApplyOptions{Force: forceApply})
			if err != nil {
				return err
			}

			if !applied {
				cmd.Println("No verified pending update to apply.")
				return nil
			}

			active, err := service.ActiveVersion()
			if err != nil {
				return err
			}

			cmd.Printf("%s %s\n", color.GreenString("Now active:"), active)

			return nil
		},
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the updater state and active version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, service, err := newService()
			if err != nil {
				return err
			}

			printStatus(ctx, cmd, service)

			// An overdue check is kicked off in the background so status
			// itself stays instant.
			state := service.CurrentState(ctx)
			if !state.Disabled && checkOverdue(state) {
				service.TriggerBackgroundCheck(ctx)
			}

			return nil
		},
	}

	rollbackCmd = &cobra.Command{
		Use:   "rollback <version>",
		Short: "Reactivate a previously installed version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, service, err := newService()
			if err != nil {
				return err
			}

			if err = service.Rollback(ctx, args[0]); err != nil {
				return err
			}

			cmd.Printf("%s %s\n", color.GreenString("Rolled back to"), args[0])

			return nil
		},
	}

	cleanupCmd = &cobra.Command{
		Use:   "cleanup",
		Short: "Remove old installed versions and stale locks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, service, err := newService()
			if err != nil {
				return err
			}

			service.Cleanup(ctx, keepVersions, forceCleanup)
			cmd.Println("Cleanup finished.")

			return nil
		},
	}
)

// Execute runs the beacon-updater CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newService resolves the effective configuration and wires the update
// pipeline with graceful shutdown handling.
func newService() (context.Context, *updater.Service, error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	cobra.OnFinalize(stop)

	env := host.NewOSEnv()

	cfg, err := config.Resolve(env, configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve configuration: %w", err)
	}

	return ctx, updater.NewService(cfg, env), nil
}

// printStatus renders the persisted state and the activation symlink.
func printStatus(ctx context.Context, cmd *cobra.Command, service *updater.Service) {
	state := service.CurrentState(ctx)

	active, err := service.ActiveVersion()
	if err != nil || active == "" {
		active = state.CurrentVersion
	}

	cmd.Printf("Active version:    %s\n", color.CyanString(active))
	cmd.Printf("Last check:        %s\n", formatCheckTime(state.LastCheckTime))
	cmd.Printf("Last result:       %s\n", formatResult(state.LastCheckResult))

	if state.AvailableVersion != "" {
		cmd.Printf("Available version: %s\n", color.YellowString(state.AvailableVersion))
	}

	if pending := state.PendingUpdate; pending != nil {
		cmd.Printf("Pending update:    %s (verified: %t)\n", pending.Version, pending.Verified)
	}

	if state.Disabled {
		cmd.Printf("Automatic checks:  %s\n", color.RedString("disabled"))
	}

	if held, err := service.Locks().LockedVersions(ctx); err == nil && len(held) > 0 {
		for ver, pids := range held {
			cmd.Printf("Locked version:    %s by pids %v\n", ver, pids)
		}
	}
}

// formatCheckTime renders the Unix-millisecond check timestamp.
func formatCheckTime(ms int64) string {
	if ms == 0 {
		return "never"
	}

	return time.UnixMilli(ms).Local().Format(time.RFC1123)
}

// formatResult colors the last check outcome.
func formatResult(result domain.CheckResult) string {
	switch result {
	case domain.CheckUpdateAvailable:
		return color.YellowString(string(result))
	case domain.CheckError:
		return color.RedString(string(result))
	default:
		return color.GreenString(string(result))
	}
}

// checkOverdue reports whether the configured interval elapsed since the
// last check.
func checkOverdue(state *domain.State) bool {
	if state.LastCheckTime == 0 {
		return true
	}

	interval := state.CheckIntervalMs
	if interval <= 0 {
		interval = config.DefaultCheckIntervalMs
	}

	return time.Since(time.UnixMilli(state.LastCheckTime)) > time.Duration(interval)*time.Millisecond
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")

	checkCmd.Flags().BoolVar(&backgroundMode, "background", false, "run quietly as a detached background check")

	applyCmd.Flags().BoolVar(&forceApply, "force", false, "let cleanup remove active or locked versions")

	cleanupCmd.Flags().IntVar(&keepVersions, "keep", 0, "how many versions to retain (defaults to configuration)")
	cleanupCmd.Flags().BoolVar(&forceCleanup, "force", false, "remove versions even when active or locked")

	rootCmd.AddCommand(checkCmd, downloadCmd, applyCmd, statusCmd, rollbackCmd, cleanupCmd)
}
