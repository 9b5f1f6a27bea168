package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/beacon-cli/beacon-updater/internal/logger"
	"github.com/beacon-cli/beacon-updater/internal/service/packager"
	"github.com/beacon-cli/beacon-updater/internal/version"
)

var (
	// artifactDir holds the built release tarballs.
	artifactDir string

	// minRuntimeVersion is the oldest installed version the release supports.
	minRuntimeVersion string

	// outputPath is where the manifest is written.
	outputPath string

	// logLevel is the minimum level for log output.
	logLevel string

	// rootCmd represents the base command for preparing release metadata.
	rootCmd = &cobra.Command{
		Use:   "beacon-packager <version> <base-url>",
		Short: "Build the release manifest from platform tarballs",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			options := &packager.Options{
				ArtifactDir:       artifactDir,
				Version:           args[0],
				BaseURL:           args[1],
				MinRuntimeVersion: minRuntimeVersion,
				OutputPath:        outputPath,
			}

			return packager.Run(ctx, options)
		},
	}
)

// Execute runs the beacon-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&artifactDir, "artifacts", "a", ".", "directory holding the platform tarballs")
	rootCmd.Flags().StringVar(&minRuntimeVersion, "min-runtime", "", "oldest installed version able to apply this release")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "manifest output path (defaults to manifest.json in the artifact directory)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")
}
