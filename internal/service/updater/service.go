package updater

import (
	"context"

	"github.com/beacon-cli/beacon-updater/internal/config"
	domain "github.com/beacon-cli/beacon-updater/internal/domain/update"
	"github.com/beacon-cli/beacon-updater/internal/download"
	"github.com/beacon-cli/beacon-updater/internal/host"
	"github.com/beacon-cli/beacon-updater/internal/install"
	"github.com/beacon-cli/beacon-updater/internal/lock"
	"github.com/beacon-cli/beacon-updater/internal/manifest"
	staterepo "github.com/beacon-cli/beacon-updater/internal/repository/state"
	"github.com/beacon-cli/beacon-updater/internal/version"
)

// Phase is the orchestrator's position in the update pipeline. The state
// machine is explicit and caller-driven; a Service instance is not meant
// for concurrent use.
type Phase string

const (
	// PhaseIdle means no operation is in flight.
	PhaseIdle Phase = "idle"
	// PhaseChecking means a manifest check is running.
	PhaseChecking Phase = "checking"
	// PhaseDownloading means an artifact transfer is running.
	PhaseDownloading Phase = "downloading"
	// PhaseVerifying means a downloaded artifact is being checksummed.
	PhaseVerifying Phase = "verifying"
	// PhaseApplying means a pending update is being installed and activated.
	PhaseApplying Phase = "applying"
)

// Service composes the manifest store, state store, downloader, verifier,
// lock manager and installer into the check/download/apply operations.
// Each operation is idempotent and safe to retry; the service never
// retries by itself.
type Service struct {
	// cfg is the effective updater configuration.
	cfg *config.Config
	// paths is the on-disk layout under the state root.
	paths config.Paths
	// env is the host-environment capability.
	env host.Env
	// manifests fetches and caches the release manifest.
	manifests *manifest.Store
	// states persists the advisory update state.
	states staterepo.Repository
	// locks tracks which versions live processes depend on.
	locks *lock.Manager
	// installer extracts, activates and prunes versions.
	installer *install.Installer
	// downloader streams artifacts to the downloads directory.
	downloader *download.Downloader
	// phase is the current pipeline position.
	phase Phase
}

// NewService wires the update pipeline for the provided configuration.
func NewService(cfg *config.Config, env host.Env) *Service {
	paths := config.NewPaths(cfg.StateRoot)
	locks := lock.NewManager(paths.LocksDir(), env)
	installer := install.NewInstaller(paths, locks)

	// The active symlink, not the state file, is the authority on the
	// installed version; fall back to the build's own version before
	// anything was ever activated.
	fallbackVersion, err := installer.ActiveVersion()
	if err != nil || fallbackVersion == "" {
		fallbackVersion = version.Short()
	}

	return &Service{
		cfg:        cfg,
		paths:      paths,
		env:        env,
		manifests:  manifest.NewStore(paths.ManifestCache()),
		states:     staterepo.NewFileRepository(paths.StateFile(), fallbackVersion, env),
		locks:      locks,
		installer:  installer,
		downloader: download.NewDownloader(),
		phase:      PhaseIdle,
	}
}

// Phase returns the orchestrator's current pipeline position.
func (s *Service) Phase() Phase {
	return s.phase
}

// Locks exposes the lock manager so long-running product processes can
// pin the version they execute from.
func (s *Service) Locks() *lock.Manager {
	return s.locks
}

// CurrentState returns a copy of the persisted update state.
func (s *Service) CurrentState(ctx context.Context) *domain.State {
	return s.states.LoadOrDefault(ctx).Clone()
}

// ActiveVersion resolves the stable symlink to the active version.
func (s *Service) ActiveVersion() (string, error) {
	return s.installer.ActiveVersion()
}

// enterPhase records the pipeline position and returns a reset function.
func (s *Service) enterPhase(phase Phase) func() {
	s.phase = phase

	return func() {
		s.phase = PhaseIdle
	}
}
