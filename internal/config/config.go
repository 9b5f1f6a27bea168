package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/beacon-cli/beacon-updater/internal/host"
)

// Config holds updater settings shared by the beacon binaries.
type Config struct {
	// ManifestURL is the HTTP endpoint serving the release manifest.
	ManifestURL string `yaml:"manifest_url"`
	// StateRoot is the directory holding the manifest cache, state file,
	// downloads and installed versions.
	StateRoot string `yaml:"state_root"`
	// CheckIntervalMs is how often background checks should run.
	CheckIntervalMs int64 `yaml:"check_interval_ms"`
	// KeepVersions is how many installed versions cleanup retains.
	KeepVersions int `yaml:"keep_versions"`
	// Disabled turns automatic update checks off.
	Disabled bool `yaml:"disabled"`
}

const (
	// DefaultConfigFilename is the default filename for updater settings.
	DefaultConfigFilename = "beacon-updater-settings.yaml"

	// DefaultManifestURL is the release manifest endpoint used when no
	// override is configured.
	DefaultManifestURL = "https://downloads.beacon-cli.dev/releases/manifest.json"

	// DefaultCheckIntervalMs is the default period between background checks.
	DefaultCheckIntervalMs int64 = 30 * 60 * 1000

	// DefaultKeepVersions is how many installed versions cleanup retains
	// by default. Three keeps enough history for rollback.
	DefaultKeepVersions = 3

	// DefaultFilePermissions is the default permission for settings and state files.
	DefaultFilePermissions = 0o600

	// DefaultDirPermissions is the default permission for created directories.
	DefaultDirPermissions = 0o755

	// EnvManifestURL overrides the manifest endpoint.
	EnvManifestURL = "BEACON_MANIFEST_URL"

	// EnvCheckIntervalMs overrides the background check interval.
	EnvCheckIntervalMs = "BEACON_UPDATE_CHECK_INTERVAL_MS"

	// EnvDisabled disables automatic update checks when set to a truthy value.
	EnvDisabled = "BEACON_UPDATE_DISABLED"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errStateRootRequired is returned when the state root is missing.
	errStateRootRequired = errors.New("state root must be provided")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting,
// filling defaults for optional ones.
func Validate(cfg *Config) error {
	if cfg.StateRoot == "" {
		return errStateRootRequired
	}

	if cfg.ManifestURL == "" {
		cfg.ManifestURL = DefaultManifestURL
	}

	if _, err := url.ParseRequestURI(cfg.ManifestURL); err != nil {
		return fmt.Errorf("invalid manifest URL: %w", err)
	}

	if cfg.CheckIntervalMs <= 0 {
		cfg.CheckIntervalMs = DefaultCheckIntervalMs
	}

	if cfg.KeepVersions <= 0 {
		cfg.KeepVersions = DefaultKeepVersions
	}

	return nil
}

// Resolve produces the effective configuration: the optional settings file
// first, then built-in defaults, then environment overrides on top.
// A missing settings file is routine and yields defaults.
func Resolve(env host.Env, path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}

		cfg = &Config{StateRoot: defaultStateRoot()}
		if err = Validate(cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(env, cfg)

	return cfg, nil
}

// applyEnvOverrides layers environment variables over the configuration.
func applyEnvOverrides(env host.Env, cfg *Config) {
	if v, ok := env.LookupEnv(EnvManifestURL); ok && v != "" {
		cfg.ManifestURL = v
	}

	if v, ok := env.LookupEnv(EnvCheckIntervalMs); ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
			cfg.CheckIntervalMs = ms
		}
	}

	if v, ok := env.LookupEnv(EnvDisabled); ok {
		cfg.Disabled = IsTruthy(v)
	}
}

// IsTruthy interprets an environment flag value.
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// defaultStateRoot places the state directory under the user's home,
// falling back to the working directory when the home is unknown.
func defaultStateRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".beacon"
	}

	return filepath.Join(home, ".beacon")
}
