package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/beacon-cli/beacon-updater/internal/config"
	domain "github.com/beacon-cli/beacon-updater/internal/domain/update"
	"github.com/beacon-cli/beacon-updater/internal/host"
	"github.com/beacon-cli/beacon-updater/internal/logger"
)

// Repository defines persistence operations for the update state.
type Repository interface {
	LoadOrDefault(ctx context.Context) *domain.State
	Save(ctx context.Context, state *domain.State) error
}

// FileRepository persists the update state to a JSON file on disk.
// Loading never fails: a missing, corrupt or structurally invalid file
// yields a fresh default state, because the state is advisory bookkeeping
// rather than the activation source of truth.
type FileRepository struct {
	// path is the filesystem location of the JSON state file.
	path string
	// fallbackVersion seeds CurrentVersion in default states.
	fallbackVersion string
	// env supplies the interval and disabled environment overrides.
	env host.Env
	// mu protects concurrent access to the state file within this process.
	mu sync.Mutex
}

// NewFileRepository creates a repository reading/writing JSON at the provided path.
func NewFileRepository(path, fallbackVersion string, env host.Env) *FileRepository {
	return &FileRepository{
		path:            filepath.Clean(path),
		fallbackVersion: fallbackVersion,
		env:             env,
	}
}

// LoadOrDefault reads the state from disk, returning a fresh default
// state on missing file, parse failure or structural-guard failure.
func (r *FileRepository) LoadOrDefault(ctx context.Context) *domain.State {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.WarnKV(ctx, "Unable to read state file, using defaults", "path", r.path, "error", err)
		}

		return r.defaultState()
	}

	state, err := decode(contents)
	if err != nil {
		logger.WarnKV(ctx, "State file is invalid, using defaults", "path", r.path, "error", err)
		return r.defaultState()
	}

	return state
}

// Save writes the state to disk as JSON. Callers treat failures as
// non-fatal and log them; state persistence is best-effort.
func (r *FileRepository) Save(_ context.Context, state *domain.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(r.path), config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return nil
}

// defaultState builds a fresh state with interval and disabled resolved
// from environment overrides.
func (r *FileRepository) defaultState() *domain.State {
	intervalMs := config.DefaultCheckIntervalMs
	if v, ok := r.env.LookupEnv(config.EnvCheckIntervalMs); ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
			intervalMs = ms
		}
	}

	var disabled bool
	if v, ok := r.env.LookupEnv(config.EnvDisabled); ok {
		disabled = config.IsTruthy(v)
	}

	return domain.Default(r.fallbackVersion, intervalMs, disabled)
}

// decode parses the document and applies the structural guard: string
// currentVersion, numeric lastCheckTime and numeric checkIntervalMs.
func decode(contents []byte) (*domain.State, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(contents, &raw); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	var guard struct {
		CurrentVersion  string `json:"currentVersion"`
		LastCheckTime   *int64 `json:"lastCheckTime"`
		CheckIntervalMs *int64 `json:"checkIntervalMs"`
	}
	if err := json.Unmarshal(contents, &guard); err != nil {
		return nil, fmt.Errorf("state fails structural guard: %w", err)
	}

	if _, ok := raw["currentVersion"]; !ok || guard.LastCheckTime == nil || guard.CheckIntervalMs == nil {
		return nil, fmt.Errorf("state fails structural guard: %w", errMissingField)
	}

	var state domain.State
	if err := json.Unmarshal(contents, &state); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return &state, nil
}

// errMissingField marks documents lacking a guarded field.
var errMissingField = fmt.Errorf("required field missing")
