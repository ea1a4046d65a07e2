// Package storage persists the PortfolioState as a single JSON document.
package storage

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rxtech-lab/twstock-scanner/internal/logger"
	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/internal/version"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
	"github.com/rxtech-lab/twstock-scanner/pkg/utils"
	"go.uber.org/zap"
)

// DefaultStateFile is the state file name used when none is configured.
const DefaultStateFile = "portfolio_state.json"

// LoadResult is a loaded state plus how it was obtained.
type LoadResult struct {
	State *types.PortfolioState
	// Fresh is set when no state file existed.
	Fresh bool
	// Recovered is set when the file was unreadable and a fresh state replaced it.
	Recovered bool
	// BackupPath is where the unreadable file was moved.
	BackupPath string
	// MigratedFrom names the legacy dialect the state was converted from.
	MigratedFrom Dialect
	Warnings     []string
}

// Store loads and saves the portfolio state.
type Store interface {
	Load() (*LoadResult, error)
	Save(state *types.PortfolioState) error
}

// FileStore keeps the state in one JSON file and replaces it atomically.
type FileStore struct {
	path           string
	initialCapital float64
	sizing         Sizing
	logger         *logger.Logger
	now            func() time.Time
}

type FileStoreOption func(*FileStore)

// WithSizing sets the risk limits and costs used to size legacy positions
// that were stored without a share count.
func WithSizing(sizing Sizing) FileStoreOption {
	return func(s *FileStore) {
		s.sizing = sizing
	}
}

func NewFileStore(path string, initialCapital float64, log *logger.Logger, opts ...FileStoreOption) *FileStore {
	s := &FileStore{
		path:           path,
		initialCapital: initialCapital,
		sizing:         DefaultSizing(),
		logger:         log,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *FileStore) Path() string {
	return s.path
}

// Load reads the state file. A missing file gives a fresh state. A file that
// cannot be decoded is moved aside and replaced by a fresh state, and the
// result is marked Recovered. Read failures and states written by a newer
// schema are returned as errors so nothing is overwritten.
func (s *FileStore) Load() (*LoadResult, error) {
	data, err := os.ReadFile(s.path)
	if stderrors.Is(err, fs.ErrNotExist) {
		s.logger.Info("State file missing, starting a fresh portfolio", zap.String("path", s.path))

		return &LoadResult{State: s.fresh(), Fresh: true}, nil
	}

	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStateReadFailed, err, "failed to read state file %s", s.path)
	}

	state, dialect, warnings, err := Decode(data, s.initialCapital, s.now(), s.sizing)
	if err == nil {
		for _, warning := range warnings {
			s.logger.Warn(warning, zap.String("path", s.path))
		}

		if dialect != DialectCurrent {
			s.logger.Info("Migrated legacy state", zap.String("dialect", string(dialect)), zap.Int("positions", len(state.Positions)))
		}

		return &LoadResult{State: state, MigratedFrom: dialect, Warnings: warnings}, nil
	}

	if errors.HasCode(err, errors.ErrCodeStateMigrationFailed) {
		return nil, err
	}

	backup := fmt.Sprintf("%s.corrupt-%s", s.path, s.now().Format("20060102T150405"))
	if renameErr := os.Rename(s.path, backup); renameErr != nil {
		return nil, errors.Wrapf(errors.ErrCodeStateWriteFailed, renameErr, "failed to back up corrupt state file %s", s.path)
	}

	s.logger.Error("STATE FILE CORRUPT: open positions may have been lost, starting a fresh portfolio",
		zap.String("path", s.path),
		zap.String("backup", backup),
		zap.Error(err),
	)

	return &LoadResult{
		State:      s.fresh(),
		Recovered:  true,
		BackupPath: backup,
		Warnings:   []string{fmt.Sprintf("state file was corrupt and moved to %s", backup)},
	}, nil
}

// Read decodes the state file without any recovery side effects. A missing
// file reads as a fresh state.
func (s *FileStore) Read() (*types.PortfolioState, error) {
	data, err := os.ReadFile(s.path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return s.fresh(), nil
	}

	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStateReadFailed, err, "failed to read state file %s", s.path)
	}

	state, _, _, err := Decode(data, s.initialCapital, s.now(), s.sizing)
	if err != nil {
		return nil, err
	}

	return state, nil
}

// Save writes state to a temporary file, syncs it and renames it over the
// state file.
func (s *FileStore) Save(state *types.PortfolioState) error {
	state.SchemaVersion = types.StateSchemaVersion

	b, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStateWriteFailed, "failed to marshal state", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(errors.ErrCodeStateWriteFailed, err, "failed to create state directory %s", dir)
		}
	}

	if err := utils.WriteFileAtomic(s.path, b); err != nil {
		return errors.Wrapf(errors.ErrCodeStateWriteFailed, err, "failed to save state to %s", s.path)
	}

	s.logger.Debug("Saved state", zap.String("path", s.path), zap.Int("positions", len(state.Positions)))

	return nil
}

func (s *FileStore) fresh() *types.PortfolioState {
	return types.NewPortfolioState(s.initialCapital, s.now())
}

// checkSchema rejects states written by an incompatible scanner.
func checkSchema(stored string) error {
	if err := version.CheckSchemaCompatibility(types.StateSchemaVersion, stored); err != nil {
		return errors.Wrap(errors.ErrCodeStateMigrationFailed, "state schema is not readable by this scanner", err)
	}

	return nil
}
