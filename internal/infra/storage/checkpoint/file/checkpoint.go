// Package file persists the sweep checkpoint as a small JSON state file,
// enabling resumable collection across process restarts.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlaskanTuna/fusion-solar-collector/internal/domain/plant"
	"github.com/AlaskanTuna/fusion-solar-collector/pkg/common/logger"
)

var _ plant.CheckpointStore = (*Store)(nil)

// checkpointState is the on-disk shape of the checkpoint.
type checkpointState struct {
	LastProcessedPlantCode string `json:"last_processed_plant_code"`
}

// Store reads and writes the checkpoint file at a fixed path.
type Store struct {
	path   string
	logger *logger.Logger
}

// NewStore creates a checkpoint store backed by the file at path. The parent
// directory is created on demand at save time.
func NewStore(path string, log *logger.Logger) *Store {
	return &Store{path: path, logger: log}
}

// Load returns the stored checkpoint, or nil when the file is missing, empty,
// or malformed. A malformed file is logged and treated as absent; the sweep
// then restarts from the beginning, which is safe because persistence is
// idempotent.
func (s *Store) Load(ctx context.Context) (*plant.Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var state checkpointState
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn(ctx, "checkpoint file is malformed, starting from the beginning",
			"path", s.path, "error", err)
		return nil, nil
	}
	if state.LastProcessedPlantCode == "" {
		return nil, nil
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat checkpoint file: %w", err)
	}

	return &plant.Checkpoint{
		LastProcessedPlantCode: state.LastProcessedPlantCode,
		UpdatedAt:              info.ModTime(),
	}, nil
}

// Save records plantCode as the resume position. The write goes through a
// temp file and rename so a crash never leaves a torn checkpoint.
func (s *Store) Save(ctx context.Context, plantCode string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	data, err := json.Marshal(checkpointState{LastProcessedPlantCode: plantCode})
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}

// Delete removes the checkpoint file. It is not an error if the file does
// not exist.
func (s *Store) Delete(context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete checkpoint file: %w", err)
	}
	return nil
}
