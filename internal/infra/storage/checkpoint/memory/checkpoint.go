// Package memory provides a thread-safe in-memory checkpoint store for
// testing and development.
package memory

import (
	"context"
	"sync"

	"github.com/AlaskanTuna/fusion-solar-collector/internal/domain/plant"
)

var _ plant.CheckpointStore = (*Store)(nil)

// Store holds the checkpoint in memory.
type Store struct {
	mu         sync.Mutex
	checkpoint *plant.Checkpoint
}

// NewStore creates an empty in-memory checkpoint store.
func NewStore() *Store { return &Store{} }

func (s *Store) Load(context.Context) (*plant.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checkpoint == nil {
		return nil, nil
	}
	cp := *s.checkpoint
	return &cp, nil
}

func (s *Store) Save(_ context.Context, plantCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkpoint = plant.NewCheckpoint(plantCode)
	return nil
}

func (s *Store) Delete(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkpoint = nil
	return nil
}
