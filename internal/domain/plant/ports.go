package plant

import "context"

// CheckpointStore persists the single resume marker for the sweep.
type CheckpointStore interface {
	// Load returns the stored checkpoint, or nil when none exists. A missing
	// or malformed checkpoint is not an error; the sweep restarts from the
	// beginning.
	Load(ctx context.Context) (*Checkpoint, error)

	// Save records plantCode as the last successfully persisted plant,
	// creating any needed storage location on demand.
	Save(ctx context.Context, plantCode string) error

	// Delete removes the checkpoint entirely. Deleting an absent checkpoint
	// is not an error.
	Delete(ctx context.Context) error
}

// RecordStore persists the latest control-mode record per plant.
type RecordStore interface {
	// Upsert writes one row keyed by plant code, overwriting all non-key
	// fields. A nil record persists a synthetic failure row so the plant is
	// still marked visited this sweep.
	Upsert(ctx context.Context, p Plant, rec *ControlModeRecord) error
}
