package plant

import "time"

// Checkpoint marks the last plant whose record was durably persisted. It is
// the only state that survives a process restart and tracks position only,
// never per-plant success history.
type Checkpoint struct {
	LastProcessedPlantCode string
	UpdatedAt              time.Time
}

// NewCheckpoint creates a checkpoint for the given plant code.
func NewCheckpoint(plantCode string) *Checkpoint {
	return &Checkpoint{
		LastProcessedPlantCode: plantCode,
		UpdatedAt:              time.Now(),
	}
}
