// Package plant defines the domain model for the collection sweep: the plant
// catalog, the per-plant power-control record, and the resume checkpoint.
package plant

import (
	"encoding/json"
	"slices"
)

// Plant identifies one plant in the vendor catalog. The code is stable across
// sweeps and unique; the catalog order defines the resume position.
type Plant struct {
	Code string
	Name string
}

// ControlMode enumerates a plant's active power-control mode. The enumeration
// is open: unknown upstream values are carried through unchanged.
type ControlMode string

const (
	ControlModeNoLimit        ControlMode = "noLimit"
	ControlModeLimitedKW      ControlMode = "limitedPowerGridKW"
	ControlModeLimitedPercent ControlMode = "limitedPowerGridPercent"
	ControlModeZeroExport     ControlMode = "zeroExportLimitation"
)

// ControlModeRecord is the outcome of fetching one plant's power-control
// configuration. At most one of the three parameter blobs is populated,
// selected by Mode; all are empty when Success is false or the mode carries
// no parameters.
type ControlModeRecord struct {
	Success bool

	// PlantCode is the authoritative identifier: taken from the response when
	// present, falling back to the catalog code otherwise.
	PlantCode string

	Mode ControlMode

	LimitedKWParam      json.RawMessage
	LimitedPercentParam json.RawMessage
	ZeroExportParam     json.RawMessage
}

// ResumeSlice computes the portion of the catalog left to process after the
// plant identified by last, capped at limit when limit is positive. An empty
// last resumes from the beginning. stale reports that last was set but no
// longer appears in the catalog; the returned slice then restarts the sweep
// from the beginning.
func ResumeSlice(catalog []Plant, last string, limit int) (todo []Plant, stale bool) {
	start := 0
	if last != "" {
		idx := slices.IndexFunc(catalog, func(p Plant) bool { return p.Code == last })
		if idx < 0 {
			stale = true
		} else {
			start = idx + 1
		}
	}

	todo = catalog[start:]
	if limit > 0 && len(todo) > limit {
		todo = todo[:limit]
	}
	return todo, stale
}
