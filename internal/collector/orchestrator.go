package collector

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AlaskanTuna/fusion-solar-collector/internal/domain/plant"
	"github.com/AlaskanTuna/fusion-solar-collector/pkg/common/logger"
)

// catalogFetcher retrieves the full ordered plant catalog once per sweep.
type catalogFetcher interface {
	Fetch(ctx context.Context) ([]plant.Plant, error)
}

// detailFetcher retrieves one plant's record; nil means no data this sweep.
type detailFetcher interface {
	Fetch(ctx context.Context, p plant.Plant) *plant.ControlModeRecord
}

// pacer blocks between upstream calls to respect vendor rate limits.
type pacer interface {
	Wait(ctx context.Context) error
}

// Orchestrator drives one sweep: resume position from the checkpoint, then a
// serial fetch-persist-advance loop over the remaining catalog. It exclusively
// owns checkpoint transitions; the design assumes a single running instance.
type Orchestrator struct {
	catalog     catalogFetcher
	details     detailFetcher
	checkpoints plant.CheckpointStore
	records     plant.RecordStore
	pacer       pacer

	// plantLimit caps the number of plants processed per invocation.
	// Zero means no cap.
	plantLimit int

	logger *logger.Logger
	tracer trace.Tracer
}

// NewOrchestrator wires the sweep components together.
func NewOrchestrator(
	catalog catalogFetcher,
	details detailFetcher,
	checkpoints plant.CheckpointStore,
	records plant.RecordStore,
	pacer pacer,
	plantLimit int,
	log *logger.Logger,
	tracer trace.Tracer,
) *Orchestrator {
	return &Orchestrator{
		catalog:     catalog,
		details:     details,
		checkpoints: checkpoints,
		records:     records,
		pacer:       pacer,
		plantLimit:  plantLimit,
		logger:      log,
		tracer:      tracer,
	}
}

// Run executes one sweep. It returns an error only for fatal conditions:
// catalog-fetch exhaustion, cancellation, or a failure to clear the
// checkpoint on a completed sweep. Per-plant failures are persisted as
// failure rows and never abort the sweep.
func (o *Orchestrator) Run(ctx context.Context) error {
	sweepID := uuid.New().String()
	ctx, span := o.tracer.Start(ctx, "collector.sweep",
		trace.WithAttributes(attribute.String("sweep_id", sweepID)))
	defer span.End()

	catalog, err := o.catalog.Fetch(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}

	last := o.loadResumePosition(ctx)

	todo, stale := plant.ResumeSlice(catalog, last, o.plantLimit)
	if stale {
		o.logger.Warn(ctx, "last processed plant not in catalog, restarting sweep",
			"last_processed", last)
	}

	if len(todo) == 0 {
		o.logger.Info(ctx, "all plants are up to date", "sweep_id", sweepID)
		if err := o.checkpoints.Delete(ctx); err != nil {
			span.RecordError(err)
			return fmt.Errorf("clearing checkpoint after completed sweep: %w", err)
		}
		return nil
	}

	o.logger.Info(ctx, "starting sweep",
		"sweep_id", sweepID,
		"plant_count", len(catalog),
		"plants_to_process", len(todo))

	finalCode := catalog[len(catalog)-1].Code
	sweepReachesEnd := todo[len(todo)-1].Code == finalCode

	var lastAdvanced string
	for i, p := range todo {
		// The pacing wait is the only early-termination point: once a
		// plant's fetch+persist has started it runs to completion.
		if err := o.pacer.Wait(ctx); err != nil {
			span.RecordError(err)
			return fmt.Errorf("sweep interrupted: %w", err)
		}

		o.logger.Info(ctx, "processing station",
			"position", i+1, "total", len(todo), "plant_code", p.Code)

		rec := o.details.Fetch(ctx, p)

		if err := o.records.Upsert(ctx, p, rec); err != nil {
			o.logger.Error(ctx, "database push failed, checkpoint not advanced, plant will be retried next run",
				"plant_code", p.Code, "error", err)
			continue
		}
		o.logger.Info(ctx, "plant data saved", "plant_code", p.Code, "api_success", rec != nil)

		if rec == nil {
			// Failure row persisted; resume position stays put so the
			// plant is retried on the next invocation.
			continue
		}

		if err := o.checkpoints.Save(ctx, p.Code); err != nil {
			o.logger.Warn(ctx, "failed to save checkpoint, plant may be re-processed after restart",
				"plant_code", p.Code, "error", err)
			continue
		}
		lastAdvanced = p.Code
	}

	if sweepReachesEnd && lastAdvanced == finalCode {
		o.logger.Info(ctx, "sweep complete, clearing checkpoint", "sweep_id", sweepID)
		if err := o.checkpoints.Delete(ctx); err != nil {
			o.logger.Warn(ctx, "failed to clear checkpoint", "error", err)
		}
	}

	return nil
}

// loadResumePosition returns the plant code to resume after, or empty to
// start from the beginning. Checkpoint problems are never fatal; re-processing
// is safe because persistence is idempotent.
func (o *Orchestrator) loadResumePosition(ctx context.Context) string {
	cp, err := o.checkpoints.Load(ctx)
	if err != nil {
		o.logger.Warn(ctx, "could not read checkpoint, starting from the beginning", "error", err)
		return ""
	}
	if cp == nil {
		o.logger.Info(ctx, "no checkpoint found, starting from the first plant")
		return ""
	}
	o.logger.Info(ctx, "checkpoint loaded, resuming from the next plant",
		"last_processed", cp.LastProcessedPlantCode)
	return cp.LastProcessedPlantCode
}
