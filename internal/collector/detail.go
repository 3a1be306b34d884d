package collector

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AlaskanTuna/fusion-solar-collector/internal/domain/plant"
	"github.com/AlaskanTuna/fusion-solar-collector/internal/fusionsolar"
	"github.com/AlaskanTuna/fusion-solar-collector/pkg/common/logger"
	"github.com/AlaskanTuna/fusion-solar-collector/pkg/common/retry"
)

// ControlModeGetter is the subset of the vendor client used to fetch one
// plant's power-control configuration.
type ControlModeGetter interface {
	ActivePowerControlMode(ctx context.Context, plantCode string) (*fusionsolar.ControlModeResult, error)
}

// DetailFetcher retrieves a single plant's control-mode record. Only
// transport failures consume the retry budget; a response that reached the
// server, whatever its status or envelope says, is never retried.
type DetailFetcher struct {
	client ControlModeGetter
	policy retry.Policy
	logger *logger.Logger
	tracer trace.Tracer
}

// NewDetailFetcher creates a detail fetcher with the given retry policy.
// The policy should carry jitter to spread retries of concurrent collectors.
func NewDetailFetcher(client ControlModeGetter, policy retry.Policy, log *logger.Logger, tracer trace.Tracer) *DetailFetcher {
	return &DetailFetcher{client: client, policy: policy, logger: log, tracer: tracer}
}

// Fetch returns the plant's record, or nil when no data could be obtained
// this sweep: retry exhaustion, a non-200 response, or a semantically failed
// envelope. The caller persists a failure row either way.
func (f *DetailFetcher) Fetch(ctx context.Context, p plant.Plant) *plant.ControlModeRecord {
	ctx, span := f.tracer.Start(ctx, "collector.fetch_detail",
		trace.WithAttributes(attribute.String("plant_code", p.Code)))
	defer span.End()

	f.logger.Info(ctx, "processing plant", "plant_name", p.Name, "plant_code", p.Code)

	var result *fusionsolar.ControlModeResult
	op := func() error {
		r, err := f.client.ActivePowerControlMode(ctx, p.Code)
		if err != nil {
			return err
		}
		result = r
		return nil
	}

	notify := func(err error, next time.Duration) {
		f.logger.Warn(ctx, "connection error fetching control mode, retrying",
			"plant_code", p.Code, "error", err, "retry_in", next)
	}

	if err := retry.Do(ctx, f.policy, notify, op); err != nil {
		span.RecordError(err)
		f.logger.Error(ctx, "control mode fetch failed after retries",
			"plant_code", p.Code, "error", err)
		return nil
	}

	if result.StatusCode != http.StatusOK {
		f.logger.Warn(ctx, "control mode fetch returned http error",
			"plant_code", p.Code, "status_code", result.StatusCode)
		return nil
	}

	env := result.Envelope
	if env == nil || !env.Success {
		msg := "undecodable response body"
		if env != nil {
			msg = env.Message
		}
		f.logger.Warn(ctx, "control mode call failed upstream",
			"plant_code", p.Code, "message", msg)
		return nil
	}

	rec := &plant.ControlModeRecord{Success: true}
	if data := env.Data; data != nil {
		rec.PlantCode = data.PlantCode
		rec.Mode = plant.ControlMode(data.ControlMode)
		rec.LimitedKWParam = data.LimitedPowerGridValueParam
		rec.LimitedPercentParam = data.LimitedPowerGridPercentParam
		rec.ZeroExportParam = data.ZeroExportLimitationParam
	}

	span.SetAttributes(attribute.String("control_mode", string(rec.Mode)))
	return rec
}
