// Package postgres persists the latest control-mode record per plant.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AlaskanTuna/fusion-solar-collector/internal/domain/plant"
	"github.com/AlaskanTuna/fusion-solar-collector/internal/infra/storage"
)

var _ plant.RecordStore = (*recordStore)(nil)

// recordStore provides a PostgreSQL implementation of plant.RecordStore.
// Each plant keeps exactly one row, overwritten wholesale on every upsert.
type recordStore struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewRecordStore creates a PostgreSQL-backed record store on the provided pool.
func NewRecordStore(pool *pgxpool.Pool, tracer trace.Tracer) *recordStore {
	return &recordStore{pool: pool, tracer: tracer}
}

const upsertQuery = `
INSERT INTO plant_control_modes (
    plant_code, plant_name, api_success, control_mode,
    limited_kw_param, limited_percent_param, zero_export_param, last_updated
) VALUES ($1, $2, $3, $4, $5, $6, $7, now())
ON CONFLICT (plant_code) DO UPDATE SET
    plant_name            = EXCLUDED.plant_name,
    api_success           = EXCLUDED.api_success,
    control_mode          = EXCLUDED.control_mode,
    limited_kw_param      = EXCLUDED.limited_kw_param,
    limited_percent_param = EXCLUDED.limited_percent_param,
    zero_export_param     = EXCLUDED.zero_export_param,
    last_updated          = now()`

// Upsert writes the row for one plant in a single atomic statement. A nil
// record produces a failure row (api_success false, all data columns NULL)
// so the plant is still marked visited. The authoritative plant code comes
// from the record when it reported one, the catalog otherwise.
func (s *recordStore) Upsert(ctx context.Context, p plant.Plant, rec *plant.ControlModeRecord) error {
	code := p.Code
	success := false
	var mode *string
	var kwParam, percentParam, zeroParam []byte

	if rec != nil {
		success = rec.Success
		if rec.PlantCode != "" {
			code = rec.PlantCode
		}
		if rec.Mode != "" {
			m := string(rec.Mode)
			mode = &m
		}
		kwParam = jsonColumn(rec.LimitedKWParam)
		percentParam = jsonColumn(rec.LimitedPercentParam)
		zeroParam = jsonColumn(rec.ZeroExportParam)
	}

	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.upsert_control_mode", []attribute.KeyValue{
		attribute.String("plant_code", code),
		attribute.Bool("api_success", success),
	}, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, upsertQuery,
			code, p.Name, success, mode, kwParam, percentParam, zeroParam)
		if err != nil {
			return fmt.Errorf("failed to upsert control mode for plant %s: %w", code, err)
		}
		return nil
	})
}

// jsonColumn maps an absent or JSON-null blob to a SQL NULL.
func jsonColumn(raw []byte) []byte {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
