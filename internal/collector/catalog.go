// Package collector implements the resumable, rate-limited collection sweep:
// catalog fetch, checkpoint resume, serial per-plant detail fetch, and
// checkpoint-gated persistence.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AlaskanTuna/fusion-solar-collector/internal/domain/plant"
	"github.com/AlaskanTuna/fusion-solar-collector/internal/fusionsolar"
	"github.com/AlaskanTuna/fusion-solar-collector/pkg/common/logger"
	"github.com/AlaskanTuna/fusion-solar-collector/pkg/common/retry"
)

// ErrNoStations reports that the upstream listing returned an empty catalog.
// An empty catalog is retried like a failed call; with no plants there is no
// work to do and the condition is usually a transient upstream glitch.
var ErrNoStations = errors.New("station list is empty")

// StationLister is the subset of the vendor client used to enumerate plants.
type StationLister interface {
	StationList(ctx context.Context) ([]fusionsolar.Station, error)
}

// CatalogFetcher retrieves the full ordered plant catalog, retrying failures
// and empty results with exponential backoff. Exhaustion is fatal for the
// whole run: without a catalog there is no work possible.
type CatalogFetcher struct {
	client StationLister
	policy retry.Policy
	logger *logger.Logger
	tracer trace.Tracer
}

// NewCatalogFetcher creates a catalog fetcher with the given retry policy.
func NewCatalogFetcher(client StationLister, policy retry.Policy, log *logger.Logger, tracer trace.Tracer) *CatalogFetcher {
	return &CatalogFetcher{client: client, policy: policy, logger: log, tracer: tracer}
}

// Fetch returns the catalog in upstream order.
func (f *CatalogFetcher) Fetch(ctx context.Context) ([]plant.Plant, error) {
	ctx, span := f.tracer.Start(ctx, "collector.fetch_catalog")
	defer span.End()

	f.logger.Info(ctx, "fetching station list")

	var stations []fusionsolar.Station
	op := func() error {
		listed, err := f.client.StationList(ctx)
		if err != nil {
			return err
		}
		if len(listed) == 0 {
			return ErrNoStations
		}
		stations = listed
		return nil
	}

	notify := func(err error, next time.Duration) {
		f.logger.Warn(ctx, "station list fetch failed, retrying",
			"error", err, "retry_in", next)
	}

	if err := retry.Do(ctx, f.policy, notify, op); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("fetching station list: %w", err)
	}

	catalog := make([]plant.Plant, len(stations))
	for i, s := range stations {
		catalog[i] = plant.Plant{Code: s.Code, Name: s.Name}
	}

	span.SetAttributes(attribute.Int("plant_count", len(catalog)))
	f.logger.Info(ctx, "station list fetch successful", "plant_count", len(catalog))
	return catalog, nil
}
