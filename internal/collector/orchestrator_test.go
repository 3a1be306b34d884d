package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlaskanTuna/fusion-solar-collector/internal/domain/plant"
	"github.com/AlaskanTuna/fusion-solar-collector/internal/infra/storage"
	"github.com/AlaskanTuna/fusion-solar-collector/internal/infra/storage/checkpoint/memory"
	"github.com/AlaskanTuna/fusion-solar-collector/pkg/common/logger"
)

type fakeCatalog struct {
	plants []plant.Plant
	err    error
}

func (f *fakeCatalog) Fetch(context.Context) ([]plant.Plant, error) {
	return f.plants, f.err
}

type fakeDetails struct {
	records map[string]*plant.ControlModeRecord
	fetched []string
}

func (f *fakeDetails) Fetch(_ context.Context, p plant.Plant) *plant.ControlModeRecord {
	f.fetched = append(f.fetched, p.Code)
	return f.records[p.Code]
}

type upsertCall struct {
	plant  plant.Plant
	record *plant.ControlModeRecord
}

type recordingStore struct {
	upserts []upsertCall
	failFor map[string]bool
}

func (s *recordingStore) Upsert(_ context.Context, p plant.Plant, rec *plant.ControlModeRecord) error {
	if s.failFor[p.Code] {
		return errors.New("storage unavailable")
	}
	s.upserts = append(s.upserts, upsertCall{plant: p, record: rec})
	return nil
}

type countingPacer struct {
	waits int
	err   error
}

func (p *countingPacer) Wait(context.Context) error {
	p.waits++
	return p.err
}

func successRecord(code string) *plant.ControlModeRecord {
	return &plant.ControlModeRecord{Success: true, PlantCode: code, Mode: plant.ControlModeNoLimit}
}

type sweepFixture struct {
	catalog     *fakeCatalog
	details     *fakeDetails
	checkpoints *memory.Store
	records     *recordingStore
	pacer       *countingPacer
}

func newSweepFixture(codes ...string) *sweepFixture {
	plants := make([]plant.Plant, len(codes))
	records := make(map[string]*plant.ControlModeRecord, len(codes))
	for i, code := range codes {
		plants[i] = plant.Plant{Code: code, Name: "Plant " + code}
		records[code] = successRecord(code)
	}
	return &sweepFixture{
		catalog:     &fakeCatalog{plants: plants},
		details:     &fakeDetails{records: records},
		checkpoints: memory.NewStore(),
		records:     &recordingStore{failFor: map[string]bool{}},
		pacer:       &countingPacer{},
	}
}

func (f *sweepFixture) orchestrator(limit int) *Orchestrator {
	return NewOrchestrator(
		f.catalog, f.details, f.checkpoints, f.records, f.pacer,
		limit, logger.Noop(), storage.NoOpTracer(),
	)
}

func (f *sweepFixture) checkpointCode(t *testing.T) string {
	t.Helper()
	cp, err := f.checkpoints.Load(context.Background())
	require.NoError(t, err)
	if cp == nil {
		return ""
	}
	return cp.LastProcessedPlantCode
}

func TestSweepProcessesFullCatalogInOrder(t *testing.T) {
	t.Parallel()

	f := newSweepFixture("A", "B", "C")

	require.NoError(t, f.orchestrator(0).Run(context.Background()))

	assert.Equal(t, []string{"A", "B", "C"}, f.details.fetched)
	assert.Len(t, f.records.upserts, 3)
	assert.Equal(t, 3, f.pacer.waits, "one pacing wait per plant, warm-up included")
	assert.Empty(t, f.checkpointCode(t), "checkpoint is cleared once the catalog is exhausted")
}

func TestSweepResumesAfterCheckpoint(t *testing.T) {
	t.Parallel()

	f := newSweepFixture("A", "B", "C")
	require.NoError(t, f.checkpoints.Save(context.Background(), "A"))

	require.NoError(t, f.orchestrator(0).Run(context.Background()))

	assert.Equal(t, []string{"B", "C"}, f.details.fetched)
}

func TestSweepRestartsOnStaleCheckpoint(t *testing.T) {
	t.Parallel()

	f := newSweepFixture("A", "B", "C")
	require.NoError(t, f.checkpoints.Save(context.Background(), "GONE"))

	require.NoError(t, f.orchestrator(0).Run(context.Background()))

	assert.Equal(t, []string{"A", "B", "C"}, f.details.fetched)
}

func TestEmptyResumeSliceClearsCheckpointAndDoesNoWork(t *testing.T) {
	t.Parallel()

	f := newSweepFixture("A", "B", "C")
	require.NoError(t, f.checkpoints.Save(context.Background(), "C"))

	require.NoError(t, f.orchestrator(0).Run(context.Background()))

	assert.Empty(t, f.details.fetched)
	assert.Empty(t, f.records.upserts)
	assert.Empty(t, f.checkpointCode(t))
}

func TestPersistenceFailureDoesNotAdvanceCheckpoint(t *testing.T) {
	t.Parallel()

	f := newSweepFixture("A", "B", "C")
	f.records.failFor["C"] = true

	require.NoError(t, f.orchestrator(0).Run(context.Background()))

	assert.Equal(t, "B", f.checkpointCode(t),
		"checkpoint stays at the last durably persisted plant so C is retried next run")
}

func TestPersistenceFailureDoesNotAbortSweep(t *testing.T) {
	t.Parallel()

	f := newSweepFixture("A", "B", "C")
	f.records.failFor["B"] = true

	require.NoError(t, f.orchestrator(0).Run(context.Background()))

	assert.Equal(t, []string{"A", "B", "C"}, f.details.fetched)
	assert.Len(t, f.records.upserts, 2, "A and C still persisted")
}

func TestDetailFailurePersistsFailureRowWithoutAdvancing(t *testing.T) {
	t.Parallel()

	f := newSweepFixture("A", "B")
	f.details.records["B"] = nil

	require.NoError(t, f.orchestrator(0).Run(context.Background()))

	require.Len(t, f.records.upserts, 2)
	last := f.records.upserts[1]
	assert.Equal(t, "B", last.plant.Code)
	assert.Nil(t, last.record, "a nil record is persisted as a failure row")

	assert.Equal(t, "A", f.checkpointCode(t),
		"checkpoint never advances past a plant without real data")
}

func TestPlantLimitCapsInvocation(t *testing.T) {
	t.Parallel()

	f := newSweepFixture("A", "B", "C")

	require.NoError(t, f.orchestrator(2).Run(context.Background()))

	assert.Equal(t, []string{"A", "B"}, f.details.fetched)
	assert.Equal(t, "B", f.checkpointCode(t),
		"a capped sweep keeps its checkpoint for the next invocation")
}

func TestCatalogFetchFailureIsFatal(t *testing.T) {
	t.Parallel()

	f := newSweepFixture("A")
	f.catalog.err = errors.New("upstream down")

	err := f.orchestrator(0).Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, f.details.fetched)
}

func TestSweepStopsWhenPacingIsInterrupted(t *testing.T) {
	t.Parallel()

	f := newSweepFixture("A", "B")
	f.pacer.err = context.Canceled

	err := f.orchestrator(0).Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, f.details.fetched, "cancellation lands at the pacing wait, before any fetch")
}

func TestBackToBackSweepsRetryFailedPlant(t *testing.T) {
	t.Parallel()

	// First run: B yields no data, so the checkpoint sticks at A.
	f := newSweepFixture("A", "B", "C")
	f.details.records["B"] = nil
	require.NoError(t, f.orchestrator(0).Run(context.Background()))

	// Second run resumes after A and retries B.
	f.details.records["B"] = successRecord("B")
	f.details.fetched = nil
	require.NoError(t, f.orchestrator(0).Run(context.Background()))

	assert.Equal(t, []string{"B", "C"}, f.details.fetched)
	assert.Empty(t, f.checkpointCode(t))
}
