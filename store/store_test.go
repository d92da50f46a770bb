package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sprintzero "github.com/lucasjlepore/sprint-analyzer"
	"github.com/lucasjlepore/sprint-analyzer/detection"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleBatch() *sprintzero.Batch {
	return &sprintzero.Batch{
		Results: []sprintzero.Result{
			{
				Index: 1, Position: 0, Date: "2025-06-01", Distance: 100,
				Detection: detection.Result{
					ForwardDuration: 10.5, BackwardDuration: 10.9, FinalDuration: 10.7,
					Gap: 0.4, Decision: detection.Agree, SprintLevel: 6.2, Threshold: 5.58,
				},
			},
			{
				Index: 2, Position: 3, Date: "2025-06-01", Distance: 200,
				Detection: detection.Result{
					ForwardDuration: 20.1, BackwardDuration: 23.4, FinalDuration: 23.4,
					Gap: 3.3, Decision: detection.TrustBackward, SprintLevel: 5.1, Threshold: 4.59,
				},
			},
		},
		Skipped: []sprintzero.Skip{
			{Position: 1, Date: "2025-06-01", Distance: 40, Reason: "sprint skipped: distance below 60 m"},
		},
	}
}

func TestOpenAppliesMigrations(t *testing.T) {
	s := openTestStore(t)
	version, dirty, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)
}

func TestReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	version, _, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestSaveRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	params := detection.DefaultParams()
	params.ThresholdRatio = 0.85
	run, err := s.SaveRun(ctx, "export.sprintzero", params, sampleBatch())
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, 2, run.Analyzed)
	assert.Equal(t, 1, run.Skipped)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "export.sprintzero", got.Source)
	assert.Equal(t, params, got.Params)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))

	rows, err := s.Results(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, SprintRow{
		RunID: run.ID, Index: 2, Position: 3, Date: "2025-06-01", Distance: 200,
		ForwardDuration: 20.1, BackwardDuration: 23.4, FinalDuration: 23.4,
		Gap: 3.3, Decision: detection.TrustBackward, SprintLevel: 5.1, Threshold: 4.59,
	}, rows[1])

	reasons, err := s.SkippedReasons(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "sprint skipped: distance below 60 m"}, reasons)
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first, err := s.SaveRun(ctx, "a", detection.DefaultParams(), sampleBatch())
	require.NoError(t, err)
	second, err := s.SaveRun(ctx, "b", detection.DefaultParams(), &sprintzero.Batch{})
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)

	runs, err = s.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

func TestGetRunNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	require.ErrorIs(t, err, ErrRunNotFound)
}
