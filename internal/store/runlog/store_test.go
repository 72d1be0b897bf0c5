package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerLifecycle(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state", "runs.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	_, ok, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.StartRun(ctx, Run{ID: "r1", Trigger: "once", Sink: "file", Jobs: 2, StartedAt: t0}))
	require.NoError(t, s.RecordJob(ctx, JobResult{RunID: "r1", Job: "binance_btcusdt_daily", Category: "binance", Status: StatusDone, Envelopes: 3, DurationMs: 12}))
	require.NoError(t, s.RecordJob(ctx, JobResult{RunID: "r1", Job: "yfinance_ibov", Category: "yfinance", Status: StatusFailed, Error: "boom"}))
	require.NoError(t, s.FinishRun(ctx, "r1", StatusFailed, 3, "yfinance_ibov: boom"))

	require.NoError(t, s.StartRun(ctx, Run{ID: "r2", Trigger: "schedule", Sink: "none", Jobs: 0, StartedAt: t0.Add(time.Hour)}))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].ID)
	assert.Equal(t, StatusRunning, runs[0].Status)
	assert.True(t, runs[0].CompletedAt.IsZero())

	assert.Equal(t, StatusFailed, runs[1].Status)
	assert.Equal(t, 3, runs[1].Envelopes)
	assert.Equal(t, t0, runs[1].StartedAt)
	assert.False(t, runs[1].CompletedAt.IsZero())

	latest, ok, err := s.LatestRun(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "r2", latest.ID)
	assert.Empty(t, latest.Results)

	results, err := s.JobResults(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "binance_btcusdt_daily", results[0].Job)
	assert.Equal(t, "boom", results[1].Error)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(" ")
	assert.Error(t, err)
}
