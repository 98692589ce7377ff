package accuracy

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tracker, err := Open(filepath.Join(t.TempDir(), "accuracy.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { tracker.Close() })
	return tracker
}

func TestNewRunDerivesAccuracy(t *testing.T) {
	tests := []struct {
		name          string
		totalEmails   int
		modifications int
		want          float64
	}{
		{name: "perfect run", totalEmails: 10, modifications: 0, want: 100},
		{name: "partial corrections", totalEmails: 10, modifications: 3, want: 70},
		{name: "rounded to one decimal", totalEmails: 3, modifications: 1, want: 66.7},
		{name: "zero emails", totalEmails: 0, modifications: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := NewRun(tt.totalEmails, tt.modifications, nil, time.Now())
			assert.Equal(t, tt.want, run.AccuracyRate)
			assert.NotEmpty(t, run.RunID)
		})
	}
}

func TestTrendsWindow(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, rate := range []float64{80, 90, 70, 100, 60} {
		run := ClassificationRun{
			RunID:        fmt.Sprintf("run-%d", i),
			TotalEmails:  10,
			AccuracyRate: rate,
			Timestamp:    base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, tracker.RecordSession(ctx, run))
	}

	report, err := tracker.Trends(ctx, 3)
	require.NoError(t, err)
	assert.False(t, report.NoData)
	assert.Equal(t, 3, report.TotalRuns)
	assert.Equal(t, 60.0, report.LatestAccuracy)
	assert.Equal(t, 76.7, report.AverageAccuracy)
}

func TestTrendsWindowLargerThanHistory(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	run := NewRun(4, 1, nil, time.Now())
	require.NoError(t, tracker.RecordSession(ctx, run))

	report, err := tracker.Trends(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalRuns)
	assert.Equal(t, 75.0, report.LatestAccuracy)
	assert.Equal(t, 75.0, report.AverageAccuracy)
}

func TestTrendsLatestWithSubsecondTimestamps(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	// A whole-second timestamp and a fractional one in the same second:
	// the fractional run is newer and must win the latest slot.
	base := time.Date(2026, 3, 1, 9, 0, 5, 0, time.UTC)
	earlier := ClassificationRun{
		RunID:        "run-on-the-second",
		TotalEmails:  10,
		AccuracyRate: 60,
		Timestamp:    base,
	}
	later := ClassificationRun{
		RunID:        "run-half-second-later",
		TotalEmails:  10,
		AccuracyRate: 90,
		Timestamp:    base.Add(500 * time.Millisecond),
	}
	require.NoError(t, tracker.RecordSession(ctx, earlier))
	require.NoError(t, tracker.RecordSession(ctx, later))

	report, err := tracker.Trends(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 90.0, report.LatestAccuracy)
}

func TestTrendsNoData(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	report, err := tracker.Trends(ctx, 5)
	require.NoError(t, err)
	assert.True(t, report.NoData)
	assert.Zero(t, report.TotalRuns)
}

func TestTrendsExcludesEmptyRuns(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, tracker.RecordSession(ctx, ClassificationRun{
		RunID: "run-real", TotalEmails: 10, ModificationsCount: 2,
		AccuracyRate: 80, Timestamp: base,
	}))
	require.NoError(t, tracker.RecordSession(ctx, ClassificationRun{
		RunID: "run-empty", TotalEmails: 0, Timestamp: base.Add(time.Hour),
	}))

	report, err := tracker.Trends(ctx, 5)
	require.NoError(t, err)
	assert.False(t, report.NoData)
	assert.Equal(t, 2, report.TotalRuns)
	// Latest eligible run, not the empty one.
	assert.Equal(t, 80.0, report.LatestAccuracy)
	assert.Equal(t, 80.0, report.AverageAccuracy)
}

func TestTrendsOnlyEmptyRuns(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tracker.RecordSession(ctx, ClassificationRun{
		RunID: "run-empty", TotalEmails: 0, Timestamp: time.Now(),
	}))

	report, err := tracker.Trends(ctx, 5)
	require.NoError(t, err)
	assert.True(t, report.NoData)
	assert.Equal(t, 1, report.TotalRuns)
}

func TestRecordSessionRejectsDuplicates(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	run := NewRun(5, 0, nil, time.Now())
	require.NoError(t, tracker.RecordSession(ctx, run))
	assert.Error(t, tracker.RecordSession(ctx, run))
}

func TestRecordSessionValidation(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	assert.Error(t, tracker.RecordSession(ctx, ClassificationRun{
		TotalEmails: 3, Timestamp: time.Now(),
	}))
	assert.Error(t, tracker.RecordSession(ctx, ClassificationRun{
		RunID: "run-bad", TotalEmails: 2, ModificationsCount: 5, Timestamp: time.Now(),
	}))
}

func TestDashboardMetrics(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	require.NoError(t, tracker.RecordSession(ctx, ClassificationRun{
		RunID: "run-a", TotalEmails: 10, ModificationsCount: 2, AccuracyRate: 80,
		CategoryModifications: map[string]int{"job_listings": 1, "fyi_notices": 1},
		Timestamp:             base,
	}))
	require.NoError(t, tracker.RecordSession(ctx, ClassificationRun{
		RunID: "run-b", TotalEmails: 10, ModificationsCount: 1, AccuracyRate: 90,
		CategoryModifications: map[string]int{"job_listings": 1},
		Timestamp:             base.Add(time.Hour),
	}))
	require.NoError(t, tracker.RecordSession(ctx, ClassificationRun{
		RunID: "run-empty", TotalEmails: 0, Timestamp: base.Add(2 * time.Hour),
	}))

	report, err := tracker.DashboardMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalSessions)
	assert.Equal(t, 85.0, report.AverageAccuracy)
	assert.Equal(t, map[string]int{"job_listings": 2, "fyi_notices": 1}, report.CategoryModifications)
}

func TestDashboardMetricsEmpty(t *testing.T) {
	tracker := newTestTracker(t)

	report, err := tracker.DashboardMetrics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.TotalSessions)
	assert.Zero(t, report.AverageAccuracy)
	assert.Empty(t, report.CategoryModifications)
}

func TestRunsPersistAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accuracy.db")
	ctx := context.Background()

	tracker, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, tracker.RecordSession(ctx, NewRun(8, 2, nil, time.Now())))
	require.NoError(t, tracker.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	report, err := reopened.Trends(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalRuns)
	assert.Equal(t, 75.0, report.LatestAccuracy)
}
