package triage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmeliaRose802/mailtriage/internal/accuracy"
	"github.com/AmeliaRose802/mailtriage/internal/taskstore"
)

// stubCompleter returns a canned response per email id found in the
// prompt, or an error if errFor matches.
type stubCompleter struct {
	responses map[string]string
	errFor    string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	for id, resp := range s.responses {
		if strings.Contains(prompt, "Email id: "+id+"\n") {
			if id == s.errFor {
				return "", fmt.Errorf("provider unavailable")
			}
			return resp, nil
		}
	}
	return "", fmt.Errorf("no stub response for prompt")
}

func newTestPipeline(t *testing.T, completer *stubCompleter) (*Pipeline, *taskstore.Store, *accuracy.Tracker) {
	t.Helper()
	dir := t.TempDir()

	store, err := taskstore.Open(filepath.Join(dir, "tasks.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tracker, err := accuracy.Open(filepath.Join(dir, "accuracy.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { tracker.Close() })

	return NewPipeline(completer, store, tracker, nil, nil), store, tracker
}

func TestPipelineRunSavesRecordsAndHistory(t *testing.T) {
	completer := &stubCompleter{responses: map[string]string{
		"msg-1": `{"truly_relevant_actions": [{"topic": "Sign the form", "priority": "high"}]}`,
		"msg-2": `{"fyi_notices": [{"topic": "Office closed Monday"}]}`,
	}}
	pipeline, store, tracker := newTestPipeline(t, completer)
	ctx := context.Background()

	report, err := pipeline.Run(ctx, []Email{
		{ID: "msg-1", Subject: "Form", ReceivedDate: time.Now()},
		{ID: "msg-2", Subject: "Notice", ReceivedDate: time.Now()},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalEmails)
	assert.Equal(t, 2, report.SavedTasks)
	assert.Zero(t, report.Malformed)
	assert.NotEmpty(t, report.RunID)

	snapshot, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot[taskstore.ActionRequiredPersonal], 1)
	require.Len(t, snapshot[taskstore.ActionFYI], 1)
	assert.Equal(t, "Sign the form", snapshot[taskstore.ActionRequiredPersonal][0].Topic)

	trends, err := tracker.Trends(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, trends.TotalRuns)
	// Pipeline records runs before any user corrections exist.
	assert.Equal(t, 100.0, trends.LatestAccuracy)
}

func TestPipelineRepairsMalformedResponse(t *testing.T) {
	// Unterminated string plus a markdown fence: both repairable.
	completer := &stubCompleter{responses: map[string]string{
		"msg-1": "```json\n{\"truly_relevant_actions\": [{\"topic\": \"Truncated topic,\n\"priority\":\"high\"}]}\n```",
	}}
	pipeline, store, _ := newTestPipeline(t, completer)
	ctx := context.Background()

	report, err := pipeline.Run(ctx, []Email{{ID: "msg-1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.SavedTasks)
	assert.Zero(t, report.Malformed)

	snapshot, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot[taskstore.ActionRequiredPersonal], 1)
	assert.Equal(t, taskstore.PriorityHigh, snapshot[taskstore.ActionRequiredPersonal][0].Priority)
}

func TestPipelineUnrepairableResponseDegradesToWarning(t *testing.T) {
	completer := &stubCompleter{responses: map[string]string{
		"msg-1": `{this is not json at all`,
		"msg-2": `{"fyi_notices": [{"topic": "Still processed"}]}`,
	}}
	pipeline, store, tracker := newTestPipeline(t, completer)
	ctx := context.Background()

	report, err := pipeline.Run(ctx, []Email{{ID: "msg-1"}, {ID: "msg-2"}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Malformed)
	assert.Equal(t, 1, report.SavedTasks)
	require.NotEmpty(t, report.Warnings)
	assert.Contains(t, report.Warnings[0], "msg-1")

	snapshot, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshot[taskstore.ActionFYI], 1)

	// The run is still recorded even with a malformed email.
	trends, err := tracker.Trends(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, trends.TotalRuns)
}

func TestPipelineCompleterErrorDegradesToWarning(t *testing.T) {
	completer := &stubCompleter{
		responses: map[string]string{"msg-1": "unused"},
		errFor:    "msg-1",
	}
	pipeline, _, _ := newTestPipeline(t, completer)

	report, err := pipeline.Run(context.Background(), []Email{{ID: "msg-1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Malformed)
	assert.Zero(t, report.SavedTasks)
}

func TestPipelineEmptyBatch(t *testing.T) {
	pipeline, _, tracker := newTestPipeline(t, &stubCompleter{})
	ctx := context.Background()

	report, err := pipeline.Run(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, report.TotalEmails)
	assert.Zero(t, report.SavedTasks)

	// Zero-email runs are recorded but never enter accuracy averages.
	trends, err := tracker.Trends(ctx, 5)
	require.NoError(t, err)
	assert.True(t, trends.NoData)
	assert.Equal(t, 1, trends.TotalRuns)
}

func TestPipelineRerunCollapsesDuplicates(t *testing.T) {
	completer := &stubCompleter{responses: map[string]string{
		"msg-1": `{"truly_relevant_actions": [{"topic": "Sign the form"}]}`,
	}}
	pipeline, store, _ := newTestPipeline(t, completer)
	ctx := context.Background()

	_, err := pipeline.Run(ctx, []Email{{ID: "msg-1"}})
	require.NoError(t, err)
	_, err = pipeline.Run(ctx, []Email{{ID: "msg-1"}})
	require.NoError(t, err)

	snapshot, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshot[taskstore.ActionRequiredPersonal], 1)
}
