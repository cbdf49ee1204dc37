package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/poi-ingest/internal/model"
	"github.com/sells-group/poi-ingest/internal/store"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	finished := now.Add(2 * time.Minute)
	runs := []model.IngestRun{
		{
			ID:         "abc12345-6789-0000-0000-000000000000",
			SourceURL:  "https://example.com/export.csv",
			Status:     model.RunStatusComplete,
			Summary:    model.IngestSummary{Rows: 10, Created: 7, Existing: 1, Invalid: 1, Unclassified: 1},
			StartedAt:  now,
			FinishedAt: &finished,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Status:    model.RunStatusRunning,
			StartedAt: now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "REJECTED")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "2m0s")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")

	lines := strings.Split(strings.TrimSpace(output), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, []string{"abc12345", "complete", "10", "7", "1", "2"}, strings.Fields(lines[2])[:6])
}

func TestFormatRunsList_FailedRun(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	finished := now.Add(30 * time.Second)
	runs := []model.IngestRun{
		{
			ID:         "abc12345-6789-0000-0000-000000000000",
			Status:     model.RunStatusFailed,
			Error:      "ingest: store create poi: postgres: create poi faillissementsdossier:1: connection reset",
			StartedAt:  now,
			FinishedAt: &finished,
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "30s")
	assert.Contains(t, output, "ingest: store create poi: postgres: c...")
}

func TestRunFilter(t *testing.T) {
	f, err := runFilter("", 5)
	require.NoError(t, err)
	assert.Equal(t, store.RunFilter{Limit: 5}, f)

	f, err = runFilter("failed", 20)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, f.Status)

	_, err = runFilter("paused", 20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid --status "paused"`)
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
