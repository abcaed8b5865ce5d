package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRecordAndListRuns(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	t0 := time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)

	failed := Run{
		ID: "run-1", StartedAt: t0, FinishedAt: t0.Add(time.Minute),
		Message: "site unreachable", Failure: "unreachable",
		Categories: []RunCategory{{Category: "Engineering", Error: "fetch: status 503"}},
	}
	ok := Run{
		ID: "run-2", StartedAt: t0.Add(time.Hour), FinishedAt: t0.Add(time.Hour + time.Minute),
		Success: true, Message: "refreshed 3 jobs", Total: 3,
		Categories: []RunCategory{
			{Category: "Engineering", SourceURL: "https://www.jobyaari.com/category/engineering", Tier: "selector", Candidates: 9, Records: 2},
			{Category: "Science", Records: 1},
		},
	}
	require.NoError(t, db.RecordRun(ctx, failed))
	require.NoError(t, db.RecordRun(ctx, ok))

	runs, err := db.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.True(t, runs[0].Success)
	assert.Equal(t, map[string]int{"Engineering": 2, "Science": 1}, runs[0].PerCategory)
	assert.Equal(t, ok.Categories, runs[0].Categories)
	assert.Equal(t, ok.StartedAt, runs[0].StartedAt)
	assert.Equal(t, "unreachable", runs[1].Failure)

	last, err := db.LastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "run-2", last.ID)

	when, err := db.LastSuccess(ctx)
	require.NoError(t, err)
	assert.Equal(t, ok.FinishedAt, when)
}

func TestEmptyHistory(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	last, err := db.LastRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	when, err := db.LastSuccess(ctx)
	require.NoError(t, err)
	assert.True(t, when.IsZero())
}

func TestDuplicateRunIDRollsBack(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	r := Run{ID: "dup", StartedAt: time.Now(), FinishedAt: time.Now()}
	require.NoError(t, db.RecordRun(ctx, r))
	assert.Error(t, db.RecordRun(ctx, r))
}

func TestCleanupOldRuns(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	old := time.Now().Add(-200 * 24 * time.Hour)
	require.NoError(t, db.RecordRun(ctx, Run{ID: "old", StartedAt: old, FinishedAt: old, Categories: []RunCategory{{Category: "Science"}}}))
	require.NoError(t, db.RecordRun(ctx, Run{ID: "new", StartedAt: time.Now(), FinishedAt: time.Now()}))

	n, err := db.CleanupOldRuns(ctx, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	runs, err := db.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "new", runs[0].ID)
}
