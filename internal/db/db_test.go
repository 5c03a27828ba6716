package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Migrate())
	return database
}

func TestMigrate(t *testing.T) {
	database := openTestDB(t)

	version, dirty, err := database.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)

	// Migrating an up-to-date schema is a no-op.
	require.NoError(t, database.Migrate())
}

func TestAnalyses(t *testing.T) {
	database := openTestDB(t)

	id, err := database.InsertAnalysis(Analysis{
		Direction:    "north",
		Source:       "photo",
		VehicleCount: 12,
		GreenSeconds: 34,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = database.InsertAnalysis(Analysis{
		Direction:    "east",
		Source:       "video",
		VehicleCount: 8,
		FlowRate:     0.6,
		Emergency:    true,
		GreenSeconds: 45,
	})
	require.NoError(t, err)

	t.Run("all directions newest first", func(t *testing.T) {
		got, err := database.RecentAnalyses("", 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "east", got[0].Direction)
		assert.Equal(t, "north", got[1].Direction)
		assert.True(t, got[0].Emergency)
		assert.False(t, got[0].CreatedAt.IsZero())
	})

	t.Run("filtered by direction", func(t *testing.T) {
		got, err := database.RecentAnalyses("north", 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 12, got[0].VehicleCount)
		assert.Equal(t, 34.0, got[0].GreenSeconds)
	})

	t.Run("no rows for unknown direction", func(t *testing.T) {
		got, err := database.RecentAnalyses("nowhere", 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("limit respected", func(t *testing.T) {
		got, err := database.RecentAnalyses("", 1)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}

func TestRunSummaries(t *testing.T) {
	database := openTestDB(t)

	s := RunSummary{
		RunID:           "run-1",
		Mode:            "paired",
		CanvasSize:      900,
		Spawned:         42,
		DurationSeconds: 65,
		PeakVehicles:    17,
		MeanSpeed:       63.5,
		Completed:       true,
	}
	require.NoError(t, database.InsertRunSummary(s))

	got, err := database.GetRunSummary("run-1")
	require.NoError(t, err)
	assert.Equal(t, s.Mode, got.Mode)
	assert.Equal(t, s.Spawned, got.Spawned)
	assert.Equal(t, s.MeanSpeed, got.MeanSpeed)
	assert.True(t, got.Completed)

	// Same run id replaces the earlier row.
	s.Spawned = 50
	require.NoError(t, database.InsertRunSummary(s))
	got, err = database.GetRunSummary("run-1")
	require.NoError(t, err)
	assert.Equal(t, 50, got.Spawned)

	all, err := database.RecentRunSummaries(10)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = database.GetRunSummary("missing")
	assert.Error(t, err)
}
