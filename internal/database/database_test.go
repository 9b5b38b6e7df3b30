package database

import (
	"testing"

	"github.com/CognitionIES/teamsync/internal/database/dbtest"
	"github.com/CognitionIES/teamsync/internal/metrics"
	"github.com/CognitionIES/teamsync/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateCreatesAllTables(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, Migrate(db))
	// повторная миграция ничего не ломает
	require.NoError(t, Migrate(db))

	for _, model := range []interface{}{&task.Task{}, &task.WorkItem{}, &task.PIDWorkItem{}, &task.PIDClaim{}, &metrics.DailyMetric{}} {
		assert.True(t, db.Migrator().HasTable(model), "%T", model)
	}
	assert.True(t, db.Migrator().HasIndex(&task.PIDWorkItem{}, "uk_pid_work_item"))
	assert.True(t, db.Migrator().HasIndex(&metrics.DailyMetric{}, "uk_daily_metric"))
}
