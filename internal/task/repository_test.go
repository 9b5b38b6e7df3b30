package task

import (
	"context"
	"testing"
	"time"

	"github.com/CognitionIES/teamsync/internal/database/dbtest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindReusableTask(t *testing.T) {
	db := dbtest.Open(t, Models()...)
	repo := NewRepository(db)
	ctx := context.Background()

	assert.True(t, db.Migrator().HasColumn(&Task{}, "is_pid_based"))

	assignee, project := uuid.New(), uuid.New()
	newTask := func(pidBased bool, status Status, createdAt time.Time) Task {
		projectID := project
		tk := Task{
			ID:         uuid.New(),
			Type:       TypeRedline,
			AssigneeID: assignee,
			AssignedBy: uuid.New(),
			ProjectID:  &projectID,
			Status:     status,
			IsPIDBased: pidBased,
			CreatedAt:  createdAt,
			UpdatedAt:  createdAt,
		}
		require.NoError(t, repo.CreateTask(ctx, &tk))
		return tk
	}

	_, found, err := repo.FindReusableTask(ctx, assignee, TypeRedline, project, startTime)
	require.NoError(t, err)
	assert.False(t, found)

	newTask(false, StatusAssigned, startTime.Add(time.Minute))
	newTask(true, StatusInProgress, startTime.Add(time.Minute))
	newTask(true, StatusAssigned, startTime.Add(-time.Minute))
	want := newTask(true, StatusAssigned, startTime.Add(2*time.Minute))

	got, found, err := repo.FindReusableTask(ctx, assignee, TypeRedline, project, startTime)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want.ID, got.ID)
	assert.True(t, got.IsPIDBased)

	_, found, err = repo.FindReusableTask(ctx, assignee, TypeQC, project, startTime)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClaimPIDKeepsFirstHolder(t *testing.T) {
	repo := NewRepository(dbtest.Open(t, Models()...))
	ctx := context.Background()
	pidID, alice, bob := uuid.New(), uuid.New(), uuid.New()

	holder, err := repo.ClaimPID(ctx, pidID, TypeRedline, alice, startTime)
	require.NoError(t, err)
	assert.Equal(t, alice, holder)

	// повторная заявка того же пользователя не меняет держателя
	holder, err = repo.ClaimPID(ctx, pidID, TypeRedline, alice, startTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, alice, holder)

	holder, err = repo.ClaimPID(ctx, pidID, TypeRedline, bob, startTime)
	require.NoError(t, err)
	assert.Equal(t, alice, holder)

	holder, err = repo.ClaimPID(ctx, pidID, TypeQC, bob, startTime)
	require.NoError(t, err)
	assert.Equal(t, bob, holder)
}
