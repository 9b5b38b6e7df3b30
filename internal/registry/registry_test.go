package registry

import (
	"context"
	"testing"
	"time"

	"github.com/CognitionIES/teamsync/internal/apperr"
	"github.com/CognitionIES/teamsync/internal/audit"
	"github.com/CognitionIES/teamsync/internal/auth"
	"github.com/CognitionIES/teamsync/internal/database/dbtest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPID(t *testing.T, repo Repository) PID {
	t.Helper()
	db := repo.(*repository).db
	project := Project{ID: uuid.New(), Name: "Refinery"}
	require.NoError(t, db.Create(&project).Error)
	pid := PID{ID: uuid.New(), ProjectID: project.ID, Number: "P-101"}
	require.NoError(t, db.Create(&pid).Error)
	return pid
}

func TestCreateLinesAndRead(t *testing.T) {
	db := dbtest.Open(t, Models()...)
	repo := NewRepository(db)
	pid := seedPID(t, repo)

	svc := NewService(repo, audit.NewRecorder(audit.NewLogSink(nil), time.Second))
	lead := auth.Principal{UserID: uuid.New(), Role: auth.RoleTeamLead}

	lines, err := svc.CreateLines(context.Background(), lead, pid.ID, []string{"L-2", " L-1 "})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	stored, err := repo.LinesByPID(context.Background(), pid.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "L-1", stored[0].LineNo)

	anyLine, ok, err := repo.AnyLineByPID(context.Background(), pid.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, []uuid.UUID{lines[0].ID, lines[1].ID}, anyLine)
}

func TestCreateLinesValidation(t *testing.T) {
	db := dbtest.Open(t, Models()...)
	repo := NewRepository(db)
	pid := seedPID(t, repo)
	svc := NewService(repo, nil)
	ctx := context.Background()

	member := auth.Principal{UserID: uuid.New(), Role: auth.RoleTeamMember}
	_, err := svc.CreateLines(ctx, member, pid.ID, []string{"L-1"})
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))

	entry := auth.Principal{UserID: uuid.New(), Role: auth.RoleDataEntry}
	_, err = svc.CreateLines(ctx, entry, pid.ID, []string{"L-1", "L-1"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.CreateLines(ctx, entry, pid.ID, nil)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.CreateLines(ctx, entry, uuid.New(), []string{"L-1"})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	lines, err := repo.LinesByPID(ctx, pid.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestAnyLineByPIDWithoutLines(t *testing.T) {
	db := dbtest.Open(t, Models()...)
	repo := NewRepository(db)
	pid := seedPID(t, repo)

	id, ok, err := repo.AnyLineByPID(context.Background(), pid.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, id)

	_, err = repo.GetUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
