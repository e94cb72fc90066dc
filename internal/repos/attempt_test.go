package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/yungbote/scormbridge/internal/db/dbtest"
	"github.com/yungbote/scormbridge/internal/domain"
)

func TestAttemptRepoLifecycle(t *testing.T) {
	gdb := dbtest.Open(t)
	repo := NewAttemptRepo(gdb, nil)
	ctx := context.Background()

	first, err := repo.Create(ctx, nil, &domain.Attempt{
		LearnerID:   "learner-1",
		PackageRoot: "/pkgs/golf",
		EntryFile:   "index.html",
		Data:        datatypes.JSONMap{"cmi.core.lesson_status": "incomplete"},
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, first.ID)
	assert.Equal(t, domain.AttemptStarted, first.State)

	time.Sleep(5 * time.Millisecond)
	second, err := repo.Create(ctx, nil, &domain.Attempt{LearnerID: "learner-1", PackageRoot: "/pkgs/golf"})
	require.NoError(t, err)

	latest, err := repo.GetLatest(ctx, nil, "learner-1", "/pkgs/golf")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)

	got, err := repo.GetByID(ctx, nil, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "incomplete", got.Data["cmi.core.lesson_status"])

	got.State = domain.AttemptFinished
	got.LessonStatus = "completed"
	got.Data["cmi.core.lesson_status"] = "completed"
	require.NoError(t, repo.Update(ctx, nil, got))

	again, err := repo.GetByID(ctx, nil, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptFinished, again.State)
	assert.Equal(t, "completed", again.Data["cmi.core.lesson_status"])

	list, err := repo.ListByLearner(ctx, nil, "learner-1", 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestAttemptRepoMissingRows(t *testing.T) {
	repo := NewAttemptRepo(dbtest.Open(t), nil)
	ctx := context.Background()

	got, err := repo.GetByID(ctx, nil, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)

	latest, err := repo.GetLatest(ctx, nil, "nobody", "/pkgs/none")
	require.NoError(t, err)
	assert.Nil(t, latest)

	assert.Error(t, repo.Update(ctx, nil, &domain.Attempt{}))
}
