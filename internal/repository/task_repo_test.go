package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/courseloop/coursework-api/internal/models"
)

func TestTaskRepositoryListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Task{Kind: models.TaskKindAssignment, OwnerID: 1, Title: "Essay"}))
	require.NoError(t, repo.Create(ctx, &models.Task{Kind: models.TaskKindQuiz, OwnerID: 1, Title: "Quiz"}))
	require.NoError(t, repo.Create(ctx, &models.Task{Kind: models.TaskKindQuiz, OwnerID: 2, Title: "Other Quiz"}))

	all, err := repo.List(ctx, TaskFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	ownerID := uint(1)
	byOwner, err := repo.List(ctx, TaskFilter{OwnerID: &ownerID})
	require.NoError(t, err)
	require.Len(t, byOwner, 2)

	kind := models.TaskKindQuiz
	byKind, err := repo.List(ctx, TaskFilter{Kind: &kind})
	require.NoError(t, err)
	require.Len(t, byKind, 2)

	both, err := repo.List(ctx, TaskFilter{OwnerID: &ownerID, Kind: &kind})
	require.NoError(t, err)
	require.Len(t, both, 1)
	require.Equal(t, "Quiz", both[0].Title)
}

func TestTaskRepositoryAddAssignees(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Task{Kind: models.TaskKindAssignment, OwnerID: 1, Title: "Essay"}))

	require.NoError(t, repo.AddAssignees(ctx, 1, []uint{2, 3}))
	// Re-adding an existing pair is a no-op, not an error.
	require.NoError(t, repo.AddAssignees(ctx, 1, []uint{3, 4}))
	require.NoError(t, repo.AddAssignees(ctx, 1, nil))

	assignees, err := repo.ListAssignees(ctx, 1)
	require.NoError(t, err)
	require.Len(t, assignees, 3)
	require.Equal(t, uint(2), assignees[0].StudentID)
	require.Equal(t, uint(4), assignees[2].StudentID)

	assigned, err := repo.HasAssignee(ctx, 1, 3)
	require.NoError(t, err)
	require.True(t, assigned)

	assigned, err = repo.HasAssignee(ctx, 1, 99)
	require.NoError(t, err)
	require.False(t, assigned)
}

func TestTaskRepositoryDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	tasks := NewTaskRepository(db)
	submissions := NewSubmissionRepository(db)
	ctx := context.Background()

	require.NoError(t, tasks.Create(ctx, &models.Task{Kind: models.TaskKindAssignment, OwnerID: 1, Title: "Essay"}))
	require.NoError(t, tasks.Create(ctx, &models.Task{Kind: models.TaskKindAssignment, OwnerID: 1, Title: "Keep"}))
	require.NoError(t, tasks.AddAssignees(ctx, 1, []uint{2, 3}))
	require.NoError(t, submissions.Create(ctx, &models.Submission{TaskID: 1, StudentID: 2}))
	require.NoError(t, submissions.Create(ctx, &models.Submission{TaskID: 2, StudentID: 2}))

	require.NoError(t, tasks.Delete(ctx, 1))

	_, err := tasks.GetByID(ctx, 1)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = submissions.GetByPair(ctx, 1, 2)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assignees, err := tasks.ListAssignees(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, assignees)

	// Unrelated rows survive.
	_, err = tasks.GetByID(ctx, 2)
	require.NoError(t, err)
	_, err = submissions.GetByPair(ctx, 2, 2)
	require.NoError(t, err)
}

func TestBlobRepositoryDeleteReportsExistence(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBlobRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Blob{ID: "blob-1", FileName: "a.png", MediaType: "image/png", SizeBytes: 3, Location: "blob-1"}))

	blob, err := repo.GetByID(ctx, "blob-1")
	require.NoError(t, err)
	require.Equal(t, "a.png", blob.FileName)

	existed, err := repo.Delete(ctx, "blob-1")
	require.NoError(t, err)
	require.True(t, existed)

	existed, err = repo.Delete(ctx, "blob-1")
	require.NoError(t, err)
	require.False(t, existed)

	_, err = repo.GetByID(ctx, "blob-1")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAnalyticsRepositoryQueries(t *testing.T) {
	db := setupTestDB(t)
	tasks := NewTaskRepository(db)
	submissions := NewSubmissionRepository(db)
	analytics := NewAnalyticsRepository(db)
	ctx := context.Background()

	due := time.Now().UTC().Add(-24 * time.Hour)
	require.NoError(t, tasks.Create(ctx, &models.Task{Kind: models.TaskKindQuiz, OwnerID: 1, Title: "Algebra Quiz", DueDate: &due, TotalPoints: 100}))
	require.NoError(t, tasks.Create(ctx, &models.Task{Kind: models.TaskKindAssignment, OwnerID: 1, Title: "Essay"}))

	now := time.Now().UTC()
	grade := 70.0
	require.NoError(t, submissions.Create(ctx, &models.Submission{TaskID: 1, StudentID: 2, IsSubmitted: true, SubmittedAt: &now, Grade: &grade}))
	require.NoError(t, submissions.Create(ctx, &models.Submission{TaskID: 1, StudentID: 3}))
	require.NoError(t, submissions.Create(ctx, &models.Submission{TaskID: 2, StudentID: 2}))

	graded, err := analytics.ListGradedSubmissionsByKind(ctx, models.TaskKindQuiz)
	require.NoError(t, err)
	require.Len(t, graded, 1)
	require.Equal(t, "Algebra Quiz", graded[0].Task.Title)
	require.NotNil(t, graded[0].Grade)

	withDue, err := analytics.ListSubmissionsWithDueDates(ctx)
	require.NoError(t, err)
	require.Len(t, withDue, 2)
	for _, submission := range withDue {
		require.NotNil(t, submission.Task.DueDate)
	}

	since := time.Now().UTC().Add(-time.Hour)
	recent, err := analytics.ListTasksCreatedSince(ctx, since)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	none, err := analytics.ListTasksCreatedSince(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.Empty(t, none)
}
