package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/courseloop/coursework-api/internal/models"
)

// AnalyticsRepository supplies the batch reads the aggregation engine runs
// over. Reads are plain snapshots; in-flight per-pair mutations may or may
// not be visible, which the reports accept.
type AnalyticsRepository interface {
	ListGradedSubmissionsByKind(ctx context.Context, kind models.TaskKind) ([]models.Submission, error)
	ListSubmissionsWithDueDates(ctx context.Context) ([]models.Submission, error)
	ListTasksCreatedSince(ctx context.Context, since time.Time) ([]models.Task, error)
}

type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository constructs the analytics repository.
func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) ListGradedSubmissionsByKind(ctx context.Context, kind models.TaskKind) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Joins("JOIN tasks ON tasks.id = submissions.task_id").
		Where("tasks.kind = ?", kind).
		Where("submissions.grade IS NOT NULL").
		Preload("Task").
		Find(&submissions).Error
	return submissions, err
}

func (r *analyticsRepository) ListSubmissionsWithDueDates(ctx context.Context) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Joins("JOIN tasks ON tasks.id = submissions.task_id").
		Where("tasks.due_date IS NOT NULL").
		Preload("Task").
		Find(&submissions).Error
	return submissions, err
}

func (r *analyticsRepository) ListTasksCreatedSince(ctx context.Context, since time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Find(&tasks).Error
	return tasks, err
}
