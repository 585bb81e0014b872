package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/courseloop/coursework-api/internal/models"
)

// ErrVersionConflict indicates a conditional update lost the race: the stored
// version no longer matches the one the caller read.
var ErrVersionConflict = errors.New("submission was modified concurrently")

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	TaskID    *uint
	StudentID *uint
	Submitted *bool
	Graded    *bool
}

// SubmissionRepository defines data operations for submissions. All mutations
// after creation go through UpdateConditional so per-pair operations are
// serialized by optimistic compare-and-swap rather than locks.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByPair(ctx context.Context, taskID, studentID uint) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	UpdateConditional(ctx context.Context, submission *models.Submission, expectedVersion int64) error
	ListByTask(ctx context.Context, taskID uint) ([]models.Submission, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).Preload("Task")
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.baseQuery(ctx)

	if filter.TaskID != nil {
		query = query.Where("task_id = ?", *filter.TaskID)
	}
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.Submitted != nil {
		query = query.Where("is_submitted = ?", *filter.Submitted)
	}
	if filter.Graded != nil {
		if *filter.Graded {
			query = query.Where("grade IS NOT NULL")
		} else {
			query = query.Where("grade IS NULL")
		}
	}

	var submissions []models.Submission
	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) GetByPair(ctx context.Context, taskID, studentID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Where("task_id = ? AND student_id = ?", taskID, studentID).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

// UpdateConditional persists all mutable fields only if the stored version
// still equals expectedVersion, bumping the version in the same statement.
// A zero-row update means another operation on the pair committed first.
func (r *submissionRepository) UpdateConditional(ctx context.Context, submission *models.Submission, expectedVersion int64) error {
	submission.Version = expectedVersion + 1

	result := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND version = ?", submission.ID, expectedVersion).
		Select("version", "is_submitted", "submitted_at", "file_blob_id", "file_name", "file_type", "grade", "feedback", "graded_at").
		Updates(submission)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *submissionRepository) ListByTask(ctx context.Context, taskID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Find(&submissions).Error
	return submissions, err
}
