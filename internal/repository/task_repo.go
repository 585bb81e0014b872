package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/courseloop/coursework-api/internal/models"
)

// TaskFilter narrows task queries.
type TaskFilter struct {
	OwnerID *uint
	Kind    *models.TaskKind
}

// TaskRepository defines data operations for tasks and their audiences.
type TaskRepository interface {
	List(ctx context.Context, filter TaskFilter) ([]models.Task, error)
	GetByID(ctx context.Context, id uint) (models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uint) error
	AddAssignees(ctx context.Context, taskID uint, studentIDs []uint) error
	HasAssignee(ctx context.Context, taskID, studentID uint) (bool, error)
	ListAssignees(ctx context.Context, taskID uint) ([]models.TaskAssignee, error)
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository instantiates the repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	query := r.db.WithContext(ctx).Model(&models.Task{})

	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}

	var tasks []models.Task
	if err := query.Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) GetByID(ctx context.Context, id uint) (models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

// Delete removes the task together with its assignee and submission rows in
// one transaction. Blob cleanup is the caller's concern.
func (r *taskRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Submission{}, "task_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.TaskAssignee{}, "task_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, id).Error
	})
}

func (r *taskRepository) AddAssignees(ctx context.Context, taskID uint, studentIDs []uint) error {
	if len(studentIDs) == 0 {
		return nil
	}

	assignees := make([]models.TaskAssignee, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		assignees = append(assignees, models.TaskAssignee{TaskID: taskID, StudentID: studentID})
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&assignees).Error
}

func (r *taskRepository) HasAssignee(ctx context.Context, taskID, studentID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TaskAssignee{}).
		Where("task_id = ? AND student_id = ?", taskID, studentID).
		Count(&count).Error
	return count > 0, err
}

func (r *taskRepository) ListAssignees(ctx context.Context, taskID uint) ([]models.TaskAssignee, error) {
	var assignees []models.TaskAssignee
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("student_id ASC").
		Find(&assignees).Error
	return assignees, err
}
