package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/courseloop/coursework-api/internal/models"
)

// StudentRepository resolves the learner records used for audience checks.
type StudentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Student, error)
	ListByTeacher(ctx context.Context, teacherID uint) ([]models.Student, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository instantiates the repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}
	return student, nil
}

func (r *studentRepository) ListByTeacher(ctx context.Context, teacherID uint) ([]models.Student, error) {
	var students []models.Student
	err := r.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("id ASC").
		Find(&students).Error
	return students, err
}
