package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/courseloop/coursework-api/internal/models"
)

func TestStudentRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStudentRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.Student{Name: "Ada", Email: "ada@example.com", TeacherID: 1}).Error)
	require.NoError(t, db.Create(&models.Student{Name: "Ben", Email: "ben@example.com", TeacherID: 1}).Error)
	require.NoError(t, db.Create(&models.Student{Name: "Cleo", Email: "cleo@example.com", TeacherID: 2}).Error)

	student, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Ada", student.Name)

	_, err = repo.GetByID(ctx, 99)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	roster, err := repo.ListByTeacher(ctx, 1)
	require.NoError(t, err)
	require.Len(t, roster, 2)
}
