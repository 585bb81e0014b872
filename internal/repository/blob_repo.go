package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/courseloop/coursework-api/internal/models"
)

// BlobRepository persists metadata rows for stored binary objects.
type BlobRepository interface {
	Create(ctx context.Context, blob *models.Blob) error
	GetByID(ctx context.Context, id string) (models.Blob, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type blobRepository struct {
	db *gorm.DB
}

// NewBlobRepository constructs a repository for blob metadata.
func NewBlobRepository(db *gorm.DB) BlobRepository {
	return &blobRepository{db: db}
}

func (r *blobRepository) Create(ctx context.Context, blob *models.Blob) error {
	return r.db.WithContext(ctx).Create(blob).Error
}

func (r *blobRepository) GetByID(ctx context.Context, id string) (models.Blob, error) {
	var blob models.Blob
	if err := r.db.WithContext(ctx).First(&blob, "id = ?", id).Error; err != nil {
		return models.Blob{}, err
	}
	return blob, nil
}

// Delete removes the metadata row and reports whether a row existed.
func (r *blobRepository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.Blob{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
