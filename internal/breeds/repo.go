package breeds

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/andresvelasquez/ganaderia-backend/pkg/db/models"
)

// Repository exposes persistence helpers for the breed catalog.
type Repository interface {
	Create(ctx context.Context, breed *models.Breed) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Breed, error)
	List(ctx context.Context) ([]models.Breed, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a breeds repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Create(ctx context.Context, breed *models.Breed) error {
	return r.db.WithContext(ctx).Create(breed).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Breed, error) {
	var breed models.Breed
	if err := r.db.WithContext(ctx).First(&breed, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &breed, nil
}

func (r *repositoryImpl) List(ctx context.Context) ([]models.Breed, error) {
	var breeds []models.Breed
	err := r.db.WithContext(ctx).Order("name ASC").Find(&breeds).Error
	return breeds, err
}
