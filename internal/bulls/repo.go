package bulls

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/andresvelasquez/ganaderia-backend/pkg/db/models"
	"github.com/andresvelasquez/ganaderia-backend/pkg/pagination"
)

// Repository exposes persistence helpers for the bull catalog.
type Repository interface {
	Create(ctx context.Context, bull *models.Bull) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Bull, error)
	List(ctx context.Context, params listBullsParams) ([]models.Bull, *pagination.Cursor, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a bulls repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listBullsParams struct {
	BreedID    *uuid.UUID
	ActiveOnly bool
	Limit      int
	Cursor     *pagination.Cursor
}

func (r *repositoryImpl) Create(ctx context.Context, bull *models.Bull) error {
	return r.db.WithContext(ctx).Create(bull).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Bull, error) {
	var bull models.Bull
	if err := r.db.WithContext(ctx).Preload("Breed").First(&bull, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bull, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listBullsParams) ([]models.Bull, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Bull{}).Preload("Breed")
	if params.BreedID != nil {
		query = query.Where("breed_id = ?", *params.BreedID)
	}
	if params.ActiveOnly {
		query = query.Where("active")
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var bulls []models.Bull
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&bulls).Error; err != nil {
		return nil, nil, err
	}

	if len(bulls) > normalized {
		next := bulls[normalized]
		bulls = bulls[:normalized]
		return bulls, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return bulls, nil, nil
}

func (r *repositoryImpl) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Bull{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
