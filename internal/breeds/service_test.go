package breeds

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/andresvelasquez/ganaderia-backend/pkg/db/models"
	pkgerrors "github.com/andresvelasquez/ganaderia-backend/pkg/errors"
	"github.com/andresvelasquez/ganaderia-backend/pkg/logger"
)

type fakeBreedRepo struct {
	createErr error
	created   *models.Breed
	byID      map[uuid.UUID]*models.Breed
	listRows  []models.Breed
}

func (f *fakeBreedRepo) Create(ctx context.Context, breed *models.Breed) error {
	if f.createErr != nil {
		return f.createErr
	}
	breed.ID = uuid.New()
	f.created = breed
	return nil
}

func (f *fakeBreedRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Breed, error) {
	if breed, ok := f.byID[id]; ok {
		return breed, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBreedRepo) List(ctx context.Context) ([]models.Breed, error) {
	return f.listRows, nil
}

func newBreedService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateNormalizesCode(t *testing.T) {
	repo := &fakeBreedRepo{}
	svc := newBreedService(t, repo)

	breed, err := svc.Create(context.Background(), CreateParams{Name: " Brahman ", Code: " brm "})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if breed.Name != "Brahman" {
		t.Fatalf("unexpected name %q", breed.Name)
	}
	if breed.Code != "BRM" {
		t.Fatalf("unexpected code %q", breed.Code)
	}
}

func TestCreateRejectsMissingFields(t *testing.T) {
	svc := newBreedService(t, &fakeBreedRepo{})

	_, err := svc.Create(context.Background(), CreateParams{Name: "", Code: "BRM"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.Create(context.Background(), CreateParams{Name: "Brahman", Code: "  "})
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateMapsDuplicateToConflict(t *testing.T) {
	repo := &fakeBreedRepo{createErr: errors.New(`duplicate key value violates unique constraint "ux_breeds_code"`)}
	svc := newBreedService(t, repo)

	_, err := svc.Create(context.Background(), CreateParams{Name: "Brahman", Code: "BRM"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestGetMapsMissingToNotFound(t *testing.T) {
	svc := newBreedService(t, &fakeBreedRepo{})

	_, err := svc.Get(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
