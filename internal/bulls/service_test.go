package bulls

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/andresvelasquez/ganaderia-backend/pkg/db/models"
	pkgerrors "github.com/andresvelasquez/ganaderia-backend/pkg/errors"
	"github.com/andresvelasquez/ganaderia-backend/pkg/logger"
	"github.com/andresvelasquez/ganaderia-backend/pkg/pagination"
)

type fakeBullRepo struct {
	createErr error
	created   *models.Bull
	byID      map[uuid.UUID]*models.Bull
	updated   map[string]any
	updateOK  bool
}

func (f *fakeBullRepo) Create(ctx context.Context, bull *models.Bull) error {
	if f.createErr != nil {
		return f.createErr
	}
	bull.ID = uuid.New()
	f.created = bull
	if f.byID == nil {
		f.byID = map[uuid.UUID]*models.Bull{}
	}
	f.byID[bull.ID] = bull
	return nil
}

func (f *fakeBullRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Bull, error) {
	if bull, ok := f.byID[id]; ok {
		return bull, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBullRepo) List(ctx context.Context, params listBullsParams) ([]models.Bull, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (f *fakeBullRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	f.updated = fields
	return f.updateOK, nil
}

type fakeBreedFinder struct {
	known map[uuid.UUID]bool
}

func (f *fakeBreedFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.Breed, error) {
	if f.known[id] {
		return &models.Breed{ID: id}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newBullService(t *testing.T, repo Repository, breeds breedFinder) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Breeds: breeds,
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateRegistersActiveBull(t *testing.T) {
	breedID := uuid.New()
	repo := &fakeBullRepo{}
	svc := newBullService(t, repo, &fakeBreedFinder{known: map[uuid.UUID]bool{breedID: true}})

	bull, err := svc.Create(context.Background(), CreateParams{
		Name:               " Tornado ",
		RegistrationNumber: " co-123 ",
		BreedID:            breedID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if bull.Name != "Tornado" {
		t.Fatalf("unexpected name %q", bull.Name)
	}
	if bull.RegistrationNumber != "CO-123" {
		t.Fatalf("unexpected registration %q", bull.RegistrationNumber)
	}
	if !bull.Active {
		t.Fatal("expected new bull to be active")
	}
}

func TestCreateRejectsUnknownBreed(t *testing.T) {
	svc := newBullService(t, &fakeBullRepo{}, &fakeBreedFinder{})

	_, err := svc.Create(context.Background(), CreateParams{
		Name:               "Tornado",
		RegistrationNumber: "CO-123",
		BreedID:            uuid.New(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateMapsDuplicateRegistrationToConflict(t *testing.T) {
	breedID := uuid.New()
	repo := &fakeBullRepo{createErr: errors.New(`duplicate key value violates unique constraint "ux_bulls_registration_number"`)}
	svc := newBullService(t, repo, &fakeBreedFinder{known: map[uuid.UUID]bool{breedID: true}})

	_, err := svc.Create(context.Background(), CreateParams{
		Name:               "Tornado",
		RegistrationNumber: "CO-123",
		BreedID:            breedID,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdateRequiresFields(t *testing.T) {
	svc := newBullService(t, &fakeBullRepo{}, &fakeBreedFinder{})

	_, err := svc.Update(context.Background(), UpdateParams{BullID: uuid.New()})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateMapsMissingToNotFound(t *testing.T) {
	active := false
	svc := newBullService(t, &fakeBullRepo{updateOK: false}, &fakeBreedFinder{})

	_, err := svc.Update(context.Background(), UpdateParams{BullID: uuid.New(), Active: &active})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateDeactivates(t *testing.T) {
	active := false
	repo := &fakeBullRepo{updateOK: true}
	bullID := uuid.New()
	repo.byID = map[uuid.UUID]*models.Bull{bullID: {ID: bullID, Active: false}}
	svc := newBullService(t, repo, &fakeBreedFinder{})

	bull, err := svc.Update(context.Background(), UpdateParams{BullID: bullID, Active: &active})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got, ok := repo.updated["active"].(bool); !ok || got {
		t.Fatalf("expected active=false update, got %v", repo.updated)
	}
	if bull.Active {
		t.Fatal("expected returned bull to be inactive")
	}
}
