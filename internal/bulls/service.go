package bulls

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/andresvelasquez/ganaderia-backend/pkg/db"
	"github.com/andresvelasquez/ganaderia-backend/pkg/db/models"
	pkgerrors "github.com/andresvelasquez/ganaderia-backend/pkg/errors"
	"github.com/andresvelasquez/ganaderia-backend/pkg/logger"
	"github.com/andresvelasquez/ganaderia-backend/pkg/pagination"
)

type breedFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Breed, error)
}

// Service manages donor bulls in the genetics catalog.
type Service interface {
	Create(ctx context.Context, params CreateParams) (*models.Bull, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Bull, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Update(ctx context.Context, params UpdateParams) (*models.Bull, error)
}

// CreateParams describes a bull to register.
type CreateParams struct {
	Name               string
	RegistrationNumber string
	BreedID            uuid.UUID
	BirthDate          *time.Time
	Notes              *string
}

// ListParams configures catalog listing.
type ListParams struct {
	BreedID    *uuid.UUID
	ActiveOnly bool
	Limit      int
	Cursor     string
}

// ListResult wraps returned bulls and the cursor for the next page.
type ListResult struct {
	Items  []models.Bull `json:"items"`
	Cursor string        `json:"cursor"`
}

// UpdateParams holds the mutable bull fields. Nil means keep.
type UpdateParams struct {
	BullID uuid.UUID
	Name   *string
	Notes  *string
	Active *bool
}

// ServiceParams wires bull catalog dependencies.
type ServiceParams struct {
	Repo   Repository
	Breeds breedFinder
	Logger *logger.Logger
}

type service struct {
	repo   Repository
	breeds breedFinder
	logg   *logger.Logger
}

// NewService validates dependencies and returns the bulls service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bulls repository required")
	}
	if params.Breeds == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "breeds repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: params.Repo, breeds: params.Breeds, logg: params.Logger}, nil
}

func (s *service) Create(ctx context.Context, params CreateParams) (*models.Bull, error) {
	name := strings.TrimSpace(params.Name)
	registration := strings.ToUpper(strings.TrimSpace(params.RegistrationNumber))
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bull name required")
	}
	if registration == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "registration number required")
	}
	if params.BreedID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "breed id required")
	}

	if _, err := s.breeds.FindByID(ctx, params.BreedID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "breed not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load breed")
	}

	bull := &models.Bull{
		Name:               name,
		RegistrationNumber: registration,
		BreedID:            params.BreedID,
		BirthDate:          params.BirthDate,
		Notes:              params.Notes,
		Active:             true,
	}
	if err := s.repo.Create(ctx, bull); err != nil {
		if db.IsUniqueViolation(err, "ux_bulls_registration_number") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "registration number already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bull")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"bull_id":      bull.ID.String(),
		"registration": bull.RegistrationNumber,
	})
	s.logg.Info(logCtx, "bull registered")
	return bull, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Bull, error) {
	bull, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bull not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bull")
	}
	return bull, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listBullsParams{
		BreedID:    params.BreedID,
		ActiveOnly: params.ActiveOnly,
		Limit:      params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bulls")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) Update(ctx context.Context, params UpdateParams) (*models.Bull, error) {
	if params.BullID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bull id required")
	}

	fields := map[string]any{}
	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "bull name required")
		}
		fields["name"] = name
	}
	if params.Notes != nil {
		fields["notes"] = *params.Notes
	}
	if params.Active != nil {
		fields["active"] = *params.Active
	}
	if len(fields) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	fields["updated_at"] = time.Now().UTC()

	updated, err := s.repo.Update(ctx, params.BullID, fields)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update bull")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bull not found")
	}
	return s.Get(ctx, params.BullID)
}
