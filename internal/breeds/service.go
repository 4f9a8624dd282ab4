package breeds

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/andresvelasquez/ganaderia-backend/pkg/db"
	"github.com/andresvelasquez/ganaderia-backend/pkg/db/models"
	pkgerrors "github.com/andresvelasquez/ganaderia-backend/pkg/errors"
	"github.com/andresvelasquez/ganaderia-backend/pkg/logger"
)

// Service manages the cattle breed catalog.
type Service interface {
	Create(ctx context.Context, params CreateParams) (*models.Breed, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Breed, error)
	List(ctx context.Context) ([]models.Breed, error)
}

// CreateParams describes a breed to register.
type CreateParams struct {
	Name string
	Code string
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService validates dependencies and returns the breeds service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "breeds repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, params CreateParams) (*models.Breed, error) {
	name := strings.TrimSpace(params.Name)
	code := strings.ToUpper(strings.TrimSpace(params.Code))
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "breed name required")
	}
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "breed code required")
	}

	breed := &models.Breed{Name: name, Code: code}
	if err := s.repo.Create(ctx, breed); err != nil {
		if db.IsUniqueViolation(err, "ux_breeds") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "breed already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create breed")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"breed_id":   breed.ID.String(),
		"breed_code": breed.Code,
	})
	s.logg.Info(logCtx, "breed registered")
	return breed, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Breed, error) {
	breed, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "breed not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load breed")
	}
	return breed, nil
}

func (s *service) List(ctx context.Context) ([]models.Breed, error) {
	breeds, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list breeds")
	}
	return breeds, nil
}
