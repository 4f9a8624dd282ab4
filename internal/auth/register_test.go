package auth

import (
	"context"
	"testing"

	"github.com/andresvelasquez/ganaderia-backend/internal/users"
	"github.com/andresvelasquez/ganaderia-backend/pkg/config"
	pkgmodels "github.com/andresvelasquez/ganaderia-backend/pkg/db/models"
	"github.com/andresvelasquez/ganaderia-backend/pkg/enums"
	pkgerrors "github.com/andresvelasquez/ganaderia-backend/pkg/errors"
	"github.com/andresvelasquez/ganaderia-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubUserRepository struct {
	data      map[string]*pkgmodels.User
	created   *pkgmodels.User
	createErr error
}

func newStubUserRepository() *stubUserRepository {
	return &stubUserRepository{data: map[string]*pkgmodels.User{}}
}

func (s *stubUserRepository) FindByEmail(ctx context.Context, email string) (*pkgmodels.User, error) {
	if user, ok := s.data[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepository) Create(ctx context.Context, dto users.CreateUserDTO) (*pkgmodels.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	s.data[dto.Email] = user
	s.created = user
	return user, nil
}

func newRegisterTestSetup(t *testing.T) (RegisterService, *stubUserRepository) {
	t.Helper()
	userRepo := newStubUserRepository()
	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner: stubTxRunner{},
		UserRepoFactory: func(tx *gorm.DB) registerUserRepository {
			return userRepo
		},
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}
	return svc, userRepo
}

func sampleRegisterRequest(email string) RegisterRequest {
	phone := "+573001234567"
	city := "Medellin"
	return RegisterRequest{
		FirstName:    "Jaime",
		LastName:     "Rivera",
		Email:        email,
		Password:     "Secret123!",
		DocumentType: enums.DocumentTypeCC,
		Document:     "1034567890",
		Phone:        &phone,
		City:         &city,
	}
}

func TestRegisterCreatesClientUser(t *testing.T) {
	svc, userRepo := newRegisterTestSetup(t)
	req := sampleRegisterRequest("nuevo@example.com")

	resp, err := svc.Register(context.Background(), req)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	created := userRepo.created
	if created == nil {
		t.Fatalf("expected user to be created")
	}
	if created.Role != enums.UserRoleClient {
		t.Fatalf("expected client role, got %s", created.Role)
	}
	if !created.IsActive {
		t.Fatalf("expected new user to be active")
	}
	if created.PasswordHash == req.Password {
		t.Fatalf("password stored in plain text")
	}
	valid, err := security.VerifyPassword(req.Password, created.PasswordHash)
	if err != nil || !valid {
		t.Fatalf("stored hash does not verify: valid=%v err=%v", valid, err)
	}
	if resp.User == nil || resp.User.ID != created.ID {
		t.Fatalf("expected created user in response")
	}
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, userRepo := newRegisterTestSetup(t)
	req := sampleRegisterRequest("  Nuevo@Example.COM ")

	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if userRepo.created.Email != "nuevo@example.com" {
		t.Fatalf("expected normalized email, got %q", userRepo.created.Email)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, userRepo := newRegisterTestSetup(t)
	userRepo.data["existente@example.com"] = &pkgmodels.User{
		ID:    uuid.New(),
		Email: "existente@example.com",
	}

	_, err := svc.Register(context.Background(), sampleRegisterRequest("existente@example.com"))
	if err == nil {
		t.Fatalf("expected conflict for duplicate email")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestRegisterRejectsInvalidDocumentType(t *testing.T) {
	svc, _ := newRegisterTestSetup(t)
	req := sampleRegisterRequest("nuevo@example.com")
	req.DocumentType = enums.DocumentType("DNI")

	_, err := svc.Register(context.Background(), req)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
