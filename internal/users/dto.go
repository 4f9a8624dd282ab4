package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/andresvelasquez/ganaderia-backend/pkg/db/models"
	"github.com/andresvelasquez/ganaderia-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID           uuid.UUID          `json:"id"`
	Email        string             `json:"email"`
	Role         enums.UserRole     `json:"role"`
	FirstName    string             `json:"first_name"`
	LastName     string             `json:"last_name"`
	DocumentType enums.DocumentType `json:"document_type"`
	Document     string             `json:"document"`
	Phone        *string            `json:"phone,omitempty"`
	Address      *string            `json:"address,omitempty"`
	City         *string            `json:"city,omitempty"`
	IsActive     bool               `json:"is_active"`
	LastLoginAt  *time.Time         `json:"last_login_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	Role         enums.UserRole
	FirstName    string
	LastName     string
	DocumentType enums.DocumentType
	Document     string
	Phone        *string
	Address      *string
	City         *string
	IsActive     *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		Role:         u.Role,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		DocumentType: u.DocumentType,
		Document:     u.Document,
		Phone:        u.Phone,
		Address:      u.Address,
		City:         u.City,
		IsActive:     u.IsActive,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	role := c.Role
	if role == "" {
		role = enums.UserRoleClient
	}

	return &models.User{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Role:         role,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		DocumentType: c.DocumentType,
		Document:     c.Document,
		Phone:        c.Phone,
		Address:      c.Address,
		City:         c.City,
		IsActive:     isActive,
	}
}
