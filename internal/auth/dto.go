package auth

import (
	"github.com/andresvelasquez/ganaderia-backend/internal/users"
	"github.com/andresvelasquez/ganaderia-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the token pair and user produced by a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

// RegisterRequest contains the payload required to onboard a new client account.
type RegisterRequest struct {
	FirstName    string             `json:"first_name" validate:"required"`
	LastName     string             `json:"last_name" validate:"required"`
	Email        string             `json:"email" validate:"required,email"`
	Password     string             `json:"password" validate:"required,min=8"`
	DocumentType enums.DocumentType `json:"document_type" validate:"required"`
	Document     string             `json:"document" validate:"required"`
	Phone        *string            `json:"phone,omitempty"`
	Address      *string            `json:"address,omitempty"`
	City         *string            `json:"city,omitempty"`
}

// RegisterResponse returns the created account.
type RegisterResponse struct {
	User *users.UserDTO `json:"user"`
}
