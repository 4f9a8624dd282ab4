package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/andresvelasquez/ganaderia-backend/pkg/enums"
)

// User is an account that can own invoices and initiate payments.
type User struct {
	ID           uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string             `gorm:"type:citext;not null;uniqueIndex"`
	PasswordHash string             `gorm:"type:text;not null"`
	Role         enums.UserRole     `gorm:"type:user_role;not null;default:client"`
	FirstName    string             `gorm:"type:text;not null"`
	LastName     string             `gorm:"type:text;not null"`
	DocumentType enums.DocumentType `gorm:"type:document_type;not null"`
	Document     string             `gorm:"type:text;not null"`
	Phone        *string            `gorm:"type:text"`
	Address      *string            `gorm:"type:text"`
	City         *string            `gorm:"type:text"`
	IsActive     bool               `gorm:"not null;default:true"`
	LastLoginAt  *time.Time         `gorm:"type:timestamptz"`
	CreatedAt    time.Time          `gorm:"type:timestamptz;default:now()"`
	UpdatedAt    time.Time          `gorm:"type:timestamptz;default:now()"`
}
