package models

import (
	"time"

	"github.com/google/uuid"
)

// Breed is a catalog entry for a cattle breed.
type Breed struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"type:text;not null;uniqueIndex"`
	Code      string    `gorm:"type:text;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"type:timestamptz;default:now()"`
	UpdatedAt time.Time `gorm:"type:timestamptz;default:now()"`
}
