package models

import (
	"time"

	"github.com/google/uuid"
)

// Bull is a donor animal in the genetics catalog.
type Bull struct {
	ID                 uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string     `gorm:"type:text;not null"`
	RegistrationNumber string     `gorm:"type:text;not null;uniqueIndex"`
	BreedID            uuid.UUID  `gorm:"type:uuid;not null;index"`
	Breed              *Breed     `gorm:"foreignKey:BreedID"`
	BirthDate          *time.Time `gorm:"type:date"`
	Notes              *string    `gorm:"type:text"`
	Active             bool       `gorm:"not null;default:true"`
	CreatedAt          time.Time  `gorm:"type:timestamptz;default:now()"`
	UpdatedAt          time.Time  `gorm:"type:timestamptz;default:now()"`
}
