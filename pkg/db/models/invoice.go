package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andresvelasquez/ganaderia-backend/pkg/enums"
)

// Invoice is a billing document issued to a client for genetics services.
type Invoice struct {
	ID            uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceNumber string              `gorm:"type:text;not null;uniqueIndex"`
	ClientID      uuid.UUID           `gorm:"type:uuid;not null;index"`
	Status        enums.InvoiceStatus `gorm:"type:invoice_status;not null;default:pending"`
	Currency      enums.Currency      `gorm:"type:currency;not null;default:COP"`
	AmountBase    decimal.Decimal     `gorm:"type:numeric(14,2);not null"`
	VATRate       decimal.Decimal     `gorm:"type:numeric(5,4);not null"`
	VATAmount     decimal.Decimal     `gorm:"type:numeric(14,2);not null"`
	AmountTotal   decimal.Decimal     `gorm:"type:numeric(14,2);not null"`
	Description   *string             `gorm:"type:text"`
	IssuedAt      time.Time           `gorm:"type:timestamptz;not null"`
	DueAt         *time.Time          `gorm:"type:timestamptz"`
	PaidAt        *time.Time          `gorm:"type:timestamptz"`
	Items         []InvoiceLineItem   `gorm:"foreignKey:InvoiceID"`
	CreatedAt     time.Time           `gorm:"type:timestamptz;default:now()"`
	UpdatedAt     time.Time           `gorm:"type:timestamptz;default:now()"`
}

// InvoiceLineItem is a single billed concept on an invoice.
type InvoiceLineItem struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Concept    string          `gorm:"type:text;not null"`
	Quantity   int             `gorm:"not null;default:1"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Amount     decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	AppliesVAT bool            `gorm:"not null;default:true"`
	CreatedAt  time.Time       `gorm:"type:timestamptz;default:now()"`
}
