package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andresvelasquez/ganaderia-backend/pkg/enums"
)

// PaymentIntent tracks one attempt to settle an invoice through PSE.
//
// The partial unique index ux_payment_intents_invoice_in_flight guarantees at
// most one non-terminal intent per invoice. ProviderRef is set exactly once,
// after the gateway acknowledges the charge.
type PaymentIntent struct {
	ID        uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceID uuid.UUID           `gorm:"type:uuid;not null;index"`
	ClientID  uuid.UUID           `gorm:"type:uuid;not null;index"`
	Status    enums.PaymentStatus `gorm:"type:payment_status;not null;default:pending"`
	Method    string              `gorm:"type:text;not null;default:PSE"`
	Currency  enums.Currency      `gorm:"type:currency;not null;default:COP"`

	Amount    decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	TaxAmount decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	TaxBase   decimal.Decimal `gorm:"type:numeric(14,2);not null"`

	PayerDocumentType enums.DocumentType `gorm:"type:document_type;not null"`
	PayerDocument     string             `gorm:"type:text;not null"`
	PayerFirstName    string             `gorm:"type:text;not null"`
	PayerLastName     string             `gorm:"type:text;not null"`
	PayerEmail        string             `gorm:"type:text;not null"`
	PayerPhone        string             `gorm:"type:text;not null"`
	PayerAddress      string             `gorm:"type:text;not null"`
	PayerCity         string             `gorm:"type:text;not null"`
	PayerIP           string             `gorm:"type:text;not null"`

	BankCode        string  `gorm:"type:text;not null"`
	BankName        *string `gorm:"type:text"`
	BankRedirectURL *string `gorm:"type:text"`

	ProviderRef             *string `gorm:"type:text;uniqueIndex"`
	ProviderResponseCode    *string `gorm:"type:text"`
	ProviderResponseMessage *string `gorm:"type:text"`
	FailureReason           *string `gorm:"type:text"`

	PaidAt    *time.Time `gorm:"type:timestamptz"`
	CreatedAt time.Time  `gorm:"type:timestamptz;default:now()"`
	UpdatedAt time.Time  `gorm:"type:timestamptz;default:now()"`
}
