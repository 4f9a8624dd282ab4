package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andresvelasquez/ganaderia-backend/pkg/enums"
)

// PaymentStatusEvent carries the fields shared by every terminal payment transition.
type PaymentStatusEvent struct {
	PaymentID     uuid.UUID           `json:"payment_id"`
	InvoiceID     uuid.UUID           `json:"invoice_id"`
	ClientID      uuid.UUID           `json:"client_id"`
	InvoiceNumber string              `json:"invoice_number"`
	Status        enums.PaymentStatus `json:"status"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      enums.Currency      `json:"currency"`
	ProviderRef   *string             `json:"provider_ref,omitempty"`
	FailureReason *string             `json:"failure_reason,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

// InvoicePaidEvent is emitted when an invoice settles through a completed payment.
type InvoicePaidEvent struct {
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	ClientID      uuid.UUID       `json:"client_id"`
	InvoiceNumber string          `json:"invoice_number"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAt        time.Time       `json:"paid_at"`
}

// InvoiceIssuedEvent announces a freshly created invoice to the client.
type InvoiceIssuedEvent struct {
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	ClientID      uuid.UUID       `json:"client_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount"`
	DueAt         *time.Time      `json:"due_at,omitempty"`
	IssuedAt      time.Time       `json:"issued_at"`
}
