package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andresvelasquez/ganaderia-backend/pkg/db/models"
	"github.com/andresvelasquez/ganaderia-backend/pkg/enums"
	"github.com/andresvelasquez/ganaderia-backend/pkg/epayco"
)

// InitiateParams carries everything needed to open a payment for an invoice.
type InitiateParams struct {
	InvoiceID uuid.UUID
	ClientID  uuid.UUID
	BankCode  string

	PayerDocumentType enums.DocumentType
	PayerDocument     string
	PayerFirstName    string
	PayerLastName     string
	PayerEmail        string
	PayerPhone        string
	PayerAddress      string
	PayerCity         string
	PayerIP           string
}

// InitiateResult is what the boundary returns to start the bank flow.
type InitiateResult struct {
	Payment         *models.PaymentIntent
	BankRedirectURL string
}

// GetParams scopes a single-payment lookup. A nil ClientID means the
// caller may read any payment.
type GetParams struct {
	PaymentID uuid.UUID
	ClientID  *uuid.UUID
}

// ListParams configures payment listing for one client.
type ListParams struct {
	ClientID  uuid.UUID
	Status    *enums.PaymentStatus
	InvoiceID *uuid.UUID
	Limit     int
	Cursor    string
}

// ListResult wraps returned payments and the cursor for the next page.
type ListResult struct {
	Items  []models.PaymentIntent `json:"items"`
	Cursor string                 `json:"cursor"`
}

// CancelParams scopes a cancel request to the owning client.
type CancelParams struct {
	PaymentID uuid.UUID
	ClientID  *uuid.UUID
}

// ProviderOutcome is the normalized provider result fed to the
// reconciliation path, regardless of which channel delivered it.
type ProviderOutcome struct {
	Kind            epayco.OutcomeKind
	ProviderRef     string
	TransactionID   string
	ResponseCode    string
	ResponseMessage string
	BankName        string
	FailureReason   string
	Recognized      bool
	OccurredAt      time.Time
}

// PaymentView is the API shape of a payment intent.
type PaymentView struct {
	ID              uuid.UUID           `json:"id"`
	InvoiceID       uuid.UUID           `json:"invoice_id"`
	Status          enums.PaymentStatus `json:"status"`
	Method          string              `json:"method"`
	Currency        enums.Currency      `json:"currency"`
	Amount          decimal.Decimal     `json:"amount"`
	TaxAmount       decimal.Decimal     `json:"tax_amount"`
	TaxBase         decimal.Decimal     `json:"tax_base"`
	BankCode        string              `json:"bank_code"`
	BankName        *string             `json:"bank_name,omitempty"`
	BankRedirectURL *string             `json:"bank_redirect_url,omitempty"`
	ProviderRef     *string             `json:"provider_ref,omitempty"`
	FailureReason   *string             `json:"failure_reason,omitempty"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// NewPaymentView maps a persisted intent onto its API shape.
func NewPaymentView(intent *models.PaymentIntent) PaymentView {
	return PaymentView{
		ID:              intent.ID,
		InvoiceID:       intent.InvoiceID,
		Status:          intent.Status,
		Method:          intent.Method,
		Currency:        intent.Currency,
		Amount:          intent.Amount,
		TaxAmount:       intent.TaxAmount,
		TaxBase:         intent.TaxBase,
		BankCode:        intent.BankCode,
		BankName:        intent.BankName,
		BankRedirectURL: intent.BankRedirectURL,
		ProviderRef:     intent.ProviderRef,
		FailureReason:   intent.FailureReason,
		PaidAt:          intent.PaidAt,
		CreatedAt:       intent.CreatedAt,
		UpdatedAt:       intent.UpdatedAt,
	}
}
