package epayco

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"strings"

	pkgerrors "github.com/andresvelasquez/ganaderia-backend/pkg/errors"
)

// WebhookNotification is a confirmation callback as ePayco posts it,
// before any trust decision has been made.
type WebhookNotification struct {
	RefPayco      string
	TransactionID string
	InvoiceNumber string
	Amount        string
	Currency      string
	State         string
	ResponseCode  string
	Response      string
	BankName      string
	Signature     string
}

// ParseWebhook extracts a notification from the posted form values.
// It only checks structural completeness; VerifySignature decides trust.
func ParseWebhook(form url.Values) (*WebhookNotification, error) {
	notification := &WebhookNotification{
		RefPayco:      strings.TrimSpace(form.Get("x_ref_payco")),
		TransactionID: strings.TrimSpace(form.Get("x_transaction_id")),
		InvoiceNumber: strings.TrimSpace(form.Get("x_id_invoice")),
		Amount:        strings.TrimSpace(form.Get("x_amount")),
		Currency:      strings.TrimSpace(form.Get("x_currency_code")),
		State:         strings.TrimSpace(form.Get("x_transaction_state")),
		ResponseCode:  strings.TrimSpace(form.Get("x_cod_response")),
		Response:      strings.TrimSpace(form.Get("x_response")),
		BankName:      strings.TrimSpace(form.Get("x_bank_name")),
		Signature:     strings.TrimSpace(form.Get("x_signature")),
	}
	if notification.RefPayco == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook missing x_ref_payco")
	}
	if notification.Signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook missing x_signature")
	}
	return notification, nil
}

// Outcome normalizes the notification state, preferring the textual state
// and falling back to the numeric response code.
func (n *WebhookNotification) Outcome() (OutcomeKind, bool) {
	if n.State != "" {
		return NormalizeState(n.State)
	}
	return NormalizeResponseCode(n.ResponseCode)
}

// ComputeSignature builds the SHA-256 signature ePayco signs callbacks
// with: custId^pKey^refPayco^transactionId^amount^currencyCode.
func ComputeSignature(customerID, pKey, refPayco, transactionID, amount, currency string) string {
	material := strings.Join([]string{customerID, pKey, refPayco, transactionID, amount, currency}, "^")
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks the notification signature in constant time.
func (n *WebhookNotification) VerifySignature(customerID, pKey string) error {
	expected := ComputeSignature(customerID, pKey, n.RefPayco, n.TransactionID, n.Amount, n.Currency)
	provided := strings.ToLower(n.Signature)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) != 1 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature mismatch")
	}
	return nil
}
