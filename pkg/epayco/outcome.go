package epayco

import "strings"

// OutcomeKind is the closed set of normalized provider results.
type OutcomeKind string

const (
	OutcomeAccepted      OutcomeKind = "accepted"
	OutcomePendingAtBank OutcomeKind = "pending_at_bank"
	OutcomeRejected      OutcomeKind = "rejected"
	OutcomeFailed        OutcomeKind = "failed"
)

// Outcome is a normalized provider-side transaction result.
type Outcome struct {
	Kind            OutcomeKind
	ProviderRef     string
	TransactionID   string
	ResponseCode    string
	ResponseMessage string
	BankName        string
	Recognized      bool
}

// NormalizeState maps an ePayco estado string onto the closed outcome set.
// Unrecognized states report Recognized=false and normalize to
// OutcomePendingAtBank so a bad provider payload can never terminate a payment.
func NormalizeState(estado string) (OutcomeKind, bool) {
	switch strings.ToLower(strings.TrimSpace(estado)) {
	case "aceptada", "aprobada":
		return OutcomeAccepted, true
	case "pendiente":
		return OutcomePendingAtBank, true
	case "rechazada":
		return OutcomeRejected, true
	case "fallida", "abandonada", "cancelada", "expirada":
		return OutcomeFailed, true
	}
	return OutcomePendingAtBank, false
}

// NormalizeResponseCode maps the numeric x_cod_response onto the outcome set.
func NormalizeResponseCode(code string) (OutcomeKind, bool) {
	switch strings.TrimSpace(code) {
	case "1":
		return OutcomeAccepted, true
	case "2":
		return OutcomeRejected, true
	case "3":
		return OutcomePendingAtBank, true
	case "4", "6", "10", "11":
		return OutcomeFailed, true
	}
	return OutcomePendingAtBank, false
}
