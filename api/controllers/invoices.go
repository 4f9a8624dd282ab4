package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andresvelasquez/ganaderia-backend/api/responses"
	"github.com/andresvelasquez/ganaderia-backend/api/validators"
	"github.com/andresvelasquez/ganaderia-backend/internal/invoices"
	"github.com/andresvelasquez/ganaderia-backend/pkg/enums"
	pkgerrors "github.com/andresvelasquez/ganaderia-backend/pkg/errors"
	"github.com/andresvelasquez/ganaderia-backend/pkg/logger"
)

type createInvoiceRequest struct {
	ClientID    string                     `json:"client_id" validate:"required,uuid4"`
	Description string                     `json:"description" validate:"required"`
	DueAt       *time.Time                 `json:"due_at,omitempty"`
	Items       []createInvoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

type createInvoiceItemRequest struct {
	Concept    string          `json:"concept" validate:"required"`
	Quantity   int             `json:"quantity" validate:"required,min=1"`
	UnitPrice  decimal.Decimal `json:"unit_price" validate:"required"`
	AppliesVAT bool            `json:"applies_vat"`
}

// CreateInvoice issues an invoice against a client account. Admin only.
func CreateInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createInvoiceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		clientID, err := uuid.Parse(req.ClientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid client id"))
			return
		}

		items := make([]invoices.LineItemParams, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, invoices.LineItemParams{
				Concept:    validators.SanitizeString(item.Concept, 200),
				Quantity:   item.Quantity,
				UnitPrice:  item.UnitPrice,
				AppliesVAT: item.AppliesVAT,
			})
		}

		invoice, err := svc.Create(r.Context(), invoices.CreateParams{
			ClientID:    clientID,
			Description: validators.SanitizeString(req.Description, 500),
			DueAt:       req.DueAt,
			Items:       items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, invoice)
	}
}

// GetInvoice returns a single invoice scoped to the authenticated client.
func GetInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoiceID, err := uuid.Parse(chi.URLParam(r, "invoiceId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid invoice id"))
			return
		}

		params := invoices.GetParams{InvoiceID: invoiceID}
		if !isAdmin(r) {
			params.ClientID = &userID
		}

		invoice, err := svc.Get(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

// ListInvoices returns the client's invoices, newest first.
func ListInvoices(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := invoices.ListParams{ClientID: userID}

		if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
			parsed, err := enums.ParseInvoiceStatus(status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &parsed
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Limit = limit
		params.Cursor = strings.TrimSpace(r.URL.Query().Get("cursor"))

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
