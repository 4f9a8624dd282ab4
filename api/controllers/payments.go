package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/andresvelasquez/ganaderia-backend/api/middleware"
	"github.com/andresvelasquez/ganaderia-backend/api/responses"
	"github.com/andresvelasquez/ganaderia-backend/api/validators"
	"github.com/andresvelasquez/ganaderia-backend/internal/payments"
	"github.com/andresvelasquez/ganaderia-backend/pkg/enums"
	pkgerrors "github.com/andresvelasquez/ganaderia-backend/pkg/errors"
	"github.com/andresvelasquez/ganaderia-backend/pkg/logger"
)

type initiatePaymentRequest struct {
	InvoiceID         string  `json:"invoice_id" validate:"required,uuid4"`
	BankCode          string  `json:"bank_code" validate:"required"`
	PayerDocumentType string  `json:"payer_document_type" validate:"required"`
	PayerDocument     string  `json:"payer_document" validate:"required"`
	PayerFirstName    string  `json:"payer_first_name" validate:"required"`
	PayerLastName     string  `json:"payer_last_name" validate:"required"`
	PayerEmail        string  `json:"payer_email" validate:"required,email"`
	PayerPhone        string  `json:"payer_phone" validate:"required"`
	PayerAddress      *string `json:"payer_address,omitempty"`
	PayerCity         *string `json:"payer_city,omitempty"`
}

type initiatePaymentResponse struct {
	Payment         payments.PaymentView `json:"payment"`
	BankRedirectURL string               `json:"bank_redirect_url"`
}

// InitiatePSEPayment opens a PSE payment for one of the client's invoices.
func InitiatePSEPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req initiatePaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoiceID, err := uuid.Parse(req.InvoiceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid invoice id"))
			return
		}
		documentType, err := enums.ParseDocumentType(req.PayerDocumentType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payer document type"))
			return
		}

		params := payments.InitiateParams{
			InvoiceID:         invoiceID,
			ClientID:          userID,
			BankCode:          req.BankCode,
			PayerDocumentType: documentType,
			PayerDocument:     req.PayerDocument,
			PayerFirstName:    req.PayerFirstName,
			PayerLastName:     req.PayerLastName,
			PayerEmail:        req.PayerEmail,
			PayerPhone:        req.PayerPhone,
			PayerIP:           clientIP(r),
		}
		if req.PayerAddress != nil {
			params.PayerAddress = *req.PayerAddress
		}
		if req.PayerCity != nil {
			params.PayerCity = *req.PayerCity
		}

		result, err := svc.Initiate(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, initiatePaymentResponse{
			Payment:         payments.NewPaymentView(result.Payment),
			BankRedirectURL: result.BankRedirectURL,
		})
	}
}

// PaymentRedirectReturn resolves the payment the bank redirected back for.
// The browser lands here after the PSE flow, so freshness beats strictness:
// the provider is re-queried and the stored state is the fallback.
func PaymentRedirectReturn(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := strings.TrimSpace(r.URL.Query().Get("ref_payco"))
		if ref == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "ref_payco is required"))
			return
		}

		intent, err := svc.HandleRedirectReturn(r.Context(), ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payments.NewPaymentView(intent))
	}
}

// GetPayment returns a single payment owned by the authenticated client.
// Admins may read any payment.
func GetPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentID, err := uuid.Parse(chi.URLParam(r, "paymentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id"))
			return
		}

		params := payments.GetParams{PaymentID: paymentID}
		if !isAdmin(r) {
			params.ClientID = &userID
		}

		intent, err := svc.Get(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payments.NewPaymentView(intent))
	}
}

// ListPayments returns the client's payments, newest first.
func ListPayments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := payments.ListParams{ClientID: userID}

		if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
			parsed, err := enums.ParsePaymentStatus(status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &parsed
		}
		if invoice := strings.TrimSpace(r.URL.Query().Get("invoice_id")); invoice != "" {
			invoiceID, err := uuid.Parse(invoice)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid invoice id"))
				return
			}
			params.InvoiceID = &invoiceID
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

		views := make([]payments.PaymentView, 0, len(result.Items))
		for i := range result.Items {
			views = append(views, payments.NewPaymentView(&result.Items[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"items":  views,
			"cursor": result.Cursor,
		})
	}
}

// CancelPayment abandons an in-flight payment.
func CancelPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentID, err := uuid.Parse(chi.URLParam(r, "paymentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id"))
			return
		}

		params := payments.CancelParams{PaymentID: paymentID}
		if !isAdmin(r) {
			params.ClientID = &userID
		}

		intent, err := svc.Cancel(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payments.NewPaymentView(intent))
	}
}

// ListPSEBanks exposes the cached PSE bank catalog for the checkout form.
func ListPSEBanks(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		banks, err := svc.ListBanks(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"banks": banks})
	}
}

func isAdmin(r *http.Request) bool {
	return middleware.RoleFromContext(r.Context()) == string(enums.UserRoleAdmin)
}

func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}
