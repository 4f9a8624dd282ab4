package webhooks

import (
	"net/http"

	"github.com/andresvelasquez/ganaderia-backend/api/responses"
	epaycohook "github.com/andresvelasquez/ganaderia-backend/internal/webhooks/epayco"
	pkgerrors "github.com/andresvelasquez/ganaderia-backend/pkg/errors"
	"github.com/andresvelasquez/ganaderia-backend/pkg/logger"
)

// EpaycoConfirmation receives provider confirmation callbacks.
//
// Responses are deliberately coarse: a bad signature gets a 401 so a
// misconfigured caller notices, but once the notification is
// authenticated the endpoint acknowledges with 200 no matter what
// happened downstream. Reconciliation is idempotent, so a failed
// delivery is recovered by the provider's retry rather than by making
// it distinguish our internal errors.
func EpaycoConfirmation(svc *epaycohook.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form payload"))
			return
		}

		err := svc.Process(r.Context(), r.Form)
		if err != nil {
			typed := pkgerrors.As(err)
			if typed != nil && (typed.Code() == pkgerrors.CodeUnauthorized || typed.Code() == pkgerrors.CodeValidation) {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if logg != nil {
				logg.Error(r.Context(), "webhook processing failed", err)
			}
		}
		responses.WriteSuccess(w, map[string]string{"received": "ok"})
	}
}
