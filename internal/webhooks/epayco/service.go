package epayco

import (
	"context"
	"net/url"
	"time"

	"github.com/andresvelasquez/ganaderia-backend/internal/payments"
	"github.com/andresvelasquez/ganaderia-backend/pkg/config"
	epaycogw "github.com/andresvelasquez/ganaderia-backend/pkg/epayco"
	pkgerrors "github.com/andresvelasquez/ganaderia-backend/pkg/errors"
	"github.com/andresvelasquez/ganaderia-backend/pkg/logger"
)

const dedupeScope = "epayco:webhook"

type dedupeStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Service authenticates and reconciles ePayco confirmation callbacks.
type Service struct {
	payments payments.Service
	dedupe   dedupeStore
	logg     *logger.Logger
	cfg      config.EpaycoConfig
	ttl      time.Duration
}

// ServiceParams wires webhook dependencies.
type ServiceParams struct {
	Payments payments.Service
	Dedupe   dedupeStore
	Logger   *logger.Logger
	Epayco   config.EpaycoConfig
	Payment  config.PaymentsConfig
}

// NewService validates dependencies and returns the webhook service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	ttl := params.Payment.WebhookDedupeTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		payments: params.Payments,
		dedupe:   params.Dedupe,
		logg:     params.Logger,
		cfg:      params.Epayco,
		ttl:      ttl,
	}, nil
}

// Process authenticates one confirmation callback and feeds it to the
// reconciliation path. Untrusted payloads return CodeUnauthorized before
// any state is touched; everything after authentication is absorbed by
// the caller with a 2xx so ePayco stops retrying.
func (s *Service) Process(ctx context.Context, form url.Values) error {
	notification, err := epaycogw.ParseWebhook(form)
	if err != nil {
		return err
	}
	if err := notification.VerifySignature(s.cfg.CustomerID, s.cfg.PKey); err != nil {
		logCtx := s.logg.WithField(ctx, "provider_ref", notification.RefPayco)
		s.logg.Warn(logCtx, "webhook signature rejected")
		return err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"provider_ref": notification.RefPayco,
		"state":        notification.State,
	})

	// Dedupe on reference plus reported state so a re-delivery is
	// dropped early but a genuinely new state still reconciles.
	var dedupeKey string
	if s.dedupe != nil {
		dedupeKey = s.dedupe.IdempotencyKey(dedupeScope, notification.RefPayco+":"+notification.State+":"+notification.ResponseCode)
		fresh, err := s.dedupe.SetNX(ctx, dedupeKey, "1", s.ttl)
		if err != nil {
			// Redis being down never blocks reconciliation; the guarded
			// transition downstream is idempotent anyway.
			s.logg.Warn(logCtx, "webhook dedupe store unavailable")
			dedupeKey = ""
		} else if !fresh {
			s.logg.Info(logCtx, "duplicate webhook delivery ignored")
			return nil
		}
	}

	kind, recognized := notification.Outcome()
	_, err = s.payments.ApplyProviderOutcome(ctx, notification.RefPayco, payments.ProviderOutcome{
		Kind:            kind,
		ProviderRef:     notification.RefPayco,
		TransactionID:   notification.TransactionID,
		ResponseCode:    notification.ResponseCode,
		ResponseMessage: notification.Response,
		BankName:        notification.BankName,
		Recognized:      recognized,
		OccurredAt:      time.Now().UTC(),
	})
	if err != nil {
		// Release the guard so ePayco's retry gets another attempt.
		if s.dedupe != nil && dedupeKey != "" {
			if delErr := s.dedupe.Del(ctx, dedupeKey); delErr != nil {
				s.logg.Warn(logCtx, "failed to release webhook dedupe key")
			}
		}
		return err
	}
	s.logg.Info(logCtx, "webhook reconciled")
	return nil
}
