package payments

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/andresvelasquez/ganaderia-backend/pkg/config"
	dbpkg "github.com/andresvelasquez/ganaderia-backend/pkg/db"
	"github.com/andresvelasquez/ganaderia-backend/pkg/db/models"
	"github.com/andresvelasquez/ganaderia-backend/pkg/enums"
	"github.com/andresvelasquez/ganaderia-backend/pkg/epayco"
	pkgerrors "github.com/andresvelasquez/ganaderia-backend/pkg/errors"
	"github.com/andresvelasquez/ganaderia-backend/pkg/logger"
	"github.com/andresvelasquez/ganaderia-backend/pkg/outbox"
	"github.com/andresvelasquez/ganaderia-backend/pkg/outbox/payloads"
	"github.com/andresvelasquez/ganaderia-backend/pkg/pagination"
)

const (
	// FailureReasonProviderTimeout marks intents the gateway never acknowledged.
	FailureReasonProviderTimeout = "provider_timeout"
	// FailureReasonProviderRejected marks intents the gateway refused to open.
	FailureReasonProviderRejected = "provider_rejected"
	// FailureReasonBankRejected marks intents the bank declined or dropped.
	FailureReasonBankRejected = "bank_rejected"
	// FailureReasonUserCancelled marks intents cancelled by their owner.
	FailureReasonUserCancelled = "user_cancelled"

	bankCacheKey = "gd:payments:pse_banks"

	sweepBatchSize = 200
)

// Gateway is the provider surface the payment lifecycle depends on.
type Gateway interface {
	CreatePSECharge(ctx context.Context, params epayco.PSEChargeParams) (*epayco.ChargeResult, error)
	QueryTransaction(ctx context.Context, providerRef string) (*epayco.TransactionDetail, error)
	ListBanks(ctx context.Context) ([]epayco.Bank, error)
}

// InvoiceStore is the slice of invoice persistence the lifecycle needs.
type InvoiceStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*models.Invoice, error)
	MarkPaidTx(tx *gorm.DB, id uuid.UUID, paidAt time.Time) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type bankCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Service drives the payment lifecycle from initiation to settlement.
type Service interface {
	Initiate(ctx context.Context, params InitiateParams) (*InitiateResult, error)
	HandleRedirectReturn(ctx context.Context, providerRef string) (*models.PaymentIntent, error)
	ApplyProviderOutcome(ctx context.Context, providerRef string, outcome ProviderOutcome) (*models.PaymentIntent, error)
	Cancel(ctx context.Context, params CancelParams) (*models.PaymentIntent, error)
	Get(ctx context.Context, params GetParams) (*models.PaymentIntent, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	ListBanks(ctx context.Context) ([]epayco.Bank, error)
	FailUnacknowledged(ctx context.Context, now time.Time) (int, error)
}

// ServiceParams wires lifecycle dependencies.
type ServiceParams struct {
	DB       txRunner
	Repo     Repository
	Invoices InvoiceStore
	Gateway  Gateway
	Outbox   outboxEmitter
	Cache    bankCache
	Logger   *logger.Logger
	Config   config.PaymentsConfig
}

type service struct {
	db       txRunner
	repo     Repository
	invoices InvoiceStore
	gateway  Gateway
	outbox   outboxEmitter
	cache    bankCache
	logg     *logger.Logger
	cfg      config.PaymentsConfig
	now      func() time.Time
}

// NewService validates dependencies and returns the payment lifecycle service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "database handle required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments repository required")
	}
	if params.Invoices == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "invoice store required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		db:       params.DB,
		repo:     params.Repo,
		invoices: params.Invoices,
		gateway:  params.Gateway,
		outbox:   params.Outbox,
		cache:    params.Cache,
		logg:     params.Logger,
		cfg:      params.Config,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Initiate(ctx context.Context, params InitiateParams) (*InitiateResult, error) {
	if err := validateInitiateParams(params); err != nil {
		return nil, err
	}

	invoice, err := s.invoices.FindByID(ctx, params.InvoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	if params.ClientID != uuid.Nil && invoice.ClientID != params.ClientID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	if invoice.Status == enums.InvoiceStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invoice is already paid")
	}

	if existing, err := s.repo.FindInFlightByInvoice(ctx, invoice.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check in-flight payments")
	} else if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a payment for this invoice is already in flight").
			WithDetails(map[string]string{"payment_id": existing.ID.String()})
	}

	intent := &models.PaymentIntent{
		InvoiceID:         invoice.ID,
		ClientID:          invoice.ClientID,
		Status:            enums.PaymentStatusPending,
		Method:            "PSE",
		Currency:          invoice.Currency,
		Amount:            invoice.AmountTotal,
		TaxAmount:         invoice.VATAmount,
		TaxBase:           invoice.AmountBase,
		PayerDocumentType: params.PayerDocumentType,
		PayerDocument:     params.PayerDocument,
		PayerFirstName:    params.PayerFirstName,
		PayerLastName:     params.PayerLastName,
		PayerEmail:        params.PayerEmail,
		PayerPhone:        params.PayerPhone,
		PayerAddress:      params.PayerAddress,
		PayerCity:         params.PayerCity,
		PayerIP:           params.PayerIP,
		BankCode:          params.BankCode,
	}
	if err := s.repo.Create(ctx, intent); err != nil {
		if dbpkg.IsUniqueViolation(err, InFlightConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a payment for this invoice is already in flight")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"payment_id": intent.ID.String(),
		"invoice_id": invoice.ID.String(),
	})
	s.logg.Info(logCtx, "payment intent created")

	// The gateway call happens with no transaction or row lock held.
	charge, err := s.gateway.CreatePSECharge(ctx, epayco.PSEChargeParams{
		InvoiceNumber: invoice.InvoiceNumber,
		Description:   invoiceDescription(invoice),
		Amount:        invoice.AmountTotal,
		TaxBase:       invoice.AmountBase,
		Tax:           invoice.VATAmount,
		BankCode:      params.BankCode,
		DocType:       params.PayerDocumentType.String(),
		DocNumber:     params.PayerDocument,
		FirstName:     params.PayerFirstName,
		LastName:      params.PayerLastName,
		Email:         params.PayerEmail,
		Phone:         params.PayerPhone,
		Address:       params.PayerAddress,
		City:          params.PayerCity,
		ClientIP:      params.PayerIP,
		ExtraData:     map[string]string{"extra1": intent.ID.String()},
	})
	if err != nil {
		return nil, s.handleChargeFailure(ctx, intent, err)
	}

	attached, err := s.repo.AttachProviderRef(ctx, intent.ID, ProviderAttachment{
		ProviderRef:     charge.ProviderRef,
		BankName:        optionalString(charge.BankName),
		BankRedirectURL: optionalString(charge.BankRedirectURL),
		ResponseCode:    optionalString(charge.ResponseCode),
		ResponseMessage: optionalString(charge.ResponseMessage),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach provider reference")
	}
	if !attached {
		s.logg.Warn(logCtx, "provider reference already attached, keeping first acknowledgment")
	}

	// The creation acknowledgment only attaches the reference and echo
	// fields. The intent stays pending until a redirect return, webhook,
	// or status poll reports what the bank did.
	refreshed, err := s.repo.FindByID(ctx, intent.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment intent")
	}
	return &InitiateResult{
		Payment:         refreshed,
		BankRedirectURL: charge.BankRedirectURL,
	}, nil
}

// handleChargeFailure decides what happens to a fresh intent when the
// gateway call fails. Rejections free the invoice slot immediately;
// unreachability leaves the intent for the timeout sweep.
func (s *service) handleChargeFailure(ctx context.Context, intent *models.PaymentIntent, chargeErr error) error {
	typed := pkgerrors.As(chargeErr)
	logCtx := s.logg.WithFields(ctx, map[string]any{"payment_id": intent.ID.String()})
	if typed != nil && (typed.Code() == pkgerrors.CodeProviderRejected || typed.Code() == pkgerrors.CodeValidation) {
		reason := FailureReasonProviderRejected
		message := typed.Message()
		if _, err := s.applyTerminal(ctx, intent.ID, enums.PaymentStatusFailed, ProviderOutcome{
			Kind:            epayco.OutcomeRejected,
			ResponseMessage: message,
			FailureReason:   reason,
			Recognized:      true,
			OccurredAt:      s.now(),
		}); err != nil {
			s.logg.Error(logCtx, "failed to mark rejected intent", err)
		}
		return chargeErr
	}
	s.logg.Error(logCtx, "gateway unreachable, intent left pending for timeout sweep", chargeErr)
	return chargeErr
}

func (s *service) HandleRedirectReturn(ctx context.Context, providerRef string) (*models.PaymentIntent, error) {
	if strings.TrimSpace(providerRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider reference is required")
	}
	intent, err := s.repo.FindByProviderRef(ctx, providerRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment by provider reference")
	}

	detail, err := s.gateway.QueryTransaction(ctx, providerRef)
	if err != nil {
		// The redirect must render something even when the gateway is
		// down; fall back to the stored state and let the webhook or a
		// later poll settle the truth.
		logCtx := s.logg.WithFields(ctx, map[string]any{"payment_id": intent.ID.String()})
		s.logg.Warn(logCtx, "status query failed, serving stored payment state")
		return intent, nil
	}

	return s.ApplyProviderOutcome(ctx, providerRef, ProviderOutcome{
		Kind:            detail.Outcome,
		ProviderRef:     detail.ProviderRef,
		TransactionID:   detail.TransactionID,
		ResponseCode:    detail.ResponseCode,
		ResponseMessage: detail.ResponseMessage,
		BankName:        detail.BankName,
		Recognized:      detail.Recognized,
		OccurredAt:      s.now(),
	})
}

// ApplyProviderOutcome is the single reconciliation entry point: every
// provider-reported result, whatever channel delivered it, goes through
// here and is applied at most once.
func (s *service) ApplyProviderOutcome(ctx context.Context, providerRef string, outcome ProviderOutcome) (*models.PaymentIntent, error) {
	intent, err := s.repo.FindByProviderRef(ctx, providerRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment matches the provider reference")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment by provider reference")
	}
	if !outcome.Recognized {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payment_id":   intent.ID.String(),
			"provider_ref": providerRef,
		})
		s.logg.Warn(logCtx, "unrecognized provider state, treating as pending at bank")
	}
	return s.advance(ctx, intent.ID, outcome)
}

// advance applies one normalized outcome to the intent lifecycle.
// Terminal states only ever win through a guarded compare-and-set, so
// re-deliveries and racing channels settle on exactly one transition.
func (s *service) advance(ctx context.Context, intentID uuid.UUID, outcome ProviderOutcome) (*models.PaymentIntent, error) {
	switch outcome.Kind {
	case epayco.OutcomeAccepted:
		return s.applyTerminal(ctx, intentID, enums.PaymentStatusCompleted, outcome)
	case epayco.OutcomeRejected:
		if outcome.FailureReason == "" {
			outcome.FailureReason = FailureReasonBankRejected
		}
		return s.applyTerminal(ctx, intentID, enums.PaymentStatusFailed, outcome)
	case epayco.OutcomeFailed:
		if outcome.FailureReason == "" {
			outcome.FailureReason = FailureReasonBankRejected
		}
		return s.applyTerminal(ctx, intentID, enums.PaymentStatusFailed, outcome)
	case epayco.OutcomePendingAtBank:
		return s.applyProcessing(ctx, intentID, outcome)
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "unhandled provider outcome")
}

func (s *service) applyProcessing(ctx context.Context, intentID uuid.UUID, outcome ProviderOutcome) (*models.PaymentIntent, error) {
	moved, err := s.repo.TransitionState(ctx, intentID, []enums.PaymentStatus{enums.PaymentStatusPending}, StateChange{
		Status:          enums.PaymentStatusProcessing,
		ResponseCode:    optionalString(outcome.ResponseCode),
		ResponseMessage: optionalString(outcome.ResponseMessage),
		Now:             s.now(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move payment to processing")
	}
	if !moved {
		// Already processing or terminal; keep the latest provider echo
		// without touching the lifecycle.
		if err := s.repo.UpdateProviderAudit(ctx, intentID, ProviderAudit{
			ResponseCode:    optionalString(outcome.ResponseCode),
			ResponseMessage: optionalString(outcome.ResponseMessage),
			BankName:        optionalString(outcome.BankName),
			Now:             s.now(),
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update provider audit fields")
		}
	}
	intent, err := s.repo.FindByID(ctx, intentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment intent")
	}
	return intent, nil
}

// applyTerminal moves an intent to a terminal state inside one unit of
// work. Whoever wins the compare-and-set also settles the invoice and
// queues the outbound events; losers only refresh audit fields.
func (s *service) applyTerminal(ctx context.Context, intentID uuid.UUID, target enums.PaymentStatus, outcome ProviderOutcome) (*models.PaymentIntent, error) {
	return s.applyTerminalGuarded(ctx, intentID, target, outcome, false)
}

func (s *service) applyTerminalGuarded(ctx context.Context, intentID uuid.UUID, target enums.PaymentStatus, outcome ProviderOutcome, unacknowledgedOnly bool) (*models.PaymentIntent, error) {
	now := s.now()
	var won bool
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		change := StateChange{
			Status:             target,
			FailureReason:      optionalString(outcome.FailureReason),
			ResponseCode:       optionalString(outcome.ResponseCode),
			ResponseMessage:    optionalString(outcome.ResponseMessage),
			Now:                now,
			UnacknowledgedOnly: unacknowledgedOnly,
		}
		if target == enums.PaymentStatusCompleted {
			change.PaidAt = &now
		}

		moved, err := repo.TransitionState(ctx, intentID, enums.NonTerminalPaymentStatuses, change)
		if err != nil {
			return err
		}
		won = moved
		if !moved {
			return nil
		}

		intent, err := repo.FindByID(ctx, intentID)
		if err != nil {
			return err
		}
		invoice, err := s.invoices.FindByIDTx(tx, intent.InvoiceID)
		if err != nil {
			return err
		}

		if target == enums.PaymentStatusCompleted {
			if _, err := s.invoices.MarkPaidTx(tx, invoice.ID, now); err != nil {
				return err
			}
		}
		return s.emitTerminalEvents(ctx, tx, intent, invoice, target, now)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply terminal payment transition")
	}

	if !won {
		// Terminal rows stay immutable; later deliveries only refresh
		// provider echo fields.
		if err := s.repo.UpdateProviderAudit(ctx, intentID, ProviderAudit{
			ResponseCode:    optionalString(outcome.ResponseCode),
			ResponseMessage: optionalString(outcome.ResponseMessage),
			BankName:        optionalString(outcome.BankName),
			Now:             s.now(),
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update provider audit fields")
		}
	}

	intent, err := s.repo.FindByID(ctx, intentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment intent")
	}
	if won {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payment_id": intent.ID.String(),
			"status":     intent.Status.String(),
		})
		s.logg.Info(logCtx, "payment reached terminal state")
	}
	return intent, nil
}

func (s *service) emitTerminalEvents(ctx context.Context, tx *gorm.DB, intent *models.PaymentIntent, invoice *models.Invoice, target enums.PaymentStatus, now time.Time) error {
	statusEvent := payloads.PaymentStatusEvent{
		PaymentID:     intent.ID,
		InvoiceID:     intent.InvoiceID,
		ClientID:      intent.ClientID,
		InvoiceNumber: invoice.InvoiceNumber,
		Status:        target,
		Amount:        intent.Amount,
		Currency:      intent.Currency,
		ProviderRef:   intent.ProviderRef,
		FailureReason: intent.FailureReason,
		OccurredAt:    now,
	}

	var eventType enums.OutboxEventType
	switch target {
	case enums.PaymentStatusCompleted:
		eventType = enums.EventPaymentCompleted
	case enums.PaymentStatusFailed:
		eventType = enums.EventPaymentFailed
	case enums.PaymentStatusCancelled:
		eventType = enums.EventPaymentCancelled
	default:
		return pkgerrors.New(pkgerrors.CodeInternal, "terminal event requested for non-terminal status")
	}

	if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePaymentIntent,
		AggregateID:   intent.ID,
		Data:          statusEvent,
		Version:       1,
		OccurredAt:    now,
	}); err != nil {
		return err
	}

	if target == enums.PaymentStatusCompleted {
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvoicePaid,
			AggregateType: enums.AggregateInvoice,
			AggregateID:   invoice.ID,
			Data: payloads.InvoicePaidEvent{
				InvoiceID:     invoice.ID,
				ClientID:      invoice.ClientID,
				InvoiceNumber: invoice.InvoiceNumber,
				PaymentID:     intent.ID,
				Amount:        intent.Amount,
				PaidAt:        now,
			},
			Version:    1,
			OccurredAt: now,
		})
	}
	return nil
}

func (s *service) Cancel(ctx context.Context, params CancelParams) (*models.PaymentIntent, error) {
	intent, err := s.repo.FindByID(ctx, params.PaymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
	}
	if params.ClientID != nil && intent.ClientID != *params.ClientID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	if intent.Status == enums.PaymentStatusCancelled {
		return intent, nil
	}
	if intent.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment already reached a terminal state").
			WithDetails(map[string]string{"status": intent.Status.String()})
	}

	reason := FailureReasonUserCancelled
	updated, err := s.applyTerminal(ctx, intent.ID, enums.PaymentStatusCancelled, ProviderOutcome{
		FailureReason: reason,
		Recognized:    true,
		OccurredAt:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	if updated.Status != enums.PaymentStatusCancelled {
		// Lost the race against a provider-delivered terminal outcome.
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment already reached a terminal state").
			WithDetails(map[string]string{"status": updated.Status.String()})
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, params GetParams) (*models.PaymentIntent, error) {
	intent, err := s.repo.FindByID(ctx, params.PaymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
	}
	if params.ClientID != nil && intent.ClientID != *params.ClientID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return intent, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.ClientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}

	query := listPaymentsParams{
		ClientID:  params.ClientID,
		Status:    params.Status,
		InvoiceID: params.InvoiceID,
		Limit:     params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) ListBanks(ctx context.Context) ([]epayco.Bank, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, bankCacheKey); err == nil && cached != "" {
			var banks []epayco.Bank
			if err := json.Unmarshal([]byte(cached), &banks); err == nil {
				return banks, nil
			}
		}
	}

	banks, err := s.gateway.ListBanks(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(banks); err == nil {
			ttl := s.cfg.BankCacheTTL
			if ttl <= 0 {
				ttl = 10 * time.Minute
			}
			if err := s.cache.Set(ctx, bankCacheKey, string(encoded), ttl); err != nil {
				s.logg.Warn(ctx, "failed to cache bank directory")
			}
		}
	}
	return banks, nil
}

// FailUnacknowledged fails pending intents the gateway never assigned a
// reference to within the configured window. Each one goes through the
// same guarded terminal path as provider outcomes, re-asserting inside
// the transaction that no reference arrived since the candidate scan.
func (s *service) FailUnacknowledged(ctx context.Context, now time.Time) (int, error) {
	window := s.cfg.TimeoutWindow
	if window <= 0 {
		window = 30 * time.Minute
	}
	cutoff := now.Add(-window)

	stale, err := s.repo.FindUnacknowledgedBefore(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find unacknowledged payments")
	}

	failed := 0
	for _, intent := range stale {
		updated, err := s.applyTerminalGuarded(ctx, intent.ID, enums.PaymentStatusFailed, ProviderOutcome{
			FailureReason: FailureReasonProviderTimeout,
			Recognized:    true,
			OccurredAt:    now,
		}, true)
		if err != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{"payment_id": intent.ID.String()})
			s.logg.Error(logCtx, "failed to time out payment", err)
			continue
		}
		if updated.Status == enums.PaymentStatusFailed {
			failed++
		}
	}
	return failed, nil
}

func validateInitiateParams(params InitiateParams) error {
	switch {
	case params.InvoiceID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice id required")
	case strings.TrimSpace(params.BankCode) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "bank code required")
	case !params.PayerDocumentType.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payer document type")
	case strings.TrimSpace(params.PayerDocument) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "payer document required")
	case strings.TrimSpace(params.PayerFirstName) == "" || strings.TrimSpace(params.PayerLastName) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "payer name required")
	case strings.TrimSpace(params.PayerEmail) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "payer email required")
	}
	return nil
}

func invoiceDescription(invoice *models.Invoice) string {
	if invoice.Description != nil && *invoice.Description != "" {
		return *invoice.Description
	}
	return "Factura " + invoice.InvoiceNumber
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
