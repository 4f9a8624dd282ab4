package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/andresvelasquez/ganaderia-backend/pkg/config"
	"github.com/andresvelasquez/ganaderia-backend/pkg/db/models"
	"github.com/andresvelasquez/ganaderia-backend/pkg/enums"
	pkgerrors "github.com/andresvelasquez/ganaderia-backend/pkg/errors"
	"github.com/andresvelasquez/ganaderia-backend/pkg/logger"
	"github.com/andresvelasquez/ganaderia-backend/pkg/outbox"
	"github.com/andresvelasquez/ganaderia-backend/pkg/outbox/payloads"
	"github.com/andresvelasquez/ganaderia-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service drives invoice issuance and lookups.
type Service interface {
	Create(ctx context.Context, params CreateParams) (*models.Invoice, error)
	Get(ctx context.Context, params GetParams) (*models.Invoice, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

// CreateParams describes an invoice to issue.
type CreateParams struct {
	ClientID    uuid.UUID
	Description string
	DueAt       *time.Time
	Items       []LineItemParams
}

// LineItemParams is one billed concept.
type LineItemParams struct {
	Concept    string
	Quantity   int
	UnitPrice  decimal.Decimal
	AppliesVAT bool
}

// GetParams scopes a single-invoice lookup. A nil ClientID means the
// caller may read any invoice.
type GetParams struct {
	InvoiceID uuid.UUID
	ClientID  *uuid.UUID
}

// ListParams configures invoice listing for one client.
type ListParams struct {
	ClientID uuid.UUID
	Status   *enums.InvoiceStatus
	Limit    int
	Cursor   string
}

// ListResult wraps returned invoices and the cursor for the next page.
type ListResult struct {
	Items  []models.Invoice `json:"items"`
	Cursor string           `json:"cursor"`
}

// ServiceParams wires invoice dependencies.
type ServiceParams struct {
	DB     txRunner
	Repo   Repository
	Outbox outboxEmitter
	Logger *logger.Logger
	Config config.PaymentsConfig
}

type service struct {
	db     txRunner
	repo   Repository
	outbox outboxEmitter
	logg   *logger.Logger
	cfg    config.PaymentsConfig
	now    func() time.Time
}

// NewService validates dependencies and returns the invoices service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "database handle required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "invoices repository required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		db:     params.DB,
		repo:   params.Repo,
		outbox: params.Outbox,
		logg:   params.Logger,
		cfg:    params.Config,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, params CreateParams) (*models.Invoice, error) {
	if params.ClientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}
	if len(params.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item required")
	}

	rate := s.vatRate()
	base := decimal.Zero
	vatBase := decimal.Zero
	items := make([]models.InvoiceLineItem, 0, len(params.Items))
	for _, item := range params.Items {
		if strings.TrimSpace(item.Concept) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item concept required")
		}
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		if item.UnitPrice.Sign() <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item unit price must be positive")
		}
		amount := item.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
		base = base.Add(amount)
		if item.AppliesVAT {
			vatBase = vatBase.Add(amount)
		}
		items = append(items, models.InvoiceLineItem{
			Concept:    item.Concept,
			Quantity:   quantity,
			UnitPrice:  item.UnitPrice,
			Amount:     amount,
			AppliesVAT: item.AppliesVAT,
		})
	}

	now := s.now()
	vatAmount := vatBase.Mul(rate).Round(2)
	invoice := &models.Invoice{
		InvoiceNumber: newInvoiceNumber(now),
		ClientID:      params.ClientID,
		Status:        enums.InvoiceStatusPending,
		Currency:      enums.CurrencyCOP,
		AmountBase:    base,
		VATRate:       rate,
		VATAmount:     vatAmount,
		AmountTotal:   base.Add(vatAmount),
		IssuedAt:      now,
		DueAt:         params.DueAt,
		Items:         items,
	}
	if params.Description != "" {
		invoice.Description = &params.Description
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, invoice); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvoiceIssued,
			AggregateType: enums.AggregateInvoice,
			AggregateID:   invoice.ID,
			Data: payloads.InvoiceIssuedEvent{
				InvoiceID:     invoice.ID,
				ClientID:      invoice.ClientID,
				InvoiceNumber: invoice.InvoiceNumber,
				Amount:        invoice.AmountTotal,
				DueAt:         invoice.DueAt,
				IssuedAt:      invoice.IssuedAt,
			},
			Version:    1,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"invoice_id":     invoice.ID.String(),
		"invoice_number": invoice.InvoiceNumber,
	})
	s.logg.Info(logCtx, "invoice issued")
	return invoice, nil
}

func (s *service) Get(ctx context.Context, params GetParams) (*models.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, params.InvoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	if params.ClientID != nil && invoice.ClientID != *params.ClientID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	return invoice, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.ClientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}

	query := listInvoicesParams{
		ClientID: params.ClientID,
		Status:   params.Status,
		Limit:    params.Limit,
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) vatRate() decimal.Decimal {
	percent := s.cfg.VATRatePercent
	if percent <= 0 {
		percent = 19
	}
	return decimal.NewFromInt(int64(percent)).Div(decimal.NewFromInt(100))
}

func newInvoiceNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("INV-%d-%s", now.Year(), suffix)
}
