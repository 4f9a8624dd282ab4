package invoices

import (
	"context"
	"io"
	"strings"
	"testing"
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
	"github.com/andresvelasquez/ganaderia-backend/pkg/pagination"
)

type stubRepo struct {
	created  []*models.Invoice
	invoices map[uuid.UUID]*models.Invoice
}

func newStubRepo() *stubRepo {
	return &stubRepo{invoices: map[uuid.UUID]*models.Invoice{}}
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) CreateTx(tx *gorm.DB, invoice *models.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	s.created = append(s.created, invoice)
	s.invoices[invoice.ID] = invoice
	return nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	invoice, ok := s.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return invoice, nil
}

func (s *stubRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*models.Invoice, error) {
	return s.FindByID(context.Background(), id)
}

func (s *stubRepo) FindByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	for _, invoice := range s.invoices {
		if invoice.InvoiceNumber == number {
			return invoice, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) List(ctx context.Context, params listInvoicesParams) ([]models.Invoice, *pagination.Cursor, error) {
	var rows []models.Invoice
	for _, invoice := range s.invoices {
		if invoice.ClientID == params.ClientID {
			rows = append(rows, *invoice)
		}
	}
	return rows, nil, nil
}

func (s *stubRepo) MarkPaidTx(tx *gorm.DB, id uuid.UUID, paidAt time.Time) (bool, error) {
	invoice, ok := s.invoices[id]
	if !ok || invoice.Status == enums.InvoiceStatusPaid {
		return false, nil
	}
	invoice.Status = enums.InvoiceStatusPaid
	invoice.PaidAt = &paidAt
	return true, nil
}

func (s *stubRepo) MarkOverdueBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Invoice, error) {
	return nil, nil
}

type stubEmitter struct {
	events []outbox.DomainEvent
}

func (s *stubEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T) (Service, *stubRepo, *stubEmitter) {
	t.Helper()
	repo := newStubRepo()
	emitter := &stubEmitter{}
	logg := logger.New(logger.Options{ServiceName: "invoices-test", Output: io.Discard})
	service, err := NewService(ServiceParams{
		DB:     stubTxRunner{},
		Repo:   repo,
		Outbox: emitter,
		Logger: logg,
		Config: config.PaymentsConfig{VATRatePercent: 19},
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return service, repo, emitter
}

func TestCreateComputesVATOverApplicableItems(t *testing.T) {
	service, repo, emitter := newTestService(t)

	invoice, err := service.Create(context.Background(), CreateParams{
		ClientID: uuid.New(),
		Items: []LineItemParams{
			{Concept: "Pajillas Brahman lote 7", Quantity: 10, UnitPrice: decimal.NewFromInt(10000), AppliesVAT: true},
			{Concept: "Flete cadena de frio", Quantity: 1, UnitPrice: decimal.NewFromInt(50000), AppliesVAT: false},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !invoice.AmountBase.Equal(decimal.NewFromInt(150000)) {
		t.Fatalf("unexpected base %s", invoice.AmountBase)
	}
	if !invoice.VATAmount.Equal(decimal.NewFromInt(19000)) {
		t.Fatalf("VAT must only cover applicable items, got %s", invoice.VATAmount)
	}
	if !invoice.AmountTotal.Equal(decimal.NewFromInt(169000)) {
		t.Fatalf("unexpected total %s", invoice.AmountTotal)
	}
	if invoice.Status != enums.InvoiceStatusPending {
		t.Fatalf("unexpected status %s", invoice.Status)
	}
	if !strings.HasPrefix(invoice.InvoiceNumber, "INV-") {
		t.Fatalf("unexpected invoice number %q", invoice.InvoiceNumber)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one created row")
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventInvoiceIssued {
		t.Fatalf("expected one invoice_issued event, got %+v", emitter.events)
	}
}

func TestCreateRejectsEmptyItems(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Create(context.Background(), CreateParams{ClientID: uuid.New()})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateRejectsNonPositivePrice(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Create(context.Background(), CreateParams{
		ClientID: uuid.New(),
		Items:    []LineItemParams{{Concept: "Pajillas", UnitPrice: decimal.Zero}},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetScopesToClient(t *testing.T) {
	service, repo, _ := newTestService(t)
	clientID := uuid.New()
	invoice := &models.Invoice{ID: uuid.New(), ClientID: clientID, InvoiceNumber: "INV-2026-ABCD1234"}
	repo.invoices[invoice.ID] = invoice

	found, err := service.Get(context.Background(), GetParams{InvoiceID: invoice.ID, ClientID: &clientID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.ID != invoice.ID {
		t.Fatalf("wrong invoice returned")
	}

	stranger := uuid.New()
	_, err = service.Get(context.Background(), GetParams{InvoiceID: invoice.ID, ClientID: &stranger})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
