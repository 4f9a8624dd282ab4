package payments

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/andresvelasquez/ganaderia-backend/pkg/config"
	"github.com/andresvelasquez/ganaderia-backend/pkg/db/models"
	"github.com/andresvelasquez/ganaderia-backend/pkg/enums"
	"github.com/andresvelasquez/ganaderia-backend/pkg/epayco"
	"github.com/andresvelasquez/ganaderia-backend/pkg/logger"
)

const paymentIntentsDDL = `
CREATE TABLE payment_intents (
	id TEXT PRIMARY KEY,
	invoice_id TEXT NOT NULL,
	client_id TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	method TEXT NOT NULL DEFAULT 'PSE',
	currency TEXT NOT NULL DEFAULT 'COP',
	amount NUMERIC NOT NULL,
	tax_amount NUMERIC NOT NULL,
	tax_base NUMERIC NOT NULL,
	payer_document_type TEXT NOT NULL,
	payer_document TEXT NOT NULL,
	payer_first_name TEXT NOT NULL,
	payer_last_name TEXT NOT NULL,
	payer_email TEXT NOT NULL,
	payer_phone TEXT NOT NULL,
	payer_address TEXT NOT NULL,
	payer_city TEXT NOT NULL,
	payer_ip TEXT NOT NULL,
	bank_code TEXT NOT NULL,
	bank_name TEXT,
	bank_redirect_url TEXT,
	provider_ref TEXT,
	provider_response_code TEXT,
	provider_response_message TEXT,
	failure_reason TEXT,
	paid_at DATETIME,
	created_at DATETIME NOT NULL DEFAULT (STRFTIME('%Y-%m-%d %H:%M:%f', 'NOW')),
	updated_at DATETIME NOT NULL DEFAULT (STRFTIME('%Y-%m-%d %H:%M:%f', 'NOW'))
);
CREATE UNIQUE INDEX ux_payment_intents_invoice_in_flight
	ON payment_intents (invoice_id) WHERE status IN ('pending','processing');
CREATE UNIQUE INDEX ux_payment_intents_provider_ref
	ON payment_intents (provider_ref) WHERE provider_ref IS NOT NULL;
`

func newRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.Exec(paymentIntentsDDL).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return conn
}

func seedIntent(t *testing.T, repo Repository, invoiceID, clientID uuid.UUID) *models.PaymentIntent {
	t.Helper()
	intent := &models.PaymentIntent{
		ID:                uuid.New(),
		InvoiceID:         invoiceID,
		ClientID:          clientID,
		Status:            enums.PaymentStatusPending,
		Method:            "PSE",
		Currency:          enums.CurrencyCOP,
		Amount:            decimal.NewFromInt(119000),
		TaxAmount:         decimal.NewFromInt(19000),
		TaxBase:           decimal.NewFromInt(100000),
		PayerDocumentType: enums.DocumentTypeCC,
		PayerDocument:     "1020304050",
		PayerFirstName:    "Andres",
		PayerLastName:     "Velasquez",
		PayerEmail:        "andres@example.com",
		PayerPhone:        "3001234567",
		PayerAddress:      "Cra 1 # 2-3",
		PayerCity:         "Monteria",
		PayerIP:           "190.0.0.1",
		BankCode:          "1007",
	}
	if err := repo.Create(context.Background(), intent); err != nil {
		t.Fatalf("seed intent: %v", err)
	}
	return intent
}

func TestCreateEnforcesSingleInFlightIntent(t *testing.T) {
	repo := NewRepository(newRepoTestDB(t))
	invoiceID := uuid.New()
	clientID := uuid.New()
	seedIntent(t, repo, invoiceID, clientID)

	second := &models.PaymentIntent{
		ID:                uuid.New(),
		InvoiceID:         invoiceID,
		ClientID:          clientID,
		Status:            enums.PaymentStatusPending,
		Currency:          enums.CurrencyCOP,
		Amount:            decimal.NewFromInt(119000),
		TaxAmount:         decimal.NewFromInt(19000),
		TaxBase:           decimal.NewFromInt(100000),
		PayerDocumentType: enums.DocumentTypeCC,
		PayerDocument:     "1020304050",
		PayerFirstName:    "Andres",
		PayerLastName:     "Velasquez",
		PayerEmail:        "andres@example.com",
		PayerPhone:        "3001234567",
		PayerAddress:      "Cra 1 # 2-3",
		PayerCity:         "Monteria",
		PayerIP:           "190.0.0.1",
		BankCode:          "1007",
	}
	if err := repo.Create(context.Background(), second); err == nil {
		t.Fatalf("expected unique index to reject second in-flight intent")
	}
}

func TestCreateAllowsNewIntentAfterTerminal(t *testing.T) {
	repo := NewRepository(newRepoTestDB(t))
	invoiceID := uuid.New()
	clientID := uuid.New()
	first := seedIntent(t, repo, invoiceID, clientID)

	moved, err := repo.TransitionState(context.Background(), first.ID, enums.NonTerminalPaymentStatuses, StateChange{
		Status: enums.PaymentStatusFailed,
		Now:    time.Now().UTC(),
	})
	if err != nil || !moved {
		t.Fatalf("transition to failed: moved=%t err=%v", moved, err)
	}

	seedIntent(t, repo, invoiceID, clientID)
}

func TestAttachProviderRefIsWriteOnce(t *testing.T) {
	repo := NewRepository(newRepoTestDB(t))
	intent := seedIntent(t, repo, uuid.New(), uuid.New())

	bank := "BANCO DE PRUEBA"
	attached, err := repo.AttachProviderRef(context.Background(), intent.ID, ProviderAttachment{
		ProviderRef: "123456789",
		BankName:    &bank,
	})
	if err != nil || !attached {
		t.Fatalf("first attach: attached=%t err=%v", attached, err)
	}

	attached, err = repo.AttachProviderRef(context.Background(), intent.ID, ProviderAttachment{
		ProviderRef: "987654321",
	})
	if err != nil {
		t.Fatalf("second attach: %v", err)
	}
	if attached {
		t.Fatalf("provider ref must be write-once")
	}

	stored, err := repo.FindByProviderRef(context.Background(), "123456789")
	if err != nil {
		t.Fatalf("find by ref: %v", err)
	}
	if stored.ID != intent.ID {
		t.Fatalf("lookup returned wrong intent")
	}
}

func TestTransitionStateGuards(t *testing.T) {
	repo := NewRepository(newRepoTestDB(t))
	intent := seedIntent(t, repo, uuid.New(), uuid.New())
	ctx := context.Background()

	moved, err := repo.TransitionState(ctx, intent.ID, []enums.PaymentStatus{enums.PaymentStatusPending}, StateChange{
		Status: enums.PaymentStatusProcessing,
		Now:    time.Now().UTC(),
	})
	if err != nil || !moved {
		t.Fatalf("pending->processing: moved=%t err=%v", moved, err)
	}

	// Processing is not pending anymore; the same guard loses.
	moved, err = repo.TransitionState(ctx, intent.ID, []enums.PaymentStatus{enums.PaymentStatusPending}, StateChange{
		Status: enums.PaymentStatusProcessing,
		Now:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("repeat guard: %v", err)
	}
	if moved {
		t.Fatalf("guard must lose once status left pending")
	}

	now := time.Now().UTC()
	reason := "bank_rejected"
	moved, err = repo.TransitionState(ctx, intent.ID, enums.NonTerminalPaymentStatuses, StateChange{
		Status:        enums.PaymentStatusFailed,
		FailureReason: &reason,
		Now:           now,
	})
	if err != nil || !moved {
		t.Fatalf("processing->failed: moved=%t err=%v", moved, err)
	}

	// Terminal rows never transition again.
	moved, err = repo.TransitionState(ctx, intent.ID, enums.NonTerminalPaymentStatuses, StateChange{
		Status: enums.PaymentStatusCompleted,
		Now:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("terminal guard: %v", err)
	}
	if moved {
		t.Fatalf("terminal state must be immutable")
	}

	stored, err := repo.FindByID(ctx, intent.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != enums.PaymentStatusFailed {
		t.Fatalf("unexpected status %s", stored.Status)
	}
	if stored.FailureReason == nil || *stored.FailureReason != reason {
		t.Fatalf("failure reason lost: %+v", stored.FailureReason)
	}
}

func TestUpdateProviderAuditLeavesStatusAlone(t *testing.T) {
	repo := NewRepository(newRepoTestDB(t))
	intent := seedIntent(t, repo, uuid.New(), uuid.New())
	ctx := context.Background()

	if _, err := repo.TransitionState(ctx, intent.ID, enums.NonTerminalPaymentStatuses, StateChange{
		Status: enums.PaymentStatusCompleted,
		Now:    time.Now().UTC(),
	}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	code := "1"
	message := "Aprobada"
	if err := repo.UpdateProviderAudit(ctx, intent.ID, ProviderAudit{
		ResponseCode:    &code,
		ResponseMessage: &message,
		Now:             time.Now().UTC(),
	}); err != nil {
		t.Fatalf("audit update: %v", err)
	}

	stored, err := repo.FindByID(ctx, intent.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != enums.PaymentStatusCompleted {
		t.Fatalf("audit update changed status to %s", stored.Status)
	}
	if stored.ProviderResponseCode == nil || *stored.ProviderResponseCode != "1" {
		t.Fatalf("audit fields not applied")
	}
}

func TestListScopesAndPaginates(t *testing.T) {
	repo := NewRepository(newRepoTestDB(t))
	ctx := context.Background()
	clientID := uuid.New()

	var newest *models.PaymentIntent
	for i := 0; i < 3; i++ {
		intent := seedIntent(t, repo, uuid.New(), clientID)
		if _, err := repo.TransitionState(ctx, intent.ID, enums.NonTerminalPaymentStatuses, StateChange{
			Status: enums.PaymentStatusFailed,
			Now:    time.Now().UTC(),
		}); err != nil {
			t.Fatalf("fail intent: %v", err)
		}
		newest = intent
		time.Sleep(2 * time.Millisecond)
	}
	seedIntent(t, repo, uuid.New(), uuid.New())

	rows, next, err := repo.List(ctx, listPaymentsParams{ClientID: clientID, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if next == nil {
		t.Fatalf("expected a next-page cursor")
	}
	if rows[0].ID != newest.ID {
		t.Fatalf("expected newest first")
	}

	rows, next, err = repo.List(ctx, listPaymentsParams{ClientID: clientID, Limit: 2, Cursor: next})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(rows) != 1 || next != nil {
		t.Fatalf("expected final page of 1, got %d rows", len(rows))
	}

	status := enums.PaymentStatusCompleted
	rows, _, err = repo.List(ctx, listPaymentsParams{ClientID: clientID, Status: &status})
	if err != nil {
		t.Fatalf("status filter: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("status filter leaked %d rows", len(rows))
	}
}

func TestFindUnacknowledgedBefore(t *testing.T) {
	repo := NewRepository(newRepoTestDB(t))
	ctx := context.Background()

	stale := seedIntent(t, repo, uuid.New(), uuid.New())
	acknowledged := seedIntent(t, repo, uuid.New(), uuid.New())
	fresh := seedIntent(t, repo, uuid.New(), uuid.New())

	past := time.Now().UTC().Add(-2 * time.Hour)
	db := repo.(*repositoryImpl).db
	if err := db.Model(&models.PaymentIntent{}).
		Where("id IN ?", []uuid.UUID{stale.ID, acknowledged.ID}).
		UpdateColumn("created_at", past).Error; err != nil {
		t.Fatalf("age intents: %v", err)
	}
	if _, err := repo.AttachProviderRef(ctx, acknowledged.ID, ProviderAttachment{ProviderRef: "555"}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	rows, err := repo.FindUnacknowledgedBefore(ctx, time.Now().UTC().Add(-30*time.Minute), 10)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != stale.ID {
		t.Fatalf("expected only the stale unacknowledged intent, got %d rows", len(rows))
	}
	_ = fresh
}

func TestTransitionStateUnacknowledgedGuard(t *testing.T) {
	repo := NewRepository(newRepoTestDB(t))
	ctx := context.Background()

	acknowledged := seedIntent(t, repo, uuid.New(), uuid.New())
	if _, err := repo.AttachProviderRef(ctx, acknowledged.ID, ProviderAttachment{ProviderRef: "777"}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	reason := FailureReasonProviderTimeout
	moved, err := repo.TransitionState(ctx, acknowledged.ID, enums.NonTerminalPaymentStatuses, StateChange{
		Status:             enums.PaymentStatusFailed,
		FailureReason:      &reason,
		Now:                time.Now().UTC(),
		UnacknowledgedOnly: true,
	})
	if err != nil {
		t.Fatalf("guarded transition: %v", err)
	}
	if moved {
		t.Fatalf("guard must lose once a provider ref is attached")
	}
	stored, err := repo.FindByID(ctx, acknowledged.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != enums.PaymentStatusPending {
		t.Fatalf("acknowledged intent must keep its status, got %s", stored.Status)
	}

	bare := seedIntent(t, repo, uuid.New(), uuid.New())
	moved, err = repo.TransitionState(ctx, bare.ID, enums.NonTerminalPaymentStatuses, StateChange{
		Status:             enums.PaymentStatusFailed,
		FailureReason:      &reason,
		Now:                time.Now().UTC(),
		UnacknowledgedOnly: true,
	})
	if err != nil || !moved {
		t.Fatalf("unacknowledged intent should move: moved=%t err=%v", moved, err)
	}
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// newFileBackedTestDB uses an on-disk database so concurrent writers
// block on the busy timeout instead of erroring out of shared cache.
func newFileBackedTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.Join(t.TempDir(), "payments.db"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.Exec(paymentIntentsDDL).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return conn
}

func TestApplyProviderOutcomeConcurrentOutcomesSettleOnce(t *testing.T) {
	db := newFileBackedTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	invoices := newMemoryInvoices()
	invoice := &models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-2026-0042",
		ClientID:      uuid.New(),
		Status:        enums.InvoiceStatusPending,
		Currency:      enums.CurrencyCOP,
		AmountBase:    decimal.NewFromInt(100000),
		VATAmount:     decimal.NewFromInt(19000),
		AmountTotal:   decimal.NewFromInt(119000),
		IssuedAt:      time.Now().UTC(),
	}
	invoices.invoices[invoice.ID] = invoice

	intent := seedIntent(t, repo, invoice.ID, invoice.ClientID)
	if _, err := repo.AttachProviderRef(ctx, intent.ID, ProviderAttachment{ProviderRef: "424242"}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	ob := &stubOutbox{}
	logg := logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard})
	svc, err := NewService(ServiceParams{
		DB:       gormTxRunner{db: db},
		Repo:     repo,
		Invoices: invoices,
		Gateway:  &stubGateway{},
		Outbox:   ob,
		Logger:   logg,
		Config:   config.PaymentsConfig{TimeoutWindow: 30 * time.Minute},
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	// A webhook confirmation and a poll rejection race for the same
	// payment; the guarded compare-and-set lets exactly one of them win.
	outcomes := []ProviderOutcome{
		{Kind: epayco.OutcomeAccepted, ResponseCode: "1", ResponseMessage: "Aprobada", Recognized: true, OccurredAt: time.Now().UTC()},
		{Kind: epayco.OutcomeRejected, ResponseCode: "2", ResponseMessage: "Rechazada", Recognized: true, OccurredAt: time.Now().UTC()},
	}
	errs := make([]error, len(outcomes))
	var wg sync.WaitGroup
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ApplyProviderOutcome(ctx, "424242", outcomes[i])
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("outcome %d: %v", i, err)
		}
	}

	stored, err := repo.FindByID(ctx, intent.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !stored.Status.IsTerminal() {
		t.Fatalf("expected a terminal state, got %s", stored.Status)
	}
	completed := ob.countByType(enums.EventPaymentCompleted)
	failed := ob.countByType(enums.EventPaymentFailed)
	if completed+failed != 1 {
		t.Fatalf("expected exactly one terminal event, got %d completed and %d failed", completed, failed)
	}
	switch stored.Status {
	case enums.PaymentStatusCompleted:
		if len(invoices.paid) != 1 || ob.countByType(enums.EventInvoicePaid) != 1 {
			t.Fatalf("completed winner must settle the invoice exactly once, paid=%d events=%d", len(invoices.paid), ob.countByType(enums.EventInvoicePaid))
		}
	case enums.PaymentStatusFailed:
		if len(invoices.paid) != 0 || ob.countByType(enums.EventInvoicePaid) != 0 {
			t.Fatalf("failed winner must not settle the invoice")
		}
	default:
		t.Fatalf("unexpected terminal status %s", stored.Status)
	}
}
