package invoices

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/andresvelasquez/ganaderia-backend/pkg/db/models"
	"github.com/andresvelasquez/ganaderia-backend/pkg/enums"
	"github.com/andresvelasquez/ganaderia-backend/pkg/pagination"
)

// Repository exposes persistence helpers for invoices.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateTx(tx *gorm.DB, invoice *models.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*models.Invoice, error)
	FindByNumber(ctx context.Context, number string) (*models.Invoice, error)
	List(ctx context.Context, params listInvoicesParams) ([]models.Invoice, *pagination.Cursor, error)
	MarkPaidTx(tx *gorm.DB, id uuid.UUID, paidAt time.Time) (bool, error)
	MarkOverdueBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Invoice, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an invoices repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listInvoicesParams struct {
	ClientID uuid.UUID
	Status   *enums.InvoiceStatus
	Limit    int
	Cursor   *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateTx(tx *gorm.DB, invoice *models.Invoice) error {
	return tx.Create(invoice).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).Preload("Items").First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repositoryImpl) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := tx.First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repositoryImpl) FindByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).Preload("Items").First(&invoice, "invoice_number = ?", number).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listInvoicesParams) ([]models.Invoice, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Invoice{}).Where("client_id = ?", params.ClientID)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var invoices []models.Invoice
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&invoices).Error; err != nil {
		return nil, nil, err
	}

	if len(invoices) > normalized {
		next := invoices[normalized]
		invoices = invoices[:normalized]
		return invoices, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return invoices, nil, nil
}

// MarkPaidTx settles an invoice exactly once; repeated calls lose the guard.
func (r *repositoryImpl) MarkPaidTx(tx *gorm.DB, id uuid.UUID, paidAt time.Time) (bool, error) {
	result := tx.Model(&models.Invoice{}).
		Where("id = ? AND status <> ?", id, enums.InvoiceStatusPaid).
		Updates(map[string]any{
			"status":     enums.InvoiceStatusPaid,
			"paid_at":    paidAt,
			"updated_at": paidAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkOverdueBefore flips pending invoices whose due date passed and
// returns the rows it changed.
func (r *repositoryImpl) MarkOverdueBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Invoice, error) {
	if limit <= 0 {
		limit = 100
	}
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Where("status = ? AND due_at IS NOT NULL AND due_at < ?", enums.InvoiceStatusPending, cutoff).
		Order("due_at ASC").
		Limit(limit).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	flipped := invoices[:0]
	for i := range invoices {
		result := r.db.WithContext(ctx).Model(&models.Invoice{}).
			Where("id = ? AND status = ?", invoices[i].ID, enums.InvoiceStatusPending).
			Updates(map[string]any{"status": enums.InvoiceStatusOverdue, "updated_at": now})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected > 0 {
			invoices[i].Status = enums.InvoiceStatusOverdue
			flipped = append(flipped, invoices[i])
		}
	}
	return flipped, nil
}
