package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/andresvelasquez/ganaderia-backend/pkg/db/models"
	"github.com/andresvelasquez/ganaderia-backend/pkg/enums"
	"github.com/andresvelasquez/ganaderia-backend/pkg/pagination"
)

// InFlightConstraint is the partial unique index enforcing one
// non-terminal intent per invoice.
const InFlightConstraint = "ux_payment_intents_invoice_in_flight"

// Repository exposes persistence helpers for payment intents.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, intent *models.PaymentIntent) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)
	FindByProviderRef(ctx context.Context, providerRef string) (*models.PaymentIntent, error)
	FindInFlightByInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.PaymentIntent, error)
	AttachProviderRef(ctx context.Context, id uuid.UUID, attach ProviderAttachment) (bool, error)
	TransitionState(ctx context.Context, id uuid.UUID, from []enums.PaymentStatus, change StateChange) (bool, error)
	UpdateProviderAudit(ctx context.Context, id uuid.UUID, audit ProviderAudit) error
	List(ctx context.Context, params listPaymentsParams) ([]models.PaymentIntent, *pagination.Cursor, error)
	FindUnacknowledgedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentIntent, error)
}

// ProviderAttachment records the gateway acknowledgment of a charge.
// The reference can only ever be written once.
type ProviderAttachment struct {
	ProviderRef     string
	BankName        *string
	BankRedirectURL *string
	ResponseCode    *string
	ResponseMessage *string
}

// StateChange is the column set applied alongside a guarded status move.
type StateChange struct {
	Status          enums.PaymentStatus
	FailureReason   *string
	ResponseCode    *string
	ResponseMessage *string
	PaidAt          *time.Time
	Now             time.Time

	// UnacknowledgedOnly additionally requires provider_ref to still be
	// unset, so the timeout sweep cannot fail an intent the gateway
	// acknowledged after the sweep selected it.
	UnacknowledgedOnly bool
}

// ProviderAudit is a latest-wins update of provider echo fields that
// never touches the lifecycle status.
type ProviderAudit struct {
	ResponseCode    *string
	ResponseMessage *string
	BankName        *string
	Now             time.Time
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listPaymentsParams struct {
	ClientID  uuid.UUID
	Status    *enums.PaymentStatus
	InvoiceID *uuid.UUID
	Limit     int
	Cursor    *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, intent *models.PaymentIntent) error {
	return r.db.WithContext(ctx).Create(intent).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := r.db.WithContext(ctx).First(&intent, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *repositoryImpl) FindByProviderRef(ctx context.Context, providerRef string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := r.db.WithContext(ctx).First(&intent, "provider_ref = ?", providerRef).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *repositoryImpl) FindInFlightByInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("invoice_id = ? AND status IN ?", invoiceID, enums.NonTerminalPaymentStatuses).
		First(&intent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &intent, nil
}

func (r *repositoryImpl) AttachProviderRef(ctx context.Context, id uuid.UUID, attach ProviderAttachment) (bool, error) {
	set := map[string]any{
		"provider_ref": attach.ProviderRef,
		"updated_at":   time.Now().UTC(),
	}
	if attach.BankName != nil {
		set["bank_name"] = attach.BankName
	}
	if attach.BankRedirectURL != nil {
		set["bank_redirect_url"] = attach.BankRedirectURL
	}
	if attach.ResponseCode != nil {
		set["provider_response_code"] = attach.ResponseCode
	}
	if attach.ResponseMessage != nil {
		set["provider_response_message"] = attach.ResponseMessage
	}
	result := r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("id = ? AND provider_ref IS NULL", id).
		Updates(set)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) TransitionState(ctx context.Context, id uuid.UUID, from []enums.PaymentStatus, change StateChange) (bool, error) {
	now := change.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	set := map[string]any{
		"status":     change.Status,
		"updated_at": now,
	}
	if change.FailureReason != nil {
		set["failure_reason"] = change.FailureReason
	}
	if change.ResponseCode != nil {
		set["provider_response_code"] = change.ResponseCode
	}
	if change.ResponseMessage != nil {
		set["provider_response_message"] = change.ResponseMessage
	}
	if change.PaidAt != nil {
		set["paid_at"] = change.PaidAt
	}
	query := r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("id = ? AND status IN ?", id, from)
	if change.UnacknowledgedOnly {
		query = query.Where("provider_ref IS NULL")
	}
	result := query.Updates(set)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) UpdateProviderAudit(ctx context.Context, id uuid.UUID, audit ProviderAudit) error {
	now := audit.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	set := map[string]any{"updated_at": now}
	if audit.ResponseCode != nil {
		set["provider_response_code"] = audit.ResponseCode
	}
	if audit.ResponseMessage != nil {
		set["provider_response_message"] = audit.ResponseMessage
	}
	if audit.BankName != nil {
		set["bank_name"] = audit.BankName
	}
	return r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("id = ?", id).
		Updates(set).Error
}

func (r *repositoryImpl) List(ctx context.Context, params listPaymentsParams) ([]models.PaymentIntent, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.PaymentIntent{}).Where("client_id = ?", params.ClientID)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.InvoiceID != nil {
		query = query.Where("invoice_id = ?", *params.InvoiceID)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var intents []models.PaymentIntent
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&intents).Error; err != nil {
		return nil, nil, err
	}

	if len(intents) > normalized {
		next := intents[normalized]
		intents = intents[:normalized]
		return intents, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return intents, nil, nil
}

func (r *repositoryImpl) FindUnacknowledgedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentIntent, error) {
	if limit <= 0 {
		limit = 100
	}
	var intents []models.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("status = ? AND provider_ref IS NULL AND created_at < ?", enums.PaymentStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&intents).Error
	if err != nil {
		return nil, err
	}
	return intents, nil
}
