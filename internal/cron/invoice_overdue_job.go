package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/andresvelasquez/ganaderia-backend/pkg/db/models"
	"github.com/andresvelasquez/ganaderia-backend/pkg/logger"
)

const invoiceOverdueBatchSize = 200

type InvoiceOverdueJobParams struct {
	Logger   *logger.Logger
	Invoices invoiceOverdueRepo
}

type invoiceOverdueRepo interface {
	MarkOverdueBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Invoice, error)
}

// NewInvoiceOverdueJob flips pending invoices past their due date.
func NewInvoiceOverdueJob(params InvoiceOverdueJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Invoices == nil {
		return nil, fmt.Errorf("invoices repository required")
	}
	return &invoiceOverdueJob{
		logg:     params.Logger,
		invoices: params.Invoices,
		now:      time.Now,
	}, nil
}

type invoiceOverdueJob struct {
	logg     *logger.Logger
	invoices invoiceOverdueRepo
	now      func() time.Time
}

func (j *invoiceOverdueJob) Name() string { return "invoice-overdue" }

func (j *invoiceOverdueJob) Run(ctx context.Context) error {
	flipped, err := j.invoices.MarkOverdueBefore(ctx, j.now().UTC(), invoiceOverdueBatchSize)
	if err != nil {
		return fmt.Errorf("invoice overdue sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"invoices_overdue": len(flipped),
	})
	j.logg.Info(logCtx, "invoice overdue sweep complete")
	return nil
}
