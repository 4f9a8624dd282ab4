package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/andresvelasquez/ganaderia-backend/pkg/logger"
)

type PaymentTimeoutJobParams struct {
	Logger   *logger.Logger
	Payments paymentTimeoutSweeper
}

type paymentTimeoutSweeper interface {
	FailUnacknowledged(ctx context.Context, now time.Time) (int, error)
}

// NewPaymentTimeoutJob fails pending payments the gateway never
// acknowledged within the configured window.
func NewPaymentTimeoutJob(params PaymentTimeoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	return &paymentTimeoutJob{
		logg:     params.Logger,
		payments: params.Payments,
		now:      time.Now,
	}, nil
}

type paymentTimeoutJob struct {
	logg     *logger.Logger
	payments paymentTimeoutSweeper
	now      func() time.Time
}

func (j *paymentTimeoutJob) Name() string { return "payment-timeout" }

func (j *paymentTimeoutJob) Run(ctx context.Context) error {
	failed, err := j.payments.FailUnacknowledged(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("payment timeout sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"payments_failed": failed,
	})
	j.logg.Info(logCtx, "payment timeout sweep complete")
	return nil
}
