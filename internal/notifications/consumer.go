package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/andresvelasquez/ganaderia-backend/pkg/db/models"
	"github.com/andresvelasquez/ganaderia-backend/pkg/enums"
	"github.com/andresvelasquez/ganaderia-backend/pkg/logger"
	"github.com/andresvelasquez/ganaderia-backend/pkg/outbox"
	"github.com/andresvelasquez/ganaderia-backend/pkg/outbox/idempotency"
	"github.com/andresvelasquez/ganaderia-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

const paymentNotificationConsumer = "payment-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches payment and invoice events and fans them out as
// in-app notifications for the affected client.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a payment notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if !isNotifiableEvent(eventType) {
		c.logg.Info(logCtx, "skipping event without notification mapping")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, paymentNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	notification, err := c.buildNotification(eventType, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to build notification", err)
		_ = c.idempotency.Delete(ctx, paymentNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	if notification == nil {
		return processResult{ack: true}
	}

	if err := c.repo.Create(ctx, notification); err != nil {
		c.logg.Error(logCtx, "failed to persist notification", err)
		_ = c.idempotency.Delete(ctx, paymentNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	logCtx = c.logg.WithField(logCtx, "user_id", notification.UserID.String())
	c.logg.Info(logCtx, "client notified")
	return processResult{ack: true}
}

func isNotifiableEvent(eventType enums.OutboxEventType) bool {
	switch eventType {
	case enums.EventPaymentCompleted, enums.EventPaymentFailed, enums.EventPaymentCancelled, enums.EventInvoiceIssued:
		return true
	}
	return false
}

func (c *Consumer) buildNotification(eventType enums.OutboxEventType, data json.RawMessage) (*models.Notification, error) {
	switch eventType {
	case enums.EventPaymentCompleted, enums.EventPaymentFailed, enums.EventPaymentCancelled:
		var payload payloads.PaymentStatusEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return paymentNotification(eventType, payload)
	case enums.EventInvoiceIssued:
		var payload payloads.InvoiceIssuedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return invoiceIssuedNotification(payload)
	}
	return nil, nil
}

func paymentNotification(eventType enums.OutboxEventType, payload payloads.PaymentStatusEvent) (*models.Notification, error) {
	if payload.ClientID == uuid.Nil {
		return nil, fmt.Errorf("client id missing")
	}
	link := fmt.Sprintf("/payments/%s", payload.PaymentID)
	notification := &models.Notification{
		UserID: payload.ClientID,
		Link:   stringPtr(link),
	}
	amount := payload.Amount.StringFixed(2)
	switch eventType {
	case enums.EventPaymentCompleted:
		notification.Type = enums.NotificationTypePaymentCompleted
		notification.Title = "Pago aprobado"
		notification.Message = fmt.Sprintf("Tu pago de %s %s por la factura %s fue aprobado.", amount, payload.Currency, payload.InvoiceNumber)
	case enums.EventPaymentFailed:
		notification.Type = enums.NotificationTypePaymentFailed
		notification.Title = "Pago rechazado"
		notification.Message = fmt.Sprintf("Tu pago de %s %s por la factura %s no pudo completarse.", amount, payload.Currency, payload.InvoiceNumber)
	case enums.EventPaymentCancelled:
		notification.Type = enums.NotificationTypePaymentCancelled
		notification.Title = "Pago cancelado"
		notification.Message = fmt.Sprintf("Cancelaste el pago de la factura %s.", payload.InvoiceNumber)
	default:
		return nil, fmt.Errorf("unexpected payment event %s", eventType)
	}
	return notification, nil
}

func invoiceIssuedNotification(payload payloads.InvoiceIssuedEvent) (*models.Notification, error) {
	if payload.ClientID == uuid.Nil {
		return nil, fmt.Errorf("client id missing")
	}
	message := fmt.Sprintf("Se emitio la factura %s por %s COP.", payload.InvoiceNumber, payload.Amount.StringFixed(2))
	if payload.DueAt != nil {
		message = fmt.Sprintf("%s Vence el %s.", message, payload.DueAt.Format("2006-01-02"))
	}
	return &models.Notification{
		UserID:  payload.ClientID,
		Type:    enums.NotificationTypeInvoiceIssued,
		Title:   "Nueva factura",
		Message: message,
		Link:    stringPtr(fmt.Sprintf("/invoices/%s", payload.InvoiceID)),
	}, nil
}

func stringPtr(value string) *string {
	return &value
}
