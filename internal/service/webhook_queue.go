package service

import (
	"context"
	"fmt"
	"time"

	"stablecoin-gateway/config"
	"stablecoin-gateway/internal/core/domain"
	"stablecoin-gateway/internal/core/ports"

	"github.com/google/uuid"
)

// DurableWebhookQueue implements ports.WebhookQueue on top of the delivery
// repository. Enqueue writes one pending row per event; the dispatcher picks
// it up on its next poll. An event survives a process crash once the row is
// committed.
type DurableWebhookQueue struct {
	deliveryRepo ports.WebhookDeliveryRepository
	maxAttempts  int
}

// NewDurableWebhookQueue creates a queue bound to the delivery repository.
func NewDurableWebhookQueue(deliveryRepo ports.WebhookDeliveryRepository, cfg config.WebhookConfig) *DurableWebhookQueue {
	return &DurableWebhookQueue{
		deliveryRepo: deliveryRepo,
		maxAttempts:  cfg.MaxAttempts,
	}
}

// Enqueue records a lifecycle event for asynchronous delivery. The payload
// bytes are stored as-is and never re-serialized.
func (q *DurableWebhookQueue) Enqueue(ctx context.Context, merchantID, paymentID uuid.UUID, eventType domain.EventType, payload []byte) error {
	now := time.Now().UTC()
	delivery := &domain.WebhookDelivery{
		ID:            uuid.New(),
		MerchantID:    merchantID,
		PaymentID:     paymentID,
		EventType:     eventType,
		Payload:       payload,
		Attempts:      0,
		MaxAttempts:   q.maxAttempts,
		NextAttemptAt: &now,
		Status:        domain.DeliveryStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := q.deliveryRepo.Create(ctx, delivery); err != nil {
		return fmt.Errorf("enqueue webhook delivery: %w", err)
	}
	return nil
}
