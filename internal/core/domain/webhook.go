package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a payment lifecycle event delivered to merchants.
type EventType string

const (
	EventPaymentConfirming EventType = "payment.confirming"
	EventPaymentCompleted  EventType = "payment.completed"
	EventPaymentFailed     EventType = "payment.failed"
	EventPaymentExpired    EventType = "payment.expired"
	EventPaymentRefunded   EventType = "payment.refunded"
	EventPaymentReorged    EventType = "payment.reorged"
)

// DeliveryStatus represents the delivery state of a webhook.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// WebhookDelivery is one lifecycle event queued for delivery to a merchant.
// Payload is an immutable snapshot taken at enqueue time; the dispatcher
// signs and sends exactly these bytes on every attempt.
type WebhookDelivery struct {
	ID                 uuid.UUID      `json:"id"`
	MerchantID         uuid.UUID      `json:"merchant_id"`
	PaymentID          uuid.UUID      `json:"payment_id"`
	EventType          EventType      `json:"event_type"`
	Payload            []byte         `json:"payload"`
	Attempts           int            `json:"attempts"`
	MaxAttempts        int            `json:"max_attempts"`
	NextAttemptAt      *time.Time     `json:"next_attempt_at,omitempty"`
	Status             DeliveryStatus `json:"status"`
	LastResponseStatus *int           `json:"last_response_status,omitempty"`
	LastResponseBody   *string        `json:"last_response_body,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// IsResolved returns true once the delivery reached a terminal status.
func (d *WebhookDelivery) IsResolved() bool {
	return d.Status == DeliveryStatusDelivered || d.Status == DeliveryStatusFailed
}

// EventForStatus maps an accepted status transition to its lifecycle event.
// The reorg reset (confirming -> pending) has its own event type.
func EventForStatus(from, to PaymentStatus) EventType {
	if from == PaymentStatusConfirming && to == PaymentStatusPending {
		return EventPaymentReorged
	}
	switch to {
	case PaymentStatusConfirming:
		return EventPaymentConfirming
	case PaymentStatusCompleted:
		return EventPaymentCompleted
	case PaymentStatusFailed:
		return EventPaymentFailed
	case PaymentStatusExpired:
		return EventPaymentExpired
	case PaymentStatusRefunded:
		return EventPaymentRefunded
	}
	return ""
}
