package domain

import (
	"time"

	"github.com/google/uuid"
)

// Network identifies the blockchain a payment settles on.
type Network string

const (
	NetworkEthereum Network = "ethereum"
	NetworkPolygon  Network = "polygon"
)

// Valid reports whether the network is one of the supported chains.
func (n Network) Valid() bool {
	return n == NetworkEthereum || n == NetworkPolygon
}

// PaymentStatus represents the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusConfirming PaymentStatus = "confirming"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusExpired    PaymentStatus = "expired"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// Payment represents a merchant-initiated stablecoin payment request tracked
// through its on-chain settlement lifecycle. Amount is an exact decimal
// string and is never parsed into a float.
type Payment struct {
	ID                uuid.UUID     `json:"id"`
	MerchantID        uuid.UUID     `json:"merchant_id"`
	Amount            string        `json:"amount"`
	Currency          string        `json:"currency"`
	Network           Network       `json:"network"`
	Status            PaymentStatus `json:"status"`
	PaymentURL        string        `json:"payment_url"`
	TransactionHash   *string       `json:"transaction_hash,omitempty"`
	ConfirmationCount int           `json:"confirmation_count"`
	MerchantReference *string       `json:"merchant_reference,omitempty"`
	ExpiresAt         time.Time     `json:"expires_at"`
	Version           int64         `json:"-"` // Optimistic-concurrency token
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// IsTerminal returns true if the payment is in a final state. A completed
// payment is terminal for every edge except the explicit refund.
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusExpired, PaymentStatusRefunded:
		return true
	}
	return false
}

// IsOpen returns true if the payment still awaits on-chain settlement.
func (p *Payment) IsOpen() bool {
	return p.Status == PaymentStatusPending || p.Status == PaymentStatusConfirming
}

// CanTransitionTo reports whether the edge from the payment's current status
// to next exists in the lifecycle state machine.
func (p *Payment) CanTransitionTo(next PaymentStatus) bool {
	switch p.Status {
	case PaymentStatusPending:
		return next == PaymentStatusConfirming || next == PaymentStatusExpired
	case PaymentStatusConfirming:
		// confirming -> pending is the reorg reset.
		return next == PaymentStatusCompleted ||
			next == PaymentStatusFailed ||
			next == PaymentStatusPending
	case PaymentStatusCompleted:
		return next == PaymentStatusRefunded
	}
	return false
}
