package ports

//go:generate mockgen -source=repositories.go -destination=mocks/repositories_mock.go -package=mocks

import (
	"context"
	"time"

	"stablecoin-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// PaymentRepository defines persistence operations for payments. Update is
// the single mutation path and is conditioned on the record's version: a
// concurrent conflicting writer loses with apperror.ErrVersionConflict.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	// Update persists the payment if its stored version still equals
	// expectedVersion, bumping the version by one. Returns
	// apperror.ErrVersionConflict when another writer won the race.
	Update(ctx context.Context, payment *domain.Payment, expectedVersion int64) error
	// ListOpenByNetwork returns pending and confirming payments on a network,
	// oldest first, bounded by limit.
	ListOpenByNetwork(ctx context.Context, network domain.Network, limit int) ([]domain.Payment, error)
	// ListExpired returns pending payments whose deadline passed before now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Payment, error)
	ListByMerchant(ctx context.Context, merchantID uuid.UUID, page, pageSize int) ([]domain.Payment, int64, error)
}

// WebhookDeliveryRepository defines persistence for the durable delivery queue.
type WebhookDeliveryRepository interface {
	Create(ctx context.Context, delivery *domain.WebhookDelivery) error
	Update(ctx context.Context, delivery *domain.WebhookDelivery) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookDelivery, error)
	// ClaimDue atomically claims pending deliveries whose next_attempt_at has
	// passed, pushing their next_attempt_at forward by lease so concurrent
	// dispatchers never double-send. Oldest first, bounded by limit.
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]domain.WebhookDelivery, error)
	ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]domain.WebhookDelivery, error)
}

// MerchantRepository defines persistence operations for merchants.
type MerchantRepository interface {
	Create(ctx context.Context, merchant *domain.Merchant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	GetByEmail(ctx context.Context, email string) (*domain.Merchant, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*domain.Merchant, error)
	Update(ctx context.Context, merchant *domain.Merchant) error
}
