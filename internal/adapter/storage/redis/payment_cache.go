package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stablecoin-gateway/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// cachedPayment carries the version alongside the payment: the API shape
// hides the version, but the cache must round-trip it.
type cachedPayment struct {
	*domain.Payment
	Version int64 `json:"version"`
}

// PaymentCache implements ports.PaymentCache using Redis. Entries are
// invalidated on every accepted transition so readers never see a stale
// status past one cache round-trip.
type PaymentCache struct {
	client *goredis.Client
	prefix string
}

// NewPaymentCache creates a new Redis-backed payment cache.
func NewPaymentCache(client *goredis.Client) *PaymentCache {
	return &PaymentCache{
		client: client,
		prefix: "payment:",
	}
}

// Get retrieves a cached payment by ID.
// Returns nil, nil if the key does not exist.
func (c *PaymentCache) Get(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	val, err := c.client.Get(ctx, c.prefix+id.String()).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis payment get: %w", err)
	}

	entry := cachedPayment{Payment: &domain.Payment{}}
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, fmt.Errorf("decode cached payment: %w", err)
	}
	entry.Payment.Version = entry.Version
	return entry.Payment, nil
}

// Set stores a payment with TTL.
func (c *PaymentCache) Set(ctx context.Context, payment *domain.Payment, ttl time.Duration) error {
	val, err := json.Marshal(cachedPayment{Payment: payment, Version: payment.Version})
	if err != nil {
		return fmt.Errorf("encode payment: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+payment.ID.String(), val, ttl).Err(); err != nil {
		return fmt.Errorf("redis payment set: %w", err)
	}
	return nil
}

// Invalidate removes a payment from the cache.
func (c *PaymentCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, c.prefix+id.String()).Err(); err != nil {
		return fmt.Errorf("redis payment del: %w", err)
	}
	return nil
}
