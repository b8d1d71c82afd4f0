package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"stablecoin-gateway/internal/core/domain"
	"stablecoin-gateway/pkg/apperror"

	"github.com/google/uuid"
)

// --- In-Memory Merchant Repo ---

type inMemoryMerchantRepo struct {
	mu        sync.RWMutex
	merchants map[uuid.UUID]*domain.Merchant
}

func newInMemoryMerchantRepo() *inMemoryMerchantRepo {
	return &inMemoryMerchantRepo{merchants: make(map[uuid.UUID]*domain.Merchant)}
}

func (r *inMemoryMerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.merchants {
		if existing.Email == m.Email {
			return fmt.Errorf("email already exists")
		}
	}
	cloned := *m
	r.merchants[m.ID] = &cloned
	return nil
}

func (r *inMemoryMerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.merchants[id]
	if !ok {
		return nil, nil
	}
	cloned := *m
	return &cloned, nil
}

func (r *inMemoryMerchantRepo) GetByEmail(ctx context.Context, email string) (*domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.merchants {
		if m.Email == email {
			cloned := *m
			return &cloned, nil
		}
	}
	return nil, nil
}

func (r *inMemoryMerchantRepo) GetByAPIKey(ctx context.Context, apiKey string) (*domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.merchants {
		if m.APIKey == apiKey {
			cloned := *m
			return &cloned, nil
		}
	}
	return nil, nil
}

func (r *inMemoryMerchantRepo) Update(ctx context.Context, m *domain.Merchant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.merchants[m.ID]; !ok {
		return fmt.Errorf("merchant not found")
	}
	cloned := *m
	r.merchants[m.ID] = &cloned
	return nil
}

// --- In-Memory Payment Repo ---

// inMemoryPaymentRepo enforces the same optimistic-concurrency contract as
// the postgres implementation: Update succeeds only when the stored version
// matches expectedVersion, and bumps it by one.
type inMemoryPaymentRepo struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*domain.Payment
}

func newInMemoryPaymentRepo() *inMemoryPaymentRepo {
	return &inMemoryPaymentRepo{payments: make(map[uuid.UUID]*domain.Payment)}
}

func (r *inMemoryPaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cloned := *p
	r.payments[p.ID] = &cloned
	return nil
}

func (r *inMemoryPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	cloned := *p
	return &cloned, nil
}

func (r *inMemoryPaymentRepo) Update(ctx context.Context, p *domain.Payment, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.payments[p.ID]
	if !ok || stored.Version != expectedVersion {
		return apperror.ErrVersionConflict()
	}
	cloned := *p
	cloned.Version = expectedVersion + 1
	cloned.UpdatedAt = time.Now().UTC()
	r.payments[p.ID] = &cloned
	p.Version = cloned.Version
	return nil
}

func (r *inMemoryPaymentRepo) ListOpenByNetwork(ctx context.Context, network domain.Network, limit int) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Payment
	for _, p := range r.payments {
		if p.Network == network && p.IsOpen() {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *inMemoryPaymentRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Payment
	for _, p := range r.payments {
		if p.Status == domain.PaymentStatusPending && p.ExpiresAt.Before(now) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *inMemoryPaymentRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID, page, pageSize int) ([]domain.Payment, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []domain.Payment
	for _, p := range r.payments {
		if p.MerchantID == merchantID {
			all = append(all, *p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// --- In-Memory Webhook Delivery Repo ---

// inMemoryDeliveryRepo mirrors the postgres ClaimDue semantics: claiming a
// due pending delivery pushes its next_attempt_at forward by the lease so a
// concurrent claimer cannot pick it up again.
type inMemoryDeliveryRepo struct {
	mu         sync.RWMutex
	deliveries map[uuid.UUID]*domain.WebhookDelivery
}

func newInMemoryDeliveryRepo() *inMemoryDeliveryRepo {
	return &inMemoryDeliveryRepo{deliveries: make(map[uuid.UUID]*domain.WebhookDelivery)}
}

func (r *inMemoryDeliveryRepo) Create(ctx context.Context, d *domain.WebhookDelivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cloned := *d
	r.deliveries[d.ID] = &cloned
	return nil
}

func (r *inMemoryDeliveryRepo) Update(ctx context.Context, d *domain.WebhookDelivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.deliveries[d.ID]; !ok {
		return fmt.Errorf("delivery not found")
	}
	cloned := *d
	cloned.UpdatedAt = time.Now().UTC()
	r.deliveries[d.ID] = &cloned
	return nil
}

func (r *inMemoryDeliveryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookDelivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.deliveries[id]
	if !ok {
		return nil, nil
	}
	cloned := *d
	return &cloned, nil
}

func (r *inMemoryDeliveryRepo) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]domain.WebhookDelivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*domain.WebhookDelivery
	for _, d := range r.deliveries {
		if d.Status == domain.DeliveryStatusPending && d.NextAttemptAt != nil && !d.NextAttemptAt.After(now) {
			due = append(due, d)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextAttemptAt.Before(*due[j].NextAttemptAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	out := make([]domain.WebhookDelivery, 0, len(due))
	for _, d := range due {
		leased := now.Add(lease)
		d.NextAttemptAt = &leased
		d.UpdatedAt = now
		out = append(out, *d)
	}
	return out, nil
}

func (r *inMemoryDeliveryRepo) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]domain.WebhookDelivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.WebhookDelivery
	for _, d := range r.deliveries {
		if d.PaymentID == paymentID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
