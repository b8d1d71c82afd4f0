package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stablecoin-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const deliveryColumns = `id, merchant_id, payment_id, event_type, payload, attempts, max_attempts,
	next_attempt_at, status, last_response_status, last_response_body, created_at, updated_at`

// WebhookDeliveryRepo implements ports.WebhookDeliveryRepository.
type WebhookDeliveryRepo struct {
	pool Pool
}

// NewWebhookDeliveryRepo creates a new WebhookDeliveryRepo.
func NewWebhookDeliveryRepo(pool Pool) *WebhookDeliveryRepo {
	return &WebhookDeliveryRepo{pool: pool}
}

// Create inserts a new delivery row.
func (r *WebhookDeliveryRepo) Create(ctx context.Context, d *domain.WebhookDelivery) error {
	query := `INSERT INTO webhook_deliveries (` + deliveryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		d.ID, d.MerchantID, d.PaymentID, d.EventType, d.Payload, d.Attempts, d.MaxAttempts,
		d.NextAttemptAt, d.Status, d.LastResponseStatus, d.LastResponseBody,
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook delivery: %w", err)
	}
	return nil
}

// Update persists attempt bookkeeping and status changes.
func (r *WebhookDeliveryRepo) Update(ctx context.Context, d *domain.WebhookDelivery) error {
	query := `UPDATE webhook_deliveries
		SET attempts = $1, next_attempt_at = $2, status = $3,
			last_response_status = $4, last_response_body = $5, updated_at = $6
		WHERE id = $7`

	tag, err := r.pool.Exec(ctx, query,
		d.Attempts, d.NextAttemptAt, d.Status,
		d.LastResponseStatus, d.LastResponseBody, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return fmt.Errorf("update webhook delivery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("webhook delivery not found: %s", d.ID)
	}
	return nil
}

// GetByID fetches a delivery by UUID.
func (r *WebhookDeliveryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookDelivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM webhook_deliveries WHERE id = $1`

	d := &domain.WebhookDelivery{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.MerchantID, &d.PaymentID, &d.EventType, &d.Payload, &d.Attempts, &d.MaxAttempts,
		&d.NextAttemptAt, &d.Status, &d.LastResponseStatus, &d.LastResponseBody,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get webhook delivery: %w", err)
	}
	return d, nil
}

// ClaimDue claims pending deliveries whose next_attempt_at passed, pushing
// next_attempt_at forward by lease in the same statement. SKIP LOCKED lets
// concurrent dispatchers claim disjoint sets, and the lease keeps a claimed
// row out of later polls until its attempt is recorded.
func (r *WebhookDeliveryRepo) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]domain.WebhookDelivery, error) {
	query := `WITH due AS (
			SELECT id FROM webhook_deliveries
			WHERE status = 'pending' AND next_attempt_at <= $1
			ORDER BY next_attempt_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE webhook_deliveries w
		SET next_attempt_at = $3, updated_at = $1
		FROM due
		WHERE w.id = due.id
		RETURNING w.id, w.merchant_id, w.payment_id, w.event_type, w.payload, w.attempts, w.max_attempts,
			w.next_attempt_at, w.status, w.last_response_status, w.last_response_body, w.created_at, w.updated_at`

	rows, err := r.pool.Query(ctx, query, now, limit, now.Add(lease))
	if err != nil {
		return nil, fmt.Errorf("claim due deliveries: %w", err)
	}
	return collectDeliveries(rows)
}

// ListByPayment returns all deliveries of a payment, oldest first.
func (r *WebhookDeliveryRepo) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]domain.WebhookDelivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM webhook_deliveries
		WHERE payment_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return collectDeliveries(rows)
}

func collectDeliveries(rows pgx.Rows) ([]domain.WebhookDelivery, error) {
	defer rows.Close()

	var deliveries []domain.WebhookDelivery
	for rows.Next() {
		d := domain.WebhookDelivery{}
		err := rows.Scan(
			&d.ID, &d.MerchantID, &d.PaymentID, &d.EventType, &d.Payload, &d.Attempts, &d.MaxAttempts,
			&d.NextAttemptAt, &d.Status, &d.LastResponseStatus, &d.LastResponseBody,
			&d.CreatedAt, &d.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan delivery row: %w", err)
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery rows: %w", err)
	}
	return deliveries, nil
}
