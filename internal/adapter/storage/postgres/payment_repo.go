package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stablecoin-gateway/internal/core/domain"
	"stablecoin-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const paymentColumns = `id, merchant_id, amount, currency, network, status, payment_url,
	transaction_hash, confirmation_count, merchant_reference, expires_at, version, created_at, updated_at`

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

// Create inserts a new payment.
func (r *PaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.MerchantID, p.Amount, p.Currency, p.Network, p.Status, p.PaymentURL,
		p.TransactionHash, p.ConfirmationCount, p.MerchantReference,
		p.ExpiresAt, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID fetches a payment by UUID.
func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.scanPayment(r.pool.QueryRow(ctx, query, id))
}

// Update persists the payment under the optimistic-concurrency check: the
// UPDATE is conditioned on the stored version still matching expectedVersion
// and bumps it by one. Zero rows affected means another writer won.
func (r *PaymentRepo) Update(ctx context.Context, p *domain.Payment, expectedVersion int64) error {
	query := `UPDATE payments
		SET status = $1, transaction_hash = $2, confirmation_count = $3,
			version = version + 1, updated_at = $4
		WHERE id = $5 AND version = $6`

	tag, err := r.pool.Exec(ctx, query,
		p.Status, p.TransactionHash, p.ConfirmationCount, p.UpdatedAt,
		p.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrVersionConflict()
	}
	p.Version = expectedVersion + 1
	return nil
}

// ListOpenByNetwork returns pending and confirming payments on a network,
// oldest first.
func (r *PaymentRepo) ListOpenByNetwork(ctx context.Context, network domain.Network, limit int) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE network = $1 AND status IN ('pending', 'confirming')
		ORDER BY created_at ASC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, network, limit)
	if err != nil {
		return nil, fmt.Errorf("list open payments: %w", err)
	}
	return collectPayments(rows)
}

// ListExpired returns pending payments whose deadline passed before now.
func (r *PaymentRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE status = 'pending' AND expires_at < $1
		ORDER BY expires_at ASC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired payments: %w", err)
	}
	return collectPayments(rows)
}

// ListByMerchant fetches a merchant's payments with pagination, newest first.
func (r *PaymentRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID, page, pageSize int) ([]domain.Payment, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE merchant_id = $1`, merchantID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE merchant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, merchantID, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	payments, err := collectPayments(rows)
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// scanPayment scans a single row into a Payment.
func (r *PaymentRepo) scanPayment(row pgx.Row) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := row.Scan(
		&p.ID, &p.MerchantID, &p.Amount, &p.Currency, &p.Network, &p.Status, &p.PaymentURL,
		&p.TransactionHash, &p.ConfirmationCount, &p.MerchantReference,
		&p.ExpiresAt, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return p, nil
}

func collectPayments(rows pgx.Rows) ([]domain.Payment, error) {
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p := domain.Payment{}
		err := rows.Scan(
			&p.ID, &p.MerchantID, &p.Amount, &p.Currency, &p.Network, &p.Status, &p.PaymentURL,
			&p.TransactionHash, &p.ConfirmationCount, &p.MerchantReference,
			&p.ExpiresAt, &p.Version, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment rows: %w", err)
	}
	return payments, nil
}
