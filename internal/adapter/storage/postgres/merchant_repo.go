package postgres

import (
	"context"
	"errors"
	"fmt"

	"stablecoin-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const merchantColumns = `id, email, password_hash, business_name, business_type, api_key,
	webhook_url, webhook_secret_enc, status, created_at, updated_at`

// MerchantRepo implements ports.MerchantRepository.
type MerchantRepo struct {
	pool Pool
}

// NewMerchantRepo creates a new MerchantRepo.
func NewMerchantRepo(pool Pool) *MerchantRepo {
	return &MerchantRepo{pool: pool}
}

// Create inserts a new merchant into the database.
func (r *MerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	query := `INSERT INTO merchants (` + merchantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		m.ID, m.Email, m.PasswordHash, m.BusinessName, m.BusinessType, m.APIKey,
		m.WebhookURL, m.WebhookSecretEnc, m.Status, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert merchant: %w", err)
	}
	return nil
}

// GetByID fetches a merchant by its UUID.
func (r *MerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE id = $1`
	return r.scanMerchant(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail fetches a merchant by email.
func (r *MerchantRepo) GetByEmail(ctx context.Context, email string) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE email = $1`
	return r.scanMerchant(r.pool.QueryRow(ctx, query, email))
}

// GetByAPIKey fetches a merchant by its API key.
func (r *MerchantRepo) GetByAPIKey(ctx context.Context, apiKey string) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE api_key = $1`
	return r.scanMerchant(r.pool.QueryRow(ctx, query, apiKey))
}

// Update persists merchant settings changes.
func (r *MerchantRepo) Update(ctx context.Context, m *domain.Merchant) error {
	query := `UPDATE merchants
		SET business_name = $1, business_type = $2, webhook_url = $3,
			webhook_secret_enc = $4, status = $5, updated_at = $6
		WHERE id = $7`

	tag, err := r.pool.Exec(ctx, query,
		m.BusinessName, m.BusinessType, m.WebhookURL,
		m.WebhookSecretEnc, m.Status, m.UpdatedAt, m.ID,
	)
	if err != nil {
		return fmt.Errorf("update merchant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("merchant not found: %s", m.ID)
	}
	return nil
}

// scanMerchant scans a single row into a Merchant.
func (r *MerchantRepo) scanMerchant(row pgx.Row) (*domain.Merchant, error) {
	m := &domain.Merchant{}
	err := row.Scan(
		&m.ID, &m.Email, &m.PasswordHash, &m.BusinessName, &m.BusinessType, &m.APIKey,
		&m.WebhookURL, &m.WebhookSecretEnc, &m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get merchant: %w", err)
	}
	return m, nil
}
