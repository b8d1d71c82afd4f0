package ports

//go:generate mockgen -source=services.go -destination=mocks/services_mock.go -package=mocks

import (
	"context"
	"time"

	"stablecoin-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// --- Blockchain access ---

// TxReceipt is the minimal receipt view the lifecycle engine needs.
type TxReceipt struct {
	BlockNumber uint64
	// Reverted is true when the transaction executed but failed on-chain.
	Reverted bool
}

// ChainClient provides read-only blockchain access per network. Every error
// returned is transient (CHAIN_001): callers log and retry on the next tick.
type ChainClient interface {
	// HeadBlock returns the current chain head height.
	HeadBlock(ctx context.Context, network domain.Network) (uint64, error)
	// TransactionByHash reports whether the transaction is known to the node
	// and whether it is still waiting in the mempool.
	TransactionByHash(ctx context.Context, network domain.Network, hash string) (found bool, pending bool, err error)
	// TransactionReceipt returns the receipt for a mined transaction, or nil
	// if the transaction is not mined on the canonical chain.
	TransactionReceipt(ctx context.Context, network domain.Network, hash string) (*TxReceipt, error)
}

// --- Payment lifecycle ---

// CreatePaymentRequest holds validated input for payment creation.
type CreatePaymentRequest struct {
	MerchantID        uuid.UUID
	Amount            string
	Currency          string
	MerchantReference *string
}

// ChainObservation carries one round of observed chain state for a payment.
// An empty TxHash with zero confirmations signals a reorg reset.
type ChainObservation struct {
	PaymentID     uuid.UUID
	TxHash        string
	Confirmations int
	Reverted      bool
}

// PaymentService owns the payment state machine. It is the only component
// allowed to mutate a payment's status.
type PaymentService interface {
	Create(ctx context.Context, req CreatePaymentRequest) (*domain.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	ListPayments(ctx context.Context, merchantID uuid.UUID, page, pageSize int) ([]domain.Payment, int64, error)
	// ObserveChainActivity feeds observed chain state into the state machine.
	// Observations against terminal payments are accepted no-ops.
	ObserveChainActivity(ctx context.Context, obs ChainObservation) error
	// Expire retires a pending payment whose deadline passed.
	Expire(ctx context.Context, paymentID uuid.UUID) error
	// Refund transitions a completed payment to refunded. merchantID scopes
	// the operation to the owning merchant.
	Refund(ctx context.Context, merchantID, paymentID uuid.UUID) (*domain.Payment, error)
	// ListDeliveries exposes the webhook delivery history of a payment for
	// operator inspection.
	ListDeliveries(ctx context.Context, merchantID, paymentID uuid.UUID) ([]domain.WebhookDelivery, error)
}

// WebhookQueue accepts lifecycle events for asynchronous delivery. The
// lifecycle manager enqueues through this; it never writes delivery records
// itself.
type WebhookQueue interface {
	Enqueue(ctx context.Context, merchantID, paymentID uuid.UUID, eventType domain.EventType, payload []byte) error
}

// PaymentCache is a read-through cache for payment lookups, invalidated on
// every accepted transition.
type PaymentCache interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	Set(ctx context.Context, payment *domain.Payment, ttl time.Duration) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// --- Crypto services ---

// EncryptionService handles AES-256-GCM encryption/decryption of secrets at rest.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService handles HMAC-SHA256 signing and verification of webhook
// payloads. Signatures are lowercase hex over the exact serialized body.
type SignatureService interface {
	Sign(secret string, payload []byte) string
	Verify(secret string, payload []byte, signature string) bool
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations for dashboard sessions.
type TokenService interface {
	Generate(merchantID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	MerchantID uuid.UUID
}

// --- Merchant account ---

// RegisterRequest holds input for merchant registration.
type RegisterRequest struct {
	Email        string
	Password     string
	BusinessName string
	BusinessType string
	WebhookURL   *string
}

// RegisterResponse holds the registration result. APIKey and WebhookSecret
// are shown in plaintext only once.
type RegisterResponse struct {
	MerchantID    uuid.UUID
	APIKey        string
	WebhookSecret string
}

// AuthService defines merchant authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, email, password string) (string, time.Time, error) // token, expiry, error
}

// MerchantProfile is the merchant's own account view.
type MerchantProfile struct {
	ID           uuid.UUID             `json:"id"`
	Email        string                `json:"email"`
	BusinessName string                `json:"business_name"`
	BusinessType string                `json:"business_type"`
	WebhookURL   *string               `json:"webhook_url,omitempty"`
	Status       domain.MerchantStatus `json:"status"`
	CreatedAt    string                `json:"created_at"`
}

// MerchantService defines merchant self-management.
type MerchantService interface {
	GetProfile(ctx context.Context, merchantID uuid.UUID) (*MerchantProfile, error)
	UpdateWebhookURL(ctx context.Context, merchantID uuid.UUID, webhookURL *string) error
	// RotateWebhookSecret replaces the merchant's webhook secret, returning
	// the new plaintext secret exactly once.
	RotateWebhookSecret(ctx context.Context, merchantID uuid.UUID) (string, error)
}
