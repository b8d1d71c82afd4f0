package dto

import "time"

// RegisterRequest is the request body for merchant registration.
type RegisterRequest struct {
	Email        string  `json:"email" binding:"required,email,max=255"`
	Password     string  `json:"password" binding:"required,min=8,max=128"`
	BusinessName string  `json:"business_name" binding:"required,min=1,max=100"`
	BusinessType string  `json:"business_type" binding:"required,min=1,max=50"`
	WebhookURL   *string `json:"webhook_url,omitempty" binding:"omitempty,safe_url"`
}

// LoginRequest is the request body for merchant login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
// APIKey and WebhookSecret appear here once and are never shown again.
type RegisterResponse struct {
	MerchantID    string `json:"merchant_id"`
	APIKey        string `json:"api_key"`
	WebhookSecret string `json:"webhook_secret"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// CreatePaymentRequest is the request body for payment creation.
type CreatePaymentRequest struct {
	Amount            string  `json:"amount" binding:"required,usdc_amount"`
	Currency          string  `json:"currency" binding:"required,len=4"`
	MerchantReference *string `json:"merchant_reference,omitempty" binding:"omitempty,max=100"`
}

// SubmitHashRequest is the request body for attaching a transaction hash to
// a pending payment.
type SubmitHashRequest struct {
	TransactionHash string `json:"transaction_hash" binding:"required,tx_hash"`
}

// UpdateWebhookRequest is the request body for changing webhook settings.
type UpdateWebhookRequest struct {
	WebhookURL *string `json:"webhook_url" binding:"omitempty,safe_url"`
}

// PaymentResponse is the API shape of a payment.
type PaymentResponse struct {
	ID                string  `json:"id"`
	Amount            string  `json:"amount"`
	Currency          string  `json:"currency"`
	Network           string  `json:"network"`
	Status            string  `json:"status"`
	PaymentURL        string  `json:"payment_url"`
	TransactionHash   *string `json:"transaction_hash,omitempty"`
	ConfirmationCount int     `json:"confirmation_count"`
	MerchantReference *string `json:"merchant_reference,omitempty"`
	ExpiresAt         string  `json:"expires_at"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

// PaymentListResponse wraps a paginated payment list.
type PaymentListResponse struct {
	Items      []PaymentResponse `json:"items"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// DeliveryResponse is the API shape of a webhook delivery record.
type DeliveryResponse struct {
	ID                 string  `json:"id"`
	EventType          string  `json:"event_type"`
	Status             string  `json:"status"`
	Attempts           int     `json:"attempts"`
	MaxAttempts        int     `json:"max_attempts"`
	NextAttemptAt      *string `json:"next_attempt_at,omitempty"`
	LastResponseStatus *int    `json:"last_response_status,omitempty"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

// RotateSecretResponse carries a freshly rotated webhook secret.
type RotateSecretResponse struct {
	WebhookSecret string `json:"webhook_secret"`
}

// FormatTime renders timestamps the way every response field does.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
