package domain

import (
	"time"

	"github.com/google/uuid"
)

// MerchantStatus represents the state of a merchant account.
type MerchantStatus string

const (
	MerchantStatusActive      MerchantStatus = "active"
	MerchantStatusSuspended   MerchantStatus = "suspended"
	MerchantStatusDeactivated MerchantStatus = "deactivated"
)

// Merchant represents a registered merchant in the system.
type Merchant struct {
	ID               uuid.UUID      `json:"id"`
	Email            string         `json:"email"`
	PasswordHash     string         `json:"-"` // Never expose
	BusinessName     string         `json:"business_name"`
	BusinessType     string         `json:"business_type"`
	APIKey           string         `json:"api_key"`
	WebhookURL       *string        `json:"webhook_url,omitempty"`
	WebhookSecretEnc string         `json:"-"` // AES-GCM encrypted, never expose
	Status           MerchantStatus `json:"status"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// IsActive returns true if the merchant account is active.
func (m *Merchant) IsActive() bool {
	return m.Status == MerchantStatusActive
}

// HasWebhook returns true if the merchant configured a webhook endpoint.
func (m *Merchant) HasWebhook() bool {
	return m.WebhookURL != nil && *m.WebhookURL != ""
}
