package service

import (
	"context"
	"fmt"
	"time"

	"stablecoin-gateway/internal/core/ports"
	"stablecoin-gateway/pkg/apperror"

	"github.com/google/uuid"
)

type merchantService struct {
	merchantRepo ports.MerchantRepository
	encSvc       ports.EncryptionService
}

// NewMerchantService creates a new merchant self-management service.
func NewMerchantService(
	merchantRepo ports.MerchantRepository,
	encSvc ports.EncryptionService,
) ports.MerchantService {
	return &merchantService{
		merchantRepo: merchantRepo,
		encSvc:       encSvc,
	}
}

func (s *merchantService) GetProfile(ctx context.Context, merchantID uuid.UUID) (*ports.MerchantProfile, error) {
	merchant, err := s.merchantRepo.GetByID(ctx, merchantID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("merchant")
	}

	return &ports.MerchantProfile{
		ID:           merchant.ID,
		Email:        merchant.Email,
		BusinessName: merchant.BusinessName,
		BusinessType: merchant.BusinessType,
		WebhookURL:   merchant.WebhookURL,
		Status:       merchant.Status,
		CreatedAt:    merchant.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (s *merchantService) UpdateWebhookURL(ctx context.Context, merchantID uuid.UUID, webhookURL *string) error {
	merchant, err := s.merchantRepo.GetByID(ctx, merchantID)
	if err != nil {
		return apperror.InternalError(err)
	}
	if merchant == nil {
		return apperror.ErrNotFound("merchant")
	}

	merchant.WebhookURL = webhookURL
	merchant.UpdatedAt = time.Now().UTC()

	if err := s.merchantRepo.Update(ctx, merchant); err != nil {
		return apperror.InternalError(err)
	}
	return nil
}

func (s *merchantService) RotateWebhookSecret(ctx context.Context, merchantID uuid.UUID) (string, error) {
	merchant, err := s.merchantRepo.GetByID(ctx, merchantID)
	if err != nil {
		return "", apperror.InternalError(err)
	}
	if merchant == nil {
		return "", apperror.ErrNotFound("merchant")
	}

	// Deliveries already queued keep their payload; they will be signed with
	// the new secret at send time.
	newSecret, err := generateRandomHex(32)
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("generate webhook secret: %w", err))
	}

	secretEnc, err := s.encSvc.Encrypt(newSecret)
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("encrypt webhook secret: %w", err))
	}

	merchant.WebhookSecretEnc = secretEnc
	merchant.UpdatedAt = time.Now().UTC()

	if err := s.merchantRepo.Update(ctx, merchant); err != nil {
		return "", apperror.InternalError(err)
	}

	return newSecret, nil
}
