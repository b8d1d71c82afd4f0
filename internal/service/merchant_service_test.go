package service

import (
	"context"
	"testing"
	"time"

	"stablecoin-gateway/internal/core/domain"
	"stablecoin-gateway/internal/core/ports/mocks"
	"stablecoin-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestMerchantService_GetProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	merchantRepo := mocks.NewMockMerchantRepository(ctrl)
	encSvc := mocks.NewMockEncryptionService(ctrl)
	svc := NewMerchantService(merchantRepo, encSvc)

	ctx := context.Background()
	webhookURL := "https://merchant.example.com/webhooks"
	merchant := &domain.Merchant{
		ID:           uuid.New(),
		Email:        "shop@example.com",
		BusinessName: "Example Shop",
		BusinessType: "retail",
		WebhookURL:   &webhookURL,
		Status:       domain.MerchantStatusActive,
		CreatedAt:    time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}

	merchantRepo.EXPECT().GetByID(ctx, merchant.ID).Return(merchant, nil)

	profile, err := svc.GetProfile(ctx, merchant.ID)
	require.NoError(t, err)
	assert.Equal(t, merchant.Email, profile.Email)
	assert.Equal(t, merchant.BusinessName, profile.BusinessName)
	assert.Equal(t, &webhookURL, profile.WebhookURL)
	assert.Equal(t, "2026-01-15T10:00:00Z", profile.CreatedAt)
}

func TestMerchantService_GetProfile_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	merchantRepo := mocks.NewMockMerchantRepository(ctrl)
	svc := NewMerchantService(merchantRepo, mocks.NewMockEncryptionService(ctrl))

	ctx := context.Background()
	id := uuid.New()
	merchantRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)

	_, err := svc.GetProfile(ctx, id)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestMerchantService_UpdateWebhookURL(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	merchantRepo := mocks.NewMockMerchantRepository(ctrl)
	svc := NewMerchantService(merchantRepo, mocks.NewMockEncryptionService(ctrl))

	ctx := context.Background()
	merchant := &domain.Merchant{ID: uuid.New()}
	newURL := "https://merchant.example.com/hooks/v2"

	merchantRepo.EXPECT().GetByID(ctx, merchant.ID).Return(merchant, nil)
	merchantRepo.EXPECT().
		Update(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, m *domain.Merchant) error {
			require.NotNil(t, m.WebhookURL)
			assert.Equal(t, newURL, *m.WebhookURL)
			return nil
		})

	require.NoError(t, svc.UpdateWebhookURL(ctx, merchant.ID, &newURL))
}

func TestMerchantService_UpdateWebhookURL_Clear(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	merchantRepo := mocks.NewMockMerchantRepository(ctrl)
	svc := NewMerchantService(merchantRepo, mocks.NewMockEncryptionService(ctrl))

	ctx := context.Background()
	url := "https://merchant.example.com/webhooks"
	merchant := &domain.Merchant{ID: uuid.New(), WebhookURL: &url}

	merchantRepo.EXPECT().GetByID(ctx, merchant.ID).Return(merchant, nil)
	merchantRepo.EXPECT().
		Update(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, m *domain.Merchant) error {
			assert.Nil(t, m.WebhookURL)
			return nil
		})

	require.NoError(t, svc.UpdateWebhookURL(ctx, merchant.ID, nil))
}

func TestMerchantService_RotateWebhookSecret(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	merchantRepo := mocks.NewMockMerchantRepository(ctrl)
	encSvc := mocks.NewMockEncryptionService(ctrl)
	svc := NewMerchantService(merchantRepo, encSvc)

	ctx := context.Background()
	merchant := &domain.Merchant{ID: uuid.New(), WebhookSecretEnc: "old-enc"}

	merchantRepo.EXPECT().GetByID(ctx, merchant.ID).Return(merchant, nil)
	encSvc.EXPECT().Encrypt(gomock.Any()).Return("new-enc", nil)
	merchantRepo.EXPECT().
		Update(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, m *domain.Merchant) error {
			assert.Equal(t, "new-enc", m.WebhookSecretEnc)
			return nil
		})

	secret, err := svc.RotateWebhookSecret(ctx, merchant.ID)
	require.NoError(t, err)
	assert.Len(t, secret, 64)
}
