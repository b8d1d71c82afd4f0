package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"stablecoin-gateway/internal/core/domain"
	"stablecoin-gateway/internal/core/ports"
	"stablecoin-gateway/pkg/apperror"

	"github.com/google/uuid"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	merchantRepo ports.MerchantRepository
	hashSvc      ports.HashService
	encSvc       ports.EncryptionService
	tokenSvc     ports.TokenService
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	merchantRepo ports.MerchantRepository,
	hashSvc ports.HashService,
	encSvc ports.EncryptionService,
	tokenSvc ports.TokenService,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		merchantRepo: merchantRepo,
		hashSvc:      hashSvc,
		encSvc:       encSvc,
		tokenSvc:     tokenSvc,
	}
}

// Register creates a new merchant account.
// Returns the API key and webhook secret (plaintext shown only once).
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*ports.RegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.merchantRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check email: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrEmailExists()
	}

	apiKey, err := generateRandomHex(32) // 64 hex chars
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate api key: %w", err))
	}

	webhookSecret, err := generateRandomHex(32)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate webhook secret: %w", err))
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	// The webhook secret is stored encrypted; the dispatcher decrypts it to
	// sign outgoing payloads.
	secretEnc, err := s.encSvc.Encrypt(webhookSecret)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("encrypt webhook secret: %w", err))
	}

	now := time.Now().UTC()
	merchant := &domain.Merchant{
		ID:               uuid.New(),
		Email:            email,
		PasswordHash:     passwordHash,
		BusinessName:     req.BusinessName,
		BusinessType:     req.BusinessType,
		APIKey:           apiKey,
		WebhookURL:       req.WebhookURL,
		WebhookSecretEnc: secretEnc,
		Status:           domain.MerchantStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.merchantRepo.Create(ctx, merchant); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create merchant: %w", err))
	}

	return &ports.RegisterResponse{
		MerchantID:    merchant.ID,
		APIKey:        apiKey,
		WebhookSecret: webhookSecret,
	}, nil
}

// Login validates credentials and returns a JWT token.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	merchant, err := s.merchantRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("find merchant: %w", err))
	}
	if merchant == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, merchant.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	if !merchant.IsActive() {
		return "", time.Time{}, apperror.ErrMerchantSuspended()
	}

	token, expiry, err := s.tokenSvc.Generate(merchant.ID)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}

// generateRandomHex generates a random hex string of n bytes.
func generateRandomHex(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
