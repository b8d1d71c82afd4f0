package handler

import (
	"stablecoin-gateway/internal/adapter/http/dto"
	"stablecoin-gateway/internal/adapter/http/middleware"
	"stablecoin-gateway/internal/core/ports"
	"stablecoin-gateway/pkg/apperror"
	"stablecoin-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MerchantHandler handles merchant self-management endpoints.
type MerchantHandler struct {
	merchantSvc ports.MerchantService
}

// NewMerchantHandler creates a new MerchantHandler.
func NewMerchantHandler(merchantSvc ports.MerchantService) *MerchantHandler {
	return &MerchantHandler{merchantSvc: merchantSvc}
}

// GetProfile handles GET /api/v1/merchants/me.
func (h *MerchantHandler) GetProfile(c *gin.Context) {
	merchantID, ok := c.Get(middleware.CtxMerchantID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	profile, err := h.merchantSvc.GetProfile(c.Request.Context(), merchantID.(uuid.UUID))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, profile)
}

// UpdateWebhook handles PUT /api/v1/merchants/me/webhook. A null URL
// disables webhook delivery for the merchant.
func (h *MerchantHandler) UpdateWebhook(c *gin.Context) {
	merchantID, ok := c.Get(middleware.CtxMerchantID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.UpdateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.merchantSvc.UpdateWebhookURL(c.Request.Context(), merchantID.(uuid.UUID), req.WebhookURL); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"webhook_url": req.WebhookURL})
}

// RotateSecret handles POST /api/v1/merchants/me/webhook/rotate-secret.
// The new secret is returned in plaintext exactly once.
func (h *MerchantHandler) RotateSecret(c *gin.Context) {
	merchantID, ok := c.Get(middleware.CtxMerchantID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	secret, err := h.merchantSvc.RotateWebhookSecret(c.Request.Context(), merchantID.(uuid.UUID))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.RotateSecretResponse{WebhookSecret: secret})
}
