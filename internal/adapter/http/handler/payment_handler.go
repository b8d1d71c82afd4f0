package handler

import (
	"strconv"

	"stablecoin-gateway/internal/adapter/http/dto"
	"stablecoin-gateway/internal/adapter/http/middleware"
	"stablecoin-gateway/internal/core/domain"
	"stablecoin-gateway/internal/core/ports"
	"stablecoin-gateway/pkg/apperror"
	"stablecoin-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles payment-related endpoints.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc}
}

// CreatePayment handles POST /api/v1/payments.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	merchantID, ok := c.Get(middleware.CtxMerchantID)
	if !ok {
		response.Error(c, apperror.ErrInvalidAPIKey())
		return
	}

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	payment, err := h.paymentSvc.Create(c.Request.Context(), ports.CreatePaymentRequest{
		MerchantID:        merchantID.(uuid.UUID),
		Amount:            req.Amount,
		Currency:          req.Currency,
		MerchantReference: req.MerchantReference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toPaymentResponse(payment))
}

// GetPayment handles GET /api/v1/payments/:id.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	merchantID, ok := c.Get(middleware.CtxMerchantID)
	if !ok {
		response.Error(c, apperror.ErrInvalidAPIKey())
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payment id"))
		return
	}

	payment, err := h.paymentSvc.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	// Merchants only see their own payments.
	if payment.MerchantID != merchantID.(uuid.UUID) {
		response.Error(c, apperror.ErrNotFound("payment"))
		return
	}

	response.OK(c, toPaymentResponse(payment))
}

// ListPayments handles GET /api/v1/payments.
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	merchantID, ok := c.Get(middleware.CtxMerchantID)
	if !ok {
		response.Error(c, apperror.ErrInvalidAPIKey())
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	payments, total, err := h.paymentSvc.ListPayments(c.Request.Context(), merchantID.(uuid.UUID), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.PaymentResponse, 0, len(payments))
	for i := range payments {
		items = append(items, toPaymentResponse(&payments[i]))
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	response.OK(c, dto.PaymentListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

// SubmitHash handles POST /api/v1/payments/:id/hash. The payer's client
// announces the broadcast transaction so the watcher can start tracking it.
func (h *PaymentHandler) SubmitHash(c *gin.Context) {
	merchantID, ok := c.Get(middleware.CtxMerchantID)
	if !ok {
		response.Error(c, apperror.ErrInvalidAPIKey())
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payment id"))
		return
	}

	var req dto.SubmitHashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	payment, err := h.paymentSvc.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if payment.MerchantID != merchantID.(uuid.UUID) {
		response.Error(c, apperror.ErrNotFound("payment"))
		return
	}

	err = h.paymentSvc.ObserveChainActivity(c.Request.Context(), ports.ChainObservation{
		PaymentID: paymentID,
		TxHash:    req.TransactionHash,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	updated, err := h.paymentSvc.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPaymentResponse(updated))
}

// Refund handles POST /api/v1/payments/:id/refund.
func (h *PaymentHandler) Refund(c *gin.Context) {
	merchantID, ok := c.Get(middleware.CtxMerchantID)
	if !ok {
		response.Error(c, apperror.ErrInvalidAPIKey())
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payment id"))
		return
	}

	payment, err := h.paymentSvc.Refund(c.Request.Context(), merchantID.(uuid.UUID), paymentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPaymentResponse(payment))
}

// ListDeliveries handles GET /api/v1/payments/:id/deliveries.
func (h *PaymentHandler) ListDeliveries(c *gin.Context) {
	merchantID, ok := c.Get(middleware.CtxMerchantID)
	if !ok {
		response.Error(c, apperror.ErrInvalidAPIKey())
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payment id"))
		return
	}

	deliveries, err := h.paymentSvc.ListDeliveries(c.Request.Context(), merchantID.(uuid.UUID), paymentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.DeliveryResponse, 0, len(deliveries))
	for i := range deliveries {
		items = append(items, toDeliveryResponse(&deliveries[i]))
	}

	response.OK(c, items)
}

func toPaymentResponse(p *domain.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:                p.ID.String(),
		Amount:            p.Amount,
		Currency:          p.Currency,
		Network:           string(p.Network),
		Status:            string(p.Status),
		PaymentURL:        p.PaymentURL,
		TransactionHash:   p.TransactionHash,
		ConfirmationCount: p.ConfirmationCount,
		MerchantReference: p.MerchantReference,
		ExpiresAt:         dto.FormatTime(p.ExpiresAt),
		CreatedAt:         dto.FormatTime(p.CreatedAt),
		UpdatedAt:         dto.FormatTime(p.UpdatedAt),
	}
}

func toDeliveryResponse(d *domain.WebhookDelivery) dto.DeliveryResponse {
	resp := dto.DeliveryResponse{
		ID:                 d.ID.String(),
		EventType:          string(d.EventType),
		Status:             string(d.Status),
		Attempts:           d.Attempts,
		MaxAttempts:        d.MaxAttempts,
		LastResponseStatus: d.LastResponseStatus,
		CreatedAt:          dto.FormatTime(d.CreatedAt),
		UpdatedAt:          dto.FormatTime(d.UpdatedAt),
	}
	if d.NextAttemptAt != nil {
		next := dto.FormatTime(*d.NextAttemptAt)
		resp.NextAttemptAt = &next
	}
	return resp
}
