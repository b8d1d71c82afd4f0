package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stablecoin-gateway/internal/adapter/http/dto"
	"stablecoin-gateway/internal/adapter/http/middleware"
	"stablecoin-gateway/internal/core/domain"
	"stablecoin-gateway/internal/core/ports"
	"stablecoin-gateway/internal/core/ports/mocks"
	"stablecoin-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testPayment(merchantID uuid.UUID) *domain.Payment {
	now := time.Now().UTC()
	return &domain.Payment{
		ID:         uuid.New(),
		MerchantID: merchantID,
		Amount:     "100.500000",
		Currency:   "USDC",
		Network:    domain.NetworkEthereum,
		Status:     domain.PaymentStatusPending,
		PaymentURL: "https://pay.example.com/pay/abc",
		ExpiresAt:  now.Add(30 * time.Minute),
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// --- Auth Handler Tests ---

func TestRegister_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	merchantID := uuid.New()
	mockAuth.EXPECT().Register(gomock.Any(), ports.RegisterRequest{
		Email:        "shop@example.com",
		Password:     "password123",
		BusinessName: "Test Shop",
		BusinessType: "retail",
	}).Return(&ports.RegisterResponse{
		MerchantID:    merchantID,
		APIKey:        "ak_test",
		WebhookSecret: "whsec_test",
	}, nil)

	body, _ := json.Marshal(dto.RegisterRequest{
		Email:        "shop@example.com",
		Password:     "password123",
		BusinessName: "Test Shop",
		BusinessType: "retail",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, merchantID.String(), data["merchant_id"])
	assert.Equal(t, "ak_test", data["api_key"])
	assert.Equal(t, "whsec_test", data["webhook_secret"])
}

func TestRegister_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	// Empty body => binding error
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte("{}")))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_EmailExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	mockAuth.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrEmailExists())

	body, _ := json.Marshal(dto.RegisterRequest{
		Email:        "taken@example.com",
		Password:     "password123",
		BusinessName: "Shop",
		BusinessType: "retail",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Register(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	expiry := time.Now().Add(24 * time.Hour)
	mockAuth.EXPECT().Login(gomock.Any(), "shop@example.com", "password123").Return("jwt-token-123", expiry, nil)

	body, _ := json.Marshal(dto.LoginRequest{
		Email:    "shop@example.com",
		Password: "password123",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Login(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "jwt-token-123", data["token"])
	assert.Equal(t, float64(expiry.Unix()), data["expiry"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	mockAuth.EXPECT().Login(gomock.Any(), "shop@example.com", "wrong").
		Return("", time.Time{}, apperror.ErrInvalidCredentials())

	body, _ := json.Marshal(dto.LoginRequest{
		Email:    "shop@example.com",
		Password: "wrong",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- Payment Handler Tests ---

func TestCreatePayment_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockSvc)

	merchantID := uuid.New()
	payment := testPayment(merchantID)

	mockSvc.EXPECT().Create(gomock.Any(), ports.CreatePaymentRequest{
		MerchantID: merchantID,
		Amount:     "100.500000",
		Currency:   "USDC",
	}).Return(payment, nil)

	body, _ := json.Marshal(dto.CreatePaymentRequest{
		Amount:   "100.500000",
		Currency: "USDC",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.CtxMerchantID, merchantID)

	h.CreatePayment(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, payment.ID.String(), data["id"])
	assert.Equal(t, "100.500000", data["amount"])
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, payment.PaymentURL, data["payment_url"])
}

func TestCreatePayment_InvalidAmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockSvc)

	// 7 decimal places fails binding before the service is reached.
	body, _ := json.Marshal(dto.CreatePaymentRequest{
		Amount:   "1.2345678",
		Currency: "USDC",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.CtxMerchantID, uuid.New())

	h.CreatePayment(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePayment_MissingMerchant(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{}")))

	h.CreatePayment(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetPayment_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockSvc)

	merchantID := uuid.New()
	payment := testPayment(merchantID)

	mockSvc.EXPECT().GetPayment(gomock.Any(), payment.ID).Return(payment, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: payment.ID.String()}}
	c.Set(middleware.CtxMerchantID, merchantID)

	h.GetPayment(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetPayment_WrongMerchant(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockSvc)

	payment := testPayment(uuid.New())
	mockSvc.EXPECT().GetPayment(gomock.Any(), payment.ID).Return(payment, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: payment.ID.String()}}
	c.Set(middleware.CtxMerchantID, uuid.New())

	h.GetPayment(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetPayment_BadID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	c.Set(middleware.CtxMerchantID, uuid.New())

	h.GetPayment(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPayments_Pagination(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockSvc)

	merchantID := uuid.New()
	payments := []domain.Payment{*testPayment(merchantID), *testPayment(merchantID)}

	mockSvc.EXPECT().ListPayments(gomock.Any(), merchantID, 2, 10).Return(payments, int64(42), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/payments?page=2&page_size=10", nil)
	c.Set(middleware.CtxMerchantID, merchantID)

	h.ListPayments(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(42), data["total"])
	assert.Equal(t, float64(2), data["page"])
	assert.Equal(t, float64(5), data["total_pages"])
	assert.Len(t, data["items"], 2)
}

func TestListPayments_DefaultsOnBadQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockSvc)

	merchantID := uuid.New()
	mockSvc.EXPECT().ListPayments(gomock.Any(), merchantID, 1, 20).Return(nil, int64(0), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/payments?page=-3&page_size=9999", nil)
	c.Set(middleware.CtxMerchantID, merchantID)

	h.ListPayments(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubmitHash_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockSvc)

	merchantID := uuid.New()
	payment := testPayment(merchantID)
	txHash := "0xabcd1234567890abcdef1234567890abcdef1234567890abcdef1234567890ab"

	confirming := *payment
	confirming.Status = domain.PaymentStatusConfirming
	confirming.TransactionHash = &txHash

	gomock.InOrder(
		mockSvc.EXPECT().GetPayment(gomock.Any(), payment.ID).Return(payment, nil),
		mockSvc.EXPECT().ObserveChainActivity(gomock.Any(), ports.ChainObservation{
			PaymentID: payment.ID,
			TxHash:    txHash,
		}).Return(nil),
		mockSvc.EXPECT().GetPayment(gomock.Any(), payment.ID).Return(&confirming, nil),
	)

	body, _ := json.Marshal(dto.SubmitHashRequest{TransactionHash: txHash})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: payment.ID.String()}}
	c.Set(middleware.CtxMerchantID, merchantID)

	h.SubmitHash(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "confirming", data["status"])
	assert.Equal(t, txHash, data["transaction_hash"])
}

func TestSubmitHash_InvalidHash(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockSvc)

	body, _ := json.Marshal(dto.SubmitHashRequest{TransactionHash: "0xnothex"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}
	c.Set(middleware.CtxMerchantID, uuid.New())

	h.SubmitHash(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefund_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockSvc)

	merchantID := uuid.New()
	refunded := testPayment(merchantID)
	refunded.Status = domain.PaymentStatusRefunded

	mockSvc.EXPECT().Refund(gomock.Any(), merchantID, refunded.ID).Return(refunded, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: refunded.ID.String()}}
	c.Set(middleware.CtxMerchantID, merchantID)

	h.Refund(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "refunded", data["status"])
}

func TestRefund_NotAllowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockSvc)

	merchantID := uuid.New()
	paymentID := uuid.New()
	mockSvc.EXPECT().Refund(gomock.Any(), merchantID, paymentID).
		Return(nil, apperror.ErrRefundNotAllowed("pending"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: paymentID.String()}}
	c.Set(middleware.CtxMerchantID, merchantID)

	h.Refund(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListDeliveries_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockSvc)

	merchantID := uuid.New()
	paymentID := uuid.New()
	now := time.Now().UTC()
	next := now.Add(time.Minute)
	deliveries := []domain.WebhookDelivery{
		{
			ID:            uuid.New(),
			MerchantID:    merchantID,
			PaymentID:     paymentID,
			EventType:     domain.EventPaymentCompleted,
			Status:        domain.DeliveryStatusDelivered,
			Attempts:      1,
			MaxAttempts:   3,
			CreatedAt:     now,
			UpdatedAt:     now,
			NextAttemptAt: &next,
		},
	}

	mockSvc.EXPECT().ListDeliveries(gomock.Any(), merchantID, paymentID).Return(deliveries, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: paymentID.String()}}
	c.Set(middleware.CtxMerchantID, merchantID)

	h.ListDeliveries(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].([]interface{})
	require.Len(t, data, 1)
	item := data[0].(map[string]interface{})
	assert.Equal(t, "payment.completed", item["event_type"])
	assert.Equal(t, "delivered", item["status"])
}

// --- Merchant Handler Tests ---

func TestGetProfile_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockMerchantService(ctrl)
	h := NewMerchantHandler(mockSvc)

	merchantID := uuid.New()
	mockSvc.EXPECT().GetProfile(gomock.Any(), merchantID).Return(&ports.MerchantProfile{
		ID:           merchantID,
		Email:        "shop@example.com",
		BusinessName: "Test Shop",
		BusinessType: "retail",
		Status:       domain.MerchantStatusActive,
		CreatedAt:    "2026-08-01T00:00:00Z",
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(middleware.CtxMerchantID, merchantID)

	h.GetProfile(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "shop@example.com", data["email"])
}

func TestUpdateWebhook_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockMerchantService(ctrl)
	h := NewMerchantHandler(mockSvc)

	merchantID := uuid.New()
	url := "https://example.com/hooks"
	mockSvc.EXPECT().UpdateWebhookURL(gomock.Any(), merchantID, &url).Return(nil)

	body, _ := json.Marshal(dto.UpdateWebhookRequest{WebhookURL: &url})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPut, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.CtxMerchantID, merchantID)

	h.UpdateWebhook(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateWebhook_ClearURL(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockMerchantService(ctrl)
	h := NewMerchantHandler(mockSvc)

	merchantID := uuid.New()
	mockSvc.EXPECT().UpdateWebhookURL(gomock.Any(), merchantID, nil).Return(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPut, "/", bytes.NewReader([]byte(`{"webhook_url":null}`)))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.CtxMerchantID, merchantID)

	h.UpdateWebhook(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRotateSecret_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockMerchantService(ctrl)
	h := NewMerchantHandler(mockSvc)

	merchantID := uuid.New()
	mockSvc.EXPECT().RotateWebhookSecret(gomock.Any(), merchantID).Return("new-secret-hex", nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Set(middleware.CtxMerchantID, merchantID)

	h.RotateSecret(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "new-secret-hex", data["webhook_secret"])
}

// --- Health Check Tests ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(context.Context) error { return s.err }
func (s stubChecker) Name() string               { return s.name }

func TestHealthCheck_AllHealthy(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(stubChecker{name: "postgresql"}, stubChecker{name: "redis"})(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(
		stubChecker{name: "postgresql"},
		stubChecker{name: "redis", err: errors.New("connection refused")},
	)(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
	deps := resp["dependencies"].(map[string]interface{})
	redis := deps["redis"].(map[string]interface{})
	assert.Equal(t, "unhealthy", redis["status"])
}

// --- Router smoke test ---

func TestSetupRouter_Routes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r := SetupRouter(RouterDeps{
		AuthSvc:      mocks.NewMockAuthService(ctrl),
		PaymentSvc:   mocks.NewMockPaymentService(ctrl),
		MerchantSvc:  mocks.NewMockMerchantService(ctrl),
		MerchantRepo: mocks.NewMockMerchantRepository(ctrl),
		TokenSvc:     mocks.NewMockTokenService(ctrl),
	})

	// Unauthenticated payment access is rejected by APIKeyAuth.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Unknown routes 404.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
