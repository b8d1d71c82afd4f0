package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stablecoin-gateway/config"
	httpHandler "stablecoin-gateway/internal/adapter/http/handler"
	redisStorage "stablecoin-gateway/internal/adapter/storage/redis"
	"stablecoin-gateway/internal/core/domain"
	"stablecoin-gateway/internal/core/ports"
	"stablecoin-gateway/internal/service"
	"stablecoin-gateway/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp builds a full application stack: real HTTP layer, middleware,
// handlers and services, backed by in-memory repos and miniredis. Only the
// blockchain and the merchant's webhook endpoint are outside the stack.

type testApp struct {
	server       *httptest.Server
	redis        *miniredis.Miniredis
	rdb          *goredis.Client
	paymentRepo  *inMemoryPaymentRepo
	deliveryRepo *inMemoryDeliveryRepo
	merchantRepo *inMemoryMerchantRepo
	paymentSvc   ports.PaymentService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	paymentCache := redisStorage.NewPaymentCache(rdb)

	encSvc, err := service.NewAESEncryptionService("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", 24*time.Hour, "test-issuer")

	merchantRepo := newInMemoryMerchantRepo()
	paymentRepo := newInMemoryPaymentRepo()
	deliveryRepo := newInMemoryDeliveryRepo()

	log := logger.New("debug", false)

	webhookCfg := config.WebhookConfig{
		MaxAttempts:  3,
		BackoffBase:  30 * time.Second,
		BackoffCap:   10 * time.Minute,
		Workers:      2,
		HTTPTimeout:  time.Second,
		PollInterval: 10 * time.Millisecond,
		BatchSize:    10,
		ClaimLease:   2 * time.Minute,
	}
	paymentCfg := config.PaymentConfig{
		TTL:            30 * time.Minute,
		DefaultNetwork: "ethereum",
		Currency:       "USDC",
		PayBaseURL:     "https://pay.test",
		CacheTTL:       5 * time.Minute,
	}
	depths := map[domain.Network]int{
		domain.NetworkEthereum: 12,
		domain.NetworkPolygon:  64,
	}

	authSvc := service.NewAuthService(merchantRepo, hashSvc, encSvc, tokenSvc)
	queue := service.NewDurableWebhookQueue(deliveryRepo, webhookCfg)
	paymentSvc := service.NewPaymentLifecycleManager(paymentRepo, deliveryRepo, queue, paymentCache, paymentCfg, depths, log)
	merchantSvc := service.NewMerchantService(merchantRepo, encSvc)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:      authSvc,
		PaymentSvc:   paymentSvc,
		MerchantSvc:  merchantSvc,
		MerchantRepo: merchantRepo,
		TokenSvc:     tokenSvc,
		Logger:       log,
	})

	return &testApp{
		server:       httptest.NewServer(router),
		redis:        mr,
		rdb:          rdb,
		paymentRepo:  paymentRepo,
		deliveryRepo: deliveryRepo,
		merchantRepo: merchantRepo,
		paymentSvc:   paymentSvc,
	}
}

func (a *testApp) close() {
	a.server.Close()
	a.rdb.Close()
}

type registeredMerchant struct {
	merchantID    string
	apiKey        string
	webhookSecret string
	token         string
}

func registerAndLogin(t *testing.T, app *testApp, email string) registeredMerchant {
	t.Helper()

	regBody := fmt.Sprintf(`{"email":%q,"password":"StrongPass123!","business_name":"Test Shop","business_type":"retail"}`, email)
	resp, err := http.Post(app.server.URL+"/api/v1/auth/register", "application/json", bytes.NewBufferString(regBody))
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	var regResult struct {
		Data struct {
			MerchantID    string `json:"merchant_id"`
			APIKey        string `json:"api_key"`
			WebhookSecret string `json:"webhook_secret"`
		} `json:"data"`
	}
	err = json.NewDecoder(resp.Body).Decode(&regResult)
	resp.Body.Close()
	require.NoError(t, err)

	loginBody := fmt.Sprintf(`{"email":%q,"password":"StrongPass123!"}`, email)
	resp, err = http.Post(app.server.URL+"/api/v1/auth/login", "application/json", bytes.NewBufferString(loginBody))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var loginResult struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	err = json.NewDecoder(resp.Body).Decode(&loginResult)
	resp.Body.Close()
	require.NoError(t, err)

	return registeredMerchant{
		merchantID:    regResult.Data.MerchantID,
		apiKey:        regResult.Data.APIKey,
		webhookSecret: regResult.Data.WebhookSecret,
		token:         loginResult.Data.Token,
	}
}

func (a *testApp) apiRequest(t *testing.T, method, path, apiKey string, body string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	var envelope map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	resp.Body.Close()
	return resp, envelope
}

func TestRegisterLoginAndProfile(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	m := registerAndLogin(t, app, "owner@shop.test")
	require.NotEmpty(t, m.apiKey)
	require.NotEmpty(t, m.webhookSecret)

	req, _ := http.NewRequest(http.MethodGet, app.server.URL+"/api/v1/merchants/me", nil)
	req.Header.Set("Authorization", "Bearer "+m.token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var profile struct {
		Data struct {
			Email        string `json:"email"`
			BusinessName string `json:"business_name"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&profile))
	assert.Equal(t, "owner@shop.test", profile.Data.Email)
	assert.Equal(t, "Test Shop", profile.Data.BusinessName)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	registerAndLogin(t, app, "dup@shop.test")

	regBody := `{"email":"dup@shop.test","password":"StrongPass123!","business_name":"Other","business_type":"retail"}`
	resp, err := http.Post(app.server.URL+"/api/v1/auth/register", "application/json", bytes.NewBufferString(regBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 409, resp.StatusCode)
}

func TestPaymentFlow_CreateSubmitComplete(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	m := registerAndLogin(t, app, "flow@shop.test")

	// Create payment
	resp, envelope := app.apiRequest(t, http.MethodPost, "/api/v1/payments", m.apiKey,
		`{"amount":"250.000000","currency":"USDC"}`)
	require.Equal(t, 201, resp.StatusCode)
	data := envelope["data"].(map[string]interface{})
	paymentID := data["id"].(string)
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, "250.000000", data["amount"])
	assert.Contains(t, data["payment_url"], "https://pay.test/pay/")

	// Payer announces the transaction hash
	txHash := "0x1111111111111111111111111111111111111111111111111111111111111111"
	resp, envelope = app.apiRequest(t, http.MethodPost, "/api/v1/payments/"+paymentID+"/hash", m.apiKey,
		fmt.Sprintf(`{"transaction_hash":%q}`, txHash))
	require.Equal(t, 200, resp.StatusCode)
	data = envelope["data"].(map[string]interface{})
	assert.Equal(t, "confirming", data["status"])
	assert.Equal(t, txHash, data["transaction_hash"])

	// Chain reaches the required confirmation depth
	id, err := uuid.Parse(paymentID)
	require.NoError(t, err)
	err = app.paymentSvc.ObserveChainActivity(context.Background(), ports.ChainObservation{
		PaymentID:     id,
		TxHash:        txHash,
		Confirmations: 12,
	})
	require.NoError(t, err)

	resp, envelope = app.apiRequest(t, http.MethodGet, "/api/v1/payments/"+paymentID, m.apiKey, "")
	require.Equal(t, 200, resp.StatusCode)
	data = envelope["data"].(map[string]interface{})
	assert.Equal(t, "completed", data["status"])
	assert.Equal(t, float64(12), data["confirmation_count"])

	// Exactly one delivery per transition: confirming, completed
	resp, envelope = app.apiRequest(t, http.MethodGet, "/api/v1/payments/"+paymentID+"/deliveries", m.apiKey, "")
	require.Equal(t, 200, resp.StatusCode)
	items := envelope["data"].([]interface{})
	require.Len(t, items, 2)
	events := []string{
		items[0].(map[string]interface{})["event_type"].(string),
		items[1].(map[string]interface{})["event_type"].(string),
	}
	assert.Contains(t, events, "payment.confirming")
	assert.Contains(t, events, "payment.completed")
}

func TestPaymentFlow_RefundAfterCompletion(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	m := registerAndLogin(t, app, "refund@shop.test")

	resp, envelope := app.apiRequest(t, http.MethodPost, "/api/v1/payments", m.apiKey,
		`{"amount":"10","currency":"USDC"}`)
	require.Equal(t, 201, resp.StatusCode)
	paymentID := envelope["data"].(map[string]interface{})["id"].(string)

	// Refund before completion is rejected
	resp, _ = app.apiRequest(t, http.MethodPost, "/api/v1/payments/"+paymentID+"/refund", m.apiKey, "")
	assert.Equal(t, 409, resp.StatusCode)

	// Drive to completed
	id := uuid.MustParse(paymentID)
	txHash := "0x2222222222222222222222222222222222222222222222222222222222222222"
	require.NoError(t, app.paymentSvc.ObserveChainActivity(context.Background(), ports.ChainObservation{
		PaymentID: id, TxHash: txHash,
	}))
	require.NoError(t, app.paymentSvc.ObserveChainActivity(context.Background(), ports.ChainObservation{
		PaymentID: id, TxHash: txHash, Confirmations: 12,
	}))

	resp, envelope = app.apiRequest(t, http.MethodPost, "/api/v1/payments/"+paymentID+"/refund", m.apiKey, "")
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "refunded", envelope["data"].(map[string]interface{})["status"])
}

func TestPaymentFlow_MerchantIsolation(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	owner := registerAndLogin(t, app, "owner2@shop.test")
	other := registerAndLogin(t, app, "other@shop.test")

	resp, envelope := app.apiRequest(t, http.MethodPost, "/api/v1/payments", owner.apiKey,
		`{"amount":"5.50","currency":"USDC"}`)
	require.Equal(t, 201, resp.StatusCode)
	paymentID := envelope["data"].(map[string]interface{})["id"].(string)

	// Another merchant cannot see it
	resp, _ = app.apiRequest(t, http.MethodGet, "/api/v1/payments/"+paymentID, other.apiKey, "")
	assert.Equal(t, 404, resp.StatusCode)

	// Nor refund it
	resp, _ = app.apiRequest(t, http.MethodPost, "/api/v1/payments/"+paymentID+"/refund", other.apiKey, "")
	assert.Equal(t, 404, resp.StatusCode)
}

func TestPaymentCreate_Validation(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	m := registerAndLogin(t, app, "val@shop.test")

	cases := []string{
		`{"amount":"0","currency":"USDC"}`,
		`{"amount":"-5","currency":"USDC"}`,
		`{"amount":"1.2345678","currency":"USDC"}`,
		`{"amount":"abc","currency":"USDC"}`,
		`{"amount":"10","currency":"EURX2"}`,
	}
	for _, body := range cases {
		resp, _ := app.apiRequest(t, http.MethodPost, "/api/v1/payments", m.apiKey, body)
		assert.Equal(t, 400, resp.StatusCode, "body: %s", body)
	}
}

func TestWebhookSettings_UpdateAndRotate(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	m := registerAndLogin(t, app, "hooks@shop.test")

	req, _ := http.NewRequest(http.MethodPut, app.server.URL+"/api/v1/merchants/me/webhook",
		bytes.NewBufferString(`{"webhook_url":"https://hooks.shop.test/payments"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/merchants/me/webhook/rotate-secret", nil)
	req.Header.Set("Authorization", "Bearer "+m.token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var rotated struct {
		Data struct {
			WebhookSecret string `json:"webhook_secret"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rotated))
	assert.NotEmpty(t, rotated.Data.WebhookSecret)
	assert.NotEqual(t, m.webhookSecret, rotated.Data.WebhookSecret)
}

func TestUnauthenticatedAccess(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, err := http.Get(app.server.URL + "/api/v1/payments")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 401, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, app.server.URL+"/api/v1/merchants/me", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 401, resp.StatusCode)
}
