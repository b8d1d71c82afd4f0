package handler

import (
	"stablecoin-gateway/internal/adapter/http/middleware"
	"stablecoin-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	PaymentSvc     ports.PaymentService
	MerchantSvc    ports.MerchantService
	MerchantRepo   ports.MerchantRepository
	TokenSvc       ports.TokenService
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	authHandler := NewAuthHandler(deps.AuthSvc)
	paymentHandler := NewPaymentHandler(deps.PaymentSvc)
	merchantHandler := NewMerchantHandler(deps.MerchantSvc)

	v1 := r.Group("/api/v1")

	// Public auth endpoints
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	// API-key authenticated merchant API
	payments := v1.Group("/payments")
	payments.Use(middleware.APIKeyAuth(deps.MerchantRepo, deps.Logger))
	{
		payments.POST("", paymentHandler.CreatePayment)
		payments.GET("", paymentHandler.ListPayments)
		payments.GET("/:id", paymentHandler.GetPayment)
		payments.POST("/:id/hash", paymentHandler.SubmitHash)
		payments.POST("/:id/refund", paymentHandler.Refund)
		payments.GET("/:id/deliveries", paymentHandler.ListDeliveries)
	}

	// JWT authenticated dashboard routes
	me := v1.Group("/merchants/me")
	me.Use(middleware.JWTAuth(deps.TokenSvc, deps.Logger))
	{
		me.GET("", merchantHandler.GetProfile)
		me.PUT("/webhook", merchantHandler.UpdateWebhook)
		me.POST("/webhook/rotate-secret", merchantHandler.RotateSecret)
	}

	return r
}
