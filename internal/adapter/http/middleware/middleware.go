package middleware

import (
	"net/http"
	"time"

	"stablecoin-gateway/internal/core/ports"
	"stablecoin-gateway/pkg/apperror"
	"stablecoin-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// HeaderAPIKey carries the merchant API key for server-to-server calls.
	HeaderAPIKey = "X-API-Key"

	// Context keys
	CtxMerchantID  = "merchant_id"
	CtxMerchantKey = "merchant"
	CtxRequestID   = "request_id"
)

// RequestID assigns every request a UUID, echoed in the response header and
// the response envelope.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(CtxRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// APIKeyAuth authenticates merchant API calls by their API key.
func APIKeyAuth(merchantRepo ports.MerchantRepository, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(HeaderAPIKey)
		if apiKey == "" {
			response.Error(c, apperror.ErrInvalidAPIKey())
			c.Abort()
			return
		}

		merchant, err := merchantRepo.GetByAPIKey(c.Request.Context(), apiKey)
		if err != nil {
			log.Error().Err(err).Msg("failed to fetch merchant by api key")
			response.Error(c, apperror.InternalError(err))
			c.Abort()
			return
		}
		if merchant == nil {
			response.Error(c, apperror.ErrInvalidAPIKey())
			c.Abort()
			return
		}
		if !merchant.IsActive() {
			response.Error(c, apperror.ErrMerchantSuspended())
			c.Abort()
			return
		}

		c.Set(CtxMerchantID, merchant.ID)
		c.Set(CtxMerchantKey, merchant)
		c.Next()
	}
}

// JWTAuth validates JWT tokens for dashboard routes.
func JWTAuth(tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		tokenStr := authHeader[7:]
		claims, err := tokenSvc.Validate(tokenStr)
		if err != nil {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		c.Set(CtxMerchantID, claims.MerchantID)
		c.Next()
	}
}

// RequestLogger logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// MaxBodySize limits the request body size. Once the limit is exceeded the
// reader returns an error and the request fails with 413.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
