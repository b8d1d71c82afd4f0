package dto

import (
	"net/url"
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	// amountRe: positive decimal string, at most six fractional digits.
	amountRe = regexp.MustCompile(`^\d+(\.\d{1,6})?$`)
	// txHashRe: 0x-prefixed 32-byte hex string.
	txHashRe = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("usdc_amount", validateAmount)
		_ = v.RegisterValidation("tx_hash", validateTxHash)
		_ = v.RegisterValidation("safe_url", validateSafeURL)
	}
}

// validateAmount enforces the decimal-string amount format. The zero check
// lives in the service; the format check lives here.
func validateAmount(fl validator.FieldLevel) bool {
	return amountRe.MatchString(fl.Field().String())
}

// validateTxHash enforces the EVM transaction hash format.
func validateTxHash(fl validator.FieldLevel) bool {
	return txHashRe.MatchString(fl.Field().String())
}

// validateSafeURL accepts only http/https URLs.
func validateSafeURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true // optional field; use "required" tag to enforce presence
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
