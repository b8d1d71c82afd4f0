package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// hasCode reports whether err carries the given application error code.
func hasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// ---- Payment Lifecycle (PAY) ----

const (
	CodeInvalidAmount      = "PAY_001"
	CodeNotFound           = "PAY_002"
	CodeInvalidTransition  = "PAY_003"
	CodeVersionConflict    = "PAY_004"
	CodeRefundNotAllowed   = "PAY_005"
	CodeInvalidTransaction = "PAY_006"
)

func ErrInvalidAmount(message string) *AppError {
	return New(CodeInvalidAmount, message, http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrInvalidTransition(from, to string) *AppError {
	return New(CodeInvalidTransition,
		fmt.Sprintf("cannot transition payment from %s to %s", from, to),
		http.StatusConflict)
}

// ErrVersionConflict signals an optimistic-concurrency loss: another writer
// committed a conflicting update first. Callers re-read and decide whether
// to retry or skip; this is never fatal.
func ErrVersionConflict() *AppError {
	return New(CodeVersionConflict, "payment was modified concurrently", http.StatusConflict)
}

func ErrRefundNotAllowed(status string) *AppError {
	return New(CodeRefundNotAllowed,
		fmt.Sprintf("only completed payments can be refunded, payment is %s", status),
		http.StatusConflict)
}

func ErrInvalidTransactionHash() *AppError {
	return New(CodeInvalidTransaction, "invalid transaction hash", http.StatusBadRequest)
}

// IsVersionConflict reports whether err is an optimistic-concurrency loss.
func IsVersionConflict(err error) bool {
	return hasCode(err, CodeVersionConflict)
}

// IsNotFound reports whether err is a missing-entity error.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// ---- Blockchain Access (CHAIN) ----

const CodeChainUnavailable = "CHAIN_001"

// ErrChainUnavailable wraps a transient RPC failure. Watchers log these and
// retry on the next polling tick; they never fail a payment.
func ErrChainUnavailable(network string, err error) *AppError {
	return Wrap(CodeChainUnavailable,
		fmt.Sprintf("blockchain RPC unavailable for %s", network),
		http.StatusServiceUnavailable, err)
}

// IsChainUnavailable reports whether err is a transient RPC failure.
func IsChainUnavailable(err error) bool {
	return hasCode(err, CodeChainUnavailable)
}

// ---- Webhook Delivery (HOOK) ----

const CodeDeliveryFailed = "HOOK_001"

func ErrDeliveryExhausted(attempts int) *AppError {
	return New(CodeDeliveryFailed,
		fmt.Sprintf("webhook delivery failed after %d attempts", attempts),
		http.StatusBadGateway)
}

// ---- Validation (VAL) ----

const CodeValidation = "VAL_001"

// Validation returns a generic bad-input error.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrEmailExists() *AppError {
	return New("AUTH_002", "Email already registered", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrMerchantSuspended() *AppError {
	return New("AUTH_004", "Merchant account is suspended", http.StatusForbidden)
}

func ErrInvalidAPIKey() *AppError {
	return New("AUTH_005", "Invalid API key", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
