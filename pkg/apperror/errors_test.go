package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := New("PAY_001", "Invalid amount", http.StatusBadRequest)
	assert.Equal(t, "[PAY_001] Invalid amount", err.Error())

	wrapped := Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, errors.New("connection refused"))
	assert.Equal(t, "[SYS_001] Internal database error: connection refused", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	err := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)
	assert.ErrorIs(t, err, inner)
}

func TestIsVersionConflict(t *testing.T) {
	assert.True(t, IsVersionConflict(ErrVersionConflict()))
	assert.True(t, IsVersionConflict(fmt.Errorf("apply transition: %w", ErrVersionConflict())))
	assert.False(t, IsVersionConflict(ErrNotFound("payment")))
	assert.False(t, IsVersionConflict(errors.New("plain error")))
	assert.False(t, IsVersionConflict(nil))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound("payment")))
	assert.False(t, IsNotFound(ErrVersionConflict()))
}

func TestIsChainUnavailable(t *testing.T) {
	err := ErrChainUnavailable("ethereum", errors.New("dial tcp: timeout"))
	assert.True(t, IsChainUnavailable(err))
	assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus)
	assert.Contains(t, err.Error(), "ethereum")
}

func TestErrRefundNotAllowed(t *testing.T) {
	err := ErrRefundNotAllowed("pending")
	assert.Equal(t, CodeRefundNotAllowed, err.Code)
	assert.Equal(t, http.StatusConflict, err.HTTPStatus)
	assert.Contains(t, err.Message, "pending")
}
