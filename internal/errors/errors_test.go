package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := Wrap(fmt.Errorf("claimed_at set"), CodeKeyAlreadyClaimed, "NKEY-ABC123 was already redeemed")

	assert.True(t, Is(err, ErrKeyAlreadyClaimed))
	assert.False(t, Is(err, ErrKeyNotFound))

	wrapped := fmt.Errorf("redeem: %w", err)
	assert.True(t, Is(wrapped, ErrKeyAlreadyClaimed))
}

func TestError_MessageAndCause(t *testing.T) {
	cause := fmt.Errorf("database is locked")
	err := StoreUnavailable(cause)

	assert.Contains(t, err.Error(), "database is locked")
	assert.Equal(t, cause, Unwrap(err))
	assert.True(t, IsRetryable(err))
	assert.True(t, IsRetryable(fmt.Errorf("claim: %w", err)))
}

func TestIsRetryable_OnlyStoreUnavailable(t *testing.T) {
	for _, err := range []error{
		ErrKeyNotFound, ErrKeyAlreadyClaimed, ErrPlatformNotFound,
		ErrInsufficientFunds, ErrStockEmpty, ErrAlreadyReferred,
		ErrValidation, ErrInternal, fmt.Errorf("plain"),
	} {
		assert.False(t, IsRetryable(err), "%v", err)
	}
}

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeKeyNotFound, http.StatusNotFound},
		{CodePlatformNotFound, http.StatusNotFound},
		{CodeNotFound, http.StatusNotFound},
		{CodeKeyAlreadyClaimed, http.StatusConflict},
		{CodeStockEmpty, http.StatusConflict},
		{CodeAlreadyReferred, http.StatusConflict},
		{CodeAlreadyExists, http.StatusConflict},
		{CodeInsufficientFunds, http.StatusPaymentRequired},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeValidation, http.StatusBadRequest},
		{CodeStoreUnavailable, http.StatusServiceUnavailable},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestFormattedConstructors(t *testing.T) {
	err := PlatformNotFoundf("no platform named %q", "Hulu")
	assert.Equal(t, `no platform named "Hulu"`, err.Error())
}

func TestError_GetHeaders(t *testing.T) {
	busy := StoreUnavailable(fmt.Errorf("database is locked"))
	assert.Equal(t, "1", busy.GetHeaders().Get("Retry-After"))

	assert.Empty(t, ErrStockEmpty.GetHeaders().Get("Retry-After"))
	assert.Empty(t, Validation("bad input").GetHeaders())
}
