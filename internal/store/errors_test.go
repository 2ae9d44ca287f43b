package store_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/pointsbot/pointsbot-server/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	err := &store.Error{
		Code:    http.StatusNotFound,
		Message: "not found",
	}

	assert.Equal(t, "not found", err.Error())
}

func TestError_ErrorWithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := &store.Error{
		Code:    http.StatusNotFound,
		Message: "not found",
		Err:     cause,
	}

	assert.Contains(t, err.Error(), "not found")
	assert.Contains(t, err.Error(), "underlying error")
}

func TestError_HTTPCode(t *testing.T) {
	err := &store.Error{
		Code:    http.StatusBadRequest,
		Message: "bad request",
	}

	assert.Equal(t, http.StatusBadRequest, err.HTTPCode())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := &store.Error{
		Code:    http.StatusInternalServerError,
		Message: "error",
		Err:     cause,
	}

	assert.Equal(t, cause, err.Unwrap())
}

func TestError_WithMessage(t *testing.T) {
	original := &store.Error{
		Code:    http.StatusNotFound,
		Message: "original",
	}

	modified := original.WithMessage("custom message")

	assert.Equal(t, http.StatusNotFound, modified.Code)
	assert.Equal(t, "custom message", modified.Message)
}

func TestError_WithCause(t *testing.T) {
	original := &store.Error{
		Code:    http.StatusNotFound,
		Message: "not found",
	}

	cause := errors.New("db error")
	modified := original.WithCause(cause)

	assert.Equal(t, http.StatusNotFound, modified.Code)
	assert.Equal(t, "not found", modified.Message)
	assert.Equal(t, cause, modified.Err)
}

func TestError_IsMatchesDerivedErrors(t *testing.T) {
	derived := store.ErrNotFound.WithMessage("platform not found").WithCause(errors.New("no rows"))

	assert.ErrorIs(t, derived, store.ErrNotFound)
	assert.NotErrorIs(t, derived, store.ErrStockEmpty)

	wrapped := fmt.Errorf("claim: %w", store.ErrUnavailable.WithCause(errors.New("busy")))
	assert.ErrorIs(t, wrapped, store.ErrUnavailable)

	// Two sentinels sharing a status code stay distinct.
	assert.NotErrorIs(t, store.ErrStockEmpty, store.ErrKeyClaimed)
	assert.NotErrorIs(t, store.ErrKeyClaimed.WithMessage("x"), store.ErrAlreadyExists)
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      *store.Error
		wantCode int
	}{
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"already exists", store.ErrAlreadyExists, http.StatusConflict},
		{"invalid input", store.ErrInvalidInput, http.StatusBadRequest},
		{"insufficient funds", store.ErrInsufficientFunds, http.StatusPaymentRequired},
		{"stock empty", store.ErrStockEmpty, http.StatusConflict},
		{"key claimed", store.ErrKeyClaimed, http.StatusConflict},
		{"already referred", store.ErrAlreadyReferred, http.StatusConflict},
		{"report taken", store.ErrReportTaken, http.StatusConflict},
		{"unavailable", store.ErrUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.HTTPCode())
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestKeyFilter_Normalize(t *testing.T) {
	f := store.KeyFilter{}
	f.Normalize()
	assert.Equal(t, 100, f.Limit)

	f = store.KeyFilter{Limit: 5000}
	f.Normalize()
	assert.Equal(t, 1000, f.Limit)
}

func TestPickOrDefault(t *testing.T) {
	first := func(int) int { return 0 }
	assert.Equal(t, 0, store.PickOrDefault(first)(10))

	for range 50 {
		i := store.PickOrDefault(nil)(3)
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, 3)
	}
}
