package validation_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
	"github.com/pointsbot/pointsbot-server/internal/validation"
)

type redeemRequest struct {
	UserID string `json:"user_id" validate:"required,chatid"`
	Code   string `json:"code" validate:"required,keycode"`
}

type platformRequest struct {
	Name  string   `json:"name" validate:"required,platform,max=64"`
	Kind  string   `json:"kind,omitempty" validate:"omitempty,oneof=cookie account"`
	Price int64    `json:"price" validate:"gte=0"`
	Items []string `json:"items" validate:"max=3,dive,max=10"`
}

func detailsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var domainErr *domainerrors.Error
	require.True(t, errors.As(err, &domainErr), "expected domain error, got %T", err)
	assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	return details
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(redeemRequest{UserID: "123456789", Code: "NKEY-ABC123"}))
	assert.NoError(t, v.Validate(platformRequest{Name: "Netflix", Kind: "cookie", Price: 2}))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       any
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing user",
			req:       redeemRequest{Code: "NKEY-ABC123"},
			wantField: "user_id",
			wantMsg:   "is required",
		},
		{
			name:      "user id with spaces",
			req:       redeemRequest{UserID: "12 34", Code: "NKEY-ABC123"},
			wantField: "user_id",
			wantMsg:   "must be a chat user id",
		},
		{
			name:      "lowercase code",
			req:       redeemRequest{UserID: "1", Code: "nkey-abc123"},
			wantField: "code",
			wantMsg:   "must look like NKEY-ABC123",
		},
		{
			name:      "blank platform name",
			req:       platformRequest{Name: "   "},
			wantField: "name",
			wantMsg:   "must be a visible platform name",
		},
		{
			name:      "unknown kind",
			req:       platformRequest{Name: "Hulu", Kind: "voucher"},
			wantField: "kind",
			wantMsg:   "must be one of: cookie account",
		},
		{
			name:      "negative price",
			req:       platformRequest{Name: "Hulu", Price: -1},
			wantField: "price",
			wantMsg:   "must be greater than or equal to 0",
		},
		{
			name:      "too many items",
			req:       platformRequest{Name: "Hulu", Items: []string{"a", "b", "c", "d"}},
			wantField: "items",
			wantMsg:   "must not contain more than 3 items",
		},
		{
			name:      "item too long",
			req:       platformRequest{Name: "Hulu", Items: []string{"ok", "far-too-long-item"}},
			wantField: "items[1]",
			wantMsg:   "must not exceed 10 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domainerrors.ErrValidation))

			details := detailsOf(t, err)
			assert.Equal(t, tt.wantMsg, details[tt.wantField], "details: %v", details)
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(redeemRequest{Code: "NKEY-ABC123"})
	require.Error(t, err)

	details := detailsOf(t, err)
	assert.Contains(t, details, "user_id")
	assert.NotContains(t, details, "UserID")
}

func TestValidator_Var(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Var("code", "PKEY-7QK2M9XH", "keycode"))

	err := v.Var("code", "not a code", "keycode")
	require.Error(t, err)
	assert.Equal(t, "must look like NKEY-ABC123", detailsOf(t, err)["code"])
}
