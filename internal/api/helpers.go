package api

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
)

// MessageResponse is a body carrying a single confirmation message.
type MessageResponse struct {
	Message string `json:"message" doc:"Confirmation message"`
}

// MessageOutput wraps MessageResponse for Huma.
type MessageOutput struct {
	Body MessageResponse
}

func message(msg string) *MessageOutput {
	return &MessageOutput{Body: MessageResponse{Message: msg}}
}

// pathName decodes a path parameter that may still be escaped.
// Platform names may contain spaces and non-ASCII letters.
func pathName(raw string) string {
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	return strings.TrimSpace(raw)
}

// parseOptionalBool parses "true" or "false"; an empty string means unset.
func parseOptionalBool(field, raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, domainerrors.Validationf("%s must be true or false", field)
	}
	return &v, nil
}

// parseOptionalTime parses an RFC 3339 timestamp; an empty string means zero.
func parseOptionalTime(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, domainerrors.Validationf("%s must be an RFC 3339 timestamp", field)
	}
	return t, nil
}
