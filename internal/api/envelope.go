package api

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// EnvelopeVersion is the "v" field clients check before parsing.
const EnvelopeVersion = 1

// Envelope is the body of every successful JSON response.
type Envelope struct {
	Version int  `json:"v"`
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// ErrorEnvelope is the body of every error response. Error repeats Message so
// clients that only read a string keep working.
type ErrorEnvelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer wraps response bodies in Envelope or ErrorEnvelope.
// Register it in huma.Config.Transformers.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if apiErr, ok := v.(*APIError); ok {
		return &ErrorEnvelope{
			Version: EnvelopeVersion,
			Success: false,
			Error:   apiErr.Message,
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		}, nil
	}

	// Huma's own error model (e.g. from panics or unmatched routes).
	if model, ok := v.(*huma.ErrorModel); ok {
		return &ErrorEnvelope{
			Version: EnvelopeVersion,
			Success: false,
			Error:   model.Detail,
			Code:    statusToCode(model.Status),
			Message: model.Detail,
		}, nil
	}

	if err, ok := v.(error); ok {
		return &ErrorEnvelope{
			Version: EnvelopeVersion,
			Success: false,
			Error:   err.Error(),
		}, nil
	}

	// Error statuses with other bodies still report failure.
	success := !strings.HasPrefix(status, "4") && !strings.HasPrefix(status, "5")
	return &Envelope{
		Version: EnvelopeVersion,
		Success: success,
		Data:    v,
	}, nil
}
