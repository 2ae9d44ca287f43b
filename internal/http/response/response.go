// Package response writes enveloped JSON for responses produced outside huma
// operations: middleware rejections and router fallbacks.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
)

// Version is the envelope version sent in the "v" field.
const Version = 1

// Envelope mirrors the API's huma envelope so clients parse one shape.
type Envelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// JSON writes data in an envelope with the given status code.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	write(w, status, Envelope{
		Version: Version,
		Success: status < 400,
		Data:    data,
	}, logger)
}

// Error writes an error envelope. code may be empty.
func Error(w http.ResponseWriter, status int, code, message string, logger *slog.Logger) {
	write(w, status, Envelope{
		Version: Version,
		Success: false,
		Error:   message,
		Code:    code,
		Message: message,
	}, logger)
}

// Unauthorized writes a 401 response.
func Unauthorized(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusUnauthorized, string(domainerrors.CodeUnauthorized), message, logger)
}

// NotFound writes a 404 response.
func NotFound(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusNotFound, string(domainerrors.CodeNotFound), message, logger)
}

// MethodNotAllowed writes a 405 response.
func MethodNotAllowed(w http.ResponseWriter, logger *slog.Logger) {
	Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", logger)
}

// TooManyRequests writes a 429 response.
func TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusTooManyRequests, "RATE_LIMITED", message, logger)
}

// InternalError writes a 500 response.
func InternalError(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusInternalServerError, string(domainerrors.CodeInternal), message, logger)
}

// HandleError writes an appropriate response for err.
// Domain errors keep their status and code, anything else becomes a 500.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		for k, values := range domainErr.GetHeaders() {
			for _, v := range values {
				w.Header().Add(k, v)
			}
		}
		Error(w, domainErr.HTTPStatus(), string(domainErr.Code), domainErr.Message, logger)
		return
	}

	if logger != nil {
		logger.Error("Unhandled error", "error", err)
	}
	InternalError(w, "internal server error", logger)
}

func write(w http.ResponseWriter, status int, envelope Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}
