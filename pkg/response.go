package pkg

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// APIResponse is the envelope of every JSON API response.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSON writes a successful response.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := APIResponse{
		Success: true,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		zap.L().Named("http").Warn("failed to encode response", zap.Error(err))
	}
}

// Error writes an error response with the status mapped from the domain
// error. Internal errors are logged and their text is not exposed.
func Error(w http.ResponseWriter, err error) {
	status := StatusFor(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		zap.L().Named("http").Error("internal error", zap.Error(err))
		message = ErrInternal.Error()
	}

	ErrorWithMessage(w, status, message)
}

// ErrorWithMessage writes an error response with an explicit status.
func ErrorWithMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := APIResponse{
		Success: false,
		Error:   message,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		zap.L().Named("http").Warn("failed to encode error response", zap.Error(err))
	}
}

// StatusFor maps a domain error to an HTTP status code. Wrapped errors match.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
