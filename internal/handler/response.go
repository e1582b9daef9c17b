package handler

// RESPONSE HELPERS:
// writeJSON and writeError standardise responses so every handler produces
// the same shapes. Error responses always look like:
//
//	{"error": "invalid_token", "message": "Invalid token"}
//
// writeError is also where domain errors become HTTP: the service layer
// returns apperror sentinels, and only this function knows which status each
// one maps to.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/pastebin/internal/apperror"
)

// ErrorResponse is the standard error format returned by all endpoints that
// answer in JSON.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable error type (e.g. "not_found")
	Message string `json:"message"` // human-readable description
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be set before the body — once Encode writes,
// header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status and sends it.
//
// MAPPING:
//   - validation / duplicate email / invalid token / unconfirmed email → 400
//   - invalid credentials → 401 (the login handler usually intercepts this
//     earlier and renders the inline error page instead)
//   - not found → 404
//   - pool exhausted → 503 (explicit and observable, never a null id inside
//     a success page)
//   - anything else → 500 with a generic message; internal details stay in
//     the logs
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrDuplicateEmail):
			status = http.StatusBadRequest
			errorType = "duplicate_email"
		case errors.Is(err, apperror.ErrInvalidToken):
			status = http.StatusBadRequest
			errorType = "invalid_token"
		case errors.Is(err, apperror.ErrEmailNotConfirmed):
			status = http.StatusBadRequest
			errorType = "email_not_confirmed"
		case errors.Is(err, apperror.ErrInvalidCredentials):
			status = http.StatusUnauthorized
			errorType = "invalid_credentials"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrPoolExhausted):
			status = http.StatusServiceUnavailable
			errorType = "pool_exhausted"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
