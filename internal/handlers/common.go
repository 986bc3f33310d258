package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"memory-tracker-backend/internal/access"
	"memory-tracker-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// decodeJSON reads a JSON request body, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// statusFor maps service errors onto HTTP status codes and client messages
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, services.ErrInvalidCredentials.Error()
	case errors.Is(err, services.ErrInvalidToken), errors.Is(err, access.ErrUnknownIdentity):
		return http.StatusUnauthorized, "Invalid token"
	case errors.Is(err, access.ErrUnlinkedFamilyMember):
		return http.StatusForbidden, access.ErrUnlinkedFamilyMember.Error()
	case errors.Is(err, access.ErrNotFound):
		return http.StatusNotFound, access.ErrNotFound.Error()
	case errors.Is(err, services.ErrPatientNotFound):
		return http.StatusNotFound, services.ErrPatientNotFound.Error()
	case errors.Is(err, services.ErrAlreadyRegistered):
		return http.StatusConflict, services.ErrAlreadyRegistered.Error()
	case errors.Is(err, services.ErrTooManyAttempts):
		return http.StatusTooManyRequests, services.ErrTooManyAttempts.Error()
	case errors.Is(err, access.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "Service temporarily unavailable, please try again"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// respondServiceError logs err and sends the mapped response
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	statusCode, message := statusFor(err)

	event := log.Warn()
	if statusCode >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", statusCode).
		Msg(msg)

	respondError(w, message, statusCode)
}
