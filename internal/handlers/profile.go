package handlers

import (
	"net/http"

	"memory-tracker-backend/internal/middleware"
	"memory-tracker-backend/internal/services"
)

// ProfileHandler handles requests about the signed-in account
type ProfileHandler struct {
	accountService *services.AccountService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(accountService *services.AccountService) *ProfileHandler {
	return &ProfileHandler{
		accountService: accountService,
	}
}

// PushTokenRequest represents the body of PUT /api/v1/me/push-token
type PushTokenRequest struct {
	PushToken string `json:"push_token"`
}

// GetProfile handles GET /api/v1/me
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	profile, err := h.accountService.Profile(r.Context(), identity)
	if err != nil {
		respondServiceError(w, r, err, "Failed to load profile")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// UpdatePushToken handles PUT /api/v1/me/push-token
func (h *ProfileHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	var req PushTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.accountService.UpdatePushToken(r.Context(), identity, req.PushToken); err != nil {
		respondServiceError(w, r, err, "Failed to update push token")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
