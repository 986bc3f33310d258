package handlers

import (
	"net/http"

	"memory-tracker-backend/internal/middleware"
	"memory-tracker-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UploadHandler handles blob upload requests
type UploadHandler struct {
	uploadService *services.UploadService
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploadService *services.UploadService) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
	}
}

// CreateUpload handles POST /api/v1/uploads
func (h *UploadHandler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	var req services.UploadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	response, err := h.uploadService.PresignUpload(r.Context(), identity, req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to generate pre-signed URL")
		return
	}

	log.Info().
		Str("identity_id", identity.IdentityID()).
		Str("key", response.Key).
		Msg("Pre-signed URL generated")

	respondJSON(w, http.StatusOK, response)
}
