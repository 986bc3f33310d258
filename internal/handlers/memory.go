package handlers

import (
	"net/http"
	"strconv"

	"memory-tracker-backend/internal/middleware"
	"memory-tracker-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// MemoryHandler handles memory-related HTTP requests
type MemoryHandler struct {
	memoryService *services.MemoryService
}

// NewMemoryHandler creates a new memory handler
func NewMemoryHandler(memoryService *services.MemoryService) *MemoryHandler {
	return &MemoryHandler{
		memoryService: memoryService,
	}
}

// ListMemories handles GET /api/v1/memories
func (h *MemoryHandler) ListMemories(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	// Parse query parameters
	req := services.ListMemoriesRequest{
		Type: r.URL.Query().Get("type"),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil {
			req.Limit = parsedLimit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsedOffset, err := strconv.Atoi(offsetStr); err == nil {
			req.Offset = parsedOffset
		}
	}

	list, err := h.memoryService.List(r.Context(), identity, req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to list memories")
		return
	}

	respondJSON(w, http.StatusOK, list)
}

// Timeline handles GET /api/v1/memories/timeline
func (h *MemoryHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	groups, err := h.memoryService.Timeline(r.Context(), identity)
	if err != nil {
		respondServiceError(w, r, err, "Failed to build timeline")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"groups": groups,
	})
}

// CreateMemory handles POST /api/v1/memories
func (h *MemoryHandler) CreateMemory(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	var req services.CreateMemoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	memory, err := h.memoryService.Create(r.Context(), identity, req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to create memory")
		return
	}

	respondJSON(w, http.StatusCreated, memory)
}

// GetMemory handles GET /api/v1/memories/{memory_id}
func (h *MemoryHandler) GetMemory(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	memory, err := h.memoryService.Get(r.Context(), identity, chi.URLParam(r, "memory_id"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get memory")
		return
	}

	respondJSON(w, http.StatusOK, memory)
}

// UpdateMemory handles PATCH /api/v1/memories/{memory_id}
func (h *MemoryHandler) UpdateMemory(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	var req services.UpdateMemoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	memory, err := h.memoryService.Update(r.Context(), identity, chi.URLParam(r, "memory_id"), req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to update memory")
		return
	}

	respondJSON(w, http.StatusOK, memory)
}

// DeleteMemory handles DELETE /api/v1/memories/{memory_id}
func (h *MemoryHandler) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	if err := h.memoryService.Delete(r.Context(), identity, chi.URLParam(r, "memory_id")); err != nil {
		respondServiceError(w, r, err, "Failed to delete memory")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
