package handlers

import (
	"net/http"

	"memory-tracker-backend/internal/services"
)

// AuthHandler handles registration and login requests
type AuthHandler struct {
	accountService *services.AccountService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accountService *services.AccountService) *AuthHandler {
	return &AuthHandler{
		accountService: accountService,
	}
}

// RegisterPatient handles POST /api/v1/auth/patients/register
func (h *AuthHandler) RegisterPatient(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterPatientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	response, err := h.accountService.RegisterPatient(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to register patient")
		return
	}

	respondJSON(w, http.StatusCreated, response)
}

// RegisterFamilyMember handles POST /api/v1/auth/family/register
func (h *AuthHandler) RegisterFamilyMember(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterFamilyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	response, err := h.accountService.RegisterFamilyMember(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to register family member")
		return
	}

	respondJSON(w, http.StatusCreated, response)
}

// LoginPatient handles POST /api/v1/auth/patients/login
func (h *AuthHandler) LoginPatient(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	response, err := h.accountService.LoginPatient(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, "Patient login failed")
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// LoginFamilyMember handles POST /api/v1/auth/family/login
func (h *AuthHandler) LoginFamilyMember(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	response, err := h.accountService.LoginFamilyMember(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, "Family login failed")
		return
	}

	respondJSON(w, http.StatusOK, response)
}
