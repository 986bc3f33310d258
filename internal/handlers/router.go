package handlers

import (
	"net/http"

	"memory-tracker-backend/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Router holds the handlers mounted by NewRouter
type Router struct {
	Auth      *AuthHandler
	Profile   *ProfileHandler
	Memory    *MemoryHandler
	Upload    *UploadHandler
	WebSocket *WebSocketHandler
	Tokens    middleware.TokenValidator
}

// NewRouter builds the HTTP routes
func NewRouter(h Router) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		if h.Auth != nil {
			r.Post("/auth/patients/register", h.Auth.RegisterPatient)
			r.Post("/auth/patients/login", h.Auth.LoginPatient)
			r.Post("/auth/family/register", h.Auth.RegisterFamilyMember)
			r.Post("/auth/family/login", h.Auth.LoginFamilyMember)
		}

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(h.Tokens))

			if h.Profile != nil {
				r.Get("/me", h.Profile.GetProfile)
				r.Put("/me/push-token", h.Profile.UpdatePushToken)
			}

			if h.Memory != nil {
				r.Get("/memories", h.Memory.ListMemories)
				r.Post("/memories", h.Memory.CreateMemory)
				r.Get("/memories/timeline", h.Memory.Timeline)
				r.Get("/memories/{memory_id}", h.Memory.GetMemory)
				r.Patch("/memories/{memory_id}", h.Memory.UpdateMemory)
				r.Delete("/memories/{memory_id}", h.Memory.DeleteMemory)
			}

			if h.Upload != nil {
				r.Post("/uploads", h.Upload.CreateUpload)
			}
		})
	})

	// WebSocket route
	if h.WebSocket != nil {
		r.Get("/ws", h.WebSocket.HandleWebSocket)
	}

	return r
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
