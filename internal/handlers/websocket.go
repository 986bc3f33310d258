package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"memory-tracker-backend/internal/access"
	"memory-tracker-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const wsReadLimit = 4096

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Bearer token in the query string is the only credential
	},
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub            *services.WSHub
	accountService *services.AccountService
	resolver       *access.Resolver
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *services.WSHub,
	accountService *services.AccountService,
	resolver *access.Resolver,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		accountService: accountService,
		resolver:       resolver,
	}
}

// HandleWebSocket handles GET /ws?token=
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get token from query parameter
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	identity, err := h.accountService.ValidateJWT(token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	subjectID, err := h.resolver.ResolveSubject(r.Context(), identity)
	if err != nil {
		respondServiceError(w, r, err, "Failed to resolve WebSocket subject")
		return
	}

	// Upgrade connection
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	conn.SetReadLimit(wsReadLimit)

	client := h.hub.Register(subjectID, identity.IdentityID(), conn)
	defer h.hub.Unregister(client)

	if err := client.Send(services.WSMessage{
		Type:      "session",
		Timestamp: time.Now().UnixMilli(),
		Data: map[string]interface{}{
			"subject_id": subjectID,
			"kind":       identity.Kind(),
		},
	}); err != nil {
		log.Error().Err(err).Str("identity_id", client.IdentityID).Msg("Failed to send session message")
		return
	}

	log.Info().Str("identity_id", client.IdentityID).Msg("WebSocket connection established")

	// Handle messages
	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("identity_id", client.IdentityID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			h.sendError(client, "Invalid message format")
			continue
		}

		h.handleMessage(client, msg)
	}
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(client *services.WSClient, msg services.WSMessage) {
	switch msg.Type {
	case "ping":
		if err := client.Send(services.WSMessage{Type: "pong", Timestamp: time.Now().UnixMilli()}); err != nil {
			log.Error().Err(err).Str("identity_id", client.IdentityID).Msg("Failed to send pong")
		}
	case "presence":
		if err := client.Send(services.WSMessage{Type: "presence", Online: h.hub.Online(client.SubjectID)}); err != nil {
			log.Error().Err(err).Str("identity_id", client.IdentityID).Msg("Failed to send presence")
		}
	default:
		h.sendError(client, "Unknown message type")
	}
}

// sendError sends an error message to the WebSocket connection
func (h *WebSocketHandler) sendError(client *services.WSClient, message string) {
	if err := client.Send(services.WSMessage{Type: "error", Message: message}); err != nil {
		log.Error().Err(err).Str("identity_id", client.IdentityID).Msg("Failed to send error message")
	}
}
