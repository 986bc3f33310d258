package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const wsWriteWait = 10 * time.Second

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp,omitempty"`
	MemoryID  string      `json:"memory_id,omitempty"`
	Online    []string    `json:"online,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// WSClient is one open WebSocket session
type WSClient struct {
	IdentityID string
	SubjectID  string

	conn *websocket.Conn
	mu   sync.Mutex
}

// Send writes a message to the client. Writes are serialised per connection.
func (c *WSClient) Send(message WSMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// WSHub manages WebSocket connections grouped by subject, so a patient and
// every linked family member see each other's changes
type WSHub struct {
	mu       sync.RWMutex
	subjects map[string]map[*WSClient]struct{}
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		subjects: make(map[string]map[*WSClient]struct{}),
	}
}

// Register adds a connection to the subject's group and announces presence
func (h *WSHub) Register(subjectID, identityID string, conn *websocket.Conn) *WSClient {
	client := &WSClient{
		IdentityID: identityID,
		SubjectID:  subjectID,
		conn:       conn,
	}

	h.mu.Lock()
	clients, ok := h.subjects[subjectID]
	if !ok {
		clients = make(map[*WSClient]struct{})
		h.subjects[subjectID] = clients
	}
	clients[client] = struct{}{}
	h.mu.Unlock()

	log.Info().
		Str("identity_id", identityID).
		Str("subject_id", subjectID).
		Msg("WebSocket connection registered")

	h.publishPresence(subjectID)

	return client
}

// Unregister removes a connection and announces presence
func (h *WSHub) Unregister(client *WSClient) {
	h.mu.Lock()
	clients, ok := h.subjects[client.SubjectID]
	if ok {
		if _, exists := clients[client]; !exists {
			h.mu.Unlock()
			return
		}
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.subjects, client.SubjectID)
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	client.conn.Close()
	log.Info().
		Str("identity_id", client.IdentityID).
		Str("subject_id", client.SubjectID).
		Msg("WebSocket connection unregistered")

	h.publishPresence(client.SubjectID)
}

// Publish sends a message to every connection of a subject. Connections
// that fail to receive it are dropped.
func (h *WSHub) Publish(subjectID string, message WSMessage) {
	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.subjects[subjectID]))
	for client := range h.subjects[subjectID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.Send(message); err != nil {
			log.Error().
				Err(err).
				Str("identity_id", client.IdentityID).
				Str("type", message.Type).
				Msg("Failed to deliver WebSocket message")
			go h.Unregister(client)
		}
	}
}

// Online returns the distinct identities connected for a subject, sorted
func (h *WSHub) Online(subjectID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]struct{})
	for client := range h.subjects[subjectID] {
		seen[client.IdentityID] = struct{}{}
	}
	online := make([]string, 0, len(seen))
	for id := range seen {
		online = append(online, id)
	}
	sort.Strings(online)
	return online
}

// publishPresence tells a subject's sessions who is connected
func (h *WSHub) publishPresence(subjectID string) {
	online := h.Online(subjectID)
	if len(online) == 0 {
		return
	}
	h.Publish(subjectID, WSMessage{
		Type:      "presence",
		Timestamp: time.Now().UnixMilli(),
		Online:    online,
	})
}
