package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWait = 2 * time.Second
	testTick = 10 * time.Millisecond
)

func newHubServer(t *testing.T, hub *WSHub) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := hub.Register(r.URL.Query().Get("subject"), r.URL.Query().Get("identity"), conn)
		defer hub.Unregister(client)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialHub(t *testing.T, srv *httptest.Server, subjectID, identityID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?subject=" + subjectID + "&identity=" + identityID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()

	var msg WSMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(testWait)))
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWSHub_PublishIsScopedToSubject(t *testing.T) {
	hub := NewWSHub()
	srv := newHubServer(t, hub)

	patient := dialHub(t, srv, "p1", "p1")
	msg := readMessage(t, patient)
	assert.Equal(t, "presence", msg.Type)
	assert.Equal(t, []string{"p1"}, msg.Online)

	family := dialHub(t, srv, "p1", "f1")
	assert.Equal(t, []string{"f1", "p1"}, readMessage(t, patient).Online)
	assert.Equal(t, []string{"f1", "p1"}, readMessage(t, family).Online)

	stranger := dialHub(t, srv, "p2", "p2")
	assert.Equal(t, []string{"p2"}, readMessage(t, stranger).Online)

	hub.Publish("p1", WSMessage{Type: "memory_created", MemoryID: "m1"})

	for _, conn := range []*websocket.Conn{patient, family} {
		got := readMessage(t, conn)
		assert.Equal(t, "memory_created", got.Type)
		assert.Equal(t, "m1", got.MemoryID)
	}

	require.NoError(t, stranger.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := stranger.ReadMessage()
	assert.Error(t, err, "other subjects receive nothing")
}

func TestWSHub_UnregisterUpdatesPresence(t *testing.T) {
	hub := NewWSHub()
	srv := newHubServer(t, hub)

	patient := dialHub(t, srv, "p1", "p1")
	readMessage(t, patient)

	family := dialHub(t, srv, "p1", "f1")
	readMessage(t, patient)
	readMessage(t, family)

	require.NoError(t, family.Close())

	msg := readMessage(t, patient)
	assert.Equal(t, "presence", msg.Type)
	assert.Equal(t, []string{"p1"}, msg.Online)

	assert.Eventually(t, func() bool {
		return len(hub.Online("p1")) == 1
	}, testWait, testTick)
	assert.Empty(t, hub.Online("p2"))
}

func TestWSHub_SameIdentityTwice(t *testing.T) {
	hub := NewWSHub()
	srv := newHubServer(t, hub)

	first := dialHub(t, srv, "p1", "f1")
	readMessage(t, first)
	second := dialHub(t, srv, "p1", "f1")
	readMessage(t, first)
	readMessage(t, second)

	assert.Equal(t, []string{"f1"}, hub.Online("p1"))
}
