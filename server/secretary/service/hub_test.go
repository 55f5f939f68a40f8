package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secretary_server/server/secretary/domain"
)

func TestHubBroadcastIsTenantScoped(t *testing.T) {
	hub := NewHub()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(&FeedClient{
			TenantID: r.URL.Query().Get("tenant"),
			UserID:   "exec-1",
			Conn:     conn,
		})
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	dial := func(tenant string) *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?tenant="+tenant, nil)
		require.NoError(t, err)
		return conn
	}
	acme := dial("acme")
	defer acme.Close()
	globex := dial("globex")
	defer globex.Close()

	waitForClients(t, hub, 2)

	hub.Broadcast("acme", domain.FeedMessage{ID: "msg_1", Summary: "hello"})

	var got domain.FeedMessage
	require.NoError(t, acme.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, acme.ReadJSON(&got))
	assert.Equal(t, "msg_1", got.ID)

	// The other tenant's socket stays silent.
	require.NoError(t, globex.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var stray domain.FeedMessage
	assert.Error(t, globex.ReadJSON(&stray))
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	registered := make(chan *FeedClient, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := &FeedClient{TenantID: "acme", UserID: "exec-1", Conn: conn}
		hub.Register(client)
		registered <- client
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	client := <-registered
	hub.Unregister(client)

	hub.mu.RLock()
	_, stillThere := hub.clients["acme"]
	hub.mu.RUnlock()
	assert.False(t, stillThere)

	// Broadcasting after unregister must not panic or deliver.
	hub.Broadcast("acme", domain.FeedMessage{ID: "msg_2"})
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		total := 0
		for _, conns := range hub.clients {
			total += len(conns)
		}
		hub.mu.RUnlock()
		if total >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("clients never registered")
}
