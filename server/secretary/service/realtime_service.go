package service

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"secretary_server/server/common/log"
)

// RealtimeService upgrades dashboard connections and keeps them attached to
// the feed hub until the peer goes away.
type RealtimeService struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewRealtimeService(hub *Hub) *RealtimeService {
	return &RealtimeService{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is served from another origin in dev.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *RealtimeService) HandleWS(c *gin.Context) {
	tenantID := c.GetString("auth_tenant_id")
	userID := c.GetString("auth_user_id")

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnf("ws upgrade failed: tenant=%s user=%s err=%v", tenantID, userID, err)
		return
	}
	client := &FeedClient{TenantID: tenantID, UserID: userID, Conn: conn}
	s.hub.Register(client)
	log.Infof("ws connected: tenant=%s user=%s", tenantID, userID)

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	go s.pingLoop(client)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	}
	s.hub.Unregister(client)
	log.Infof("ws disconnected: tenant=%s user=%s", tenantID, userID)
}

func (s *RealtimeService) pingLoop(client *FeedClient) {
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		client.mu.Lock()
		err := client.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		client.mu.Unlock()
		if err != nil {
			return
		}
	}
}
