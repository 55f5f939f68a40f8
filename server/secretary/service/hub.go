package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"secretary_server/server/common/log"
)

// FeedClient is one dashboard websocket, serialized for concurrent writes.
type FeedClient struct {
	TenantID string
	UserID   string
	Conn     *websocket.Conn
	mu       sync.Mutex
}

func (c *FeedClient) WriteJSON(payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.Conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_ = c.Conn.WriteJSON(payload)
}

// Hub fans live feed entries out to the executive dashboards of a tenant.
// With a redis client attached, broadcasts go through pub/sub so every
// instance delivers to its local sockets; without one, delivery is local only.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]map[*FeedClient]struct{}
	redis     *redis.Client
	redisSub  *redis.PubSub
	subCancel context.CancelFunc
}

const feedChannel = "secretary:feed"

type feedEvent struct {
	TenantID string          `json:"tenantId"`
	Payload  json.RawMessage `json:"payload"`
}

func NewHub() *Hub {
	return &Hub{clients: map[string]map[*FeedClient]struct{}{}}
}

func (h *Hub) UseRedis(client *redis.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.redis = client
}

func (h *Hub) StartSubscriber(ctx context.Context) error {
	h.mu.Lock()
	if h.redis == nil {
		h.mu.Unlock()
		return errors.New("redis client is nil")
	}
	if h.redisSub != nil {
		h.mu.Unlock()
		return nil
	}
	subCtx, cancel := context.WithCancel(ctx)
	sub := h.redis.Subscribe(subCtx, feedChannel)
	h.redisSub = sub
	h.subCancel = cancel
	h.mu.Unlock()

	go h.consume(subCtx, sub)
	return nil
}

func (h *Hub) StopSubscriber() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subCancel != nil {
		h.subCancel()
		h.subCancel = nil
	}
	if h.redisSub != nil {
		_ = h.redisSub.Close()
		h.redisSub = nil
	}
}

func (h *Hub) Register(client *FeedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.TenantID]; !ok {
		h.clients[client.TenantID] = map[*FeedClient]struct{}{}
	}
	h.clients[client.TenantID][client] = struct{}{}
}

func (h *Hub) Unregister(client *FeedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[client.TenantID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.clients, client.TenantID)
		}
	}
	_ = client.Conn.Close()
}

// Broadcast delivers a payload to every dashboard socket of the tenant.
func (h *Hub) Broadcast(tenantID string, payload any) {
	if h.publish(tenantID, payload) {
		return
	}
	count := h.broadcastLocal(tenantID, payload)
	log.Debugf("event=feed_hub action=local_dispatch tenant_id=%s fanout_count=%d", tenantID, count)
}

func (h *Hub) broadcastLocal(tenantID string, payload any) int {
	h.mu.RLock()
	conns := make([]*FeedClient, 0, len(h.clients[tenantID]))
	for client := range h.clients[tenantID] {
		conns = append(conns, client)
	}
	h.mu.RUnlock()

	for _, client := range conns {
		client.WriteJSON(payload)
	}
	return len(conns)
}

func (h *Hub) publish(tenantID string, payload any) bool {
	h.mu.RLock()
	redisClient := h.redis
	h.mu.RUnlock()
	if redisClient == nil {
		return false
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	b, err := json.Marshal(feedEvent{TenantID: tenantID, Payload: raw})
	if err != nil {
		return false
	}
	if err := redisClient.Publish(context.Background(), feedChannel, b).Err(); err != nil {
		log.Warnf("event=feed_hub action=publish status=failed tenant_id=%s error=%v", tenantID, err)
		return false
	}
	return true
}

func (h *Hub) consume(ctx context.Context, sub *redis.PubSub) {
	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			return
		}
		var event feedEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			continue
		}
		var payload any
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			continue
		}
		count := h.broadcastLocal(event.TenantID, payload)
		log.Debugf("event=feed_hub action=consume tenant_id=%s fanout_count=%d", event.TenantID, count)
	}
}
