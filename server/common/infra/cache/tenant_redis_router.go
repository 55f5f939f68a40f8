package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TenantRedisRouter resolves the key-value client for a tenant. Most tenants
// share one hosted store; a tenant provisioned with a dedicated store address
// gets its own lazily-dialed client. Tenant metadata itself always lives in
// the shared store under tenant:{id}:info.
type TenantRedisRouter struct {
	shared    *redis.Client
	cacheTTL  time.Duration
	mu        sync.RWMutex
	metaCache map[string]cachedStoreMeta
	clients   map[string]*redis.Client
}

type storeMeta struct {
	Addr     string
	IsActive bool
	Known    bool
}

type cachedStoreMeta struct {
	meta      storeMeta
	fetchedAt time.Time
}

var ErrTenantInactive = errors.New("tenant is inactive")

func NewTenantRedisRouter(shared *redis.Client) *TenantRedisRouter {
	return &TenantRedisRouter{
		shared:    shared,
		cacheTTL:  30 * time.Second,
		metaCache: map[string]cachedStoreMeta{},
		clients:   map[string]*redis.Client{},
	}
}

func (r *TenantRedisRouter) Shared() *redis.Client {
	return r.shared
}

func (r *TenantRedisRouter) ClientForTenant(ctx context.Context, tenantID string) (*redis.Client, error) {
	if strings.TrimSpace(tenantID) == "" {
		return r.shared, nil
	}
	meta, err := r.loadMeta(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	// Unknown tenants route to the shared store so callers can observe the
	// missing primary record themselves.
	if !meta.Known {
		return r.shared, nil
	}
	if !meta.IsActive {
		return nil, ErrTenantInactive
	}
	if strings.TrimSpace(meta.Addr) == "" {
		return r.shared, nil
	}

	r.mu.RLock()
	if c, ok := r.clients[tenantID]; ok {
		r.mu.RUnlock()
		return c, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[tenantID]; ok {
		return c, nil
	}
	client := redis.NewClient(&redis.Options{Addr: meta.Addr})
	r.clients[tenantID] = client
	return client, nil
}

func (r *TenantRedisRouter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for tenantID, client := range r.clients {
		_ = client.Close()
		delete(r.clients, tenantID)
	}
}

func (r *TenantRedisRouter) InvalidateTenant(tenantID string) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.metaCache, tenantID)
	if client, ok := r.clients[tenantID]; ok {
		_ = client.Close()
		delete(r.clients, tenantID)
	}
}

func (r *TenantRedisRouter) loadMeta(ctx context.Context, tenantID string) (storeMeta, error) {
	now := time.Now()
	r.mu.RLock()
	if cached, ok := r.metaCache[tenantID]; ok && now.Sub(cached.fetchedAt) < r.cacheTTL {
		r.mu.RUnlock()
		return cached.meta, nil
	}
	r.mu.RUnlock()

	var meta storeMeta
	raw, err := r.shared.Get(ctx, "tenant:"+tenantID+":info").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			meta = storeMeta{Known: false}
			r.cacheMeta(tenantID, meta, now)
			return meta, nil
		}
		return storeMeta{}, err
	}

	var info struct {
		IsActive           bool   `json:"isActive"`
		DedicatedStoreAddr string `json:"dedicatedStoreAddr"`
	}
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return storeMeta{}, err
	}
	meta = storeMeta{Addr: info.DedicatedStoreAddr, IsActive: info.IsActive, Known: true}
	r.cacheMeta(tenantID, meta, now)
	return meta, nil
}

func (r *TenantRedisRouter) cacheMeta(tenantID string, meta storeMeta, now time.Time) {
	r.mu.Lock()
	r.metaCache[tenantID] = cachedStoreMeta{meta: meta, fetchedAt: now}
	r.mu.Unlock()
}
