package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"secretary_server/server/common/infra/cache"
)

// Store is the key-value surface the repositories are written against. The
// production implementation wraps go-redis; tests use the in-memory fake.
type Store interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetInt(ctx context.Context, key string) (int64, bool, error)
	Del(ctx context.Context, keys ...string) error
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)
	LPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int64) error
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// Stores resolves the Store for a tenant via the tenant redis router.
// Globally-keyed records (user:{id}, analysis:{id}, approval:{id}, accounts,
// all_tenants) always live on the shared store.
type Stores interface {
	ForTenant(ctx context.Context, tenantID string) (Store, error)
	Shared() Store
}

type routedStores struct {
	router *cache.TenantRedisRouter
}

func NewStores(router *cache.TenantRedisRouter) Stores {
	return &routedStores{router: router}
}

func (s *routedStores) ForTenant(ctx context.Context, tenantID string) (Store, error) {
	client, err := s.router.ClientForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &redisStore{client: client}, nil
}

func (s *routedStores) Shared() Store {
	return &redisStore{client: s.router.Shared()}
}

type redisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, wrapStoreErr(err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *redisStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return retryOnce(func() error {
		return wrapStoreErr(s.client.Set(ctx, key, raw, ttl).Err())
	})
}

func (s *redisStore) GetInt(ctx context.Context, key string) (int64, bool, error) {
	n, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrapStoreErr(err)
	}
	return n, true, nil
}

func (s *redisStore) Del(ctx context.Context, keys ...string) error {
	return retryOnce(func() error {
		return wrapStoreErr(s.client.Del(ctx, keys...).Err())
	})
}

func (s *redisStore) SAdd(ctx context.Context, key string, members ...string) error {
	return retryOnce(func() error {
		return wrapStoreErr(s.client.SAdd(ctx, key, toAnySlice(members)...).Err())
	})
}

func (s *redisStore) SRem(ctx context.Context, key string, members ...string) error {
	return retryOnce(func() error {
		return wrapStoreErr(s.client.SRem(ctx, key, toAnySlice(members)...).Err())
	})
}

func (s *redisStore) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return members, nil
}

func (s *redisStore) SIsMember(ctx context.Context, key, member string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, key, member).Result()
	if err != nil {
		return false, wrapStoreErr(err)
	}
	return ok, nil
}

func (s *redisStore) LPush(ctx context.Context, key string, values ...string) error {
	return retryOnce(func() error {
		return wrapStoreErr(s.client.LPush(ctx, key, toAnySlice(values)...).Err())
	})
}

func (s *redisStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	items, err := s.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return items, nil
}

func (s *redisStore) LTrim(ctx context.Context, key string, start, stop int64) error {
	return retryOnce(func() error {
		return wrapStoreErr(s.client.LTrim(ctx, key, start, stop).Err())
	})
}

func (s *redisStore) Incr(ctx context.Context, key string) (int64, error) {
	var n int64
	err := retryOnce(func() error {
		var innerErr error
		n, innerErr = s.client.Incr(ctx, key).Result()
		return wrapStoreErr(innerErr)
	})
	return n, err
}

func (s *redisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return retryOnce(func() error {
		return wrapStoreErr(s.client.Expire(ctx, key, ttl).Err())
	})
}

func (s *redisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return keys, nil
}

// retryOnce retries a failed mutation a single time with no backoff.
func retryOnce(op func() error) error {
	err := op()
	if err == nil || !errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return op()
}

func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func toAnySlice(items []string) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
