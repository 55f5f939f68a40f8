package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"
)

// MemStore is an in-memory Store used by tests. TTLs are honored against the
// wall clock; a zero TTL never expires.
type MemStore struct {
	mu      sync.Mutex
	strings map[string]memVal
	sets    map[string]map[string]struct{}
	lists   map[string][]string
}

type memVal struct {
	raw      string
	expireAt time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		strings: map[string]memVal{},
		sets:    map[string]map[string]struct{}{},
		lists:   map[string][]string{},
	}
}

// MemStores satisfies Stores with a single backing MemStore for every tenant.
type MemStores struct {
	Store *MemStore
}

func NewMemStores() *MemStores {
	return &MemStores{Store: NewMemStore()}
}

func (s *MemStores) ForTenant(_ context.Context, _ string) (Store, error) {
	return s.Store, nil
}

func (s *MemStores) Shared() Store {
	return s.Store
}

func (m *MemStore) getLive(key string) (string, bool) {
	v, ok := m.strings[key]
	if !ok {
		return "", false
	}
	if !v.expireAt.IsZero() && time.Now().After(v.expireAt) {
		delete(m.strings, key)
		return "", false
	}
	return v.raw, true
}

func (m *MemStore) GetJSON(_ context.Context, key string, out any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.getLive(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (m *MemStore) SetJSON(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var expireAt time.Time
	if ttl > 0 {
		expireAt = time.Now().Add(ttl)
	}
	m.strings[key] = memVal{raw: string(raw), expireAt: expireAt}
	return nil
}

func (m *MemStore) GetInt(_ context.Context, key string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.getLive(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (m *MemStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.strings, key)
		delete(m.sets, key)
		delete(m.lists, key)
	}
	return nil
}

func (m *MemStore) SAdd(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[key]
	if !ok {
		set = map[string]struct{}{}
		m.sets[key] = set
	}
	for _, member := range members {
		set[member] = struct{}{}
	}
	return nil
}

func (m *MemStore) SRem(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[key]
	if !ok {
		return nil
	}
	for _, member := range members {
		delete(set, member)
	}
	return nil
}

func (m *MemStore) SMembers(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.sets[key]
	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	sort.Strings(members)
	return members, nil
}

func (m *MemStore) SIsMember(_ context.Context, key, member string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sets[key][member]
	return ok, nil
}

func (m *MemStore) LPush(_ context.Context, key string, values ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, value := range values {
		m.lists[key] = append([]string{value}, m.lists[key]...)
	}
	return nil
}

func (m *MemStore) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.lists[key]
	n := int64(len(list))
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return []string{}, nil
	}
	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}

func (m *MemStore) LTrim(_ context.Context, key string, start, stop int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.lists[key]
	n := int64(len(list))
	if stop < 0 {
		stop = n + stop
	}
	if stop >= n {
		stop = n - 1
	}
	if start < 0 {
		start = 0
	}
	if start > stop || n == 0 {
		m.lists[key] = []string{}
		return nil
	}
	m.lists[key] = list[start : stop+1]
	return nil
}

func (m *MemStore) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	if raw, ok := m.getLive(key); ok {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, err
		}
		n = parsed
	}
	n++
	prev := m.strings[key]
	m.strings[key] = memVal{raw: strconv.FormatInt(n, 10), expireAt: prev.expireAt}
	return n, nil
}

func (m *MemStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.strings[key]; ok {
		v.expireAt = time.Now().Add(ttl)
		m.strings[key] = v
	}
	return nil
}

func (m *MemStore) Keys(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := []string{}
	for key := range m.strings {
		if ok, _ := path.Match(pattern, key); ok {
			matched = append(matched, key)
		}
	}
	sort.Strings(matched)
	return matched, nil
}
