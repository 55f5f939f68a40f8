package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeysAreTenantIsolated(t *testing.T) {
	builders := []func(tenantID string) string{
		tenantInfoKey,
		tenantUsersKey,
		tenantExecutivesKey,
		tenantEmployeesKey,
		planHistoryKey,
		feedKey,
		func(id string) string { return tenantUserKey(id, "u1") },
		func(id string) string { return taskKey(id, "t1") },
		func(id string) string { return userTasksKey(id, "u1") },
		func(id string) string { return tasksByPriorityKey(id, "high") },
		func(id string) string { return tasksByDueKey(id, "2025-06-10") },
		func(id string) string { return eventKey(id, "e1") },
		func(id string) string { return eventsByDateKey(id, "2025-06-10") },
		func(id string) string { return executiveEventsKey(id, "x1") },
		func(id string) string { return usageKey(id, "2025-06", "message") },
		func(id string) string { return relayedMessageKey(id, "m1") },
		func(id string) string { return thinkingKey(id, "x1") },
		func(id string) string { return calendarTokenKey(id, "x1") },
	}
	for i, build := range builders {
		a := build("tenant-a")
		b := build("tenant-b")
		assert.NotEqual(t, a, b, "builder %d", i)
		assert.Contains(t, a, "tenant:tenant-a:", "builder %d", i)
	}
}

func TestKeysDistinctAcrossEntityKinds(t *testing.T) {
	seen := map[string]bool{}
	for _, key := range []string{
		tenantInfoKey("t"),
		tenantUsersKey("t"),
		tenantExecutivesKey("t"),
		tenantEmployeesKey("t"),
		tenantUserKey("t", "id"),
		taskKey("t", "id"),
		userTasksKey("t", "id"),
		eventKey("t", "id"),
		executiveEventsKey("t", "id"),
		relayedMessageKey("t", "id"),
		thinkingKey("t", "id"),
		calendarTokenKey("t", "id"),
		planHistoryKey("t"),
		feedKey("t"),
		globalUserKey("id"),
		analysisKey("id"),
		approvalKey("id"),
		accountKey("executive", "a@b.c"),
		accountKey("admin", "a@b.c"),
	} {
		require.False(t, seen[key], "duplicate key %q", key)
		seen[key] = true
	}
}

func TestRelayedPatternMatchesOnlyOwnTenant(t *testing.T) {
	assert.Equal(t, "tenant:acme:message:*", relayedMessagePattern("acme"))

	store := NewMemStore()
	ctx := context.Background()
	require.NoError(t, store.SetJSON(ctx, relayedMessageKey("acme", "m1"), "x", 0))
	require.NoError(t, store.SetJSON(ctx, relayedMessageKey("other", "m2"), "x", 0))
	require.NoError(t, store.SetJSON(ctx, taskKey("acme", "t1"), "x", 0))

	keys, err := store.Keys(ctx, relayedMessagePattern("acme"))
	require.NoError(t, err)
	assert.Equal(t, []string{"tenant:acme:message:m1"}, keys)
}
