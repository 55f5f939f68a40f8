package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secretary_server/server/secretary/domain"
	"secretary_server/server/secretary/repository"
)

func seedTenant(t *testing.T, env *testEnv, plan domain.PlanID) domain.Tenant {
	t.Helper()
	tenant := domain.Tenant{
		TenantID:    "acme-12345678",
		CompanyName: "Acme",
		CreatedAt:   fixedNow,
		Plan:        plan,
		IsActive:    true,
	}
	require.NoError(t, env.tenantRepo.Create(context.Background(), tenant))
	return tenant
}

func recordMessages(t *testing.T, env *testEnv, tenantID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, env.usage.Record(context.Background(), tenantID, domain.UsageMessage))
	}
}

func TestCheckLimitBoundaries(t *testing.T) {
	env := newTestEnv()
	tenant := seedTenant(t, env, domain.PlanFree)
	ctx := context.Background()

	recordMessages(t, env, tenant.TenantID, 99)
	check, err := env.usage.CheckLimit(ctx, tenant.TenantID)
	require.NoError(t, err)
	assert.True(t, check.Allowed)
	assert.Equal(t, 99, check.Usage)
	assert.Equal(t, 100, check.Limit)
	assert.Equal(t, 1, check.Remaining)

	recordMessages(t, env, tenant.TenantID, 1)
	check, err = env.usage.CheckLimit(ctx, tenant.TenantID)
	require.NoError(t, err)
	assert.False(t, check.Allowed)
	assert.Equal(t, 0, check.Remaining)
}

func TestCheckLimitUnlimitedPlan(t *testing.T) {
	env := newTestEnv()
	tenant := seedTenant(t, env, domain.PlanEnterprise)
	recordMessages(t, env, tenant.TenantID, 250)

	check, err := env.usage.CheckLimit(context.Background(), tenant.TenantID)
	require.NoError(t, err)
	assert.True(t, check.Allowed)
	assert.Equal(t, domain.Unlimited, check.Limit)
	assert.Equal(t, domain.Unlimited, check.Remaining)
	assert.Equal(t, 250, check.Usage)
}

func TestCheckLimitMissingCounterIsZero(t *testing.T) {
	env := newTestEnv()
	tenant := seedTenant(t, env, domain.PlanFree)

	check, err := env.usage.CheckLimit(context.Background(), tenant.TenantID)
	require.NoError(t, err)
	assert.True(t, check.Allowed)
	assert.Equal(t, 0, check.Usage)
	assert.Equal(t, 100, check.Remaining)
}

type failingStore struct {
	repository.Store
}

func (failingStore) GetJSON(context.Context, string, any) (bool, error) {
	return false, errors.New("store down")
}

func (failingStore) GetInt(context.Context, string) (int64, bool, error) {
	return 0, false, errors.New("store down")
}

type failingStores struct {
	inner repository.Store
}

func (f failingStores) ForTenant(context.Context, string) (repository.Store, error) {
	return f.inner, nil
}

func (f failingStores) Shared() repository.Store { return f.inner }

func TestGateFailsOpenOnStoreError(t *testing.T) {
	stores := failingStores{inner: failingStore{Store: repository.NewMemStores().Store}}
	usage := NewUsageService(
		repository.NewTenantRepository(stores),
		repository.NewUserRepository(stores),
		repository.NewUsageRepository(stores),
		nil,
	)
	usage.now = func() time.Time { return fixedNow }

	check := usage.Gate(context.Background(), "acme-12345678")
	assert.True(t, check.Allowed)
}

func TestGateDeniesUnknownTenant(t *testing.T) {
	env := newTestEnv()

	check := env.usage.Gate(context.Background(), "ghost-00000000")
	assert.False(t, check.Allowed)
	assert.Zero(t, check.Limit)
}

func TestGateDeniesAtLimit(t *testing.T) {
	env := newTestEnv()
	tenant := seedTenant(t, env, domain.PlanFree)
	recordMessages(t, env, tenant.TenantID, 100)

	check := env.usage.Gate(context.Background(), tenant.TenantID)
	assert.False(t, check.Allowed)
}

func TestUpgradePlanStampsAndRecordsHistory(t *testing.T) {
	env := newTestEnv()
	tenant := seedTenant(t, env, domain.PlanFree)
	ctx := context.Background()

	invalidated := ""
	env.usage.invalidate = func(tenantID string) { invalidated = tenantID }

	updated, err := env.usage.UpgradePlan(ctx, tenant.TenantID, domain.PlanPremium)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanPremium, updated.Plan)
	require.NotNil(t, updated.PlanUpdatedAt)
	assert.Equal(t, fixedNow, *updated.PlanUpdatedAt)
	assert.Equal(t, tenant.TenantID, invalidated)

	_, err = env.usage.UpgradePlan(ctx, tenant.TenantID, "platinum")
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "plan", validation.Field)
}

func TestUsageHistoryMonths(t *testing.T) {
	env := newTestEnv()
	tenant := seedTenant(t, env, domain.PlanBasic)
	recordMessages(t, env, tenant.TenantID, 3)

	history, err := env.usage.History(context.Background(), tenant.TenantID, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "2025-06", history[0].Month)
	assert.Equal(t, 3, history[0].Messages)
	assert.Equal(t, "2025-05", history[1].Month)
	assert.Equal(t, 0, history[1].Messages)
	assert.Equal(t, "2025-04", history[2].Month)
}
