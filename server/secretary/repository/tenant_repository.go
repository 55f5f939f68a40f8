package repository

import (
	"context"

	"secretary_server/server/secretary/domain"
)

type TenantRepository struct {
	stores Stores
}

func NewTenantRepository(stores Stores) *TenantRepository {
	return &TenantRepository{stores: stores}
}

func (r *TenantRepository) Create(ctx context.Context, tenant domain.Tenant) error {
	shared := r.stores.Shared()
	if err := shared.SetJSON(ctx, tenantInfoKey(tenant.TenantID), tenant, 0); err != nil {
		return err
	}
	return shared.SAdd(ctx, allTenantsKey(), tenant.TenantID)
}

func (r *TenantRepository) Get(ctx context.Context, tenantID string) (domain.Tenant, error) {
	var tenant domain.Tenant
	found, err := r.stores.Shared().GetJSON(ctx, tenantInfoKey(tenantID), &tenant)
	if err != nil {
		return domain.Tenant{}, err
	}
	if !found {
		return domain.Tenant{}, ErrNotFound
	}
	return tenant, nil
}

func (r *TenantRepository) Update(ctx context.Context, tenant domain.Tenant) error {
	return r.stores.Shared().SetJSON(ctx, tenantInfoKey(tenant.TenantID), tenant, 0)
}

func (r *TenantRepository) List(ctx context.Context) ([]domain.Tenant, error) {
	shared := r.stores.Shared()
	ids, err := shared.SMembers(ctx, allTenantsKey())
	if err != nil {
		return nil, err
	}
	tenants := make([]domain.Tenant, 0, len(ids))
	for _, id := range ids {
		var tenant domain.Tenant
		found, err := shared.GetJSON(ctx, tenantInfoKey(id), &tenant)
		if err != nil {
			return nil, err
		}
		if found {
			tenants = append(tenants, tenant)
		}
	}
	return tenants, nil
}

func (r *TenantRepository) AppendPlanHistory(ctx context.Context, tenantID string, entry string) error {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	return store.LPush(ctx, planHistoryKey(tenantID), entry)
}
