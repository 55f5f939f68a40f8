package repository

import (
	"context"

	"secretary_server/server/secretary/domain"
)

type UsageRepository struct {
	stores Stores
}

func NewUsageRepository(stores Stores) *UsageRepository {
	return &UsageRepository{stores: stores}
}

// Increment bumps the (tenant, month, type) counter and refreshes its TTL so
// the previous month stays readable for history queries.
func (r *UsageRepository) Increment(ctx context.Context, tenantID, month string, usageType domain.UsageType) error {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	key := usageKey(tenantID, month, string(usageType))
	if _, err := store.Incr(ctx, key); err != nil {
		return err
	}
	return store.Expire(ctx, key, usageTTL)
}

// Count reads a counter; a missing key reads as zero.
func (r *UsageRepository) Count(ctx context.Context, tenantID, month string, usageType domain.UsageType) (int, error) {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	n, _, err := store.GetInt(ctx, usageKey(tenantID, month, string(usageType)))
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
