package repository

import (
	"context"

	"secretary_server/server/secretary/domain"
)

// TokenRepository stores per-user calendar OAuth credentials.
type TokenRepository struct {
	stores Stores
}

func NewTokenRepository(stores Stores) *TokenRepository {
	return &TokenRepository{stores: stores}
}

func (r *TokenRepository) Put(ctx context.Context, tenantID, userID string, token domain.CalendarToken) error {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	return store.SetJSON(ctx, calendarTokenKey(tenantID, userID), token, calendarTokenTTL)
}

func (r *TokenRepository) Get(ctx context.Context, tenantID, userID string) (domain.CalendarToken, error) {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return domain.CalendarToken{}, err
	}
	var token domain.CalendarToken
	found, err := store.GetJSON(ctx, calendarTokenKey(tenantID, userID), &token)
	if err != nil {
		return domain.CalendarToken{}, err
	}
	if !found {
		return domain.CalendarToken{}, ErrNotFound
	}
	return token, nil
}

func (r *TokenRepository) Delete(ctx context.Context, tenantID, userID string) error {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	return store.Del(ctx, calendarTokenKey(tenantID, userID))
}
