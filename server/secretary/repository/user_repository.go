package repository

import (
	"context"

	"secretary_server/server/secretary/domain"
)

type UserRepository struct {
	stores Stores
}

func NewUserRepository(stores Stores) *UserRepository {
	return &UserRepository{stores: stores}
}

// Put writes the tenant-scoped record, the global sender mapping, and the
// role sets in one logical operation.
func (r *UserRepository) Put(ctx context.Context, user domain.User) error {
	store, err := r.stores.ForTenant(ctx, user.TenantID)
	if err != nil {
		return err
	}
	if err := store.SetJSON(ctx, tenantUserKey(user.TenantID, user.UserID), user, 0); err != nil {
		return err
	}
	ref := domain.UserRef{TenantID: user.TenantID, Role: user.Role}
	if err := r.stores.Shared().SetJSON(ctx, globalUserKey(user.UserID), ref, 0); err != nil {
		return err
	}
	if err := store.SAdd(ctx, tenantUsersKey(user.TenantID), user.UserID); err != nil {
		return err
	}
	if user.Role == domain.UserRoleExecutive {
		return store.SAdd(ctx, tenantExecutivesKey(user.TenantID), user.UserID)
	}
	return store.SAdd(ctx, tenantEmployeesKey(user.TenantID), user.UserID)
}

func (r *UserRepository) Get(ctx context.Context, tenantID, userID string) (domain.User, error) {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return domain.User{}, err
	}
	var user domain.User
	found, err := store.GetJSON(ctx, tenantUserKey(tenantID, userID), &user)
	if err != nil {
		return domain.User{}, err
	}
	if !found {
		return domain.User{}, ErrNotFound
	}
	return user, nil
}

// Resolve maps a raw sender ID to its tenant and role; ErrNotFound means an
// unregistered sender.
func (r *UserRepository) Resolve(ctx context.Context, userID string) (domain.UserRef, error) {
	var ref domain.UserRef
	found, err := r.stores.Shared().GetJSON(ctx, globalUserKey(userID), &ref)
	if err != nil {
		return domain.UserRef{}, err
	}
	if !found {
		return domain.UserRef{}, ErrNotFound
	}
	return ref, nil
}

func (r *UserRepository) List(ctx context.Context, tenantID string) ([]domain.User, error) {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	ids, err := store.SMembers(ctx, tenantUsersKey(tenantID))
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		var user domain.User
		found, err := store.GetJSON(ctx, tenantUserKey(tenantID, id), &user)
		if err != nil {
			return nil, err
		}
		if found {
			users = append(users, user)
		}
	}
	return users, nil
}

func (r *UserRepository) Executives(ctx context.Context, tenantID string) ([]string, error) {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return store.SMembers(ctx, tenantExecutivesKey(tenantID))
}

func (r *UserRepository) Employees(ctx context.Context, tenantID string) ([]string, error) {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return store.SMembers(ctx, tenantEmployeesKey(tenantID))
}

func (r *UserRepository) IsExecutive(ctx context.Context, tenantID, userID string) (bool, error) {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return store.SIsMember(ctx, tenantExecutivesKey(tenantID), userID)
}

// Delete removes the user record and every set it was inserted into,
// including the per-user task index.
func (r *UserRepository) Delete(ctx context.Context, tenantID, userID string) error {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := store.Del(ctx, tenantUserKey(tenantID, userID)); err != nil {
		return err
	}
	if err := r.stores.Shared().Del(ctx, globalUserKey(userID)); err != nil {
		return err
	}
	if err := store.SRem(ctx, tenantUsersKey(tenantID), userID); err != nil {
		return err
	}
	if err := store.SRem(ctx, tenantExecutivesKey(tenantID), userID); err != nil {
		return err
	}
	if err := store.SRem(ctx, tenantEmployeesKey(tenantID), userID); err != nil {
		return err
	}
	return store.Del(ctx, userTasksKey(tenantID, userID))
}

func (r *UserRepository) PutAccount(ctx context.Context, account domain.Account) error {
	return r.stores.Shared().SetJSON(ctx, accountKey(account.UserType, account.Email), account, 0)
}

func (r *UserRepository) GetAccount(ctx context.Context, userType, email string) (domain.Account, error) {
	var account domain.Account
	found, err := r.stores.Shared().GetJSON(ctx, accountKey(userType, email), &account)
	if err != nil {
		return domain.Account{}, err
	}
	if !found {
		return domain.Account{}, ErrNotFound
	}
	return account, nil
}
