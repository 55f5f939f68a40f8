package repository

import (
	"context"

	"secretary_server/server/secretary/domain"
)

type TaskRepository struct {
	stores Stores
}

func NewTaskRepository(stores Stores) *TaskRepository {
	return &TaskRepository{stores: stores}
}

// taskIndexKeys derives every secondary index a task record participates in.
// Updates and deletes reverse insertions by diffing this list, so it must
// stay the single source of truth for task index membership.
func taskIndexKeys(task domain.Task) []string {
	keys := []string{
		userTasksKey(task.TenantID, task.AssignedTo),
		tasksByPriorityKey(task.TenantID, string(task.Priority)),
	}
	if task.DueDate != nil {
		keys = append(keys, tasksByDueKey(task.TenantID, domain.DayKey(*task.DueDate)))
	}
	return keys
}

func (r *TaskRepository) Create(ctx context.Context, task domain.Task) error {
	store, err := r.stores.ForTenant(ctx, task.TenantID)
	if err != nil {
		return err
	}
	if err := store.SetJSON(ctx, taskKey(task.TenantID, task.ID), task, taskTTL); err != nil {
		return err
	}
	for _, key := range taskIndexKeys(task) {
		if err := store.SAdd(ctx, key, task.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *TaskRepository) Get(ctx context.Context, tenantID, taskID string) (domain.Task, error) {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return domain.Task{}, err
	}
	var task domain.Task
	found, err := store.GetJSON(ctx, taskKey(tenantID, taskID), &task)
	if err != nil {
		return domain.Task{}, err
	}
	if !found {
		return domain.Task{}, ErrNotFound
	}
	return task, nil
}

// Replace overwrites the primary record and swaps any index entry whose
// dimension changed between prev and next.
func (r *TaskRepository) Replace(ctx context.Context, prev, next domain.Task) error {
	store, err := r.stores.ForTenant(ctx, next.TenantID)
	if err != nil {
		return err
	}
	if err := store.SetJSON(ctx, taskKey(next.TenantID, next.ID), next, taskTTL); err != nil {
		return err
	}
	prevKeys := keySet(taskIndexKeys(prev))
	nextKeys := keySet(taskIndexKeys(next))
	for key := range prevKeys {
		if _, keep := nextKeys[key]; !keep {
			if err := store.SRem(ctx, key, next.ID); err != nil {
				return err
			}
		}
	}
	for key := range nextKeys {
		if _, had := prevKeys[key]; !had {
			if err := store.SAdd(ctx, key, next.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, task domain.Task) error {
	store, err := r.stores.ForTenant(ctx, task.TenantID)
	if err != nil {
		return err
	}
	if err := store.Del(ctx, taskKey(task.TenantID, task.ID)); err != nil {
		return err
	}
	for _, key := range taskIndexKeys(task) {
		if err := store.SRem(ctx, key, task.ID); err != nil {
			return err
		}
	}
	return nil
}

// ByUser resolves the assignee index, dropping tombstoned IDs.
func (r *TaskRepository) ByUser(ctx context.Context, tenantID, userID string) ([]domain.Task, error) {
	return r.byIndex(ctx, tenantID, userTasksKey(tenantID, userID))
}

func (r *TaskRepository) ByDueDay(ctx context.Context, tenantID, day string) ([]domain.Task, error) {
	return r.byIndex(ctx, tenantID, tasksByDueKey(tenantID, day))
}

func (r *TaskRepository) CountByPriority(ctx context.Context, tenantID, priority string) (int, error) {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	ids, err := store.SMembers(ctx, tasksByPriorityKey(tenantID, priority))
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (r *TaskRepository) byIndex(ctx context.Context, tenantID, indexKey string) ([]domain.Task, error) {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	ids, err := store.SMembers(ctx, indexKey)
	if err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, 0, len(ids))
	for _, id := range ids {
		var task domain.Task
		found, err := store.GetJSON(ctx, taskKey(tenantID, id), &task)
		if err != nil {
			return nil, err
		}
		if found {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (r *TaskRepository) ScheduleReminder(ctx context.Context, task domain.Task, timing string, payload any) error {
	store, err := r.stores.ForTenant(ctx, task.TenantID)
	if err != nil {
		return err
	}
	return store.SetJSON(ctx, reminderKey(task.TenantID, timing, task.ID), payload, reminderTTL)
}

func keySet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return set
}
