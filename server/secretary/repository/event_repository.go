package repository

import (
	"context"
	"time"

	"secretary_server/server/secretary/domain"
)

type EventRepository struct {
	stores Stores
}

func NewEventRepository(stores Stores) *EventRepository {
	return &EventRepository{stores: stores}
}

func eventIndexKeys(event domain.CalendarEvent) []string {
	return []string{
		eventsByDateKey(event.TenantID, domain.DayKey(event.StartTime)),
		executiveEventsKey(event.TenantID, event.ExecutiveID),
	}
}

func (r *EventRepository) Create(ctx context.Context, event domain.CalendarEvent) error {
	store, err := r.stores.ForTenant(ctx, event.TenantID)
	if err != nil {
		return err
	}
	if err := store.SetJSON(ctx, eventKey(event.TenantID, event.ID), event, eventTTL); err != nil {
		return err
	}
	for _, key := range eventIndexKeys(event) {
		if err := store.SAdd(ctx, key, event.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *EventRepository) Get(ctx context.Context, tenantID, eventID string) (domain.CalendarEvent, error) {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return domain.CalendarEvent{}, err
	}
	var event domain.CalendarEvent
	found, err := store.GetJSON(ctx, eventKey(tenantID, eventID), &event)
	if err != nil {
		return domain.CalendarEvent{}, err
	}
	if !found {
		return domain.CalendarEvent{}, ErrNotFound
	}
	return event, nil
}

func (r *EventRepository) Replace(ctx context.Context, prev, next domain.CalendarEvent) error {
	store, err := r.stores.ForTenant(ctx, next.TenantID)
	if err != nil {
		return err
	}
	if err := store.SetJSON(ctx, eventKey(next.TenantID, next.ID), next, eventTTL); err != nil {
		return err
	}
	prevKeys := keySet(eventIndexKeys(prev))
	nextKeys := keySet(eventIndexKeys(next))
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

func (r *EventRepository) Delete(ctx context.Context, event domain.CalendarEvent) error {
	store, err := r.stores.ForTenant(ctx, event.TenantID)
	if err != nil {
		return err
	}
	if err := store.Del(ctx, eventKey(event.TenantID, event.ID), eventCancellationKey(event.TenantID, event.ID)); err != nil {
		return err
	}
	for _, key := range eventIndexKeys(event) {
		if err := store.SRem(ctx, key, event.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *EventRepository) ByDay(ctx context.Context, tenantID, day string) ([]domain.CalendarEvent, error) {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	ids, err := store.SMembers(ctx, eventsByDateKey(tenantID, day))
	if err != nil {
		return nil, err
	}
	events := make([]domain.CalendarEvent, 0, len(ids))
	for _, id := range ids {
		var event domain.CalendarEvent
		found, err := store.GetJSON(ctx, eventKey(tenantID, id), &event)
		if err != nil {
			return nil, err
		}
		if found {
			events = append(events, event)
		}
	}
	return events, nil
}

func (r *EventRepository) CountByDay(ctx context.Context, tenantID, day string) (int, error) {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	ids, err := store.SMembers(ctx, eventsByDateKey(tenantID, day))
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (r *EventRepository) RecordCancellation(ctx context.Context, event domain.CalendarEvent, reason string) error {
	store, err := r.stores.ForTenant(ctx, event.TenantID)
	if err != nil {
		return err
	}
	record := map[string]any{"reason": reason, "cancelledAt": time.Now().UTC()}
	return store.SetJSON(ctx, eventCancellationKey(event.TenantID, event.ID), record, cancellationTTL)
}
