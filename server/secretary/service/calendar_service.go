package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"secretary_server/server/common/log"
	"secretary_server/server/secretary/domain"
	"secretary_server/server/secretary/repository"
)

type CalendarService struct {
	events *repository.EventRepository
	pub    EventPublisher
	now    func() time.Time
}

func NewCalendarService(events *repository.EventRepository, pub EventPublisher) *CalendarService {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &CalendarService{events: events, pub: pub, now: time.Now}
}

type CreateEventInput struct {
	TenantID    string    `json:"tenantId"`
	ExecutiveID string    `json:"executiveId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Location    string    `json:"location"`
	Attendees   []string  `json:"attendees"`
	Type        string    `json:"type"`
	CreatedBy   string    `json:"createdBy"`
}

func (s *CalendarService) CreateEvent(ctx context.Context, in CreateEventInput) (domain.CalendarEvent, error) {
	switch {
	case strings.TrimSpace(in.TenantID) == "":
		return domain.CalendarEvent{}, domain.NewValidationError("tenantId")
	case strings.TrimSpace(in.ExecutiveID) == "":
		return domain.CalendarEvent{}, domain.NewValidationError("executiveId")
	case strings.TrimSpace(in.Title) == "":
		return domain.CalendarEvent{}, domain.NewValidationError("title")
	case in.StartTime.IsZero():
		return domain.CalendarEvent{}, domain.NewValidationError("startTime")
	case in.EndTime.IsZero():
		return domain.CalendarEvent{}, domain.NewValidationError("endTime")
	case !in.EndTime.After(in.StartTime):
		return domain.CalendarEvent{}, domain.NewValidationError("endTime")
	}
	eventType := in.Type
	if eventType == "" {
		eventType = "meeting"
	}
	createdBy := in.CreatedBy
	if createdBy == "" {
		createdBy = in.ExecutiveID
	}
	now := s.now().UTC()
	event := domain.CalendarEvent{
		ID:          generateID("event", now),
		TenantID:    in.TenantID,
		ExecutiveID: in.ExecutiveID,
		Title:       in.Title,
		Description: in.Description,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Location:    in.Location,
		Attendees:   in.Attendees,
		Type:        eventType,
		Status:      domain.EventStatusConfirmed,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return domain.CalendarEvent{}, err
	}
	_ = s.pub.Publish(ctx, event.TenantID, "event.created", event)
	log.Infof("event created: tenant=%s id=%s executive=%s start=%s", event.TenantID, event.ID, event.ExecutiveID, event.StartTime.Format(time.RFC3339))
	return event, nil
}

// Slots computes the executive's open meeting slots on a day. Only confirmed
// events of that executive count as busy.
func (s *CalendarService) Slots(ctx context.Context, tenantID, executiveID, day string, durationMinutes int) ([]domain.TimeSlot, error) {
	if durationMinutes <= 0 {
		durationMinutes = 60
	}
	events, err := s.events.ByDay(ctx, tenantID, day)
	if err != nil {
		return nil, err
	}
	busy := make([]domain.BusyInterval, 0, len(events))
	for _, event := range events {
		if event.ExecutiveID != executiveID || event.Status != domain.EventStatusConfirmed {
			continue
		}
		busy = append(busy, domain.BusyInterval{
			Start: minuteOfDay(event.StartTime),
			End:   minuteOfDay(event.EndTime),
		})
	}
	return AvailableSlots(day, busy, durationMinutes), nil
}

// Events lists a date range inclusive, sorted ascending by start time,
// optionally filtered to one executive.
func (s *CalendarService) Events(ctx context.Context, tenantID, executiveID string, from, to time.Time) ([]domain.CalendarEvent, error) {
	if to.Before(from) {
		return nil, domain.NewValidationError("endDate")
	}
	all := []domain.CalendarEvent{}
	for day := from.UTC().Truncate(24 * time.Hour); !day.After(to.UTC()); day = day.AddDate(0, 0, 1) {
		events, err := s.events.ByDay(ctx, tenantID, domain.DayKey(day))
		if err != nil {
			return nil, err
		}
		for _, event := range events {
			if executiveID != "" && event.ExecutiveID != executiveID {
				continue
			}
			all = append(all, event)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartTime.Before(all[j].StartTime) })
	return all, nil
}

// UpdateEvent is a read-modify-write; moving startTime across a day boundary
// swaps the date index entry.
func (s *CalendarService) UpdateEvent(ctx context.Context, tenantID, eventID string, patch domain.EventPatch) (domain.CalendarEvent, error) {
	prev, err := s.events.Get(ctx, tenantID, eventID)
	if err != nil {
		return domain.CalendarEvent{}, err
	}
	next := prev
	if patch.Title != nil {
		next.Title = *patch.Title
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.StartTime != nil {
		next.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		next.EndTime = *patch.EndTime
	}
	if patch.Location != nil {
		next.Location = *patch.Location
	}
	if patch.Type != nil {
		next.Type = *patch.Type
	}
	if patch.Status != nil {
		next.Status = *patch.Status
	}
	if !next.EndTime.After(next.StartTime) {
		return domain.CalendarEvent{}, domain.NewValidationError("endTime")
	}
	next.UpdatedAt = s.now().UTC()
	if err := s.events.Replace(ctx, prev, next); err != nil {
		return domain.CalendarEvent{}, err
	}
	_ = s.pub.Publish(ctx, tenantID, "event.updated", next)
	return next, nil
}

// CancelEvent keeps the record (status=cancelled) and writes a cancellation
// note with its own retention, so the slot calculator frees the time while
// the history stays queryable.
func (s *CalendarService) CancelEvent(ctx context.Context, tenantID, eventID, reason string) (domain.CalendarEvent, error) {
	prev, err := s.events.Get(ctx, tenantID, eventID)
	if err != nil {
		return domain.CalendarEvent{}, err
	}
	next := prev
	next.Status = domain.EventStatusCancelled
	next.UpdatedAt = s.now().UTC()
	if err := s.events.Replace(ctx, prev, next); err != nil {
		return domain.CalendarEvent{}, err
	}
	if err := s.events.RecordCancellation(ctx, next, reason); err != nil {
		log.Warnf("cancellation record failed: event=%s err=%v", eventID, err)
	}
	_ = s.pub.Publish(ctx, tenantID, "event.cancelled", next)
	return next, nil
}

// DeleteEvent removes the record and every index entry that referenced it.
func (s *CalendarService) DeleteEvent(ctx context.Context, tenantID, eventID string) error {
	event, err := s.events.Get(ctx, tenantID, eventID)
	if err != nil {
		return err
	}
	if err := s.events.Delete(ctx, event); err != nil {
		return err
	}
	_ = s.pub.Publish(ctx, tenantID, "event.deleted", map[string]string{"eventId": eventID})
	return nil
}

func minuteOfDay(t time.Time) int {
	t = t.UTC()
	return t.Hour()*60 + t.Minute()
}
