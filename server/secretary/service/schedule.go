package service

import (
	"fmt"

	"secretary_server/server/secretary/domain"
)

// Business hours in minutes from midnight, applied to every tenant.
const (
	businessHoursStart = 540  // 09:00
	businessHoursEnd   = 1080 // 18:00
	slotStepMinutes    = 30
)

// AvailableSlots scans candidate meeting starts at a fixed step inside
// business hours and keeps those that do not overlap any busy interval.
// Intervals are half-open: [t, t+duration) overlaps [b.Start, b.End) iff
// t < b.End && t+duration > b.Start. Busy input need not be normalized;
// overlapping or duplicate intervals cannot produce phantom slots.
func AvailableSlots(date string, busy []domain.BusyInterval, durationMinutes int) []domain.TimeSlot {
	slots := []domain.TimeSlot{}
	if durationMinutes <= 0 {
		return slots
	}
	for t := businessHoursStart; t+durationMinutes <= businessHoursEnd; t += slotStepMinutes {
		if overlapsAny(t, t+durationMinutes, busy) {
			continue
		}
		slots = append(slots, domain.TimeSlot{
			Date:      date,
			StartTime: minutesToClock(t),
			EndTime:   minutesToClock(t + durationMinutes),
			Duration:  durationMinutes,
			Available: true,
		})
	}
	return slots
}

func overlapsAny(start, end int, busy []domain.BusyInterval) bool {
	for _, b := range busy {
		if start < b.End && end > b.Start {
			return true
		}
	}
	return false
}

func minutesToClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
