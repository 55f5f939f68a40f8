package repository

import "time"

const (
	taskTTL         = 180 * 24 * time.Hour
	eventTTL        = 90 * 24 * time.Hour
	cancellationTTL = 30 * 24 * time.Hour
	relayedTTL      = 30 * 24 * time.Hour
	analysisTTL     = 24 * time.Hour
	approvalTTL     = 3 * 24 * time.Hour
	reminderTTL     = 7 * 24 * time.Hour
	// Usage counters outlive the month they bill so history queries still see
	// the previous month. Decoupled from billing boundaries on purpose.
	usageTTL         = 60 * 24 * time.Hour
	calendarTokenTTL = 30 * 24 * time.Hour
)
