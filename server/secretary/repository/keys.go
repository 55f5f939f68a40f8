package repository

import "fmt"

// Key layout is the tenant-prefixed convention the whole system relies on for
// isolation: every tenant-scoped key starts with "tenant:{tenantId}:", so no
// two tenants can collide for fixed separators. Secondary indexes are sets of
// entity IDs keyed by (tenant, dimension, value).

func tenantInfoKey(tenantID string) string {
	return fmt.Sprintf("tenant:%s:info", tenantID)
}

func allTenantsKey() string {
	return "all_tenants"
}

func tenantUsersKey(tenantID string) string {
	return fmt.Sprintf("tenant:%s:users", tenantID)
}

func tenantExecutivesKey(tenantID string) string {
	return fmt.Sprintf("tenant:%s:executives", tenantID)
}

func tenantEmployeesKey(tenantID string) string {
	return fmt.Sprintf("tenant:%s:employees", tenantID)
}

func tenantUserKey(tenantID, userID string) string {
	return fmt.Sprintf("tenant:%s:user:%s", tenantID, userID)
}

func globalUserKey(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

func taskKey(tenantID, taskID string) string {
	return fmt.Sprintf("tenant:%s:task:%s", tenantID, taskID)
}

func userTasksKey(tenantID, userID string) string {
	return fmt.Sprintf("tenant:%s:user:%s:tasks", tenantID, userID)
}

func tasksByPriorityKey(tenantID, priority string) string {
	return fmt.Sprintf("tenant:%s:tasks:priority:%s", tenantID, priority)
}

func tasksByDueKey(tenantID, day string) string {
	return fmt.Sprintf("tenant:%s:tasks:due:%s", tenantID, day)
}

func reminderKey(tenantID, timing, taskID string) string {
	return fmt.Sprintf("tenant:%s:reminder:%s:%s", tenantID, timing, taskID)
}

func eventKey(tenantID, eventID string) string {
	return fmt.Sprintf("tenant:%s:calendar:event:%s", tenantID, eventID)
}

func eventsByDateKey(tenantID, day string) string {
	return fmt.Sprintf("tenant:%s:calendar:date:%s", tenantID, day)
}

func executiveEventsKey(tenantID, executiveID string) string {
	return fmt.Sprintf("tenant:%s:executive:%s:events", tenantID, executiveID)
}

func eventCancellationKey(tenantID, eventID string) string {
	return fmt.Sprintf("tenant:%s:calendar:event:%s:cancellation", tenantID, eventID)
}

func usageKey(tenantID, month string, usageType string) string {
	return fmt.Sprintf("tenant:%s:usage:%s:%s", tenantID, month, usageType)
}

func planHistoryKey(tenantID string) string {
	return fmt.Sprintf("tenant:%s:plan_history", tenantID)
}

func feedKey(tenantID string) string {
	return fmt.Sprintf("tenant:%s:messages", tenantID)
}

func analysisKey(messageID string) string {
	return fmt.Sprintf("analysis:%s", messageID)
}

func relayedMessageKey(tenantID, messageID string) string {
	return fmt.Sprintf("tenant:%s:message:%s", tenantID, messageID)
}

func relayedMessagePattern(tenantID string) string {
	return fmt.Sprintf("tenant:%s:message:*", tenantID)
}

func approvalKey(approvalID string) string {
	return fmt.Sprintf("approval:%s", approvalID)
}

func thinkingKey(tenantID, executiveID string) string {
	return fmt.Sprintf("tenant:%s:executive:%s:thinking", tenantID, executiveID)
}

func calendarTokenKey(tenantID, executiveID string) string {
	return fmt.Sprintf("tenant:%s:executive:%s:calendar_token", tenantID, executiveID)
}

func accountKey(userType, email string) string {
	return fmt.Sprintf("%s:%s", userType, email)
}
