package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secretary_server/server/secretary/domain"
)

func TestAnalyzeExecutiveMessage(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	assistant := env.newAssistant(nil)

	env.classifier.responses[intentPrompt] = `{"intent":"task_creation","confidence":0.92,"extractedData":{"employeeName":"John","title":"Prepare the demo","dueDate":"2025-06-13"},"suggestedAction":"Create a task for John."}`
	analysis := assistant.AnalyzeExecutiveMessage(ctx, "have John prepare the demo by Friday")
	assert.Equal(t, "task_creation", analysis.Intent)
	assert.Equal(t, "John", analysis.ExtractedData["employeeName"])
	assert.InDelta(t, 0.92, analysis.Confidence, 0.001)

	// Unknown intents collapse to other.
	env.classifier.responses[intentPrompt] = `{"intent":"world_domination","confidence":0.5}`
	analysis = assistant.AnalyzeExecutiveMessage(ctx, "whatever")
	assert.Equal(t, "other", analysis.Intent)

	env.classifier.fail = true
	analysis = assistant.AnalyzeExecutiveMessage(ctx, "whatever")
	assert.Equal(t, "other", analysis.Intent)
	assert.NotEmpty(t, analysis.SuggestedAction)
}

func TestConfirmActionDeclined(t *testing.T) {
	env := newTestEnv()
	assistant := env.newAssistant(nil)

	result, err := assistant.ConfirmAction(context.Background(), ConfirmActionInput{
		Confirmed: false,
		Intent:    "task_creation",
		Data:      map[string]string{"title": "should never exist"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Cancelled. Nothing was done.", result)
}

func TestConfirmTaskCreationForEmployee(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	assistant := env.newAssistant(nil)
	tenantID := seedWorkspace(t, env, assistant)

	result, err := assistant.ConfirmAction(ctx, ConfirmActionInput{
		TenantID:    tenantID,
		ExecutiveID: "exec-1",
		Confirmed:   true,
		Intent:      "task_creation",
		Data:        map[string]string{"employeeName": "John", "title": "Prepare the demo", "dueDate": "2025-06-13"},
	})
	require.NoError(t, err)
	assert.Equal(t, `Created the task "Prepare the demo" for John Smith.`, result)

	tasks, _, err := env.tasks.UserTasks(ctx, tenantID, "user-1", "", "")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "assignment", tasks[0].Category)
	require.NotNil(t, tasks[0].DueDate)
	assert.Equal(t, "2025-06-13", domain.DayKey(*tasks[0].DueDate))

	require.Len(t, env.notifier.pushes, 1)
	assert.Equal(t, "user-1", env.notifier.pushes[0].To)
	assert.Contains(t, env.notifier.pushes[0].Text, "Prepare the demo")
	assert.Contains(t, env.notifier.pushes[0].Text, "due 2025-06-13")
}

func TestConfirmTaskCreationSelfAssignWithoutName(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	assistant := env.newAssistant(nil)
	tenantID := seedWorkspace(t, env, assistant)

	result, err := assistant.ConfirmAction(ctx, ConfirmActionInput{
		TenantID:    tenantID,
		ExecutiveID: "exec-1",
		Confirmed:   true,
		Intent:      "task_creation",
		Data:        map[string]string{"instruction": "Review quarterly budget"},
	})
	require.NoError(t, err)
	assert.Equal(t, `Created the task "Review quarterly budget" for you.`, result)

	tasks, _, err := env.tasks.UserTasks(ctx, tenantID, "exec-1", "", "")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Empty(t, env.notifier.pushes, "self-assigned tasks are not pushed")
}

func TestConfirmTaskCreationUnknownEmployee(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	assistant := env.newAssistant(nil)
	tenantID := seedWorkspace(t, env, assistant)

	result, err := assistant.ConfirmAction(ctx, ConfirmActionInput{
		TenantID:    tenantID,
		ExecutiveID: "exec-1",
		Confirmed:   true,
		Intent:      "task_creation",
		Data:        map[string]string{"employeeName": "Nobody", "title": "Lost task"},
	})
	require.NoError(t, err)
	assert.Contains(t, result, `"Nobody"`)

	tasks, _, err := env.tasks.UserTasks(ctx, tenantID, "exec-1", "", "")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestConfirmEmployeeInstruction(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	assistant := env.newAssistant(nil)
	tenantID := seedWorkspace(t, env, assistant)
	env.classifier.fail = true

	result, err := assistant.ConfirmAction(ctx, ConfirmActionInput{
		TenantID:    tenantID,
		ExecutiveID: "exec-1",
		Confirmed:   true,
		Intent:      "employee_instruction",
		Data:        map[string]string{"employeeName": "John", "instruction": "send the contract today"},
	})
	require.NoError(t, err)
	assert.Contains(t, result, "Done. I sent this to John Smith")
	require.Len(t, env.notifier.pushes, 1)
	assert.Equal(t, "user-1", env.notifier.pushes[0].To)

	_, err = assistant.ConfirmAction(ctx, ConfirmActionInput{
		TenantID: tenantID, ExecutiveID: "exec-1", Confirmed: true,
		Intent: "employee_instruction", Data: map[string]string{"instruction": "no target"},
	})
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "employeeName", validation.Field)

	_, err = assistant.ConfirmAction(ctx, ConfirmActionInput{
		TenantID: tenantID, ExecutiveID: "exec-1", Confirmed: true,
		Intent: "dance", Data: map[string]string{},
	})
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "intent", validation.Field)
}

func TestProcessEmployeeReportEscalates(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	assistant := env.newAssistant(nil)
	tenantID := seedWorkspace(t, env, assistant)
	env.classifier.responses[analysisPrompt] = urgentAnalysisJSON

	analysis, err := assistant.ProcessEmployeeReport(ctx, tenantID, "user-1", "the server room is flooding")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskPriorityUrgent, analysis.Priority)

	// Escalation pushes to the executive, but nothing is replied.
	require.Len(t, env.notifier.pushes, 1)
	assert.Equal(t, "exec-1", env.notifier.pushes[0].To)
	assert.Empty(t, env.notifier.replies)

	inbound, err := env.msgRepo.RecentInbound(ctx, tenantID, 10)
	require.NoError(t, err)
	require.Len(t, inbound, 1)

	_, err = assistant.ProcessEmployeeReport(ctx, tenantID, "user-1", "   ")
	var validation *domain.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestScheduleTaskIntegration(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	assistant := env.newAssistant(nil)
	tenantID := seedWorkspace(t, env, assistant)

	mkEvent := func(title, eventType string, start time.Time) domain.CalendarEvent {
		event, err := env.calendar.CreateEvent(ctx, CreateEventInput{
			TenantID:    tenantID,
			ExecutiveID: "exec-1",
			Title:       title,
			Type:        eventType,
			StartTime:   start,
			EndTime:     start.Add(time.Hour),
		})
		require.NoError(t, err)
		return event
	}

	// fixedNow is 2025-06-10 09:00 UTC.
	mkEvent("Board meeting", "meeting", time.Date(2025, 6, 13, 10, 0, 0, 0, time.UTC))
	mkEvent("Investor pitch", "presentation", time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC))
	mkEvent("Team lunch", "social", time.Date(2025, 6, 12, 12, 0, 0, 0, time.UTC))
	cancelled := mkEvent("Old sync", "meeting", time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC))
	_, err := env.calendar.CancelEvent(ctx, tenantID, cancelled.ID, "moved")
	require.NoError(t, err)
	mkEvent("Far offsite", "meeting", time.Date(2025, 6, 25, 10, 0, 0, 0, time.UTC))

	created, err := assistant.ScheduleTaskIntegration(ctx, tenantID, "exec-1")
	require.NoError(t, err)
	require.Len(t, created, 2)

	byTitle := map[string]domain.Task{}
	for _, task := range created {
		byTitle[task.Title] = task
		assert.Equal(t, domain.TaskPriorityHigh, task.Priority)
		assert.Equal(t, "preparation", task.Category)
		assert.Equal(t, "exec-1", task.AssignedTo)
	}

	prep := byTitle["Prepare for Board meeting"]
	require.NotNil(t, prep.DueDate)
	assert.Equal(t, "2025-06-12", domain.DayKey(*prep.DueDate))

	// Tomorrow's event clamps the due date to now instead of the past.
	pitch := byTitle["Prepare for Investor pitch"]
	require.NotNil(t, pitch.DueDate)
	assert.Equal(t, "2025-06-10", domain.DayKey(*pitch.DueDate))
}
