package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"secretary_server/server/common/log"
	"secretary_server/server/secretary/domain"
)

// IntentAnalysis is the classifier's read of an executive instruction typed
// into the dashboard.
type IntentAnalysis struct {
	Intent          string            `json:"intent"`
	Confidence      float64           `json:"confidence"`
	ExtractedData   map[string]string `json:"extractedData"`
	SuggestedAction string            `json:"suggestedAction"`
}

const intentPrompt = `You analyze an instruction from an executive to their AI secretary. Respond with JSON only:
{"intent":"task_creation|employee_instruction|schedule_query|other","confidence":0.0,"extractedData":{"employeeName":"","title":"","instruction":"","dueDate":"YYYY-MM-DD"},"suggestedAction":"<one sentence describing what you would do>"}
Omit extractedData keys that do not apply.`

// AnalyzeExecutiveMessage classifies a dashboard instruction into an intent
// the executive can confirm before anything is executed.
func (s *AssistantService) AnalyzeExecutiveMessage(ctx context.Context, message string) IntentAnalysis {
	var analysis IntentAnalysis
	if err := s.classifier.ClassifyInto(ctx, intentPrompt, message, &analysis); err != nil {
		log.Warnf("intent classification failed: err=%v", err)
		return IntentAnalysis{Intent: "other", SuggestedAction: "I was not sure what you meant. Could you rephrase?"}
	}
	switch analysis.Intent {
	case "task_creation", "employee_instruction", "schedule_query":
	default:
		analysis.Intent = "other"
	}
	return analysis
}

type ConfirmActionInput struct {
	TenantID    string            `json:"tenantId"`
	ExecutiveID string            `json:"executiveId"`
	Confirmed   bool              `json:"confirmed"`
	Intent      string            `json:"intent"`
	Data        map[string]string `json:"data"`
}

// ConfirmAction executes a previously analyzed intent once the executive
// confirms it. A declined confirmation executes nothing.
func (s *AssistantService) ConfirmAction(ctx context.Context, in ConfirmActionInput) (string, error) {
	if !in.Confirmed {
		return "Cancelled. Nothing was done.", nil
	}
	switch in.Intent {
	case "task_creation":
		return s.confirmTaskCreation(ctx, in)
	case "employee_instruction":
		return s.confirmEmployeeInstruction(ctx, in)
	default:
		return "", domain.NewValidationError("intent")
	}
}

func (s *AssistantService) confirmTaskCreation(ctx context.Context, in ConfirmActionInput) (string, error) {
	title := in.Data["title"]
	if title == "" {
		title = in.Data["instruction"]
	}
	if strings.TrimSpace(title) == "" {
		return "", domain.NewValidationError("title")
	}
	assigneeID := in.ExecutiveID
	assigneeName := "you"
	if name := in.Data["employeeName"]; name != "" {
		employee, err := s.commands.FindEmployee(ctx, in.TenantID, name)
		if err != nil {
			return fmt.Sprintf("I could not find an employee named %q, so no task was created.", name), nil
		}
		assigneeID = employee.UserID
		assigneeName = employee.Name
	}
	var dueDate *time.Time
	if raw := in.Data["dueDate"]; raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			due := parsed.UTC()
			dueDate = &due
		}
	}
	task, err := s.tasks.Create(ctx, CreateTaskInput{
		TenantID:   in.TenantID,
		AssignedTo: assigneeID,
		CreatedBy:  in.ExecutiveID,
		Title:      title,
		Priority:   domain.TaskPriorityNormal,
		Category:   "assignment",
		DueDate:    dueDate,
	})
	if err != nil {
		return "", err
	}
	if assigneeID != in.ExecutiveID {
		note := fmt.Sprintf("New task from your executive: %s", task.Title)
		if task.DueDate != nil {
			note += " (due " + domain.DayKey(*task.DueDate) + ")"
		}
		if err := s.notifier.Push(ctx, assigneeID, note); err != nil {
			log.Warnf("task notification failed: to=%s err=%v", assigneeID, err)
		}
	}
	return fmt.Sprintf("Created the task %q for %s.", task.Title, assigneeName), nil
}

func (s *AssistantService) confirmEmployeeInstruction(ctx context.Context, in ConfirmActionInput) (string, error) {
	name := in.Data["employeeName"]
	instruction := in.Data["instruction"]
	if strings.TrimSpace(name) == "" {
		return "", domain.NewValidationError("employeeName")
	}
	if strings.TrimSpace(instruction) == "" {
		return "", domain.NewValidationError("instruction")
	}
	executive, err := s.users.Get(ctx, in.TenantID, in.ExecutiveID)
	if err != nil {
		executive = domain.User{UserID: in.ExecutiveID, Name: "your executive"}
	}
	_, confirmation, err := s.commands.Relay(ctx, in.TenantID, executive, RelayCommand{
		TargetName:  name,
		Instruction: instruction,
	})
	if err != nil && confirmation == "" {
		return "", err
	}
	return confirmation, nil
}

// ProcessEmployeeReport is the dashboard-side twin of the employee webhook
// flow: classify, persist, escalate, but reply nothing.
func (s *AssistantService) ProcessEmployeeReport(ctx context.Context, tenantID, employeeID, message string) (domain.MessageAnalysis, error) {
	if strings.TrimSpace(message) == "" {
		return domain.MessageAnalysis{}, domain.NewValidationError("message")
	}
	analysis := s.analyze(ctx, message)
	now := s.now().UTC()
	msg := domain.InboundMessage{
		ID:        generateID("msg", now),
		TenantID:  tenantID,
		UserID:    employeeID,
		Message:   message,
		Timestamp: now,
		Processed: true,
	}
	if err := s.messages.AppendInbound(ctx, msg); err != nil {
		return domain.MessageAnalysis{}, err
	}
	if err := s.messages.PutAnalysis(ctx, msg.ID, analysis); err != nil {
		log.Warnf("analysis write failed: message=%s err=%v", msg.ID, err)
	}
	if analysis.Priority == domain.TaskPriorityUrgent || analysis.Priority == domain.TaskPriorityHigh {
		s.escalate(ctx, tenantID, employeeID, msg, analysis)
	}
	s.broadcastFeed(ctx, tenantID, msg, analysis)
	return analysis, nil
}

var preparationEventTypes = map[string]struct{}{
	"meeting":      {},
	"presentation": {},
	"interview":    {},
}

// ScheduleTaskIntegration walks the executive's next week of confirmed
// events and creates a preparation task due the day before each one that
// warrants prep work.
func (s *AssistantService) ScheduleTaskIntegration(ctx context.Context, tenantID, executiveID string) ([]domain.Task, error) {
	now := s.now().UTC()
	events, err := s.calendar.Events(ctx, tenantID, executiveID, now, now.AddDate(0, 0, 7))
	if err != nil {
		return nil, err
	}
	created := []domain.Task{}
	for _, event := range events {
		if event.Status != domain.EventStatusConfirmed {
			continue
		}
		if _, ok := preparationEventTypes[strings.ToLower(event.Type)]; !ok {
			continue
		}
		due := event.StartTime.UTC().AddDate(0, 0, -1)
		if due.Before(now) {
			due = now
		}
		task, err := s.tasks.Create(ctx, CreateTaskInput{
			TenantID:    tenantID,
			AssignedTo:  executiveID,
			CreatedBy:   executiveID,
			Title:       fmt.Sprintf("Prepare for %s", event.Title),
			Description: fmt.Sprintf("Preparation for the %s on %s.", event.Type, domain.DayKey(event.StartTime)),
			Priority:    domain.TaskPriorityHigh,
			Category:    "preparation",
			DueDate:     &due,
		})
		if err != nil {
			return created, err
		}
		created = append(created, task)
	}
	return created, nil
}
