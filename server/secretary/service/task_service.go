package service

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"secretary_server/server/common/log"
	"secretary_server/server/secretary/domain"
	"secretary_server/server/secretary/repository"
)

type TaskService struct {
	tasks  *repository.TaskRepository
	events EventPublisher
	now    func() time.Time
}

func NewTaskService(tasks *repository.TaskRepository, events EventPublisher) *TaskService {
	if events == nil {
		events = NopPublisher{}
	}
	return &TaskService{tasks: tasks, events: events, now: time.Now}
}

type CreateTaskInput struct {
	TenantID    string              `json:"tenantId"`
	AssignedTo  string              `json:"assignedTo"`
	CreatedBy   string              `json:"createdBy"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    domain.TaskPriority `json:"priority"`
	Category    string              `json:"category"`
	DueDate     *time.Time          `json:"dueDate"`
	Reminder    *domain.Reminder    `json:"reminder"`
}

// Create validates required fields, writes the primary record and every
// secondary index, then best-effort schedules reminders. No partial write
// happens on validation failure.
func (s *TaskService) Create(ctx context.Context, in CreateTaskInput) (domain.Task, error) {
	switch {
	case strings.TrimSpace(in.TenantID) == "":
		return domain.Task{}, domain.NewValidationError("tenantId")
	case strings.TrimSpace(in.AssignedTo) == "":
		return domain.Task{}, domain.NewValidationError("assignedTo")
	case strings.TrimSpace(in.CreatedBy) == "":
		return domain.Task{}, domain.NewValidationError("createdBy")
	case strings.TrimSpace(in.Title) == "":
		return domain.Task{}, domain.NewValidationError("title")
	}
	priority := in.Priority
	if priority == "" {
		priority = domain.TaskPriorityNormal
	}
	if !priority.Valid() {
		return domain.Task{}, domain.NewValidationError("priority")
	}
	category := in.Category
	if category == "" {
		category = "other"
	}
	now := s.now().UTC()
	task := domain.Task{
		ID:          generateID("task", now),
		TenantID:    in.TenantID,
		AssignedTo:  in.AssignedTo,
		CreatedBy:   in.CreatedBy,
		Title:       in.Title,
		Description: in.Description,
		Priority:    priority,
		Status:      domain.TaskStatusPending,
		Category:    category,
		DueDate:     in.DueDate,
		Reminder:    in.Reminder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return domain.Task{}, err
	}
	s.scheduleReminders(ctx, task)
	_ = s.events.Publish(ctx, task.TenantID, "task.created", task)
	log.Infof("task created: tenant=%s id=%s assignee=%s priority=%s", task.TenantID, task.ID, task.AssignedTo, task.Priority)
	return task, nil
}

// Reminder rows are best effort: a scheduling failure never blocks the task
// write that it is attached to.
func (s *TaskService) scheduleReminders(ctx context.Context, task domain.Task) {
	if task.Reminder == nil || !task.Reminder.Enabled || task.DueDate == nil {
		return
	}
	for _, timing := range task.Reminder.Timing {
		payload := map[string]any{
			"taskId": task.ID,
			"userId": task.AssignedTo,
			"title":  task.Title,
			"timing": timing,
		}
		if err := s.tasks.ScheduleReminder(ctx, task, timing, payload); err != nil {
			log.Warnf("reminder scheduling failed: task=%s timing=%s err=%v", task.ID, timing, err)
		}
	}
}

// Update is a read-modify-write. Changing an indexed field (assignee,
// priority, due date) swaps the stale index entries; a transition into
// completed stamps completedAt exactly once.
func (s *TaskService) Update(ctx context.Context, tenantID, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	prev, err := s.tasks.Get(ctx, tenantID, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	next := prev
	if patch.AssignedTo != nil {
		next.AssignedTo = *patch.AssignedTo
	}
	if patch.Title != nil {
		next.Title = *patch.Title
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return domain.Task{}, domain.NewValidationError("priority")
		}
		next.Priority = *patch.Priority
	}
	if patch.Category != nil {
		next.Category = *patch.Category
	}
	if patch.DueDate != nil {
		next.DueDate = patch.DueDate
	}
	if patch.Status != nil {
		next.Status = *patch.Status
		if next.Status == domain.TaskStatusCompleted && prev.CompletedAt == nil {
			completed := s.now().UTC()
			next.CompletedAt = &completed
		}
	}
	next.UpdatedAt = s.now().UTC()
	if err := s.tasks.Replace(ctx, prev, next); err != nil {
		return domain.Task{}, err
	}
	_ = s.events.Publish(ctx, tenantID, "task.updated", next)
	return next, nil
}

func (s *TaskService) AddComment(ctx context.Context, tenantID, taskID, userID, text string) (domain.Task, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Task{}, domain.NewValidationError("comment")
	}
	prev, err := s.tasks.Get(ctx, tenantID, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	next := prev
	next.Comments = append(append([]domain.Comment{}, prev.Comments...), domain.Comment{
		UserID:    userID,
		Text:      text,
		Timestamp: s.now().UTC(),
	})
	next.UpdatedAt = s.now().UTC()
	if err := s.tasks.Replace(ctx, prev, next); err != nil {
		return domain.Task{}, err
	}
	return next, nil
}

type TaskSummary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
}

// UserTasks lists a user's tasks sorted ascending by due date with undated
// tasks last, optionally filtered by status and priority.
func (s *TaskService) UserTasks(ctx context.Context, tenantID, userID string, status domain.TaskStatus, priority domain.TaskPriority) ([]domain.Task, TaskSummary, error) {
	tasks, err := s.tasks.ByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, TaskSummary{}, err
	}
	summary := TaskSummary{Total: len(tasks)}
	for _, task := range tasks {
		switch task.Status {
		case domain.TaskStatusPending:
			summary.Pending++
		case domain.TaskStatusInProgress:
			summary.InProgress++
		case domain.TaskStatusCompleted:
			summary.Completed++
		case domain.TaskStatusCancelled:
			summary.Cancelled++
		}
	}
	filtered := tasks[:0]
	for _, task := range tasks {
		if status != "" && task.Status != status {
			continue
		}
		if priority != "" && task.Priority != priority {
			continue
		}
		filtered = append(filtered, task)
	}
	sortTasksByDueDate(filtered)
	return filtered, summary, nil
}

// DueTasks lists open tasks due on the given day.
func (s *TaskService) DueTasks(ctx context.Context, tenantID string, day string) ([]domain.Task, error) {
	tasks, err := s.tasks.ByDueDay(ctx, tenantID, day)
	if err != nil {
		return nil, err
	}
	open := tasks[:0]
	for _, task := range tasks {
		if task.Status == domain.TaskStatusCompleted || task.Status == domain.TaskStatusCancelled {
			continue
		}
		open = append(open, task)
	}
	sortTasksByDueDate(open)
	return open, nil
}

// OverdueTasks scans the trailing week of due-date buckets for tasks still
// open past their due date.
func (s *TaskService) OverdueTasks(ctx context.Context, tenantID string) ([]domain.Task, error) {
	now := s.now().UTC()
	overdue := []domain.Task{}
	for i := 1; i <= 7; i++ {
		day := domain.DayKey(now.AddDate(0, 0, -i))
		tasks, err := s.tasks.ByDueDay(ctx, tenantID, day)
		if err != nil {
			return nil, err
		}
		for _, task := range tasks {
			if task.Status == domain.TaskStatusCompleted || task.Status == domain.TaskStatusCancelled {
				continue
			}
			overdue = append(overdue, task)
		}
	}
	sortTasksByDueDate(overdue)
	return overdue, nil
}

// Delete removes the primary record and reverses every index insertion.
func (s *TaskService) Delete(ctx context.Context, tenantID, taskID string) error {
	task, err := s.tasks.Get(ctx, tenantID, taskID)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, task); err != nil {
		return err
	}
	_ = s.events.Publish(ctx, tenantID, "task.deleted", map[string]string{"taskId": taskID})
	return nil
}

func sortTasksByDueDate(tasks []domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].DueDate, tasks[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

// generateID builds "{kind}_{unixMilli}_{suffix}". Uniqueness is
// probabilistic, acceptable at this write volume.
func generateID(kind string, now time.Time) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return fmt.Sprintf("%s_%d_%s", kind, now.UnixMilli(), string(suffix))
}
