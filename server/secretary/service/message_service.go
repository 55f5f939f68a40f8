package service

import (
	"context"
	"time"

	"secretary_server/server/common/log"
	"secretary_server/server/secretary/domain"
	"secretary_server/server/secretary/repository"
)

// MessageService serves the dashboard feed: inbound messages joined with
// their analyses and sender records.
type MessageService struct {
	messages *repository.MessageRepository
	users    *repository.UserRepository
	tasks    *repository.TaskRepository
	events   *repository.EventRepository
	usage    *UsageService
	now      func() time.Time
}

func NewMessageService(messages *repository.MessageRepository, users *repository.UserRepository, tasks *repository.TaskRepository, events *repository.EventRepository, usage *UsageService) *MessageService {
	return &MessageService{messages: messages, users: users, tasks: tasks, events: events, usage: usage, now: time.Now}
}

// Feed returns the latest inbound messages enriched with analysis and sender
// info. An expired analysis degrades to the message's raw text; an unknown
// sender degrades to the bare user ID.
func (s *MessageService) Feed(ctx context.Context, tenantID string, limit int) ([]domain.FeedMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	inbound, err := s.messages.RecentInbound(ctx, tenantID, limit)
	if err != nil {
		return nil, err
	}
	feed := make([]domain.FeedMessage, 0, len(inbound))
	for _, msg := range inbound {
		entry := domain.FeedMessage{
			ID:        msg.ID,
			UserID:    msg.UserID,
			UserName:  msg.UserID,
			Message:   msg.Message,
			Timestamp: msg.Timestamp,
			Priority:  domain.TaskPriorityNormal,
			Category:  "report",
			Summary:   msg.Message,
			Sentiment: domain.SentimentNeutral,
			Processed: msg.Processed,
		}
		if user, err := s.users.Get(ctx, tenantID, msg.UserID); err == nil {
			entry.UserName = user.Name
			entry.Department = user.Department
		}
		analysis, found, err := s.messages.GetAnalysis(ctx, msg.ID)
		if err != nil {
			log.Warnf("analysis read failed: message=%s err=%v", msg.ID, err)
		} else if found {
			entry.Priority = analysis.Priority
			entry.Category = analysis.Category
			entry.Summary = analysis.Summary
			entry.Sentiment = analysis.Sentiment
		}
		feed = append(feed, entry)
	}
	return feed, nil
}

type DashboardStats struct {
	TodayEvents int                  `json:"todayEvents"`
	UrgentTasks int                  `json:"urgentTasks"`
	HighTasks   int                  `json:"highTasks"`
	Executives  int                  `json:"executives"`
	Employees   int                  `json:"employees"`
	Usage       domain.UsageCheck    `json:"usage"`
	RecentFeed  []domain.FeedMessage `json:"recentMessages"`
}

// Dashboard aggregates the landing view's counters. Reads degrade to zero
// values rather than failing the whole page.
func (s *MessageService) Dashboard(ctx context.Context, tenantID string) (DashboardStats, error) {
	stats := DashboardStats{}
	today := domain.DayKey(s.now())
	if count, err := s.events.CountByDay(ctx, tenantID, today); err == nil {
		stats.TodayEvents = count
	}
	if count, err := s.tasks.CountByPriority(ctx, tenantID, string(domain.TaskPriorityUrgent)); err == nil {
		stats.UrgentTasks = count
	}
	if count, err := s.tasks.CountByPriority(ctx, tenantID, string(domain.TaskPriorityHigh)); err == nil {
		stats.HighTasks = count
	}
	if executives, err := s.users.Executives(ctx, tenantID); err == nil {
		stats.Executives = len(executives)
	}
	if employees, err := s.users.Employees(ctx, tenantID); err == nil {
		stats.Employees = len(employees)
	}
	stats.Usage = s.usage.Gate(ctx, tenantID)
	if feed, err := s.Feed(ctx, tenantID, 5); err == nil {
		stats.RecentFeed = feed
	}
	return stats, nil
}
