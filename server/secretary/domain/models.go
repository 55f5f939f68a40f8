package domain

import "time"

type UserRole string

const (
	UserRoleExecutive UserRole = "executive"
	UserRoleEmployee  UserRole = "employee"
)

type TaskPriority string

const (
	TaskPriorityUrgent TaskPriority = "urgent"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityNormal TaskPriority = "normal"
	TaskPriorityLow    TaskPriority = "low"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityUrgent, TaskPriorityHigh, TaskPriorityNormal, TaskPriorityLow:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

type EventStatus string

const (
	EventStatusConfirmed EventStatus = "confirmed"
	EventStatusTentative EventStatus = "tentative"
	EventStatusCancelled EventStatus = "cancelled"
)

type TenantSettings struct {
	NotificationHours  HourWindow `json:"notificationHours"`
	UrgentAlwaysNotify bool       `json:"urgentAlwaysNotify"`
	Language           string     `json:"language"`
}

type HourWindow struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type Tenant struct {
	TenantID      string         `json:"tenantId"`
	CompanyName   string         `json:"companyName"`
	CreatedAt     time.Time      `json:"createdAt"`
	Plan          PlanID         `json:"plan"`
	PlanUpdatedAt *time.Time     `json:"planUpdatedAt,omitempty"`
	IsActive      bool           `json:"isActive"`
	Settings      TenantSettings `json:"settings"`
	// Set when an enterprise tenant is provisioned with its own store.
	DedicatedStoreAddr string `json:"dedicatedStoreAddr,omitempty"`
}

type User struct {
	UserID       string     `json:"userId"`
	Name         string     `json:"name"`
	Department   string     `json:"department,omitempty"`
	TenantID     string     `json:"tenantId"`
	Role         UserRole   `json:"role"`
	IsAdmin      bool       `json:"isAdmin,omitempty"`
	RegisteredAt time.Time  `json:"registeredAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// UserRef is the global userId -> tenant mapping used by the webhook to
// resolve a sender before any tenant-scoped lookup.
type UserRef struct {
	TenantID string   `json:"tenantId"`
	Role     UserRole `json:"role"`
}

type Reminder struct {
	Enabled bool     `json:"enabled"`
	Timing  []string `json:"timing"`
}

type Comment struct {
	UserID    string    `json:"userId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type Task struct {
	ID          string       `json:"id"`
	TenantID    string       `json:"tenantId"`
	AssignedTo  string       `json:"assignedTo"`
	CreatedBy   string       `json:"createdBy"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Priority    TaskPriority `json:"priority"`
	Status      TaskStatus   `json:"status"`
	Category    string       `json:"category"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	Reminder    *Reminder    `json:"reminder,omitempty"`
	Comments    []Comment    `json:"comments,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

type TaskPatch struct {
	AssignedTo  *string       `json:"assignedTo,omitempty"`
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty"`
	Status      *TaskStatus   `json:"status,omitempty"`
	Category    *string       `json:"category,omitempty"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
}

type CalendarEvent struct {
	ID          string      `json:"id"`
	TenantID    string      `json:"tenantId"`
	ExecutiveID string      `json:"executiveId"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	StartTime   time.Time   `json:"startTime"`
	EndTime     time.Time   `json:"endTime"`
	Location    string      `json:"location,omitempty"`
	Attendees   []string    `json:"attendees,omitempty"`
	Type        string      `json:"type"`
	Status      EventStatus `json:"status"`
	CreatedBy   string      `json:"createdBy"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type EventPatch struct {
	Title       *string      `json:"title,omitempty"`
	Description *string      `json:"description,omitempty"`
	StartTime   *time.Time   `json:"startTime,omitempty"`
	EndTime     *time.Time   `json:"endTime,omitempty"`
	Location    *string      `json:"location,omitempty"`
	Type        *string      `json:"type,omitempty"`
	Status      *EventStatus `json:"status,omitempty"`
}

type TimeSlot struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Duration  int    `json:"duration"`
	Available bool   `json:"available"`
}

// BusyInterval is a booked span in minutes from midnight, half-open.
type BusyInterval struct {
	Start int
	End   int
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

type MessageAnalysis struct {
	Priority       TaskPriority `json:"priority"`
	Category       string       `json:"category"`
	Summary        string       `json:"summary"`
	RequiredAction string       `json:"requiredAction"`
	Sentiment      Sentiment    `json:"sentiment"`
}

type InboundMessage struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Processed bool      `json:"processed"`
}

// FeedMessage is an inbound message joined with its analysis and sender info
// for the dashboard.
type FeedMessage struct {
	ID         string       `json:"id"`
	UserID     string       `json:"userId"`
	UserName   string       `json:"userName"`
	Department string       `json:"department"`
	Message    string       `json:"message"`
	Timestamp  time.Time    `json:"timestamp"`
	Priority   TaskPriority `json:"priority"`
	Category   string       `json:"category"`
	Summary    string       `json:"summary"`
	Sentiment  Sentiment    `json:"sentiment"`
	Processed  bool         `json:"processed"`
}

type MessageDeliveryStatus string

const (
	DeliverySent    MessageDeliveryStatus = "sent"
	DeliveryRead    MessageDeliveryStatus = "read"
	DeliveryReplied MessageDeliveryStatus = "replied"
)

// RelayedMessage tracks an executive instruction relayed to an employee.
type RelayedMessage struct {
	MessageID    string                `json:"messageId"`
	From         string                `json:"from"`
	To           string                `json:"to"`
	ToUserID     string                `json:"toUserId"`
	Content      string                `json:"content"`
	SentAt       time.Time             `json:"sentAt"`
	Status       MessageDeliveryStatus `json:"status"`
	ReadAt       *time.Time            `json:"readAt,omitempty"`
	ReplyContent string                `json:"replyContent,omitempty"`
	RepliedAt    *time.Time            `json:"repliedAt,omitempty"`
}

type ApprovalStatus string

const ApprovalPending ApprovalStatus = "pending"

type ApprovalRequest struct {
	ID               string          `json:"id"`
	TenantID         string          `json:"tenantId"`
	EmployeeID       string          `json:"employeeId"`
	EmployeeName     string          `json:"employeeName"`
	Department       string          `json:"department"`
	OriginalMessage  string          `json:"originalMessage"`
	Analysis         MessageAnalysis `json:"analysis"`
	ProposedResponse string          `json:"proposedResponse"`
	Status           ApprovalStatus  `json:"status"`
	CreatedAt        time.Time       `json:"createdAt"`
}

type UsageType string

const (
	UsageMessage UsageType = "message"
	UsageAPICall UsageType = "api_call"
)

type UsageCheck struct {
	Allowed   bool `json:"allowed"`
	Usage     int  `json:"usage"`
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
}

type UsageMonth struct {
	Month    string `json:"month"`
	Messages int    `json:"messages"`
	APICalls int    `json:"apiCalls"`
}

type Account struct {
	UserID         string    `json:"userId"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	UserType       string    `json:"userType"`
	TenantID       string    `json:"tenantId,omitempty"`
	HashedPassword string    `json:"hashedPassword"`
	CreatedAt      time.Time `json:"createdAt"`
}

type CalendarToken struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	ConnectedAt  time.Time `json:"connectedAt"`
}

type ThinkingPattern struct {
	Message   string    `json:"message"`
	Context   string    `json:"context"`
	Pattern   string    `json:"pattern"`
	Timestamp time.Time `json:"timestamp"`
}

// DayKey formats the UTC calendar day used by date-bucketed indexes.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// MonthKey formats the UTC billing month used by usage counters.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
