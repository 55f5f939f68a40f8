package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"secretary_server/server/common/log"
	"secretary_server/server/secretary/domain"
	"secretary_server/server/secretary/repository"
)

// Inbound webhook payload, shaped like the chat provider's event envelope.
type WebhookPayload struct {
	Events []WebhookEvent `json:"events"`
}

type WebhookEvent struct {
	Type       string `json:"type"`
	ReplyToken string `json:"replyToken"`
	Source     struct {
		UserID string `json:"userId"`
	} `json:"source"`
	Message struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
}

const fallbackReply = "Sorry, I could not process that message right now. Please try again in a moment."

// AssistantService is the webhook orchestrator: it resolves the sender's
// role and routes the message through registration, the employee report
// flow, or the executive command flow.
type AssistantService struct {
	tenants    *TenantService
	tasks      *TaskService
	calendar   *CalendarService
	usage      *UsageService
	commands   *CommandService
	users      *repository.UserRepository
	messages   *repository.MessageRepository
	classifier Classifier
	notifier   Notifier
	hub        *Hub
	pub        EventPublisher
	now        func() time.Time
}

func NewAssistantService(
	tenants *TenantService,
	tasks *TaskService,
	calendar *CalendarService,
	usage *UsageService,
	commands *CommandService,
	users *repository.UserRepository,
	messages *repository.MessageRepository,
	classifier Classifier,
	notifier Notifier,
	hub *Hub,
	pub EventPublisher,
) *AssistantService {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &AssistantService{
		tenants:    tenants,
		tasks:      tasks,
		calendar:   calendar,
		usage:      usage,
		commands:   commands,
		users:      users,
		messages:   messages,
		classifier: classifier,
		notifier:   notifier,
		hub:        hub,
		pub:        pub,
		now:        time.Now,
	}
}

// HandleWebhook processes every text event in the delivery. Event failures
// are logged per event; the webhook as a whole always succeeds so the
// provider does not retry.
func (s *AssistantService) HandleWebhook(ctx context.Context, payload WebhookPayload) {
	for _, event := range payload.Events {
		if event.Type != "message" || event.Message.Type != "text" {
			continue
		}
		if err := s.handleTextEvent(ctx, event); err != nil {
			log.Errorf("webhook event failed: sender=%s err=%v", event.Source.UserID, err)
			s.reply(ctx, event.ReplyToken, fallbackReply)
		}
	}
}

func (s *AssistantService) handleTextEvent(ctx context.Context, event WebhookEvent) error {
	senderID := event.Source.UserID
	text := strings.TrimSpace(event.Message.Text)
	if senderID == "" || text == "" {
		return nil
	}
	ref, err := s.users.Resolve(ctx, senderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.handleUnknown(ctx, event, senderID, text)
		}
		return err
	}
	if ref.Role == domain.UserRoleExecutive {
		return s.handleExecutive(ctx, event, ref.TenantID, senderID, text)
	}
	return s.handleEmployee(ctx, event, ref.TenantID, senderID, text)
}

// Registration line: "<name>, <company>, <role>".
var registrationPattern = regexp.MustCompile(`^\s*([^,]+?)\s*,\s*([^,]+?)\s*,\s*([^,]+?)\s*$`)

var executiveTitles = []string{"ceo", "president", "executive", "director", "founder", "owner"}

func isExecutiveTitle(role string) bool {
	role = strings.ToLower(role)
	for _, title := range executiveTitles {
		if strings.Contains(role, title) {
			return true
		}
	}
	return false
}

// handleUnknown runs the free-text registration flow. Executive titles
// provision a new tenant; employee titles join an existing tenant matched by
// company name.
func (s *AssistantService) handleUnknown(ctx context.Context, event WebhookEvent, senderID, text string) error {
	m := registrationPattern.FindStringSubmatch(text)
	if m == nil {
		s.reply(ctx, event.ReplyToken,
			"Welcome! To get started, please register with: your name, company name, your role\nExample: Jane Doe, Acme Inc, CEO")
		return nil
	}
	name, company, role := m[1], m[2], m[3]
	if isExecutiveTitle(role) {
		tenant, _, err := s.tenants.CreateTenant(ctx, company, senderID, name)
		if err != nil {
			return err
		}
		s.reply(ctx, event.ReplyToken, fmt.Sprintf(
			"Welcome %s! I set up %s on the free plan and registered you as an executive. Your team can now register with the same company name.", name, tenant.CompanyName))
		return nil
	}
	tenant, err := s.findTenantByCompany(ctx, company)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.reply(ctx, event.ReplyToken, fmt.Sprintf(
				"I could not find a company named %q. Ask an executive to register it first.", company))
			return nil
		}
		return err
	}
	user, err := s.tenants.AddUser(ctx, AddUserInput{
		TenantID: tenant.TenantID,
		UserID:   senderID,
		Name:     name,
		Role:     domain.UserRoleEmployee,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmployeeLimitReached) {
			s.reply(ctx, event.ReplyToken, fmt.Sprintf(
				"%s has reached its employee limit on the current plan. Ask an executive to upgrade.", tenant.CompanyName))
			return nil
		}
		return err
	}
	s.reply(ctx, event.ReplyToken, fmt.Sprintf(
		"Welcome %s! You are registered as an employee of %s. Send me your reports any time.", user.Name, tenant.CompanyName))
	return nil
}

func (s *AssistantService) findTenantByCompany(ctx context.Context, company string) (domain.Tenant, error) {
	tenants, err := s.tenants.ListTenants(ctx)
	if err != nil {
		return domain.Tenant{}, err
	}
	needle := strings.ToLower(strings.TrimSpace(company))
	for _, tenant := range tenants {
		if strings.ToLower(strings.TrimSpace(tenant.CompanyName)) == needle {
			return tenant, nil
		}
	}
	return domain.Tenant{}, repository.ErrNotFound
}

const analysisPrompt = `You are an AI secretary. Analyze the employee message and respond with JSON only:
{"priority":"urgent|high|normal|low","category":"report|question|request|issue|schedule|other","summary":"<one sentence>","requiredAction":"<action for the executive, or empty>","sentiment":"positive|neutral|negative"}`

// defaultAnalysis is the documented substitute when the classifier fails or
// returns malformed JSON: normal-priority report, summary truncated to 100
// characters, neutral sentiment.
func defaultAnalysis(text string) domain.MessageAnalysis {
	summary := text
	if r := []rune(summary); len(r) > 100 {
		summary = string(r[:100])
	}
	return domain.MessageAnalysis{
		Priority:  domain.TaskPriorityNormal,
		Category:  "report",
		Summary:   summary,
		Sentiment: domain.SentimentNeutral,
	}
}

func (s *AssistantService) analyze(ctx context.Context, text string) domain.MessageAnalysis {
	var analysis domain.MessageAnalysis
	if err := s.classifier.ClassifyInto(ctx, analysisPrompt, text, &analysis); err != nil {
		log.Warnf("classification failed, using default analysis: err=%v", err)
		return defaultAnalysis(text)
	}
	if !analysis.Priority.Valid() {
		analysis.Priority = domain.TaskPriorityNormal
	}
	if analysis.Category == "" {
		analysis.Category = "report"
	}
	if analysis.Summary == "" {
		analysis.Summary = defaultAnalysis(text).Summary
	}
	switch analysis.Sentiment {
	case domain.SentimentPositive, domain.SentimentNeutral, domain.SentimentNegative:
	default:
		analysis.Sentiment = domain.SentimentNeutral
	}
	return analysis
}

// handleEmployee runs the report flow: usage gate, classification, persist,
// acknowledge, escalate to executives when the report is high or urgent.
func (s *AssistantService) handleEmployee(ctx context.Context, event WebhookEvent, tenantID, senderID, text string) error {
	check := s.usage.Gate(ctx, tenantID)
	if !check.Allowed {
		s.reply(ctx, event.ReplyToken,
			"Your company has reached this month's message limit. Ask an executive to upgrade the plan.")
		return nil
	}
	if err := s.usage.Record(ctx, tenantID, domain.UsageMessage); err != nil {
		log.Warnf("usage record failed: tenant=%s err=%v", tenantID, err)
	}

	analysis := s.analyze(ctx, text)
	now := s.now().UTC()
	msg := domain.InboundMessage{
		ID:        generateID("msg", now),
		TenantID:  tenantID,
		UserID:    senderID,
		Message:   text,
		Timestamp: now,
		Processed: true,
	}
	if err := s.messages.AppendInbound(ctx, msg); err != nil {
		return err
	}
	if err := s.messages.PutAnalysis(ctx, msg.ID, analysis); err != nil {
		log.Warnf("analysis write failed: message=%s err=%v", msg.ID, err)
	}

	s.reply(ctx, event.ReplyToken, s.acknowledgement(ctx, text, analysis))

	if analysis.Priority == domain.TaskPriorityUrgent || analysis.Priority == domain.TaskPriorityHigh {
		s.escalate(ctx, tenantID, senderID, msg, analysis)
	}

	s.broadcastFeed(ctx, tenantID, msg, analysis)
	_ = s.pub.Publish(ctx, tenantID, "message.analyzed", map[string]any{
		"messageId": msg.ID,
		"userId":    senderID,
		"priority":  analysis.Priority,
		"category":  analysis.Category,
	})
	return nil
}

const acknowledgementPrompt = `You are a friendly AI secretary. Write a one or two sentence acknowledgement to the employee's message below. Reply with the acknowledgement only.`

func (s *AssistantService) acknowledgement(ctx context.Context, text string, analysis domain.MessageAnalysis) string {
	reply, err := s.classifier.Classify(ctx, acknowledgementPrompt, text)
	if err != nil || strings.TrimSpace(reply) == "" {
		if analysis.Priority == domain.TaskPriorityUrgent || analysis.Priority == domain.TaskPriorityHigh {
			return "Got it. I flagged this as important and notified the executives."
		}
		return "Got it, thanks for the report. I passed it along."
	}
	return strings.TrimSpace(reply)
}

// escalate opens an approval request and pushes an alert to every executive
// of the tenant. Notification failures are logged, never surfaced.
func (s *AssistantService) escalate(ctx context.Context, tenantID, senderID string, msg domain.InboundMessage, analysis domain.MessageAnalysis) {
	sender, err := s.users.Get(ctx, tenantID, senderID)
	if err != nil {
		sender = domain.User{UserID: senderID, Name: senderID}
	}
	approval := domain.ApprovalRequest{
		ID:               generateID("approval", s.now()),
		TenantID:         tenantID,
		EmployeeID:       senderID,
		EmployeeName:     sender.Name,
		Department:       sender.Department,
		OriginalMessage:  msg.Message,
		Analysis:         analysis,
		ProposedResponse: s.proposedResponse(ctx, sender.Name, msg.Message),
		Status:           domain.ApprovalPending,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.messages.PutApproval(ctx, approval); err != nil {
		log.Warnf("approval write failed: tenant=%s err=%v", tenantID, err)
		return
	}
	executives, err := s.users.Executives(ctx, tenantID)
	if err != nil {
		log.Warnf("executive lookup failed: tenant=%s err=%v", tenantID, err)
		return
	}
	alert := fmt.Sprintf(
		"[%s] %s from %s:\n%s\n\nProposed response:\n%s\n\nReply with:\napprove %s\nrevise %s <your text>\nreject %s",
		strings.ToUpper(string(analysis.Priority)), sender.Name, orDefault(sender.Department, "the team"),
		analysis.Summary, approval.ProposedResponse, approval.ID, approval.ID, approval.ID)
	for _, executiveID := range executives {
		if err := s.notifier.Push(ctx, executiveID, alert); err != nil {
			log.Warnf("escalation push failed: tenant=%s to=%s err=%v", tenantID, executiveID, err)
		}
	}
	_ = s.pub.Publish(ctx, tenantID, "notification.pushed", map[string]any{
		"approvalId": approval.ID,
		"priority":   analysis.Priority,
		"recipients": len(executives),
	})
}

const proposedResponsePrompt = `You draft a short, professional response an executive could send back to the employee's message below. Reply with the draft only.`

func (s *AssistantService) proposedResponse(ctx context.Context, employeeName, text string) string {
	draft, err := s.classifier.Classify(ctx, proposedResponsePrompt, text)
	if err != nil || strings.TrimSpace(draft) == "" {
		return fmt.Sprintf("Thanks %s, I received your report and will follow up shortly.", employeeName)
	}
	return strings.TrimSpace(draft)
}

func (s *AssistantService) broadcastFeed(ctx context.Context, tenantID string, msg domain.InboundMessage, analysis domain.MessageAnalysis) {
	if s.hub == nil {
		return
	}
	entry := domain.FeedMessage{
		ID:        msg.ID,
		UserID:    msg.UserID,
		UserName:  msg.UserID,
		Message:   msg.Message,
		Timestamp: msg.Timestamp,
		Priority:  analysis.Priority,
		Category:  analysis.Category,
		Summary:   analysis.Summary,
		Sentiment: analysis.Sentiment,
		Processed: true,
	}
	if user, err := s.users.Get(ctx, tenantID, msg.UserID); err == nil {
		entry.UserName = user.Name
		entry.Department = user.Department
	}
	s.hub.Broadcast(tenantID, entry)
}

// The ID group mirrors generateID so free-form text starting with one of the
// verbs still falls through to classification.
var approvalCommandPattern = regexp.MustCompile(`(?i)^(approve|revise|reject)\s+(approval_\d+_[a-z0-9]+)(?:\s+(.+))?$`)

// handleExecutive routes approval commands and relay instructions before
// falling back to a free-form classified reply.
func (s *AssistantService) handleExecutive(ctx context.Context, event WebhookEvent, tenantID, senderID, text string) error {
	check := s.usage.Gate(ctx, tenantID)
	if !check.Allowed {
		s.reply(ctx, event.ReplyToken,
			"Your company has reached this month's message limit. Upgrade the plan to continue.")
		return nil
	}
	if err := s.usage.Record(ctx, tenantID, domain.UsageMessage); err != nil {
		log.Warnf("usage record failed: tenant=%s err=%v", tenantID, err)
	}

	if m := approvalCommandPattern.FindStringSubmatch(text); m != nil {
		return s.handleApprovalCommand(ctx, event, tenantID, m[1], m[2], strings.TrimSpace(m[3]))
	}

	if cmd, ok := ParseRelayCommand(text); ok {
		executive, err := s.users.Get(ctx, tenantID, senderID)
		if err != nil {
			executive = domain.User{UserID: senderID, Name: "your executive"}
		}
		_, confirmation, err := s.commands.Relay(ctx, tenantID, executive, cmd)
		if err != nil && confirmation == "" {
			return err
		}
		s.reply(ctx, event.ReplyToken, confirmation)
		return nil
	}

	if err := s.commands.LearnPattern(ctx, tenantID, senderID, text, "chat"); err != nil {
		log.Warnf("pattern learning failed: tenant=%s err=%v", tenantID, err)
	}
	s.reply(ctx, event.ReplyToken, s.executiveReply(ctx, text))
	return nil
}

const executiveReplyPrompt = `You are the AI secretary of a busy executive. Answer the executive's message helpfully in one to three sentences. Reply with the answer only.`

func (s *AssistantService) executiveReply(ctx context.Context, text string) string {
	reply, err := s.classifier.Classify(ctx, executiveReplyPrompt, text)
	if err != nil || strings.TrimSpace(reply) == "" {
		return "Noted. Let me know if you want me to relay this to someone or schedule something."
	}
	return strings.TrimSpace(reply)
}

func (s *AssistantService) handleApprovalCommand(ctx context.Context, event WebhookEvent, tenantID, verb, approvalID, extra string) error {
	approval, err := s.messages.GetApproval(ctx, approvalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.reply(ctx, event.ReplyToken, fmt.Sprintf("Approval %s was not found. It may have expired.", approvalID))
			return nil
		}
		return err
	}
	if approval.TenantID != tenantID {
		s.reply(ctx, event.ReplyToken, fmt.Sprintf("Approval %s was not found. It may have expired.", approvalID))
		return nil
	}
	switch strings.ToLower(verb) {
	case "approve":
		if err := s.notifier.Push(ctx, approval.EmployeeID, approval.ProposedResponse); err != nil {
			log.Warnf("approval push failed: tenant=%s to=%s err=%v", tenantID, approval.EmployeeID, err)
		}
		s.reply(ctx, event.ReplyToken, fmt.Sprintf("Approved. I sent the response to %s.", approval.EmployeeName))
	case "revise":
		if extra == "" {
			s.reply(ctx, event.ReplyToken, fmt.Sprintf("Please include the revised text: revise %s <your text>", approvalID))
			return nil
		}
		if err := s.notifier.Push(ctx, approval.EmployeeID, extra); err != nil {
			log.Warnf("approval push failed: tenant=%s to=%s err=%v", tenantID, approval.EmployeeID, err)
		}
		s.reply(ctx, event.ReplyToken, fmt.Sprintf("Sent your revised response to %s.", approval.EmployeeName))
	case "reject":
		s.reply(ctx, event.ReplyToken, fmt.Sprintf("Rejected. No response was sent to %s.", approval.EmployeeName))
	}
	if err := s.messages.DeleteApproval(ctx, approvalID); err != nil {
		log.Warnf("approval delete failed: id=%s err=%v", approvalID, err)
	}
	return nil
}

func (s *AssistantService) reply(ctx context.Context, replyToken, text string) {
	if replyToken == "" || s.notifier == nil {
		return
	}
	if err := s.notifier.Reply(ctx, replyToken, text); err != nil {
		log.Warnf("reply failed: err=%v", err)
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
