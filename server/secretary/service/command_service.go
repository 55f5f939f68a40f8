package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"secretary_server/server/common/log"
	"secretary_server/server/secretary/domain"
	"secretary_server/server/secretary/repository"
)

// Classifier is the opaque LLM boundary. It may fail or return malformed
// JSON; callers substitute documented defaults.
type Classifier interface {
	Classify(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	ClassifyInto(ctx context.Context, systemPrompt, userPrompt string, out any) error
}

// Notifier is the chat provider push/reply boundary. Failures are logged and
// never retried.
type Notifier interface {
	Push(ctx context.Context, recipientID, text string) error
	Reply(ctx context.Context, replyToken, text string) error
}

// CommandService handles executive instructions relayed to employees and the
// per-executive decision-pattern memory.
type CommandService struct {
	users      *repository.UserRepository
	messages   *repository.MessageRepository
	classifier Classifier
	notifier   Notifier
	now        func() time.Time
}

func NewCommandService(users *repository.UserRepository, messages *repository.MessageRepository, classifier Classifier, notifier Notifier) *CommandService {
	return &CommandService{users: users, messages: messages, classifier: classifier, notifier: notifier, now: time.Now}
}

// RelayCommand is a parsed "tell X to ..." instruction.
type RelayCommand struct {
	TargetName  string
	Instruction string
}

var relayPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:please\s+)?tell\s+(.+?)\s+to\s+(.+)$`),
	regexp.MustCompile(`(?i)^(?:please\s+)?ask\s+(.+?)\s+to\s+(.+)$`),
	regexp.MustCompile(`(?i)^(?:please\s+)?remind\s+(.+?)\s+to\s+(.+)$`),
	regexp.MustCompile(`(?i)^message\s+(.+?)\s*:\s*(.+)$`),
}

// ParseRelayCommand matches the fixed instruction formats. Free-form text
// that matches none of them falls through to classification.
func ParseRelayCommand(text string) (RelayCommand, bool) {
	text = strings.TrimSpace(text)
	for _, pattern := range relayPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return RelayCommand{TargetName: strings.TrimSpace(m[1]), Instruction: strings.TrimSpace(m[2])}, true
		}
	}
	return RelayCommand{}, false
}

// FindEmployee resolves a name to an employee, matching exactly first and
// then by substring so "tell Kim to ..." finds "Kim Minsoo".
func (s *CommandService) FindEmployee(ctx context.Context, tenantID, name string) (domain.User, error) {
	users, err := s.users.List(ctx, tenantID)
	if err != nil {
		return domain.User{}, err
	}
	needle := strings.ToLower(strings.TrimSpace(name))
	var partial *domain.User
	for i := range users {
		if users[i].Role != domain.UserRoleEmployee {
			continue
		}
		candidate := strings.ToLower(users[i].Name)
		if candidate == needle {
			return users[i], nil
		}
		if partial == nil && strings.Contains(candidate, needle) {
			partial = &users[i]
		}
	}
	if partial != nil {
		return *partial, nil
	}
	return domain.User{}, repository.ErrNotFound
}

const politeRewritePrompt = `You rewrite a short instruction from an executive into a polite, professional chat message addressed to the employee. Reply with the rewritten message only, no preamble.`

// politeMessage asks the classifier to soften the instruction, falling back
// to a fixed template when the classifier is unavailable.
func (s *CommandService) politeMessage(ctx context.Context, executiveName, employeeName, instruction string) string {
	user := fmt.Sprintf("Executive %s wants to tell %s: %s", executiveName, employeeName, instruction)
	text, err := s.classifier.Classify(ctx, politeRewritePrompt, user)
	if err != nil || strings.TrimSpace(text) == "" {
		log.Warnf("polite rewrite fell back to template: err=%v", err)
		return fmt.Sprintf("Hello %s, a message from %s: %s. Thank you!", employeeName, executiveName, instruction)
	}
	return strings.TrimSpace(text)
}

// Relay pushes a rewritten instruction to the target employee and records a
// delivery-status row. The returned string is the confirmation shown to the
// executive.
func (s *CommandService) Relay(ctx context.Context, tenantID string, executive domain.User, cmd RelayCommand) (domain.RelayedMessage, string, error) {
	employee, err := s.FindEmployee(ctx, tenantID, cmd.TargetName)
	if err != nil {
		return domain.RelayedMessage{}, fmt.Sprintf("I could not find an employee named %q.", cmd.TargetName), err
	}
	content := s.politeMessage(ctx, executive.Name, employee.Name, cmd.Instruction)
	if err := s.notifier.Push(ctx, employee.UserID, content); err != nil {
		log.Warnf("relay push failed: tenant=%s to=%s err=%v", tenantID, employee.UserID, err)
	}
	msg := domain.RelayedMessage{
		MessageID: generateID("msg", s.now()),
		From:      executive.Name,
		To:        employee.Name,
		ToUserID:  employee.UserID,
		Content:   content,
		SentAt:    s.now().UTC(),
		Status:    domain.DeliverySent,
	}
	if err := s.messages.PutRelayed(ctx, tenantID, msg); err != nil {
		return domain.RelayedMessage{}, "", err
	}
	confirmation := fmt.Sprintf("Done. I sent this to %s:\n%s", employee.Name, content)
	return msg, confirmation, nil
}

// MarkRead advances a relayed message to read the first time the recipient
// opens it.
func (s *CommandService) MarkRead(ctx context.Context, tenantID, messageID string) error {
	msg, err := s.messages.GetRelayed(ctx, tenantID, messageID)
	if err != nil {
		return err
	}
	if msg.Status != domain.DeliverySent {
		return nil
	}
	read := s.now().UTC()
	msg.Status = domain.DeliveryRead
	msg.ReadAt = &read
	return s.messages.PutRelayed(ctx, tenantID, msg)
}

// RecordReply attaches the employee's answer and notifies the executive side
// through the delivery-status record.
func (s *CommandService) RecordReply(ctx context.Context, tenantID, messageID, reply string) (domain.RelayedMessage, error) {
	msg, err := s.messages.GetRelayed(ctx, tenantID, messageID)
	if err != nil {
		return domain.RelayedMessage{}, err
	}
	replied := s.now().UTC()
	msg.Status = domain.DeliveryReplied
	msg.ReplyContent = reply
	msg.RepliedAt = &replied
	if err := s.messages.PutRelayed(ctx, tenantID, msg); err != nil {
		return domain.RelayedMessage{}, err
	}
	return msg, nil
}

const patternPrompt = `Extract the decision pattern from this executive message as a single short sentence describing how the executive tends to decide. Reply with the sentence only.`

// LearnPattern appends a decision pattern to the executive's memory, keeping
// the most recent hundred.
func (s *CommandService) LearnPattern(ctx context.Context, tenantID, executiveID, message, situation string) error {
	pattern, err := s.classifier.Classify(ctx, patternPrompt, message)
	if err != nil || strings.TrimSpace(pattern) == "" {
		pattern = message
	}
	return s.messages.AppendThinking(ctx, tenantID, executiveID, domain.ThinkingPattern{
		Message:   message,
		Context:   situation,
		Pattern:   strings.TrimSpace(pattern),
		Timestamp: s.now().UTC(),
	})
}

// PredictResponse answers "what would the executive say" from the recorded
// patterns.
func (s *CommandService) PredictResponse(ctx context.Context, tenantID, executiveID, question string) (string, error) {
	patterns, err := s.messages.RecentThinking(ctx, tenantID, executiveID, 20)
	if err != nil {
		return "", err
	}
	if len(patterns) == 0 {
		return "I do not have enough history to predict a response yet.", nil
	}
	var sb strings.Builder
	sb.WriteString("Known decision patterns of the executive:\n")
	for _, p := range patterns {
		sb.WriteString("- " + p.Pattern + "\n")
	}
	sb.WriteString("\nQuestion: " + question)
	system := "Based only on the listed patterns, predict how this executive would respond. Reply with the predicted response only."
	answer, err := s.classifier.Classify(ctx, system, sb.String())
	if err != nil || strings.TrimSpace(answer) == "" {
		return "I do not have enough history to predict a response yet.", nil
	}
	return strings.TrimSpace(answer), nil
}
