package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"secretary_server/server/secretary/repository"
)

// fixedNow pins service clocks so date buckets and month keys are stable.
var fixedNow = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

type pushRecord struct {
	To   string
	Text string
}

type replyRecord struct {
	Token string
	Text  string
}

type fakeNotifier struct {
	pushes   []pushRecord
	replies  []replyRecord
	failPush bool
}

func (f *fakeNotifier) Push(_ context.Context, recipientID, text string) error {
	if f.failPush {
		return errors.New("push failed")
	}
	f.pushes = append(f.pushes, pushRecord{To: recipientID, Text: text})
	return nil
}

func (f *fakeNotifier) Reply(_ context.Context, replyToken, text string) error {
	f.replies = append(f.replies, replyRecord{Token: replyToken, Text: text})
	return nil
}

// fakeClassifier returns canned completions per system prompt, or fails
// entirely when fail is set.
type fakeClassifier struct {
	responses map[string]string
	fail      bool
}

func (f *fakeClassifier) Classify(_ context.Context, systemPrompt, _ string) (string, error) {
	if f.fail {
		return "", errors.New("classifier unavailable")
	}
	if text, ok := f.responses[systemPrompt]; ok {
		return text, nil
	}
	return "", errors.New("no canned response")
}

func (f *fakeClassifier) ClassifyInto(ctx context.Context, systemPrompt, userPrompt string, out any) error {
	text, err := f.Classify(ctx, systemPrompt, userPrompt)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(stripCodeFence(text)), out)
}

type testEnv struct {
	stores     *repository.MemStores
	tenantRepo *repository.TenantRepository
	userRepo   *repository.UserRepository
	taskRepo   *repository.TaskRepository
	eventRepo  *repository.EventRepository
	usageRepo  *repository.UsageRepository
	msgRepo    *repository.MessageRepository

	usage    *UsageService
	tasks    *TaskService
	calendar *CalendarService
	tenants  *TenantService
	commands *CommandService

	classifier *fakeClassifier
	notifier   *fakeNotifier
}

func newTestEnv() *testEnv {
	stores := repository.NewMemStores()
	env := &testEnv{
		stores:     stores,
		tenantRepo: repository.NewTenantRepository(stores),
		userRepo:   repository.NewUserRepository(stores),
		taskRepo:   repository.NewTaskRepository(stores),
		eventRepo:  repository.NewEventRepository(stores),
		usageRepo:  repository.NewUsageRepository(stores),
		msgRepo:    repository.NewMessageRepository(stores),
		classifier: &fakeClassifier{responses: map[string]string{}},
		notifier:   &fakeNotifier{},
	}
	env.usage = NewUsageService(env.tenantRepo, env.userRepo, env.usageRepo, nil)
	env.usage.now = func() time.Time { return fixedNow }
	env.tasks = NewTaskService(env.taskRepo, nil)
	env.tasks.now = func() time.Time { return fixedNow }
	env.calendar = NewCalendarService(env.eventRepo, nil)
	env.calendar.now = func() time.Time { return fixedNow }
	env.tenants = NewTenantService(env.tenantRepo, env.userRepo, nil)
	env.tenants.now = func() time.Time { return fixedNow }
	env.commands = NewCommandService(env.userRepo, env.msgRepo, env.classifier, env.notifier)
	env.commands.now = func() time.Time { return fixedNow }
	return env
}

func (e *testEnv) newAssistant(hub *Hub) *AssistantService {
	assistant := NewAssistantService(e.tenants, e.tasks, e.calendar, e.usage, e.commands,
		e.userRepo, e.msgRepo, e.classifier, e.notifier, hub, nil)
	assistant.now = func() time.Time { return fixedNow }
	return assistant
}
