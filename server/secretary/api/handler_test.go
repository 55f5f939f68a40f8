package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonauth "secretary_server/server/common/auth"
	"secretary_server/server/secretary/domain"
	"secretary_server/server/secretary/repository"
	"secretary_server/server/secretary/service"
)

// stubClassifier always fails, so every flow exercises its documented
// fallback.
type stubClassifier struct{}

func (stubClassifier) Classify(context.Context, string, string) (string, error) {
	return "", errors.New("classifier unavailable")
}

func (stubClassifier) ClassifyInto(context.Context, string, string, any) error {
	return errors.New("classifier unavailable")
}

type stubNotifier struct {
	pushes  []string
	replies []string
}

func (n *stubNotifier) Push(_ context.Context, recipientID, text string) error {
	n.pushes = append(n.pushes, recipientID+": "+text)
	return nil
}

func (n *stubNotifier) Reply(_ context.Context, _, text string) error {
	n.replies = append(n.replies, text)
	return nil
}

type testServer struct {
	router   *gin.Engine
	notifier *stubNotifier
	users    *repository.UserRepository
}

const testWebhookSecret = "channel-secret"

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	stores := repository.NewMemStores()
	tenantRepo := repository.NewTenantRepository(stores)
	userRepo := repository.NewUserRepository(stores)
	taskRepo := repository.NewTaskRepository(stores)
	eventRepo := repository.NewEventRepository(stores)
	usageRepo := repository.NewUsageRepository(stores)
	msgRepo := repository.NewMessageRepository(stores)
	tokenRepo := repository.NewTokenRepository(stores)

	classifier := stubClassifier{}
	notifier := &stubNotifier{}

	usage := service.NewUsageService(tenantRepo, userRepo, usageRepo, nil)
	tasks := service.NewTaskService(taskRepo, nil)
	calendar := service.NewCalendarService(eventRepo, nil)
	tenants := service.NewTenantService(tenantRepo, userRepo, nil)
	commands := service.NewCommandService(userRepo, msgRepo, classifier, notifier)
	messages := service.NewMessageService(msgRepo, userRepo, taskRepo, eventRepo, usage)
	assistant := service.NewAssistantService(tenants, tasks, calendar, usage, commands,
		userRepo, msgRepo, classifier, notifier, nil, nil)
	oauth := service.NewOAuthService(service.OAuthConfig{
		AuthURL:     "https://accounts.example.com/o/oauth2/auth",
		TokenURL:    "https://oauth2.example.com/token",
		ClientID:    "client-id",
		RedirectURI: "https://app.example.com/api/v1/calendar/oauth/callback",
		Scope:       "calendar.readonly",
	}, tokenRepo)
	jwt := commonauth.NewService("test-secret", 60)
	accounts := service.NewAuthService(userRepo, jwt)
	realtime := service.NewRealtimeService(service.NewHub())

	handler := NewHandler(tasks, calendar, usage, tenants, messages, assistant,
		commands, oauth, accounts, realtime, jwt, testWebhookSecret)
	router := gin.New()
	handler.RegisterRoutes(router)
	return &testServer{router: router, notifier: notifier, users: userRepo}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

// registerAndLogin creates an executive account and returns its bearer token
// and user ID.
func registerAndLogin(t *testing.T, s *testServer, email string) (token, userID string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": email, "password": "secret-password", "name": "Jane Doe",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": email, "password": "secret-password",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login struct {
		AccessToken string `json:"accessToken"`
		UserID      string `json:"userId"`
	}
	decodeBody(t, rec, &login)
	require.NotEmpty(t, login.AccessToken)
	return login.AccessToken, login.UserID
}

// createTenant provisions a tenant through the API and returns the reissued
// tenant-scoped token.
func createTenant(t *testing.T, s *testServer, token, company string) (tenantToken, tenantID string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/tenants", token, gin.H{
		"action": "create_tenant",
		"data":   gin.H{"companyName": company, "adminName": "Jane Doe"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		Tenant      domain.Tenant `json:"tenant"`
		AccessToken string        `json:"accessToken"`
	}
	decodeBody(t, rec, &out)
	require.NotEmpty(t, out.AccessToken)
	return out.AccessToken, out.Tenant.TenantID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestAuthLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "jane@example.com", "password": "secret-password", "name": "Jane Doe",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Duplicate email on the same user type is rejected.
	rec = s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "jane@example.com", "password": "secret-password", "name": "Jane Doe",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Short passwords never reach the store.
	rec = s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "short@example.com", "password": "short", "name": "S",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "jane@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "jane@example.com", "password": "secret-password",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		AccessToken string `json:"accessToken"`
		Role        string `json:"role"`
	}
	decodeBody(t, rec, &login)
	assert.Equal(t, "executive", login.Role)

	rec = s.do(t, http.MethodGet, "/api/v1/auth/verify", login.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/auth/verify", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/tasks", "", gin.H{"action": "get_overdue_tasks"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/tasks", "not-a-jwt", gin.H{"action": "get_overdue_tasks"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTenantScopedActionsNeedTenant(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerAndLogin(t, s, "jane@example.com")

	// Before the tenant exists, tenant-scoped actions are refused.
	rec := s.do(t, http.MethodPost, "/api/v1/tasks", token, gin.H{"action": "get_overdue_tasks"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/tenants", token, gin.H{
		"action": "list_tenant_users",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTaskLifecycleOverAPI(t *testing.T) {
	s := newTestServer(t)
	token, execID := registerAndLogin(t, s, "jane@example.com")
	token, _ = createTenant(t, s, token, "Acme Inc")

	rec := s.do(t, http.MethodPost, "/api/v1/tenants", token, gin.H{
		"action": "add_user_to_tenant",
		"data":   gin.H{"userId": "user-1", "name": "John Smith", "department": "Sales"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/v1/tasks", token, gin.H{
		"action": "create",
		"data": gin.H{
			"assignedTo": "user-1",
			"createdBy":  execID,
			"title":      "Draft the quarterly report",
			"priority":   "high",
			"dueDate":    "2026-09-05T00:00:00Z",
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var task domain.Task
	decodeBody(t, rec, &task)
	assert.Equal(t, domain.TaskPriorityHigh, task.Priority)
	assert.Equal(t, domain.TaskStatusPending, task.Status)

	rec = s.do(t, http.MethodPost, "/api/v1/tasks", token, gin.H{
		"action": "get_user_tasks",
		"data":   gin.H{"userId": "user-1"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var list taskListResponse
	decodeBody(t, rec, &list)
	require.Len(t, list.Tasks, 1)
	assert.Equal(t, 1, list.Summary.Pending)

	rec = s.do(t, http.MethodPost, "/api/v1/tasks", token, gin.H{
		"action": "update",
		"data":   gin.H{"taskId": task.ID, "patch": gin.H{"status": "completed"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var done domain.Task
	decodeBody(t, rec, &done)
	assert.Equal(t, domain.TaskStatusCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)

	rec = s.do(t, http.MethodPost, "/api/v1/tasks", token, gin.H{
		"action": "update",
		"data":   gin.H{"taskId": "missing", "patch": gin.H{}},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/tasks", token, gin.H{"action": "explode"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalendarSlotsOverAPI(t *testing.T) {
	s := newTestServer(t)
	token, execID := registerAndLogin(t, s, "jane@example.com")
	token, _ = createTenant(t, s, token, "Acme Inc")

	rec := s.do(t, http.MethodPost, "/api/v1/calendar", token, gin.H{
		"action": "create_event",
		"data": gin.H{
			"executiveId": execID,
			"title":       "Board meeting",
			"startTime":   "2026-09-01T10:00:00Z",
			"endTime":     "2026-09-01T11:00:00Z",
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/v1/calendar", token, gin.H{
		"action": "get_available_slots",
		"data":   gin.H{"executiveId": execID, "date": "2026-09-01", "duration": 60},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Slots []domain.TimeSlot `json:"slots"`
	}
	decodeBody(t, rec, &out)
	require.NotEmpty(t, out.Slots)
	for _, slot := range out.Slots {
		assert.NotEqual(t, "10:00", slot.StartTime)
		assert.NotEqual(t, "10:30", slot.StartTime)
	}
}

func TestUsageAndPlanOverAPI(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerAndLogin(t, s, "jane@example.com")
	token, _ = createTenant(t, s, token, "Acme Inc")

	rec := s.do(t, http.MethodPost, "/api/v1/usage", token, gin.H{"action": "check_limit"})
	require.Equal(t, http.StatusOK, rec.Code)
	var check domain.UsageCheck
	decodeBody(t, rec, &check)
	assert.True(t, check.Allowed)
	assert.Equal(t, 100, check.Limit)

	rec = s.do(t, http.MethodPost, "/api/v1/usage", token, gin.H{
		"action": "upgrade_plan",
		"data":   gin.H{"plan": "premium"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tenant domain.Tenant
	decodeBody(t, rec, &tenant)
	assert.Equal(t, domain.PlanPremium, tenant.Plan)
	assert.NotNil(t, tenant.PlanUpdatedAt)

	rec = s.do(t, http.MethodPost, "/api/v1/usage", token, gin.H{
		"action": "upgrade_plan",
		"data":   gin.H{"plan": "platinum"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/usage", token, gin.H{
		"action": "usage_history",
		"data":   gin.H{"months": 2},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		History []domain.UsageMonth `json:"history"`
	}
	decodeBody(t, rec, &history)
	assert.Len(t, history.History, 2)
}

func TestAdminRouteForbiddenForExecutives(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerAndLogin(t, s, "jane@example.com")

	rec := s.do(t, http.MethodGet, "/api/v1/tenants", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminCanListTenants(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "root@example.com", "password": "secret-password", "name": "Root", "userType": "admin",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "root@example.com", "password": "secret-password", "userType": "admin",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		AccessToken string `json:"accessToken"`
	}
	decodeBody(t, rec, &login)

	rec = s.do(t, http.MethodGet, "/api/v1/tenants", login.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestWebhookSignatureVerification(t *testing.T) {
	s := newTestServer(t)
	body := []byte(`{"events":[{"type":"message","replyToken":"rt","source":{"userId":"exec-1"},"message":{"type":"text","text":"Jane Doe, Acme Inc, CEO"}}]}`)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "unsigned deliveries are refused")

	req = httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("X-Signature", signBody(body))
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The registration event actually ran: the sender is now an executive.
	ref, err := s.users.Resolve(context.Background(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, domain.UserRoleExecutive, ref.Role)
	require.NotEmpty(t, s.notifier.replies)
	assert.Contains(t, s.notifier.replies[0], "Welcome Jane Doe")
}

func TestMessagesFeedOverAPI(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerAndLogin(t, s, "jane@example.com")
	token, _ = createTenant(t, s, token, "Acme Inc")

	rec := s.do(t, http.MethodGet, "/api/v1/messages", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Messages []domain.FeedMessage `json:"messages"`
	}
	decodeBody(t, rec, &out)
	assert.Empty(t, out.Messages)

	rec = s.do(t, http.MethodGet, "/api/v1/dashboard", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOAuthConnectURL(t *testing.T) {
	s := newTestServer(t)
	token, execID := registerAndLogin(t, s, "jane@example.com")
	token, tenantID := createTenant(t, s, token, "Acme Inc")

	rec := s.do(t, http.MethodGet, "/api/v1/calendar/oauth/connect", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		URL string `json:"url"`
	}
	decodeBody(t, rec, &out)
	assert.Contains(t, out.URL, "https://accounts.example.com/o/oauth2/auth")
	assert.Contains(t, out.URL, "client-id")
	assert.Contains(t, out.URL, tenantID)
	assert.Contains(t, out.URL, execID)
}
