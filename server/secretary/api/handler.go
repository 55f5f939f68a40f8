package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	commonauth "secretary_server/server/common/auth"
	"secretary_server/server/common/middleware"
	"secretary_server/server/secretary/service"
)

type Handler struct {
	tasks     *service.TaskService
	calendar  *service.CalendarService
	usage     *service.UsageService
	tenants   *service.TenantService
	messages  *service.MessageService
	assistant *service.AssistantService
	commands  *service.CommandService
	oauth     *service.OAuthService
	accounts  *service.AuthService
	realtime  *service.RealtimeService
	auth      *commonauth.Service

	// Webhook deliveries are verified against this channel secret when set.
	webhookSecret string
}

func NewHandler(
	tasks *service.TaskService,
	calendar *service.CalendarService,
	usage *service.UsageService,
	tenants *service.TenantService,
	messages *service.MessageService,
	assistant *service.AssistantService,
	commands *service.CommandService,
	oauth *service.OAuthService,
	accounts *service.AuthService,
	realtime *service.RealtimeService,
	auth *commonauth.Service,
	webhookSecret string,
) *Handler {
	return &Handler{
		tasks:         tasks,
		calendar:      calendar,
		usage:         usage,
		tenants:       tenants,
		messages:      messages,
		assistant:     assistant,
		commands:      commands,
		oauth:         oauth,
		accounts:      accounts,
		realtime:      realtime,
		auth:          auth,
		webhookSecret: webhookSecret,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, NewHealthResponse("ok")) })

	r.POST("/webhook", h.handleWebhook)
	r.GET("/ws", h.handleWS)

	r.POST("/api/v1/auth/register", h.register)
	r.POST("/api/v1/auth/login", h.login)
	r.GET("/api/v1/auth/verify", h.verify)
	r.GET("/api/v1/calendar/oauth/callback", h.oauthCallback)

	api := r.Group("/api/v1")
	api.Use(middleware.AuthRequired(h.auth))
	{
		api.POST("/tasks", h.taskAction)
		api.POST("/calendar", h.calendarAction)
		api.POST("/usage", h.usageAction)
		api.POST("/tenants", h.tenantAction)
		api.POST("/assistant", h.assistantAction)

		api.GET("/messages", h.listMessages)
		api.GET("/dashboard", h.dashboard)
		api.GET("/calendar/oauth/connect", h.oauthConnect)
		api.DELETE("/calendar/oauth", h.oauthDisconnect)

		admin := api.Group("")
		admin.Use(middleware.RequireRoles("admin"))
		{
			admin.GET("/tenants", h.listTenants)
		}
	}
}

func tenantFromContext(c *gin.Context) (string, error) {
	raw, ok := c.Get("auth_tenant_id")
	if !ok {
		return "", errors.New(ErrUnauthorized)
	}
	tenantID, ok := raw.(string)
	if !ok || strings.TrimSpace(tenantID) == "" {
		return "", errors.New(ErrMissingTenantID)
	}
	return tenantID, nil
}

func actorFromContext(c *gin.Context) (userID, role string, err error) {
	rawUser, ok := c.Get("auth_user_id")
	if !ok {
		return "", "", errors.New(ErrUnauthorized)
	}
	userID, ok = rawUser.(string)
	if !ok || userID == "" {
		return "", "", errors.New(ErrUnauthorized)
	}
	if rawRole, ok := c.Get("auth_role"); ok {
		role, _ = rawRole.(string)
	}
	return userID, role, nil
}

// actionRequest is the action-dispatch envelope used by the POST endpoints:
// {"action": "...", "data": {...}}.
type actionRequest struct {
	Action string          `json:"action" binding:"required"`
	Data   json.RawMessage `json:"data"`
}

func bindAction(c *gin.Context) (actionRequest, bool) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return actionRequest{}, false
	}
	return req, true
}

func decodeData(c *gin.Context, raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return true
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return false
	}
	return true
}
