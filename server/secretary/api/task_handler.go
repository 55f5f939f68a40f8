package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"secretary_server/server/secretary/domain"
	"secretary_server/server/secretary/service"
)

type taskListResponse struct {
	Tasks   []domain.Task       `json:"tasks"`
	Summary service.TaskSummary `json:"summary"`
}

func (h *Handler) taskAction(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(err.Error()))
		return
	}
	req, ok := bindAction(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	switch req.Action {
	case "create":
		var in service.CreateTaskInput
		if !decodeData(c, req.Data, &in) {
			return
		}
		in.TenantID = tenantID
		task, err := h.tasks.Create(ctx, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, task)
	case "update":
		var in struct {
			TaskID string           `json:"taskId"`
			Patch  domain.TaskPatch `json:"patch"`
		}
		if !decodeData(c, req.Data, &in) {
			return
		}
		if in.TaskID == "" {
			respondError(c, domain.NewValidationError("taskId"))
			return
		}
		task, err := h.tasks.Update(ctx, tenantID, in.TaskID, in.Patch)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	case "add_comment":
		var in struct {
			TaskID string `json:"taskId"`
			UserID string `json:"userId"`
			Text   string `json:"text"`
		}
		if !decodeData(c, req.Data, &in) {
			return
		}
		if in.TaskID == "" {
			respondError(c, domain.NewValidationError("taskId"))
			return
		}
		task, err := h.tasks.AddComment(ctx, tenantID, in.TaskID, in.UserID, in.Text)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	case "get_user_tasks":
		var in struct {
			UserID   string              `json:"userId"`
			Status   domain.TaskStatus   `json:"status"`
			Priority domain.TaskPriority `json:"priority"`
		}
		if !decodeData(c, req.Data, &in) {
			return
		}
		if in.UserID == "" {
			respondError(c, domain.NewValidationError("userId"))
			return
		}
		tasks, summary, err := h.tasks.UserTasks(ctx, tenantID, in.UserID, in.Status, in.Priority)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, taskListResponse{Tasks: tasks, Summary: summary})
	case "get_due_tasks":
		var in struct {
			Date string `json:"date"`
		}
		if !decodeData(c, req.Data, &in) {
			return
		}
		day := in.Date
		if day == "" {
			day = domain.DayKey(time.Now())
		}
		tasks, err := h.tasks.DueTasks(ctx, tenantID, day)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tasks": tasks})
	case "get_overdue_tasks":
		tasks, err := h.tasks.OverdueTasks(ctx, tenantID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tasks": tasks})
	case "delete":
		var in struct {
			TaskID string `json:"taskId"`
		}
		if !decodeData(c, req.Data, &in) {
			return
		}
		if in.TaskID == "" {
			respondError(c, domain.NewValidationError("taskId"))
			return
		}
		if err := h.tasks.Delete(ctx, tenantID, in.TaskID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, NewOKResponse())
	default:
		c.JSON(http.StatusBadRequest, NewErrorResponse(ErrInvalidAction))
	}
}
