package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"secretary_server/server/secretary/domain"
	"secretary_server/server/secretary/service"
)

func (h *Handler) assistantAction(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(err.Error()))
		return
	}
	actorID, _, err := actorFromContext(c)
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
	case "analyze_executive_message":
		var in struct {
			Message string `json:"message"`
		}
		if !decodeData(c, req.Data, &in) {
			return
		}
		if in.Message == "" {
			respondError(c, domain.NewValidationError("message"))
			return
		}
		c.JSON(http.StatusOK, h.assistant.AnalyzeExecutiveMessage(ctx, in.Message))
	case "confirm_action":
		var in service.ConfirmActionInput
		if !decodeData(c, req.Data, &in) {
			return
		}
		in.TenantID = tenantID
		in.ExecutiveID = actorID
		message, err := h.assistant.ConfirmAction(ctx, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": message})
	case "process_employee_report":
		var in struct {
			EmployeeID string `json:"employeeId"`
			Message    string `json:"message"`
		}
		if !decodeData(c, req.Data, &in) {
			return
		}
		if in.EmployeeID == "" {
			respondError(c, domain.NewValidationError("employeeId"))
			return
		}
		analysis, err := h.assistant.ProcessEmployeeReport(ctx, tenantID, in.EmployeeID, in.Message)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, analysis)
	case "schedule_task_integration":
		tasks, err := h.assistant.ScheduleTaskIntegration(ctx, tenantID, actorID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"createdTasks": tasks})
	case "predict_response":
		var in struct {
			ExecutiveID string `json:"executiveId"`
			Question    string `json:"question"`
		}
		if !decodeData(c, req.Data, &in) {
			return
		}
		executiveID := in.ExecutiveID
		if executiveID == "" {
			executiveID = actorID
		}
		if in.Question == "" {
			respondError(c, domain.NewValidationError("question"))
			return
		}
		answer, err := h.commands.PredictResponse(ctx, tenantID, executiveID, in.Question)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"prediction": answer})
	default:
		c.JSON(http.StatusBadRequest, NewErrorResponse(ErrInvalidAction))
	}
}
