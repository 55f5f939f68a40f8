package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"secretary_server/server/secretary/domain"
)

func (h *Handler) usageAction(c *gin.Context) {
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
	case "get_usage":
		report, err := h.usage.GetUsage(ctx, tenantID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	case "check_limit":
		check, err := h.usage.CheckLimit(ctx, tenantID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, check)
	case "upgrade_plan":
		var in struct {
			Plan domain.PlanID `json:"plan"`
		}
		if !decodeData(c, req.Data, &in) {
			return
		}
		tenant, err := h.usage.UpgradePlan(ctx, tenantID, in.Plan)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, tenant)
	case "usage_history":
		var in struct {
			Months int `json:"months"`
		}
		if !decodeData(c, req.Data, &in) {
			return
		}
		history, err := h.usage.History(ctx, tenantID, in.Months)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": history})
	default:
		c.JSON(http.StatusBadRequest, NewErrorResponse(ErrInvalidAction))
	}
}
