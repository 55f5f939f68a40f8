package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"secretary_server/server/secretary/domain"
	"secretary_server/server/secretary/service"
)

func (h *Handler) calendarAction(c *gin.Context) {
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
	case "create_event":
		var in service.CreateEventInput
		if !decodeData(c, req.Data, &in) {
			return
		}
		in.TenantID = tenantID
		event, err := h.calendar.CreateEvent(ctx, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, event)
	case "get_available_slots":
		var in struct {
			ExecutiveID string `json:"executiveId"`
			Date        string `json:"date"`
			Duration    int    `json:"duration"`
		}
		if !decodeData(c, req.Data, &in) {
			return
		}
		if in.ExecutiveID == "" {
			respondError(c, domain.NewValidationError("executiveId"))
			return
		}
		if in.Date == "" {
			respondError(c, domain.NewValidationError("date"))
			return
		}
		slots, err := h.calendar.Slots(ctx, tenantID, in.ExecutiveID, in.Date, in.Duration)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"slots": slots})
	case "get_events":
		var in struct {
			ExecutiveID string `json:"executiveId"`
			StartDate   string `json:"startDate"`
			EndDate     string `json:"endDate"`
		}
		if !decodeData(c, req.Data, &in) {
			return
		}
		from, err := parseDay(in.StartDate, time.Now())
		if err != nil {
			respondError(c, domain.NewValidationError("startDate"))
			return
		}
		to, err := parseDay(in.EndDate, from)
		if err != nil {
			respondError(c, domain.NewValidationError("endDate"))
			return
		}
		events, err := h.calendar.Events(ctx, tenantID, in.ExecutiveID, from, to)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	case "update_event":
		var in struct {
			EventID string            `json:"eventId"`
			Patch   domain.EventPatch `json:"patch"`
		}
		if !decodeData(c, req.Data, &in) {
			return
		}
		if in.EventID == "" {
			respondError(c, domain.NewValidationError("eventId"))
			return
		}
		event, err := h.calendar.UpdateEvent(ctx, tenantID, in.EventID, in.Patch)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, event)
	case "cancel_event":
		var in struct {
			EventID string `json:"eventId"`
			Reason  string `json:"reason"`
		}
		if !decodeData(c, req.Data, &in) {
			return
		}
		if in.EventID == "" {
			respondError(c, domain.NewValidationError("eventId"))
			return
		}
		event, err := h.calendar.CancelEvent(ctx, tenantID, in.EventID, in.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, event)
	case "delete_event":
		var in struct {
			EventID string `json:"eventId"`
		}
		if !decodeData(c, req.Data, &in) {
			return
		}
		if in.EventID == "" {
			respondError(c, domain.NewValidationError("eventId"))
			return
		}
		if err := h.calendar.DeleteEvent(ctx, tenantID, in.EventID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, NewOKResponse())
	default:
		c.JSON(http.StatusBadRequest, NewErrorResponse(ErrInvalidAction))
	}
}

func parseDay(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback.UTC().Truncate(24 * time.Hour), nil
	}
	return time.Parse("2006-01-02", raw)
}
