package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"secretary_server/server/secretary/domain"
	"secretary_server/server/secretary/service"
)

func (h *Handler) tenantAction(c *gin.Context) {
	actorID, role, err := actorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(err.Error()))
		return
	}
	req, ok := bindAction(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	// create_tenant is the one action available before the caller belongs to
	// a tenant; every other action requires the tenant context.
	tenantID, tenantErr := tenantFromContext(c)
	if req.Action != "create_tenant" && tenantErr != nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(tenantErr.Error()))
		return
	}

	switch req.Action {
	case "create_tenant":
		var in struct {
			CompanyName string `json:"companyName"`
			AdminName   string `json:"adminName"`
		}
		if !decodeData(c, req.Data, &in) {
			return
		}
		tenant, admin, err := h.tenants.CreateTenant(ctx, in.CompanyName, actorID, in.AdminName)
		if err != nil {
			respondError(c, err)
			return
		}
		// Reissue the session token with the new tenant so the caller does not
		// have to log in again to use tenant-scoped endpoints.
		token, expiresAt, err := h.auth.GenerateToken(actorID, tenant.TenantID, role)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"tenant":      tenant,
			"admin":       admin,
			"accessToken": token,
			"expiresAt":   expiresAt.UTC().Format(time.RFC3339),
		})
	case "add_user_to_tenant":
		var in service.AddUserInput
		if !decodeData(c, req.Data, &in) {
			return
		}
		in.TenantID = tenantID
		user, err := h.tenants.AddUser(ctx, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	case "list_tenant_users":
		users, err := h.tenants.ListUsers(ctx, tenantID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": users})
	case "get_employee":
		var in struct {
			UserID string `json:"userId"`
		}
		if !decodeData(c, req.Data, &in) {
			return
		}
		if in.UserID == "" {
			respondError(c, domain.NewValidationError("userId"))
			return
		}
		user, err := h.tenants.GetEmployee(ctx, tenantID, in.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	case "update_employee":
		var in struct {
			UserID string                `json:"userId"`
			Patch  service.EmployeePatch `json:"patch"`
		}
		if !decodeData(c, req.Data, &in) {
			return
		}
		if in.UserID == "" {
			respondError(c, domain.NewValidationError("userId"))
			return
		}
		user, err := h.tenants.UpdateEmployee(ctx, tenantID, in.UserID, in.Patch)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	case "delete_employee":
		var in struct {
			UserID string `json:"userId"`
		}
		if !decodeData(c, req.Data, &in) {
			return
		}
		if in.UserID == "" {
			respondError(c, domain.NewValidationError("userId"))
			return
		}
		if err := h.tenants.DeleteEmployee(ctx, tenantID, in.UserID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, NewOKResponse())
	default:
		c.JSON(http.StatusBadRequest, NewErrorResponse(ErrInvalidAction))
	}
}

func (h *Handler) listTenants(c *gin.Context) {
	tenants, err := h.tenants.ListTenants(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenants": tenants})
}
