package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"secretary_server/server/common/transport/httpresp"
	"secretary_server/server/secretary/service"
)

func (h *Handler) listMessages(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(err.Error()))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	feed, err := h.messages.Feed(c.Request.Context(), tenantID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": feed})
}

func (h *Handler) dashboard(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(err.Error()))
		return
	}
	stats, err := h.messages.Dashboard(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// handleWS authenticates via header or query token, then hands the
// connection to the realtime service.
func (h *Handler) handleWS(c *gin.Context) {
	token, ok := wsAccessToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(httpresp.ErrMissingBearerToken))
		return
	}
	userID, tenantID, role, err := h.auth.ParseAuthContext(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(httpresp.ErrInvalidToken))
		return
	}
	if tenantID == "" {
		c.JSON(http.StatusForbidden, NewErrorResponse(ErrMissingTenantID))
		return
	}
	c.Set("auth_access_token", token)
	c.Set("auth_user_id", userID)
	c.Set("auth_tenant_id", tenantID)
	c.Set("auth_role", role)
	h.realtime.HandleWS(c)
}

func wsAccessToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token != "" {
			return token, true
		}
	}
	token := strings.TrimSpace(c.Query("access_token"))
	if token == "" {
		token = strings.TrimSpace(c.Query("token"))
	}
	if token == "" {
		return "", false
	}
	return token, true
}

func (h *Handler) oauthConnect(c *gin.Context) {
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
	c.JSON(http.StatusOK, gin.H{"url": h.oauth.ConnectURL(tenantID, actorID)})
}

// oauthCallback is hit by the provider redirect, so it is unauthenticated;
// identity comes from the signed-in state parameter.
func (h *Handler) oauthCallback(c *gin.Context) {
	code := c.Query("code")
	tenantID, executiveID, err := service.ParseState(c.Query("state"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	if err := h.oauth.Callback(c.Request.Context(), tenantID, executiveID, code); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewOKResponse())
}

func (h *Handler) oauthDisconnect(c *gin.Context) {
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
	if err := h.oauth.Disconnect(c.Request.Context(), tenantID, actorID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewOKResponse())
}
