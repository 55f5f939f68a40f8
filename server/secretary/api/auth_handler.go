package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"secretary_server/server/common/transport/httpresp"
	"secretary_server/server/secretary/service"
)

func (h *Handler) register(c *gin.Context) {
	var in service.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	account, err := h.accounts.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"userId":   account.UserID,
		"email":    account.Email,
		"name":     account.Name,
		"userType": account.UserType,
	})
}

func (h *Handler) login(c *gin.Context) {
	var in struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		UserType string `json:"userType"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	result, err := h.accounts.Login(c.Request.Context(), in.UserType, in.Email, in.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewTokenResponse(
		result.Token,
		result.Account.UserID,
		result.Account.TenantID,
		result.Account.UserType,
		result.ExpiresAt.UTC().Format(time.RFC3339),
	))
}

func (h *Handler) verify(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(httpresp.ErrMissingBearerToken))
		return
	}
	claims, err := h.accounts.Verify(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(httpresp.ErrInvalidToken))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":   claims.UserID,
		"tenantId": claims.TenantID,
		"role":     claims.Role,
	})
}
