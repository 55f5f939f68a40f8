package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"secretary_server/server/common/transport/httpresp"
	"secretary_server/server/secretary/domain"
	"secretary_server/server/secretary/repository"
	"secretary_server/server/secretary/service"
)

const (
	ErrUnauthorized       = httpresp.ErrUnauthorized
	ErrInvalidCredentials = httpresp.ErrInvalidCredentials
	ErrInvalidAction      = httpresp.ErrInvalidAction
	ErrMissingTenantID    = httpresp.ErrMissingTenantID
)

type ErrorResponse = httpresp.ErrorResponse
type OKResponse = httpresp.OKResponse
type StatusResponse = httpresp.StatusResponse
type TokenResponse = httpresp.TokenResponse

type HealthResponse struct {
	Status string `json:"status"`
}

func NewErrorResponse(message string) ErrorResponse {
	return httpresp.NewErrorResponse(message)
}

func NewErrorDetailsResponse(message, details string) ErrorResponse {
	return httpresp.NewErrorDetailsResponse(message, details)
}

func NewOKResponse() OKResponse {
	return httpresp.NewOKResponse()
}

func NewHealthResponse(status string) HealthResponse {
	return HealthResponse{Status: status}
}

// respondError maps the domain error taxonomy to HTTP statuses: validation
// 400, not found 404, credential failures 401, plan limits 403, everything
// else 500.
func respondError(c *gin.Context, err error) {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, NewErrorDetailsResponse("validation failed", validation.Error()))
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, NewErrorResponse("not found"))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(ErrInvalidCredentials))
	case errors.Is(err, domain.ErrEmployeeLimitReached):
		c.JSON(http.StatusForbidden, NewErrorResponse(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(err.Error()))
	}
}
