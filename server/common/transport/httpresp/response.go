package httpresp

const (
	ErrUnauthorized       = "unauthorized"
	ErrInvalidCredentials = "invalid credentials"
	ErrMissingBearerToken = "bearer token is required"
	ErrInvalidToken       = "invalid token"
	ErrForbidden          = "forbidden"
	ErrInsufficientRole   = "insufficient permissions"
	ErrInvalidAction      = "invalid action"
	ErrTenantNotFound     = "tenant not found"
	ErrMissingTenantID    = "tenant ID is required"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	UserID      string `json:"userId"`
	TenantID    string `json:"tenantId,omitempty"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expiresAt"`
}

func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

func NewErrorDetailsResponse(message, details string) ErrorResponse {
	return ErrorResponse{Error: message, Details: details}
}

func NewOKResponse() OKResponse {
	return OKResponse{OK: true}
}

func NewStatusResponse(status string) StatusResponse {
	return StatusResponse{Status: status}
}

func NewTokenResponse(accessToken, userID, tenantID, role, expiresAt string) TokenResponse {
	return TokenResponse{AccessToken: accessToken, UserID: userID, TenantID: tenantID, Role: role, ExpiresAt: expiresAt}
}
