package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"secretary_server/server/common/log"
	"secretary_server/server/secretary/service"
)

// handleWebhook receives chat provider deliveries. It always answers 200 on
// processable payloads so the provider does not retry; per-event failures
// are handled inside the orchestrator.
func (h *Handler) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("unreadable body"))
		return
	}
	if h.webhookSecret != "" && !verifySignature(h.webhookSecret, body, c.GetHeader("X-Signature")) {
		log.Warnf("webhook signature mismatch from %s", c.ClientIP())
		c.JSON(http.StatusUnauthorized, NewErrorResponse(ErrUnauthorized))
		return
	}
	var payload service.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("malformed payload"))
		return
	}
	h.assistant.HandleWebhook(c.Request.Context(), payload)
	c.JSON(http.StatusOK, NewOKResponse())
}

// verifySignature checks the provider's HMAC-SHA256 channel signature
// (base64 of the raw body MAC).
func verifySignature(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
