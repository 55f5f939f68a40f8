package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// NotifierClient talks to the chat provider's push/reply API. Notification
// failures are logged by callers and never retried or surfaced to end users.
type NotifierClient struct {
	endpoint    string
	accessToken string
	client      *http.Client
}

func NewNotifierClient(endpoint, accessToken string) *NotifierClient {
	return &NotifierClient{
		endpoint:    strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		accessToken: accessToken,
		client:      &http.Client{Timeout: 8 * time.Second},
	}
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Push sends a text message directly to a user.
func (n *NotifierClient) Push(ctx context.Context, recipientID, text string) error {
	payload := map[string]any{
		"to":       recipientID,
		"messages": []textMessage{{Type: "text", Text: text}},
	}
	return n.post(ctx, "/v2/bot/message/push", payload)
}

// Reply answers an inbound webhook event via its reply token.
func (n *NotifierClient) Reply(ctx context.Context, replyToken, text string) error {
	payload := map[string]any{
		"replyToken": replyToken,
		"messages":   []textMessage{{Type: "text", Text: text}},
	}
	return n.post(ctx, "/v2/bot/message/reply", payload)
}

func (n *NotifierClient) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint+path, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.accessToken)

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notifier status %d", resp.StatusCode)
	}
	return nil
}
